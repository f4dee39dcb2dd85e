package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/aquasecurity/table"
	"github.com/shovehq/shove/internal/cachecontrol"
	"github.com/shovehq/shove/internal/config"
	"github.com/shovehq/shove/internal/logging"
	"github.com/shovehq/shove/internal/objectstore"
	"github.com/shovehq/shove/internal/realm"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache",
		Short: "View or edit the Cache-Control policy applied to served pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCache(cmd.Context())
		},
	}
}

func runCache(ctx context.Context) error {
	cfg, err := config.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	store, err := objectstore.New(ctx, objectstore.Config{
		BucketName:      cfg.Store.BucketName,
		AccessKeyID:     cfg.Store.AccessKeyID,
		SecretAccessKey: cfg.Store.SecretAccessKey,
		EndpointURL:     cfg.Store.EndpointURL,
	})
	if err != nil {
		return fmt.Errorf("connect to object store: %w", err)
	}

	ccStore := cachecontrol.New(store, logger)
	if err := ccStore.Reload(ctx); err != nil {
		return fmt.Errorf("load cache control policy: %w", err)
	}

	choice := ""
	if err := survey.AskOne(&survey.Select{
		Message: "What do you want to do?",
		Options: []string{"View current rules", "Set the catalog default", "Set a realm override", "Remove a realm override"},
	}, &choice); err != nil {
		return err
	}

	switch choice {
	case "View current rules":
		return viewCacheRules(ccStore)
	case "Set the catalog default":
		return setCacheDefault(ctx, ccStore)
	case "Set a realm override":
		return setCacheOverride(ctx, ccStore)
	case "Remove a realm override":
		return removeCacheOverride(ctx, ccStore)
	default:
		return fmt.Errorf("unrecognized choice %q", choice)
	}
}

func viewCacheRules(ccStore *cachecontrol.Store) error {
	policy := ccStore.Current()

	t := table.New(os.Stdout)
	t.SetHeaders("Realm", "Directives")
	for r, list := range policy.Overrides {
		t.AddRow(r.String(), cachecontrol.Join(list.AsSlice()))
	}
	t.Render()

	if policy.Default != nil {
		fmt.Printf("default: %s\n", cachecontrol.Join(policy.Default.AsSlice()))
	} else {
		fmt.Println("no catalog default set")
	}
	return nil
}

func setCacheDefault(ctx context.Context, ccStore *cachecontrol.Store) error {
	directives, err := directivesFromStdin()
	if err != nil {
		return err
	}
	return ccStore.SetDefault(ctx, directives)
}

func setCacheOverride(ctx context.Context, ccStore *cachecontrol.Store) error {
	r, err := realmFromStdin()
	if err != nil {
		return err
	}
	directives, err := directivesFromStdin()
	if err != nil {
		return err
	}
	return ccStore.SetOverride(ctx, r, directives)
}

func removeCacheOverride(ctx context.Context, ccStore *cachecontrol.Store) error {
	overrides := ccStore.Current().Overrides
	if len(overrides) == 0 {
		fmt.Println("No overrides in place.")
		return nil
	}

	labels := make([]string, 0, len(overrides))
	byLabel := make(map[string]realm.Realm, len(overrides))
	for r, list := range overrides {
		label := fmt.Sprintf("%s -> %s", r.String(), cachecontrol.Join(list.AsSlice()))
		labels = append(labels, label)
		byLabel[label] = r
	}

	chosen := ""
	if err := survey.AskOne(&survey.Select{Message: "Which override to remove?", Options: labels}, &chosen); err != nil {
		return err
	}

	return ccStore.RemoveOverride(ctx, byLabel[chosen])
}

// directivesFromStdin prompts for one directive at a time, the way the
// original interactive cache-control manager built up a directive list,
// stopping as soon as the operator declines to add another.
func directivesFromStdin() ([]cachecontrol.Directive, error) {
	var directives []cachecontrol.Directive

	for {
		d, err := directiveFromStdin()
		if err != nil {
			return nil, err
		}
		directives = append(directives, d)

		again := false
		if err := survey.AskOne(&survey.Confirm{Message: "Add another directive?"}, &again); err != nil {
			return nil, err
		}
		if !again {
			return directives, nil
		}
	}
}

func directiveFromStdin() (cachecontrol.Directive, error) {
	kind := ""
	if err := survey.AskOne(&survey.Select{
		Message: "Which directive?",
		Options: []string{"Max age", "No cache", "Must revalidate", "No store", "Stale while revalidate"},
	}, &kind); err != nil {
		return cachecontrol.Directive{}, err
	}

	switch kind {
	case "Max age":
		secs, err := promptSeconds("What should the max age (seconds) be?")
		if err != nil {
			return cachecontrol.Directive{}, err
		}
		return cachecontrol.MaxAge(secs), nil
	case "No cache":
		return cachecontrol.NoCache(), nil
	case "Must revalidate":
		return cachecontrol.MustRevalidate(), nil
	case "No store":
		return cachecontrol.NoStore(), nil
	case "Stale while revalidate":
		secs, err := promptSeconds("How many seconds may a stale response be served while revalidating?")
		if err != nil {
			return cachecontrol.Directive{}, err
		}
		return cachecontrol.StaleWhileRevalidate(secs), nil
	default:
		return cachecontrol.Directive{}, fmt.Errorf("unrecognized directive %q", kind)
	}
}

func promptSeconds(message string) (int, error) {
	raw := ""
	if err := survey.AskOne(&survey.Input{Message: message}, &raw, survey.WithValidator(survey.Required)); err != nil {
		return 0, err
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number of seconds: %w", raw, err)
	}
	return secs, nil
}
