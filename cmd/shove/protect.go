package main

import (
	"context"
	"fmt"
	"os"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/aquasecurity/table"
	"github.com/shovehq/shove/internal/authpolicy"
	"github.com/shovehq/shove/internal/config"
	"github.com/shovehq/shove/internal/logging"
	"github.com/shovehq/shove/internal/objectstore"
	"github.com/shovehq/shove/internal/realm"
	"github.com/spf13/cobra"
)

func newProtectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "protect",
		Short: "View, add, or remove realm access protections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProtect(cmd.Context())
		},
	}
}

func runProtect(ctx context.Context) error {
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

	authStore, err := authpolicy.New(store, []byte(cfg.Auth.EncryptionKey), cfg.Store.BucketName, logger)
	if err != nil {
		return fmt.Errorf("build access policy store: %w", err)
	}
	if err := authStore.Reload(ctx); err != nil {
		return fmt.Errorf("load access policy: %w", err)
	}

	choice := ""
	if err := survey.AskOne(&survey.Select{
		Message: "What do you want to do?",
		Options: []string{"View current protections", "Remove existing protection", "Add new protection"},
	}, &choice); err != nil {
		return err
	}

	switch choice {
	case "View current protections":
		return viewProtections(authStore)
	case "Remove existing protection":
		return removeProtection(ctx, authStore)
	case "Add new protection":
		return addProtection(ctx, authStore)
	default:
		return fmt.Errorf("unrecognized choice %q", choice)
	}
}

func viewProtections(authStore *authpolicy.Store) error {
	t := table.New(os.Stdout)
	t.SetHeaders("Realm", "Usernames")
	for r, usernames := range authStore.ListRealms() {
		t.AddRow(r.String(), fmt.Sprint(usernames))
	}
	t.Render()
	return nil
}

func removeProtection(ctx context.Context, authStore *authpolicy.Store) error {
	realms := authStore.ListRealms()
	if len(realms) == 0 {
		fmt.Println("No protections in place.")
		return nil
	}

	labels := make([]string, 0, len(realms))
	byLabel := make(map[string]realm.Realm, len(realms))
	for r, usernames := range realms {
		label := fmt.Sprintf("%s (%v)", r.String(), usernames)
		labels = append(labels, label)
		byLabel[label] = r
	}

	chosen := ""
	if err := survey.AskOne(&survey.Select{
		Message: "Which protection to remove?",
		Options: labels,
	}, &chosen); err != nil {
		return err
	}

	confirmed := false
	if err := survey.AskOne(&survey.Confirm{
		Message: fmt.Sprintf("Confirm removal of %s?", chosen),
	}, &confirmed); err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	return authStore.RemoveRealm(ctx, byLabel[chosen])
}

func addProtection(ctx context.Context, authStore *authpolicy.Store) error {
	r, err := realmFromStdin()
	if err != nil {
		return err
	}

	username := ""
	if err := survey.AskOne(&survey.Input{Message: "Username?"}, &username, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	password := ""
	if err := survey.AskOne(&survey.Password{Message: "Password"}, &password, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	if _, err := authStore.AddUser(ctx, username, password); err != nil {
		return fmt.Errorf("add user %s: %w", username, err)
	}

	return authStore.ProtectAdditional(ctx, r, []string{username})
}

// realmFromStdin prompts for a matching rule the same way the cache-control
// CLI prompts for a directive: pick a kind, then fill in its operand.
func realmFromStdin() (realm.Realm, error) {
	kind := ""
	if err := survey.AskOne(&survey.Select{
		Message: "What should this realm match?",
		Options: []string{"Starts with", "Ends with", "Contains", "Regex"},
	}, &kind); err != nil {
		return realm.Realm{}, err
	}

	operand := ""
	if err := survey.AskOne(&survey.Input{Message: "Pattern?"}, &operand, survey.WithValidator(survey.Required)); err != nil {
		return realm.Realm{}, err
	}

	switch kind {
	case "Starts with":
		return realm.StartsWith(operand), nil
	case "Ends with":
		return realm.EndsWith(operand), nil
	case "Contains":
		return realm.Contains(operand), nil
	case "Regex":
		return realm.Regex(operand)
	default:
		return realm.Realm{}, fmt.Errorf("unrecognized realm kind %q", kind)
	}
}
