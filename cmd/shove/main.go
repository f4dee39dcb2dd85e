// Command shove serves a content-addressed static site out of an
// S3-compatible bucket, and manages the catalogs that back it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shove",
		Short: "Serve and manage a content-addressed static site",
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newUploadCmd())
	root.AddCommand(newProtectCmd())
	root.AddCommand(newCacheCmd())

	return root
}
