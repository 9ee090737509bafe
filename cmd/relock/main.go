// Command relock regenerates lock files for a manifest change using the
// artifact reconciliation engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "relock",
		Short: "Regenerate lock files for dependency updates",
		Long: `Relock invokes a package ecosystem's own toolchain to regenerate the
lock files affected by a manifest change, under an isolated per-run cache
and registry configuration, and reports exactly which files changed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		updateCmd(),
		ecosystemsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "relock: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
