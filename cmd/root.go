package cmd

import (
	"fmt"
	"os"

	"github.com/kzn-tools/kaizen/output"
	"github.com/spf13/cobra"
)

var (
	verboseFlag bool
	Version     = "0.1.0"
	GitCommit   = "HEAD"
)

var rootCmd = &cobra.Command{
	Use:   "kaizen",
	Short: "Static analysis for JavaScript and TypeScript | Taint-aware | Privacy-first",
	Long: `Kaizen - static analysis for JavaScript and TypeScript.

Combines semantic analysis (scopes, control flow, call graphs) with taint tracking to find
real vulnerabilities instead of pattern-matching noise. Runs entirely locally, no code ever
leaves the machine.

Learn more: https://github.com/kzn-tools/kaizen`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verboseFlag, _ = cmd.Flags().GetBool("verbose") //nolint:all

		// Show banner for help command
		if cmd.Name() == "help" || (len(os.Args) == 1 || (len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h"))) {
			noBanner, _ := cmd.Flags().GetBool("no-banner")
			logger := output.NewLogger(output.VerbosityDefault)
			if output.ShouldShowBanner(logger.IsTTY(), noBanner) {
				output.PrintBanner(logger.GetWriter(), Version)
			} else if !noBanner {
				fmt.Fprintln(os.Stderr, output.CompactBanner(Version))
				fmt.Fprintln(os.Stderr)
			}
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("no-banner", false, "Disable startup banner")
}
