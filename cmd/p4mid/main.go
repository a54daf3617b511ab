package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"p4mid/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "p4mid",
	Short: "Midend passes and runtime schema tooling",
	Long:  `p4mid runs inlining over serialized IR programs and generates runtime table schemas`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(inlineCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
