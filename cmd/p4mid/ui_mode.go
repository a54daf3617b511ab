package main

import (
	"os"

	"github.com/spf13/cobra"

	"p4mid/internal/diagfmt"
)

// colorEnabled resolves the --color flag; auto follows whether stderr is
// a terminal.
func colorEnabled(cmd *cobra.Command) bool {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	return isTerminal(os.Stderr)
}

func prettyOpts(cmd *cobra.Command) diagfmt.PrettyOpts {
	return diagfmt.PrettyOpts{
		Color:     colorEnabled(cmd),
		ShowNotes: true,
	}
}

func maxDiagnostics(cmd *cobra.Command, configured int) int {
	if !cmd.Flags().Changed("max-diagnostics") && configured > 0 {
		return configured
	}
	n, _ := cmd.Flags().GetInt("max-diagnostics")
	return n
}
