package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "layertree",
		Short: "Layertree renders selected design layers as text and JSON",
		Long: `Layertree loads layer trees from design exports and documents, walks the
current selection and streams the listings to connected panels.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().String("config", "", "YAML config file (defaults to $LAYERTREE_CONFIG)")
	root.PersistentFlags().String("log-level", "", "Override the configured log level")

	root.AddCommand(newServeCmd(), newDumpCmd(), newVersionCmd())
	return root
}
