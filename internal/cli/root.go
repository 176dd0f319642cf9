package cli

import (
	"github.com/spf13/cobra"
)

const skipConfigLoad = "skipConfigLoad"

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	root := &cobra.Command{
		Use:           "roughcut",
		Short:         "Assemble multi-camera rough-cut edit plans from analyzed footage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfigLoad] == "true" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (debug|info|warn|error)")

	root.AddCommand(newRunCommand(ctx))
	root.AddCommand(newAnalyzeCommand(ctx))
	root.AddCommand(newSummaryCommand())
	root.AddCommand(newHistoryCommand(ctx))
	root.AddCommand(newConfigCommand())
	return root
}
