package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "commentarycollection",
		Short:         "Collect Plex items with commentary tracks into a collection",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&flags.url, "url", "", "Plex server URL (overrides plex.url)")
	pf.StringVar(&flags.token, "token", "", "Plex token (overrides plex.token and PLEX_TOKEN)")
	pf.StringVarP(&flags.section, "section", "s", "", "Library section key (overrides plex.section)")
	pf.StringVar(&flags.collection, "collection", "", "Target collection name (overrides collection.name)")
	pf.StringSliceVarP(&flags.keywords, "keyword", "k", nil, "Commentary keyword, repeatable (overrides collection.keywords)")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newSectionsCommand(ctx))
	rootCmd.AddCommand(newIgnoreCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
