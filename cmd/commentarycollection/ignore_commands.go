package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"commentarycollection/internal/ignorelist"
)

func newIgnoreCommand(ctx *commandContext) *cobra.Command {
	ignoreCmd := &cobra.Command{
		Use:   "ignore",
		Short: "Manage items hidden from discovery",
	}
	ignoreCmd.AddCommand(newIgnoreListCommand(ctx))
	ignoreCmd.AddCommand(newIgnoreRemoveCommand(ctx))
	ignoreCmd.AddCommand(newIgnoreClearCommand(ctx))
	return ignoreCmd
}

func (c *commandContext) loadIgnoreList(cmd *cobra.Command) (*ignorelist.Set, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	set, err := ignorelist.Load(cmd.Context(), cfg.Discovery.IgnorePath)
	if err != nil {
		return nil, fmt.Errorf("load ignore list: %w", err)
	}
	return set, nil
}

func newIgnoreListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show ignored item ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := ctx.loadIgnoreList(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if set.Len() == 0 {
				fmt.Fprintf(out, "Ignore list %s is empty\n", set.Path())
				return nil
			}
			for _, id := range set.IDs() {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}

func newIgnoreRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove ids from the ignore list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := ctx.loadIgnoreList(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range args {
				if set.Remove(id) {
					fmt.Fprintf(out, "Removed %s\n", id)
				} else {
					fmt.Fprintf(out, "%s was not ignored\n", id)
				}
			}
			if _, err := set.Flush(cmd.Context()); err != nil {
				return fmt.Errorf("save ignore list: %w", err)
			}
			return nil
		},
	}
}

func newIgnoreClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every id from the ignore list",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := ctx.loadIgnoreList(cmd)
			if err != nil {
				return err
			}
			count := set.Len()
			set.Clear()
			if _, err := set.Flush(cmd.Context()); err != nil {
				return fmt.Errorf("save ignore list: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d ignored items\n", count)
			return nil
		},
	}
}
