package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	textlang "golang.org/x/text/language"
)

func newSectionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List library sections on the Plex server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.plexClient()
			if err != nil {
				return err
			}
			sections, err := client.ListSections(cmd.Context())
			if err != nil {
				return fmt.Errorf("list sections on %s: %w", client.BaseURL(), err)
			}

			out := cmd.OutOrStdout()
			if len(sections) == 0 {
				fmt.Fprintln(out, "No library sections found")
				return nil
			}
			title := cases.Title(textlang.English)
			rows := make([][]string, 0, len(sections))
			for _, section := range sections {
				marker := ""
				if section.Key == cfg.Plex.Section {
					marker = "*"
				}
				rows = append(rows, []string{
					marker,
					section.Key,
					section.Title,
					title.String(strings.ToLower(section.Type)),
					yesNo(section.Supported()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"", "Key", "Title", "Type", "Scannable"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
