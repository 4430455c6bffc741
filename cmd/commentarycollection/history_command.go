package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"commentarycollection/internal/history"
)

type runView struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	DurationMillis int64     `json:"duration_ms"`
	Section        string    `json:"section"`
	Collection     string    `json:"collection"`
	DryRun         bool      `json:"dry_run"`
	Processed      int       `json:"processed"`
	WithCommentary int       `json:"with_commentary"`
	Added          int       `json:"added"`
	Failed         int       `json:"failed"`
	Surfaced       int       `json:"surfaced"`
	Ignored        int       `json:"ignored"`
	Error          string    `json:"error,omitempty"`
}

func newRunView(run history.Run) runView {
	return runView{
		ID:             run.ID,
		StartedAt:      run.StartedAt,
		DurationMillis: run.Duration().Milliseconds(),
		Section:        run.Section,
		Collection:     run.Collection,
		DryRun:         run.DryRun,
		Processed:      run.Processed,
		WithCommentary: run.WithCommentary,
		Added:          run.Added,
		Failed:         run.Failed,
		Surfaced:       run.Surfaced,
		Ignored:        run.Ignored,
		Error:          run.Error,
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recent scans, or the items one scan added",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cmd.Context(), cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return showRunItems(cmd, store, args[0], asJSON)
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if asJSON {
				views := make([]runView, 0, len(runs))
				for _, run := range runs {
					views = append(views, newRunView(run))
				}
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No scans recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				result := "ok"
				switch {
				case run.Error != "":
					result = "error"
				case run.DryRun:
					result = "dry run"
				}
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Section,
					strconv.Itoa(run.Processed),
					strconv.Itoa(run.Added),
					strconv.Itoa(run.Failed),
					result,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Section", "Processed", "Added", "Failed", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func showRunItems(cmd *cobra.Command, store *history.Store, runID string, asJSON bool) error {
	items, err := store.Items(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("read run %s: %w", runID, err)
	}
	if asJSON {
		return writeJSON(cmd, items)
	}
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintf(out, "Run %s added no items\n", runID)
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.ItemID, item.Title, item.Source})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Source"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft}))
	return nil
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
