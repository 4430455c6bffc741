package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"commentarycollection/internal/config"
	"commentarycollection/internal/discovery"
	"commentarycollection/internal/history"
	"commentarycollection/internal/logging"
	"commentarycollection/internal/notifications"
	"commentarycollection/internal/workflow"
)

type scanFlags struct {
	dryRun         bool
	discover       bool
	noDiscover     bool
	channelFilter  bool
	answers        string
	nonInteractive bool
	noHistory      bool
	listTracks     bool
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	flags := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the library section and add commentary items to the collection",
		Long: `Scan lists every item in the configured library section, classifies its
audio tracks against the commentary keywords, and adds matching items to the
target collection. Existing collection memberships are preserved.

With --discover, items whose tracks carry no keyword but look like they may
hold a commentary (more than one English or untagged audio track) are
surfaced for a decision: add, skip, or ignore permanently.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, ctx, flags)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&flags.dryRun, "dry-run", "n", false, "Report what would change without updating Plex")
	f.BoolVar(&flags.discover, "discover", false, "Run the discovery pass (overrides discovery.enabled)")
	f.BoolVar(&flags.noDiscover, "no-discover", false, "Skip the discovery pass")
	f.BoolVar(&flags.channelFilter, "channel-filter", false, "Only surface versions with a two-channel (stereo) track")
	f.StringVar(&flags.answers, "answers", "", "Scripted discovery answers, e.g. 101=y,202=i (remaining items are skipped)")
	f.BoolVar(&flags.nonInteractive, "non-interactive", false, "Report discovery candidates without prompting")
	f.BoolVar(&flags.noHistory, "no-history", false, "Do not record this run in the history ledger")
	f.BoolVar(&flags.listTracks, "tracks", false, "List the commentary tracks of every matched item")
	cmd.MarkFlagsMutuallyExclusive("discover", "no-discover")
	return cmd
}

func runScan(cmd *cobra.Command, ctx *commandContext, flags *scanFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	client, err := ctx.plexClient()
	if err != nil {
		return err
	}
	if flags.channelFilter {
		cfg.Discovery.ChannelFilter = true
	}

	opts := workflow.Options{
		DryRun:   flags.dryRun,
		Notifier: notifications.NewService(cfg),
	}
	switch {
	case flags.discover:
		on := true
		opts.Discover = &on
	case flags.noDiscover:
		off := false
		opts.Discover = &off
	}

	out := cmd.OutOrStdout()
	decider, err := chooseDecider(cmd, cfg, flags)
	if err != nil {
		return err
	}
	opts.Decider = decider

	if cfg.History.Enabled && !flags.noHistory {
		store, err := history.Open(cmd.Context(), cfg.History.Path)
		if err != nil {
			logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
				logging.String("path", cfg.History.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "this run is not recorded"),
			)
		} else {
			defer store.Close()
			opts.Recorder = store
		}
	}

	runner := workflow.NewRunner(cfg, client, logger, opts)
	summary, runErr := runner.Run(cmd.Context())

	writeScanReport(out, summary, reportOptions{listTracks: flags.listTracks})

	switch {
	case runErr == nil:
		return nil
	case errors.Is(runErr, context.Canceled):
		return fmt.Errorf("scan interrupted: %w", runErr)
	default:
		return runErr
	}
}

// chooseDecider picks how discovery candidates are answered: scripted answers
// first, then a terminal prompt, falling back to report-only.
func chooseDecider(cmd *cobra.Command, cfg *config.Config, flags *scanFlags) (discovery.Decider, error) {
	out := cmd.OutOrStdout()
	if raw := strings.TrimSpace(flags.answers); raw != "" {
		answers, err := discovery.ParseAnswers(raw)
		if err != nil {
			return nil, fmt.Errorf("--answers: %w", err)
		}
		return &discovery.ScriptedDecider{Answers: answers}, nil
	}
	if flags.nonInteractive || !cfg.Discovery.Interactive {
		return discovery.ReportOnlyDecider{Out: out}, nil
	}
	if in, ok := cmd.InOrStdin().(*os.File); ok {
		if prompt, err := discovery.NewTerminalPromptDecider(in, out); err == nil {
			return prompt, nil
		}
	}
	return discovery.ReportOnlyDecider{Out: out}, nil
}
