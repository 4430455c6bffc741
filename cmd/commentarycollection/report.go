package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"commentarycollection/internal/catalog"
	"commentarycollection/internal/reconcile"
	"commentarycollection/internal/workflow"
)

type reportOptions struct {
	listTracks bool
}

func writeScanReport(w io.Writer, summary workflow.Summary, opts reportOptions) {
	p := newReportPrinter(w)

	if len(summary.Commentary) > 0 {
		p.header("Commentary items")
		fmt.Fprintln(w, renderTable(
			[]string{"ID", "Title", "Tracks", "Status"},
			commentaryRows(summary.Commentary, summary.Reconcile),
			[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
		))
		if opts.listTracks {
			for _, item := range summary.Commentary {
				p.tracks(item)
			}
		}
		p.blank()
	}

	if outcome := summary.Discovery; outcome != nil {
		p.header("Discovery")
		p.count("Surfaced", len(outcome.Surfaced), -1, "")
		p.status("Queued", statusInfo, itemList(outcome.Queued))
		p.status("Ignored", statusInfo, itemList(outcome.Ignored))
		if outcome.PreviouslyIgnored > 0 {
			p.count("Previously ignored", outcome.PreviouslyIgnored, -1, "")
		}
		if summary.IgnoreFlushed {
			p.status("Ignore list", statusOK, "saved to "+summary.IgnoreListPath)
		}
		p.blank()
	}

	p.header("Summary")
	if summary.Section.Key != "" {
		p.status("Section", statusInfo, fmt.Sprintf("%s (%s)", summary.Section.Title, summary.Section.Key))
	}
	p.status("Collection", statusInfo, summary.Collection)

	processedKind := statusOK
	if summary.Processed < summary.Listed {
		processedKind = statusWarn
	}
	p.status("Processed", processedKind, fmt.Sprintf("%d of %d items", summary.Processed, summary.Listed))
	p.count("With commentary", len(summary.Commentary), -1, "")
	p.count("Already in collection", len(summary.Reconcile.AlreadyMember), -1, "")
	if summary.DryRun {
		p.count("Would add", summary.WouldAdd(), -1, "(dry run)")
	}
	p.status("Added", statusOK, strconv.Itoa(summary.Added()))

	detail := ""
	if summary.FailedBatches > 0 {
		detail = fmt.Sprintf("(%d skipped batches)", summary.FailedBatches)
	}
	if summary.Failed() == 0 {
		p.status("Failed", statusOK, "0")
	} else {
		p.count("Failed", summary.Failed(), 0, detail)
	}
	p.status("Duration", statusInfo, summary.Duration().Round(time.Millisecond).String())
	if summary.Err != nil {
		p.status("Result", statusError, summary.Err.Error())
	}
}

func commentaryRows(items []*catalog.Item, result reconcile.Result) [][]string {
	status := make(map[string]string, len(items))
	mark := func(list []*catalog.Item, label string) {
		for _, item := range list {
			status[item.ID] = label
		}
	}
	mark(result.AlreadyMember, "already member")
	mark(result.Added, "added")
	mark(result.WouldAdd, "would add")
	mark(result.Failed, "failed")

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		label := status[item.ID]
		if label == "" {
			label = "pending"
		}
		rows = append(rows, []string{item.ID, item.DisplayName, strconv.Itoa(len(item.CommentaryTracks)), label})
	}
	return rows
}

func itemList(items []*catalog.Item) string {
	if len(items) == 0 {
		return "0"
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.DisplayName)
	}
	return fmt.Sprintf("%d (%s)", len(items), strings.Join(names, ", "))
}
