package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"commentarycollection/internal/catalog"
	"commentarycollection/internal/language"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

type statusStyle struct {
	label string
	color string
}

const ansiReset = "\x1b[0m"

var statusStyles = map[statusKind]statusStyle{
	statusInfo:  {label: "INFO", color: "\x1b[34m"},
	statusOK:    {label: "OK", color: "\x1b[32m"},
	statusWarn:  {label: "WARN", color: "\x1b[33m"},
	statusError: {label: "ERROR", color: "\x1b[31m"},
}

const (
	statusLabelWidth = 22
	statusIndent     = "  "
	headerColor      = "\x1b[36m"
)

// reportPrinter writes the scan report: section headers, labelled status
// lines and the commentary tracks found on each item.
type reportPrinter struct {
	w        io.Writer
	colorize bool
}

func newReportPrinter(w io.Writer) *reportPrinter {
	return &reportPrinter{w: w, colorize: shouldColorize(w)}
}

func (p *reportPrinter) header(title string) {
	title = strings.TrimSpace(title)
	line := "== " + title + " =="
	rule := strings.Repeat("-", len(line))
	fmt.Fprintln(p.w, p.paint(headerColor, line))
	fmt.Fprintln(p.w, p.paint(headerColor, rule))
}

func (p *reportPrinter) status(label string, kind statusKind, message string) {
	fmt.Fprintln(p.w, renderStatusLine(label, kind, message, p.colorize))
}

// count prints n as info, or as a warning when warnAbove is exceeded.
func (p *reportPrinter) count(label string, n, warnAbove int, detail string) {
	kind := statusInfo
	if warnAbove >= 0 && n > warnAbove {
		kind = statusWarn
	}
	message := fmt.Sprint(n)
	if detail != "" {
		message += " " + detail
	}
	p.status(label, kind, message)
}

// tracks lists the commentary tracks of item with their language and layout.
func (p *reportPrinter) tracks(item *catalog.Item) {
	fmt.Fprintf(p.w, "%s%s (id %s)\n", statusIndent, item.DisplayName, item.ID)
	for _, track := range commentaryTracks(item) {
		fmt.Fprintf(p.w, "%s    %s %s [%s, %dch]\n", statusIndent, p.paint(statusStyles[statusOK].color, "*"),
			track.Name, language.DisplayName(track.Language), track.Channels)
	}
}

func (p *reportPrinter) blank() {
	fmt.Fprintln(p.w)
}

func (p *reportPrinter) paint(color, text string) string {
	if !p.colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

func commentaryTracks(item *catalog.Item) []catalog.Track {
	var out []catalog.Track
	for _, version := range item.Versions {
		for _, track := range version.Tracks {
			if track.IsCommentary {
				out = append(out, track)
			}
		}
	}
	return out
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style, ok := statusStyles[kind]
	if !ok {
		style = statusStyles[statusInfo]
	}
	text := "[" + style.label + "]"
	if message != "" {
		text += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text)
	if colorize {
		return style.color + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
