package discovery

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"commentarycollection/internal/catalog"
	"commentarycollection/internal/language"
)

// Decision is the operator's answer for one surfaced item.
type Decision int

const (
	// DecisionSkip leaves the item alone for this run.
	DecisionSkip Decision = iota
	// DecisionAccept queues the item for the collection.
	DecisionAccept
	// DecisionIgnore records the item in the ignore list.
	DecisionIgnore
)

func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionIgnore:
		return "ignore"
	default:
		return "skip"
	}
}

// ParseDecision accepts y/yes/a/accept, i/ignore and n/no/s/skip.
func ParseDecision(raw string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes", "a", "accept":
		return DecisionAccept, nil
	case "i", "ignore":
		return DecisionIgnore, nil
	case "n", "no", "s", "skip":
		return DecisionSkip, nil
	default:
		return DecisionSkip, fmt.Errorf("unrecognized answer %q", raw)
	}
}

// Candidate is an item surfaced for a decision along with the versions that
// made it eligible.
type Candidate struct {
	Item       *catalog.Item
	Versions   []VersionVerdict
	Collection string
	// CanIgnore is false when no ignore list is in use.
	CanIgnore bool
}

// Decider obtains a decision for a candidate.
type Decider interface {
	Decide(ctx context.Context, c Candidate) (Decision, error)
}

// ErrNotInteractive is returned when a prompt is requested without a terminal.
var ErrNotInteractive = errors.New("standard input is not a terminal")

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// PromptDecider asks on a console, showing every track of the eligible
// versions.
type PromptDecider struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptDecider reads answers from in and writes prompts to out.
func NewPromptDecider(in io.Reader, out io.Writer) *PromptDecider {
	return &PromptDecider{in: bufio.NewReader(in), out: out}
}

// NewTerminalPromptDecider is NewPromptDecider for a terminal; it fails with
// ErrNotInteractive when in is not one.
func NewTerminalPromptDecider(in *os.File, out io.Writer) (*PromptDecider, error) {
	if !IsInteractive(in) {
		return nil, ErrNotInteractive
	}
	return NewPromptDecider(in, out), nil
}

// Decide prints the candidate and reads answers until one parses. Input
// ending returns io.EOF.
func (p *PromptDecider) Decide(ctx context.Context, c Candidate) (Decision, error) {
	WriteCandidate(p.out, c)
	choices := "[y]es/[n]o"
	if c.CanIgnore {
		choices += "/[i]gnore"
	}
	for {
		if err := ctx.Err(); err != nil {
			return DecisionSkip, err
		}
		fmt.Fprintf(p.out, "Add %q to %q? %s: ", c.Item.DisplayName, c.Collection, choices)
		line, err := p.in.ReadString('\n')
		if strings.TrimSpace(line) == "" && err != nil {
			return DecisionSkip, err
		}
		decision, parseErr := ParseDecision(line)
		if parseErr == nil && (decision != DecisionIgnore || c.CanIgnore) {
			return decision, nil
		}
		fmt.Fprintf(p.out, "Please answer %s.\n", choices)
		if err != nil {
			return DecisionSkip, err
		}
	}
}

// WriteCandidate renders the per-track detail of a candidate.
func WriteCandidate(w io.Writer, c Candidate) {
	fmt.Fprintf(w, "\n%s (id %s)\n", c.Item.DisplayName, c.Item.ID)
	for _, verdict := range c.Versions {
		if verdict.Index >= len(c.Item.Versions) {
			continue
		}
		fmt.Fprintf(w, "  Version %d: %d audio tracks, %d English or untagged\n",
			verdict.Index+1, verdict.TrackCount, verdict.EngTrackCount)
		for _, track := range c.Item.Versions[verdict.Index].Tracks {
			name := track.Name
			if name == "" {
				name = "(untitled)"
			}
			fmt.Fprintf(w, "    - %s [%s, %dch]\n", name, language.DisplayName(track.Language), track.Channels)
		}
	}
}

// ScriptedDecider answers from a fixed table keyed by item id.
type ScriptedDecider struct {
	Answers map[string]Decision
	// Default is used for ids missing from Answers.
	Default Decision
	// Asked records candidate ids in the order they were surfaced.
	Asked []string
}

// ParseAnswers parses "id=answer" pairs separated by commas, e.g.
// "101=y,202=i".
func ParseAnswers(raw string) (map[string]Decision, error) {
	answers := make(map[string]Decision)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, answer, ok := strings.Cut(pair, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid answer %q: expected id=answer", pair)
		}
		decision, err := ParseDecision(answer)
		if err != nil {
			return nil, fmt.Errorf("answer for %s: %w", id, err)
		}
		answers[id] = decision
	}
	return answers, nil
}

// Decide returns the scripted answer for the candidate.
func (s *ScriptedDecider) Decide(_ context.Context, c Candidate) (Decision, error) {
	s.Asked = append(s.Asked, c.Item.ID)
	if decision, ok := s.Answers[c.Item.ID]; ok {
		return decision, nil
	}
	return s.Default, nil
}

// ReportOnlyDecider surfaces candidates without deciding anything.
type ReportOnlyDecider struct {
	Out io.Writer
}

// Decide writes the candidate when Out is set and skips it.
func (r ReportOnlyDecider) Decide(_ context.Context, c Candidate) (Decision, error) {
	if r.Out != nil {
		WriteCandidate(r.Out, c)
	}
	return DecisionSkip, nil
}
