package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"commentarycollection/internal/config"
)

const userAgent = "commentarycollection/0.1"

// ScanResult is the subset of a finished scan worth announcing.
type ScanResult struct {
	Section    string
	Collection string
	DryRun     bool
	Processed  int
	Added      int
	WouldAdd   int
	Failed     int
	Surfaced   int
	Duration   time.Duration
}

// Service announces scan outcomes.
type Service interface {
	NotifyScanCompleted(ctx context.Context, result ScanResult) error
	NotifyScanFailed(ctx context.Context, section string, err error) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyScanCompleted(ctx context.Context, result ScanResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Scanned %d items in %s", result.Processed, sectionLabel(result.Section))
	if result.DryRun {
		fmt.Fprintf(&b, "\nWould add %d to %s (dry run)", result.WouldAdd, result.Collection)
	} else {
		fmt.Fprintf(&b, "\nAdded %d to %s", result.Added, result.Collection)
	}
	if result.Failed > 0 {
		fmt.Fprintf(&b, "\nFailed: %d", result.Failed)
	}
	if result.Surfaced > 0 {
		fmt.Fprintf(&b, "\nDiscovery candidates: %d", result.Surfaced)
	}
	if result.Duration > 0 {
		fmt.Fprintf(&b, "\nDuration: %s", result.Duration.Round(time.Second))
	}

	data := payload{
		title:   "Commentary scan complete",
		message: b.String(),
		tags:    []string{"plex", "commentary", "completed"},
	}
	if result.Added == 0 && result.Failed == 0 {
		data.priority = "low"
	}
	if result.Failed > 0 {
		data.tags = append(data.tags, "warning")
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScanFailed(ctx context.Context, section string, err error) error {
	message := "unknown error"
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "Commentary scan failed",
		message:  fmt.Sprintf("Scan of %s failed: %s", sectionLabel(section), message),
		tags:     []string{"plex", "commentary", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func sectionLabel(section string) string {
	if section = strings.TrimSpace(section); section == "" {
		return "the library"
	}
	return "section " + section
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyScanCompleted(context.Context, ScanResult) error { return nil }
func (noopService) NotifyScanFailed(context.Context, string, error) error { return nil }
