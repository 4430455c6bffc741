package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"commentarycollection/internal/logging"
	"commentarycollection/internal/services"
)

// Section is a library section on the server.
type Section struct {
	Key   string
	Title string
	Type  string
}

// ItemType returns the listing type for the section's playable items, or 0
// when the section holds neither movies nor shows.
func (s Section) ItemType() int {
	switch strings.ToLower(s.Type) {
	case "movie":
		return ItemTypeMovie
	case "show":
		return ItemTypeEpisode
	default:
		return 0
	}
}

// Supported reports whether the section can be scanned for commentary.
func (s Section) Supported() bool {
	return s.ItemType() != 0
}

// ListSections returns every library section. It doubles as the
// connectivity check: transport and auth failures surface here first.
func (c *Client) ListSections(ctx context.Context) ([]Section, error) {
	var resp APIResponse
	if err := c.call(ctx, request{op: "list sections", method: http.MethodGet, path: "/library/sections"}, &resp); err != nil {
		return nil, err
	}
	sections := make([]Section, 0, len(resp.MediaContainer.Directory))
	for _, dir := range resp.MediaContainer.Directory {
		sections = append(sections, Section{Key: dir.Key, Title: dir.Title, Type: dir.Type})
	}
	return sections, nil
}

// FindSection returns the section with the given key.
func (c *Client) FindSection(ctx context.Context, key string) (Section, error) {
	sections, err := c.ListSections(ctx)
	if err != nil {
		return Section{}, err
	}
	for _, section := range sections {
		if section.Key == key {
			return section, nil
		}
	}
	return Section{}, services.Wrap(services.ErrConfiguration, "plex", "find section",
		fmt.Sprintf("library section %q not found on %s", key, c.baseURL), nil)
}

// ListItems returns the lightweight listing of every item of itemType in the
// section, paging through the container until totalSize is reached. Paging
// also stops once a page yields no unseen rating keys, which covers servers
// that ignore the container offset.
func (c *Client) ListItems(ctx context.Context, sectionKey string, itemType int) ([]Metadata, error) {
	var items []Metadata
	seen := make(map[string]struct{})
	path := "/library/sections/" + url.PathEscape(sectionKey) + "/all"
	for start := 0; ; {
		query := url.Values{}
		query.Set("type", strconv.Itoa(itemType))
		query.Set("X-Plex-Container-Start", strconv.Itoa(start))
		query.Set("X-Plex-Container-Size", strconv.Itoa(c.pageSize))

		var resp APIResponse
		op := fmt.Sprintf("list items (offset %d)", start)
		if err := c.call(ctx, request{op: op, method: http.MethodGet, path: path, rawQuery: query.Encode()}, &resp); err != nil {
			return nil, err
		}
		page := resp.MediaContainer.Metadata
		fresh := 0
		for _, md := range page {
			if md.RatingKey != "" {
				if _, dup := seen[md.RatingKey]; dup {
					continue
				}
				seen[md.RatingKey] = struct{}{}
			}
			items = append(items, md)
			fresh++
		}
		start += len(page)

		total := resp.MediaContainer.TotalSize
		switch {
		case len(page) == 0 || fresh == 0:
			return items, nil
		case total > 0 && start >= total:
			return items, nil
		case total == 0 && len(page) < c.pageSize:
			return items, nil
		}
	}
}

// FetchMetadataBatch fetches full metadata, including media versions and
// collection tags, for up to MaxBatchSize rating keys in one call.
func (c *Client) FetchMetadataBatch(ctx context.Context, keys []string) ([]Metadata, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if len(keys) > MaxBatchSize {
		return nil, services.Wrap(services.ErrValidation, "plex", "fetch metadata",
			fmt.Sprintf("batch of %d keys exceeds limit of %d", len(keys), MaxBatchSize), nil)
	}
	escaped := make([]string, len(keys))
	for i, key := range keys {
		escaped[i] = url.PathEscape(key)
	}
	var resp APIResponse
	req := request{
		op:     fmt.Sprintf("fetch metadata (%d keys)", len(keys)),
		method: http.MethodGet,
		path:   "/library/metadata/" + strings.Join(escaped, ","),
	}
	if err := c.call(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.MediaContainer.Metadata, nil
}

// MutateCollections replaces the collection tag set of one item with names,
// in order. Callers pass the full desired set, never a delta. The server
// expects an OPTIONS preflight before the PUT.
func (c *Client) MutateCollections(ctx context.Context, sectionKey string, itemType int, itemID string, names []string) error {
	path := "/library/sections/" + url.PathEscape(sectionKey) + "/all"
	rawQuery := collectionQuery(itemType, itemID, names)
	op := "update collections of " + itemID

	return c.retry.Do(ctx, op, func(ctx context.Context) error {
		preflight := request{op: op + " (preflight)", method: http.MethodOptions, path: path, rawQuery: rawQuery}
		if err := c.doRequest(ctx, preflight, nil); err != nil && !services.IsRetryable(err) {
			return err
		} else if err != nil {
			c.logger.Debug("plex preflight failed", logging.Error(err))
		}
		return c.doRequest(ctx, request{op: op, method: http.MethodPut, path: path, rawQuery: rawQuery}, nil)
	})
}

// SectionWriter binds collection updates to one library section.
type SectionWriter struct {
	client  *Client
	section Section
}

// Writer returns a SectionWriter for section.
func (c *Client) Writer(section Section) *SectionWriter {
	return &SectionWriter{client: c, section: section}
}

// MutateCollections replaces the collection tags of itemID within the bound
// section.
func (w *SectionWriter) MutateCollections(ctx context.Context, itemID string, names []string) error {
	return w.client.MutateCollections(ctx, w.section.Key, w.section.ItemType(), itemID, names)
}

func collectionQuery(itemType int, itemID string, names []string) string {
	var b strings.Builder
	b.WriteString("type=")
	b.WriteString(strconv.Itoa(itemType))
	b.WriteString("&id=")
	b.WriteString(queryEscape(itemID))
	for i, name := range names {
		fmt.Fprintf(&b, "&collection%%5B%d%%5D.tag.tag=%s", i, queryEscape(name))
	}
	return b.String()
}

// queryEscape percent-encodes a query value using %20 for spaces.
func queryEscape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
