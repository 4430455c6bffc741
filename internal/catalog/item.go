package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// Kind distinguishes movies from episodes.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindEpisode Kind = "episode"
)

// Track is one audio stream of a media version.
type Track struct {
	Name         string
	Language     string
	Channels     int
	IsCommentary bool
}

// MediaVersion is one encoded rendition of an item. Tracks are audio only, in
// source order; a version without parts or streams has no tracks.
type MediaVersion struct {
	Tracks []Track
}

// Item is one movie or episode as seen by this run.
type Item struct {
	ID               string
	Kind             Kind
	DisplayName      string
	Versions         []MediaVersion
	CommentaryTracks []string
	Collections      []string
}

// HasCommentary reports whether any track matched a keyword.
func (i *Item) HasCommentary() bool {
	return len(i.CommentaryTracks) > 0
}

// InCollection reports whether the server lists the item in name.
func (i *Item) InCollection(name string) bool {
	return slices.Contains(i.Collections, name)
}

// CollectionsWith returns the existing collections in order followed by name,
// unless name is already present.
func (i *Item) CollectionsWith(name string) []string {
	out := slices.Clone(i.Collections)
	if !slices.Contains(out, name) {
		out = append(out, name)
	}
	return out
}

// MarkCollection records a successful add of name.
func (i *Item) MarkCollection(name string) {
	if !i.InCollection(name) {
		i.Collections = append(i.Collections, name)
	}
}

// TrackCount returns the number of audio tracks across all versions.
func (i *Item) TrackCount() int {
	n := 0
	for _, v := range i.Versions {
		n += len(v.Tracks)
	}
	return n
}

// EpisodeName composes the display name of an episode, e.g. "Show - S01E02".
// Missing show titles fall back to the episode title alone.
func EpisodeName(show, title string, season, episode int) string {
	show = strings.TrimSpace(show)
	if show == "" {
		return strings.TrimSpace(title)
	}
	return fmt.Sprintf("%s - S%02dE%02d", show, season, episode)
}
