package classify

import (
	"log/slog"
	"strings"

	"commentarycollection/internal/catalog"
	lang "commentarycollection/internal/language"
	"commentarycollection/internal/logging"
	"commentarycollection/internal/services/plex"
)

// Classifier builds catalog items from metadata records.
type Classifier struct {
	matcher *Matcher
	logger  *slog.Logger
}

// New returns a classifier using matcher. A nil logger discards gap reports.
func New(matcher *Matcher, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Classifier{matcher: matcher, logger: logger}
}

// Classify extracts every audio track of every media version. Missing fields
// are defaulted: the language becomes "unknown", channels become 0, and a
// version without parts or streams becomes an empty version.
func (c *Classifier) Classify(md plex.Metadata) catalog.Item {
	item := catalog.Item{
		ID:          md.RatingKey,
		Kind:        kindOf(md),
		DisplayName: displayName(md),
		Versions:    make([]catalog.MediaVersion, 0, len(md.Media)),
		Collections: md.CollectionNames(),
	}
	for idx, media := range md.Media {
		version := c.classifyVersion(item.ID, idx, media)
		for _, track := range version.Tracks {
			if track.IsCommentary {
				item.CommentaryTracks = append(item.CommentaryTracks, track.Name)
			}
		}
		item.Versions = append(item.Versions, version)
	}
	return item
}

func (c *Classifier) classifyVersion(itemID string, idx int, media plex.Media) catalog.MediaVersion {
	if len(media.Part) == 0 || len(media.Part[0].Stream) == 0 {
		c.gap(itemID, idx, "media version has no streams")
		return catalog.MediaVersion{}
	}
	var version catalog.MediaVersion
	for _, stream := range media.Part[0].Stream {
		if stream.StreamType.Int() != plex.StreamTypeAudio {
			continue
		}
		track := catalog.Track{
			Name:     trackName(stream),
			Language: lang.Unknown,
			Channels: stream.Channels.Int(),
		}
		if code := strings.ToLower(strings.TrimSpace(stream.LanguageCode)); code != "" {
			track.Language = code
		} else {
			c.gap(itemID, idx, "audio stream has no language code", logging.Int("stream_id", stream.ID))
		}
		if track.Name == "" {
			c.gap(itemID, idx, "audio stream has no title", logging.Int("stream_id", stream.ID))
		}
		track.IsCommentary = c.matcher.Match(track.Name)
		version.Tracks = append(version.Tracks, track)
	}
	return version
}

func (c *Classifier) gap(itemID string, version int, msg string, attrs ...logging.Attr) {
	args := []logging.Attr{
		logging.String(logging.FieldItemID, itemID),
		logging.Int("version", version),
	}
	args = append(args, attrs...)
	c.logger.Debug(msg, logging.Args(args...)...)
}

func trackName(s plex.Stream) string {
	for _, candidate := range []string{s.Title, s.DisplayTitle, s.ExtendedDisplayTitle} {
		if name := strings.TrimSpace(candidate); name != "" {
			return name
		}
	}
	return ""
}

func kindOf(md plex.Metadata) catalog.Kind {
	if md.Type == "episode" {
		return catalog.KindEpisode
	}
	return catalog.KindMovie
}

func displayName(md plex.Metadata) string {
	if md.Type == "episode" {
		return catalog.EpisodeName(md.GrandparentTitle, md.Title, md.ParentIndex, md.Index)
	}
	return strings.TrimSpace(md.Title)
}
