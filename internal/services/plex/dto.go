package plex

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Stream types reported by Plex.
const (
	StreamTypeVideo    = 1
	StreamTypeAudio    = 2
	StreamTypeSubtitle = 3
)

// Library item types accepted by /library/sections/{id}/all?type=.
const (
	ItemTypeMovie   = 1
	ItemTypeEpisode = 4
)

// APIResponse wraps the MediaContainer for JSON unmarshaling.
type APIResponse struct {
	MediaContainer MediaContainer `json:"MediaContainer"`
}

// MediaContainer is the root container for Plex API responses.
type MediaContainer struct {
	Size      int         `json:"size"`
	TotalSize int         `json:"totalSize,omitempty"`
	Offset    int         `json:"offset,omitempty"`
	Directory []Directory `json:"Directory,omitempty"`
	Metadata  []Metadata  `json:"Metadata,omitempty"`
}

// Directory represents a library section.
type Directory struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Agent string `json:"agent,omitempty"`
}

// Metadata represents a movie or episode with its media versions.
type Metadata struct {
	RatingKey        string  `json:"ratingKey"`
	Key              string  `json:"key"`
	Type             string  `json:"type"`
	Title            string  `json:"title"`
	GrandparentTitle string  `json:"grandparentTitle,omitempty"`
	ParentIndex      int     `json:"parentIndex,omitempty"`
	Index            int     `json:"index,omitempty"`
	Year             int     `json:"year,omitempty"`
	Media            []Media `json:"Media,omitempty"`
	Collection       []Tag   `json:"Collection,omitempty"`
}

// Tag is a named label such as a collection membership.
type Tag struct {
	ID  int    `json:"id,omitempty"`
	Tag string `json:"tag"`
}

// Media is one version of an item (e.g. a 4K and a 1080p copy).
type Media struct {
	ID            int    `json:"id"`
	AudioChannels int    `json:"audioChannels,omitempty"`
	Container     string `json:"container,omitempty"`
	Part          []Part `json:"Part,omitempty"`
}

// Part represents a media file part.
type Part struct {
	ID     int      `json:"id"`
	Key    string   `json:"key"`
	File   string   `json:"file,omitempty"`
	Stream []Stream `json:"Stream,omitempty"`
}

// Stream is a single elementary stream inside a part.
type Stream struct {
	ID                   int     `json:"id"`
	StreamType           FlexInt `json:"streamType"`
	Index                int     `json:"index,omitempty"`
	Title                string  `json:"title,omitempty"`
	DisplayTitle         string  `json:"displayTitle,omitempty"`
	ExtendedDisplayTitle string  `json:"extendedDisplayTitle,omitempty"`
	LanguageCode         string  `json:"languageCode,omitempty"`
	Language             string  `json:"language,omitempty"`
	Channels             FlexInt `json:"channels,omitempty"`
	Codec                string  `json:"codec,omitempty"`
	Default              bool    `json:"default,omitempty"`
}

// CollectionNames returns the item's collection tags in server order.
func (m Metadata) CollectionNames() []string {
	if len(m.Collection) == 0 {
		return nil
	}
	names := make([]string, 0, len(m.Collection))
	for _, tag := range m.Collection {
		if name := strings.TrimSpace(tag.Tag); name != "" {
			names = append(names, tag.Tag)
		}
	}
	return names
}

// FlexInt accepts both JSON numbers and numeric strings; some Plex versions
// emit streamType and channels as strings.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*f = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// Int returns the value as an int.
func (f FlexInt) Int() int { return int(f) }
