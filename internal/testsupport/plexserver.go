package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"commentarycollection/internal/services/plex"
)

// Mutation is a collection update received by a FakePlex.
type Mutation struct {
	Method  string
	Section string
	Type    string
	ItemID  string
	Tags    []string
}

// FakePlex is an in-memory Plex server covering the library endpoints the
// scanner uses. PUT requests update the stored collection tags so repeated
// runs observe earlier changes.
type FakePlex struct {
	Server *httptest.Server
	Token  string

	mu        sync.Mutex
	sections  []plex.Directory
	items     map[string][]plex.Metadata
	failures  map[string]int
	mutations []Mutation
}

// NewFakePlex starts a server accepting token and registers cleanup.
func NewFakePlex(t testing.TB, token string) *FakePlex {
	t.Helper()
	f := &FakePlex{
		Token:    token,
		items:    make(map[string][]plex.Metadata),
		failures: make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the server base URL.
func (f *FakePlex) URL() string { return f.Server.URL }

// AddSection registers a library section.
func (f *FakePlex) AddSection(key, title, kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sections = append(f.sections, plex.Directory{Key: key, Title: title, Type: kind})
}

// AddItem stores full metadata for an item in section.
func (f *FakePlex) AddItem(section string, md plex.Metadata) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[section] = append(f.items[section], md)
}

// FailMetadata makes the next n metadata requests that include key answer
// with HTTP 500.
func (f *FakePlex) FailMetadata(key string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = n
}

// Mutations returns the PUT requests received so far.
func (f *FakePlex) Mutations() []Mutation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Mutation
	for _, m := range f.mutations {
		if m.Method == http.MethodPut {
			out = append(out, m)
		}
	}
	return out
}

// Preflights returns the number of OPTIONS requests received.
func (f *FakePlex) Preflights() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.mutations {
		if m.Method == http.MethodOptions {
			n++
		}
	}
	return n
}

// Collections returns the stored collection tags of item id.
func (f *FakePlex) Collections(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, items := range f.items {
		for _, md := range items {
			if md.RatingKey == id {
				return md.CollectionNames()
			}
		}
	}
	return nil
}

func (f *FakePlex) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Query().Get("X-Plex-Token") != f.Token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	path := r.URL.Path
	switch {
	case path == "/library/sections" && r.Method == http.MethodGet:
		f.writeJSON(w, plex.MediaContainer{Size: len(f.sections), Directory: f.sections})
	case strings.HasPrefix(path, "/library/sections/") && strings.HasSuffix(path, "/all"):
		section := strings.TrimSuffix(strings.TrimPrefix(path, "/library/sections/"), "/all")
		switch r.Method {
		case http.MethodGet:
			f.list(w, r, section)
		case http.MethodOptions, http.MethodPut:
			f.mutate(w, r, section)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(path, "/library/metadata/") && r.Method == http.MethodGet:
		f.metadata(w, strings.Split(strings.TrimPrefix(path, "/library/metadata/"), ","))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *FakePlex) list(w http.ResponseWriter, r *http.Request, section string) {
	all := f.items[section]
	start, _ := strconv.Atoi(r.URL.Query().Get("X-Plex-Container-Start"))
	size, err := strconv.Atoi(r.URL.Query().Get("X-Plex-Container-Size"))
	if err != nil || size <= 0 {
		size = len(all)
	}
	end := min(start+size, len(all))
	start = min(start, end)
	page := make([]plex.Metadata, 0, end-start)
	for _, md := range all[start:end] {
		page = append(page, plex.Metadata{
			RatingKey: md.RatingKey,
			Key:       "/library/metadata/" + md.RatingKey,
			Type:      md.Type,
			Title:     md.Title,
		})
	}
	f.writeJSON(w, plex.MediaContainer{Size: len(page), TotalSize: len(all), Offset: start, Metadata: page})
}

func (f *FakePlex) metadata(w http.ResponseWriter, keys []string) {
	for _, key := range keys {
		if f.failures[key] > 0 {
			f.failures[key]--
			http.Error(w, "transcoder busy", http.StatusInternalServerError)
			return
		}
	}
	var out []plex.Metadata
	for _, key := range keys {
		if md, ok := f.lookup(key); ok {
			out = append(out, *md)
		}
	}
	f.writeJSON(w, plex.MediaContainer{Size: len(out), Metadata: out})
}

func (f *FakePlex) mutate(w http.ResponseWriter, r *http.Request, section string) {
	query := r.URL.Query()
	m := Mutation{Method: r.Method, Section: section, Type: query.Get("type"), ItemID: query.Get("id")}
	m.Tags = collectionTags(query)
	f.mutations = append(f.mutations, m)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	md, ok := f.lookup(m.ItemID)
	if !ok {
		http.Error(w, "no such item", http.StatusNotFound)
		return
	}
	md.Collection = nil
	for _, tag := range m.Tags {
		md.Collection = append(md.Collection, plex.Tag{Tag: tag})
	}
	w.WriteHeader(http.StatusOK)
}

func (f *FakePlex) lookup(key string) (*plex.Metadata, bool) {
	for section := range f.items {
		for i := range f.items[section] {
			if f.items[section][i].RatingKey == key {
				return &f.items[section][i], true
			}
		}
	}
	return nil, false
}

func (f *FakePlex) writeJSON(w http.ResponseWriter, container plex.MediaContainer) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(plex.APIResponse{MediaContainer: container})
}

func collectionTags(query url.Values) []string {
	var tags []string
	for i := 0; ; i++ {
		values, ok := query[fmt.Sprintf("collection[%d].tag.tag", i)]
		if !ok || len(values) == 0 {
			return tags
		}
		tags = append(tags, values[0])
	}
}

// Movie builds movie metadata with one media version holding streams.
func Movie(id, title string, streams ...plex.Stream) plex.Metadata {
	return plex.Metadata{
		RatingKey: id,
		Type:      "movie",
		Title:     title,
		Media:     []plex.Media{{ID: 1, Part: []plex.Part{{ID: 1, Stream: streams}}}},
	}
}

// Audio builds an audio stream.
func Audio(title, lang string, channels int) plex.Stream {
	return plex.Stream{
		StreamType:   plex.StreamTypeAudio,
		Title:        title,
		LanguageCode: lang,
		Channels:     plex.FlexInt(channels),
	}
}
