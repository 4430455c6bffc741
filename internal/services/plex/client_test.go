package plex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"commentarycollection/internal/services"
)

type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recordedRequest{Method: req.Method, Path: req.URL.Path, RawQuery: req.URL.RawQuery})
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var slept []time.Duration
	retrier := &Retrier{
		Attempts: 3,
		Delay:    time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}
	all := append([]Option{WithRetrier(retrier), WithClientIdentifier("test-client")}, opts...)
	return NewClient(server.URL+"/", "secret-token", all...), &slept
}

func TestListSectionsSendsTokenAndParses(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/library/sections" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("X-Plex-Token"); got != "secret-token" {
			t.Fatalf("expected token query param, got %q", got)
		}
		if got := r.Header.Get("X-Plex-Client-Identifier"); got != "test-client" {
			t.Fatalf("unexpected client identifier %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Fatalf("unexpected accept header %q", got)
		}
		_, _ = w.Write([]byte(`{"MediaContainer":{"size":3,"Directory":[
			{"key":"1","type":"movie","title":"Movies"},
			{"key":"2","type":"show","title":"TV Shows"},
			{"key":"3","type":"artist","title":"Music"}]}}`))
	})

	sections, err := client.ListSections(context.Background())
	if err != nil {
		t.Fatalf("ListSections: %v", err)
	}
	want := []Section{
		{Key: "1", Title: "Movies", Type: "movie"},
		{Key: "2", Title: "TV Shows", Type: "show"},
		{Key: "3", Title: "Music", Type: "artist"},
	}
	if diff := cmp.Diff(want, sections); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}
	if sections[0].ItemType() != ItemTypeMovie || sections[1].ItemType() != ItemTypeEpisode || sections[2].Supported() {
		t.Fatalf("unexpected item types: %d %d %v", sections[0].ItemType(), sections[1].ItemType(), sections[2].Supported())
	}
}

func TestFindSectionMissingIsConfigurationError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"Directory":[{"key":"1","type":"movie","title":"Movies"}]}}`))
	})

	if _, err := client.FindSection(context.Background(), "9"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	section, err := client.FindSection(context.Background(), "1")
	if err != nil || section.Title != "Movies" {
		t.Fatalf("unexpected section %+v err %v", section, err)
	}
}

func TestListItemsPages(t *testing.T) {
	rec := &recorder{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		if r.URL.Path != "/library/sections/1/all" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != "1" {
			t.Fatalf("unexpected type %q", got)
		}
		switch r.URL.Query().Get("X-Plex-Container-Start") {
		case "0":
			_, _ = w.Write([]byte(`{"MediaContainer":{"size":2,"totalSize":3,"Metadata":[
				{"ratingKey":"10","key":"/library/metadata/10","type":"movie","title":"A"},
				{"ratingKey":"11","key":"/library/metadata/11","type":"movie","title":"B"}]}}`))
		case "2":
			_, _ = w.Write([]byte(`{"MediaContainer":{"size":1,"totalSize":3,"Metadata":[
				{"ratingKey":"12","key":"/library/metadata/12","type":"movie","title":"C"}]}}`))
		default:
			t.Fatalf("unexpected start %q", r.URL.Query().Get("X-Plex-Container-Start"))
		}
	}, WithPageSize(2))

	items, err := client.ListItems(context.Background(), "1", ItemTypeMovie)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	var keys []string
	for _, item := range items {
		keys = append(keys, item.RatingKey)
	}
	if diff := cmp.Diff([]string{"10", "11", "12"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if got := len(rec.all()); got != 2 {
		t.Fatalf("expected 2 page requests, got %d", got)
	}
}

func TestListItemsStopsWhenServerIgnoresOffset(t *testing.T) {
	rec := &recorder{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		if len(rec.all()) > 5 {
			t.Fatalf("listing did not stop after %d requests", len(rec.all()))
		}
		_, _ = w.Write([]byte(`{"MediaContainer":{"size":2,"Metadata":[
			{"ratingKey":"10","type":"movie","title":"A"},
			{"ratingKey":"11","type":"movie","title":"B"}]}}`))
	}, WithPageSize(2))

	items, err := client.ListItems(context.Background(), "1", ItemTypeMovie)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 distinct items, got %d", len(items))
	}
	if got := len(rec.all()); got != 2 {
		t.Fatalf("expected 2 page requests, got %d", got)
	}
}

func TestFetchMetadataBatchDecodesStreams(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/library/metadata/101,102" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"MediaContainer":{"size":2,"Metadata":[
			{"ratingKey":"101","type":"movie","title":"Alien",
			 "Collection":[{"tag":"Sci-Fi"}],
			 "Media":[{"id":1,"Part":[{"id":1,"Stream":[
				{"streamType":1,"displayTitle":"4K"},
				{"streamType":2,"title":"Director's Commentary","languageCode":"eng","channels":2},
				{"streamType":"2","displayTitle":"English (DTS 5.1)","languageCode":"eng","channels":"6"}]}]}]},
			{"ratingKey":"102","type":"episode","title":"Pilot","grandparentTitle":"Show","parentIndex":1,"index":2}]}}`))
	})

	items, err := client.FetchMetadataBatch(context.Background(), []string{"101", "102"})
	if err != nil {
		t.Fatalf("FetchMetadataBatch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	streams := items[0].Media[0].Part[0].Stream
	if streams[2].StreamType.Int() != StreamTypeAudio || streams[2].Channels.Int() != 6 {
		t.Fatalf("expected string-encoded numbers to decode, got %+v", streams[2])
	}
	if diff := cmp.Diff([]string{"Sci-Fi"}, items[0].CollectionNames()); diff != "" {
		t.Fatalf("collections mismatch (-want +got):\n%s", diff)
	}
	if items[1].GrandparentTitle != "Show" || items[1].ParentIndex != 1 || items[1].Index != 2 {
		t.Fatalf("unexpected episode fields: %+v", items[1])
	}
}

func TestFetchMetadataBatchRejectsOversizedBatch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	keys := make([]string, MaxBatchSize+1)
	for i := range keys {
		keys[i] = "k"
	}
	if _, err := client.FetchMetadataBatch(context.Background(), keys); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMutateCollectionsSendsPreflightThenFullTagSet(t *testing.T) {
	rec := &recorder{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(http.StatusOK)
	})

	err := client.MutateCollections(context.Background(), "1", ItemTypeMovie, "101", []string{"Sci-Fi", "Commentary Collection"})
	if err != nil {
		t.Fatalf("MutateCollections: %v", err)
	}
	reqs := rec.all()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	if reqs[0].Method != http.MethodOptions || reqs[1].Method != http.MethodPut {
		t.Fatalf("expected OPTIONS then PUT, got %s then %s", reqs[0].Method, reqs[1].Method)
	}
	for _, req := range reqs {
		if req.Path != "/library/sections/1/all" {
			t.Fatalf("unexpected path %s", req.Path)
		}
	}
	wantQuery := "type=1&id=101&collection%5B0%5D.tag.tag=Sci-Fi&collection%5B1%5D.tag.tag=Commentary%20Collection&X-Plex-Token=secret-token"
	if reqs[1].RawQuery != wantQuery {
		t.Fatalf("unexpected query:\n got %s\nwant %s", reqs[1].RawQuery, wantQuery)
	}
}

func TestMutateCollectionsToleratesPreflightServerError(t *testing.T) {
	rec := &recorder{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := client.MutateCollections(context.Background(), "2", ItemTypeEpisode, "7", []string{"Commentary"}); err != nil {
		t.Fatalf("MutateCollections: %v", err)
	}
	if got := len(rec.all()); got != 2 {
		t.Fatalf("expected preflight and put only, got %d requests", got)
	}
}

func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	var calls int
	client, slept := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[{"ratingKey":"1","title":"A"}]}}`))
	})

	items, err := client.FetchMetadataBatch(context.Background(), []string{"1"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(items) != 1 || calls != 3 {
		t.Fatalf("expected 1 item after 3 calls, got %d items %d calls", len(items), calls)
	}
	if diff := cmp.Diff([]time.Duration{time.Second, time.Second}, *slept); diff != "" {
		t.Fatalf("pauses mismatch (-want +got):\n%s", diff)
	}
}

func TestRetryGivesUpAfterThreeAttempts(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FetchMetadataBatch(context.Background(), []string{"1"})
	if !errors.Is(err, services.ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("expected attempt count in error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestNonRetryableFailuresStopImmediately(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		marker error
	}{
		{"unauthorized", http.StatusUnauthorized, "", services.ErrAuth},
		{"forbidden", http.StatusForbidden, "", services.ErrAuth},
		{"malformed", http.StatusOK, `{"MediaContainer":`, services.ErrMalformedResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int
			client, slept := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.FetchMetadataBatch(context.Background(), []string{"1"})
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
			if calls != 1 || len(*slept) != 0 {
				t.Fatalf("expected a single attempt, got %d calls and %d pauses", calls, len(*slept))
			}
		})
	}
}

func TestConnectionFailureIsConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	retrier := &Retrier{Attempts: 3, Sleep: func(context.Context, time.Duration) error { return nil }}
	client := NewClient(url, "tok", WithRetrier(retrier))
	_, err := client.ListSections(context.Background())
	if !errors.Is(err, services.ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatalf("expected connection error to be fatal at connectivity check")
	}
}

func TestBatch(t *testing.T) {
	keys := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		keys = append(keys, string(rune('a'+i%26)))
	}
	batches := Batch(keys, 0)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 50 || len(batches[1]) != 50 || len(batches[2]) != 20 {
		t.Fatalf("unexpected batch sizes %d %d %d", len(batches[0]), len(batches[1]), len(batches[2]))
	}
	if batches[1][0] != keys[50] {
		t.Fatal("expected listing order to be preserved")
	}
	if Batch(nil, 10) != nil {
		t.Fatal("expected nil for no keys")
	}
	if got := len(Batch(keys, 500)); got != 3 {
		t.Fatalf("expected oversized batch size to clamp to %d, got %d batches", MaxBatchSize, got)
	}
}

func TestSectionWriterUsesSectionItemType(t *testing.T) {
	rec := &recorder{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
	})

	writer := client.Writer(Section{Key: "5", Title: "TV", Type: "show"})
	if err := writer.MutateCollections(context.Background(), "77", []string{"Commentary"}); err != nil {
		t.Fatalf("MutateCollections: %v", err)
	}
	reqs := rec.all()
	if len(reqs) != 2 || reqs[1].Path != "/library/sections/5/all" {
		t.Fatalf("unexpected requests %+v", reqs)
	}
	if !strings.HasPrefix(reqs[1].RawQuery, "type=4&id=77&") {
		t.Fatalf("expected episode type in query, got %s", reqs[1].RawQuery)
	}
}
