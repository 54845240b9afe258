package tiktok

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

func TestHarvestComments_PageCap(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/comment/list/", func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		cursor, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
		// Endless feed: always has_more with a fresh page of 20.
		uids := make([]string, 20)
		for i := range uids {
			uids[i] = fmt.Sprintf("user%d_%d", n, i)
		}
		w.Write([]byte(commentsJSON(uids, 1, cursor+20)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newMockScraper(srv.URL).WithConfig(Config{MaxCommentPages: 5})
	got := s.harvestComments(context.Background(), "77", "alice")

	if calls.Load() != 5 {
		t.Errorf("endpoint called %d times, want exactly 5", calls.Load())
	}
	if len(got) != 100 {
		t.Errorf("harvested %d commenters, want 5 pages x 20", len(got))
	}
}

func TestHarvestComments_StopsWhenExhausted(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/comment/list/", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(commentsJSON([]string{"bob", "carol"}, 0, 0)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newMockScraper(srv.URL)
	got := s.harvestComments(context.Background(), "77", "alice")

	if calls.Load() != 1 {
		t.Errorf("endpoint called %d times, want 1 when has_more=0", calls.Load())
	}
	if len(got) != 2 {
		t.Fatalf("harvested %d commenters, want 2", len(got))
	}
	if got[0].Identifier != "bob" || got[0].ProfileURL != srv.URL+"/@bob" {
		t.Errorf("unexpected first commenter: %+v", got[0])
	}
	if got[0].DisplayName != "U bob" {
		t.Errorf("display name = %q", got[0].DisplayName)
	}
}

func TestHarvestComments_DedupeKeepsFirstOccurrence(t *testing.T) {
	t.Parallel()
	pages := []string{
		commentsJSON([]string{"bob", "carol", "bob"}, 1, 20),
		commentsJSON([]string{"carol", "dave", "bob"}, 0, 0),
	}
	var call atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/comment/list/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(pages[call.Add(1)-1]))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newMockScraper(srv.URL)
	got := s.harvestComments(context.Background(), "77", "alice")

	want := []string{"bob", "carol", "dave"}
	if len(got) != len(want) {
		t.Fatalf("harvested %d unique commenters, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Identifier != w {
			t.Errorf("commenter[%d] = %q, want %q", i, got[i].Identifier, w)
		}
	}
}

func TestHarvestComments_PartialOnMidHarvestFailure(t *testing.T) {
	t.Parallel()
	var call atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/comment/list/", func(w http.ResponseWriter, _ *http.Request) {
		if call.Add(1) == 1 {
			w.Write([]byte(commentsJSON([]string{"bob"}, 1, 20)))
			return
		}
		w.Write([]byte(`<html>blocked</html>`)) // non-JSON: harvest stops
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newMockScraper(srv.URL)
	got := s.harvestComments(context.Background(), "77", "alice")

	if len(got) != 1 || got[0].Identifier != "bob" {
		t.Errorf("expected partial harvest [bob], got %+v", got)
	}
}

func TestHarvestComments_FetchFailureIsEmptyNotError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := newMockScraper(srv.URL)
	if got := s.harvestComments(context.Background(), "77", "alice"); len(got) != 0 {
		t.Errorf("expected empty harvest, got %+v", got)
	}
}

func TestHarvestComments_SkipsEmptyIdentifiers(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/comment/list/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"comments":[{"user":{"unique_id":"","nickname":"Ghost"}},{"user":{"unique_id":"real","nickname":"Real"}}],"has_more":0,"cursor":0}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newMockScraper(srv.URL)
	got := s.harvestComments(context.Background(), "77", "alice")

	if len(got) != 1 || got[0].Identifier != "real" {
		t.Errorf("expected only the real commenter, got %+v", got)
	}
}

func TestHarvestComments_SendsPaginationParams(t *testing.T) {
	t.Parallel()
	var sawCount, sawAid bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/comment/list/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("aweme_id") != "77" {
			t.Errorf("aweme_id = %q", q.Get("aweme_id"))
		}
		if q.Get("count") == "20" {
			sawCount = true
		}
		if q.Get("aid") == appID {
			sawAid = true
		}
		w.Write([]byte(commentsJSON(nil, 0, 0)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newMockScraper(srv.URL)
	s.harvestComments(context.Background(), "77", "alice")

	if !sawCount || !sawAid {
		t.Error("expected count and aid query params on the comment API call")
	}
}
