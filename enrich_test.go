package tiktok

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestEnrichCommenters_Cap(t *testing.T) {
	t.Parallel()
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		w.Write([]byte(ssrPage("X", "S", 5, 1, 2, "")))
	}))
	defer srv.Close()

	s := newMockScraper(srv.URL).WithConfig(Config{EnrichLimit: 3})

	commenters := make([]Commenter, 10)
	for i := range commenters {
		commenters[i] = Commenter{
			Identifier: fmt.Sprintf("user%d", i),
			ProfileURL: fmt.Sprintf("%s/@user%d", srv.URL, i),
		}
	}

	got := s.enrichCommenters(context.Background(), commenters)

	if fetches.Load() != 3 {
		t.Errorf("fetched %d profiles, want exactly the cap of 3", fetches.Load())
	}
	for i := 0; i < 3; i++ {
		if got[i].Followers == nil || *got[i].Followers != 5 {
			t.Errorf("commenter %d not enriched: %+v", i, got[i])
		}
	}
	for i := 3; i < 10; i++ {
		if got[i].Followers != nil || got[i].Following != nil || got[i].Likes != nil {
			t.Errorf("commenter %d past the cap must pass through unchanged: %+v", i, got[i])
		}
	}
}

func TestEnrichCommenters_EmailAndLinktreeFromBio(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(ssrPage("B", "S", 3, 1, 2, "business: Me.Biz+tt@example.co.uk / linktr.ee/me_biz")))
	}))
	defer srv.Close()

	s := newMockScraper(srv.URL)
	got := s.enrichCommenters(context.Background(), []Commenter{
		{Identifier: "bob", ProfileURL: srv.URL + "/@bob"},
	})

	if got[0].Email != "Me.Biz+tt@example.co.uk" {
		t.Errorf("email = %q", got[0].Email)
	}
	if got[0].Linktree != "linktr.ee/me_biz" {
		t.Errorf("linktree = %q", got[0].Linktree)
	}
}

func TestEnrichCommenters_NoEmailIsNotAnError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(ssrPage("B", "S", 3, 1, 2, "just vibes")))
	}))
	defer srv.Close()

	s := newMockScraper(srv.URL)
	got := s.enrichCommenters(context.Background(), []Commenter{
		{Identifier: "bob", ProfileURL: srv.URL + "/@bob"},
	})

	if got[0].Followers == nil || *got[0].Followers != 3 {
		t.Fatalf("stats missing: %+v", got[0])
	}
	if got[0].Email != "" {
		t.Errorf("email = %q, want empty", got[0].Email)
	}
}

func TestEnrichCommenters_OneFailureDoesNotAbortBatch(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/@bad", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/@good", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(ssrPage("G", "S", 8, 1, 2, "")))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newMockScraper(srv.URL)
	got := s.enrichCommenters(context.Background(), []Commenter{
		{Identifier: "bad", ProfileURL: srv.URL + "/@bad"},
		{Identifier: "good", ProfileURL: srv.URL + "/@good"},
	})

	if got[0].Followers != nil {
		t.Errorf("failed fetch must leave nil stats, got %+v", got[0])
	}
	if got[1].Followers == nil || *got[1].Followers != 8 {
		t.Errorf("second commenter should still be enriched: %+v", got[1])
	}
}

func TestFetchUserStats_RegexTier(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// No rehydration payload at all; only raw field patterns.
		w.Write([]byte(`<html>"followerCount": 15 "followingCount": 4 "heart": 99 "signature": "mail me: a@b.io"</html>`))
	}))
	defer srv.Close()

	s := newMockScraper(srv.URL)
	stats, err := s.fetchUserStats(context.Background(), "bob", srv.URL+"/@bob")
	if err != nil {
		t.Fatalf("fetchUserStats: %v", err)
	}
	if stats.Followers != 15 || stats.Following != 4 || stats.Likes != 99 {
		t.Errorf("stats = %+v", stats)
	}
	if firstEmail(stats.Bio) != "a@b.io" {
		t.Errorf("email from bio = %q", firstEmail(stats.Bio))
	}
}

func TestFetchUserStats_NoDataAtAll(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>nothing useful</html>`))
	}))
	defer srv.Close()

	s := newMockScraper(srv.URL)
	if _, err := s.fetchUserStats(context.Background(), "bob", srv.URL+"/@bob"); err == nil {
		t.Fatal("expected error when no tier matches")
	}
}

func TestFirstEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		bio  string
		want string
	}{
		{"contact me: foo@bar.com for collabs", "foo@bar.com"},
		{"two a@b.co then c@d.co", "a@b.co"},
		{"no contact here", ""},
		{"", ""},
		{"dot.name+tag@sub.domain.org!", "dot.name+tag@sub.domain.org"},
	}
	for _, tt := range tests {
		if got := firstEmail(tt.bio); got != tt.want {
			t.Errorf("firstEmail(%q) = %q, want %q", tt.bio, got, tt.want)
		}
	}
}
