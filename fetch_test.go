package tiktok

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestFetchDocument_HeadersAndCookie(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultConfig().UserAgent {
			t.Error("missing user-agent")
		}
		if r.Header.Get("Accept") != acceptHTML {
			t.Error("missing html accept header")
		}
		if r.Header.Get("Accept-Encoding") != "identity" {
			t.Error("missing identity accept-encoding")
		}
		if r.Header.Get("Referer") != "https://www.google.com/" {
			t.Error("missing google referer")
		}
		if c, err := r.Cookie("tt_webid_v2"); err != nil || c.Value != "123456789" {
			t.Error("missing synthetic session cookie")
		}
		if c, err := r.Cookie("tiktok_webapp_theme"); err != nil || c.Value != "light" {
			t.Error("missing theme cookie")
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	s := newMockScraper(srv.URL)
	path, cleanup, err := s.fetchDocument(context.Background(), srv.URL+"/@alice", "alice")
	if err != nil {
		t.Fatalf("fetchDocument: %v", err)
	}
	defer cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if string(data) != "<html>ok</html>" {
		t.Errorf("body = %q", data)
	}
	if !strings.Contains(path, "tiktok_alice_") {
		t.Errorf("temp file name %q should carry the label", path)
	}
}

func TestFetchDocument_CleanupRemovesFile(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	s := newMockScraper(srv.URL)
	path, cleanup, err := s.fetchDocument(context.Background(), srv.URL, "x")
	if err != nil {
		t.Fatalf("fetchDocument: %v", err)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temp file still exists after cleanup")
	}
	cleanup() // safe to call twice
}

func TestFetchDocument_NonSuccessStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := newMockScraper(srv.URL)
	_, _, err := s.fetchDocument(context.Background(), srv.URL, "x")
	if err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestFetchDocument_TransportError(t *testing.T) {
	t.Parallel()
	s := New().WithProfileDelay(0)
	_, _, err := s.fetchDocument(context.Background(), "http://127.0.0.1:1/nope", "x")
	if err == nil {
		t.Fatal("expected transport error")
	}
}

func TestFetchDocumentBytes_ReleasesTempFile(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	before, _ := os.ReadDir(os.TempDir())
	s := newMockScraper(srv.URL)
	body, err := s.fetchDocumentBytes(context.Background(), srv.URL, "y")
	if err != nil {
		t.Fatalf("fetchDocumentBytes: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("body = %q", body)
	}

	after, _ := os.ReadDir(os.TempDir())
	for _, f := range after {
		if strings.HasPrefix(f.Name(), "tiktok_y_") && !contains(before, f.Name()) {
			t.Errorf("temp file %s left behind", f.Name())
		}
	}
}

func contains(entries []os.DirEntry, name string) bool {
	for _, e := range entries {
		if e.Name() == name {
			return true
		}
	}
	return false
}
