package tiktok

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"
)

// fetchDocument downloads a page to a temporary file using the fixed
// browser-like header profile that gets past TikTok's WAF. It returns
// the file path and a cleanup func that removes it; cleanup is safe to
// call more than once and must be called on every path. On error no file
// is left behind.
func (s *Scraper) fetchDocument(ctx context.Context, pageURL, label string) (string, func(), error) {
	s.waitForProfile()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("create page request: %w", err)
	}

	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", acceptHTML)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Referer", "https://www.google.com/")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Cookie", documentCookie)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, fmt.Errorf("%w: status %d for %s", ErrBlocked, resp.StatusCode, pageURL)
	}

	tmp, err := os.CreateTemp("", "tiktok_"+label+"_*.html")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write page body: %w", err)
	}

	s.log.Debug("page downloaded",
		zap.String("url", pageURL),
		zap.Int64("bytes", n),
		zap.String("file", tmp.Name()))

	return tmp.Name(), cleanup, nil
}

// fetchDocumentBytes downloads a page and returns its body, releasing
// the temporary file before returning.
func (s *Scraper) fetchDocumentBytes(ctx context.Context, pageURL, label string) ([]byte, error) {
	path, cleanup, err := s.fetchDocument(ctx, pageURL, label)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return os.ReadFile(path)
}
