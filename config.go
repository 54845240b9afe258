package tiktok

import "time"

const (
	// documentCookie is a fixed synthetic-session cookie pair sent with
	// every page download. TikTok serves richer SSR payloads when the
	// client looks like a returning visitor.
	documentCookie = "tt_webid_v2=123456789; tiktok_webapp_theme=light"

	// appID is the web app id TikTok's own frontend sends on API calls.
	appID = "1988"

	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptJSON = "application/json, text/plain, */*"
)

// Config holds the tunable limits of the scraping pipeline. It is copied
// into the Scraper at construction; mutating it afterwards has no effect.
type Config struct {
	// UserAgent is sent on every request, page and API alike.
	UserAgent string

	// RequestTimeout bounds each individual fetch. Exceeding it is a
	// normal failure, not a fatal condition.
	RequestTimeout time.Duration

	// CommentPageSize is the count parameter of the comment list API.
	CommentPageSize int

	// MaxCommentPages caps the number of comment API calls per harvest.
	MaxCommentPages int

	// EnrichLimit caps how many harvested commenters get their stats
	// fetched synchronously. Commenters past the limit are handed to the
	// async job when a result store is configured.
	EnrichLimit int

	// ResultTTL is the expiry of async enrichment results in the store.
	ResultTTL time.Duration
}

// DefaultConfig returns the production limits. Caps have varied across
// deployments (5 vs 10 pages, 30 vs 100 enriched commenters), so tests
// and callers override them rather than relying on constants.
func DefaultConfig() Config {
	return Config{
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		RequestTimeout:  30 * time.Second,
		CommentPageSize: 20,
		MaxCommentPages: 10,
		EnrichLimit:     30,
		ResultTTL:       time.Hour,
	}
}
