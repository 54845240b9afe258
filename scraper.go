package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
	"golang.org/x/net/proxy"

	"github.com/phamanhtai263/bulk-mail-mvp/resultstore"
)

var tiktokURL, _ = url.Parse("https://www.tiktok.com")

// Scraper drives the whole audience-extraction pipeline: profile page
// download and parsing, target-video selection, comment harvesting and
// commenter stats enrichment. Page fetches are pure HTTP; the headless
// browser is optional and used only to sign API URLs and to proxy API
// calls through the browser's fingerprint.
type Scraper struct {
	client    *http.Client
	cfg       Config
	proxy     string
	log       *zap.Logger
	baseURL   string // defaults to "https://www.tiktok.com"
	store     resultstore.Store
	hasCookie bool

	// Browser for URL signing only.
	browser      *rod.Browser
	page         *rod.Page
	browserMu    sync.Mutex
	signingReady atomic.Bool

	// signFunc signs a raw API URL. Identity until InitBrowser swaps in
	// browser signing. Replaceable for testing.
	signFunc func(rawURL string) (string, error)

	// Per-operation rate limiting.
	// API: ~30/min → 2s min. Profile pages: ~60/min → 1s min.
	apiDelay     time.Duration
	profileDelay time.Duration
	lastAPI      time.Time
	lastProfile  time.Time
	apiMu        sync.Mutex
	profileMu    sync.Mutex

	// Session token.
	msToken string
}

// defaultTransport returns an http.Transport optimized for scraping:
// connection pooling, keep-alive, and TLS handshake caching.
func defaultTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
}

// New creates a Scraper with the default configuration. The browser is
// not launched until InitBrowser is called; until then API URLs go out
// unsigned, which is how the service ran for most of its life.
func New() *Scraper {
	jar, _ := cookiejar.New(nil)
	s := &Scraper{
		client: &http.Client{
			Jar:       jar,
			Timeout:   DefaultConfig().RequestTimeout,
			Transport: defaultTransport(),
		},
		cfg:          DefaultConfig(),
		log:          zap.NewNop(),
		baseURL:      "https://www.tiktok.com",
		apiDelay:     2 * time.Second,
		profileDelay: time.Second,
	}
	s.signFunc = func(rawURL string) (string, error) { return rawURL, nil }
	return s
}

// WithConfig replaces the pipeline limits. Zero-valued fields are filled
// from DefaultConfig so callers can override just the caps they care about.
func (s *Scraper) WithConfig(cfg Config) *Scraper {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.CommentPageSize == 0 {
		cfg.CommentPageSize = def.CommentPageSize
	}
	if cfg.MaxCommentPages == 0 {
		cfg.MaxCommentPages = def.MaxCommentPages
	}
	if cfg.EnrichLimit == 0 {
		cfg.EnrichLimit = def.EnrichLimit
	}
	if cfg.ResultTTL == 0 {
		cfg.ResultTTL = def.ResultTTL
	}
	s.cfg = cfg
	s.client.Timeout = cfg.RequestTimeout
	return s
}

// WithLogger sets the structured logger. The default is a nop logger.
func (s *Scraper) WithLogger(log *zap.Logger) *Scraper {
	s.log = log
	return s
}

// WithResultStore sets the store used to hand off async enrichment
// results. Without one, overflow commenters are simply not enriched.
func (s *Scraper) WithResultStore(store resultstore.Store) *Scraper {
	s.store = store
	return s
}

// WithAPIDelay sets the minimum delay between listing API requests.
func (s *Scraper) WithAPIDelay(d time.Duration) *Scraper {
	s.apiDelay = d
	return s
}

// WithProfileDelay sets the minimum delay between profile page fetches.
func (s *Scraper) WithProfileDelay(d time.Duration) *Scraper {
	s.profileDelay = d
	return s
}

// SetProxy configures an HTTP/HTTPS or SOCKS5 proxy for the HTTP client.
// Connection pooling and keep-alive settings are preserved.
func (s *Scraper) SetProxy(proxyAddr string) error {
	if proxyAddr == "" {
		s.client.Transport = defaultTransport()
		s.proxy = ""
		return nil
	}

	u, err := url.Parse(proxyAddr)
	if err != nil {
		return fmt.Errorf("parse proxy url: %w", err)
	}

	base := defaultTransport()

	switch u.Scheme {
	case "http", "https":
		base.Proxy = http.ProxyURL(u)
		s.client.Transport = base
	case "socks5":
		var auth *proxy.Auth
		if u.User != nil {
			pass, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return fmt.Errorf("socks5 proxy: %w", err)
		}
		dc, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("socks5: context dialer not supported")
		}
		base.DialContext = dc.DialContext
		s.client.Transport = base
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}

	s.proxy = proxyAddr
	return nil
}

// doRequest builds and executes an HTTP request with standard TikTok API
// headers. No built-in rate limiting; callers use waitForAPI or
// waitForProfile.
func (s *Scraper) doRequest(ctx context.Context, method, urlStr string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", acceptJSON)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://www.tiktok.com/")
	req.Header.Set("Origin", "https://www.tiktok.com")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, ErrRateLimited
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	}

	return resp, nil
}

// fetchAPI retrieves a JSON listing endpoint. When the signing browser
// is up the call goes through the browser's own fetch so the TLS
// fingerprint matches the signature; otherwise the (possibly unsigned)
// URL is fetched with the plain HTTP client.
func (s *Scraper) fetchAPI(ctx context.Context, rawURL string) ([]byte, error) {
	s.waitForAPI()

	s.browserMu.Lock()
	if s.page != nil {
		body, err := s.browserFetch(rawURL)
		s.browserMu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("browser fetch: %w", err)
		}
		return body, nil
	}
	signedURL, err := s.signFunc(rawURL)
	s.browserMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("sign api url: %w", err)
	}

	resp, err := s.doRequest(ctx, "GET", signedURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read api response: %w", err)
	}
	return body, nil
}

// waitForAPI enforces rate limiting for listing API calls.
func (s *Scraper) waitForAPI() {
	s.apiMu.Lock()
	defer s.apiMu.Unlock()
	s.throttle(&s.lastAPI, s.apiDelay)
}

// waitForProfile enforces rate limiting for profile page downloads.
func (s *Scraper) waitForProfile() {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()
	s.throttle(&s.lastProfile, s.profileDelay)
}

// throttle sleeps if needed to enforce min delay + jitter between requests.
func (s *Scraper) throttle(lastReq *time.Time, delay time.Duration) {
	if delay == 0 {
		return
	}
	elapsed := time.Since(*lastReq)
	jitter := time.Duration(rand.Int64N(int64(500 * time.Millisecond)))
	wait := delay + jitter - elapsed
	if wait > 0 {
		time.Sleep(wait)
	}
	*lastReq = time.Now()
}

// GetCookies returns the current session cookies for tiktok.com.
func (s *Scraper) GetCookies() []*http.Cookie {
	return s.client.Jar.Cookies(tiktokURL)
}

// SetCookies sets session cookies and extracts the msToken.
func (s *Scraper) SetCookies(cookies []*http.Cookie) {
	s.client.Jar.SetCookies(tiktokURL, cookies)
	for _, c := range cookies {
		if c.Name == "msToken" {
			s.msToken = c.Value
		}
	}
}

// SaveCookies writes session cookies to a JSON file.
func (s *Scraper) SaveCookies(path string) error {
	data, err := json.Marshal(s.GetCookies())
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// LoadCookies reads cookies from a JSON file and sets them on the client.
func (s *Scraper) LoadCookies(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read cookies file: %w", err)
	}
	var cookies []*http.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return fmt.Errorf("unmarshal cookies: %w", err)
	}
	s.SetCookies(cookies)
	s.hasCookie = true
	return nil
}

// HasSession reports whether saved session cookies were loaded.
func (s *Scraper) HasSession() bool {
	return s.hasCookie
}

// Close releases all resources including the headless browser if running.
func (s *Scraper) Close() error {
	return s.closeBrowser()
}
