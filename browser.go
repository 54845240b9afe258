//go:build !unittest

package tiktok

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// InitBrowser launches a headless Chrome instance with stealth mode. The
// browser stays open in the background and is used for two things only:
// signing API URLs and fetching signed API endpoints with the browser's
// own TLS fingerprint. The page pipeline never needs it.
func (s *Scraper) InitBrowser() error {
	return s.launchBrowser()
}

func (s *Scraper) launchBrowser() error {
	l := launcher.New().Headless(true)
	if s.proxy != "" {
		l = l.Proxy(s.proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return fmt.Errorf("create stealth page: %w", err)
	}

	s.browser = browser
	s.page = page

	s.setupResourceBlocking()

	if err := s.page.Navigate(s.baseURL); err != nil {
		return fmt.Errorf("navigate to tiktok: %w", err)
	}
	if err := s.page.WaitStable(2 * time.Second); err != nil {
		return fmt.Errorf("wait for page stable: %w", err)
	}

	// Cache that signing is ready after initial page load, and route
	// future API URLs through browser signing.
	s.signingReady.Store(true)
	s.signFunc = s.signURL

	// Sync browser cookies (including fresh msToken) to the HTTP client.
	return s.syncCookiesFromBrowser()
}

func (s *Scraper) setupResourceBlocking() {
	router := s.browser.HijackRequests()
	blocked := []string{"*.css", "*.png", "*.jpg", "*.jpeg", "*.mp4", "*.woff*", "*.svg", "*analytics*"}
	for _, pattern := range blocked {
		router.MustAdd(pattern, func(ctx *rod.Hijack) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
	}
	go router.Run()
}

// signURL calls TikTok's frontierSign JS to generate the X-Bogus
// signature and appends the resulting params to the original URL.
// Caller must hold browserMu.
func (s *Scraper) signURL(rawURL string) (string, error) {
	if s.page == nil {
		return "", ErrBrowserNotReady
	}

	if err := s.ensureSigningReady(); err != nil {
		return "", fmt.Errorf("ensure signing ready: %w", err)
	}

	// Timeout the JS eval to avoid hanging forever.
	page := s.page.Timeout(5 * time.Second)

	result, err := page.Eval(`(url) => {
		if (typeof window.byted_acrawler === 'undefined') {
			throw new Error('signing function not available');
		}
		const params = window.byted_acrawler.frontierSign(url);
		if (typeof params === 'string') {
			return params;
		}
		const u = new URL(url);
		for (const [k, v] of Object.entries(params)) {
			u.searchParams.set(k, v);
		}
		return u.toString();
	}`, rawURL)
	if err != nil {
		// Mark signing as not ready so the next call reloads the page.
		s.signingReady.Store(false)
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	return result.Value.String(), nil
}

// browserFetch signs a URL and fetches it inside the browser via JS
// fetch(). The request then carries the browser's TLS fingerprint,
// cookies and session, avoiding detection from fingerprint mismatches
// between net/http and the page that signed the URL.
// Caller must hold browserMu.
func (s *Scraper) browserFetch(rawURL string) ([]byte, error) {
	if s.page == nil {
		return nil, ErrBrowserNotReady
	}

	if err := s.ensureSigningReady(); err != nil {
		return nil, fmt.Errorf("ensure signing ready: %w", err)
	}

	page := s.page.Timeout(15 * time.Second)

	result, err := page.Eval(`async (url) => {
		if (typeof window.byted_acrawler === 'undefined') {
			throw new Error('signing function not available');
		}
		const params = window.byted_acrawler.frontierSign(url);
		let signedUrl;
		if (typeof params === 'string') {
			signedUrl = params;
		} else {
			const u = new URL(url);
			for (const [k, v] of Object.entries(params)) {
				u.searchParams.set(k, v);
			}
			signedUrl = u.toString();
		}
		const resp = await fetch(signedUrl, {
			method: 'GET',
			credentials: 'include',
			headers: {'Accept': 'application/json, text/plain, */*'},
		});
		return await resp.text();
	}`, rawURL)
	if err != nil {
		s.signingReady.Store(false)
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	body := result.Value.Str()
	s.log.Debug("browser fetch", zap.String("url", rawURL), zap.Int("bytes", len(body)))
	if body == "" {
		return nil, nil
	}
	return []byte(body), nil
}

// ensureSigningReady checks if the signing JS is available, reloading
// only if a previous call failed (cached via atomic bool).
func (s *Scraper) ensureSigningReady() error {
	if s.signingReady.Load() {
		return nil
	}

	result, err := s.page.Timeout(3 * time.Second).Eval(`() => typeof window.byted_acrawler !== 'undefined'`)
	if err != nil || !result.Value.Bool() {
		if err := s.page.Navigate(s.baseURL); err != nil {
			return fmt.Errorf("reload for signing: %w", err)
		}
		if err := s.page.WaitStable(2 * time.Second); err != nil {
			return fmt.Errorf("wait after reload: %w", err)
		}
	}

	s.signingReady.Store(true)
	return nil
}

// syncCookiesFromBrowser copies browser cookies to the HTTP client's jar.
func (s *Scraper) syncCookiesFromBrowser() error {
	cookies, err := s.page.Cookies([]string{"https://www.tiktok.com"})
	if err != nil {
		return fmt.Errorf("get browser cookies: %w", err)
	}

	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		httpCookies = append(httpCookies, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: time.Unix(int64(c.Expires), 0),
		})
	}

	s.SetCookies(httpCookies)
	s.hasCookie = true
	return nil
}

// SessionWithCookies loads saved session cookies and initializes the
// browser for signing with that session's context.
func (s *Scraper) SessionWithCookies(path string) error {
	if err := s.LoadCookies(path); err != nil {
		return fmt.Errorf("session with cookies: %w", err)
	}

	if s.browser == nil {
		if err := s.launchBrowser(); err != nil {
			return fmt.Errorf("init browser for signing: %w", err)
		}
	}

	for _, c := range s.GetCookies() {
		if err := s.page.SetCookies([]*proto.NetworkCookieParam{{
			Name:   c.Name,
			Value:  c.Value,
			Domain: ".tiktok.com",
			Path:   "/",
		}}); err != nil {
			return fmt.Errorf("set browser cookie %q: %w", c.Name, err)
		}
	}

	return nil
}

func (s *Scraper) closeBrowser() error {
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			return fmt.Errorf("close page: %w", err)
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			return fmt.Errorf("close browser: %w", err)
		}
		s.browser = nil
	}
	return nil
}
