package tiktok

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	universalDataMarker = "__UNIVERSAL_DATA_FOR_REHYDRATION__"
	sigiStateMarker     = "SIGI_STATE"
)

var (
	reUniversalAssign = regexp.MustCompile(`(?s)__UNIVERSAL_DATA_FOR_REHYDRATION__\s*=\s*(\{.+\})\s*;`)
	reSigiWindow      = regexp.MustCompile(`(?s)window\['SIGI_STATE'\]\s*=\s*(\{.+\})\s*;`)
	reSigiAssign      = regexp.MustCompile(`(?s)SIGI_STATE\s*=\s*(\{.+\})\s*;`)

	reFollowerCount  = regexp.MustCompile(`"followerCount"\s*:\s*(\d+)`)
	reFollowingCount = regexp.MustCompile(`"followingCount"\s*:\s*(\d+)`)
	reHeartCount     = regexp.MustCompile(`"heart(?:Count)?"\s*:\s*(\d+)`)
	reVideoCount     = regexp.MustCompile(`"videoCount"\s*:\s*(\d+)`)
	reNickname       = regexp.MustCompile(`"nickname"\s*:\s*"([^"]+)"`)
	reAvatarLarger   = regexp.MustCompile(`"avatarLarger"\s*:\s*"([^"]+)"`)
	reSignature      = regexp.MustCompile(`"signature"\s*:\s*"([^"]+)"`)
	reSecUID         = regexp.MustCompile(`"secUid"\s*:\s*"([^"]+)"`)
)

// profileStrategy is one way of pulling a Profile out of a raw document.
// Strategies swallow their own parse errors and report ok=false instead.
type profileStrategy struct {
	name string
	fn   func(doc *goquery.Document, html []byte, username string) (Profile, bool)
}

var profileStrategies = []profileStrategy{
	{"universal_data", extractFromUniversalData},
	{"sigi_state", extractFromSigiState},
	{"regex_fallback", extractFromRegex},
}

// extractProfile runs the strategy chain in reliability order and
// returns the first Profile produced. All strategies exhausting is the
// only hard failure this parser knows.
func (s *Scraper) extractProfile(html []byte, username string) (Profile, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		// A document goquery cannot read can still match raw regexes.
		doc = nil
	}

	for _, strat := range profileStrategies {
		if doc == nil && strat.name != "regex_fallback" {
			continue
		}
		if p, ok := strat.fn(doc, html, username); ok {
			s.log.Info("profile parsed",
				zap.String("strategy", strat.name),
				zap.String("username", username),
				zap.Int("followers", p.Followers))
			return p, nil
		}
	}

	preview := html
	if len(preview) > 300 {
		preview = preview[:300]
	}
	s.log.Warn("no profile data in document",
		zap.String("username", username),
		zap.ByteString("preview", preview))
	return Profile{}, fmt.Errorf("%w: %s", ErrNoProfileData, username)
}

// findUniversalData locates and parses the rehydration payload in either
// of its embedding forms: a script tagged with the marker id whose body
// is pure JSON, or an inline script assigning the payload to a global.
func findUniversalData(doc *goquery.Document) (universalData, bool) {
	var data universalData
	var found bool

	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		content := sel.Text()

		var jsonStr string
		switch {
		case sel.AttrOr("id", "") == universalDataMarker:
			jsonStr = content
		case strings.Contains(content, universalDataMarker):
			m := reUniversalAssign.FindStringSubmatch(content)
			if m == nil {
				return true
			}
			jsonStr = m[1]
		default:
			return true
		}

		var d universalData
		if err := json.Unmarshal([]byte(jsonStr), &d); err != nil {
			return true
		}
		data = d
		found = true
		return false
	})

	return data, found
}

// extractFromUniversalData handles the current embedding convention.
func extractFromUniversalData(doc *goquery.Document, _ []byte, username string) (Profile, bool) {
	data, ok := findUniversalData(doc)
	if !ok {
		return Profile{}, false
	}
	info := data.DefaultScope.UserDetail.UserInfo
	if info.User.UniqueID == "" && info.User.Nickname == "" {
		return Profile{}, false
	}
	return profileFromUserInfo(username, info), true
}

// extractFromSigiState handles the legacy SIGI_STATE embedding: a global
// assignment whose object literal is recovered with a greedy brace match
// before parsing.
func extractFromSigiState(doc *goquery.Document, _ []byte, username string) (Profile, bool) {
	var out Profile
	var found bool

	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		content := sel.Text()
		if !strings.Contains(content, sigiStateMarker) {
			return true
		}

		m := reSigiWindow.FindStringSubmatch(content)
		if m == nil {
			m = reSigiAssign.FindStringSubmatch(content)
		}
		if m == nil {
			return true
		}

		var state sigiState
		if err := json.Unmarshal([]byte(m[1]), &state); err != nil {
			return true
		}

		u, ok := firstSigiUser(state.UserModule.Users)
		if !ok {
			return true
		}
		out = profileFromSigiUser(username, u)
		found = true
		return false
	})

	return out, found
}

// firstSigiUser decodes the first entry of the users object in document
// order. Unmarshalling into a Go map would pick a random entry when the
// payload carries more than one user.
func firstSigiUser(raw json.RawMessage) (sigiUser, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return sigiUser{}, false
	}
	if !dec.More() {
		return sigiUser{}, false
	}
	if _, err := dec.Token(); err != nil {
		return sigiUser{}, false
	}

	var u sigiUser
	if err := dec.Decode(&u); err != nil {
		return sigiUser{}, false
	}
	return u, true
}

// extractFromRegex scans the raw document for known field patterns, each
// independent and optional. It only claims success when at least one of
// the three core counts is positive; all-zero counts here would mean
// fabricating data from a blocked or empty page.
func extractFromRegex(_ *goquery.Document, html []byte, username string) (Profile, bool) {
	p := Profile{
		Username:    username,
		Followers:   matchInt(reFollowerCount, html),
		Following:   matchInt(reFollowingCount, html),
		Likes:       matchInt(reHeartCount, html),
		VideoCount:  matchInt(reVideoCount, html),
		DisplayName: matchString(reNickname, html),
		AvatarURL:   unescapeJSONSlashes(matchString(reAvatarLarger, html)),
		Bio:         matchString(reSignature, html),
		SecUID:      matchString(reSecUID, html),
	}

	if p.Followers > 0 || p.Following > 0 || p.Likes > 0 {
		return p, true
	}
	return Profile{}, false
}

func matchInt(re *regexp.Regexp, html []byte) int {
	m := re.FindSubmatch(html)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0
	}
	return n
}

func matchString(re *regexp.Regexp, html []byte) string {
	m := re.FindSubmatch(html)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// unescapeJSONSlashes fixes URLs lifted straight out of embedded JSON,
// where slashes arrive as \u002F or \/ escape sequences.
func unescapeJSONSlashes(s string) string {
	s = strings.ReplaceAll(s, `\u002F`, "/")
	return strings.ReplaceAll(s, `\/`, "/")
}

var reUsername = regexp.MustCompile(`@([\w.-]+)`)

// extractUsernameFromURL pulls the @handle out of a profile URL.
func extractUsernameFromURL(rawURL string) string {
	m := reUsername.FindStringSubmatch(rawURL)
	if m == nil {
		return "unknown"
	}
	return m[1]
}
