package tiktok

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var (
	reEmail    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	reLinktree = regexp.MustCompile(`linktr\.ee/[A-Za-z0-9._\-]+`)
)

// userStats is the per-commenter extraction result: the three counts
// plus the raw biography text the contact fields are mined from.
type userStats struct {
	Followers int
	Following int
	Likes     int
	Bio       string
}

// enrichCommenters fetches stats for at most cfg.EnrichLimit commenters,
// sequentially. A failed fetch leaves that commenter's stats nil and
// never aborts the batch; commenters past the cap pass through untouched.
func (s *Scraper) enrichCommenters(ctx context.Context, commenters []Commenter) []Commenter {
	limit := min(s.cfg.EnrichLimit, len(commenters))

	for i := 0; i < limit; i++ {
		c := &commenters[i]
		stats, err := s.fetchUserStats(ctx, c.Identifier, c.ProfileURL)
		if err != nil {
			s.log.Warn("commenter stats fetch failed",
				zap.String("commenter", c.Identifier),
				zap.Error(err))
			continue
		}
		c.Followers = intPtr(stats.Followers)
		c.Following = intPtr(stats.Following)
		c.Likes = intPtr(stats.Likes)
		c.Email = firstEmail(stats.Bio)
		c.Linktree = firstLinktree(stats.Bio)
	}

	return commenters
}

// fetchUserStats downloads a commenter's profile page and extracts the
// count triple and biography. Two tiers: the JSON rehydration script
// first, then raw regexes over the document.
func (s *Scraper) fetchUserStats(ctx context.Context, username, profileURL string) (userStats, error) {
	html, err := s.fetchDocumentBytes(ctx, profileURL, username)
	if err != nil {
		return userStats{}, err
	}

	if stats, ok := statsFromUniversalData(html); ok {
		return stats, nil
	}
	if stats, ok := statsFromRegex(html); ok {
		return stats, nil
	}
	return userStats{}, fmt.Errorf("%w: no stats for %s", ErrNoProfileData, username)
}

// statsFromUniversalData reads the counts out of the embedded
// rehydration payload when the page carries one.
func statsFromUniversalData(html []byte) (userStats, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return userStats{}, false
	}

	data, ok := findUniversalData(doc)
	if !ok {
		return userStats{}, false
	}
	info := data.DefaultScope.UserDetail.UserInfo
	if info.User.UniqueID == "" && info.Stats == (rawUserStats{}) {
		return userStats{}, false
	}

	likes := info.Stats.HeartCount
	if likes == 0 {
		likes = info.Stats.Heart
	}
	return userStats{
		Followers: info.Stats.FollowerCount,
		Following: info.Stats.FollowingCount,
		Likes:     likes,
		Bio:       info.User.Signature,
	}, true
}

// statsFromRegex is the degraded tier, matching the same fields straight
// off the raw document. At least one count pattern must match.
func statsFromRegex(html []byte) (userStats, bool) {
	if !reFollowerCount.Match(html) && !reFollowingCount.Match(html) && !reHeartCount.Match(html) {
		return userStats{}, false
	}
	return userStats{
		Followers: matchInt(reFollowerCount, html),
		Following: matchInt(reFollowingCount, html),
		Likes:     matchInt(reHeartCount, html),
		Bio:       matchString(reSignature, html),
	}, true
}

// firstEmail returns the first email address found in free text, or "".
func firstEmail(text string) string {
	return reEmail.FindString(text)
}

// firstLinktree returns the first linktree handle URL found in free text.
func firstLinktree(text string) string {
	return reLinktree.FindString(unescapeJSONSlashes(text))
}

func intPtr(n int) *int { return &n }
