package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

// Selection reasons, recorded for observability only.
const (
	reasonPinned         = "pinned"
	reasonMostViewed     = "most_viewed"
	reasonLatestFallback = "latest_fallback"
)

// targetVideo is the post chosen for comment harvesting. A zero ID means
// no post could be found, which callers treat as "no commenters", not as
// an error.
type targetVideo struct {
	ID     string
	URL    string
	Reason string
}

var reEmbeddedVideoID = regexp.MustCompile(`video(?:\\)?/(\d+)`)

// selectTargetVideo picks the single post to analyze for a creator:
// pinned beats most-viewed beats the newest id scraped off the embed
// page. Every failure along the way degrades to the next branch.
func (s *Scraper) selectTargetVideo(ctx context.Context, username, secUID string) targetVideo {
	if secUID != "" {
		candidates, err := s.fetchItemList(ctx, secUID)
		if err != nil {
			s.log.Warn("item list unavailable, falling back to embed page",
				zap.String("username", username), zap.Error(err))
		} else if len(candidates) > 0 {
			return s.pickCandidate(username, candidates)
		}
	}

	return s.latestFromEmbedPage(ctx, username)
}

// fetchItemList retrieves a single page of the creator's video list.
func (s *Scraper) fetchItemList(ctx context.Context, secUID string) ([]VideoCandidate, error) {
	rawURL := fmt.Sprintf(
		"%s/api/post/item_list/?secUid=%s&count=35&cursor=0&aid=%s",
		s.baseURL, url.QueryEscape(secUID), appID,
	)

	body, err := s.fetchAPI(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var result itemListResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decode item list: %v", ErrInvalidResponse, err)
	}

	candidates := make([]VideoCandidate, 0, len(result.ItemList))
	for _, item := range result.ItemList {
		if item.ID == "" {
			continue
		}
		candidates = append(candidates, VideoCandidate{
			ID:        item.ID,
			Pinned:    item.IsTop != 0,
			PlayCount: item.Stats.PlayCount,
		})
	}
	return candidates, nil
}

// pickCandidate applies the selection policy to a non-empty candidate
// list: first pinned entry, else the first entry holding the maximum
// play count.
func (s *Scraper) pickCandidate(username string, candidates []VideoCandidate) targetVideo {
	for _, c := range candidates {
		if c.Pinned {
			return s.chose(username, c.ID, reasonPinned)
		}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.PlayCount > best.PlayCount {
			best = c
		}
	}
	return s.chose(username, best.ID, reasonMostViewed)
}

// latestFromEmbedPage scrapes the embeddable profile variant for video
// ids and treats the numerically largest as the most recent post. These
// candidates carry no view counts.
func (s *Scraper) latestFromEmbedPage(ctx context.Context, username string) targetVideo {
	embedURL := fmt.Sprintf("%s/embed/@%s", s.baseURL, url.PathEscape(username))
	html, err := s.fetchDocumentBytes(ctx, embedURL, username+"_embed")
	if err != nil {
		s.log.Warn("embed page fetch failed", zap.String("username", username), zap.Error(err))
		return targetVideo{}
	}

	seen := map[uint64]bool{}
	var ids []uint64
	for _, m := range reEmbeddedVideoID.FindAllSubmatch(html, -1) {
		id, err := strconv.ParseUint(string(m[1]), 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return targetVideo{}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return s.chose(username, strconv.FormatUint(ids[0], 10), reasonLatestFallback)
}

func (s *Scraper) chose(username, videoID, reason string) targetVideo {
	t := targetVideo{
		ID:     videoID,
		URL:    fmt.Sprintf("%s/@%s/video/%s", s.baseURL, username, videoID),
		Reason: reason,
	}
	s.log.Info("target video selected",
		zap.String("username", username),
		zap.String("video_id", videoID),
		zap.String("reason", reason))
	return t
}
