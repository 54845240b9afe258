package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// harvestComments walks the comment list API for a post until
// exhaustion or the page cap. It never fails: any fetch or decode error
// just stops collection and whatever was gathered so far is returned,
// deduplicated by commenter id in first-occurrence order.
func (s *Scraper) harvestComments(ctx context.Context, videoID, username string) []Commenter {
	var collected []Commenter
	cursor := 0

	for page := 0; page < s.cfg.MaxCommentPages; page++ {
		resp, err := s.fetchCommentPage(ctx, videoID, cursor)
		if err != nil {
			s.log.Warn("comment page fetch failed, keeping partial harvest",
				zap.String("video_id", videoID),
				zap.Int("page", page),
				zap.Int("collected", len(collected)),
				zap.Error(err))
			break
		}

		for _, c := range resp.Comments {
			uid := c.User.UniqueID
			if uid == "" {
				continue
			}
			collected = append(collected, Commenter{
				Identifier:  uid,
				ProfileURL:  fmt.Sprintf("%s/@%s", s.baseURL, uid),
				DisplayName: c.User.Nickname,
			})
		}

		if resp.HasMore == 0 || len(resp.Comments) == 0 {
			break
		}
		cursor = resp.Cursor
	}

	deduped := dedupeCommenters(collected)
	s.log.Info("comments harvested",
		zap.String("video_id", videoID),
		zap.String("username", username),
		zap.Int("raw", len(collected)),
		zap.Int("unique", len(deduped)))
	return deduped
}

// fetchCommentPage retrieves one page of the comment list API.
func (s *Scraper) fetchCommentPage(ctx context.Context, videoID string, cursor int) (*commentListResponse, error) {
	rawURL := fmt.Sprintf(
		"%s/api/comment/list/?aweme_id=%s&count=%d&cursor=%d&aid=%s",
		s.baseURL, url.QueryEscape(videoID), s.cfg.CommentPageSize, cursor, appID,
	)

	body, err := s.fetchAPI(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var result commentListResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decode comment list: %v", ErrInvalidResponse, err)
	}
	return &result, nil
}

// dedupeCommenters keeps the first occurrence of each identifier.
func dedupeCommenters(in []Commenter) []Commenter {
	seen := make(map[string]bool, len(in))
	out := make([]Commenter, 0, len(in))
	for _, c := range in {
		if seen[c.Identifier] {
			continue
		}
		seen[c.Identifier] = true
		out = append(out, c)
	}
	return out
}
