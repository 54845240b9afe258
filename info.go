package tiktok

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetInfo is the synchronous entry point of the pipeline: download the
// profile page, extract the profile, pick the target post, harvest its
// commenters and enrich the first batch of them. It never panics or
// returns an error; every failure mode collapses into a Result with
// Success=false, and missing videos/comments are success with empty
// collections.
func (s *Scraper) GetInfo(ctx context.Context, pageURL string) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("get info recovered", zap.Any("panic", r), zap.String("url", pageURL))
			res = &Result{Error: fmt.Sprintf("unexpected error: %v", r)}
		}
	}()

	username := extractUsernameFromURL(pageURL)
	s.log.Info("downloading profile page", zap.String("username", username))

	path, cleanup, err := s.fetchDocument(ctx, pageURL, username)
	if err != nil {
		s.log.Error("profile page download failed", zap.String("url", pageURL), zap.Error(err))
		return &Result{Error: "could not download the profile page, please try again"}
	}
	defer cleanup()

	html, err := os.ReadFile(path)
	if err != nil {
		return &Result{Error: fmt.Sprintf("read downloaded page: %v", err)}
	}

	profile, err := s.extractProfile(html, username)
	if err != nil {
		return &Result{Error: err.Error()}
	}

	res = &Result{
		Success:     true,
		URL:         pageURL,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		Bio:         profile.Bio,
		Followers:   profile.Followers,
		Following:   profile.Following,
		Likes:       profile.Likes,
		VideoCount:  profile.VideoCount,
	}

	target := s.selectTargetVideo(ctx, username, profile.SecUID)
	if target.ID == "" {
		return res
	}
	res.TargetPostURL = target.URL
	res.TargetReason = target.Reason

	commenters := s.harvestComments(ctx, target.ID, username)
	res.Commenters = s.enrichCommenters(ctx, commenters)
	res.StatsKey = s.scheduleOverflow(res.Commenters)

	return res
}

// scheduleOverflow hands commenters beyond the sync enrichment cap to
// the async job, returning the correlation key, or "" when there is
// nothing pending or no store to publish to.
func (s *Scraper) scheduleOverflow(commenters []Commenter) string {
	if s.store == nil || len(commenters) <= s.cfg.EnrichLimit {
		return ""
	}

	pending := make([]PendingCommenter, 0, len(commenters)-s.cfg.EnrichLimit)
	for i := s.cfg.EnrichLimit; i < len(commenters); i++ {
		pending = append(pending, PendingCommenter{
			Username: commenters[i].Identifier,
			URL:      commenters[i].ProfileURL,
			Index:    i,
		})
	}

	key := uuid.NewString()
	s.ScheduleStatsEnrichment(pending, key)
	s.log.Info("scheduled overflow enrichment",
		zap.String("key", key), zap.Int("pending", len(pending)))
	return key
}

// ContactPolicy controls the caller-boundary post-processing of
// harvested commenters. Two policies shipped in different revisions of
// the product, so the choice stays with the caller.
type ContactPolicy int

const (
	// PolicyKeepAll keeps every commenter, email holders first.
	PolicyKeepAll ContactPolicy = iota
	// PolicyRequireContact drops commenters with neither an email nor a
	// linktree, then orders email holders first.
	PolicyRequireContact
)

// ApplyContactPolicy returns a new slice ordered (and possibly filtered)
// per the policy. Ordering is stable within each group.
func ApplyContactPolicy(commenters []Commenter, policy ContactPolicy) []Commenter {
	out := make([]Commenter, 0, len(commenters))
	for _, c := range commenters {
		if policy == PolicyRequireContact && c.Email == "" && c.Linktree == "" {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Email != "" && out[j].Email == ""
	})
	return out
}
