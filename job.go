package tiktok

import (
	"context"
	"strconv"

	"go.uber.org/zap"
)

// ScheduleStatsEnrichment runs stats enrichment for a precomputed
// pending list out-of-band and publishes the outcome to the result store
// under key. Fire-and-forget: the caller polls ReadResult with the same
// key. Entries are keyed by each commenter's original index so partial
// coverage stays addressable.
func (s *Scraper) ScheduleStatsEnrichment(pending []PendingCommenter, key string) {
	go s.runEnrichmentJob(context.Background(), pending, key)
}

func (s *Scraper) runEnrichmentJob(ctx context.Context, pending []PendingCommenter, key string) {
	results := make(map[string]Stats, len(pending))

	for i, p := range pending {
		s.log.Info("enrichment job progress",
			zap.Int("n", i+1),
			zap.Int("total", len(pending)),
			zap.String("username", p.Username))

		var entry Stats
		stats, err := s.fetchUserStats(ctx, p.Username, p.URL)
		if err != nil {
			s.log.Warn("enrichment job fetch failed",
				zap.String("username", p.Username), zap.Error(err))
		} else {
			entry = Stats{
				Followers: intPtr(stats.Followers),
				Following: intPtr(stats.Following),
				Likes:     intPtr(stats.Likes),
			}
		}
		results[strconv.Itoa(p.Index)] = entry
	}

	if s.store == nil {
		s.log.Warn("enrichment job finished with no result store", zap.String("key", key))
		return
	}
	if err := s.store.Write(ctx, key, EnrichmentResult{Done: true, Stats: results}, s.cfg.ResultTTL); err != nil {
		s.log.Error("enrichment job store write failed",
			zap.String("key", key), zap.Error(err))
		return
	}
	s.log.Info("enrichment job done",
		zap.String("key", key), zap.Int("stored", len(results)))
}

// ReadResult polls the result store for a previously scheduled job. The
// second return is false while the job has not completed (or the entry
// expired).
func (s *Scraper) ReadResult(ctx context.Context, key string) (EnrichmentResult, bool, error) {
	if s.store == nil {
		return EnrichmentResult{}, false, ErrNoResultStore
	}
	var res EnrichmentResult
	ok, err := s.store.Read(ctx, key, &res)
	if err != nil || !ok {
		return EnrichmentResult{}, false, err
	}
	return res, true, nil
}
