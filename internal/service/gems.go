package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danylo/tubegems/internal/domain"
	"github.com/danylo/tubegems/internal/logger"
)

// EnrichLimit caps how many ranked videos are enriched and persisted per run.
// Enrichment is the expensive stage (transcript fetch + LLM call), so the cap
// is fixed here rather than tied to the caller's max_results.
const EnrichLimit = 10

// ErrEmptyQuery is returned when a search request carries no query text.
// Handlers map it to a client error; no external calls are made.
var ErrEmptyQuery = errors.New("query must not be empty")

// Catalog is the video platform boundary: search plus batched stats lookups.
// Missing ids are absent from the stats maps, never an error.
type Catalog interface {
	Search(ctx context.Context, query string, maxResults int, publishedAfter string) ([]domain.Candidate, error)
	VideoStats(ctx context.Context, ids []string) (map[string]domain.VideoStats, error)
	ChannelStats(ctx context.Context, ids []string) (map[string]domain.ChannelStats, error)
}

// TranscriptFetcher retrieves a transcript as plain text. Implementations
// collapse every failure to an empty string.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) string
}

// InsightGenerator produces a short insight from a title and context text.
// Failures come back as an error-prefixed string, not an error value.
type InsightGenerator interface {
	Generate(ctx context.Context, title, contextText string) string
}

// InsightStore is the keyed persistence boundary for enriched records.
type InsightStore interface {
	Upsert(ctx context.Context, rec *domain.VideoInsight) error
	GetByVideoIDs(ctx context.Context, ids []string) ([]domain.VideoInsight, error)
}

// GemsConfig holds configuration for the gems service.
type GemsConfig struct {
	EnrichWorkers     int
	DefaultMaxResults int
}

// GemsService orchestrates the hidden-gem pipeline: search, stats join,
// scoring, ranking, enrichment, and persistence.
type GemsService struct {
	catalog           Catalog
	transcripts       TranscriptFetcher
	generator         InsightGenerator
	store             InsightStore
	logger            *logger.Logger
	enrichWorkers     int
	defaultMaxResults int
}

// NewGemsService creates a new gems service.
// Parameters:
//   - catalog: video catalog client.
//   - transcripts: transcript fetcher.
//   - generator: insight generator.
//   - store: insight record store.
//   - log: logger instance.
//   - cfg: service configuration; nil uses defaults.
// Returns:
//   - *GemsService: initialized service.
func NewGemsService(
	catalog Catalog,
	transcripts TranscriptFetcher,
	generator InsightGenerator,
	store InsightStore,
	log *logger.Logger,
	cfg *GemsConfig,
) *GemsService {
	workers := 4
	defaultMax := 20
	if cfg != nil {
		if cfg.EnrichWorkers > 0 {
			workers = cfg.EnrichWorkers
		}
		if cfg.DefaultMaxResults > 0 {
			defaultMax = cfg.DefaultMaxResults
		}
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &GemsService{
		catalog:           catalog,
		transcripts:       transcripts,
		generator:         generator,
		store:             store,
		logger:            log,
		enrichWorkers:     workers,
		defaultMaxResults: defaultMax,
	}
}

// log returns a logger from context if available, otherwise the default logger.
func (s *GemsService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// SearchRequest represents a hidden-gem search request.
type SearchRequest struct {
	Query          string `json:"query" binding:"required"`
	MaxResults     int    `json:"max_results"`
	PublishedAfter string `json:"published_after,omitempty"`
}

// SearchResponse represents the pipeline output: persisted-record-shaped
// results in rank order.
type SearchResponse struct {
	Results []domain.VideoInsight `json:"results"`
	Total   int                   `json:"total"`
	Query   string                `json:"query"`
}

// FindHiddenGems runs the full pipeline for one request.
//
// Stages: validate, search, batch stats join, score, stable rank, truncate to
// EnrichLimit, enrich + upsert with per-item failure isolation, return in
// rank order. An empty search result short-circuits with an empty response
// and no writes. A search or stats failure aborts the whole run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: search request parameters.
// Returns:
//   - *SearchResponse: enriched results in rank order (at most EnrichLimit).
//   - error: ErrEmptyQuery on validation failure, otherwise upstream errors.
func (s *GemsService) FindHiddenGems(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = s.defaultMaxResults
	}

	start := time.Now()
	ctx = logger.WithFields(ctx, logger.Fields{logger.FieldQuery: query})

	candidates, err := s.catalog.Search(ctx, query, maxResults, req.PublishedAfter)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	if len(candidates) == 0 {
		s.log(ctx).Info("No candidates found, skipping pipeline")
		return &SearchResponse{Results: []domain.VideoInsight{}, Total: 0, Query: query}, nil
	}

	videoIDs := make([]string, 0, len(candidates))
	channelIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		videoIDs = append(videoIDs, c.VideoID)
		channelIDs = append(channelIDs, c.ChannelID)
	}

	// Two batched lookups for the whole candidate set, not one per item.
	videoStats, err := s.catalog.VideoStats(ctx, videoIDs)
	if err != nil {
		return nil, fmt.Errorf("video stats: %w", err)
	}
	channelStats, err := s.catalog.ChannelStats(ctx, channelIDs)
	if err != nil {
		return nil, fmt.Errorf("channel stats: %w", err)
	}

	ranked := rankCandidates(candidates, videoStats, channelStats)
	if len(ranked) > EnrichLimit {
		ranked = ranked[:EnrichLimit]
	}

	results := s.enrichAll(ctx, ranked)

	// Prefer the persisted records (they carry the original created_at);
	// items whose upsert failed fall back to the in-memory values.
	results = s.reloadPersisted(ctx, ranked, results)

	logger.With(logger.Fields{
		logger.FieldCount:      len(results),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Hidden gems pipeline finished")

	return &SearchResponse{Results: results, Total: len(results), Query: query}, nil
}

// rankCandidates joins candidates with their statistics, scores them, and
// sorts by score descending. The sort is stable: equal scores keep the
// original search order. Candidates with missing stats default to zero views
// and one subscriber, scoring zero.
func rankCandidates(
	candidates []domain.Candidate,
	videoStats map[string]domain.VideoStats,
	channelStats map[string]domain.ChannelStats,
) []domain.RankedVideo {
	ranked := make([]domain.RankedVideo, 0, len(candidates))
	for _, c := range candidates {
		vs := videoStats[c.VideoID]
		cs := channelStats[c.ChannelID]

		subs := cs.Subs
		// Floor subscriber count at 1 to avoid division by zero. A channel
		// reporting zero subscribers is scored as if it had exactly one,
		// which inflates its ratio; this mirrors the product definition.
		if subs < 1 {
			subs = 1
		}

		ranked = append(ranked, domain.RankedVideo{
			Candidate:   c,
			Views:       vs.Views,
			Subs:        subs,
			Description: vs.Description,
			Score:       float64(vs.Views) / float64(subs),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// enrichAll enriches and persists the ranked videos on a bounded worker
// pool. Results are written into rank-indexed slots so the returned slice is
// in rank order, never completion order. A failure on one item degrades that
// item only.
func (s *GemsService) enrichAll(ctx context.Context, ranked []domain.RankedVideo) []domain.VideoInsight {
	results := make([]domain.VideoInsight, len(ranked))

	workers := s.enrichWorkers
	if workers > len(ranked) {
		workers = len(ranked)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.enrichOne(ctx, ranked[i])
			}
		}()
	}
	for i := range ranked {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// enrichOne fetches the transcript, generates the insight, and upserts the
// record for a single ranked video. Every failure stays local: a missing
// transcript degrades the generation context, a generation failure becomes an
// error-string insight, and a store failure is logged while the in-memory
// record is still returned.
func (s *GemsService) enrichOne(ctx context.Context, rv domain.RankedVideo) domain.VideoInsight {
	transcript := s.transcripts.Fetch(ctx, rv.VideoID)

	contextText := rv.Description
	if transcript != "" {
		contextText = strings.TrimSpace(contextText + "\n\n" + transcript)
	}

	ins := s.generator.Generate(ctx, rv.Title, contextText)

	rec := domain.VideoInsight{
		VideoID:      rv.VideoID,
		Title:        rv.Title,
		Description:  rv.Description,
		ChannelID:    rv.ChannelID,
		ChannelTitle: rv.ChannelTitle,
		Views:        rv.Views,
		Subs:         rv.Subs,
		Score:        roundScore(rv.Score),
		Insight:      ins,
	}

	if err := s.store.Upsert(ctx, &rec); err != nil {
		s.log(ctx).WithField(logger.FieldVideoID, rv.VideoID).WithError(err).
			Error("Failed to persist insight record, keeping in-memory result")
	}

	return rec
}

// reloadPersisted re-reads the upserted records and returns them in the rank
// order of ranked. Records missing from the store (failed upserts) keep
// their in-memory fallback from results.
func (s *GemsService) reloadPersisted(ctx context.Context, ranked []domain.RankedVideo, results []domain.VideoInsight) []domain.VideoInsight {
	ids := make([]string, len(ranked))
	for i, rv := range ranked {
		ids[i] = rv.VideoID
	}

	stored, err := s.store.GetByVideoIDs(ctx, ids)
	if err != nil {
		s.log(ctx).WithError(err).Warn("Failed to reload persisted records, returning in-memory results")
		return results
	}

	byID := make(map[string]domain.VideoInsight, len(stored))
	for _, rec := range stored {
		byID[rec.VideoID] = rec
	}

	ordered := make([]domain.VideoInsight, len(ranked))
	for i, rv := range ranked {
		if rec, ok := byID[rv.VideoID]; ok {
			ordered[i] = rec
		} else {
			ordered[i] = results[i]
		}
	}
	return ordered
}

// roundScore rounds a score to two decimal places for presentation and
// persistence. Ranking always uses the unrounded value.
func roundScore(score float64) float64 {
	return math.Round(score*100) / 100
}
