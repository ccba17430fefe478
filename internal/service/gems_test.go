package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danylo/tubegems/internal/domain"
)

type fakeCatalog struct {
	candidates   []domain.Candidate
	videoStats   map[string]domain.VideoStats
	channelStats map[string]domain.ChannelStats
	searchErr    error
	videoErr     error
	channelErr   error
	searchCalls  int
}

func (f *fakeCatalog) Search(ctx context.Context, query string, maxResults int, publishedAfter string) ([]domain.Candidate, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if maxResults < len(f.candidates) {
		return f.candidates[:maxResults], nil
	}
	return f.candidates, nil
}

func (f *fakeCatalog) VideoStats(ctx context.Context, ids []string) (map[string]domain.VideoStats, error) {
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	out := make(map[string]domain.VideoStats)
	for _, id := range ids {
		if s, ok := f.videoStats[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (f *fakeCatalog) ChannelStats(ctx context.Context, ids []string) (map[string]domain.ChannelStats, error) {
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	out := make(map[string]domain.ChannelStats)
	for _, id := range ids {
		if s, ok := f.channelStats[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type fakeTranscripts struct {
	texts map[string]string
}

func (f *fakeTranscripts) Fetch(ctx context.Context, videoID string) string {
	return f.texts[videoID]
}

type fakeGenerator struct {
	failFor map[string]bool
}

func (f *fakeGenerator) Generate(ctx context.Context, title, contextText string) string {
	if f.failFor[title] {
		return "Error generating insight: completion API returned error: HTTP 429"
	}
	return "insight for " + title
}

type fakeStore struct {
	mu       sync.Mutex
	records  map[string]domain.VideoInsight
	upserts  int
	failFor  map[string]bool
	getErr   error
	baseTime time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  make(map[string]domain.VideoInsight),
		baseTime: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) Upsert(ctx context.Context, rec *domain.VideoInsight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.failFor[rec.VideoID] {
		return errors.New("store unreachable")
	}
	stored := *rec
	if existing, ok := f.records[rec.VideoID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = f.baseTime.Add(time.Duration(len(f.records)) * time.Second)
	}
	f.records[rec.VideoID] = stored
	return nil
}

func (f *fakeStore) GetByVideoIDs(ctx context.Context, ids []string) ([]domain.VideoInsight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out []domain.VideoInsight
	for _, id := range ids {
		if rec, ok := f.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestService(catalog *fakeCatalog, store *fakeStore, gen *fakeGenerator, tr *fakeTranscripts) *GemsService {
	if gen == nil {
		gen = &fakeGenerator{}
	}
	if tr == nil {
		tr = &fakeTranscripts{texts: map[string]string{}}
	}
	return NewGemsService(catalog, tr, gen, store, nil, &GemsConfig{EnrichWorkers: 4, DefaultMaxResults: 20})
}

func makeCandidates(n int) []domain.Candidate {
	out := make([]domain.Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Candidate{
			VideoID:      fmt.Sprintf("v%d", i),
			Title:        fmt.Sprintf("Video %d", i),
			ChannelID:    fmt.Sprintf("c%d", i),
			ChannelTitle: fmt.Sprintf("Channel %d", i),
		})
	}
	return out
}

func TestRankCandidatesScoreFormula(t *testing.T) {
	testCases := []struct {
		name  string
		views int64
		subs  int64
		want  float64
	}{
		{name: "zero subs floored to one", views: 1000, subs: 0, want: 1000.0},
		{name: "regular ratio", views: 1000, subs: 500, want: 2.0},
		{name: "single subscriber", views: 7, subs: 1, want: 7.0},
		{name: "zero views", views: 0, subs: 100, want: 0.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ranked := rankCandidates(
				[]domain.Candidate{{VideoID: "v1", ChannelID: "c1"}},
				map[string]domain.VideoStats{"v1": {Views: tc.views}},
				map[string]domain.ChannelStats{"c1": {Subs: tc.subs}},
			)
			if len(ranked) != 1 {
				t.Fatalf("expected 1 ranked video, got %d", len(ranked))
			}
			if ranked[0].Score != tc.want {
				t.Errorf("score = %v, want %v", ranked[0].Score, tc.want)
			}
		})
	}
}

func TestRankCandidatesStableOrder(t *testing.T) {
	// A and B tie at 5.0, C scores 3.0; ties must keep search order.
	candidates := []domain.Candidate{
		{VideoID: "A", ChannelID: "cA"},
		{VideoID: "B", ChannelID: "cB"},
		{VideoID: "C", ChannelID: "cC"},
	}
	videoStats := map[string]domain.VideoStats{
		"A": {Views: 50},
		"B": {Views: 500},
		"C": {Views: 30},
	}
	channelStats := map[string]domain.ChannelStats{
		"cA": {Subs: 10},
		"cB": {Subs: 100},
		"cC": {Subs: 10},
	}

	ranked := rankCandidates(candidates, videoStats, channelStats)

	got := []string{ranked[0].VideoID, ranked[1].VideoID, ranked[2].VideoID}
	want := []string{"A", "B", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order = %v, want %v", got, want)
		}
	}
}

func TestRankCandidatesMissingStatsDefaulting(t *testing.T) {
	// v-ghost is absent from both stats maps: views=0, subs=1, score=0,
	// but it must still participate in ranking.
	candidates := []domain.Candidate{
		{VideoID: "v1", ChannelID: "c1"},
		{VideoID: "v-ghost", ChannelID: "c-ghost"},
	}
	ranked := rankCandidates(candidates,
		map[string]domain.VideoStats{"v1": {Views: 10}},
		map[string]domain.ChannelStats{"c1": {Subs: 5}},
	)

	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked videos, got %d", len(ranked))
	}
	ghost := ranked[1]
	if ghost.VideoID != "v-ghost" {
		t.Fatalf("expected ghost ranked last, got %s", ghost.VideoID)
	}
	if ghost.Views != 0 || ghost.Subs != 1 || ghost.Score != 0.0 {
		t.Errorf("ghost defaults = views %d, subs %d, score %v; want 0, 1, 0.0",
			ghost.Views, ghost.Subs, ghost.Score)
	}
}

func TestFindHiddenGemsEmptyQuery(t *testing.T) {
	catalog := &fakeCatalog{}
	svc := newTestService(catalog, newFakeStore(), nil, nil)

	for _, query := range []string{"", "   "} {
		_, err := svc.FindHiddenGems(context.Background(), &SearchRequest{Query: query})
		if !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("query %q: err = %v, want ErrEmptyQuery", query, err)
		}
	}
	if catalog.searchCalls != 0 {
		t.Errorf("expected no catalog calls on validation failure, got %d", catalog.searchCalls)
	}
}

func TestFindHiddenGemsEmptySearchShortCircuits(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(&fakeCatalog{}, store, nil, nil)

	resp, err := svc.FindHiddenGems(context.Background(), &SearchRequest{Query: "zzzznoresults"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected empty results, got %d", len(resp.Results))
	}
	if store.upserts != 0 {
		t.Errorf("expected zero store writes, got %d", store.upserts)
	}
}

func TestFindHiddenGemsTruncation(t *testing.T) {
	testCases := []struct {
		name       string
		candidates int
		want       int
	}{
		{name: "more than limit", candidates: 15, want: 10},
		{name: "fewer than limit", candidates: 3, want: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			catalog := &fakeCatalog{
				candidates:   makeCandidates(tc.candidates),
				videoStats:   map[string]domain.VideoStats{},
				channelStats: map[string]domain.ChannelStats{},
			}
			// Give every candidate distinct stats so ranking is deterministic.
			for i, c := range catalog.candidates {
				catalog.videoStats[c.VideoID] = domain.VideoStats{Views: int64(1000 - i)}
				catalog.channelStats[c.ChannelID] = domain.ChannelStats{Subs: 1}
			}

			store := newFakeStore()
			svc := newTestService(catalog, store, nil, nil)

			resp, err := svc.FindHiddenGems(context.Background(), &SearchRequest{Query: "golang", MaxResults: 50})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(resp.Results) != tc.want {
				t.Errorf("result count = %d, want %d", len(resp.Results), tc.want)
			}
			if store.upserts != tc.want {
				t.Errorf("upserts = %d, want %d", store.upserts, tc.want)
			}
		})
	}
}

func TestFindHiddenGemsRankOrderPreserved(t *testing.T) {
	// With a concurrent enrichment pool, output must follow rank order,
	// never completion order.
	catalog := &fakeCatalog{
		candidates:   makeCandidates(10),
		videoStats:   map[string]domain.VideoStats{},
		channelStats: map[string]domain.ChannelStats{},
	}
	for i, c := range catalog.candidates {
		// v0 scores lowest, v9 highest
		catalog.videoStats[c.VideoID] = domain.VideoStats{Views: int64((i + 1) * 100)}
		catalog.channelStats[c.ChannelID] = domain.ChannelStats{Subs: 1}
	}

	svc := newTestService(catalog, newFakeStore(), nil, nil)

	resp, err := svc.FindHiddenGems(context.Background(), &SearchRequest{Query: "golang"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i-1].Score < resp.Results[i].Score {
			t.Fatalf("results not in descending score order at index %d: %v then %v",
				i, resp.Results[i-1].Score, resp.Results[i].Score)
		}
	}
	if resp.Results[0].VideoID != "v9" {
		t.Errorf("top result = %s, want v9", resp.Results[0].VideoID)
	}
}

func TestFindHiddenGemsPerItemIsolation(t *testing.T) {
	catalog := &fakeCatalog{
		candidates: makeCandidates(3),
		videoStats: map[string]domain.VideoStats{
			"v0": {Views: 300, Description: "d0"},
			"v1": {Views: 200, Description: "d1"},
			"v2": {Views: 100, Description: "d2"},
		},
		channelStats: map[string]domain.ChannelStats{
			"c0": {Subs: 1}, "c1": {Subs: 1}, "c2": {Subs: 1},
		},
	}
	// v1 has no transcript and its generation fails; v0 and v2 succeed.
	transcripts := &fakeTranscripts{texts: map[string]string{
		"v0": "transcript zero",
		"v2": "transcript two",
	}}
	gen := &fakeGenerator{failFor: map[string]bool{"Video 1": true}}

	svc := newTestService(catalog, newFakeStore(), gen, transcripts)

	resp, err := svc.FindHiddenGems(context.Background(), &SearchRequest{Query: "golang"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("result count = %d, want 3 (failed item must not be dropped)", len(resp.Results))
	}

	var v1 *domain.VideoInsight
	for i := range resp.Results {
		if resp.Results[i].VideoID == "v1" {
			v1 = &resp.Results[i]
		}
	}
	if v1 == nil {
		t.Fatal("v1 missing from results")
	}
	if !strings.HasPrefix(v1.Insight, "Error generating insight:") {
		t.Errorf("v1 insight = %q, want error placeholder", v1.Insight)
	}
}

func TestFindHiddenGemsStoreFailureKeepsItem(t *testing.T) {
	catalog := &fakeCatalog{
		candidates: makeCandidates(2),
		videoStats: map[string]domain.VideoStats{
			"v0": {Views: 100},
			"v1": {Views: 50},
		},
		channelStats: map[string]domain.ChannelStats{
			"c0": {Subs: 1}, "c1": {Subs: 1},
		},
	}
	store := newFakeStore()
	store.failFor = map[string]bool{"v1": true}

	svc := newTestService(catalog, store, nil, nil)

	resp, err := svc.FindHiddenGems(context.Background(), &SearchRequest{Query: "golang"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("result count = %d, want 2", len(resp.Results))
	}
	if resp.Results[1].VideoID != "v1" {
		t.Errorf("second result = %s, want v1 (unpersisted item kept in rank order)", resp.Results[1].VideoID)
	}
	if resp.Results[1].Insight == "" {
		t.Error("unpersisted item lost its in-memory insight")
	}
}

func TestFindHiddenGemsUpsertIdempotence(t *testing.T) {
	catalog := &fakeCatalog{
		candidates: makeCandidates(2),
		videoStats: map[string]domain.VideoStats{
			"v0": {Views: 100},
			"v1": {Views: 50},
		},
		channelStats: map[string]domain.ChannelStats{
			"c0": {Subs: 1}, "c1": {Subs: 1},
		},
	}
	store := newFakeStore()
	svc := newTestService(catalog, store, nil, nil)

	req := &SearchRequest{Query: "golang"}
	first, err := svc.FindHiddenGems(context.Background(), req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.FindHiddenGems(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(store.records) != 2 {
		t.Errorf("store holds %d records, want 2 (no duplicates)", len(store.records))
	}
	for i := range first.Results {
		if !first.Results[i].CreatedAt.Equal(second.Results[i].CreatedAt) {
			t.Errorf("created_at changed between runs for %s: %v vs %v",
				first.Results[i].VideoID, first.Results[i].CreatedAt, second.Results[i].CreatedAt)
		}
	}
}

func TestFindHiddenGemsScoreRounding(t *testing.T) {
	catalog := &fakeCatalog{
		candidates:   makeCandidates(1),
		videoStats:   map[string]domain.VideoStats{"v0": {Views: 1000}},
		channelStats: map[string]domain.ChannelStats{"c0": {Subs: 3}},
	}
	svc := newTestService(catalog, newFakeStore(), nil, nil)

	resp, err := svc.FindHiddenGems(context.Background(), &SearchRequest{Query: "golang"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.Results[0].Score; got != 333.33 {
		t.Errorf("persisted score = %v, want 333.33", got)
	}
}

func TestFindHiddenGemsCatalogErrors(t *testing.T) {
	testCases := []struct {
		name    string
		catalog *fakeCatalog
	}{
		{name: "search fails", catalog: &fakeCatalog{searchErr: errors.New("quota exhausted")}},
		{
			name: "video stats fail",
			catalog: &fakeCatalog{
				candidates: makeCandidates(1),
				videoErr:   errors.New("quota exhausted"),
			},
		},
		{
			name: "channel stats fail",
			catalog: &fakeCatalog{
				candidates: makeCandidates(1),
				videoStats: map[string]domain.VideoStats{},
				channelErr: errors.New("quota exhausted"),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc := newTestService(tc.catalog, store, nil, nil)
			_, err := svc.FindHiddenGems(context.Background(), &SearchRequest{Query: "golang"})
			if err == nil {
				t.Fatal("expected pipeline-level error")
			}
			if store.upserts != 0 {
				t.Errorf("expected no writes after catalog failure, got %d", store.upserts)
			}
		})
	}
}

func TestRoundScore(t *testing.T) {
	testCases := []struct {
		in   float64
		want float64
	}{
		{in: 333.333333, want: 333.33},
		{in: 2.005, want: 2.0}, // floating point: 2.005 stores as 2.00499...
		{in: 0, want: 0},
		{in: 1000, want: 1000},
	}
	for _, tc := range testCases {
		if got := roundScore(tc.in); got != tc.want {
			t.Errorf("roundScore(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
