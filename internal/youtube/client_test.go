package youtube

import (
	"testing"

	"github.com/danylo/tubegems/internal/domain"
	yt "google.golang.org/api/youtube/v3"
)

func TestCandidatesFromSearch(t *testing.T) {
	resp := &yt.SearchListResponse{
		Items: []*yt.SearchResult{
			{
				Id: &yt.ResourceId{VideoId: "abc123"},
				Snippet: &yt.SearchResultSnippet{
					Title:        "First video",
					ChannelId:    "chan1",
					ChannelTitle: "Channel One",
				},
			},
			// Playlist result: no video id, must be skipped
			{
				Id:      &yt.ResourceId{PlaylistId: "pl1"},
				Snippet: &yt.SearchResultSnippet{Title: "A playlist"},
			},
			{
				Id: &yt.ResourceId{VideoId: "def456"},
				Snippet: &yt.SearchResultSnippet{
					Title:        "Second video",
					ChannelId:    "chan2",
					ChannelTitle: "Channel Two",
				},
			},
		},
	}

	got := candidatesFromSearch(resp)
	if len(got) != 2 {
		t.Fatalf("candidate count = %d, want 2", len(got))
	}
	if got[0].VideoID != "abc123" || got[1].VideoID != "def456" {
		t.Errorf("candidate ids = %s, %s; want abc123, def456", got[0].VideoID, got[1].VideoID)
	}
	if got[0].ChannelTitle != "Channel One" {
		t.Errorf("channel title = %q, want %q", got[0].ChannelTitle, "Channel One")
	}
}

func TestCandidatesFromSearchNil(t *testing.T) {
	if got := candidatesFromSearch(nil); len(got) != 0 {
		t.Errorf("expected no candidates from nil response, got %d", len(got))
	}
}

func TestMergeVideoStats(t *testing.T) {
	stats := make(map[string]domain.VideoStats)
	mergeVideoStats(stats, &yt.VideoListResponse{
		Items: []*yt.Video{
			{
				Id:         "v1",
				Statistics: &yt.VideoStatistics{ViewCount: 1234},
				Snippet:    &yt.VideoSnippet{Description: "a description"},
			},
			// Stats hidden by the uploader: zero-value entry still recorded
			{Id: "v2"},
		},
	})

	if got := stats["v1"]; got.Views != 1234 || got.Description != "a description" {
		t.Errorf("v1 stats = %+v, want views 1234 and description set", got)
	}
	if got, ok := stats["v2"]; !ok || got.Views != 0 {
		t.Errorf("v2 stats = %+v (present=%v), want zero-value entry", got, ok)
	}
}

func TestMergeChannelStats(t *testing.T) {
	stats := make(map[string]domain.ChannelStats)
	mergeChannelStats(stats, &yt.ChannelListResponse{
		Items: []*yt.Channel{
			{Id: "c1", Statistics: &yt.ChannelStatistics{SubscriberCount: 42}},
		},
	})

	if got := stats["c1"]; got.Subs != 42 {
		t.Errorf("c1 subs = %d, want 42", got.Subs)
	}
	if _, ok := stats["c-missing"]; ok {
		t.Error("unexpected entry for channel the API never returned")
	}
}

func TestBatchIDs(t *testing.T) {
	testCases := []struct {
		name        string
		ids         []string
		size        int
		wantBatches int
		wantTotal   int
	}{
		{name: "empty", ids: nil, size: 50, wantBatches: 0, wantTotal: 0},
		{name: "single batch", ids: []string{"a", "b", "c"}, size: 50, wantBatches: 1, wantTotal: 3},
		{name: "exact boundary", ids: []string{"a", "b"}, size: 2, wantBatches: 1, wantTotal: 2},
		{name: "split", ids: []string{"a", "b", "c"}, size: 2, wantBatches: 2, wantTotal: 3},
		{name: "dedupe", ids: []string{"a", "b", "a", "", "b"}, size: 50, wantBatches: 1, wantTotal: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			batches := batchIDs(tc.ids, tc.size)
			if len(batches) != tc.wantBatches {
				t.Fatalf("batch count = %d, want %d", len(batches), tc.wantBatches)
			}
			total := 0
			for _, b := range batches {
				if len(b) > tc.size {
					t.Errorf("batch size %d exceeds limit %d", len(b), tc.size)
				}
				total += len(b)
			}
			if total != tc.wantTotal {
				t.Errorf("total ids = %d, want %d", total, tc.wantTotal)
			}
		})
	}
}
