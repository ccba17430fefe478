// Package youtube wraps the YouTube Data API v3 for candidate search and
// statistics lookup, plus transcript retrieval via the public timedtext
// endpoint. It is a pure I/O boundary: no ranking logic lives here.
package youtube

import (
	"context"
	"fmt"

	"github.com/danylo/tubegems/internal/domain"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// idBatchSize is the maximum number of ids the videos.list and channels.list
// endpoints accept per call.
const idBatchSize = 50

// maxSearchResults is the API-side cap for search.list.
const maxSearchResults = 50

// Client wraps an authenticated YouTube Data API service.
type Client struct {
	service *yt.Service
}

// NewClient creates a YouTube client authenticated with an API key.
// Parameters:
//   - ctx: context for service construction.
//   - apiKey: YouTube Data API v3 key.
// Returns:
//   - *Client: initialized client.
//   - error: non-nil if the underlying service cannot be built.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube API key is required")
	}
	service, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &Client{service: service}, nil
}

// Search performs a video search and returns candidates in relevance order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: search keywords (caller guarantees non-empty).
//   - maxResults: requested result count, clamped to 1..50.
//   - publishedAfter: optional RFC3339 lower bound for publish time; empty skips the filter.
// Returns:
//   - []domain.Candidate: candidates in the order the API returned them.
//   - error: non-nil if the search call fails.
func (c *Client) Search(ctx context.Context, query string, maxResults int, publishedAfter string) ([]domain.Candidate, error) {
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	call := c.service.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		MaxResults(int64(maxResults))
	if publishedAfter != "" {
		call = call.PublishedAfter(publishedAfter)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	return candidatesFromSearch(resp), nil
}

// VideoStats fetches view counts and descriptions for the given video ids.
// Ids the API does not return (deleted or private videos) are simply absent
// from the result map; callers treat absence as zero views.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: video ids to look up.
// Returns:
//   - map[string]domain.VideoStats: stats keyed by video id.
//   - error: non-nil if any batch call fails.
func (c *Client) VideoStats(ctx context.Context, ids []string) (map[string]domain.VideoStats, error) {
	stats := make(map[string]domain.VideoStats, len(ids))
	for _, batch := range batchIDs(ids, idBatchSize) {
		resp, err := c.service.Videos.List([]string{"statistics", "snippet"}).
			Id(batch...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("youtube video stats failed: %w", err)
		}
		mergeVideoStats(stats, resp)
	}
	return stats, nil
}

// ChannelStats fetches subscriber counts for the given channel ids.
// Missing ids are absent from the result map.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: channel ids to look up.
// Returns:
//   - map[string]domain.ChannelStats: stats keyed by channel id.
//   - error: non-nil if any batch call fails.
func (c *Client) ChannelStats(ctx context.Context, ids []string) (map[string]domain.ChannelStats, error) {
	stats := make(map[string]domain.ChannelStats, len(ids))
	for _, batch := range batchIDs(ids, idBatchSize) {
		resp, err := c.service.Channels.List([]string{"statistics"}).
			Id(batch...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("youtube channel stats failed: %w", err)
		}
		mergeChannelStats(stats, resp)
	}
	return stats, nil
}

// candidatesFromSearch maps a search response into domain candidates,
// skipping items without a video id (playlists, channels).
func candidatesFromSearch(resp *yt.SearchListResponse) []domain.Candidate {
	if resp == nil {
		return nil
	}
	candidates := make([]domain.Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			VideoID:      item.Id.VideoId,
			Title:        item.Snippet.Title,
			ChannelID:    item.Snippet.ChannelId,
			ChannelTitle: item.Snippet.ChannelTitle,
		})
	}
	return candidates
}

// mergeVideoStats folds one videos.list response into the stats map.
func mergeVideoStats(stats map[string]domain.VideoStats, resp *yt.VideoListResponse) {
	if resp == nil {
		return
	}
	for _, item := range resp.Items {
		s := domain.VideoStats{}
		if item.Statistics != nil {
			s.Views = int64(item.Statistics.ViewCount)
		}
		if item.Snippet != nil {
			s.Description = item.Snippet.Description
		}
		stats[item.Id] = s
	}
}

// mergeChannelStats folds one channels.list response into the stats map.
func mergeChannelStats(stats map[string]domain.ChannelStats, resp *yt.ChannelListResponse) {
	if resp == nil {
		return
	}
	for _, item := range resp.Items {
		s := domain.ChannelStats{}
		if item.Statistics != nil {
			s.Subs = int64(item.Statistics.SubscriberCount)
		}
		stats[item.Id] = s
	}
}

// batchIDs splits ids into chunks of at most size, deduplicating along the way.
func batchIDs(ids []string, size int) [][]string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var batches [][]string
	for len(unique) > 0 {
		n := size
		if len(unique) < n {
			n = len(unique)
		}
		batches = append(batches, unique[:n])
		unique = unique[n:]
	}
	return batches
}
