package domain

// Candidate is a video returned by a catalog search, before any statistics
// are attached. Identity is VideoID; order follows search relevance.
type Candidate struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
}

// VideoStats holds per-video statistics keyed by video ID.
type VideoStats struct {
	Views       int64  `json:"views"`
	Description string `json:"description"`
}

// ChannelStats holds per-channel statistics keyed by channel ID.
type ChannelStats struct {
	Subs int64 `json:"subs"`
}

// RankedVideo is a candidate joined with its statistics and the derived
// hidden-gem score. Score stays unrounded here; rounding happens at the
// persistence and response boundary only.
type RankedVideo struct {
	Candidate
	Views       int64   `json:"views"`
	Subs        int64   `json:"subs"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// EnrichedVideo is a ranked video with its generated insight attached.
// Insight may carry an error-message string when generation failed; the
// transcript may be empty when none was retrievable.
type EnrichedVideo struct {
	RankedVideo
	Insight    string `json:"insight"`
	Transcript string `json:"transcript,omitempty"`
}
