package youtube

import (
	"context"
	"encoding/xml"
	"html"
	"strings"
	"time"

	"github.com/danylo/tubegems/internal/logger"
	"github.com/go-resty/resty/v2"
)

const timedTextURL = "https://video.google.com/timedtext"

// TranscriptClient fetches video transcripts from YouTube's timedtext
// endpoint. The contract is deliberately lossy: every failure mode
// (no captions, disabled captions, network error, malformed XML) collapses
// to an empty string so transcript absence can never abort a pipeline run.
type TranscriptClient struct {
	client *resty.Client
	langs  []string
	logger *logger.Logger
}

// TranscriptConfig holds configuration for the transcript client.
type TranscriptConfig struct {
	Languages []string
	Timeout   time.Duration
}

// NewTranscriptClient creates a transcript client.
// Parameters:
//   - cfg: language preferences and HTTP timeout; nil uses defaults.
//   - log: logger instance.
// Returns:
//   - *TranscriptClient: initialized client.
func NewTranscriptClient(cfg *TranscriptConfig, log *logger.Logger) *TranscriptClient {
	langs := []string{"en"}
	timeout := 15 * time.Second
	if cfg != nil {
		if len(cfg.Languages) > 0 {
			langs = cfg.Languages
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
	}

	client := resty.New()
	client.SetTimeout(timeout)

	if log == nil {
		log = logger.GetDefault()
	}

	return &TranscriptClient{
		client: client,
		langs:  langs,
		logger: log,
	}
}

// trackList mirrors the timedtext track listing XML.
type trackList struct {
	XMLName xml.Name `xml:"transcript_list"`
	Tracks  []track  `xml:"track"`
}

type track struct {
	LangCode string `xml:"lang_code,attr"`
	Name     string `xml:"name,attr"`
}

// transcriptDoc mirrors the timedtext caption XML.
type transcriptDoc struct {
	XMLName xml.Name        `xml:"transcript"`
	Texts   []transcriptSeg `xml:"text"`
}

type transcriptSeg struct {
	Text string `xml:",chardata"`
}

// Fetch retrieves the transcript for a video as plain text.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoID: video to fetch captions for.
// Returns:
//   - string: transcript text, empty when no usable captions exist or any
//     retrieval step fails.
func (c *TranscriptClient) Fetch(ctx context.Context, videoID string) string {
	tr, ok := c.pickTrack(ctx, videoID)
	if !ok {
		return ""
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"v":    videoID,
			"lang": tr.LangCode,
			"name": tr.Name,
		}).
		Get(timedTextURL)
	if err != nil || !resp.IsSuccess() {
		c.logger.WithField(logger.FieldVideoID, videoID).
			Warn("Transcript fetch failed, continuing without transcript")
		return ""
	}

	text, err := parseTranscript(resp.Body())
	if err != nil {
		c.logger.WithField(logger.FieldVideoID, videoID).WithError(err).
			Warn("Transcript parse failed, continuing without transcript")
		return ""
	}
	return text
}

// pickTrack lists available caption tracks and selects the first one
// matching the language preferences, falling back to the first track.
func (c *TranscriptClient) pickTrack(ctx context.Context, videoID string) (track, bool) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"type": "list",
			"v":    videoID,
		}).
		Get(timedTextURL)
	if err != nil || !resp.IsSuccess() {
		return track{}, false
	}

	var list trackList
	if err := xml.Unmarshal(resp.Body(), &list); err != nil || len(list.Tracks) == 0 {
		return track{}, false
	}

	for _, lang := range c.langs {
		for _, t := range list.Tracks {
			if t.LangCode == lang {
				return t, true
			}
		}
	}
	return list.Tracks[0], true
}

// parseTranscript flattens timedtext caption XML into one space-joined string.
func parseTranscript(data []byte) (string, error) {
	var doc transcriptDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, seg := range doc.Texts {
		t := strings.TrimSpace(html.UnescapeString(seg.Text))
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
	}
	return sb.String(), nil
}
