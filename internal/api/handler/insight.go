package handler

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"

	"github.com/danylo/tubegems/internal/logger"
	"github.com/danylo/tubegems/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// InsightHandler exposes the persisted insight records to the dashboard.
type InsightHandler struct {
	repo *repository.InsightRepository
}

// NewInsightHandler creates a new insight handler.
// Parameters:
//   - repo: insight repository.
// Returns:
//   - *InsightHandler: initialized handler.
func NewInsightHandler(repo *repository.InsightRepository) *InsightHandler {
	return &InsightHandler{repo: repo}
}

// List handles GET /api/v1/insights with pagination.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *InsightHandler) List(c *gin.Context) {
	limit := parseIntDefault(c.Query("limit"), 50)
	offset := parseIntDefault(c.Query("offset"), 0)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	recs, err := h.repo.List(ctx, limit, offset)
	if err != nil {
		logger.CtxError(ctx, "Failed to list insights: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list insights"})
		return
	}

	total, err := h.repo.Count(ctx)
	if err != nil {
		logger.CtxError(ctx, "Failed to count insights: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list insights"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": recs,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get handles GET /api/v1/insights/:video_id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *InsightHandler) Get(c *gin.Context) {
	videoID := c.Param("video_id")

	rec, err := h.repo.GetByVideoID(c.Request.Context(), videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Insight not found"})
			return
		}
		logger.CtxError(c.Request.Context(), "Failed to get insight: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get insight"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// Export handles GET /api/v1/insights/export, streaming every stored record
// as a CSV download for the dashboard's export feature.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes CSV response).
func (h *InsightHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	recs, err := h.repo.ListAll(ctx)
	if err != nil {
		logger.CtxError(ctx, "Failed to export insights: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export insights"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="insights.csv"`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"video_id", "title", "channel_title", "views", "subs", "score", "insight", "created_at"})
	for _, rec := range recs {
		_ = w.Write([]string{
			rec.VideoID,
			rec.Title,
			rec.ChannelTitle,
			strconv.FormatInt(rec.Views, 10),
			strconv.FormatInt(rec.Subs, 10),
			strconv.FormatFloat(rec.Score, 'f', 2, 64),
			rec.Insight,
			rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	w.Flush()
}

// parseIntDefault parses s as an int, returning def on empty or invalid input.
func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
