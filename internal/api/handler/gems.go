package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danylo/tubegems/internal/logger"
	"github.com/danylo/tubegems/internal/service"
	"github.com/gin-gonic/gin"
)

// GemsHandler handles hidden-gem search endpoints.
type GemsHandler struct {
	gemsService *service.GemsService
}

// NewGemsHandler creates a new gems handler.
// Parameters:
//   - gemsService: gems pipeline service.
// Returns:
//   - *GemsHandler: initialized handler.
func NewGemsHandler(gemsService *service.GemsService) *GemsHandler {
	return &GemsHandler{
		gemsService: gemsService,
	}
}

// Search handles POST /api/v1/gems/search.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *GemsHandler) Search(c *gin.Context) {
	var req service.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	h.run(c, &req)
}

// SearchGet handles GET /api/v1/gems/search for simple query-string searches.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *GemsHandler) SearchGet(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'q' is required",
		})
		return
	}

	req := service.SearchRequest{
		Query:          query,
		PublishedAfter: c.Query("published_after"),
	}

	if maxResults := c.Query("max_results"); maxResults != "" {
		n, err := strconv.Atoi(maxResults)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Parameter 'max_results' must be an integer",
			})
			return
		}
		req.MaxResults = n
	}

	h.run(c, &req)
}

// run validates shared request fields, executes the pipeline, and maps
// errors: validation problems become 400s, everything else a generic 500
// with the detail kept server-side.
func (h *GemsHandler) run(c *gin.Context, req *service.SearchRequest) {
	if req.PublishedAfter != "" {
		if _, err := time.Parse(time.RFC3339, req.PublishedAfter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Parameter 'published_after' must be an RFC3339 timestamp",
			})
			return
		}
	}

	result, err := h.gemsService.FindHiddenGems(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Missing required parameter: query",
			})
			return
		}
		logger.CtxError(c.Request.Context(), "Hidden gems search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Search failed",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
