package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jhart/medialens/internal/service"
)

// SearchHandler handles keyword search and RAG query endpoints.
type SearchHandler struct {
	ragService *service.RAGService
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - ragService: retrieval pipeline instance.
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(ragService *service.RAGService) *SearchHandler {
	return &SearchHandler{
		ragService: ragService,
	}
}

// searchRequest is the keyword search request body.
type searchRequest struct {
	Query string `json:"query" binding:"required"`
	Size  int    `json:"size"`
}

// Search handles POST /api/v1/search/media: fuzzy keyword search with no
// score threshold.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	results, err := h.ragService.Search(c.Request.Context(), req.Query, req.Size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Search failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   req.Query,
		"results": results,
		"total":   len(results),
	})
}

// RAGQuery handles POST /api/v1/rag/query: the full retrieval pipeline
// with answer synthesis.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SearchHandler) RAGQuery(c *gin.Context) {
	var req service.RAGRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	result, err := h.ragService.Query(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "RAG query failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
