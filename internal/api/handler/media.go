package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jhart/medialens/internal/domain"
	"github.com/jhart/medialens/internal/repository"
)

// MediaHandler handles stored media record endpoints.
type MediaHandler struct {
	mediaRepo   *repository.MediaRepository
	elasticRepo *repository.ElasticRepository
}

// NewMediaHandler creates a new media handler.
// Parameters:
//   - mediaRepo: relational record repository.
//   - elasticRepo: search index repository, used for index stats.
// Returns:
//   - *MediaHandler: initialized handler.
func NewMediaHandler(mediaRepo *repository.MediaRepository, elasticRepo *repository.ElasticRepository) *MediaHandler {
	return &MediaHandler{
		mediaRepo:   mediaRepo,
		elasticRepo: elasticRepo,
	}
}

// List handles GET /api/v1/media with optional media_type, limit, and
// offset query parameters.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *MediaHandler) List(c *gin.Context) {
	mediaType := domain.MediaType(c.Query("media_type"))
	if mediaType != "" && !mediaType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid media_type: " + string(mediaType),
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	records, err := h.mediaRepo.List(c.Request.Context(), mediaType, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list media: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"media":  records,
		"total":  len(records),
		"limit":  limit,
		"offset": offset,
	})
}

// Stats handles GET /api/v1/stats: per-type relational counts and the
// index document count.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *MediaHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	images, err := h.mediaRepo.CountByMediaType(ctx, domain.MediaTypeImage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count images: " + err.Error()})
		return
	}
	videos, err := h.mediaRepo.CountByMediaType(ctx, domain.MediaTypeVideo)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count videos: " + err.Error()})
		return
	}
	indexed, err := h.elasticRepo.Count(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count indexed documents: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stored_images":     images,
		"stored_videos":     videos,
		"stored_total":      images + videos,
		"indexed_documents": indexed,
	})
}
