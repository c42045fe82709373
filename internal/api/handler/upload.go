package handler

import (
	"context"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jhart/medialens/internal/domain"
	"github.com/jhart/medialens/internal/logger"
	"github.com/jhart/medialens/internal/media"
	"github.com/jhart/medialens/internal/service"
	"github.com/jhart/medialens/internal/storage"
)

// UploadHandler handles single-file media upload and analysis.
type UploadHandler struct {
	analyzer service.Analyzer
	store    *service.StoreService
	archive  storage.MediaArchive // nil when archiving is disabled
	tempDir  string
}

// NewUploadHandler creates a new upload handler.
// Parameters:
//   - analyzer: media-to-document conversion.
//   - store: dual-store persistence.
//   - archive: original-file archive; nil disables archiving.
//   - tempDir: directory for uploaded files during analysis; empty uses
//     os.TempDir.
//
// Returns:
//   - *UploadHandler: initialized handler.
func NewUploadHandler(analyzer service.Analyzer, store *service.StoreService, archive storage.MediaArchive, tempDir string) *UploadHandler {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &UploadHandler{
		analyzer: analyzer,
		store:    store,
		archive:  archive,
		tempDir:  tempDir,
	}
}

// Upload handles POST /api/v1/upload/media. The uploaded file is analyzed
// and the resulting document written to both stores; the copied upload is
// removed on every exit path.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file: " + err.Error()})
		return
	}

	filename := filepath.Base(fileHeader.Filename)
	if media.IsHidden(filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Hidden files are not accepted"})
		return
	}
	mediaType, ok := media.TypeOf(filename)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported media format: " + filepath.Ext(filename)})
		return
	}

	overwrite, _ := strconv.ParseBool(c.DefaultPostForm("overwrite", "false"))

	ctx := logger.WithFields(c.Request.Context(), logger.Fields{
		logger.FieldFilename:  filename,
		logger.FieldMediaType: mediaType,
	})

	tempPath := filepath.Join(h.tempDir, filename)
	if err := c.SaveUploadedFile(fileHeader, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save upload: " + err.Error()})
		return
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			logger.CtxWarn(ctx, "failed to remove uploaded temp file %s: %v", tempPath, err)
		}
	}()

	doc, err := h.analyzer.Analyze(ctx, tempPath, mediaType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Analysis failed for " + filename + ": " + err.Error(),
		})
		return
	}
	doc.RelativePath = filename

	outcome, err := h.store.Store(ctx, doc, overwrite)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store " + filename + ": " + err.Error(),
		})
		return
	}

	var archiveURL string
	if h.archive != nil && outcome == domain.OutcomeStored {
		archiveURL = h.archiveOriginal(ctx, tempPath, mediaType, filename, fileHeader.Size)
	}

	resp := gin.H{
		"filename":   doc.Filename,
		"media_type": doc.MediaType,
		"outcome":    outcome,
		"summary":    doc.Summary,
		"transcript": doc.Transcript,
		"metadata":   doc.Metadata,
	}
	if archiveURL != "" {
		resp["archive_url"] = archiveURL
	}
	c.JSON(http.StatusOK, resp)
}

// archiveOriginal uploads the original file to the archive. Archive
// failures are logged, never surfaced; the analysis already succeeded.
func (h *UploadHandler) archiveOriginal(ctx context.Context, tempPath string, mediaType domain.MediaType, filename string, size int64) string {
	f, err := os.Open(tempPath)
	if err != nil {
		logger.CtxWarn(ctx, "failed to open upload for archiving: %v", err)
		return ""
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := h.archive.Put(ctx, mediaType, filename, f, size, contentType); err != nil {
		logger.CtxWarn(ctx, "failed to archive original %s: %v", filename, err)
		return ""
	}
	return h.archive.URL(mediaType, filename)
}
