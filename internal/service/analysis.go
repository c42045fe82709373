package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jhart/medialens/internal/domain"
	"github.com/jhart/medialens/internal/logger"
	"github.com/jhart/medialens/internal/media"
	"github.com/jhart/medialens/internal/prompts"
)

// VisionProvider captions images.
type VisionProvider interface {
	DescribeImageFile(ctx context.Context, path string) (string, error)
}

// Transcriber transcribes audio files.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}

// Analyzer turns a media file into an indexable document.
type Analyzer interface {
	Analyze(ctx context.Context, path string, mediaType domain.MediaType) (*domain.MediaDocument, error)
}

// AnalysisService converts media files into documents: caption, transcript,
// summary, metadata, and embedding vector. It fans out to the vision,
// transcription, summarization, and embedding providers.
type AnalysisService struct {
	vlm         VisionProvider
	llm         AnswerProvider
	transcriber Transcriber
	embedder    EmbeddingProvider
	tempDir     string
	maxFrames   int
}

// NewAnalysisService creates a new analysis service.
// Parameters:
//   - vlm: vision captioning provider.
//   - llm: summarization provider.
//   - transcriber: audio transcription provider.
//   - embedder: embedding provider.
//   - tempDir: directory for extracted frames and audio; empty uses os.TempDir.
//   - maxFrames: keyframe budget per video.
//
// Returns:
//   - *AnalysisService: initialized analysis service.
func NewAnalysisService(vlm VisionProvider, llm AnswerProvider, transcriber Transcriber, embedder EmbeddingProvider, tempDir string, maxFrames int) *AnalysisService {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if maxFrames <= 0 {
		maxFrames = 3
	}
	return &AnalysisService{
		vlm:         vlm,
		llm:         llm,
		transcriber: transcriber,
		embedder:    embedder,
		tempDir:     tempDir,
		maxFrames:   maxFrames,
	}
}

// Analyze dispatches to image or video analysis based on media type.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - path: media file path.
//   - mediaType: image or video.
//
// Returns:
//   - *domain.MediaDocument: analyzed document without relative path or
//     timestamp; the caller owns those.
//   - error: non-nil if any inference step fails.
func (s *AnalysisService) Analyze(ctx context.Context, path string, mediaType domain.MediaType) (*domain.MediaDocument, error) {
	switch mediaType {
	case domain.MediaTypeImage:
		return s.AnalyzeImage(ctx, path)
	case domain.MediaTypeVideo:
		return s.AnalyzeVideo(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidMediaType, mediaType)
	}
}

// AnalyzeImage captions an image, summarizes the caption, and embeds the
// summary.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - path: image file path.
//
// Returns:
//   - *domain.MediaDocument: document with summary, metadata, and vector.
//   - error: non-nil if captioning, summarization, or embedding fails.
func (s *AnalysisService) AnalyzeImage(ctx context.Context, path string) (*domain.MediaDocument, error) {
	filename := filepath.Base(path)
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldFilename:  filename,
		logger.FieldMediaType: domain.MediaTypeImage,
	})

	meta, err := media.ProbeImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe image %s: %w", filename, err)
	}

	caption, err := s.vlm.DescribeImageFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("captioning failed for %s: %w", filename, err)
	}

	summary, err := s.llm.Complete(ctx, prompts.ImageSummaryPrompt(caption, ""))
	if err != nil {
		return nil, fmt.Errorf("summarization failed for %s: %w", filename, err)
	}

	vector, err := s.embedder.EmbedPassage(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("embedding failed for %s: %w", filename, err)
	}

	logger.CtxInfo(ctx, "image analysis complete")
	return &domain.MediaDocument{
		Filename:  filename,
		MediaType: domain.MediaTypeImage,
		Summary:   summary,
		Metadata:  meta,
		Vector:    vector,
	}, nil
}

// AnalyzeVideo extracts keyframes and the audio track, captions the frames,
// transcribes the audio, summarizes both modalities, and embeds the summary.
// Temporary frame and audio files are removed on every exit path.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - path: video file path.
//
// Returns:
//   - *domain.MediaDocument: document with summary, transcript, metadata,
//     and vector.
//   - error: non-nil if extraction or a required inference step fails.
func (s *AnalysisService) AnalyzeVideo(ctx context.Context, path string) (*domain.MediaDocument, error) {
	filename := filepath.Base(path)
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldFilename:  filename,
		logger.FieldMediaType: domain.MediaTypeVideo,
	})

	meta, err := media.ProbeVideo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video %s: %w", filename, err)
	}

	var tempFiles []string
	defer func() {
		for _, f := range tempFiles {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				logger.CtxWarn(ctx, "failed to remove temp file %s: %v", f, err)
			}
		}
	}()

	framePaths, err := media.ExtractKeyframes(ctx, path, s.tempDir, s.maxFrames)
	tempFiles = append(tempFiles, framePaths...)
	if err != nil {
		return nil, fmt.Errorf("keyframe extraction failed for %s: %w", filename, err)
	}
	logger.CtxInfo(ctx, "extracted %d keyframe(s)", len(framePaths))

	var captions []string
	for i, framePath := range framePaths {
		caption, err := s.vlm.DescribeImageFile(ctx, framePath)
		if err != nil {
			return nil, fmt.Errorf("captioning failed for %s frame %d: %w", filename, i+1, err)
		}
		captions = append(captions, caption)
	}
	combinedVisual := strings.Join(captions, " ")

	// Transcription failure degrades to an empty transcript; silent
	// videos are normal.
	transcript := ""
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	audioPath := filepath.Join(s.tempDir, base+".wav")
	hasAudio, err := media.ExtractAudio(ctx, path, audioPath)
	if err != nil {
		logger.CtxWarn(ctx, "audio extraction failed: %v", err)
	} else if hasAudio {
		tempFiles = append(tempFiles, audioPath)
		raw, err := s.transcriber.TranscribeFile(ctx, audioPath)
		if err != nil {
			logger.CtxWarn(ctx, "transcription failed: %v", err)
		} else {
			transcript = CleanTranscript(raw)
		}
	}

	summary, err := s.llm.Complete(ctx, prompts.VideoSummaryPrompt(combinedVisual, transcript))
	if err != nil {
		return nil, fmt.Errorf("summarization failed for %s: %w", filename, err)
	}

	vector, err := s.embedder.EmbedPassage(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("embedding failed for %s: %w", filename, err)
	}

	logger.CtxInfo(ctx, "video analysis complete")
	return &domain.MediaDocument{
		Filename:   filename,
		MediaType:  domain.MediaTypeVideo,
		Summary:    summary,
		Transcript: transcript,
		Metadata:   meta,
		Vector:     vector,
	}, nil
}

var (
	nonSpeechPattern  = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanTranscript normalizes raw transcription output: strips non-speech
// annotations like "[Music]" and collapses whitespace runs.
// Parameters:
//   - raw: transcription model output.
//
// Returns:
//   - string: cleaned transcript; empty when nothing remains.
func CleanTranscript(raw string) string {
	cleaned := nonSpeechPattern.ReplaceAllString(raw, " ")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

func formatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
