package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jhart/medialens/internal/config"
)

// TranscriptionService transcribes audio through a Whisper-compatible API.
type TranscriptionService struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewTranscriptionService creates a new transcription service.
// Parameters:
//   - cfg: Whisper configuration including model and API key.
//
// Returns:
//   - *TranscriptionService: initialized transcription client.
func NewTranscriptionService(cfg *config.WhisperConfig) *TranscriptionService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	// Long audio takes a while to transcribe
	client.SetTimeout(5 * time.Minute)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &TranscriptionService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/audio/transcriptions",
	}
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// TranscribeFile transcribes an audio file on disk.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - path: audio file path (wav, mp3, m4a).
//
// Returns:
//   - string: transcript text; empty when no speech was detected.
//   - error: non-nil if reading or the API request fails.
func (s *TranscriptionService) TranscribeFile(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file %s: %w", path, err)
	}
	defer file.Close()

	var resp transcriptionResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetFileReader("file", filepath.Base(path), file).
		SetFormData(map[string]string{"model": s.model}).
		SetResult(&resp).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call transcription API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != nil {
			return "", fmt.Errorf("transcription API returned error: HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("transcription API returned error: HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}
	if resp.Error != nil {
		return "", fmt.Errorf("transcription API error: %s", resp.Error.Message)
	}

	return strings.TrimSpace(resp.Text), nil
}
