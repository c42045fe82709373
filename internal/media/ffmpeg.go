package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jhart/medialens/internal/domain"
)

// ffprobeOutput is the subset of ffprobe's JSON output we read.
type ffprobeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func runFFProbe(ctx context.Context, path string) (*ffprobeOutput, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w: %s", path, err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output for %s: %w", path, err)
	}
	return &out, nil
}

// parseFrameRate converts ffprobe's rational frame rate ("30000/1001")
// to a float. Returns 0 for missing or degenerate rates.
func parseFrameRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// ProbeVideo extracts technical metadata from a video file. Probe failures
// degrade to filesystem metadata only.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - path: video file path.
//
// Returns:
//   - domain.Metadata: filesystem facts plus fps, frame count, dimensions,
//     and duration when ffprobe succeeds.
//   - error: non-nil only if the file cannot be read at all.
func ProbeVideo(ctx context.Context, path string) (domain.Metadata, error) {
	meta, err := baseMetadata(path)
	if err != nil {
		return nil, err
	}

	out, err := runFFProbe(ctx, path)
	if err != nil {
		meta["probe_error"] = err.Error()
		return meta, nil
	}

	for _, stream := range out.Streams {
		if stream.CodecType != "video" {
			continue
		}
		if fps := parseFrameRate(stream.AvgFrameRate); fps > 0 {
			meta["fps"] = fps
		}
		if frames, err := strconv.Atoi(stream.NbFrames); err == nil {
			meta["frame_count"] = frames
		}
		if stream.Width > 0 && stream.Height > 0 {
			meta["dimensions"] = fmt.Sprintf("%dx%d", stream.Width, stream.Height)
		}
		break
	}

	if seconds, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		meta["duration_seconds"] = seconds
		meta["duration"] = fmt.Sprintf("%d:%02d", int(seconds)/60, int(seconds)%60)
	}

	return meta, nil
}

// VideoDuration returns a video's duration in seconds.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - path: video file path.
//
// Returns:
//   - float64: duration in seconds.
//   - error: non-nil if probing fails.
func VideoDuration(ctx context.Context, path string) (float64, error) {
	out, err := runFFProbe(ctx, path)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration for %s: %w", path, err)
	}
	return seconds, nil
}

// ExtractKeyframes samples up to maxFrames frames evenly across a video
// and writes them as JPEG files into tempDir.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoPath: source video path.
//   - tempDir: directory for the extracted frames; must exist.
//   - maxFrames: frame budget; shorter videos yield fewer frames.
//
// Returns:
//   - []string: paths of the extracted frames in timeline order.
//   - error: non-nil if probing fails or no frame could be extracted.
func ExtractKeyframes(ctx context.Context, videoPath, tempDir string, maxFrames int) ([]string, error) {
	if maxFrames <= 0 {
		maxFrames = 1
	}

	duration, err := VideoDuration(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	interval := duration / float64(maxFrames)

	var paths []string
	for i := 0; i < maxFrames; i++ {
		offset := float64(i) * interval
		framePath := filepath.Join(tempDir, fmt.Sprintf("%s_frame_%d.jpg", base, i))

		cmd := exec.CommandContext(ctx, "ffmpeg",
			"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
			"-i", videoPath,
			"-frames:v", "1",
			"-q:v", "2",
			"-y",
			framePath,
		)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			// Seeking past the last decodable frame is common near the end;
			// keep what we have.
			continue
		}
		if info, err := os.Stat(framePath); err == nil && info.Size() > 0 {
			paths = append(paths, framePath)
		}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no keyframes extracted from %s", videoPath)
	}
	return paths, nil
}

// ExtractAudio extracts a video's audio track as 16 kHz mono WAV, the
// input format the transcription model expects.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoPath: source video path.
//   - audioPath: output WAV path.
//
// Returns:
//   - bool: false when the video has no audio track; not an error.
//   - error: non-nil if extraction fails for another reason.
func ExtractAudio(ctx context.Context, videoPath, audioPath string) (bool, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		audioPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if strings.Contains(stderr.String(), "does not contain any stream") ||
			strings.Contains(stderr.String(), "Output file does not contain any stream") {
			return false, nil
		}
		return false, fmt.Errorf("ffmpeg audio extraction failed for %s: %w: %s", videoPath, err, stderr.String())
	}

	info, err := os.Stat(audioPath)
	if err != nil || info.Size() == 0 {
		return false, nil
	}
	return true, nil
}
