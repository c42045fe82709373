// Package media extracts technical metadata and derived artifacts
// (keyframes, audio tracks) from media files on disk.
package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	// registered decoders for image.DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/jhart/medialens/internal/domain"
)

// imageExtensions are the file extensions treated as images.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// videoExtensions are the file extensions treated as videos.
var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true,
}

// TypeOf classifies a file by extension.
// Parameters:
//   - filename: file name or path; only the extension matters.
//
// Returns:
//   - domain.MediaType: image or video.
//   - bool: false when the extension is not a supported media format.
func TypeOf(filename string) (domain.MediaType, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case imageExtensions[ext]:
		return domain.MediaTypeImage, true
	case videoExtensions[ext]:
		return domain.MediaTypeVideo, true
	default:
		return "", false
	}
}

// IsHidden reports whether a file name belongs to a hidden or OS metadata
// file ("." prefix, including AppleDouble "._" companions).
func IsHidden(filename string) bool {
	return strings.HasPrefix(filename, ".")
}

// baseMetadata collects the filesystem facts shared by every media type.
func baseMetadata(path string) (domain.Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return domain.Metadata{
		"filename":      filepath.Base(path),
		"file_size":     info.Size(),
		"file_type":     strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		"last_modified": info.ModTime().Format(time.RFC3339),
	}, nil
}

// ProbeImage extracts technical metadata from an image file. Decoding
// failures degrade to filesystem metadata only; probing never blocks an
// analysis.
// Parameters:
//   - path: image file path.
//
// Returns:
//   - domain.Metadata: filesystem facts plus dimensions and format when
//     the image header could be decoded.
//   - error: non-nil only if the file cannot be read at all.
func ProbeImage(path string) (domain.Metadata, error) {
	meta, err := baseMetadata(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		meta["decode_error"] = err.Error()
		return meta, nil
	}

	meta["dimensions"] = fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
	meta["width"] = cfg.Width
	meta["height"] = cfg.Height
	meta["format"] = format
	return meta, nil
}
