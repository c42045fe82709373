// Package storage archives original media files in S3-compatible object
// storage. The archive is optional; analysis and retrieval never depend
// on it.
package storage

import (
	"context"
	"io"

	"github.com/jhart/medialens/internal/domain"
)

// MediaArchive stores original media files keyed by their composite
// identity, so an archived object maps one-to-one to a stored document.
type MediaArchive interface {
	// Put archives one original media file.
	Put(ctx context.Context, mediaType domain.MediaType, filename string, reader io.Reader, size int64, contentType string) error

	// Open streams an archived original back.
	Open(ctx context.Context, mediaType domain.MediaType, filename string) (io.ReadCloser, error)

	// Exists checks whether an original has been archived.
	Exists(ctx context.Context, mediaType domain.MediaType, filename string) (bool, error)

	// Remove deletes an archived original.
	Remove(ctx context.Context, mediaType domain.MediaType, filename string) error

	// URL returns the public URL of an archived original, when the
	// archive has one configured.
	URL(mediaType domain.MediaType, filename string) string
}

// objectKey maps an identity to its archive key: "<media_type>/<filename>".
func objectKey(mediaType domain.MediaType, filename string) string {
	return string(mediaType) + "/" + filename
}
