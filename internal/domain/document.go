package domain

import "time"

// MediaDocument is the search-index representation of one analyzed media
// file. The embedding vector lives only here; the relational store keeps
// everything else.
type MediaDocument struct {
	Filename     string    `json:"filename"`
	MediaType    MediaType `json:"media_type"`
	Summary      string    `json:"summary"`
	Transcript   string    `json:"transcript"`
	Metadata     Metadata  `json:"media_metadata,omitempty"`
	RelativePath string    `json:"relative_path,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Vector       []float32 `json:"vector,omitempty"`
}

// DocumentID returns the search-index document id for a (media type,
// filename) pair. Both stores key on this composite identity so the
// dual-store duplicate check cannot diverge between them.
func DocumentID(mediaType MediaType, filename string) string {
	return string(mediaType) + ":" + filename
}

// ID returns the document's search-index id.
func (d *MediaDocument) ID() string {
	return DocumentID(d.MediaType, d.Filename)
}

// ScoredDocument is a search hit: a document plus its relevance score.
// For vector search the score is cosine similarity shifted into [0, 2];
// for keyword search it is the index's own relevance score.
type ScoredDocument struct {
	MediaDocument
	Score float64 `json:"score"`
}
