package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// MediaType identifies the kind of media a record was derived from.
// Values are MediaTypeImage and MediaTypeVideo.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaTypeImage || t == MediaTypeVideo
}

// Metadata is a custom type for storing open-schema media metadata as JSON
// in the database (dimensions, duration, file size, timestamps and so on).
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded representation of the map.
//   - error: non-nil if marshaling fails.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Metadata")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// MediaAnalysis is the relational record of one analyzed media file.
// At most one row exists per (filename, media_type) pair; updates are
// performed as delete-then-insert, never as an in-place field patch.
type MediaAnalysis struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Filename   string    `gorm:"type:text;not null;index:idx_media_analysis_identity,unique" json:"filename"`
	MediaType  MediaType `gorm:"type:text;not null;index:idx_media_analysis_identity,unique" json:"media_type"`
	Summary    string    `gorm:"type:text;not null" json:"summary"`
	Transcript string    `gorm:"type:text" json:"transcript"`
	Metadata   Metadata  `gorm:"type:text" json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for MediaAnalysis.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (MediaAnalysis) TableName() string {
	return "media_analysis"
}

// StoreOutcome is the result of a document-store upsert.
type StoreOutcome string

const (
	// OutcomeStored means the record was written (fresh insert or overwrite).
	OutcomeStored StoreOutcome = "stored"
	// OutcomeSkipped means a record already existed and overwrite was off;
	// nothing was written. A skip is an outcome, not an error.
	OutcomeSkipped StoreOutcome = "skipped"
)
