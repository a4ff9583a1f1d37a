package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// RecordStatus is the lifecycle tag stored with every gallery record.
type RecordStatus string

const (
	RecordStatusUploaded    RecordStatus = "uploaded"
	RecordStatusGeneratedAI RecordStatus = "generated_ai"
	RecordStatusThemedLocal RecordStatus = "themed_local"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("failed to scan StringArray")
	}
	if len(raw) == 0 {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(raw, a)
}

// GalleryRecord is one append-only entry of the gallery feed.
// Records are written on upload and on every transform, including fallbacks,
// and are never updated afterwards.
type GalleryRecord struct {
	ID                  string       `gorm:"type:text;primaryKey" json:"id"`
	CreatedAt           time.Time    `gorm:"not null;index:idx_gallery_created_at" json:"created_at"`
	OriginalImageURL    string       `gorm:"type:text" json:"original_image_url"`
	TransformedImageURL string       `gorm:"type:text" json:"transformed_image_url,omitempty"`
	Variant             string       `gorm:"type:text" json:"variant,omitempty"`
	DisplayName         string       `gorm:"type:text" json:"display_name,omitempty"`
	Status              RecordStatus `gorm:"type:text;index:idx_gallery_status" json:"status"`
	TransformedB64      string       `gorm:"type:text" json:"-"`
	TransformedMime     string       `gorm:"type:text" json:"transformed_mime,omitempty"`
	NarrativeLines      StringArray  `gorm:"type:text" json:"poem_lines,omitempty"`
	Fingerprint         string       `gorm:"type:text;index:idx_gallery_fingerprint" json:"fingerprint,omitempty"`
}

// TableName returns the database table name for GalleryRecord.
func (GalleryRecord) TableName() string {
	return "gallery_records"
}

// HasArtifact reports whether the record carries anything renderable.
func (r *GalleryRecord) HasArtifact() bool {
	return r.TransformedB64 != "" || r.TransformedImageURL != ""
}
