package domain

// TransformRequest carries the inputs of a single costume transform.
// ImageRef is an artifact store reference such as "/uploads/<name>"; the bytes
// are loaded lazily by the orchestrator.
type TransformRequest struct {
	ImageRef           string
	Variant            Variant
	Augmentation       string
	ThematicBackground bool
	DisplayName        string
}

// TransformMode tells whether the image model edits the photo or synthesizes a new one.
type TransformMode string

const (
	TransformModeEdit     TransformMode = "edit"
	TransformModeGenerate TransformMode = "generate"
)

// TransformDebug is echoed to clients as ai_debug.
type TransformDebug struct {
	Model         string        `json:"model"`
	Changed       bool          `json:"changed"`
	Mode          TransformMode `json:"mode"`
	UseThematicBG bool          `json:"use_thematic_bg"`
	CacheHit      bool          `json:"cache_hit"`
	Attempts      int           `json:"attempts"`
}

// TransformResult is the outcome of a transform. ArtifactRef may be empty when
// the result only exists inline.
type TransformResult struct {
	ArtifactRef string         `json:"transformed_image_url"`
	DataURL     string         `json:"data_url"`
	MimeType    string         `json:"mime_type"`
	Data        []byte         `json:"-"`
	PoemLines   []string       `json:"poem_lines"`
	Status      RecordStatus   `json:"status"`
	Variant     Variant        `json:"disfraz"`
	DisplayName string         `json:"display_name"`
	Fingerprint string         `json:"fingerprint"`
	Debug       TransformDebug `json:"ai_debug"`
}

// GalleryItem is one renderable entry of a gallery page.
// Exactly one of DataURL and ImageURL is set.
type GalleryItem struct {
	ID            string   `json:"id,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
	DataURL       string   `json:"data_url,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	DisplayName   string   `json:"display_name,omitempty"`
	Variant       string   `json:"disfraz,omitempty"`
	PoemLines     []string `json:"poem_lines,omitempty"`
	SuggestedName string   `json:"suggested_name"`
}

// GalleryPage is the paginated response of the gallery reader. Record-backed
// pages set NextCursor, file-backed pages set NextOffset.
type GalleryPage struct {
	Items      []GalleryItem `json:"items"`
	Source     string        `json:"source"`
	NextCursor string        `json:"next_cursor,omitempty"`
	NextOffset *int          `json:"next_offset,omitempty"`
}
