package domain

import "time"

// BatchStatus represents the status of a batch transform run.
type BatchStatus string

const (
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
)

// BatchRun records one invocation of the batch command and its progress.
type BatchRun struct {
	ID             string      `gorm:"type:text;primaryKey" json:"id"`
	SourceDir      string      `gorm:"type:text;not null" json:"source_dir"`
	Variant        string      `gorm:"type:text" json:"variant"`
	Status         BatchStatus `gorm:"type:text;default:running" json:"status"`
	TotalItems     int         `gorm:"default:0" json:"total_items"`
	ProcessedItems int         `gorm:"default:0" json:"processed_items"`
	FailedItems    int         `gorm:"default:0" json:"failed_items"`
	AIItems        int         `gorm:"default:0" json:"ai_items"`
	StartedAt      time.Time   `json:"started_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	ErrorLog       string      `gorm:"type:text" json:"error_log,omitempty"`
}

// TableName returns the database table name for BatchRun.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (BatchRun) TableName() string {
	return "batch_runs"
}
