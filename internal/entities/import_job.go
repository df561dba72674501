package entities

import "time"

type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// Terminal reports whether the job can no longer change.
func (s ImportStatus) Terminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}

// ImportJob tracks one bulk upload. Once the status is terminal the
// row is immutable and succeeded + failed + skipped == total.
type ImportJob struct {
	ID         uint         `gorm:"primaryKey" json:"import_id"`
	WordbookID uint         `gorm:"index" json:"wordbook_id,omitempty"`
	Filename   string       `gorm:"size:255" json:"filename"`
	StartedAt  time.Time    `gorm:"index" json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Status     ImportStatus `gorm:"size:20;index;default:pending" json:"status"`
	Total      int          `json:"total"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Message    string       `gorm:"type:text" json:"message,omitempty"`
}

func (ImportJob) TableName() string {
	return "import_jobs"
}

// ProgressPercent is 100*(succeeded+failed+skipped)/max(total,1),
// clamped to [0,100]. It never decreases for a given job.
func (j ImportJob) ProgressPercent() float64 {
	total := j.Total
	if total < 1 {
		total = 1
	}
	p := 100 * float64(j.Succeeded+j.Failed+j.Skipped) / float64(total)
	if j.Status == ImportStatusCompleted {
		return 100
	}
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
