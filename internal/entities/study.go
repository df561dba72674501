package entities

import "time"

// SRS algorithm tags. The state tuple is versioned by the tag so a
// replacement algorithm can coexist without a schema change.
const (
	AlgoSM2  = "sm2"
	AlgoFSRS = "fsrs"
)

// Defaults for a freshly scheduled card.
const (
	InitialEase = 2.5
	MinEase     = 1.3
	MaxEase     = 3.5

	// LeechLapses is the lapse count at which a card is tagged leech
	// on its word and softly delayed once.
	LeechLapses = 8

	TagLeech = "leech"
)

// SRSState is the per-card scheduling tuple. Exactly one row per card,
// created lazily the first time the card enters the scheduler.
// reps == 0 means the card is still "new".
type SRSState struct {
	CardID         uint       `gorm:"primaryKey" json:"card_id"`
	Algo           string     `gorm:"size:10;default:sm2" json:"algo"`
	Due            time.Time  `gorm:"index" json:"due"`
	IntervalDays   int        `gorm:"column:interval_days" json:"interval"`
	Ease           float64    `json:"ease"`
	Reps           int        `json:"reps"`
	Lapses         int        `json:"lapses"`
	LastGrade      *int       `json:"last_grade,omitempty"`
	FirstSeenAt    time.Time  `gorm:"index" json:"first_seen_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (SRSState) TableName() string {
	return "srs_states"
}

// IsNew reports whether the card has never been graded.
func (s SRSState) IsNew() bool {
	return s.Reps == 0 && s.LastReviewedAt == nil
}

// Review is an append-only record of a single grading event.
// Rows are never mutated.
type Review struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CardID       uint      `gorm:"index" json:"card_id"`
	TS           time.Time `gorm:"column:ts;index" json:"ts"`
	Grade        int       `json:"grade"`
	ElapsedMs    *int      `json:"elapsed_ms,omitempty"`
	PrevInterval int       `json:"prev_interval"`
	NewInterval  int       `json:"new_interval"`
}

func (Review) TableName() string {
	return "reviews"
}
