package cleanup

import (
	"time"

	"github.com/bwmarrin/snowflake"
	programdomain "github.com/stampworks/loyalty/internal/program/domain"
)

type JobState string

const (
	JobPending JobState = "pending"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Job is one program removal's cascade over a merchant's customers. Cursor
// is the last customer ID whose state was cleared; a restarted worker
// resumes after it. Re-running any batch is harmless: clears and deletes
// are idempotent.
type Job struct {
	ID         snowflake.ID       `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID       `gorm:"not null;index" json:"merchant_id"`
	Kind       programdomain.Kind `gorm:"not null" json:"kind"`
	Cursor     snowflake.ID       `gorm:"not null;default:0" json:"cursor"`
	State      JobState           `gorm:"not null;default:'pending';index" json:"state"`
	Attempts   int                `gorm:"not null;default:0" json:"attempts"`
	LastError  string             `json:"last_error,omitempty"`
	CreatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Job) TableName() string { return "cleanup_jobs" }
