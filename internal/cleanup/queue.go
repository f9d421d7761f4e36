package cleanup

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/stampworks/loyalty/internal/clock"
	programdomain "github.com/stampworks/loyalty/internal/program/domain"
	"gorm.io/gorm"
)

// Queue persists cascade jobs. It implements the program module's
// CleanupEnqueuer so removal can schedule the cascade inside its own
// transaction.
type Queue struct {
	genID *snowflake.Node
	clock clock.Clock
}

func NewQueue(genID *snowflake.Node, c clock.Clock) *Queue {
	return &Queue{genID: genID, clock: c}
}

// Enqueue inserts a pending job unless one for the same merchant and kind
// is already pending or running, which makes repeated removals converge on
// a single cascade.
func (q *Queue) Enqueue(ctx context.Context, tx *gorm.DB, merchantID snowflake.ID, kind programdomain.Kind) error {
	var count int64
	err := tx.WithContext(ctx).
		Model(&Job{}).
		Where("merchant_id = ? AND kind = ? AND state IN ?", merchantID, kind, []JobState{JobPending, JobRunning}).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := q.clock.Now()
	return tx.WithContext(ctx).Create(&Job{
		ID:         q.genID.Generate(),
		MerchantID: merchantID,
		Kind:       kind,
		State:      JobPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Error
}

// ListRunnable returns the oldest pending or running jobs, running first so
// interrupted cascades resume before new ones start.
func (q *Queue) ListRunnable(ctx context.Context, db *gorm.DB, limit int) ([]Job, error) {
	var jobs []Job
	err := db.WithContext(ctx).
		Where("state IN ?", []JobState{JobRunning, JobPending}).
		Order("state desc, created_at asc, id asc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Claim flips a job to running and bumps its attempt counter. It reports
// false when another worker got there first.
func (q *Queue) Claim(ctx context.Context, db *gorm.DB, job *Job) (bool, error) {
	res := db.WithContext(ctx).
		Model(&Job{}).
		Where("id = ? AND state IN ? AND attempts = ?", job.ID, []JobState{JobPending, JobRunning}, job.Attempts).
		Updates(map[string]any{
			"state":      JobRunning,
			"attempts":   job.Attempts + 1,
			"updated_at": q.clock.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	job.State = JobRunning
	job.Attempts++
	return true, nil
}

// Advance commits the cursor after a batch so a crashed worker resumes
// where it left off instead of rescanning from the start.
func (q *Queue) Advance(ctx context.Context, db *gorm.DB, job *Job, cursor snowflake.ID) error {
	err := db.WithContext(ctx).
		Model(&Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"cursor":     cursor,
			"updated_at": q.clock.Now(),
		}).Error
	if err != nil {
		return err
	}
	job.Cursor = cursor
	return nil
}

func (q *Queue) Finish(ctx context.Context, db *gorm.DB, job *Job, state JobState, lastErr error) error {
	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}
	err := db.WithContext(ctx).
		Model(&Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"state":      state,
			"last_error": msg,
			"updated_at": q.clock.Now(),
		}).Error
	if err != nil {
		return err
	}
	job.State = state
	job.LastError = msg
	return nil
}

// Release puts a failed attempt back in the pending pool for a later poll.
func (q *Queue) Release(ctx context.Context, db *gorm.DB, job *Job, lastErr error) error {
	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}
	err := db.WithContext(ctx).
		Model(&Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"state":      JobPending,
			"last_error": msg,
			"updated_at": q.clock.Now(),
		}).Error
	if err != nil {
		return err
	}
	job.State = JobPending
	job.LastError = msg
	return nil
}

var _ programdomain.CleanupEnqueuer = (*Queue)(nil)
