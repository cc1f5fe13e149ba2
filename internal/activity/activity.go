// Package activity records audit events off the request path.
package activity

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/repository"
	"github.com/and161185/notekeeper/internal/workerpool"
)

// Tracker accepts audit events. Track never fails the caller.
type Tracker interface {
	Track(userID, noteID uuid.UUID, action model.Action, meta map[string]string)
}

// Nop drops events.
type Nop struct{}

func (Nop) Track(uuid.UUID, uuid.UUID, model.Action, map[string]string) {}

// Recorder writes events through the worker pool.
type Recorder struct {
	repo repository.ActivityRepository
	pool workerpool.Submitter
	log  *zap.Logger
	now  func() time.Time
}

var _ Tracker = (*Recorder)(nil)

// NewRecorder builds a pool-backed recorder.
func NewRecorder(repo repository.ActivityRepository, pool workerpool.Submitter, log *zap.Logger) *Recorder {
	return &Recorder{repo: repo, pool: pool, log: log.Named("activity"), now: time.Now}
}

// Track queues one event.
func (r *Recorder) Track(userID, noteID uuid.UUID, action model.Action, meta map[string]string) {
	ev := model.ActivityEvent{
		UserID:    userID,
		NoteID:    noteID,
		Action:    action,
		Metadata:  meta,
		CreatedAt: r.now().UTC(),
	}
	err := r.pool.Submit("activity", func(ctx context.Context) error {
		return r.repo.InsertActivity(ctx, ev)
	})
	if err != nil {
		r.log.Warn("activity dropped",
			zap.String("noteId", noteID.String()),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
