package enrich

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/repository"
	"github.com/and161185/notekeeper/internal/workerpool"
)

// Scheduler queues a note for background analysis.
type Scheduler interface {
	Schedule(noteID uuid.UUID, title, content string)
}

// Nop discards every request.
type Nop struct{}

func (Nop) Schedule(uuid.UUID, string, string) {}

// Hook runs analysis on the worker pool and persists the result.
type Hook struct {
	client Client
	store  repository.EnrichmentRepository
	pool   workerpool.Submitter
	log    *zap.Logger
	now    func() time.Time
}

var _ Scheduler = (*Hook)(nil)

// NewHook wires the analysis client to storage.
func NewHook(client Client, store repository.EnrichmentRepository, pool workerpool.Submitter, log *zap.Logger) *Hook {
	return &Hook{client: client, store: store, pool: pool, log: log.Named("enrich"), now: time.Now}
}

// Schedule hands the note to the pool. A full pool drops the task.
func (h *Hook) Schedule(noteID uuid.UUID, title, content string) {
	err := h.pool.Submit("enrich", func(ctx context.Context) error {
		return h.run(ctx, Request{NoteID: noteID, Title: title, Content: content})
	})
	if err != nil {
		h.log.Warn("enrichment dropped", zap.String("noteId", noteID.String()), zap.Error(err))
	}
}

func (h *Hook) run(ctx context.Context, req Request) error {
	resp, err := h.client.Analyze(ctx, req)
	if err != nil {
		return err
	}
	if resp.Keywords == nil {
		resp.Keywords = []string{}
	}
	return h.store.SaveEnrichment(ctx, model.Enrichment{
		NoteID:    req.NoteID,
		Keywords:  resp.Keywords,
		Summary:   resp.Summary,
		Sentiment: resp.Sentiment,
		UpdatedAt: h.now().UTC(),
	})
}
