package grpcserver

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

type ctxKey struct{}

// WithUserID stores the authenticated caller in context.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// UserIDFromCtx fetches the caller stored by WithUserID.
func UserIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
