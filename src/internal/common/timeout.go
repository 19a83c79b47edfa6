package common

import (
	"context"
	"time"

	"shader-lsp/src/internal/constants"
)

func CreateContext(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func CreateContextWithDefault() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), constants.DefaultRequestTimeout)
}

// WithTimeout bounds ctx by d unless ctx already carries an earlier deadline.
// A non-positive d leaves ctx unbounded.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < d {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
