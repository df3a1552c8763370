package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

type timeoutBackend struct {
	next    Backend
	timeout time.Duration
}

// WithTimeout bounds every Execute call of b. Expiry is reported as
// ErrTimeout so callers treat it like any other backend failure.
// A non-positive timeout returns b unchanged.
func WithTimeout(b Backend, timeout time.Duration) Backend {
	if timeout <= 0 {
		return b
	}
	return &timeoutBackend{next: b, timeout: timeout}
}

func (t *timeoutBackend) Execute(ctx context.Context, task models.Task) (*Result, error) {
	tctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.next.Execute(tctx, task)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return result, fmt.Errorf("%w after %s: task %s", ErrTimeout, t.timeout, task.ID)
	}
	return result, err
}
