// Package saga runs ordered lists of reversible steps against external
// systems that cannot share a transaction. On failure it unwinds completed
// steps in strict reverse order, best effort. This is compensation, not
// isolation: concurrent observers may see intermediate state during
// rollback.
package saga

import (
	"context"

	domain "github.com/sandvault/sandvault/internal/errors"
	"github.com/sandvault/sandvault/internal/logger"
)

// Step is one reversible unit of work. Perform runs forward; Compensate
// undoes it and may be nil for steps with nothing to undo. The type
// parameter is the result produced by the final step; earlier steps return
// the zero value.
type Step[T any] struct {
	Name       string
	Perform    func(ctx context.Context) (T, error)
	Compensate func(ctx context.Context) error
}

// Do wraps a resultless action into a Step. Most steps in a transaction only
// produce a result at the very end.
func Do[T any](name string, perform func(ctx context.Context) error, compensate func(ctx context.Context) error) Step[T] {
	return Step[T]{
		Name: name,
		Perform: func(ctx context.Context) (T, error) {
			var zero T
			return zero, perform(ctx)
		},
		Compensate: compensate,
	}
}

// Run executes the steps strictly in order and returns the final step's
// result. If step k fails, the compensations for steps k-1..1 run in reverse
// order; compensation failures are logged as warnings and never replace the
// original error, which surfaces wrapped in *errors.TransactionFailed.
func Run[T any](ctx context.Context, log logger.Logger, steps []Step[T]) (T, error) {
	var result T
	for i, step := range steps {
		out, err := step.Perform(ctx)
		if err != nil {
			rollback(ctx, log, steps[:i])
			var zero T
			return zero, &domain.TransactionFailed{Step: step.Name, Cause: err}
		}
		result = out
	}
	return result, nil
}

func rollback[T any](ctx context.Context, log logger.Logger, completed []Step[T]) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			log.WithField("step", step.Name).Warn("compensation failed: " + err.Error())
		}
	}
}
