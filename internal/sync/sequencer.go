package sync

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/contenthub/hubsync/internal/artifact"
)

// run executes one batch per artifact category, in dependency order. A batch
// starts only after every item of the previous one reached a terminal state.
// Failures in one category never prevent the next from running.
func (e *Engine) run(ctx context.Context, scope Scope) (Result, error) {
	types, err := e.resolve(scope)
	if err != nil {
		return Result{}, err
	}

	var (
		total Result
		errs  []error
	)
	for _, c := range artifact.Categories() {
		var batch []artifact.Type
		for _, t := range artifact.TypesIn(c) {
			if slices.Contains(types, t) {
				batch = append(batch, t)
			}
		}
		if len(batch) == 0 {
			continue
		}
		if ctx.Err() != nil {
			slog.Warn("sync", "op", scope.Direction, "category", c, "status", "not started", "error", ctx.Err())
			continue
		}

		slog.Debug("sync", "op", scope.Direction, "category", c, "types", batch)
		res, err := e.runBatch(ctx, scope, batch)
		total.Merge(res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}
