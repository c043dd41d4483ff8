// Package sync pushes and pulls content hub artifacts between a working
// directory and the remote service. It decides per item what changed using the
// Change Index, runs items through the push/pull state machine on a bounded
// worker pool, and sequences artifact categories in dependency order.
package sync

import (
	"context"
	"time"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/index"
)

// Engine is the entry point for push and pull. It holds no per-request state;
// everything request specific travels in the Scope.
type Engine struct {
	registry *artifact.Registry
	index    *index.Index
	sinks    []Sink
	now      func() time.Time
}

type Option func(*Engine)

// WithSink registers a progress sink. It may be given more than once.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		e.sinks = append(e.sinks, s)
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(registry *artifact.Registry, idx *index.Index, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		index:    idx,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Push sends local changes to the remote service. The returned error is a
// ValidationError for an illegal scope, or a failure to persist the index or
// the output manifest; per-item failures are only reported in the Result.
func (e *Engine) Push(ctx context.Context, scope Scope) (Result, error) {
	scope.Direction = DirectionPush
	return e.run(ctx, scope)
}

// Pull fetches remote changes into the working directory. Errors are reported as for Push.
func (e *Engine) Pull(ctx context.Context, scope Scope) (Result, error) {
	scope.Direction = DirectionPull
	return e.run(ctx, scope)
}

// Plan is the candidate set a sync would operate on, without syncing anything.
type Plan struct {
	Direction Direction
	Items     map[artifact.Type][]artifact.Descriptor
	// Problems are items that would fail before being sent, such as manifest entries that no longer exist.
	Problems []ItemResult
}

func (p *Plan) Len() int {
	n := 0
	for _, items := range p.Items {
		n += len(items)
	}
	return n
}

// Plan returns the candidates scope selects in its direction.
func (e *Engine) Plan(ctx context.Context, scope Scope) (*Plan, error) {
	types, err := e.resolve(scope)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Direction: scope.Direction, Items: make(map[artifact.Type][]artifact.Descriptor)}
	for _, t := range types {
		acc, _ := e.registry.Get(t)
		sel := e.selectCandidates(ctx, scope, t, acc)
		if len(sel.items) > 0 {
			plan.Items[t] = sel.items
		}
		plan.Problems = append(plan.Problems, sel.problems...)
	}
	return plan, nil
}

// resolve validates scope and returns the registered types it covers.
func (e *Engine) resolve(scope Scope) ([]artifact.Type, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var types []artifact.Type
	for _, t := range scope.ResolvedTypes() {
		if _, ok := e.registry.Get(t); ok {
			types = append(types, t)
		} else if !scope.All {
			return nil, invalid("types", "no accessor registered for %q", t)
		}
	}
	if len(types) == 0 {
		return nil, invalid("types", "no registered artifact types in scope")
	}
	return types, nil
}
