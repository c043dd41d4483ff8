package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/index"
	"github.com/contenthub/hubsync/internal/manifest"
	"github.com/contenthub/hubsync/internal/queue"
)

const (
	priorityRoot  = 0
	priorityChild = 1
)

// watermarkOverlap is subtracted from the newest listed remote time so items
// committed with slightly older timestamps are listed again next time.
// IsRemotelyModified drops the ones already synced.
const watermarkOverlap = time.Minute

type job struct {
	orch *orchestrator
	desc artifact.Descriptor
}

func (j job) run(ctx context.Context, dir Direction) ItemResult {
	if dir == DirectionPush {
		return j.orch.push(ctx, j.desc)
	}
	return j.orch.pull(ctx, j.desc)
}

// outcome is what the collector learned about a batch beyond the counts.
type outcome struct {
	result    Result
	succeeded []artifact.Descriptor
	// unsettled holds types with at least one item that did not succeed
	unsettled mapset.Set[artifact.Type]
}

// runBatch selects and syncs the candidates of types as one batch. The index is
// flushed before returning, whatever happened to individual items.
func (e *Engine) runBatch(ctx context.Context, scope Scope, types []artifact.Type) (res Result, err error) {
	defer func() {
		if ferr := e.index.Flush(); ferr != nil {
			err = errors.Join(err, ferr)
		}
	}()

	pq := queue.NewPriorityQueue[job]()
	var early []ItemResult
	latest := make(map[artifact.Type]time.Time, len(types))

	for _, t := range types {
		acc, _ := e.registry.Get(t)
		sel := e.selectCandidates(ctx, scope, t, acc)
		early = append(early, sel.problems...)
		latest[t] = sel.latest
		if len(sel.items) == 0 {
			continue
		}

		orch := &orchestrator{
			typ:    t,
			local:  acc.Local,
			remote: acc.Remote,
			index:  e.index,
			now:    e.now,
		}
		if scope.Direction == DirectionPush {
			orch.drafts = loadDraftGuard(ctx, t, acc.Remote, e.index)
		}
		for _, d := range sel.items {
			prio := priorityRoot
			if d.ParentID != "" {
				prio = priorityChild
			}
			pq.Enqueue(job{orch: orch, desc: d}, prio)
		}
	}

	jobs := pq.DequeueAll()
	slog.Debug("sync", "op", "batch", "direction", scope.Direction, "types", types, "candidates", len(jobs), "problems", len(early))

	results := make(chan ItemResult, len(jobs)+len(early))
	done := make(chan outcome, 1)
	go e.collect(scope.Direction, results, done)

	for _, ir := range early {
		results <- ir
	}

	var g errgroup.Group
	g.SetLimit(scope.concurrency())
	for _, j := range jobs {
		if ctx.Err() != nil {
			results <- skipped(j.desc)
			continue
		}
		// Go blocks while the pool is full
		g.Go(func() error {
			if ctx.Err() != nil {
				results <- skipped(j.desc)
				return nil
			}
			// started items run to completion even if the caller shuts down
			results <- j.run(context.WithoutCancel(ctx), scope.Direction)
			return nil
		})
	}
	_ = g.Wait()

	if scope.Direction == DirectionPull && scope.DeleteMissing && scope.mode() != ModeManifest && ctx.Err() == nil {
		for _, t := range types {
			acc, _ := e.registry.Get(t)
			e.deleteMissing(ctx, scope, t, acc, results)
		}
	}

	close(results)
	out := <-done
	res = out.result

	if scope.Direction == DirectionPull && scope.mode() != ModeManifest && scope.PathFilter == "" {
		for _, t := range types {
			if !out.unsettled.Contains(t) {
				e.advanceWatermark(t, latest[t])
			}
		}
	}

	if scope.WriteManifest != "" && len(out.succeeded) > 0 {
		if merr := writeManifest(scope.WriteManifest, out.succeeded); merr != nil {
			err = errors.Join(err, merr)
		}
	}

	slog.Info("sync", "op", "batch", "direction", scope.Direction, "types", types,
		"succeeded", res.Succeeded, "conflicted", res.Conflicted, "rejected", res.Rejected,
		"failed", res.Failed, "skipped", res.Skipped, "deleted", res.Deleted)
	return res, err
}

// advanceWatermark moves the pull watermark of t forward to the newest remote
// time seen, minus the overlap. Only remote timestamps are used, so a skewed
// local clock cannot hide remote changes.
func (e *Engine) advanceWatermark(t artifact.Type, latest time.Time) {
	if latest.IsZero() {
		return
	}
	next := latest.Add(-watermarkOverlap)
	if cur, ok := e.index.Watermark(t); ok && !next.After(cur) {
		return
	}
	e.index.SetWatermark(t, next)
}

// collect is the only reader of results. It aggregates counts and notifies
// sinks, so events leave in completion order.
func (e *Engine) collect(dir Direction, results <-chan ItemResult, done chan<- outcome) {
	out := outcome{unsettled: mapset.NewThreadUnsafeSet[artifact.Type]()}
	for ir := range results {
		out.result.add(ir)
		switch ir.State {
		case StateSucceeded:
			out.succeeded = append(out.succeeded, ir.Descriptor)
		case StateDeleted:
		default:
			out.unsettled.Add(ir.Descriptor.Type)
		}

		ev := newEvent(dir, ir, e.now())
		for _, s := range e.sinks {
			s.Notify(ev)
		}
	}
	done <- out
}

func skipped(desc artifact.Descriptor) ItemResult {
	return ItemResult{
		Descriptor: desc,
		State:      StateSkipped,
		Err:        context.Canceled,
	}
}

// deleteMissing removes local items whose remote counterpart disappeared. Locally
// modified items are kept and reported as conflicted.
func (e *Engine) deleteMissing(ctx context.Context, scope Scope, t artifact.Type, acc artifact.Accessors, results chan<- ItemResult) {
	listed, err := acc.Remote.List(ctx, nil)
	if err != nil {
		desc := artifact.Descriptor{Type: t, Path: t.Dir()}
		results <- ItemResult{Descriptor: desc, State: StateFailed, Err: newItemError(ErrTransport, desc.Path, fmt.Errorf("list remote: %w", err))}
		return
	}
	present := mapset.NewThreadUnsafeSet[string]()
	for _, d := range listed {
		present.Add(d.ID)
	}

	for _, entry := range e.index.Entries(t) {
		if entry.ID == "" || present.Contains(entry.ID) || !scope.matches(entry.Path) {
			continue
		}
		results <- e.deleteLocal(ctx, t, acc.Local, entry)
	}
}

func (e *Engine) deleteLocal(ctx context.Context, t artifact.Type, local artifact.LocalAccessor, entry index.Entry) ItemResult {
	res := ItemResult{
		Descriptor: artifact.Descriptor{Type: t, ID: entry.ID, Path: entry.Path, Rev: entry.Rev, Status: entry.Status},
		State:      StateDeleted,
	}

	current, err := local.Read(ctx, entry.Path)
	switch {
	case errors.Is(err, artifact.ErrNotFound):
	case err != nil:
		res.State = StateFailed
		res.Err = newItemError(ErrRead, entry.Path, err)
		return res
	default:
		modified, _ := index.IsLocallyModified(&entry, current.Descriptor.LastModified, func() ([]byte, error) {
			return current.Content, nil
		})
		if modified {
			res.State = StateConflicted
			res.Err = newItemError(ErrConflict, entry.Path, errors.New("deleted remotely but modified locally"))
			return res
		}
		if err := local.Delete(ctx, entry.Path); err != nil {
			res.State = StateFailed
			res.Err = newItemError(ErrWrite, entry.Path, err)
			return res
		}
	}

	if err := e.index.Remove(t, entry.Path); err != nil {
		res.State = StateFailed
		res.Err = newItemError(ErrWrite, entry.Path, err)
	}
	return res
}

// writeManifest records every succeeded item in the manifest at path, creating it if needed.
func writeManifest(path string, items []artifact.Descriptor) error {
	m, err := manifest.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		m = manifest.New(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	} else if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	for _, d := range items {
		m.Add(d.Type, d.ID, d.Path)
	}
	if err := m.Save(path); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
