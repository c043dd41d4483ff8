package sync

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/index"
)

// testClock ticks one millisecond on every read so that successive writes
// and commits are strictly ordered.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type localFile struct {
	content []byte
	mtime   time.Time
}

// memLocal is an in-memory LocalAccessor that reads id, status and parentId
// from JSON documents the way the filesystem accessor does.
type memLocal struct {
	mu    sync.Mutex
	typ   artifact.Type
	clock *testClock
	files map[string]localFile
	// failWrite makes Write fail for the given path
	failWrite map[string]bool
}

func newMemLocal(t artifact.Type, clock *testClock) *memLocal {
	return &memLocal{typ: t, clock: clock, files: make(map[string]localFile), failWrite: make(map[string]bool)}
}

func (l *memLocal) put(path, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files[path] = localFile{content: []byte(content), mtime: l.clock.Now()}
}

func (l *memLocal) content(path string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.files[path]
	return string(f.content), ok
}

func (l *memLocal) describe(path string, f localFile) artifact.Descriptor {
	d := artifact.Descriptor{Type: l.typ, Path: path, LastModified: f.mtime, Size: int64(len(f.content))}
	var doc struct {
		ID       string          `json:"id"`
		Status   artifact.Status `json:"status"`
		ParentID string          `json:"parentId"`
	}
	if json.Unmarshal(f.content, &doc) == nil {
		d.ID, d.Status, d.ParentID = doc.ID, doc.Status, doc.ParentID
	}
	return d
}

func (l *memLocal) List(context.Context) ([]artifact.Descriptor, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []artifact.Descriptor
	for _, p := range slices.Sorted(maps.Keys(l.files)) {
		if IsMarkedPath(p) {
			continue
		}
		out = append(out, l.describe(p, l.files[p]))
	}
	return out, nil
}

func (l *memLocal) Read(_ context.Context, path string) (*artifact.Payload, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, artifact.ErrNotFound)
	}
	return &artifact.Payload{Descriptor: l.describe(path, f), Content: slices.Clone(f.content)}, nil
}

func (l *memLocal) Write(_ context.Context, path string, p *artifact.Payload) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWrite[path] {
		return fmt.Errorf("write %s: disk full", path)
	}
	l.files[path] = localFile{content: slices.Clone(p.Content), mtime: l.clock.Now()}
	return nil
}

func (l *memLocal) Delete(_ context.Context, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.files, path)
	return nil
}

func (l *memLocal) Exists(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.files[path]
	return ok
}

func (l *memLocal) Rename(from, to string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.files[from]
	if !ok {
		return artifact.ErrNotFound
	}
	delete(l.files, from)
	l.files[to] = f
	return nil
}

type remoteItem struct {
	path     string
	content  []byte
	rev      int
	status   artifact.Status
	parentID string
	modified time.Time
}

// memRemote is an in-memory RemoteAccessor that enforces revisions on update
// and records every call.
type memRemote struct {
	mu     sync.Mutex
	typ    artifact.Type
	clock  *testClock
	items  map[string]*remoteItem
	nextID int
	calls  []string
	// drafts, when non-nil, is returned by ListDrafts
	drafts []string
	// hook runs at the start of every item call, outside the lock
	hook func(op, id string)
	// failWrites makes Create and Update fail
	failWrites error
	// failFullList makes List fail when called without a watermark
	failFullList error
}

func newMemRemote(t artifact.Type, clock *testClock) *memRemote {
	return &memRemote{typ: t, clock: clock, items: make(map[string]*remoteItem)}
}

func (r *memRemote) put(id, path, content string) {
	r.putAt(id, path, content, r.clock.Now())
}

// putAt stamps the change with the remote's own clock reading at.
func (r *memRemote) putAt(id, path, content string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		it = &remoteItem{path: path}
		r.items[id] = it
	}
	it.content = []byte(content)
	it.rev++
	it.modified = at
}

func (r *memRemote) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

func (r *memRemote) record(op, id string) {
	if r.hook != nil {
		r.hook(op, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op+":"+id)
}

func (r *memRemote) itemCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func (r *memRemote) rev(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.items[id]; ok {
		return strconv.Itoa(it.rev)
	}
	return ""
}

func (r *memRemote) descriptor(id string, it *remoteItem) artifact.Descriptor {
	return artifact.Descriptor{
		Type:         r.typ,
		ID:           id,
		Path:         it.path,
		Rev:          strconv.Itoa(it.rev),
		Status:       it.status,
		ParentID:     it.parentID,
		LastModified: it.modified,
		Size:         int64(len(it.content)),
	}
}

func (r *memRemote) List(_ context.Context, since *time.Time) ([]artifact.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if since == nil && r.failFullList != nil {
		return nil, r.failFullList
	}
	var out []artifact.Descriptor
	for _, id := range slices.Sorted(maps.Keys(r.items)) {
		it := r.items[id]
		if since != nil && !it.modified.After(*since) {
			continue
		}
		out = append(out, r.descriptor(id, it))
	}
	return out, nil
}

func (r *memRemote) ListDrafts(context.Context) ([]string, error) {
	return r.drafts, nil
}

func (r *memRemote) Get(_ context.Context, id string) (*artifact.Payload, error) {
	r.record("get", id)
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, artifact.ErrNotFound
	}
	return &artifact.Payload{Descriptor: r.descriptor(id, it), Content: slices.Clone(it.content)}, nil
}

func (r *memRemote) Create(_ context.Context, p *artifact.Payload) (*artifact.WriteResult, error) {
	r.record("create", p.Descriptor.Path)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return nil, r.failWrites
	}
	r.nextID++
	id := fmt.Sprintf("%s-%d", r.typ, r.nextID)
	it := &remoteItem{path: p.Descriptor.Path, content: slices.Clone(p.Content), rev: 1, modified: r.clock.Now()}
	r.items[id] = it
	return &artifact.WriteResult{ID: id, Rev: "1", LastModified: it.modified}, nil
}

func (r *memRemote) Update(_ context.Context, id, rev string, p *artifact.Payload) (*artifact.WriteResult, error) {
	r.record("update", id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return nil, r.failWrites
	}
	it, ok := r.items[id]
	if !ok {
		return nil, artifact.ErrNotFound
	}
	if rev != strconv.Itoa(it.rev) {
		return nil, fmt.Errorf("update %s at rev %s, remote is at %d: %w", id, rev, it.rev, artifact.ErrRevConflict)
	}
	it.content = slices.Clone(p.Content)
	it.rev++
	it.modified = r.clock.Now()
	return &artifact.WriteResult{ID: id, Rev: strconv.Itoa(it.rev), LastModified: it.modified}, nil
}

func (r *memRemote) Delete(_ context.Context, id string) error {
	r.record("delete", id)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

// harness wires fake accessors for a set of types into an engine.
type harness struct {
	clock  *testClock
	index  *index.Index
	local  map[artifact.Type]*memLocal
	remote map[artifact.Type]*memRemote
	engine *Engine
}

func newHarness(t *testing.T, types []artifact.Type, opts ...Option) *harness {
	t.Helper()
	idx, err := index.Load(t.TempDir() + "/.hubsync/" + index.FileName)
	require.NoError(t, err)

	h := &harness{
		clock:  newTestClock(),
		index:  idx,
		local:  make(map[artifact.Type]*memLocal),
		remote: make(map[artifact.Type]*memRemote),
	}
	reg := artifact.NewRegistry()
	for _, typ := range types {
		h.local[typ] = newMemLocal(typ, h.clock)
		h.remote[typ] = newMemRemote(typ, h.clock)
		require.NoError(t, reg.Register(typ, h.local[typ], h.remote[typ]))
	}
	opts = append([]Option{WithClock(h.clock.Now)}, opts...)
	h.engine = NewEngine(reg, idx, opts...)
	return h
}

func scopeOf(mode Mode, types ...artifact.Type) Scope {
	return Scope{Types: types, Mode: mode}
}
