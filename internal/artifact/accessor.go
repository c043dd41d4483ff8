package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRevConflict is returned by RemoteAccessor.Update when the supplied
	// revision no longer matches the remote revision.
	ErrRevConflict = errors.New("artifact: revision conflict")
	// ErrNotFound is returned when an item does not exist.
	ErrNotFound = errors.New("artifact: not found")
)

// LocalAccessor enumerates and reads/writes the items of one artifact type in
// the working directory. Implementations must be safe for concurrent use.
type LocalAccessor interface {
	List(ctx context.Context) ([]Descriptor, error)
	Read(ctx context.Context, path string) (*Payload, error)
	// Write must be atomic: a crash never leaves a half-written item.
	Write(ctx context.Context, path string, payload *Payload) error
	Delete(ctx context.Context, path string) error
}

// RemoteAccessor enumerates and reads/writes the items of one artifact type on
// the remote service. Implementations must be safe for concurrent use.
type RemoteAccessor interface {
	// List returns all items, or only those modified after modifiedSince when it is non-nil.
	List(ctx context.Context, modifiedSince *time.Time) ([]Descriptor, error)
	Get(ctx context.Context, id string) (*Payload, error)
	Create(ctx context.Context, payload *Payload) (*WriteResult, error)
	// Update fails with an error wrapping ErrRevConflict on revision mismatch.
	Update(ctx context.Context, id, rev string, payload *Payload) (*WriteResult, error)
	Delete(ctx context.Context, id string) error
}

// DraftLister is an optional RemoteAccessor capability returning the ids of
// ready items that have an unresolved draft.
type DraftLister interface {
	ListDrafts(ctx context.Context) ([]string, error)
}

// Renamer is an optional LocalAccessor capability used to rotate side-by-side
// conflict artifacts.
type Renamer interface {
	Exists(path string) bool
	Rename(from, to string) error
}

// Accessors pairs the local and remote accessor of one artifact type.
type Accessors struct {
	Local  LocalAccessor
	Remote RemoteAccessor
}

// Registry maps artifact types to their accessors. A registry is built once per
// invocation and handed to the engine; there is no process-wide instance.
type Registry struct {
	byType map[Type]Accessors
}

func NewRegistry() *Registry {
	return &Registry{byType: make(map[Type]Accessors)}
}

// Register adds the accessors for t, replacing any previous registration.
func (r *Registry) Register(t Type, local LocalAccessor, remote RemoteAccessor) error {
	if !t.Valid() {
		return fmt.Errorf("register: unknown artifact type %q", t)
	}
	if local == nil || remote == nil {
		return fmt.Errorf("register %s: local and remote accessors are required", t)
	}
	r.byType[t] = Accessors{Local: local, Remote: remote}
	return nil
}

// Get returns the accessors registered for t.
func (r *Registry) Get(t Type) (Accessors, bool) {
	a, ok := r.byType[t]
	return a, ok
}

// Types returns the registered types in dependency order.
func (r *Registry) Types() []Type {
	var out []Type
	for _, t := range typeOrder {
		if _, ok := r.byType[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
