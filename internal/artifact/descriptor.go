package artifact

import (
	"strings"
	"time"
)

// Status is the remote lifecycle state of an editable item.
type Status string

const (
	StatusNone  Status = ""
	StatusDraft Status = "draft"
	StatusReady Status = "ready"
)

// draftSuffix marks the id of a draft that shadows a ready item.
const draftSuffix = ":draft"

// Descriptor is the transient description of one item produced by an accessor.
// Accessors own it; the engine never persists it.
type Descriptor struct {
	Type         Type      `json:"type"`
	ID           string    `json:"id,omitempty"`
	Path         string    `json:"path"`
	Rev          string    `json:"rev,omitempty"`
	Status       Status    `json:"status,omitempty"`
	ParentID     string    `json:"parentId,omitempty"`
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size,omitempty"`
}

// Key returns the identity used for logs and details: the path when known,
// otherwise the remote id.
func (d *Descriptor) Key() string {
	if d.Path != "" {
		return d.Path
	}
	return d.ID
}

// IsDraft reports whether the descriptor describes a draft.
func (d *Descriptor) IsDraft() bool {
	return d.Status == StatusDraft || IsDraftID(d.ID)
}

// DraftOf returns the id of the ready item this draft shadows.
func (d *Descriptor) DraftOf() string {
	return DraftBase(d.ID)
}

// IsDraftID reports whether id names a draft shadowing another item ("X:draft").
func IsDraftID(id string) bool {
	return strings.HasSuffix(id, draftSuffix)
}

// DraftBase returns the id a draft id shadows, or id unchanged.
func DraftBase(id string) string {
	return strings.TrimSuffix(id, draftSuffix)
}

// Payload carries an item's bytes together with its descriptor.
type Payload struct {
	Descriptor Descriptor
	Content    []byte
}

// WriteResult is what the remote service returns after a create or update.
type WriteResult struct {
	ID           string
	Rev          string
	LastModified time.Time
}
