package artifact

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategories_CoverEveryTypeOnce(t *testing.T) {
	seen := make(map[Type]Category)
	for _, c := range Categories() {
		for _, typ := range TypesIn(c) {
			_, dup := seen[typ]
			require.False(t, dup, "type %s listed twice", typ)
			seen[typ] = c
		}
	}
	assert.Len(t, seen, len(AllTypes()))
}

func TestCategories_ReferencedTypesComeFirst(t *testing.T) {
	pos := make(map[Category]int)
	for i, c := range Categories() {
		pos[c] = i
	}
	assert.Less(t, pos[CategoryTaxonomy], pos[CategoryContentModel])
	assert.Less(t, pos[CategoryAssets], pos[CategoryContent])
	assert.Less(t, pos[CategoryContentModel], pos[CategoryContent])
	assert.Less(t, pos[CategoryContent], pos[CategoryStructure])
}

func TestParseType(t *testing.T) {
	typ, err := ParseType(" Content ")
	require.NoError(t, err)
	assert.Equal(t, TypeContent, typ)
	assert.Equal(t, KindJSON, typ.Kind())
	assert.Equal(t, KindBinary, TypeAssets.Kind())

	_, err = ParseType("widgets")
	assert.Error(t, err)
}

func TestTypeOfPath(t *testing.T) {
	typ, ok := TypeOfPath("content/blog/item.json")
	assert.True(t, ok)
	assert.Equal(t, TypeContent, typ)

	_, ok = TypeOfPath("unknown/item.json")
	assert.False(t, ok)
}

func TestDescriptor_Draft(t *testing.T) {
	d := Descriptor{ID: "abc:draft"}
	assert.True(t, d.IsDraft())
	assert.Equal(t, "abc", d.DraftOf())

	d = Descriptor{ID: "abc", Status: StatusDraft}
	assert.True(t, d.IsDraft())
	assert.Equal(t, "abc", d.DraftOf())

	d = Descriptor{ID: "abc", Status: StatusReady}
	assert.False(t, d.IsDraft())
}

type nopLocal struct{}

func (nopLocal) List(context.Context) ([]Descriptor, error) { return nil, nil }
func (nopLocal) Read(context.Context, string) (*Payload, error) { return nil, ErrNotFound }
func (nopLocal) Write(context.Context, string, *Payload) error { return nil }
func (nopLocal) Delete(context.Context, string) error { return nil }

type nopRemote struct{}

func (nopRemote) List(context.Context, *time.Time) ([]Descriptor, error) { return nil, nil }
func (nopRemote) Get(context.Context, string) (*Payload, error) { return nil, ErrNotFound }
func (nopRemote) Create(context.Context, *Payload) (*WriteResult, error) { return &WriteResult{}, nil }
func (nopRemote) Update(context.Context, string, string, *Payload) (*WriteResult, error) {
	return &WriteResult{}, nil
}
func (nopRemote) Delete(context.Context, string) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(TypePages, nopLocal{}, nopRemote{}))
	require.NoError(t, r.Register(TypeCategories, nopLocal{}, nopRemote{}))

	assert.Error(t, r.Register("widgets", nopLocal{}, nopRemote{}))
	assert.Error(t, r.Register(TypeContent, nil, nopRemote{}))

	assert.Equal(t, []Type{TypeCategories, TypePages}, r.Types())
	_, ok := r.Get(TypeContent)
	assert.False(t, ok)
}
