// Package manifest reads and writes explicit item lists. A manifest replaces
// index-driven discovery when selecting which items a sync operates on.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/utils"
)

var ErrUnsupportedFormat = errors.New("manifest: unsupported file extension")

// Item names one manifest entry. Either field may be empty but not both.
type Item struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Key is the value used to deduplicate items.
func (i Item) Key() string {
	if i.ID != "" {
		return "id:" + i.ID
	}
	return "path:" + i.Path
}

type Manifest struct {
	Name  string                   `json:"name" yaml:"name"`
	Items map[artifact.Type][]Item `json:"items" yaml:"items"`

	mu   sync.Mutex
	seen map[artifact.Type]mapset.Set[string]
}

func New(name string) *Manifest {
	return &Manifest{
		Name:  name,
		Items: make(map[artifact.Type][]Item),
	}
}

// Load reads a manifest. The encoding is picked from the file extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}

	m := New("")
	switch format(path) {
	case "json":
		err = json.Unmarshal(data, m)
	case "yaml":
		err = yaml.Unmarshal(data, m)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", path, err)
	}
	if m.Items == nil {
		m.Items = make(map[artifact.Type][]Item)
	}

	for t, items := range m.Items {
		if !t.Valid() {
			return nil, fmt.Errorf("manifest: %s: unknown artifact type %q", path, t)
		}
		for _, it := range items {
			if it.ID == "" && it.Path == "" {
				return nil, fmt.Errorf("manifest: %s: %s item without id or path", path, t)
			}
		}
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return m, nil
}

// Save writes the manifest atomically to path.
func (m *Manifest) Save(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		data []byte
		err  error
	)
	switch format(path) {
	case "json":
		data, err = json.MarshalIndent(m, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(m)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("manifest: save %s: %w", path, err)
	}
	return nil
}

// Add appends an item unless an item with the same id (or path when id is
// empty) is already listed for t. It reports whether the item was added.
func (m *Manifest) Add(t artifact.Type, id, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Items == nil {
		m.Items = make(map[artifact.Type][]Item)
	}
	if m.seen == nil {
		m.seen = make(map[artifact.Type]mapset.Set[string])
	}
	seen, ok := m.seen[t]
	if !ok {
		seen = mapset.NewThreadUnsafeSet[string]()
		for _, it := range m.Items[t] {
			seen.Add(it.Key())
		}
		m.seen[t] = seen
	}

	it := Item{ID: id, Path: utils.NormPath(path)}
	if path == "" {
		it.Path = ""
	}
	if !seen.Add(it.Key()) {
		return false
	}
	m.Items[t] = append(m.Items[t], it)
	return true
}

// ItemsOf returns a copy of the items listed for t.
func (m *Manifest) ItemsOf(t artifact.Type) []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Items[t])
}

// Types returns the types with at least one item, in dependency order.
func (m *Manifest) Types() []artifact.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []artifact.Type
	for _, t := range artifact.AllTypes() {
		if len(m.Items[t]) > 0 {
			out = append(out, t)
		}
	}
	return out
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}
