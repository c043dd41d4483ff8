package sync

import (
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/manifest"
)

// DefaultConcurrency is the worker pool size used when Scope.Concurrency is zero.
const DefaultConcurrency = 4

type Direction string

const (
	DirectionPush Direction = "push"
	DirectionPull Direction = "pull"
)

// Mode selects how candidates are chosen.
type Mode string

const (
	// ModeModifiedOnly selects items that differ from the Change Index.
	ModeModifiedOnly Mode = "modified-only"
	// ModeAll selects every enumerated item, ignoring the Change Index.
	ModeAll Mode = "all"
	// ModeManifest selects exactly the items listed in Scope.Manifest.
	ModeManifest Mode = "manifest"
)

// Scope is the request-scoped description of one push or pull. It is built
// once per invocation and passed by value; the engine never mutates it.
type Scope struct {
	Types     []artifact.Type
	All       bool
	Direction Direction
	Mode      Mode
	Manifest  *manifest.Manifest
	// PathFilter is a doublestar pattern matched against working directory
	// relative paths, e.g. "content/blog/**".
	PathFilter string
	// DeleteMissing removes unmodified local items whose remote counterpart is gone. Pull only.
	DeleteMissing bool
	// WriteManifest, when set, is the path of a manifest that receives every
	// item that succeeded.
	WriteManifest string
	Concurrency   int
}

func (s Scope) Validate() error {
	switch s.Direction {
	case DirectionPush, DirectionPull:
	default:
		return invalid("direction", "must be %q or %q, got %q", DirectionPush, DirectionPull, s.Direction)
	}

	switch s.Mode {
	case ModeModifiedOnly, ModeAll, ModeManifest, "":
	default:
		return invalid("mode", "unknown selection mode %q", s.Mode)
	}

	if len(s.Types) == 0 && !s.All {
		return invalid("types", "no artifact types given and all not set")
	}
	for _, t := range s.Types {
		if !t.Valid() {
			return invalid("types", "unknown artifact type %q", t)
		}
	}

	if s.Mode == ModeManifest {
		if s.Manifest == nil {
			return invalid("manifest", "manifest mode requires a manifest")
		}
		if s.PathFilter != "" {
			return invalid("filter", "a path filter cannot be combined with a manifest")
		}
	}
	if s.PathFilter != "" && !doublestar.ValidatePattern(s.PathFilter) {
		return invalid("filter", "invalid glob %q", s.PathFilter)
	}

	if s.DeleteMissing && s.Direction == DirectionPush {
		return invalid("delete", "deleting missing items is only supported on pull")
	}
	if s.Concurrency < 0 {
		return invalid("concurrency", "must not be negative, got %d", s.Concurrency)
	}
	return nil
}

// ResolvedTypes returns the types the scope covers, deduplicated and in dependency order.
func (s Scope) ResolvedTypes() []artifact.Type {
	if s.All {
		return artifact.AllTypes()
	}
	var out []artifact.Type
	for _, t := range artifact.AllTypes() {
		if slices.Contains(s.Types, t) {
			out = append(out, t)
		}
	}
	return out
}

func (s Scope) mode() Mode {
	if s.Mode == "" {
		return ModeModifiedOnly
	}
	return s.Mode
}

func (s Scope) concurrency() int {
	if s.Concurrency == 0 {
		return DefaultConcurrency
	}
	return s.Concurrency
}

func (s Scope) matches(path string) bool {
	if s.PathFilter == "" {
		return true
	}
	ok, err := doublestar.Match(s.PathFilter, path)
	return err == nil && ok
}
