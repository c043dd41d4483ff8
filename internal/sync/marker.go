package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/contenthub/hubsync/internal/artifact"
)

// MarkerType is the dot-suffix inserted before the extension of a side-by-side file.
type MarkerType string

// Conflict marks the copy of content that could not be synced because the other side moved on.
const Conflict MarkerType = ".conflict"

// rotated markers sort lexicographically by time
const (
	timeFormat       = "20060102150405"
	timestampPattern = `\d{14}`
)

// the marker sits right before the extension, optionally followed by a rotation timestamp
var conflictRegex = regexp.MustCompile(regexp.QuoteMeta(string(Conflict)) + `(\.` + timestampPattern + `)?(\.[^.]+)?$`)

// MarkedPath returns the conflict path for p: "content/a.json" -> "content/a.conflict.json".
func MarkedPath(p string) string {
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext) + string(Conflict) + ext
}

// rotatedPath returns "content/a.conflict.20250712234500.json" for a marked path.
func rotatedPath(marked string, at time.Time) string {
	ext := path.Ext(marked)
	return fmt.Sprintf("%s.%s%s", strings.TrimSuffix(marked, ext), at.Format(timeFormat), ext)
}

// IsMarkedPath reports whether p is a conflict file, rotated or not.
func IsMarkedPath(p string) bool {
	return conflictRegex.MatchString(path.Base(p))
}

// writeMarker stores payload next to canonical without touching canonical. An
// existing marker is rotated out of the way first when the accessor can rename.
func writeMarker(ctx context.Context, local artifact.LocalAccessor, canonical string, payload *artifact.Payload, now time.Time) (string, error) {
	marked := MarkedPath(canonical)

	if r, ok := local.(artifact.Renamer); ok && r.Exists(marked) {
		rotated := rotatedPath(marked, now)
		if err := r.Rename(marked, rotated); err != nil {
			return "", fmt.Errorf("rotate %s to %s: %w", marked, rotated, err)
		}
		slog.Debug("sync", "op", "rotate marker", "from", marked, "to", rotated)
	}

	copied := *payload
	copied.Descriptor.Path = marked
	if err := local.Write(ctx, marked, &copied); err != nil {
		return "", fmt.Errorf("write marker %s: %w", marked, err)
	}
	return marked, nil
}
