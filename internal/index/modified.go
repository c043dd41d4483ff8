package index

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/contenthub/hubsync/internal/artifact"
)

// HashBytes returns the content fingerprint stored in Entry.ContentHash. It is
// xxhash64 and only meant for change detection.
func HashBytes(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// IsLocallyModified reports whether the local item differs from what was last
// synced. An mtime at or before the last local sync skips reading entirely;
// otherwise read is called and the content hash decides.
func IsLocallyModified(e *Entry, mtime time.Time, read func() ([]byte, error)) (bool, error) {
	if e == nil {
		return true, nil
	}
	if !mtime.IsZero() && !mtime.After(e.LastSyncedLocalTime) {
		return false, nil
	}
	data, err := read()
	if err != nil {
		return false, err
	}
	return IsLocallyModifiedBytes(e, data), nil
}

// IsLocallyModifiedBytes compares data with the hash recorded in e.
func IsLocallyModifiedBytes(e *Entry, data []byte) bool {
	if e == nil {
		return true
	}
	return HashBytes(data) != e.ContentHash
}

// IsRemotelyModified reports whether the remote item moved past what was last synced.
func IsRemotelyModified(e *Entry, remote *artifact.Descriptor) bool {
	if e == nil {
		return true
	}
	if remote.Rev != e.Rev {
		return true
	}
	return remote.LastModified.After(e.LastSyncedRemoteTime)
}
