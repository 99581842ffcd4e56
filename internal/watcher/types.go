package watcher

import (
	"errors"
	"log/slog"
	"time"

	"rewatch/internal/hash"
	"rewatch/internal/metrics"
	"rewatch/internal/stat"
)

// EventKind is a normalized change notification.
type EventKind string

const (
	Create EventKind = "create"
	Remove EventKind = "remove"
	Change EventKind = "change"
	Rename EventKind = "rename"
)

// Callback receives one call per detected change. st is the new stat for
// watched paths and nil for uninterpreted directory-level notifications.
//
// It runs while the Watcher is locked and must not call back into the same Watcher.
type Callback func(kind EventKind, path string, st *stat.Stat)

// Kind is what a target was at its last stat.
type Kind int

const (
	KindMissing Kind = iota
	KindFile
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "missing"
	}
}

func kindOf(st stat.Stat) Kind {
	switch {
	case !st.Exists:
		return KindMissing
	case st.IsDir:
		return KindDirectory
	default:
		return KindFile
	}
}

// Options controls watcher behavior. Start from DefaultOptions.
type Options struct {
	// Interval between reconciliation sweeps. Zero or negative disables them.
	Interval time.Duration
	// Validate enables content fingerprints for change suppression and restore.
	Validate bool
	// FullName reports absolute paths instead of paths as given to Watch.
	FullName bool
	// Checksum fingerprints file contents; nil streams through xxHash.
	Checksum hash.Func
	// Backend delivers native events; nil uses fsnotify.
	Backend Backend
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

const defaultInterval = 10 * time.Second

// DefaultOptions returns the documented defaults: a 10s sweep, no validation,
// absolute names.
func DefaultOptions() Options {
	return Options{
		Interval: defaultInterval,
		Validate: false,
		FullName: true,
		Checksum: hash.XXHashFunc,
	}
}

var ErrClosed = errors.New("watcher closed")
