package watcher

import (
	"sort"

	"rewatch/internal/stat"
)

// Entry is the saved state of one watched path.
type Entry struct {
	Key         string
	DisplayName string
	Kind        Kind
	Stat        stat.Stat
}

// Snapshot maps canonical keys to saved entries. It holds no native handles
// and shares no memory with the Watcher it came from.
type Snapshot map[string]Entry

// Keys returns the snapshot keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for key, entry := range s {
		entry.Stat = entry.Stat.Clone()
		out[key] = entry
	}
	return out
}

// Save exports the registry.
func (w *Watcher) Save() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := make(Snapshot, len(w.targets))
	for key, t := range w.targets {
		snap[key] = Entry{
			Key:         t.key,
			DisplayName: t.displayName,
			Kind:        t.kind(),
			Stat:        t.stat.Clone(),
		}
	}
	return snap
}

// Restore replaces the registry with the paths in snap and reports what
// changed on disk since it was saved: create, remove, or change when content
// (fingerprint when validating, size and mtime otherwise) differs.
func (w *Watcher) Restore(snap Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.resetLocked(); err != nil {
		w.logger.Warn("restore: closing handles", "error", err)
	}

	for _, key := range snap.Keys() {
		entry := snap[key]
		if entry.Key == "" {
			entry.Key = key
		}
		displayName := entry.DisplayName
		if displayName == "" {
			displayName = w.displayName(entry.Key, entry.Key)
		}

		t := w.watchLocked(entry.Key, displayName)

		kind := existenceChange(entry.Stat, t.stat)
		if kind == "" && t.stat.Exists && !stat.SameContent(entry.Stat, t.stat, w.opts.Validate) {
			kind = Change
		}
		if kind != "" {
			st := t.stat.Clone()
			w.emit(kind, t.displayName, &st)
		}
	}
	return nil
}
