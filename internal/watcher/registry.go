package watcher

import (
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"

	"rewatch/internal/stat"
)

// target is one watched path.
type target struct {
	key         string
	displayName string
	groupKey    string
	// wholeDir targets were directories when registered and own their group;
	// every other target is a file target inside filepath.Dir(key).
	wholeDir bool
	stat     stat.Stat
}

func (t *target) kind() Kind {
	return kindOf(t.stat)
}

// canonical resolves path to a clean absolute form. Resolution failures fall
// back to the cleaned input rather than failing the call.
func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func (w *Watcher) displayName(path, key string) string {
	if w.opts.FullName {
		return key
	}
	return path
}

// Watch starts watching path. Watching a path twice is a no-op, and paths that
// do not exist yet are accepted and discovered later.
func (w *Watcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	key := canonical(path)
	w.watchLocked(key, w.displayName(path, key))
	return nil
}

// Unwatch stops watching path. Unknown paths are ignored.
func (w *Watcher) Unwatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	w.unwatchLocked(canonical(path))
	return nil
}

// GetStat returns the cached stat of a watched path without touching the filesystem.
func (w *Watcher) GetStat(path string) (stat.Stat, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.targets[canonical(path)]
	if !ok {
		return stat.Stat{}, false
	}
	return t.stat.Clone(), true
}

func (w *Watcher) watchLocked(key, displayName string) *target {
	if t, ok := w.targets[key]; ok {
		return t
	}

	st := w.probe(key)
	t := &target{
		key:         key,
		displayName: displayName,
		stat:        st,
	}
	if st.Exists && st.IsDir {
		t.wholeDir = true
		t.groupKey = key
	} else {
		t.groupKey = filepath.Dir(key)
	}

	g, ok := w.groups[t.groupKey]
	if !ok {
		g = w.newGroup(t.groupKey)
	}
	if t.wholeDir {
		g.wholeDir = true
	} else {
		g.fileRefs++
	}

	w.targets[key] = t
	w.updateSizes()
	return t
}

func (w *Watcher) unwatchLocked(key string) {
	t, ok := w.targets[key]
	if !ok {
		return
	}
	delete(w.targets, key)

	if g, ok := w.groups[t.groupKey]; ok {
		if t.wholeDir {
			g.wholeDir = false
		} else if g.fileRefs > 0 {
			g.fileRefs--
		}
		if !g.alive() {
			w.destroyGroup(g)
		}
	}
	w.updateSizes()
}

func (w *Watcher) resetLocked() error {
	var result error
	for _, key := range w.groupKeys() {
		if err := w.closeGroup(w.groups[key]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	w.groups = make(map[string]*group)
	w.targets = make(map[string]*target)
	w.updateSizes()
	return result
}

// filesIn returns the file targets of a group in key order.
func (w *Watcher) filesIn(g *group) []*target {
	var files []*target
	for _, t := range w.targets {
		if !t.wholeDir && t.groupKey == g.key {
			files = append(files, t)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].key < files[j].key
	})
	return files
}

func (w *Watcher) groupKeys() []string {
	keys := make([]string, 0, len(w.groups))
	for key := range w.groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
