package watcher

import (
	"os"
)

// groupState is the native-watch state of a directory group.
type groupState int

const (
	// stateWatching holds a live native handle.
	stateWatching groupState = iota + 1
	// statePending should be watching but the directory is absent or unwatchable.
	statePending
)

func (s groupState) String() string {
	if s == stateWatching {
		return "watching"
	}
	return "pending"
}

// group is one native watch scope, shared by every target in the directory.
// It exists while fileRefs > 0 or wholeDir.
type group struct {
	key      string
	handle   Handle
	dir      os.FileInfo
	fileRefs int
	wholeDir bool
}

func (g *group) alive() bool {
	return g.fileRefs > 0 || g.wholeDir
}

func (g *group) state() groupState {
	if g.handle != nil {
		return stateWatching
	}
	return statePending
}

func (w *Watcher) newGroup(key string) *group {
	g := &group{key: key}
	w.openGroup(g)
	w.groups[key] = g
	return g
}

// openGroup opens the native handle if the directory exists. A failed open
// leaves the group pending; the next sweep retries.
func (w *Watcher) openGroup(g *group) bool {
	info, err := os.Stat(g.key)
	if err != nil || !info.IsDir() {
		return false
	}

	handle, err := w.backend.Open(g.key)
	if err != nil {
		w.logger.Warn("native watch open failed", "dir", g.key, "error", err)
		return false
	}

	g.handle = handle
	g.dir = info
	w.logger.Debug("native watch opened", "dir", g.key)
	return true
}

func (w *Watcher) closeGroup(g *group) error {
	if g.handle == nil {
		return nil
	}
	err := g.handle.Close()
	g.handle = nil
	g.dir = nil
	w.logger.Debug("native watch closed", "dir", g.key)
	return err
}

func (w *Watcher) destroyGroup(g *group) {
	if err := w.closeGroup(g); err != nil {
		w.logger.Warn("native watch close failed", "dir", g.key, "error", err)
	}
	delete(w.groups, g.key)
}

// refreshResult says what a sweep must do for a group after refresh.
type refreshResult int

const (
	// refreshNone: nothing moved.
	refreshNone refreshResult = iota
	// refreshResync: the handle is unchanged but targets must be re-probed,
	// because entries changed or the directory is still unwatchable.
	refreshResync
	// refreshFlipped: the watch state toggled or the handle was reopened.
	refreshFlipped
)

// refresh compares the directory on disk with the group's watch state and
// toggles the handle when they disagree.
//
// A different inode means the directory was replaced and the old kernel watch
// died with it, so the handle is reopened. A same-inode mtime change only
// means entries came or went; the handle stays open. selfMoved is set when the
// native layer reported the directory itself removed or renamed: its watch is
// dead even if a new directory with the same inode took its place.
func (w *Watcher) refresh(g *group, selfMoved bool) refreshResult {
	info, err := os.Stat(g.key)
	exists := err == nil && info.IsDir()

	switch g.state() {
	case stateWatching:
		if exists && !selfMoved && sameDir(g.dir, info) {
			if g.dir.ModTime().Equal(info.ModTime()) {
				return refreshNone
			}
			g.dir = info
			return refreshResync
		}
		if err := w.closeGroup(g); err != nil {
			w.logger.Warn("native watch close failed", "dir", g.key, "error", err)
		}
		if exists {
			w.openGroup(g)
		}
	case statePending:
		if !exists {
			return refreshNone
		}
		if !w.openGroup(g) {
			w.logger.Debug("native watch retry failed, polling", "dir", g.key)
			return refreshResync
		}
	}

	w.metrics.Flip()
	w.logger.Debug("directory flipped", "dir", g.key, "exists", exists, "state", g.state().String())
	return refreshFlipped
}

func sameDir(opened, current os.FileInfo) bool {
	if opened == nil {
		return false
	}
	return os.SameFile(opened, current)
}
