package watcher

import (
	"bytes"
	"path/filepath"

	"rewatch/internal/stat"
)

// origin tells the classifier who produced a raw event.
type origin int

const (
	fromNative origin = iota
	fromReconcile
)

// existenceChange applies the existence case table:
//
//	old absent,  new present -> create
//	old present, new absent  -> remove
//	both present, both absent -> no existence change ("")
func existenceChange(old, cur stat.Stat) EventKind {
	switch {
	case !old.Exists && cur.Exists:
		return Create
	case old.Exists && !cur.Exists:
		return Remove
	default:
		return ""
	}
}

// classify turns a raw event on group g into at most one callback.
func (w *Watcher) classify(g *group, op Op, name string, from origin) {
	if name == "" {
		w.classifySelf(g, op)
		return
	}

	fullPath := filepath.Join(g.key, name)
	if t, ok := w.targets[fullPath]; ok && !t.wholeDir && t.groupKey == g.key {
		w.classifyFile(t, op, from)
		return
	}

	if g.wholeDir {
		w.emit(normalize(op), fullPath, nil)
	}
}

// classifySelf handles events on the group's own directory. A directory that
// went away or was replaced flips the group right away instead of waiting for
// the next sweep.
func (w *Watcher) classifySelf(g *group, op Op) {
	if op == OpRename {
		switch w.refresh(g, true) {
		case refreshFlipped:
			w.synthesize(g)
			return
		case refreshResync:
			w.synthesize(g)
		}
	}
	if g.wholeDir {
		w.emit(normalize(op), g.key, nil)
	}
}

func (w *Watcher) classifyFile(t *target, op Op, from origin) {
	old := t.stat
	cur := w.probe(t.key)
	// Always keep the latest observation, even when nothing is reported.
	t.stat = cur

	var kind EventKind
	switch op {
	case OpRename:
		kind = w.renameOutcome(old, cur, from)
	case OpChange:
		if w.opts.Validate && cur.Size == old.Size && bytes.Equal(cur.Fingerprint, old.Fingerprint) {
			w.metrics.Suppressed()
			return
		}
		kind = Change
	}

	if kind == "" {
		return
	}
	st := cur.Clone()
	w.emit(kind, t.displayName, &st)
}

// renameOutcome classifies a rename-kind event. With no existence change a
// native rename is re-emitted as is, while a sweep only reports content that
// actually differs.
func (w *Watcher) renameOutcome(old, cur stat.Stat, from origin) EventKind {
	if kind := existenceChange(old, cur); kind != "" {
		return kind
	}
	if !cur.Exists {
		return ""
	}
	if from == fromReconcile {
		if stat.SameContent(old, cur, w.opts.Validate) {
			return ""
		}
		return Change
	}
	return Rename
}

func normalize(op Op) EventKind {
	if op == OpChange {
		return Change
	}
	return Rename
}
