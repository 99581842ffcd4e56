package watcher

// Reconcile runs one sweep: every group whose directory appeared, disappeared
// or was replaced toggles its handle and re-probes its targets. Groups whose
// entries changed, and unwatchable ones, re-probe without touching the handle. The event loop
// calls it on every tick; callers may also run it on demand.
func (w *Watcher) Reconcile() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.metrics.Tick()

	for _, key := range w.groupKeys() {
		g := w.groups[key]
		if w.refresh(g, false) != refreshNone {
			w.synthesize(g)
		}
	}
}

// synthesize feeds a rename for every file target in g through the classifier,
// exactly as a native event would arrive, and re-probes a whole-directory target.
func (w *Watcher) synthesize(g *group) {
	if g.wholeDir {
		if t, ok := w.targets[g.key]; ok {
			w.refreshDirectory(t)
		}
	}
	for _, t := range w.filesIn(g) {
		w.classifyFile(t, OpRename, fromReconcile)
	}
}

func (w *Watcher) refreshDirectory(t *target) {
	old := t.stat
	cur := w.probe(t.key)
	t.stat = cur

	if kind := existenceChange(old, cur); kind != "" {
		st := cur.Clone()
		w.emit(kind, t.displayName, &st)
	}
}
