package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTripUnchanged(t *testing.T) {
	h := newHarness(t)
	dir := tempDir(t)
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "missing.txt")
	writeFile(t, a, "a")
	require.NoError(t, h.w.Watch(a))
	require.NoError(t, h.w.Watch(b))
	require.NoError(t, h.w.Watch(dir))

	snap := h.w.Save()
	h.w.Reset()
	require.NoError(t, h.w.Restore(snap))

	assert.Empty(t, h.rec.take())
	assert.Equal(t, 3, h.w.Len())
	g, ok := h.group(dir)
	require.True(t, ok)
	assert.True(t, g.wholeDir)
	assert.Equal(t, 2, g.fileRefs)
}

func TestSnapshotRestoreReportsChange(t *testing.T) {
	for _, validate := range []bool{false, true} {
		t.Run(map[bool]string{false: "mtime", true: "fingerprint"}[validate], func(t *testing.T) {
			h := newHarness(t, func(opts *Options) { opts.Validate = validate })
			dir := tempDir(t)
			path := filepath.Join(dir, "f.txt")
			writeFile(t, path, "before")
			require.NoError(t, h.w.Watch(path))

			snap := h.w.Save()
			writeFile(t, path, "after, longer")
			h.w.Reset()
			require.NoError(t, h.w.Restore(snap))

			events := h.rec.take()
			require.Len(t, events, 1)
			assert.Equal(t, Change, events[0].kind)
			require.NotNil(t, events[0].st)
			assert.Equal(t, int64(len("after, longer")), events[0].st.Size)
		})
	}
}

func TestSnapshotRestoreReportsExistenceChanges(t *testing.T) {
	h := newHarness(t)
	dir := tempDir(t)
	gone := filepath.Join(dir, "gone.txt")
	born := filepath.Join(dir, "born.txt")
	writeFile(t, gone, "x")
	require.NoError(t, h.w.Watch(gone))
	require.NoError(t, h.w.Watch(born))

	snap := h.w.Save()
	require.NoError(t, os.Remove(gone))
	writeFile(t, born, "y")
	require.NoError(t, h.w.Restore(snap))

	events := h.rec.take()
	require.Len(t, events, 2)
	// Restore walks keys in sorted order.
	assert.Equal(t, recorded{kind: Create, path: born, st: events[0].st}, events[0])
	assert.Equal(t, recorded{kind: Remove, path: gone, st: events[1].st}, events[1])
	assert.False(t, events[1].st.Exists)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	h := newHarness(t, func(opts *Options) { opts.Validate = true })
	dir := tempDir(t)
	path := filepath.Join(dir, "f.txt")
	writeFile(t, path, "content")
	require.NoError(t, h.w.Watch(path))

	snap := h.w.Save()
	entry := snap[path]
	require.NotEmpty(t, entry.Stat.Fingerprint)
	assert.Equal(t, KindFile, entry.Kind)
	assert.Equal(t, path, entry.DisplayName)

	original := append([]byte(nil), entry.Stat.Fingerprint...)
	entry.Stat.Fingerprint[0] ^= 0xff

	st, _ := h.w.GetStat(path)
	assert.Equal(t, original, st.Fingerprint)

	clone := snap.Clone()
	clone[path].Stat.Fingerprint[0] ^= 0xff
	assert.NotEqual(t, clone[path].Stat.Fingerprint, snap[path].Stat.Fingerprint)
}

func TestRestoreKeepsDisplayNames(t *testing.T) {
	h := newHarness(t, func(opts *Options) { opts.FullName = false })
	dir := tempDir(t)
	writeFile(t, filepath.Join(dir, "f.txt"), "x")
	chdir(t, dir)
	require.NoError(t, h.w.Watch("f.txt"))

	snap := h.w.Save()
	require.NoError(t, os.Remove(filepath.Join(dir, "f.txt")))
	require.NoError(t, h.w.Restore(snap))

	events := h.rec.take()
	require.Len(t, events, 1)
	assert.Equal(t, "f.txt", events[0].path)
}

func TestRestoreReplacesRegistry(t *testing.T) {
	h := newHarness(t)
	dir := tempDir(t)
	kept := filepath.Join(dir, "kept.txt")
	dropped := filepath.Join(dir, "other", "dropped.txt")
	writeFile(t, kept, "k")
	writeFile(t, dropped, "d")
	require.NoError(t, h.w.Watch(kept))
	snap := h.w.Save()

	require.NoError(t, h.w.Watch(dropped))
	require.NoError(t, h.w.Restore(snap))

	assert.Equal(t, 1, h.w.Len())
	_, ok := h.w.GetStat(dropped)
	assert.False(t, ok)
	_, ok = h.group(filepath.Dir(dropped))
	assert.False(t, ok)
	assert.Equal(t, 1, h.backend.openCount())
}
