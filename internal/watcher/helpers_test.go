package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"rewatch/internal/stat"
)

type fakeHandle struct {
	backend *fakeBackend
	dir     string
}

func (handle *fakeHandle) Close() error {
	handle.backend.mu.Lock()
	defer handle.backend.mu.Unlock()
	if handle.backend.open[handle.dir] == handle {
		delete(handle.backend.open, handle.dir)
	}
	handle.backend.closes++
	return nil
}

// fakeBackend records opens and lets tests inject native events.
type fakeBackend struct {
	mu       sync.Mutex
	open     map[string]*fakeHandle
	failOpen map[string]bool
	opens    int
	closes   int
	closed   bool

	events chan RawEvent
	errors chan error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		open:     make(map[string]*fakeHandle),
		failOpen: make(map[string]bool),
		events:   make(chan RawEvent, 16),
		errors:   make(chan error, 4),
	}
}

func (backend *fakeBackend) Open(dir string) (Handle, error) {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.failOpen[dir] {
		return nil, errors.New("permission denied")
	}
	handle := &fakeHandle{backend: backend, dir: dir}
	backend.open[dir] = handle
	backend.opens++
	return handle, nil
}

func (backend *fakeBackend) Events() <-chan RawEvent { return backend.events }

func (backend *fakeBackend) Errors() <-chan error { return backend.errors }

func (backend *fakeBackend) Close() error {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.closed = true
	return nil
}

func (backend *fakeBackend) setFailOpen(dir string, fail bool) {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.failOpen[dir] = fail
}

func (backend *fakeBackend) handle(dir string) Handle {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if handle, ok := backend.open[dir]; ok {
		return handle
	}
	return nil
}

func (backend *fakeBackend) openCount() int {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	return len(backend.open)
}

type recorded struct {
	kind EventKind
	path string
	st   *stat.Stat
}

type recorder struct {
	mu     sync.Mutex
	events []recorded
}

func (r *recorder) callback(kind EventKind, path string, st *stat.Stat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{kind: kind, path: path, st: st})
}

// take returns the recorded events and clears the log.
func (r *recorder) take() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events
	r.events = nil
	return events
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type harness struct {
	w       *Watcher
	backend *fakeBackend
	rec     *recorder
}

// newHarness builds a Watcher with sweeps disabled and a fake backend, so tests
// drive native events and sweeps by hand.
func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()

	backend := newFakeBackend()
	rec := &recorder{}

	opts := DefaultOptions()
	opts.Interval = 0
	opts.Backend = backend
	for _, fn := range configure {
		fn(&opts)
	}

	w, err := New(opts, rec.callback)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	return &harness{w: w, backend: backend, rec: rec}
}

// fire delivers a native event for dir synchronously, as the event loop would,
// using whatever handle the backend currently holds for dir.
func (h *harness) fire(dir, name string, op Op) {
	h.w.deliver(RawEvent{Handle: h.backend.handle(dir), Dir: dir, Op: op, Name: name})
}

func (h *harness) group(key string) (*group, bool) {
	h.w.mu.Lock()
	defer h.w.mu.Unlock()
	g, ok := h.w.groups[key]
	if !ok {
		return nil, false
	}
	clone := *g
	return &clone, true
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// tempDir returns a temp dir with symlinks resolved so keys match what the
// watcher computes.
func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}
