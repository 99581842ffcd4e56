package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// NotifyBackend is the fsnotify implementation of Backend. One fsnotify
// watcher is shared by all handles.
type NotifyBackend struct {
	watcher *fsnotify.Watcher
	events  chan RawEvent
	errors  chan error
	done    chan struct{}
	logger  *slog.Logger

	mu      sync.Mutex
	handles map[string]*notifyHandle
	once    sync.Once
}

type notifyHandle struct {
	backend *NotifyBackend
	dir     string
	once    sync.Once
}

func (handle *notifyHandle) Close() error {
	var err error
	handle.once.Do(func() {
		err = handle.backend.release(handle)
	})
	return err
}

// NewNotifyBackend starts an fsnotify watcher and its forwarding goroutine.
// A nil logger uses slog.Default().
func NewNotifyBackend(logger *slog.Logger) (*NotifyBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	backend := &NotifyBackend{
		watcher: watcher,
		events:  make(chan RawEvent, 64),
		errors:  make(chan error, 16),
		done:    make(chan struct{}),
		logger:  logger,
		handles: make(map[string]*notifyHandle),
	}
	go backend.forward()
	return backend, nil
}

func (backend *NotifyBackend) Open(dir string) (Handle, error) {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	select {
	case <-backend.done:
		return nil, ErrClosed
	default:
	}

	if _, ok := backend.handles[dir]; ok {
		return nil, fmt.Errorf("directory already watched: %s", dir)
	}
	if err := backend.watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("fsnotify add watch: %w", err)
	}

	handle := &notifyHandle{backend: backend, dir: dir}
	backend.handles[dir] = handle
	return handle, nil
}

func (backend *NotifyBackend) Events() <-chan RawEvent {
	return backend.events
}

func (backend *NotifyBackend) Errors() <-chan error {
	return backend.errors
}

func (backend *NotifyBackend) Close() error {
	var err error
	backend.once.Do(func() {
		backend.mu.Lock()
		close(backend.done)
		backend.handles = make(map[string]*notifyHandle)
		backend.mu.Unlock()
		err = backend.watcher.Close()
	})
	return err
}

func (backend *NotifyBackend) release(handle *notifyHandle) error {
	backend.mu.Lock()
	current, ok := backend.handles[handle.dir]
	if !ok || current != handle {
		backend.mu.Unlock()
		return nil
	}
	delete(backend.handles, handle.dir)
	backend.mu.Unlock()

	// The kernel drops the watch by itself when the directory is deleted.
	if err := backend.watcher.Remove(handle.dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		return fmt.Errorf("fsnotify remove watch: %w", err)
	}
	return nil
}

func (backend *NotifyBackend) forward() {
	for {
		select {
		case event, ok := <-backend.watcher.Events:
			if !ok {
				return
			}
			for _, raw := range backend.translate(event) {
				select {
				case backend.events <- raw:
				case <-backend.done:
					return
				}
			}
		case err, ok := <-backend.watcher.Errors:
			if !ok {
				return
			}
			backend.forwardError(err)
		case <-backend.done:
			return
		}
	}
}

func (backend *NotifyBackend) forwardError(err error) {
	select {
	case backend.errors <- err:
	default:
		backend.logger.Warn("dropped error: errors channel full", "error", err)
	}
}

// translate maps one fsnotify event onto the handles it concerns: the handle of
// the parent directory and, for events on a watched directory itself, that
// directory's own handle.
func (backend *NotifyBackend) translate(event fsnotify.Event) []RawEvent {
	op := OpChange
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		op = OpRename
	}

	name := filepath.Clean(event.Name)
	parent := filepath.Dir(name)

	backend.mu.Lock()
	defer backend.mu.Unlock()

	var out []RawEvent
	if handle, ok := backend.handles[parent]; ok && parent != name {
		out = append(out, RawEvent{Handle: handle, Dir: parent, Op: op, Name: filepath.Base(name)})
	}
	if handle, ok := backend.handles[name]; ok {
		out = append(out, RawEvent{Handle: handle, Dir: name, Op: op})
	}
	return out
}
