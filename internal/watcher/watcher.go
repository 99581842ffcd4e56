package watcher

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"

	"rewatch/internal/metrics"
	"rewatch/internal/stat"
)

// Watcher reconciles native directory notifications with periodic sweeps.
// All state lives behind one mutex; native deliveries and sweeps are consumed
// by a single goroutine, so classification never interleaves.
type Watcher struct {
	mu       sync.Mutex
	opts     Options
	callback Callback
	backend  Backend
	logger   *slog.Logger
	metrics  *metrics.Metrics

	targets map[string]*target
	groups  map[string]*group
	closed  bool

	done    chan struct{}
	stopped chan struct{}
}

// New creates a Watcher and starts its event loop.
func New(opts Options, callback Callback) (*Watcher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backend := opts.Backend
	if backend == nil {
		notify, err := NewNotifyBackend(logger.With("component", "notify"))
		if err != nil {
			return nil, err
		}
		backend = notify
	}

	w := &Watcher{
		opts:     opts,
		callback: callback,
		backend:  backend,
		logger:   logger.With("component", "watcher"),
		metrics:  opts.Metrics,
		targets:  make(map[string]*target),
		groups:   make(map[string]*group),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	go w.run()
	return w, nil
}

// Close releases every handle, stops the event loop and closes the backend.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	var result error
	if err := w.resetLocked(); err != nil {
		result = multierror.Append(result, err)
	}
	w.mu.Unlock()

	close(w.done)
	<-w.stopped

	if err := w.backend.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

// Reset closes all native handles and forgets every target. No callback fires
// after Reset returns until Watch is called again.
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.resetLocked(); err != nil {
		w.logger.Warn("reset: closing handles", "error", err)
	}
}

// Len reports the number of watched paths.
func (w *Watcher) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.targets)
}

func (w *Watcher) run() {
	defer close(w.stopped)

	var tick <-chan time.Time
	if w.opts.Interval > 0 {
		ticker := time.NewTicker(w.opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	events := w.backend.Events()
	errs := w.backend.Errors()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			w.deliver(event)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.backendError(err)
		case <-tick:
			w.Reconcile()
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) deliver(event RawEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	g, ok := w.groups[event.Dir]
	if !ok || g.handle == nil || g.handle != event.Handle {
		// Stale delivery from a handle that has since been closed.
		return
	}
	w.classify(g, event.Op, event.Name, fromNative)
}

func (w *Watcher) backendError(err error) {
	w.logger.Warn("native watch error", "error", err)
	if !errors.Is(err, fsnotify.ErrEventOverflow) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	// Notifications were lost; re-probe everything.
	for _, key := range w.groupKeys() {
		w.synthesize(w.groups[key])
	}
}

func (w *Watcher) probe(path string) stat.Stat {
	return stat.Probe(path, w.opts.Validate, w.opts.Checksum)
}

func (w *Watcher) emit(kind EventKind, path string, st *stat.Stat) {
	w.metrics.Event(string(kind))
	if w.callback != nil {
		w.callback(kind, path, st)
	}
}

func (w *Watcher) updateSizes() {
	w.metrics.SetSizes(len(w.targets), len(w.groups))
}
