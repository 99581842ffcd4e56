package watcher

// Op is the raw kind of a native notification.
type Op int

const (
	// OpRename covers anything that can change whether a name exists:
	// creation, removal and renames.
	OpRename Op = iota
	// OpChange covers content and attribute writes.
	OpChange
)

func (op Op) String() string {
	if op == OpChange {
		return "change"
	}
	return "rename"
}

// Handle is one open native watch on a directory.
type Handle interface {
	Close() error
}

// RawEvent is a native notification for one entry of a watched directory.
// Name is relative to Dir; an empty Name refers to Dir itself.
type RawEvent struct {
	Handle Handle
	Dir    string
	Op     Op
	Name   string
}

// Backend is the native directory-change primitive. Deliveries for every open
// handle arrive on one channel, which the Watcher consumes from a single goroutine.
type Backend interface {
	// Open starts watching the entries of dir, one level deep.
	Open(dir string) (Handle, error)

	// Events returns the channel that receives raw events for all handles.
	Events() <-chan RawEvent

	// Errors returns the channel that receives backend failures.
	Errors() <-chan error

	// Close releases every handle and stops deliveries.
	Close() error
}
