package compare

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"rewatch/internal/stat"
	"rewatch/internal/watcher"
)

type ChangeType string

const (
	Added    ChangeType = "ADDED"
	Modified ChangeType = "MODIFIED"
	Deleted  ChangeType = "DELETED"
	Renamed  ChangeType = "RENAMED"
)

func typeOf(kind watcher.EventKind) ChangeType {
	switch kind {
	case watcher.Create:
		return Added
	case watcher.Remove:
		return Deleted
	case watcher.Rename:
		return Renamed
	default:
		return Modified
	}
}

type Change struct {
	Type ChangeType
	Path string
	// Stat is nil for directory-level notifications.
	Stat *stat.Stat
}

type CompareResult struct {
	Added    []Change
	Modified []Change
	Deleted  []Change
	Renamed  []Change
}

func (r *CompareResult) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Modified) > 0 || len(r.Deleted) > 0 || len(r.Renamed) > 0
}

// Collector accumulates watcher events, keeping the latest per path.
type Collector struct {
	mu      sync.Mutex
	changes map[string]Change
}

func NewCollector() *Collector {
	return &Collector{changes: make(map[string]Change)}
}

// Record is a watcher.Callback.
func (c *Collector) Record(kind watcher.EventKind, path string, st *stat.Stat) {
	change := Change{Type: typeOf(kind), Path: path}
	if st != nil {
		clone := st.Clone()
		change.Stat = &clone
	}

	c.mu.Lock()
	c.changes[path] = change
	c.mu.Unlock()
}

// Result groups the recorded changes, each group sorted by path.
func (c *Collector) Result() *CompareResult {
	result := &CompareResult{
		Added:    make([]Change, 0),
		Modified: make([]Change, 0),
		Deleted:  make([]Change, 0),
		Renamed:  make([]Change, 0),
	}

	c.mu.Lock()
	for _, change := range c.changes {
		switch change.Type {
		case Added:
			result.Added = append(result.Added, change)
		case Deleted:
			result.Deleted = append(result.Deleted, change)
		case Renamed:
			result.Renamed = append(result.Renamed, change)
		default:
			result.Modified = append(result.Modified, change)
		}
	}
	c.mu.Unlock()

	for _, group := range [][]Change{result.Added, result.Modified, result.Deleted, result.Renamed} {
		sort.Slice(group, func(i, j int) bool {
			return group[i].Path < group[j].Path
		})
	}

	return result
}

func describe(st *stat.Stat) string {
	if st == nil || !st.Exists {
		return ""
	}
	if st.IsDir {
		return fmt.Sprintf(" (directory, modified=%s)", st.ModTime.Format("2006-01-02 15:04:05"))
	}
	return fmt.Sprintf(" (size: %s, modified=%s)", humanize.Bytes(uint64(st.Size)), st.ModTime.Format("2006-01-02 15:04:05"))
}

func section(b *strings.Builder, title, marker string, changes []Change) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", title, len(changes))
	for _, change := range changes {
		fmt.Fprintf(b, "  %s %s%s\n", marker, change.Path, describe(change.Stat))
	}
	b.WriteString("\n")
}

func FormatReport(result *CompareResult) string {
	if !result.HasChanges() {
		return "No changes detected."
	}

	var b strings.Builder
	b.WriteString("Changes detected:\n\n")

	section(&b, string(Added), "+", result.Added)
	section(&b, string(Modified), "~", result.Modified)
	section(&b, string(Deleted), "-", result.Deleted)
	section(&b, string(Renamed), ">", result.Renamed)

	fmt.Fprintf(&b, "Summary: %d added, %d modified, %d deleted, %d renamed\n",
		len(result.Added), len(result.Modified), len(result.Deleted), len(result.Renamed))

	return b.String()
}
