package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"rewatch/internal/stat"
	"rewatch/internal/watcher"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

var markers = map[watcher.EventKind]struct {
	symbol string
	color  string
}{
	watcher.Create: {"+", colorGreen},
	watcher.Change: {"~", colorYellow},
	watcher.Remove: {"-", colorRed},
	watcher.Rename: {">", colorCyan},
}

// Printer writes one line per watcher event.
type Printer struct {
	writer io.Writer
	mu     sync.Mutex
	color  bool
	counts map[watcher.EventKind]int
	now    func() time.Time
}

func New(writer io.Writer) *Printer {
	return &Printer{
		writer: writer,
		color:  isTerminal(writer),
		counts: make(map[watcher.EventKind]int),
		now:    time.Now,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Event is a watcher.Callback.
func (p *Printer) Event(kind watcher.EventKind, path string, st *stat.Stat) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts[kind]++

	marker := markers[kind]
	symbol := marker.symbol
	if p.color {
		symbol = marker.color + symbol + colorReset
	}

	detail := ""
	if st != nil && st.Exists && !st.IsDir {
		detail = " (" + humanize.Bytes(uint64(st.Size)) + ")"
	}

	fmt.Fprintf(p.writer, "%s %s %-6s %s%s\n",
		p.now().Format("15:04:05"), symbol, kind, path, detail)
}

// Finish prints per-kind totals.
func (p *Printer) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "Summary: %d created, %d changed, %d removed, %d renamed\n",
		p.counts[watcher.Create], p.counts[watcher.Change], p.counts[watcher.Remove], p.counts[watcher.Rename])
}
