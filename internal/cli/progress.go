package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const spinnerFrames = `-\|/`

// progressReporter draws a single-line spinner on stderr. Disabled when
// stderr is not a terminal or machine-readable output was requested. Safe
// for concurrent Update calls from rewrite workers; redraws are throttled
// so a large tree does not turn into terminal spam.
type progressReporter struct {
	enabled bool
	label   string
	total   int
	start   time.Time

	mu       sync.Mutex
	count    int
	frame    int
	lastLen  int
	lastDraw time.Time
}

func newProgressReporter(label string, total int, asJSON bool) *progressReporter {
	stat, err := os.Stderr.Stat()
	return &progressReporter{
		enabled: err == nil && stat.Mode()&os.ModeCharDevice != 0 && !asJSON,
		label:   label,
		total:   total,
		start:   time.Now(),
	}
}

func (r *progressReporter) Update(file string) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.count++
	now := time.Now()
	if now.Sub(r.lastDraw) < 50*time.Millisecond {
		return
	}
	r.lastDraw = now
	r.frame++

	if file = strings.TrimSpace(file); len(file) > 88 {
		file = "..." + file[len(file)-85:]
	}
	progress := fmt.Sprintf("%d", r.count)
	if r.total > 0 {
		progress = fmt.Sprintf("%d/%d", r.count, r.total)
	}
	spin := spinnerFrames[r.frame%len(spinnerFrames)]
	r.draw(fmt.Sprintf("%c %s %s rewriting %s", spin, r.label, progress, file))
}

func (r *progressReporter) Done(count int) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.start).Round(time.Millisecond)
	r.draw(fmt.Sprintf("%s complete (%d files in %s)", r.label, count, elapsed))
	fmt.Fprintln(os.Stderr)
}

// draw overwrites the current status line, padding over any longer previous
// line so stale characters never linger.
func (r *progressReporter) draw(status string) {
	if pad := r.lastLen - len(status); pad > 0 {
		status += strings.Repeat(" ", pad)
	}
	r.lastLen = len(status)
	fmt.Fprintf(os.Stderr, "\r%s", status)
}
