// Package progress renders an overall bar plus a bag of transient per-worker
// labels. All calls are safe from multiple goroutines, and hidden mode keeps
// the counters live while drawing nothing.
package progress

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Reporter tracks overall progress and in-flight task labels.
type Reporter struct {
	mu      sync.Mutex
	hidden  bool
	bar     *progressbar.ProgressBar
	done    int
	total   int
	active  map[string]int
	title   string
	stopped bool
}

// Option configures a Reporter.
type Option func(*Reporter)

// Hidden suppresses all drawing while keeping counters updated.
func Hidden(hidden bool) Option {
	return func(r *Reporter) { r.hidden = hidden }
}

// New creates a reporter for total items. Rendering is disabled automatically
// when stderr is not a terminal.
func New(title string, total int, opts ...Option) *Reporter {
	r := &Reporter{
		total:  total,
		title:  title,
		active: make(map[string]int),
		hidden: !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
	for _, opt := range opts {
		opt(r)
	}
	if !r.hidden {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(title),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	return r
}

// Increment advances the main counter by one completed item.
func (r *Reporter) Increment() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.done++
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

// Counts returns the monotone (done, total) pair.
func (r *Reporter) Counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done, r.total
}

// StartTask registers a transient spinner label and returns the function
// that removes it. Duplicate labels are reference counted.
func (r *Reporter) StartTask(label string) func() {
	r.mu.Lock()
	r.active[label]++
	r.redrawLocked()
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.active[label] <= 1 {
				delete(r.active, label)
			} else {
				r.active[label]--
			}
			r.redrawLocked()
		})
	}
}

// ActiveTasks returns a sorted snapshot of in-flight labels.
func (r *Reporter) ActiveTasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	labels := make([]string, 0, len(r.active))
	for label := range r.active {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Finish clears the display. It is safe to call more than once; counters no
// longer move afterwards.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

func (r *Reporter) redrawLocked() {
	if r.bar == nil || r.stopped {
		return
	}
	if len(r.active) == 0 {
		r.bar.Describe(r.title)
		return
	}
	labels := make([]string, 0, len(r.active))
	for label := range r.active {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	r.bar.Describe(r.title + " [" + strings.Join(labels, " ") + "]")
}
