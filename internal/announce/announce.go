// Package announce drives screen-reader style live regions for the grid.
// Messages are written to a polite or assertive channel after a short
// settle delay and cleared again a few seconds later, so repeated
// identical announcements are still spoken.
package announce

import (
	"fmt"
	"sync"
	"time"

	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/event"
	"github.com/dshills/gridkit/internal/logging"
)

// Politeness selects the live region channel.
type Politeness int

const (
	// Polite waits for the reader to finish its current utterance.
	Polite Politeness = iota
	// Assertive interrupts the current utterance.
	Assertive
)

// String returns "polite" or "assertive".
func (p Politeness) String() string {
	if p == Assertive {
		return "assertive"
	}
	return "polite"
}

const (
	// writeDelay is the gap between clearing a region and writing the new
	// message. Clearing first forces readers to treat repeats as new.
	writeDelay = 50 * time.Millisecond

	// clearAfter is how long a message stays in its region.
	clearAfter = 3 * time.Second
)

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// TimerFunc schedules fn after d. Tests inject a synchronous version.
type TimerFunc func(d time.Duration, fn func()) Timer

func stdTimer(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Announcer owns the two live regions of one table.
type Announcer struct {
	cfg config.Accessibility
	log *logging.Logger

	mu      sync.Mutex
	regions [2]string
	pending [2][]Timer

	onChange func(p Politeness, msg string)
	timer    TimerFunc
}

// Option configures an Announcer.
type Option func(*Announcer)

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(a *Announcer) { a.log = log }
}

// WithChangeFunc sets the callback invoked whenever a region's content
// changes, including the clears.
func WithChangeFunc(fn func(Politeness, string)) Option {
	return func(a *Announcer) { a.onChange = fn }
}

// WithTimerFunc replaces the scheduler.
func WithTimerFunc(fn TimerFunc) Option {
	return func(a *Announcer) { a.timer = fn }
}

// New creates an announcer.
func New(cfg config.Accessibility, opts ...Option) *Announcer {
	a := &Announcer{
		cfg:   cfg,
		log:   logging.Discard(),
		timer: stdTimer,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Label returns the table's accessible label.
func (a *Announcer) Label() string { return a.cfg.TableLabel }

// Description returns the table's accessible description.
func (a *Announcer) Description() string { return a.cfg.TableDescription }

// Region returns the current content of a live region.
func (a *Announcer) Region(p Politeness) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.regions[p]
}

// Announce queues msg on the given channel. Any announcement still in
// flight on that channel is superseded.
func (a *Announcer) Announce(msg string, p Politeness) {
	if !a.cfg.Enabled || msg == "" {
		return
	}
	a.mu.Lock()
	for _, t := range a.pending[p] {
		t.Stop()
	}
	a.pending[p] = a.pending[p][:0]
	a.setLocked(p, "")

	write := a.timer(writeDelay, func() {
		a.mu.Lock()
		a.setLocked(p, msg)
		clear := a.timer(clearAfter, func() {
			a.mu.Lock()
			if a.regions[p] == msg {
				a.setLocked(p, "")
			}
			a.mu.Unlock()
		})
		a.pending[p] = append(a.pending[p], clear)
		a.mu.Unlock()
	})
	a.pending[p] = append(a.pending[p], write)
	a.mu.Unlock()

	a.log.Debug("announce (%s): %s", p, msg)
}

// setLocked updates a region and fires the change callback. Callers hold
// the mutex.
func (a *Announcer) setLocked(p Politeness, msg string) {
	if a.regions[p] == msg {
		return
	}
	a.regions[p] = msg
	if a.onChange != nil {
		a.onChange(p, msg)
	}
}

// Bind subscribes the announcer to the table's event bus. Each class of
// announcement honors its own configuration flag.
func (a *Announcer) Bind(bus *event.Bus) {
	if !a.cfg.Enabled {
		return
	}

	if a.cfg.AnnounceRowCount {
		bus.Subscribe(event.TopicRedraw, func(ev event.Event) {
			p, ok := ev.Payload.(event.RedrawPayload)
			if !ok {
				return
			}
			if p.VisibleRows == p.TotalRows {
				a.Announce(fmt.Sprintf("Showing %d rows", p.TotalRows), Polite)
			} else {
				a.Announce(fmt.Sprintf("Showing %d of %d rows", p.VisibleRows, p.TotalRows), Polite)
			}
		})
	}

	if a.cfg.AnnounceSort {
		bus.Subscribe(event.TopicSortChanged, func(ev event.Event) {
			p, ok := ev.Payload.(event.SortPayload)
			if !ok || p.Column == "" {
				return
			}
			dir := "ascending"
			if p.Descending {
				dir = "descending"
			}
			a.Announce(fmt.Sprintf("Sorted by %s, %s", p.Column, dir), Polite)
		})
	}

	if a.cfg.AnnounceSearch {
		bus.Subscribe(event.TopicSearchApplied, func(ev event.Event) {
			p, ok := ev.Payload.(event.SearchPayload)
			if !ok {
				return
			}
			noun := "results"
			if p.Matched == 1 {
				noun = "result"
			}
			a.Announce(fmt.Sprintf("%d %s for %q", p.Matched, noun, p.Query), Polite)
		})
		bus.Subscribe(event.TopicSearchCleared, func(event.Event) {
			a.Announce("Search cleared", Polite)
		})
	}

	if a.cfg.AnnouncePage {
		bus.Subscribe(event.TopicPageChanged, func(ev event.Event) {
			p, ok := ev.Payload.(event.PagePayload)
			if !ok {
				return
			}
			a.Announce(fmt.Sprintf("Page %d of %d", p.Page+1, p.PageCount), Polite)
		})
	}

	if a.cfg.AnnounceSelection {
		bus.Subscribe(event.TopicSelectionChanged, func(ev event.Event) {
			p, ok := ev.Payload.(event.SelectionPayload)
			if !ok {
				return
			}
			a.Announce(fmt.Sprintf("%d of %d rows selected", p.Selected, p.Total), Polite)
		})
	}
}
