// Package reporters announces buildset completions to external services.
// A Watcher polls the store for newly completed buildsets and fans each
// one out to the configured reporters.
package reporters

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/macdems/buildbot/internal/buildsets"
)

// Reporter announces one completed buildset somewhere.
type Reporter interface {
	BuildsetComplete(ctx context.Context, m *buildsets.BuildSetModel) error
}

// Store is the slice of the buildset store the watcher needs.
type Store interface {
	GetBuildsets(complete *bool) ([]buildsets.BuildSetModel, error)
}

// Watcher polls for completions and dispatches them exactly once each.
type Watcher struct {
	store     Store
	reporters []Reporter
	interval  time.Duration
	seen      map[int64]bool
	primed    bool
}

// NewWatcher creates a Watcher polling at the given interval.
func NewWatcher(store Store, reporters []Reporter, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{
		store:     store,
		reporters: reporters,
		interval:  interval,
		seen:      make(map[int64]bool),
	}
}

// Run polls until ctx is cancelled. Reporter failures are logged and the
// buildset stays unannounced for the next poll.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.Poll(ctx); err != nil {
			log.Printf("reporters: poll: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll announces completions that appeared since the previous poll. The
// first poll only records what is already complete, so a restarted
// watcher does not replay history.
func (w *Watcher) Poll(ctx context.Context) error {
	complete := true
	all, err := w.store.GetBuildsets(&complete)
	if err != nil {
		return err
	}

	if !w.primed {
		for _, m := range all {
			w.seen[m.BSID] = true
		}
		w.primed = true
		return nil
	}

	for i := range all {
		m := &all[i]
		if w.seen[m.BSID] {
			continue
		}
		if err := w.announce(ctx, m); err != nil {
			log.Printf("reporters: buildset %d: %v", m.BSID, err)
			continue
		}
		w.seen[m.BSID] = true
	}
	return nil
}

func (w *Watcher) announce(ctx context.Context, m *buildsets.BuildSetModel) error {
	for _, r := range w.reporters {
		if err := r.BuildsetComplete(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Result codes, as stored in the results column.
const (
	ResultSuccess   = 0
	ResultWarnings  = 1
	ResultFailure   = 2
	ResultSkipped   = 3
	ResultException = 4
	ResultRetry     = 5
	ResultCancelled = 6
)

var resultTexts = map[int]string{
	ResultSuccess:   "success",
	ResultWarnings:  "warnings",
	ResultFailure:   "failure",
	ResultSkipped:   "skipped",
	ResultException: "exception",
	ResultRetry:     "retry",
	ResultCancelled: "cancelled",
}

// resultText renders a results code for humans.
func resultText(results int) string {
	if s, ok := resultTexts[results]; ok {
		return s
	}
	return fmt.Sprintf("results=%d", results)
}

// summary is the one-line completion message shared by chat reporters.
func summary(m *buildsets.BuildSetModel) string {
	s := fmt.Sprintf("buildset %d finished: %s", m.BSID, resultText(m.Results))
	if m.Reason != "" {
		s += fmt.Sprintf(" (%s)", m.Reason)
	}
	return s
}
