// Package report records the pass/fail outcome of every step and captures a
// screenshot for each. A screenshot that cannot be captured fails the step,
// whatever the step's own outcome was.
package report

import (
	"context"
	"sync"
	"time"

	"github.com/mj1618/gridcheck/internal/artifact"
	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/ternarybob/arbor"
)

// Status is the outcome of a step.
type Status string

const (
	Pass Status = "PASS"
	Fail Status = "FAIL"
)

// Entry is one recorded step.
type Entry struct {
	Step       string       `yaml:"step"                 json:"step"`
	Status     Status       `yaml:"status"               json:"status"`
	Kind       failure.Kind `yaml:"kind,omitempty"       json:"kind,omitempty"`
	Message    string       `yaml:"message,omitempty"    json:"message,omitempty"`
	Screenshot string       `yaml:"screenshot,omitempty" json:"screenshot,omitempty"`
	Duration   string       `yaml:"duration"             json:"duration"`
}

// Summary totals a run.
type Summary struct {
	RunID  string `yaml:"run_id" json:"run_id"`
	Passed int    `yaml:"passed" json:"passed"`
	Failed int    `yaml:"failed" json:"failed"`
}

// Recorder collects entries. It is safe for concurrent use.
type Recorder struct {
	shooter platform.Screenshotter
	store   *artifact.Store
	logger  arbor.ILogger
	now     func() time.Time

	mu      sync.Mutex
	entries []Entry
}

// New returns a Recorder that captures with shooter into store. A nil
// shooter disables capture; that is only meant for dry runs.
func New(shooter platform.Screenshotter, store *artifact.Store, logger arbor.ILogger) *Recorder {
	return &Recorder{shooter: shooter, store: store, logger: logger, now: time.Now}
}

// Guard runs fn as the step label, captures a screenshot labelled with the
// outcome and records the entry. It returns fn's error, or a
// *failure.CaptureError wrapping it when the capture fails.
func (r *Recorder) Guard(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	start := r.now()
	err := fn(ctx)

	outcome := artifact.Passed
	if err != nil {
		outcome = artifact.Failed
	}
	path, capErr := r.capture(ctx, label, outcome)
	if capErr != nil {
		err = &failure.CaptureError{Label: label, Err: capErr, Outcome: err}
	}

	entry := Entry{Step: label, Status: Pass, Screenshot: path, Duration: r.now().Sub(start).Round(time.Millisecond).String()}
	if err != nil {
		entry.Status = Fail
		entry.Kind = failure.KindOf(err)
		entry.Message = err.Error()
		r.logger.Error().Str("step", label).Str("kind", string(entry.Kind)).Err(err).Msg("Step failed")
	} else {
		r.logger.Info().Str("step", label).Str("duration", entry.Duration).Msg("Step passed")
	}
	r.record(entry)
	return err
}

func (r *Recorder) capture(ctx context.Context, label string, outcome artifact.Outcome) (string, error) {
	if r.shooter == nil || r.store == nil {
		return "", nil
	}
	shot, err := r.shooter.CaptureScreenshot(ctx)
	if err != nil {
		return "", err
	}
	return r.store.Save(label, outcome, shot)
}

func (r *Recorder) record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Entries returns a copy of the recorded entries in order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Last returns the most recent entry.
func (r *Recorder) Last() (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	return r.entries[len(r.entries)-1], true
}

func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s Summary
	if r.store != nil {
		s.RunID = r.store.RunID()
	}
	for _, e := range r.entries {
		if e.Status == Pass {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}
