// Package steps maps step phrases onto the table, pagination and widget
// operations. Every step runs inside the report recorder, so each one is
// logged as pass or fail and leaves a screenshot.
package steps

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/mj1618/gridcheck/internal/config"
	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/locator"
	"github.com/mj1618/gridcheck/internal/objrepo"
	"github.com/mj1618/gridcheck/internal/pagination"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/report"
	"github.com/mj1618/gridcheck/internal/widget"
	"github.com/ternarybob/arbor"
)

// Result is the outcome of one step.
type Result struct {
	report.Entry `yaml:",inline"`
	Data         any `yaml:"data,omitempty" json:"data,omitempty"`
}

// Engine runs step phrases against one driver session. Run is serialized;
// a session has a single page.
type Engine struct {
	provider *platform.Provider
	resolver *locator.Resolver
	nav      *pagination.Navigator
	widgets  *widget.Widgets
	repo     *objrepo.Repository
	cfg      *config.Config
	recorder *report.Recorder
	logger   arbor.ILogger

	mu  sync.Mutex
	reg registry
}

// New wires an engine. A nil repo behaves as an empty repository.
func New(provider *platform.Provider, cfg *config.Config, repo *objrepo.Repository, recorder *report.Recorder, logger arbor.ILogger) *Engine {
	if repo == nil {
		repo = objrepo.Empty()
	}
	resolver := locator.New(provider, logger)
	e := &Engine{
		provider: provider,
		resolver: resolver,
		nav:      pagination.New(resolver, NavigatorOptions(cfg), logger),
		widgets:  widget.New(resolver, WidgetTimings(cfg), logger),
		repo:     repo,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
	}
	e.register()
	return e
}

// NavigatorOptions derives pagination timings from cfg.
func NavigatorOptions(cfg *config.Config) pagination.Options {
	opts := pagination.DefaultOptions()
	opts.MaxSteps = cfg.Pagination.MaxSteps
	opts.AnchorTimeout = cfg.Timeouts.Element.Std()
	opts.LoadingTimeout = cfg.Timeouts.Absence.Std()
	opts.Poll = cfg.Timeouts.Poll.Std()
	opts.Settle = cfg.Settle.Navigation.Std()
	return opts
}

// WidgetTimings derives widget delays from cfg.
func WidgetTimings(cfg *config.Config) widget.Timings {
	return widget.Timings{
		Edit:     cfg.Settle.Edit.Std(),
		Save:     cfg.Settle.Save.Std(),
		Verify:   cfg.Settle.Verify.Std(),
		Toggle:   cfg.Settle.Toggle.Std(),
		Picker:   cfg.Settle.Picker.Std(),
		Option:   cfg.Settle.Option.Std(),
		Dropdown: cfg.Timeouts.Dropdown.Std(),
		Poll:     cfg.Timeouts.Poll.Std(),
	}
}

// Widgets exposes the widget driver, mainly so callers can pin its clock.
func (e *Engine) Widgets() *widget.Widgets { return e.widgets }

// Navigator exposes the pagination navigator.
func (e *Engine) Navigator() *pagination.Navigator { return e.nav }

// Phrases lists the registered step patterns.
func (e *Engine) Phrases() []string { return e.reg.patterns() }

// UnknownStepError reports text that matches no registered phrase.
type UnknownStepError struct{ Text string }

func (e *UnknownStepError) Error() string { return fmt.Sprintf("no step matches %q", e.Text) }

// Run executes one step line. Gherkin keywords are optional and ${key}
// references in arguments are replaced from the test data. The returned
// Result is nil only when no phrase matched.
func (e *Engine) Run(ctx context.Context, text string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	line := Normalize(text)
	p, args, ok := e.reg.lookup(line)
	if !ok {
		return nil, &UnknownStepError{Text: line}
	}
	for i, a := range args {
		args[i] = e.expand(a)
	}
	e.logger.Debug().Str("step", line).Str("pattern", p.pattern).Msg("Running step")

	var data any
	err := e.recorder.Guard(ctx, line, func(ctx context.Context) error {
		var err error
		data, err = p.handler(ctx, args)
		return err
	})
	res := &Result{Data: data}
	if last, ok := e.recorder.Last(); ok {
		res.Entry = last
	}
	return res, err
}

var dataRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expand replaces ${key} with test data. Unknown keys are left as written.
func (e *Engine) expand(s string) string {
	return dataRef.ReplaceAllStringFunc(s, func(ref string) string {
		if v, ok := e.cfg.TestData[ref[2:len(ref)-1]]; ok {
			return v
		}
		return ref
	})
}

// RunAll runs lines in order and returns every result with the number that
// passed. With stopOnError the first failure ends the run. The error is the
// first failure, prefixed with its 1-based step number.
func (e *Engine) RunAll(ctx context.Context, lines []string, stopOnError bool) ([]Result, int, error) {
	results := make([]Result, 0, len(lines))
	passed := 0
	var first error
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			if first == nil {
				first = fmt.Errorf("step %d: %w", i+1, err)
			}
			break
		}
		res, err := e.Run(ctx, line)
		if res == nil {
			res = &Result{Entry: report.Entry{Step: Normalize(line), Status: report.Fail}}
		}
		if err != nil {
			res.Message = err.Error()
			res.Kind = failure.KindOf(err)
			results = append(results, *res)
			if first == nil {
				first = fmt.Errorf("step %d: %w", i+1, err)
			}
			if stopOnError {
				break
			}
			continue
		}
		passed++
		results = append(results, *res)
	}
	return results, passed, first
}
