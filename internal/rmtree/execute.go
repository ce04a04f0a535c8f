package rmtree

import (
	"context"
	"log/slog"
)

// Reporter receives per-item execution events. The CLI uses it to print
// progress honouring --quiet.
type Reporter interface {
	WouldRemove(name string)
	Removed(name string, freed int64)
	Failed(name string, err error)
}

type nopReporter struct{}

func (nopReporter) WouldRemove(string)    {}
func (nopReporter) Removed(string, int64) {}
func (nopReporter) Failed(string, error)  {}

// Outcome is the result of one plan item.
type Outcome struct {
	Name      string
	Simulated bool
	Freed     int64
	Err       error
}

// Report summarises an executed plan.
type Report struct {
	Root     string
	DryRun   bool
	Outcomes []Outcome
}

// Removed returns the names that were (or in a dry run would have been)
// removed, in order.
func (r Report) Removed() []string {
	var names []string

	for _, o := range r.Outcomes {
		if o.Err == nil {
			names = append(names, o.Name)
		}
	}

	return names
}

// Failed returns the outcomes that failed.
func (r Report) Failed() []Outcome {
	var failed []Outcome

	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}

	return failed
}

// Freed returns the total bytes reclaimed.
func (r Report) Freed() int64 {
	var total int64

	for _, o := range r.Outcomes {
		total += o.Freed
	}

	return total
}

// Executor applies removal plans.
type Executor struct {
	remover  Remover
	reporter Reporter
	logger   *slog.Logger
}

// ExecutorOption configures an [Executor].
type ExecutorOption func(*Executor)

// WithReporter sets the event sink. The default discards events.
func WithReporter(reporter Reporter) ExecutorOption {
	return func(e *Executor) {
		if reporter != nil {
			e.reporter = reporter
		}
	}
}

// WithExecutorLogger sets the logger used for removal diagnostics.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor returns an Executor removing packages through remover.
func NewExecutor(remover Remover, opts ...ExecutorOption) *Executor {
	e := &Executor{
		remover:  remover,
		reporter: nopReporter{},
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute walks plan.Order sequentially. In a dry run nothing is removed.
// A failed item is recorded and execution moves on to the next one.
//
// Once started, execution is not interrupted by cancellation of ctx: later
// items rely on earlier ones being gone.
func (e *Executor) Execute(ctx context.Context, plan RemovalPlan, dryRun bool) Report {
	ctx = context.WithoutCancel(ctx)
	report := Report{Root: plan.Root, DryRun: dryRun}

	for _, name := range plan.Order {
		if dryRun {
			e.reporter.WouldRemove(name)
			report.Outcomes = append(report.Outcomes, Outcome{Name: name, Simulated: true})

			continue
		}

		freed, err := e.remover.Remove(ctx, name)
		if err != nil {
			err = &RemovalError{Name: name, Err: err}
			e.logger.Error("remove failed", "package", name, "error", err)
			e.reporter.Failed(name, err)
			report.Outcomes = append(report.Outcomes, Outcome{Name: name, Err: err})

			continue
		}

		e.logger.Info("removed", "package", name, "freed", freed)
		e.reporter.Removed(name, freed)
		report.Outcomes = append(report.Outcomes, Outcome{Name: name, Freed: freed})
	}

	return report
}
