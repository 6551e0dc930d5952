package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/hostcrawl/internal/model"
)

// Step is one stage of a hostcrawl run.
// Each step fills in its own section of the shared run report.
type Step interface {
	// Do executes the step. A returned error is recorded in the report;
	// whether later steps still run depends on the pipeline options.
	Do(ctx context.Context, report *model.RunReport) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline runs steps in order against one run report.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used during execution.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing later steps after one fails.
// A failed crawl still leaves saved pages worth converting.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step in order.
//
// Cancellation is checked before each step; once the context is done the
// report is marked cancelled and no further step starts. Step errors are
// always recorded in the report. Execute returns the first step error
// unless continueOnError is set, in which case it returns nil after the
// last step (or the context error if the run was cancelled).
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	defer func() {
		report.FinishedAt = time.Now()
	}()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			report.Cancelled = true
			return err
		}

		p.logger.Info("executing step", "step", step.Name(), "run_id", report.RunID)

		err := step.Do(ctx, report)
		if err == nil {
			p.logger.Debug("step completed", "step", step.Name(), "run_id", report.RunID)
			continue
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.logger.Warn("step interrupted", "step", step.Name(), "error", err)
			report.Cancelled = true
			report.AddError(err)
			return err
		}

		p.logger.Error("step failed", "step", step.Name(), "run_id", report.RunID, "error", err)
		report.AddError(err)
		if !p.continueOnError {
			return err
		}
	}
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
