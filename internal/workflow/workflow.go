package workflow

import (
	"context"
	"fmt"

	"salbar-be/internal/logger"

	"go.uber.org/zap"
)

// Step is one unit of a workflow. Invoke returns the step output and the
// value Compensate receives if a later step fails. A nil Compensate, or a
// nil compensation value, means there is nothing to undo.
type Step struct {
	Name       string
	Invoke     func(ctx context.Context, input any) (output any, compensation any, err error)
	Compensate func(ctx context.Context, compensation any) error
}

// StepError reports the step that failed and any compensations that failed
// while unwinding.
type StepError struct {
	Step               string
	Err                error
	CompensationErrors map[string]error
}

func (e *StepError) Error() string {
	if len(e.CompensationErrors) > 0 {
		return fmt.Sprintf("workflow step %q failed: %v (%d compensations failed)", e.Step, e.Err, len(e.CompensationErrors))
	}
	return fmt.Sprintf("workflow step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type completed struct {
	step         Step
	compensation any
}

// Run executes steps in order, feeding each step's output to the next.
// On the first failure the completed steps are compensated in reverse order.
func Run(ctx context.Context, name string, steps []Step, input any) (any, error) {
	log := logger.FromCtx(ctx).With(zap.String("workflow", name))

	done := make([]completed, 0, len(steps))
	current := input

	for _, step := range steps {
		out, comp, err := step.Invoke(ctx, current)
		if err != nil {
			log.Error("workflow step failed", zap.String("step", step.Name), zap.Error(err))
			stepErr := &StepError{Step: step.Name, Err: err}
			compensate(ctx, log, done, stepErr)
			return nil, stepErr
		}
		log.Debug("workflow step completed", zap.String("step", step.Name))
		done = append(done, completed{step: step, compensation: comp})
		current = out
	}

	return current, nil
}

func compensate(ctx context.Context, log *zap.Logger, done []completed, stepErr *StepError) {
	// Compensation must run even if the request context is already canceled.
	ctx = context.WithoutCancel(ctx)

	for i := len(done) - 1; i >= 0; i-- {
		c := done[i]
		if c.step.Compensate == nil || c.compensation == nil {
			continue
		}
		if err := c.step.Compensate(ctx, c.compensation); err != nil {
			log.Error("workflow compensation failed", zap.String("step", c.step.Name), zap.Error(err))
			if stepErr.CompensationErrors == nil {
				stepErr.CompensationErrors = make(map[string]error)
			}
			stepErr.CompensationErrors[c.step.Name] = err
			continue
		}
		log.Info("workflow step compensated", zap.String("step", c.step.Name))
	}
}
