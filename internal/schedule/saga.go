package schedule

import (
	"context"
	"log/slog"
)

// Step pairs a forward action with its compensation. Compensate may be nil
// for steps that need no undo.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga runs an ordered list of forward actions. When step k fails, the
// compensations of steps 1..k-1 run in reverse order. Compensation failures
// are logged, never returned: surfacing them would mask the error that
// triggered the rollback.
type Saga struct {
	log   *slog.Logger
	steps []Step
}

func NewSaga(log *slog.Logger) *Saga {
	if log == nil {
		log = slog.Default()
	}
	return &Saga{log: log}
}

func (s *Saga) Add(step Step) {
	s.steps = append(s.steps, step)
}

func (s *Saga) Run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.Run(ctx); err != nil {
			s.compensate(ctx, i-1)
			return err
		}
	}
	return nil
}

func (s *Saga) compensate(ctx context.Context, from int) {
	for i := from; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.log.Error("saga compensation failed", "step", step.Name, "error", err)
		}
	}
}
