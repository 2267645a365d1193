package services

import (
	"context"

	"github.com/dmitrijs2005/lootshop/internal/logging"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// saga records an undo step for every remote side effect that succeeded so a
// later failure can revert them. There is no atomicity across the remote
// systems: a failing undo is logged and the rest still run.
type saga struct {
	steps []compensation
	log   logging.Logger
}

func newSaga(log logging.Logger) *saga {
	return &saga{log: log}
}

func (s *saga) onFailure(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// abort runs the recorded undo steps newest first and returns cause.
func (s *saga) abort(ctx context.Context, cause error) error {
	ctx = context.WithoutCancel(ctx)
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			s.log.Error(ctx, "compensation failed", "step", step.name, "error", err, "cause", cause)
			continue
		}
		s.log.Info(ctx, "compensation applied", "step", step.name)
	}
	s.steps = nil
	return cause
}
