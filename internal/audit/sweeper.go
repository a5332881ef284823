package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/credgate/pkg/schema"
)

// Sweeper prunes old audit entries on a cron schedule. It runs inside the
// long-lived serve process; the short-lived scan processes only append.
type Sweeper struct {
	log       Log
	retention time.Duration
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewSweeper creates a Sweeper. schedule is a standard five-field cron spec;
// retention is how long entries are kept.
func NewSweeper(log Log, schedule string, retention time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{log: log, retention: retention, logger: logger, cron: cron.New()}

	_, err := s.cron.AddFunc(schedule, s.sweep)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"invalid sweep schedule %q: %v", schedule, err).WithCause(err)
	}
	return s, nil
}

// Start launches the cron loop.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("audit sweeper started",
		slog.String("retention", s.retention.String()))
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.log.Prune(ctx, s.retention)
	if err != nil {
		s.logger.Error("audit prune failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Info("audit entries pruned", slog.Int64("removed", n))
	}
}
