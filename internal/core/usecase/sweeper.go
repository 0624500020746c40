package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/internal/core/models"
	"github.com/Nzyazin/momopay/internal/core/repository"
	"github.com/Nzyazin/momopay/pkg/config"
	"github.com/robfig/cron/v3"
)

// StatusReconciler is satisfied by PaymentUsecase.
type StatusReconciler interface {
	GetStatus(ctx context.Context, referenceID string) (*models.PaymentStatus, error)
}

// PendingSweeper periodically reconciles transactions stuck in PENDING so that
// clients that never poll still get a final status recorded.
type PendingSweeper struct {
	repo       repository.TransactionRepository
	reconciler StatusReconciler
	cfg        config.SweeperConfig
	log        logger.Logger
	mu         sync.Mutex
	cron       *cron.Cron
	now        func() time.Time
}

func NewPendingSweeper(repo repository.TransactionRepository, reconciler StatusReconciler, cfg config.SweeperConfig, log logger.Logger) *PendingSweeper {
	return &PendingSweeper{
		repo:       repo,
		reconciler: reconciler,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// Start schedules Sweep. It is a no-op when no schedule is configured.
func (s *PendingSweeper) Start() error {
	if s.cfg.Schedule == "" {
		s.log.Info("Pending sweeper disabled")
		return nil
	}

	cl := cronLogger{log: s.log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.log.Error("Pending sweep failed", logger.ErrorField("error", err))
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.Schedule, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	s.log.Info("Pending sweeper started", logger.StringField("schedule", s.cfg.Schedule))
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (s *PendingSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sweeper stop: %w", ctx.Err())
	}
}

// Sweep reconciles one batch of old pending transactions and returns how many
// of them were looked up successfully.
func (s *PendingSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.MinAge)
	pending, err := s.repo.ListPending(ctx, cutoff, s.cfg.Batch)
	if err != nil {
		return 0, err
	}

	var refreshed int
	for _, tx := range pending {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		status, err := s.reconciler.GetStatus(ctx, tx.MomoReferenceID)
		if err != nil {
			s.log.Warn("Pending reconciliation failed",
				logger.StringField("reference_id", tx.MomoReferenceID),
				logger.StringField("kind", KindOf(err).String()),
				logger.ErrorField("error", err))
			continue
		}
		refreshed++
		s.log.Debug("Pending reconciled",
			logger.StringField("reference_id", tx.MomoReferenceID),
			logger.StringField("status", string(status.Status)))
	}

	if len(pending) > 0 {
		s.log.Info("Pending sweep finished",
			logger.IntField("candidates", len(pending)),
			logger.IntField("refreshed", refreshed))
	}
	return refreshed, nil
}

type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logger.ErrorField("error", err))...)
}

func kvFields(keysAndValues []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logger.AnyField(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}
