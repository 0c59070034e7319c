package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/ledger"
)

// RetentionService prunes the transition ledger periodically.
type RetentionService struct {
	cfg    config.LedgerConfig
	ledger *ledger.Ledger
	done   chan struct{}
}

// NewRetentionService creates the service. A non-positive retention keeps
// history forever.
func NewRetentionService(cfg config.LedgerConfig, l *ledger.Ledger) *RetentionService {
	return &RetentionService{cfg: cfg, ledger: l}
}

// Start prunes once and then every cleanup interval.
func (s *RetentionService) Start(ctx context.Context) {
	if s.cfg.RetentionDays <= 0 || s.cfg.CleanupInterval <= 0 {
		return
	}

	s.done = make(chan struct{})
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.cfg.CleanupInterval.Duration())
		defer ticker.Stop()

		for {
			s.prune()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *RetentionService) prune() {
	retention := time.Duration(s.cfg.RetentionDays) * 24 * time.Hour
	deleted, err := s.ledger.DeleteOlderThan(retention)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to prune transition history")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Int("retention_days", s.cfg.RetentionDays).Msg("Pruned transition history")
	}
}

// Wait blocks until the pruning loop exits.
func (s *RetentionService) Wait() {
	if s.done != nil {
		<-s.done
	}
}
