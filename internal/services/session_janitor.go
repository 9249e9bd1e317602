package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const sessionJanitorInterval = 6 * time.Hour

// SessionPurger removes stored workflow sessions untouched since cutoff.
type SessionPurger interface {
	PurgeOlderThan(cutoff time.Time) (int64, error)
}

// SessionJanitor periodically drops sessions older than ttl so abandoned
// browser sessions do not accumulate in the database.
type SessionJanitor struct {
	sessions SessionPurger
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionJanitor(sessions SessionPurger, ttl time.Duration, logger *zap.Logger) *SessionJanitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionJanitor{
		sessions: sessions,
		ttl:      ttl,
		interval: sessionJanitorInterval,
		logger:   logger.Named("janitor"),
		now:      time.Now,
	}
}

func (janitor *SessionJanitor) Start(ctx context.Context) {
	if janitor.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(janitor.interval)
	go func() {
		defer ticker.Stop()

		janitor.RunOnce()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				janitor.RunOnce()
			}
		}
	}()
}

// RunOnce purges expired sessions and returns how many were removed.
func (janitor *SessionJanitor) RunOnce() int64 {
	cutoff := janitor.now().Add(-janitor.ttl)
	removed, err := janitor.sessions.PurgeOlderThan(cutoff)
	if err != nil {
		janitor.logger.Error("purge sessions failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		janitor.logger.Info("purged expired sessions", zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
	}
	return removed
}
