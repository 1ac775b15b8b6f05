package database

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gmp-id/gmpcms/internal/logging"
)

var (
	nowFunc               = time.Now
	tokenPurgeInterval    = time.Hour
	visitorPurgeInterval  = 24 * time.Hour
	purgeStatementTimeout = time.Minute
)

// RetentionScheduler deletes expired revocation entries and visitor rows
// older than the configured retention window.
type RetentionScheduler struct {
	retentionDays int
	stopChan      chan struct{}
}

// NewRetentionScheduler creates a scheduler. A retention of zero keeps
// visitor rows forever.
func NewRetentionScheduler(retentionDays int) *RetentionScheduler {
	return &RetentionScheduler{
		retentionDays: retentionDays,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the purge loops
func (rs *RetentionScheduler) Start() {
	logging.L().Info("starting retention scheduler", zap.Int("visitor_retention_days", rs.retentionDays))

	go rs.schedule(tokenPurgeInterval, rs.purgeRevokedTokens)
	if rs.retentionDays > 0 {
		go rs.schedule(visitorPurgeInterval, rs.purgeVisitorTracking)
	}
}

// Stop gracefully stops the scheduler
func (rs *RetentionScheduler) Stop() {
	close(rs.stopChan)
}

func (rs *RetentionScheduler) schedule(interval time.Duration, task func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	task()

	for {
		select {
		case <-ticker.C:
			task()
		case <-rs.stopChan:
			return
		}
	}
}

func (rs *RetentionScheduler) purgeRevokedTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeStatementTimeout)
	defer cancel()

	res, err := DB.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, nowFunc())
	if err != nil {
		logging.L().Warn("failed to purge revoked tokens", zap.Error(err))
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logging.L().Info("purged revoked tokens", zap.Int64("count", n))
	}
}

func (rs *RetentionScheduler) purgeVisitorTracking() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeStatementTimeout)
	defer cancel()

	cutoff := nowFunc().AddDate(0, 0, -rs.retentionDays)
	res, err := DB.ExecContext(ctx, `DELETE FROM visitor_tracking WHERE created_at < $1`, cutoff)
	if err != nil {
		logging.L().Warn("failed to purge visitor tracking", zap.Error(err))
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logging.L().Info("purged visitor tracking rows",
			zap.Int64("count", n),
			zap.String("cutoff", cutoff.Format("2006-01-02")),
		)
	}
}
