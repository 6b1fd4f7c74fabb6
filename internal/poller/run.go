package poller

import (
	"context"
	"time"

	"sentinel/internal/logging"
)

// Load restores the persisted cursor and heartbeat. Without a stored cursor
// (or when it cannot be read) the cursor starts at now minus the lookback and
// is saved so a restart resumes from the same point.
func (p *Poller) Load(ctx context.Context) time.Time {
	logger := p.logger
	cursor, ok, err := p.store.LoadCursor(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "stored cursor unreadable; starting from lookback",
			"cursor_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect or reset the cursor with 'sentinel cursor'"),
			logging.String(logging.FieldImpact, "records older than the lookback window are skipped"),
		)
	}
	if err != nil || !ok {
		cursor = p.now().Add(-p.cfg.Lookback)
		logger.Info("initialized cursor from lookback",
			logging.String(logging.FieldEventType, "cursor_initialized"),
			logging.Time("cursor", cursor),
			logging.Duration("lookback", p.cfg.Lookback),
		)
		if err := p.store.SaveCursor(ctx, cursor); err != nil {
			logging.ErrorWithContext(logger, "cursor persist failed",
				"cursor_persist_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state directory permissions and disk space"),
			)
		}
	}

	last, ok, err := p.store.LoadHeartbeat(ctx)
	if err != nil {
		logger.Warn("stored heartbeat unreadable; treating as never sent",
			logging.Error(err),
			logging.String(logging.FieldEventType, "heartbeat_load_failed"),
		)
	}
	if err != nil || !ok {
		last = time.Time{}
	}

	p.mu.Lock()
	p.cursor = cursor
	p.lastHeartbeat = last
	p.mu.Unlock()
	p.metrics.SetCursor(cursor)
	return cursor
}

// Run loads the watermarks and polls until ctx is cancelled. Cycle failures
// never end the loop; cancellation returns nil.
func (p *Poller) Run(ctx context.Context) error {
	cursor := p.Load(ctx)
	p.logger.Info("poller started",
		logging.String(logging.FieldEventType, "poller_started"),
		logging.String(logging.FieldSource, p.source.Name()),
		logging.Time("cursor", cursor),
		logging.Duration("interval", p.cfg.Interval),
	)
	defer p.setIdle()

	for {
		if ctx.Err() != nil {
			break
		}
		cursor, _ = p.RunCycle(ctx, cursor)
		if err := p.transition(ctx, StateSleeping); err != nil {
			break
		}
		timer := time.NewTimer(p.cfg.Interval)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
		if err := p.transition(ctx, StateIdle); err != nil {
			break
		}
	}

	p.logger.Info("poller stopped",
		logging.String(logging.FieldEventType, "poller_stopped"),
		logging.Time("cursor", p.Cursor()),
	)
	return nil
}
