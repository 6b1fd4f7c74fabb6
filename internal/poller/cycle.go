package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sentinel/internal/analyzer"
	"sentinel/internal/heartbeat"
	"sentinel/internal/logging"
	"sentinel/internal/notifications"
	"sentinel/internal/services"
	"sentinel/internal/sink"
	"sentinel/internal/source"
)

const persistTimeout = 10 * time.Second

// RunCycle performs one fetch/analyze/persist pass starting at cursor and
// returns the cursor for the next cycle. The returned cursor is never earlier
// than the one passed in.
func (p *Poller) RunCycle(ctx context.Context, cursor time.Time) (time.Time, Outcome) {
	started := time.Now()
	cycleID := p.newCycleID()
	ctx = services.WithCycleID(ctx, cycleID)
	ctx = services.WithSource(ctx, p.source.Name())
	logger := logging.WithContext(ctx, p.logger)

	p.mu.Lock()
	p.cursor = cursor
	p.mu.Unlock()

	next, outcome := p.runCycle(ctx, logger, cycleID, cursor)

	p.mu.Lock()
	p.lastOutcome = outcome
	p.mu.Unlock()
	p.metrics.ObserveCycle(string(outcome), time.Since(started))
	logger.Debug("poll cycle finished",
		logging.String("outcome", string(outcome)),
		logging.Time("cursor", next),
		logging.Duration("elapsed", time.Since(started)),
	)
	return next, outcome
}

func (p *Poller) runCycle(ctx context.Context, logger *slog.Logger, cycleID string, cursor time.Time) (time.Time, Outcome) {
	if err := p.transition(ctx, StateFetching); err != nil {
		return cursor, OutcomeCancelled
	}
	now := p.now()
	window := source.Window{From: cursor, To: now}

	if !now.After(cursor) {
		logger.Debug("cursor is not behind the clock; skipping fetch",
			logging.Time("cursor", cursor),
			logging.Time("now", now),
		)
		p.maybeHeartbeat(ctx, logger, now, cursor)
		return cursor, OutcomeEmpty
	}

	records, err := p.fetch(ctx, window)
	if err != nil {
		if ctx.Err() != nil {
			return cursor, OutcomeCancelled
		}
		logging.WarnWithContext(logger, "source fetch failed; window will be retried",
			"source_fetch_failed",
			logging.Error(err),
			logging.String("error_class", services.Classify(err)),
			logging.Time("window_from", window.From),
			logging.Time("window_to", window.To),
			logging.String(logging.FieldErrorHint, "check source URL, credentials and reachability"),
			logging.String(logging.FieldImpact, "cursor unchanged; no heartbeat this cycle"),
		)
		return cursor, OutcomeFetchFailed
	}
	p.metrics.AddRecords(len(records))

	records = p.dropSeen(cursor, records)
	if len(records) == 0 {
		logger.Debug("no new records", logging.Time("window_from", window.From))
		p.maybeHeartbeat(ctx, logger, now, cursor)
		return cursor, OutcomeEmpty
	}
	source.SortRecords(records)

	if err := p.transition(ctx, StateAnalyzing); err != nil {
		return cursor, OutcomeCancelled
	}
	logger.Info("analyzing batch",
		logging.String(logging.FieldEventType, "batch_fetched"),
		logging.Int("records", len(records)),
		logging.Time("first_record", records[0].Timestamp),
		logging.Time("last_record", records[len(records)-1].Timestamp),
	)
	verdict := p.analyze(ctx, logger, records)
	if ctx.Err() != nil {
		return cursor, OutcomeCancelled
	}
	escalated := p.escalation.Matches(verdict)

	if err := p.transition(ctx, StatePersisting); err != nil {
		return cursor, OutcomeCancelled
	}
	report := sink.Report{
		CycleID:     cycleID,
		Source:      p.source.Name(),
		Window:      window,
		RecordCount: len(records),
		FirstRecord: records[0].Timestamp,
		LastRecord:  records[len(records)-1].Timestamp,
		Verdict:     verdict,
		Escalated:   escalated,
		CreatedAt:   p.now(),
	}
	if err := p.sink.Write(ctx, report); err != nil {
		logging.ErrorWithContext(logger, "report write failed; batch will be retried",
			"sink_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check analysis file permissions and archive/history availability"),
			logging.String(logging.FieldImpact, "cursor not advanced"),
		)
		return cursor, OutcomeSinkFailed
	}
	p.metrics.ObserveVerdict(report.Status(), escalated)
	p.notifyVerdict(ctx, logger, verdict, escalated, len(records))

	next := records[len(records)-1].Timestamp
	if next.Before(cursor) {
		next = cursor
	}
	p.rememberBoundary(next, records)
	p.advance(ctx, logger, cursor, next)

	if verdict.Failed() {
		return next, OutcomeAnalysisFailed
	}
	return next, OutcomeProcessed
}

func (p *Poller) fetch(ctx context.Context, window source.Window) ([]source.Record, error) {
	fetchCtx := ctx
	if p.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.FetchTimeout)
		defer cancel()
	}
	return p.source.Fetch(fetchCtx, window)
}

// analyze never fails: errors become the error-marker verdict.
func (p *Poller) analyze(ctx context.Context, logger *slog.Logger, records []source.Record) analyzer.Verdict {
	analyzeCtx := ctx
	if p.cfg.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		analyzeCtx, cancel = context.WithTimeout(ctx, p.cfg.AnalysisTimeout)
		defer cancel()
	}
	started := time.Now()
	verdict, err := p.analyzer.Analyze(analyzeCtx, analyzer.Request{
		Records:      records,
		SystemPrompt: p.cfg.SystemPrompt,
	})
	if err != nil {
		if errors.Is(analyzeCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
			err = services.Wrap(services.ErrTimeout, "analyzer", "analyze", "deadline exceeded", err)
		}
		if ctx.Err() == nil {
			logging.WarnWithContext(logger, "analysis failed; recording error verdict",
				"analysis_failed",
				logging.Error(err),
				logging.String("error_class", services.Classify(err)),
				logging.Int("records", len(records)),
				logging.String(logging.FieldErrorHint, "check analyzer endpoint and model availability"),
				logging.String(logging.FieldImpact, "batch will not be re-analyzed"),
			)
		}
		return analyzer.ErrorVerdict(p.cfg.Model, err, time.Since(started))
	}
	if verdict.Status == "" {
		verdict.Status = analyzer.StatusOK
	}
	if verdict.Model == "" {
		verdict.Model = p.cfg.Model
	}
	if verdict.Duration == 0 {
		verdict.Duration = time.Since(started)
	}
	logger.Info("analysis complete",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.Duration("duration", verdict.Duration),
		logging.Int("response_chars", len(verdict.Text)),
	)
	return verdict
}

func (p *Poller) notifyVerdict(ctx context.Context, logger *slog.Logger, verdict analyzer.Verdict, escalated bool, records int) {
	var msg notifications.Message
	switch {
	case escalated:
		msg = notifications.EscalationMessage(p.source.Name(), verdict.Text, records)
		logger.Warn("escalation rule matched",
			logging.String(logging.FieldEventType, "escalation"),
			logging.Alert("anomaly"),
			logging.Int("records", records),
		)
	case verdict.Failed():
		msg = notifications.AnalyzerErrorMessage(p.source.Name(), verdict.Detail, records)
	default:
		return
	}
	p.notify(ctx, logger, msg)
}

func (p *Poller) notify(ctx context.Context, logger *slog.Logger, msg notifications.Message) bool {
	if p.notifier == nil {
		return true
	}
	if err := p.notifier.Notify(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send notification", logging.String("tag", msg.Tag))
			return false
		}
		logging.WarnWithContext(logger, "notification failed",
			"notification_failed",
			logging.Error(err),
			logging.String("tag", msg.Tag),
			logging.String(logging.FieldErrorHint, "check notification provider settings"),
			logging.String(logging.FieldImpact, "operator was not notified"),
		)
		return false
	}
	return true
}

// advance moves the in-memory cursor and persists it. A persistence failure
// is logged but does not stop the loop.
func (p *Poller) advance(ctx context.Context, logger *slog.Logger, prev, next time.Time) {
	p.mu.Lock()
	p.cursor = next
	p.mu.Unlock()
	p.metrics.SetCursor(next)

	persistCtx, cancel := persistContext(ctx)
	defer cancel()
	if err := p.store.SaveCursor(persistCtx, next); err != nil {
		logging.ErrorWithContext(logger, "cursor persist failed",
			"cursor_persist_failed",
			logging.Error(err),
			logging.Alert("critical"),
			logging.Time("cursor", next),
			logging.String(logging.FieldErrorHint, "check state directory permissions and disk space"),
			logging.String(logging.FieldImpact, "a restart will re-analyze records since the last saved cursor"),
		)
		return
	}
	logger.Info("cursor advanced",
		logging.String(logging.FieldEventType, "cursor_advanced"),
		logging.Time("from", prev),
		logging.Time("to", next),
	)
}

func (p *Poller) maybeHeartbeat(ctx context.Context, logger *slog.Logger, now, cursor time.Time) {
	p.mu.Lock()
	last := p.lastHeartbeat
	p.mu.Unlock()

	at, due := heartbeat.Maybe(now, last, p.cfg.HeartbeatInterval)
	if !due {
		return
	}
	if !p.notify(ctx, logger, notifications.HeartbeatMessage(p.source.Name(), cursor)) {
		return
	}
	p.mu.Lock()
	p.lastHeartbeat = at
	p.mu.Unlock()
	p.metrics.HeartbeatSent()
	logger.Info("heartbeat sent",
		logging.String(logging.FieldEventType, "heartbeat_sent"),
		logging.Time("cursor", cursor),
	)
	persistCtx, cancel := persistContext(ctx)
	defer cancel()
	if err := p.store.SaveHeartbeat(persistCtx, at); err != nil {
		logging.WarnWithContext(logger, "heartbeat persist failed",
			"heartbeat_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state directory permissions"),
			logging.String(logging.FieldImpact, "a restart may send an extra heartbeat"),
		)
	}
}

// persistContext detaches watermark writes from cancellation so a shutdown
// that lands after the report was written still records the new position.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

// dropSeen removes records the previous batch already covered: anything older
// than the cursor, and records at the cursor whose key was in that batch.
func (p *Poller) dropSeen(cursor time.Time, records []source.Record) []source.Record {
	p.mu.Lock()
	boundary := p.boundary
	if !p.boundaryAt.Equal(cursor) {
		boundary = nil
	}
	p.mu.Unlock()

	kept := records[:0:0]
	for _, rec := range records {
		if rec.Timestamp.Before(cursor) {
			continue
		}
		if rec.Timestamp.Equal(cursor) && boundary != nil {
			if _, seen := boundary[rec.Key()]; seen {
				continue
			}
		}
		kept = append(kept, rec)
	}
	return kept
}

func (p *Poller) rememberBoundary(at time.Time, records []source.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make(map[string]struct{})
	if p.boundaryAt.Equal(at) {
		for key := range p.boundary {
			keys[key] = struct{}{}
		}
	}
	for _, rec := range records {
		if rec.Timestamp.Equal(at) {
			keys[rec.Key()] = struct{}{}
		}
	}
	p.boundary = keys
	p.boundaryAt = at
}
