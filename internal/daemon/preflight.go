package daemon

import (
	"context"

	"sentinel/internal/logging"
	"sentinel/internal/preflight"
)

// logPreflight runs the readiness checks once and reports failures. The poll
// loop starts regardless; a failing source shows up as fetch_failed cycles.
func (d *Daemon) logPreflight(ctx context.Context) {
	results := preflight.RunAll(ctx, d.cfg)
	failed := 0
	for _, r := range results {
		if r.Passed || r.Optional {
			continue
		}
		failed++
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run 'sentinel check' for details"),
			logging.String(logging.FieldImpact, "cycles may fail until the dependency recovers"),
		)
	}
	d.logger.Info("preflight complete",
		logging.String(logging.FieldEventType, "preflight_complete"),
		logging.Int("checks", len(results)),
		logging.Int("failed", failed),
	)
}
