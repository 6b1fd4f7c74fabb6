package daemon

import (
	"context"
	"time"

	"github.com/gofrs/flock"

	"sentinel/internal/heartbeat"
	"sentinel/internal/poller"
	"sentinel/internal/state"
)

// Status represents daemon runtime information.
type Status struct {
	Running       bool                  `json:"running"`
	PollerState   poller.State          `json:"poller_state,omitempty"`
	LastOutcome   poller.Outcome        `json:"last_outcome,omitempty"`
	Source        string                `json:"source"`
	Cursor        time.Time             `json:"cursor,omitempty"`
	HasCursor     bool                  `json:"has_cursor"`
	LastHeartbeat time.Time             `json:"last_heartbeat,omitempty"`
	NextHeartbeat time.Time             `json:"next_heartbeat,omitempty"`
	StateBackend  string                `json:"state_backend"`
	LockFilePath  string                `json:"lock_file"`
	HistoryPath   string                `json:"history_db,omitempty"`
	Verdicts      state.VerdictCounts   `json:"verdicts"`
	Recent        []state.VerdictRecord `json:"recent,omitempty"`
	Errors        []string              `json:"errors,omitempty"`
}

// Status reports the persisted watermarks, the lock holder, and recent
// verdicts. While this process runs the poller, the in-memory values are used.
func (d *Daemon) Status(ctx context.Context, recent int) Status {
	status := Status{
		Source:       d.source.Name(),
		StateBackend: d.cfg.State.Backend,
		LockFilePath: d.lockPath,
	}

	if d.running.Load() {
		status.Running = true
		status.PollerState = d.poller.State()
		status.LastOutcome = d.poller.LastOutcome()
		status.Cursor = d.poller.Cursor()
		status.HasCursor = !status.Cursor.IsZero()
		status.LastHeartbeat = d.poller.LastHeartbeat()
	} else {
		status.Running = lockHeld(d.lockPath)
		cursor, ok, err := d.store.LoadCursor(ctx)
		if err != nil {
			status.Errors = append(status.Errors, "cursor: "+err.Error())
		}
		status.Cursor, status.HasCursor = cursor, ok
		last, _, err := d.store.LoadHeartbeat(ctx)
		if err != nil {
			status.Errors = append(status.Errors, "heartbeat: "+err.Error())
		}
		status.LastHeartbeat = last
	}
	if next, enabled := heartbeat.Next(status.LastHeartbeat, d.cfg.HeartbeatInterval()); enabled {
		status.NextHeartbeat = next
	}

	if d.history != nil {
		status.HistoryPath = d.history.Path()
		counts, err := d.history.CountVerdicts(ctx)
		if err != nil {
			status.Errors = append(status.Errors, "history: "+err.Error())
		}
		status.Verdicts = counts
		if recent > 0 {
			rows, err := d.history.RecentVerdicts(ctx, recent)
			if err != nil {
				status.Errors = append(status.Errors, "history: "+err.Error())
			}
			status.Recent = rows
		}
	}
	return status
}

// lockHeld tries the lock file with a separate handle.
func lockHeld(path string) bool {
	handle := flock.New(path)
	locked, err := handle.TryLock()
	if err != nil {
		return false
	}
	if !locked {
		return true
	}
	_ = handle.Unlock()
	return false
}
