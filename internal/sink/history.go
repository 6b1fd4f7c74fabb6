package sink

import (
	"context"

	"sentinel/internal/state"
)

// VerdictWriter is the part of the sqlite store the history sink needs.
type VerdictWriter interface {
	InsertVerdict(ctx context.Context, rec state.VerdictRecord) (int64, error)
}

// History records reports in the verdict history table. The store is owned by
// the caller; Close does not close it.
type History struct {
	store VerdictWriter
}

func NewHistory(store VerdictWriter) *History {
	return &History{store: store}
}

func (h *History) Name() string { return "history" }

func (h *History) Write(ctx context.Context, report Report) error {
	_, err := h.store.InsertVerdict(ctx, state.VerdictRecord{
		CycleID:     report.CycleID,
		Source:      report.Source,
		WindowFrom:  report.Window.From,
		WindowTo:    report.Window.To,
		FirstRecord: report.FirstRecord,
		LastRecord:  report.LastRecord,
		RecordCount: report.RecordCount,
		Status:      report.Status(),
		Model:       report.Verdict.Model,
		Text:        report.Verdict.Text,
		Detail:      report.Verdict.Detail,
		Escalated:   report.Escalated,
		Duration:    report.Verdict.Duration,
		CreatedAt:   report.CreatedAt,
	})
	return err
}

func (h *History) Close() error { return nil }
