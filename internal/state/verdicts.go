package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sentinel/internal/services"
)

// VerdictRecord is one row of the verdict history.
type VerdictRecord struct {
	ID          int64
	CycleID     string
	Source      string
	WindowFrom  time.Time
	WindowTo    time.Time
	FirstRecord time.Time
	LastRecord  time.Time
	RecordCount int
	Status      string
	Model       string
	Text        string
	Detail      string
	Escalated   bool
	Duration    time.Duration
	CreatedAt   time.Time
}

// VerdictCounts summarizes the history table.
type VerdictCounts struct {
	Total     int
	Errors    int
	Escalated int
	Last      time.Time
}

// InsertVerdict appends a verdict to the history table.
func (s *SQLiteStore) InsertVerdict(ctx context.Context, rec VerdictRecord) (int64, error) {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO verdicts (
            cycle_id, source, window_from, window_to, first_record, last_record,
            record_count, status, model, text, detail, escalated, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CycleID,
		rec.Source,
		FormatTimestamp(rec.WindowFrom),
		FormatTimestamp(rec.WindowTo),
		nullableTime(rec.FirstRecord),
		nullableTime(rec.LastRecord),
		rec.RecordCount,
		rec.Status,
		nullableString(rec.Model),
		rec.Text,
		nullableString(rec.Detail),
		boolToInt(rec.Escalated),
		rec.Duration.Milliseconds(),
		FormatTimestamp(created),
	)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "state", "insert verdict", rec.CycleID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecentVerdicts returns up to limit verdicts, newest first.
func (s *SQLiteStore) RecentVerdicts(ctx context.Context, limit int) ([]VerdictRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cycle_id, source, window_from, window_to, first_record, last_record,
                record_count, status, model, text, detail, escalated, duration_ms, created_at
           FROM verdicts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "state", "list verdicts", "", err)
	}
	defer rows.Close()

	var out []VerdictRecord
	for rows.Next() {
		var (
			rec                     VerdictRecord
			from, to, created       string
			first, last, model, det sql.NullString
			escalated               int
			durationMS              int64
		)
		if err := rows.Scan(&rec.ID, &rec.CycleID, &rec.Source, &from, &to, &first, &last,
			&rec.RecordCount, &rec.Status, &model, &rec.Text, &det, &escalated, &durationMS, &created); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		rec.WindowFrom, _ = ParseTimestamp(from)
		rec.WindowTo, _ = ParseTimestamp(to)
		rec.CreatedAt, _ = ParseTimestamp(created)
		if first.Valid {
			rec.FirstRecord, _ = ParseTimestamp(first.String)
		}
		if last.Valid {
			rec.LastRecord, _ = ParseTimestamp(last.String)
		}
		rec.Model = model.String
		rec.Detail = det.String
		rec.Escalated = escalated != 0
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return out, nil
}

// CountVerdicts aggregates the history for status output.
func (s *SQLiteStore) CountVerdicts(ctx context.Context) (VerdictCounts, error) {
	var (
		counts VerdictCounts
		last   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(escalated), 0),
                MAX(created_at)
           FROM verdicts`).Scan(&counts.Total, &counts.Errors, &counts.Escalated, &last)
	if err != nil {
		return VerdictCounts{}, services.Wrap(services.ErrPersistence, "state", "count verdicts", "", err)
	}
	if last.Valid {
		counts.Last, _ = ParseTimestamp(last.String)
	}
	return counts, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return FormatTimestamp(value)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
