package sink_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"sentinel/internal/analyzer"
	"sentinel/internal/sink"
	"sentinel/internal/source"
	"sentinel/internal/state"
)

func sampleReport() sink.Report {
	t1 := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	t3 := t1.Add(2 * time.Minute)
	return sink.Report{
		CycleID:     "cycle-1",
		Source:      "graylog",
		Window:      source.Window{From: t1.Add(-time.Minute), To: t3.Add(time.Minute)},
		RecordCount: 3,
		FirstRecord: t1,
		LastRecord:  t3,
		Verdict:     analyzer.Verdict{Text: "ALERT: disk failing", Status: analyzer.StatusOK, Model: "llama3.2"},
		Escalated:   true,
		CreatedAt:   t3.Add(90 * time.Second),
	}
}

func TestFileSinkAppendsBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "analysis.txt")
	s, err := sink.NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	report := sampleReport()
	if err := s.Write(context.Background(), report); err != nil {
		t.Fatalf("Write: %v", err)
	}
	failed := report
	failed.CycleID = "cycle-2"
	failed.Verdict = analyzer.ErrorVerdict("llama3.2", errors.New("connection refused"), time.Second)
	failed.Escalated = false
	if err := s.Write(context.Background(), failed); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"--- 2026-03-04T10:03:30Z | STATUS: OK ---",
		"Model: llama3.2",
		"Records: 3 (2026-03-04T10:00:00Z .. 2026-03-04T10:02:00Z)",
		"ALERT: disk failing",
		"STATUS: ERROR",
		analyzer.ErrorMarker,
		"Detail: connection refused",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
	if strings.Count(text, strings.Repeat("-", 50)+"\n") != 2 {
		t.Fatalf("expected two rules, got:\n%s", text)
	}
	if strings.Index(text, "cycle-1") > strings.Index(text, "cycle-2") {
		t.Fatal("expected blocks in write order")
	}
}

func TestFileSinkRejectsWritesAfterClose(t *testing.T) {
	s, err := sink.NewFile(filepath.Join(t.TempDir(), "a.txt"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	_ = s.Close()
	if err := s.Write(context.Background(), sampleReport()); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestHistorySinkInsertsVerdict(t *testing.T) {
	store, err := state.OpenSQLite(filepath.Join(t.TempDir(), "sentinel.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	h := sink.NewHistory(store)
	if err := h.Write(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rows, err := store.RecentVerdicts(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentVerdicts: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].CycleID != "cycle-1" || !rows[0].Escalated || rows[0].RecordCount != 3 {
		t.Fatalf("unexpected row %+v", rows[0])
	}
}

type fakeObjects struct {
	exists  bool
	made    []string
	objects map[string]string
	putErr  error
}

func (f *fakeObjects) BucketExists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *fakeObjects) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	f.exists = true
	return nil
}

func (f *fakeObjects) PutObject(_ context.Context, bucket, object string, reader *strings.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	buf := make([]byte, size)
	if _, err := reader.Read(buf); err != nil {
		return minio.UploadInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[bucket+"/"+object] = string(buf)
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

func TestArchiveSinkUploadsDatedKey(t *testing.T) {
	store := &fakeObjects{}
	a := sink.NewArchiveWithStore(store, "verdicts", "/sentinel/")
	report := sampleReport()
	if err := a.Write(context.Background(), report); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := a.Write(context.Background(), report); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if len(store.made) != 1 || store.made[0] != "verdicts" {
		t.Fatalf("expected bucket created once, got %v", store.made)
	}
	body, ok := store.objects["verdicts/sentinel/2026/03/04/cycle-1.txt"]
	if !ok {
		t.Fatalf("unexpected keys %v", store.objects)
	}
	if !strings.Contains(body, "ALERT: disk failing") {
		t.Fatalf("unexpected body %q", body)
	}
}

type failingSink struct{ name string }

func (f failingSink) Name() string                             { return f.name }
func (f failingSink) Write(context.Context, sink.Report) error { return errors.New(f.name + " down") }
func (f failingSink) Close() error                             { return nil }

func TestMultiWritesAllAndJoinsErrors(t *testing.T) {
	store := &fakeObjects{exists: true}
	archive := sink.NewArchiveWithStore(store, "b", "")
	m := sink.NewMulti(failingSink{name: "first"}, nil, archive)
	if got := m.Names(); len(got) != 2 {
		t.Fatalf("expected nil sink dropped, got %v", got)
	}
	err := m.Write(context.Background(), sampleReport())
	if err == nil || !strings.Contains(err.Error(), "first down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(store.objects) != 1 {
		t.Fatal("expected later sinks to run after a failure")
	}
}
