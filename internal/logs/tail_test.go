package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sentinel/internal/logs"
)

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel-a.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\nd\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.LastLines(path, 2)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}
	if strings.Join(lines, ",") != "c,d" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != 8 {
		t.Fatalf("expected offset at end of file, got %d", offset)
	}

	lines, _, err = logs.LastLines(path, 10)
	if err != nil || len(lines) != 4 {
		t.Fatalf("expected all lines, got %#v (%v)", lines, err)
	}

	lines, offset, err = logs.LastLines(filepath.Join(t.TempDir(), "missing.log"), 5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("expected empty result for missing file, got %#v %d %v", lines, offset, err)
	}
}

func TestReadFromKeepsPartialLineAndHandlesRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel-b.log")
	if err := os.WriteFile(path, []byte("one\ntwo\npart"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.ReadFrom(path, 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if strings.Join(lines, ",") != "one,two" || offset != 8 {
		t.Fatalf("unexpected read: %#v offset=%d", lines, offset)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	_, _ = f.WriteString("ial\r\n")
	_ = f.Close()

	lines, offset, err = logs.ReadFrom(path, offset)
	if err != nil || len(lines) != 1 || lines[0] != "partial" {
		t.Fatalf("expected completed partial line, got %#v (%v)", lines, err)
	}

	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatalf("rotate log: %v", err)
	}
	lines, _, err = logs.ReadFrom(path, offset)
	if err != nil || len(lines) != 1 || lines[0] != "fresh" {
		t.Fatalf("expected rotated file to be re-read, got %#v (%v)", lines, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel-c.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logs.LastLines(path, 1)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 20*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			if line == "later" {
				cancel()
			}
		})
	}()

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	_, _ = f.WriteString("later\n")
	_ = f.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("unexpected followed lines: %#v", got)
	}
}

func TestLatestRunLog(t *testing.T) {
	dir := t.TempDir()
	if _, err := logs.LatestRunLog(dir); err == nil {
		t.Fatal("expected error for empty directory")
	}

	older := filepath.Join(dir, "sentinel-20260701T080000Z-aaaa.log")
	newer := filepath.Join(dir, "sentinel-20260701T090000Z-bbbb.log")
	for _, p := range []string{older, newer, filepath.Join(dir, "other.log")} {
		if err := os.WriteFile(p, []byte("x\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	got, err := logs.LatestRunLog(dir)
	if err != nil {
		t.Fatalf("LatestRunLog: %v", err)
	}
	if got != newer {
		t.Fatalf("expected %s, got %s", newer, got)
	}
}
