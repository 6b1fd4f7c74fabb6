package services_test

import (
	"context"
	"testing"

	"sentinel/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCycleID(ctx, "cycle-1")
	ctx = services.WithSource(ctx, "graylog")

	if id, ok := services.CycleIDFromContext(ctx); !ok || id != "cycle-1" {
		t.Fatalf("unexpected cycle id: %v %v", id, ok)
	}
	if source, ok := services.SourceFromContext(ctx); !ok || source != "graylog" {
		t.Fatalf("unexpected source: %v %v", source, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCycleID(ctx, "")
	ctx = services.WithSource(ctx, "")
	if _, ok := services.CycleIDFromContext(ctx); ok {
		t.Fatal("expected no cycle id value")
	}
	if _, ok := services.SourceFromContext(ctx); ok {
		t.Fatal("expected no source value")
	}
}
