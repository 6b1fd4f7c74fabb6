package homeassistant_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sentinel/internal/config"
	"sentinel/internal/source"
	"sentinel/internal/source/homeassistant"
	"sentinel/internal/source/httpclient"
)

func TestFetchFlattensHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/history/period/2026-03-01T10:00:00Z") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ha-token" {
			t.Errorf("unexpected Authorization %q", got)
		}
		q := r.URL.Query()
		if q.Get("filter_entity_id") != "sensor.disk,binary_sensor.door" {
			t.Errorf("unexpected filter %q", q.Get("filter_entity_id"))
		}
		if q.Get("end_time") != "2026-03-01T10:10:00Z" {
			t.Errorf("unexpected end_time %q", q.Get("end_time"))
		}
		if _, ok := q["minimal_response"]; !ok {
			t.Errorf("expected minimal_response flag")
		}
		// Home Assistant reports each entity's state at start_time with
		// last_changed clamped to start_time unless skip_initial_state is set.
		diskStart := `{"entity_id":"sensor.disk","state":"81","last_changed":"2026-03-01T10:00:00+00:00"},`
		diskID := ``
		if _, ok := q["skip_initial_state"]; ok {
			diskStart = ``
			diskID = `"entity_id":"sensor.disk",`
		}
		_, _ = w.Write([]byte(`[
			[
				` + diskStart + `
				{` + diskID + `"state":"95","last_changed":"2026-03-01T10:07:00.250000+00:00"}
			],
			[
				{"entity_id":"binary_sensor.door","state":"on","last_changed":"2026-03-01T10:03:00+00:00"},
				{"state":"off","last_changed":"2026-03-01T10:12:00+00:00"}
			]
		]`))
	}))
	defer server.Close()

	src, err := homeassistant.New(config.Source{
		URL:      server.URL,
		Token:    "ha-token",
		Entities: []string{"sensor.disk", "binary_sensor.door"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	from := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	records, err := src.Fetch(context.Background(), source.Window{From: from, To: from.Add(10 * time.Minute)})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected only real changes in window, got %d: %+v", len(records), records)
	}
	wantText := []string{"binary_sensor.door=on", "sensor.disk=95"}
	for i, want := range wantText {
		if records[i].Text() != want {
			t.Fatalf("record %d = %q, want %q", i, records[i].Text(), want)
		}
	}
	if !records[1].Timestamp.Equal(from.Add(7*time.Minute + 250*time.Millisecond)) {
		t.Fatalf("unexpected timestamp %v", records[1].Timestamp)
	}
}

func TestFetchSurfacesStatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	src, err := homeassistant.New(config.Source{URL: server.URL, Token: "t", Entities: []string{"sensor.a"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = src.Fetch(context.Background(), source.Window{From: time.Now().Add(-time.Minute), To: time.Now()})
	var apiErr *httpclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if len(apiErr.Body) != 512 {
		t.Fatalf("expected body truncated to 512 bytes, got %d", len(apiErr.Body))
	}
}

func TestNewRequiresEntities(t *testing.T) {
	if _, err := homeassistant.New(config.Source{URL: "http://ha"}); err == nil {
		t.Fatal("expected error without entities")
	}
}
