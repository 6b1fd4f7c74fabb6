// Package homeassistant fetches entity state changes from the Home Assistant
// history API.
package homeassistant

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sentinel/internal/config"
	"sentinel/internal/services"
	"sentinel/internal/source"
	"sentinel/internal/source/httpclient"
)

// Name is the provider name used in configuration.
const Name = "homeassistant"

const historyPath = "/api/history/period/"

func init() {
	source.Register(Name, func(cfg config.Source) (source.Source, error) {
		return New(cfg)
	})
}

// Source polls the state history of a fixed set of entities.
type Source struct {
	client   *httpclient.Client
	entities []string
}

// New builds a Home Assistant source from cfg.
func New(cfg config.Source, opts ...httpclient.Option) (*Source, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, Name, "init", "url is required", nil)
	}
	if len(cfg.Entities) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, Name, "init", "at least one entity is required", nil)
	}
	clientOpts := []httpclient.Option{
		httpclient.WithBearer(cfg.Token),
		httpclient.WithTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second),
	}
	clientOpts = append(clientOpts, opts...)
	return &Source{
		client:   httpclient.New(baseURL, clientOpts...),
		entities: append([]string(nil), cfg.Entities...),
	}, nil
}

func (s *Source) Name() string { return Name }

type stateRow struct {
	EntityID    string `json:"entity_id"`
	State       string `json:"state"`
	LastChanged string `json:"last_changed"`
	LastUpdated string `json:"last_updated"`
}

// Fetch returns the state changes inside window, oldest first. The history
// API answers with one array per entity; with minimal_response only the first
// row of each array carries the entity id. skip_initial_state drops the
// synthetic row Home Assistant adds for each entity's state at start_time,
// which would otherwise surface as a change stamped at the cursor.
func (s *Source) Fetch(ctx context.Context, window source.Window) ([]source.Record, error) {
	from := window.From.UTC().Format(time.RFC3339Nano)
	params := url.Values{}
	params.Set("end_time", window.To.UTC().Format(time.RFC3339Nano))
	params.Set("filter_entity_id", strings.Join(s.entities, ","))
	params.Set("minimal_response", "")
	params.Set("skip_initial_state", "")

	var resp [][]stateRow
	if err := s.client.GetJSON(ctx, historyPath+url.PathEscape(from), params, &resp); err != nil {
		return nil, fmt.Errorf("homeassistant history: %w", err)
	}

	var records []source.Record
	for _, series := range resp {
		entityID := ""
		for _, row := range series {
			if row.EntityID != "" {
				entityID = row.EntityID
			}
			raw := row.LastChanged
			if raw == "" {
				raw = row.LastUpdated
			}
			ts, err := source.ParseTimestamp(raw)
			if err != nil {
				continue
			}
			if ts.Before(window.From) || !ts.Before(window.To) {
				continue
			}
			records = append(records, source.Record{
				Timestamp: ts,
				EntityID:  entityID,
				State:     row.State,
				Source:    Name,
			})
		}
	}
	source.SortRecords(records)
	return records, nil
}
