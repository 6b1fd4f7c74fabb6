// Package graylog fetches log messages from the Graylog universal search API.
package graylog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sentinel/internal/config"
	"sentinel/internal/services"
	"sentinel/internal/source"
	"sentinel/internal/source/httpclient"
)

// Name is the provider name used in configuration.
const Name = "graylog"

const (
	searchPath      = "/search/universal/absolute"
	requestedBy     = "sentinel"
	graylogTimeFmt  = "2006-01-02T15:04:05.000Z"
	defaultLimit    = 500
	defaultFieldSet = "message,timestamp,source"
)

func init() {
	source.Register(Name, func(cfg config.Source) (source.Source, error) {
		return New(cfg)
	})
}

// Source queries one Graylog stream (or free-form query).
type Source struct {
	client *httpclient.Client
	query  string
	limit  int
}

// New builds a Graylog source from cfg. The URL is expected to point at the
// REST API root; config normalization appends /api when missing.
func New(cfg config.Source, opts ...httpclient.Option) (*Source, error) {
	baseURL := config.GraylogAPIURL(cfg.URL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, Name, "init", "url is required", nil)
	}
	query := BuildQuery(cfg.StreamID, cfg.Query)
	if query == "" {
		return nil, services.Wrap(services.ErrConfiguration, Name, "init", "stream_id or query is required", nil)
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	clientOpts := []httpclient.Option{
		// Graylog access tokens use the literal password "token".
		httpclient.WithBasicAuth(cfg.Token, "token"),
		httpclient.WithHeader("X-Requested-By", requestedBy),
		httpclient.WithTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second),
	}
	clientOpts = append(clientOpts, opts...)
	return &Source{
		client: httpclient.New(baseURL, clientOpts...),
		query:  query,
		limit:  limit,
	}, nil
}

// BuildQuery combines the stream filter with an optional extra query.
func BuildQuery(streamID, extra string) string {
	streamID = strings.TrimSpace(streamID)
	extra = strings.TrimSpace(extra)
	switch {
	case streamID != "" && extra != "":
		return fmt.Sprintf("streams:%s AND (%s)", streamID, extra)
	case streamID != "":
		return "streams:" + streamID
	default:
		return extra
	}
}

func (s *Source) Name() string { return Name }

type searchResponse struct {
	Messages []struct {
		Message map[string]any `json:"message"`
	} `json:"messages"`
	TotalResults int `json:"total_results"`
}

// Fetch returns the messages inside window, oldest first.
func (s *Source) Fetch(ctx context.Context, window source.Window) ([]source.Record, error) {
	params := url.Values{}
	params.Set("query", s.query)
	params.Set("from", window.From.UTC().Format(graylogTimeFmt))
	params.Set("to", window.To.UTC().Format(graylogTimeFmt))
	params.Set("fields", defaultFieldSet)
	params.Set("sort", "timestamp:asc")
	params.Set("limit", strconv.Itoa(s.limit))

	var resp searchResponse
	if err := s.client.GetJSON(ctx, searchPath, params, &resp); err != nil {
		return nil, fmt.Errorf("graylog search: %w", err)
	}

	records := make([]source.Record, 0, len(resp.Messages))
	for _, entry := range resp.Messages {
		rec, ok := toRecord(entry.Message)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	source.SortRecords(records)
	return records, nil
}

func toRecord(fields map[string]any) (source.Record, bool) {
	rawTS, _ := fields["timestamp"].(string)
	ts, err := source.ParseTimestamp(rawTS)
	if err != nil {
		return source.Record{}, false
	}
	rec := source.Record{Timestamp: ts}
	rec.Message, _ = fields["message"].(string)
	rec.Source, _ = fields["source"].(string)
	for key, value := range fields {
		switch key {
		case "timestamp", "message", "source":
			continue
		}
		if rec.Fields == nil {
			rec.Fields = make(map[string]string)
		}
		rec.Fields[key] = fmt.Sprint(value)
	}
	return rec, true
}
