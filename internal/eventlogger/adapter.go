package eventlogger

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TimurManjosov/goflagship/internal/network"
)

// Adapter delivers a Batch, per spec.md §4.2/§4.5's "event-logging adapter"
// plug-in point.
type Adapter interface {
	LogEvents(ctx context.Context, batch Batch) error
}

// ErrNonRetryable marks an adapter failure that must not be retried.
var ErrNonRetryable = errors.New("eventlogger: non-retryable delivery failure")

// HTTPAdapter posts batches to logEventURL, gzip-compressed, per spec.md
// §6's log-event request shape. Grounded on original_source's
// statsig_http_event_logging_adapter.rs contract and internal/network's
// retry/backoff client.
type HTTPAdapter struct {
	Client      *network.Client
	LogEventURL string
	SDKKey      string
}

func (a *HTTPAdapter) LogEvents(ctx context.Context, batch Batch) error {
	body, err := json.Marshal(struct {
		Events          []Event         `json:"events"`
		StatsigMetadata StatsigMetadata `json:"statsigMetadata"`
	}{batch.Events, batch.StatsigMetadata})
	if err != nil {
		return fmt.Errorf("eventlogger: marshal batch: %w", err)
	}

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	if _, err := gw.Write(body); err != nil {
		return err
	}
	if err := gw.Close(); err != nil {
		return err
	}

	resp, err := a.Client.Post(ctx, network.Args{
		URL: a.LogEventURL,
		Headers: map[string]string{
			"Content-Type":        "application/json",
			"Content-Encoding":    "gzip",
			"STATSIG-API-KEY":     a.SDKKey,
			"statsig-event-count": itoa(len(batch.Events)),
			"statsig-retry-count": itoa(batch.retryCount),
		},
		Retries: 0, // retry policy lives in the logger, not the transport
	}, gz.Bytes())
	if err != nil {
		return err
	}

	var parsed LogEventResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil || !parsed.Success {
		return fmt.Errorf("%w: unexpected response", ErrNonRetryable)
	}
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}
