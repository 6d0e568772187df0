package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeohealth/zeo-server/internal/types"
)

// Transport feeds progress events into a reconciler. Exactly one
// implementation is chosen at startup and kept for the session.
type Transport interface {
	Run(ctx context.Context, rec *Reconciler) error
}

// TransportConfig selects and parameterizes the transport strategy.
type TransportConfig struct {
	// PushCapable indicates the deployment supports persistent
	// WebSocket connections. When false the poll transport is used.
	PushCapable  bool
	WebSocketURL string
	BaseURL      string
	PollInterval time.Duration
	RetryDelay   time.Duration
}

// NewTransport is the single factory decision between push and poll.
func NewTransport(cfg TransportConfig) Transport {
	if cfg.PushCapable {
		retry := cfg.RetryDelay
		if retry <= 0 {
			retry = 3 * time.Second
		}
		return &PushTransport{
			url:        cfg.WebSocketURL,
			retryDelay: retry,
		}
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &PollTransport{
		baseURL:  cfg.BaseURL,
		interval: interval,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// PushTransport consumes the server's WebSocket progress stream with a
// disconnect-and-retry loop. It runs until the context is cancelled;
// terminal job status does not end the session, matching a UI that
// keeps its socket open across jobs.
type PushTransport struct {
	url        string
	retryDelay time.Duration
}

// Run dials and reads events until ctx is done.
func (t *PushTransport) Run(ctx context.Context, rec *Reconciler) error {
	for {
		if err := t.readOnce(ctx, rec); err != nil {
			log.Printf("WebSocket disconnected, reconnecting: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.retryDelay):
		}
	}
}

func (t *PushTransport) readOnce(ctx context.Context, rec *Reconciler) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var event types.ProgressEvent
		if err := conn.ReadJSON(&event); err != nil {
			return err
		}
		if event.Type != "progress" {
			continue
		}
		rec.Apply(event)
	}
}

// PollTransport reads job snapshots from the status endpoint at a fixed
// cadence. Intermediate checkpoints may be skipped; each poll sees only
// the latest state. The loop ends once a terminal status is observed.
type PollTransport struct {
	baseURL  string
	interval time.Duration
	http     *http.Client
}

// Run polls until terminal status or ctx cancellation.
func (t *PollTransport) Run(ctx context.Context, rec *Reconciler) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rec.Done():
			return nil
		case <-ticker.C:
			if err := t.poll(ctx, rec); err != nil {
				log.Printf("Polling error: %v", err)
			}
		}
	}
}

func (t *PollTransport) poll(ctx context.Context, rec *Reconciler) error {
	url := fmt.Sprintf("%s/status/%s", t.baseURL, rec.JobID())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var job types.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return err
	}

	rec.ApplyJob(job)
	return nil
}
