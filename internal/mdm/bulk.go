package mdm

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/martinsuchenak/mdmkit/internal/model"
)

// DetailResult is the outcome of one detail fetch in a batch. Detail is
// nil when the server had no record for the stub or the fetch exhausted
// its retries; Err carries the transport failure when there was one.
type DetailResult struct {
	ID     int
	Detail model.DeviceDetail
	Err    error
}

// BulkOptions tunes a batch detail fetch.
type BulkOptions struct {
	// MaxConnections bounds the overlapping requests. Zero means the
	// client's configured bound.
	MaxConnections int

	// Sequential fetches one device at a time instead of fanning out.
	// The result set is the same modulo ordering.
	Sequential bool

	// Progress, when set, is called after each device resolves with the
	// completed count and the batch total. Completion order, not input
	// order; calls can arrive from concurrent goroutines.
	Progress func(completed, total int)
}

// FetchDetails resolves the detail record for every stub. The call
// blocks until all stubs have resolved and always returns exactly one
// result per stub; an individual device's failure is logged and leaves
// a nil Detail in its slot rather than aborting the batch. Results
// arrive in completion order.
//
// The fan-out runs over a short-lived client bound to the session's
// token and capped at the connection bound, so a full-inventory batch
// never holds more sockets to the server than the bound allows.
func (c *Client) FetchDetails(ctx context.Context, stubs []model.DeviceStub, opts BulkOptions) []DetailResult {
	total := len(stubs)
	if total == 0 {
		return nil
	}

	batchID := generateBatchID()
	if opts.Sequential {
		log.Info("Fetching device details sequentially", "batch", batchID, "devices", total)
		return c.fetchSequential(ctx, stubs, opts, batchID)
	}

	maxConns := opts.MaxConnections
	if maxConns <= 0 {
		maxConns = c.maxConnections
	}

	tlsCfg, err := tlsConfigFor(c.tlsCAFile, c.tlsInsecure)
	if err != nil {
		// The settings were validated at construction.
		tlsCfg = nil
	}
	transport := newTransport(tlsCfg, maxConns, c.retryAttempts, c.retryBackoff)
	hc := &http.Client{Transport: transport, Timeout: c.timeout}
	defer transport.CloseIdleConnections()

	log.Info("Fetching device details", "batch", batchID, "devices", total, "max_connections", maxConns)
	start := time.Now()

	sem := make(chan struct{}, maxConns)
	results := make([]DetailResult, 0, total)

	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0

	for _, stub := range stubs {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			detail, err := c.fetchDevice(ctx, hc, id, true)
			if err != nil {
				log.Error("Device detail fetch failed", "batch", batchID, "id", id, "error", err)
			} else if detail == nil {
				log.Warn("Device detail missing", "batch", batchID, "id", id)
			}

			mu.Lock()
			results = append(results, DetailResult{ID: id, Detail: detail, Err: err})
			completed++
			done := completed
			mu.Unlock()

			if opts.Progress != nil {
				opts.Progress(done, total)
			}
		}(stub.ID)
	}

	wg.Wait()

	log.Info("Device detail batch complete", "batch", batchID, "devices", total,
		"duration", time.Since(start).Round(time.Millisecond).String())
	return results
}

// fetchSequential is the fallback strategy for environments without
// concurrent I/O headroom. Same contract as the fan-out path.
func (c *Client) fetchSequential(ctx context.Context, stubs []model.DeviceStub, opts BulkOptions, batchID string) []DetailResult {
	total := len(stubs)
	results := make([]DetailResult, 0, total)

	for i, stub := range stubs {
		detail, err := c.fetchDevice(ctx, c.rest, stub.ID, true)
		if err != nil {
			log.Error("Device detail fetch failed", "batch", batchID, "id", stub.ID, "error", err)
		} else if detail == nil {
			log.Warn("Device detail missing", "batch", batchID, "id", stub.ID)
		}
		results = append(results, DetailResult{ID: stub.ID, Detail: detail, Err: err})
		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}
	return results
}

// ListDevicesDetailed lists the inventory and enriches every stub with
// its detail record in one batch.
func (c *Client) ListDevicesDetailed(ctx context.Context, pageSize int, opts BulkOptions) ([]DetailResult, error) {
	stubs, err := c.ListDevices(ctx, pageSize)
	if err != nil {
		return nil, err
	}
	return c.FetchDetails(ctx, stubs, opts), nil
}

func generateBatchID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
