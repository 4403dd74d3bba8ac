package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
	defaultBatchSize      = 50
	defaultFlushSeconds   = 10

	// serviceTag is attached to every point so device telemetry can be told
	// apart from other writers sharing the bucket.
	serviceTag = "graylogic-device"
)

// Stats counts points handed to the write API and batches it failed to write.
type Stats struct {
	Points        uint64 `json:"points"`
	FailedBatches uint64 `json:"failed_batches"`
}

// Client mirrors device telemetry into InfluxDB.
//
// Points are queued on the library's batching write API and never block the
// caller. Batch failures are counted and passed to the SetOnError callback.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	open   atomic.Bool
	points atomic.Uint64
	failed atomic.Uint64

	mu      sync.Mutex
	onError func(err error)
}

// Connect creates the client and verifies the server with a ping.
//
// Parameters:
//   - ctx: Bounds the initial ping (a 10s default applies when ctx has no deadline)
//   - cfg: InfluxDB configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrDisabled, or a wrapped ErrConnectionFailed
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	c := &Client{client: influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))}
	if err := c.ping(ctx); err != nil {
		c.client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.writeAPI = c.client.WriteAPI(cfg.Org, cfg.Bucket)
	c.open.Store(true)
	go c.watchErrors(c.writeAPI.Errors())

	return c, nil
}

// writeOptions converts the batch settings, falling back to defaults for
// unset values.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batchSize := defaultBatchSize
	if cfg.BatchSize > 0 {
		batchSize = cfg.BatchSize
	}
	flushSeconds := defaultFlushSeconds
	if cfg.FlushInterval > 0 {
		flushSeconds = cfg.FlushInterval
	}

	// #nosec G115 -- both values are positive here
	return influxdb2.DefaultOptions().
		SetBatchSize(uint(batchSize)).
		SetFlushInterval(uint(time.Duration(flushSeconds) * time.Second / time.Millisecond)).
		AddDefaultTag("service", serviceTag)
}

func (c *Client) ping(ctx context.Context) error {
	healthy, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

func (c *Client) watchErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.failed.Add(1)

		c.mu.Lock()
		callback := c.onError
		c.mu.Unlock()

		if callback != nil {
			callback(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		}
	}
}

// write queues p unless the client is closed.
func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.points.Add(1)
	c.writeAPI.WritePoint(p)
}

// Close flushes pending points and closes the client. Safe on a zero Client
// and safe to call more than once.
func (c *Client) Close() error {
	if c.client == nil || !c.open.CompareAndSwap(true, false) {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := c.ping(checkCtx); err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	return nil
}

// IsConnected reports whether the client is open.
func (c *Client) IsConnected() bool {
	return c.open.Load()
}

// Stats returns write counters since Connect.
func (c *Client) Stats() Stats {
	return Stats{
		Points:        c.points.Load(),
		FailedBatches: c.failed.Load(),
	}
}

// SetOnError sets a callback for asynchronous write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// Flush blocks until buffered points are written. No-op after Close.
func (c *Client) Flush() {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}
