package cgminer

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nerrad567/minergate/internal/miner"
	"github.com/nerrad567/minergate/internal/telemetry"
)

// Factory connects to devices speaking the CGMiner JSON API.
type Factory struct {
	port    int
	timeout time.Duration
}

// NewFactory returns a factory dialing port with a per-command timeout.
// Zero values select DefaultPort and DefaultTimeout.
func NewFactory(port int, timeout time.Duration) *Factory {
	if port <= 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Factory{port: port, timeout: timeout}
}

// Connect probes host with the version command. A host that does not answer
// yields an error wrapping miner.ErrNoDevice.
func (f *Factory) Connect(ctx context.Context, host string) (miner.DeviceClient, error) {
	c := &Client{
		host: host,
		t: &transport{
			addr:    net.JoinHostPort(host, strconv.Itoa(f.port)),
			timeout: f.timeout,
		},
	}

	r, err := c.t.do(ctx, "version", "")
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", miner.ErrNoDevice, host, err)
	}
	entries, err := r.section("VERSION")
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		c.version = entries[0]
	}
	return c, nil
}

// Client is a DeviceClient for one CGMiner-compatible device.
type Client struct {
	host    string
	t       *transport
	version map[string]any
}

// Host returns the device address.
func (c *Client) Host() string { return c.host }

// Telemetry merges summary, stats and pools into one record.
func (c *Client) Telemetry(ctx context.Context) (*telemetry.Record, error) {
	rec := telemetry.NewRecord(c.host)
	applyVersion(rec, c.version)

	summary, err := c.query(ctx, "summary", "", "SUMMARY")
	if err != nil {
		return nil, err
	}
	stats, err := c.query(ctx, "stats", "", "STATS")
	if err != nil {
		return nil, err
	}
	pools, err := c.query(ctx, "pools", "", "POOLS")
	if err != nil {
		return nil, err
	}

	applySummary(rec, summary)
	applyStats(rec, stats)
	applyPools(rec, pools)
	rec.Finalize()
	return rec, nil
}

// CheckLight reads the LED flag from stats.
func (c *Client) CheckLight(ctx context.Context) (bool, error) {
	stats, err := c.query(ctx, "stats", "", "STATS")
	if err != nil {
		return false, err
	}
	if on, ok := ledState(stats); ok {
		return on, nil
	}
	return false, fmt.Errorf("%w: led state on %s", ErrUnsupported, c.host)
}

// ActivateLight sends ascset 0,led,1.
func (c *Client) ActivateLight(ctx context.Context) (bool, error) {
	return c.led(ctx, true)
}

// DeactivateLight sends ascset 0,led,0.
func (c *Client) DeactivateLight(ctx context.Context) (bool, error) {
	return c.led(ctx, false)
}

func (c *Client) led(ctx context.Context, on bool) (bool, error) {
	param := "0,led,0"
	if on {
		param = "0,led,1"
	}
	r, err := c.t.do(ctx, "ascset", param)
	if err != nil {
		return false, err
	}
	return r.ok(), nil
}

// Errors returns the device-reported problems.
func (c *Client) Errors(ctx context.Context) ([]string, error) {
	rec, err := c.Telemetry(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Errors, nil
}

// Hostname reads the Hostname entry of the config command.
func (c *Client) Hostname(ctx context.Context) (string, error) {
	cfg, err := c.query(ctx, "config", "", "CONFIG")
	if err != nil {
		return "", err
	}
	for _, e := range cfg {
		if h, ok := str(e, "Hostname"); ok && h != "" {
			return h, nil
		}
	}
	return "", fmt.Errorf("%w: hostname on %s", ErrUnsupported, c.host)
}

// Model returns the model reported at connect time.
func (c *Client) Model(context.Context) (string, error) {
	if m, ok := str(c.version, "Type"); ok && m != "" {
		return m, nil
	}
	return "", fmt.Errorf("%w: model on %s", ErrUnsupported, c.host)
}

// query runs cmd and returns the named section, failing on an error status.
func (c *Client) query(ctx context.Context, cmd, param, section string) ([]map[string]any, error) {
	r, err := c.t.do(ctx, cmd, param)
	if err != nil {
		return nil, err
	}
	if !r.ok() {
		return nil, fmt.Errorf("%w: %s on %s: %s", ErrCommandFailed, cmd, c.host, r.message())
	}
	return r.section(section)
}
