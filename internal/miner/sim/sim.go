// Package sim provides an in-memory mining fleet.
//
// Every simulated miner produces deterministic telemetry derived from its
// address, so tests and demos see stable values. Failures and latency can
// be injected per host.
package sim

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/minergate/internal/miner"
	"github.com/nerrad567/minergate/internal/telemetry"
)

// ErrInjected is the cause of every injected failure.
var ErrInjected = errors.New("sim: injected failure")

// Miner is one simulated device and its failure switches.
type Miner struct {
	Host  string
	Model string

	// Latency delays every call. Cancelling the context cuts it short.
	Latency time.Duration

	Unreachable     bool // Connect fails
	TelemetryFails  bool // Telemetry fails
	LightQueryFails bool // CheckLight fails
	RefuseLight     bool // Activate/DeactivateLight return false

	mu    sync.Mutex
	light bool
}

// Light returns the simulated light state.
func (m *Miner) Light() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.light
}

// SetLightState forces the simulated light state.
func (m *Miner) SetLightState(on bool) {
	m.mu.Lock()
	m.light = on
	m.mu.Unlock()
}

// Fleet is a set of simulated miners keyed by host. It implements
// miner.Factory and is safe for concurrent use.
type Fleet struct {
	mu     sync.RWMutex
	miners map[string]*Miner

	connects atomic.Int64
}

// NewFleet returns a fleet containing a default miner for every host.
func NewFleet(hosts ...string) *Fleet {
	f := &Fleet{miners: make(map[string]*Miner, len(hosts))}
	for _, h := range hosts {
		f.Add(&Miner{Host: h})
	}
	return f
}

// Add registers m, replacing any miner at the same host.
func (f *Fleet) Add(m *Miner) *Miner {
	if m.Model == "" {
		m.Model = "Antminer S19"
	}
	f.mu.Lock()
	f.miners[m.Host] = m
	f.mu.Unlock()
	return m
}

// Miner returns the simulated device at host.
func (f *Fleet) Miner(host string) (*Miner, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	m, ok := f.miners[host]
	return m, ok
}

// Connects returns how many Connect calls the fleet has served.
func (f *Fleet) Connects() int64 {
	return f.connects.Load()
}

// Connect implements miner.Factory.
func (f *Fleet) Connect(ctx context.Context, host string) (miner.DeviceClient, error) {
	f.connects.Add(1)

	m, ok := f.Miner(host)
	if !ok {
		return nil, fmt.Errorf("%w: %s", miner.ErrNoDevice, host)
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.Unreachable {
		return nil, fmt.Errorf("%w: %s: %w", miner.ErrNoDevice, host, ErrInjected)
	}
	return &client{m: m}, nil
}

func (m *Miner) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// client is the DeviceClient for one simulated miner.
type client struct {
	m *Miner
}

func (c *client) Host() string { return c.m.Host }

func (c *client) Telemetry(ctx context.Context) (*telemetry.Record, error) {
	if err := c.m.wait(ctx); err != nil {
		return nil, err
	}
	if c.m.TelemetryFails {
		return nil, fmt.Errorf("telemetry %s: %w", c.m.Host, ErrInjected)
	}
	return c.m.record(), nil
}

func (c *client) CheckLight(ctx context.Context) (bool, error) {
	if err := c.m.wait(ctx); err != nil {
		return false, err
	}
	if c.m.LightQueryFails {
		return false, fmt.Errorf("check light %s: %w", c.m.Host, ErrInjected)
	}
	return c.m.Light(), nil
}

func (c *client) ActivateLight(ctx context.Context) (bool, error) {
	return c.setLight(ctx, true)
}

func (c *client) DeactivateLight(ctx context.Context) (bool, error) {
	return c.setLight(ctx, false)
}

func (c *client) setLight(ctx context.Context, on bool) (bool, error) {
	if err := c.m.wait(ctx); err != nil {
		return false, err
	}
	if c.m.RefuseLight {
		return false, nil
	}
	c.m.SetLightState(on)
	return true, nil
}

func (c *client) Errors(ctx context.Context) ([]string, error) {
	rec, err := c.Telemetry(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Errors, nil
}

func (c *client) Hostname(ctx context.Context) (string, error) {
	if err := c.m.wait(ctx); err != nil {
		return "", err
	}
	return hostname(c.m.Host), nil
}

func (c *client) Model(ctx context.Context) (string, error) {
	if err := c.m.wait(ctx); err != nil {
		return "", err
	}
	return c.m.Model, nil
}

func hostname(host string) string {
	return fmt.Sprintf("miner-%08x", seed(host))
}

func seed(host string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	return h.Sum32()
}

// record builds the deterministic telemetry snapshot for m.
func (m *Miner) record() *telemetry.Record {
	s := seed(m.Host)
	jitter := func(shift uint, span int) int { return int((s >> shift) % uint32(span)) }

	r := telemetry.NewRecord(m.Host)
	r.Model = telemetry.Ptr(m.Model)
	r.Make = telemetry.Ptr("Antminer")
	r.Hostname = telemetry.Ptr(hostname(m.Host))
	r.MAC = telemetry.Ptr(fmt.Sprintf("02:00:%02x:%02x:%02x:%02x", byte(s>>24), byte(s>>16), byte(s>>8), byte(s)))
	r.APIVersion = telemetry.Ptr("3.1")
	r.FirmwareVersion = telemetry.Ptr("sim-1.0")
	r.NominalHashrate = telemetry.Ptr(95.0)

	const chipsPerBoard = 76
	for i := range r.Boards {
		r.Boards[i] = telemetry.Board{
			Hashrate: telemetry.Ptr(30.0 + float64(jitter(uint(i*4), 30))/10),
			Temp:     telemetry.Ptr(55 + jitter(uint(i*3+1), 10)),
			ChipTemp: telemetry.Ptr(70 + jitter(uint(i*3+2), 10)),
			Chips:    telemetry.Ptr(chipsPerBoard),
		}
	}
	r.IdealChips = telemetry.Ptr(chipsPerBoard * len(r.Boards))
	r.Wattage = telemetry.Ptr(3200 + jitter(5, 100))
	r.WattageLimit = telemetry.Ptr(3500)
	for i := range r.Fans {
		r.Fans[i] = telemetry.Ptr(5000 + jitter(uint(i*2), 600))
	}
	r.PoolSplit = telemetry.Ptr("0")
	r.Pools[0] = telemetry.Pool{
		URL:  telemetry.Ptr("stratum+tcp://pool.example.net:3333"),
		User: telemetry.Ptr("fleet." + hostname(m.Host)),
	}
	r.Errors = []string{}
	r.FaultLight = telemetry.Ptr(m.Light())

	r.Finalize()
	return r
}
