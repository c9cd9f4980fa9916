package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/minergate/internal/miner"
	"github.com/nerrad567/minergate/internal/targets"
	"github.com/nerrad567/minergate/internal/telemetry"
)

// DefaultTargets is scanned when a query names no targets.
var DefaultTargets = targets.Spec{"192.168.1.1-255"}

// Service runs gateway operations: fleet queries, single-host reads and
// fault-light commands.
type Service struct {
	factory        miner.Factory
	scanner        *Scanner
	observer       Observer
	logger         Logger
	maxHosts       int
	defaultTargets targets.Spec
}

// Config configures a Service.
type Config struct {
	// MaxConcurrency caps in-flight hosts per scan. 0 means unbounded.
	MaxConcurrency int

	// MaxHosts caps how many hosts one query may expand to.
	MaxHosts int

	// DefaultTargets replaces an empty query target list.
	DefaultTargets targets.Spec

	Observer Observer
	Logger   Logger
}

// NewService returns a Service reaching devices through factory.
func NewService(factory miner.Factory, cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if len(cfg.DefaultTargets) == 0 {
		cfg.DefaultTargets = DefaultTargets
	}
	return &Service{
		factory: factory,
		scanner: NewScanner(factory, ScannerConfig{
			MaxConcurrency: cfg.MaxConcurrency,
			Observer:       cfg.Observer,
			Logger:         cfg.Logger,
		}),
		observer:       cfg.Observer,
		logger:         cfg.Logger,
		maxHosts:       cfg.MaxHosts,
		defaultTargets: cfg.DefaultTargets,
	}
}

// QueryResult is the projected outcome of a fleet query.
type QueryResult struct {
	// Data maps each responding host to its projected record.
	Data map[string]telemetry.Projection

	// Errors maps each failed host to its error.
	Errors map[string]error

	Summary Summary
}

// Query parses spec, scans every host and projects each record through
// selector.
//
// A malformed spec fails with targets.ErrMalformedTarget and an unknown
// selector name with telemetry.ErrUnknownField; both are detected before
// any device is contacted. Per-host failures never fail the query.
//
// Parameters:
//   - ctx: Request context; cancelling it cancels every in-flight host
//   - spec: Targets to scan. nil selects the default targets; an empty
//     non-nil spec is malformed
//   - selector: Field names in output order; empty means every field
//
// Returns:
//   - *QueryResult: Projected records and per-host failures
//   - error: ErrMalformedTarget or ErrUnknownField, nothing else
func (s *Service) Query(ctx context.Context, spec targets.Spec, selector []string) (*QueryResult, error) {
	if spec == nil {
		spec = s.defaultTargets
	}
	hosts, err := targets.Parse(spec, s.maxHosts)
	if err != nil {
		return nil, err
	}
	fields, err := telemetry.ValidateSelector(selector)
	if err != nil {
		return nil, err
	}

	res := s.scanner.Scan(ctx, hosts.Strings())

	out := &QueryResult{
		Data:    make(map[string]telemetry.Projection, len(res.Records)),
		Errors:  res.Failures,
		Summary: res.Summary,
	}
	for ip, rec := range res.Records {
		out.Data[ip] = telemetry.ProjectFields(rec, fields)
	}
	return out, nil
}

// Connect validates host and connects to the device there.
// Errors wrap targets.ErrMalformedTarget or ErrUnreachable.
func (s *Service) Connect(ctx context.Context, host string) (miner.DeviceClient, error) {
	addr, err := targets.ParseHost(host)
	if err != nil {
		return nil, err
	}
	client, err := s.factory.Connect(ctx, addr.String())
	if err != nil {
		return nil, classify(ctx, ErrUnreachable, addr.String(), err)
	}
	return client, nil
}

// Telemetry reads the full record of one host.
func (s *Service) Telemetry(ctx context.Context, host string) (*telemetry.Record, error) {
	client, err := s.Connect(ctx, host)
	if err != nil {
		return nil, err
	}
	rec, err := client.Telemetry(ctx)
	if err != nil {
		return nil, classify(ctx, ErrQueryFailed, client.Host(), err)
	}
	return rec, nil
}

// Errors reads the device-reported errors of one host.
func (s *Service) Errors(ctx context.Context, host string) ([]string, error) {
	return deviceCall(ctx, s, host, miner.DeviceClient.Errors)
}

// Hostname reads the hostname of one host.
func (s *Service) Hostname(ctx context.Context, host string) (string, error) {
	return deviceCall(ctx, s, host, miner.DeviceClient.Hostname)
}

// Model reads the model of one host.
func (s *Service) Model(ctx context.Context, host string) (string, error) {
	return deviceCall(ctx, s, host, miner.DeviceClient.Model)
}

func deviceCall[T any](ctx context.Context, s *Service, host string, call func(miner.DeviceClient, context.Context) (T, error)) (T, error) {
	var zero T
	client, err := s.Connect(ctx, host)
	if err != nil {
		return zero, err
	}
	v, err := call(client, ctx)
	if err != nil {
		return zero, classify(ctx, ErrQueryFailed, client.Host(), err)
	}
	return v, nil
}

// SetLight runs a fault-light operation on host and reports the resulting
// state. Every operation that reached the device is published to the
// observer, failed ones included. source names the surface that issued the
// command (api, mqtt, mcp).
func (s *Service) SetLight(ctx context.Context, host string, mode miner.LightMode, source string) (bool, error) {
	client, err := s.Connect(ctx, host)
	if err != nil {
		return false, err
	}

	state, err := miner.SetLight(ctx, client, mode)

	event := LightEvent{
		Host:      client.Host(),
		Mode:      mode,
		ModeName:  mode.String(),
		State:     state,
		Source:    source,
		RequestID: RequestID(ctx),
		At:        time.Now().UTC(),
	}
	if err != nil {
		event.Error = err.Error()
		s.logger.Warn("light command failed", "host", event.Host, "mode", event.ModeName, "error", err)
	} else {
		s.logger.Info("light command", "host", event.Host, "mode", event.ModeName, "light_status", state)
	}
	if s.observer != nil {
		s.observer.LightChanged(ctx, event)
	}

	if err != nil {
		return state, fmt.Errorf("set light %s on %s: %w", mode, event.Host, err)
	}
	return state, nil
}
