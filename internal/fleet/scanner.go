package fleet

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/minergate/internal/miner"
	"github.com/nerrad567/minergate/internal/telemetry"
)

// Logger is the logging surface the fleet package needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// HostResult is the outcome for one scanned host: a record or an error.
type HostResult struct {
	Host   string
	Record *telemetry.Record
	Err    error
}

// Results is the joined outcome of a scan.
type Results struct {
	// Records holds successes keyed by the address the record reports.
	Records map[string]*telemetry.Record

	// Failures holds per-host errors keyed by the scanned address.
	Failures map[string]error

	// Hosts lists every per-host outcome in scan order.
	Hosts []HostResult

	Summary Summary
}

// Scanner connects to and queries many hosts concurrently.
//
// Every host runs its own connect → retrieve pipeline, so the scan takes as
// long as the slowest host. One host failing never affects the others.
type Scanner struct {
	factory        miner.Factory
	maxConcurrency int
	observer       Observer
	logger         Logger
}

// ScannerConfig configures a Scanner.
type ScannerConfig struct {
	// MaxConcurrency caps in-flight hosts. 0 means unbounded.
	MaxConcurrency int
	Observer       Observer
	Logger         Logger
}

// NewScanner returns a Scanner using factory to reach devices.
func NewScanner(factory miner.Factory, cfg ScannerConfig) *Scanner {
	s := &Scanner{
		factory:        factory,
		maxConcurrency: cfg.MaxConcurrency,
		observer:       cfg.Observer,
		logger:         cfg.Logger,
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// Scan queries every host and returns once each has produced a record or an
// error. Cancelling ctx stops in-flight hosts; they are reported as
// ErrCancelled.
//
// Parameters:
//   - ctx: Scan context; cancelling it cancels every in-flight host
//   - hosts: Addresses to query, usually a parsed HostSet
//
// Returns:
//   - *Results: Records, failures and a per-host outcome in scan order
func (s *Scanner) Scan(ctx context.Context, hosts []string) *Results {
	start := time.Now()
	slots := make([]HostResult, len(hosts))

	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}
	for i, host := range hosts {
		g.Go(func() error {
			slots[i] = s.scanHost(ctx, host)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-host errors live in slots

	res := &Results{
		Records:  make(map[string]*telemetry.Record, len(hosts)),
		Failures: make(map[string]error),
		Hosts:    slots,
		Summary:  Summary{StartedAt: start, Hosts: len(hosts)},
	}
	for _, r := range slots {
		if r.Err != nil {
			res.Failures[r.Host] = r.Err
			s.logger.Debug("host scan failed", "host", r.Host, "reason", Reason(r.Err), "error", r.Err)
			switch Reason(r.Err) {
			case "cancelled":
				res.Summary.Cancelled++
			case "unreachable":
				res.Summary.Unreachable++
			default:
				res.Summary.QueryFailed++
			}
			continue
		}
		res.Records[r.Record.IP] = r.Record
		res.Summary.Succeeded++
	}
	res.Summary.Duration = time.Since(start)

	s.logger.Info("fleet scan completed",
		"hosts", res.Summary.Hosts,
		"succeeded", res.Summary.Succeeded,
		"failed", len(res.Failures),
		"duration", res.Summary.Duration,
	)
	if s.observer != nil {
		s.observer.ScanCompleted(ctx, res.Summary)
	}
	return res
}

// scanHost runs connect → retrieve for one host.
func (s *Scanner) scanHost(ctx context.Context, host string) HostResult {
	if err := ctx.Err(); err != nil {
		return HostResult{Host: host, Err: fmt.Errorf("%w: %s: %w", ErrCancelled, host, err)}
	}

	client, err := s.factory.Connect(ctx, host)
	if err != nil {
		return HostResult{Host: host, Err: classify(ctx, ErrUnreachable, host, err)}
	}

	rec, err := client.Telemetry(ctx)
	if err != nil {
		return HostResult{Host: host, Err: classify(ctx, ErrQueryFailed, host, err)}
	}
	if rec == nil {
		return HostResult{Host: host, Err: fmt.Errorf("%w: %s: empty record", ErrQueryFailed, host)}
	}
	if rec.IP == "" {
		rec.IP = host
	}
	return HostResult{Host: host, Record: rec}
}

// classify wraps err with kind, or with ErrCancelled when the request
// context is done.
func classify(ctx context.Context, kind error, host string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s: %w", ErrCancelled, host, err)
	}
	return fmt.Errorf("%w: %s: %w", kind, host, err)
}
