package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/minergate/internal/miner"
)

// Summary describes one completed fleet scan.
type Summary struct {
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	Hosts       int           `json:"hosts"`
	Succeeded   int           `json:"succeeded"`
	Unreachable int           `json:"unreachable"`
	QueryFailed int           `json:"query_failed"`
	Cancelled   int           `json:"cancelled"`
}

// LightEvent describes one executed fault-light operation.
type LightEvent struct {
	Host      string          `json:"host"`
	Mode      miner.LightMode `json:"-"`
	ModeName  string          `json:"mode"`
	State     bool            `json:"light_status"`
	Error     string          `json:"error,omitempty"`
	Source    string          `json:"source"`
	RequestID string          `json:"request_id,omitempty"`
	At        time.Time       `json:"at"`
}

// Observer receives gateway events. Implementations must not block; the
// request that produced the event is still in flight.
type Observer interface {
	ScanCompleted(ctx context.Context, s Summary)
	LightChanged(ctx context.Context, e LightEvent)
}

// Observers fans an event out to every member.
type Observers []Observer

// ScanCompleted implements Observer.
func (o Observers) ScanCompleted(ctx context.Context, s Summary) {
	for _, obs := range o {
		obs.ScanCompleted(ctx, s)
	}
}

// LightChanged implements Observer.
func (o Observers) LightChanged(ctx context.Context, e LightEvent) {
	for _, obs := range o {
		obs.LightChanged(ctx, e)
	}
}

// Dispatcher is an Observer whose members can be added while events flow.
// Surfaces built after the Service (the HTTP event hub, the MQTT bridge)
// register themselves here.
type Dispatcher struct {
	mu        sync.RWMutex
	observers Observers
}

// Add registers obs. A nil obs is ignored.
func (d *Dispatcher) Add(obs Observer) {
	if obs == nil {
		return
	}
	d.mu.Lock()
	d.observers = append(d.observers, obs)
	d.mu.Unlock()
}

// Len returns the number of registered observers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

func (d *Dispatcher) snapshot() Observers {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.observers
}

// ScanCompleted implements Observer.
func (d *Dispatcher) ScanCompleted(ctx context.Context, s Summary) {
	d.snapshot().ScanCompleted(ctx, s)
}

// LightChanged implements Observer.
func (d *Dispatcher) LightChanged(ctx context.Context, e LightEvent) {
	d.snapshot().LightChanged(ctx, e)
}

type requestIDKey struct{}

// WithRequestID tags ctx with the id of the request being served so that
// events can be correlated with it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
