package fleetmqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/minergate/internal/fleet"
	"github.com/nerrad567/minergate/internal/infrastructure/mqtt"
	"github.com/nerrad567/minergate/internal/miner"
)

const (
	// commandTimeout bounds one light command received over MQTT.
	commandTimeout = 30 * time.Second

	// publishQueueSize bounds events waiting for the broker.
	publishQueueSize = 256

	commandQoS = 1
	eventQoS   = 0
)

// MQTTClient is the broker surface the bridge needs; *mqtt.Client
// satisfies it.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// LightSetter runs fault-light commands; *fleet.Service satisfies it.
type LightSetter interface {
	SetLight(ctx context.Context, host string, mode miner.LightMode, source string) (bool, error)
}

// Logger is the logging surface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type outbound struct {
	topic   string
	payload []byte
	qos     byte
}

// Bridge connects the fleet service to MQTT in both directions: gateway
// events are published under minergate/event/, and light commands arrive
// on minergate/command/light/{host}.
//
// Bridge implements fleet.Observer. Events are queued and published by a
// single worker so a slow broker never holds up a request.
type Bridge struct {
	client MQTTClient
	lights LightSetter
	logger Logger
	topics mqtt.Topics

	queue chan outbound

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	// inflight tracks running light commands. closing is set under mu
	// before the publisher waits on inflight.
	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup

	published atomic.Uint64
	dropped   atomic.Uint64
	commands  atomic.Uint64
}

// New returns a bridge publishing through client and executing commands
// with lights.
func New(client MQTTClient, lights LightSetter, logger Logger) *Bridge {
	return &Bridge{
		client: client,
		lights: lights,
		logger: logger,
		queue:  make(chan outbound, publishQueueSize),
	}
}

// Start subscribes to light commands and starts the publisher. The bridge
// runs until ctx is cancelled or Stop is called.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	if err := b.client.Subscribe(b.topics.AllLightCommands(), commandQoS, b.handleCommand); err != nil {
		b.cancel()
		return fmt.Errorf("subscribing to light commands: %w", err)
	}

	b.wg.Add(1)
	go b.publishLoop()

	b.logger.Info("mqtt bridge started", "commands", b.topics.AllLightCommands())
	return nil
}

// Stop cancels running commands and ends the publisher after sending what
// is queued, including the state of every cancelled command.
func (b *Bridge) Stop() {
	b.once.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		b.wg.Wait()
	})
}

// ScanCompleted implements fleet.Observer.
func (b *Bridge) ScanCompleted(_ context.Context, s fleet.Summary) {
	b.enqueue(b.topics.Event(mqtt.EventFleetScanned), scanEventMessage(s), eventQoS)
}

// LightChanged implements fleet.Observer.
func (b *Bridge) LightChanged(_ context.Context, e fleet.LightEvent) {
	b.enqueue(b.topics.Event(mqtt.EventLightChanged), lightEventMessage(e), eventQoS)
}

func (b *Bridge) enqueue(topic string, v any, qos byte) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logger.Warn("encoding mqtt message", "topic", topic, "error", err)
		return
	}
	select {
	case b.queue <- outbound{topic: topic, payload: payload, qos: qos}:
	default:
		b.dropped.Add(1)
		b.logger.Warn("mqtt publish queue full, dropping message", "topic", topic)
	}
}

func (b *Bridge) publishLoop() {
	defer b.wg.Done()
	for {
		select {
		case msg := <-b.queue:
			b.publish(msg)
		case <-b.ctx.Done():
			b.mu.Lock()
			b.closing = true
			b.mu.Unlock()
			b.inflight.Wait()
			for {
				select {
				case msg := <-b.queue:
					b.publish(msg)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) publish(msg outbound) {
	if err := b.client.Publish(msg.topic, msg.payload, msg.qos, false); err != nil {
		// Broker outages are expected; the client reconnects on its own.
		b.logger.Debug("mqtt publish failed", "topic", msg.topic, "error", err)
		return
	}
	b.published.Add(1)
}

// handleCommand validates one light command and runs it on its own
// goroutine so a slow miner never holds up the broker's message delivery.
// A command that parses far enough to name a host always gets a reply on
// the host's state topic, even when it fails.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	if b.ctx == nil {
		return ErrNotStarted
	}

	host, ok := b.topics.LightCommandHost(topic)
	if !ok {
		return fmt.Errorf("%w: topic %q", ErrBadCommand, topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: %w", ErrBadCommand, err)
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	state := StateMessage{ID: cmd.ID, Host: host, Mode: cmd.Mode}

	mode, err := miner.ParseLightMode(cmd.Mode)
	if err != nil {
		state.Error = err.Error()
		b.reportState(state)
		return fmt.Errorf("%w: %w", ErrBadCommand, err)
	}

	b.mu.Lock()
	if b.closing {
		b.mu.Unlock()
		return ErrStopped
	}
	b.inflight.Add(1)
	b.mu.Unlock()

	b.commands.Add(1)
	go func() {
		defer b.inflight.Done()
		if err := b.runCommand(mode, state); err != nil {
			b.logger.Debug("mqtt light command failed", "host", host, "id", cmd.ID, "error", err)
		}
	}()
	return nil
}

// runCommand executes a validated light command and publishes its outcome.
func (b *Bridge) runCommand(mode miner.LightMode, state StateMessage) error {
	defer func() { b.reportState(state) }()

	ctx, cancel := context.WithTimeout(fleet.WithRequestID(b.ctx, state.ID), commandTimeout)
	defer cancel()

	on, err := b.lights.SetLight(ctx, state.Host, mode, "mqtt")
	state.LightStatus = on
	if err != nil {
		state.Error = errorDetail(err)
		return err
	}
	return nil
}

func (b *Bridge) reportState(state StateMessage) {
	state.Timestamp = time.Now().UTC()
	b.enqueue(b.topics.LightState(state.Host), state, commandQoS)
}

// errorDetail turns a command error into the message reported to the
// sender.
func errorDetail(err error) string {
	switch {
	case errors.Is(err, fleet.ErrUnreachable):
		return "no miner found"
	case errors.Is(err, miner.ErrActivationFailed):
		return "failed to turn on light"
	case errors.Is(err, miner.ErrDeactivationFailed):
		return "failed to turn off light"
	default:
		return err.Error()
	}
}

// Metrics reports publisher counters.
type Metrics struct {
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Commands  uint64 `json:"commands"`
}

// Metrics returns the bridge counters.
func (b *Bridge) Metrics() Metrics {
	return Metrics{
		Connected: b.client.IsConnected(),
		Published: b.published.Load(),
		Dropped:   b.dropped.Load(),
		Commands:  b.commands.Load(),
	}
}
