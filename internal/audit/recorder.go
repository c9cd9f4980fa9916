package audit

import (
	"context"
	"sync"

	"github.com/nerrad567/minergate/internal/fleet"
)

// queueSize bounds pending writes. Entries beyond it are dropped so audit
// never slows a light command down.
const queueSize = 256

// Logger is the logging surface the recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Recorder turns light events into audit entries and writes them serially
// in the background. It implements fleet.Observer.
type Recorder struct {
	repo   Repository
	logger Logger
	queue  chan *Entry

	wg   sync.WaitGroup
	once sync.Once
}

// NewRecorder returns a recorder writing to repo. Call Start before use.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	return &Recorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan *Entry, queueSize),
	}
}

// Start runs the writer until ctx is cancelled, then drains the queue.
func (r *Recorder) Start(ctx context.Context) {
	r.once.Do(func() {
		r.wg.Add(1)
		go r.run(ctx)
	})
}

// Wait blocks until the writer has drained and exited.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// ScanCompleted implements fleet.Observer. Scans are not audited.
func (r *Recorder) ScanCompleted(context.Context, fleet.Summary) {}

// LightChanged implements fleet.Observer.
func (r *Recorder) LightChanged(_ context.Context, e fleet.LightEvent) {
	details := map[string]any{
		"mode":         e.ModeName,
		"light_status": e.State,
	}
	if e.Error != "" {
		details["error"] = e.Error
	}

	r.Enqueue(&Entry{
		Action:     "light." + e.ModeName,
		EntityType: "miner",
		EntityID:   e.Host,
		Source:     e.Source,
		RequestID:  e.RequestID,
		Details:    details,
		CreatedAt:  e.At,
	})
}

// Enqueue schedules entry for writing, dropping it when the queue is full.
func (r *Recorder) Enqueue(entry *Entry) {
	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("audit queue full, dropping entry", "action", entry.Action, "entity_id", entry.EntityID)
	}
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case entry := <-r.queue:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.queue:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *Entry) {
	// The request that produced the entry may be gone; the write must not
	// inherit its cancellation.
	if err := r.repo.Create(context.Background(), entry); err != nil {
		r.logger.Error("audit write failed", "action", entry.Action, "entity_id", entry.EntityID, "error", err)
	}
}
