package notify

import (
	"context"
	"log/slog"
	"time"

	"food-marketplace-api/metrics"
)

// drainTimeout bounds how long Run keeps delivering queued events after its
// context is cancelled.
const drainTimeout = 5 * time.Second

// Dispatcher is an asynchronous Notifier. Notify never blocks: when the queue
// is full the event is dropped and counted.
type Dispatcher struct {
	sink    Sink
	queue   chan Event
	metrics *metrics.Metrics
	now     func() time.Time
}

type option func(*Dispatcher)

// WithMetrics records dropped and failed notifications.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMetrics(m *metrics.Metrics) option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithClock overrides the event timestamp source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func NewDispatcher(sink Sink, queueSize int, opts ...option) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		sink:  sink,
		queue: make(chan Event, queueSize),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Notify(_ context.Context, userID string, kind Kind, p Payload) {
	if userID == "" {
		return
	}
	ev := Event{
		UserID:  userID,
		Kind:    kind,
		Payload: p,
		Text:    Render(kind, p),
		At:      d.now(),
	}
	select {
	case d.queue <- ev:
	default:
		slog.Warn("Notification queue full, dropping event", "kind", kind, "user_id", userID)
		d.metrics.NotificationDropped(string(kind))
	}
}

// Run delivers queued events until ctx is cancelled, then drains what is
// left in the queue.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("Notification dispatcher started", "queue_size", cap(d.queue))

	for {
		select {
		case <-ctx.Done():
			d.drain()
			slog.Info("Notification dispatcher stopped")

			return nil
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	if err := d.sink.Deliver(ctx, ev); err != nil {
		slog.Error("Failed to deliver notification",
			"kind", ev.Kind,
			"user_id", ev.UserID,
			"error", err,
		)
		d.metrics.NotificationFailed(string(ev.Kind))
	}
}
