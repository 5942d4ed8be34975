package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Fanout delivers each event to every sink in order. A failing sink is
// logged and does not stop delivery to the rest.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	out := &Fanout{logger: logger}
	for _, s := range sinks {
		if s != nil {
			out.sinks = append(out.sinks, s)
		}
	}
	return out
}

// Add appends a sink. Not safe to call concurrently with Publish.
func (f *Fanout) Add(s Sink) {
	if s != nil {
		f.sinks = append(f.sinks, s)
	}
}

// Publish always returns nil; failures are logged per sink.
func (f *Fanout) Publish(ctx context.Context, e Event) error {
	for _, s := range f.sinks {
		if err := s.Publish(ctx, e); err != nil {
			f.logger.Warn("event sink failed",
				"event_id", e.ID.String(),
				"type", string(e.Type),
				"account", e.AccountNumber,
				"err", err,
			)
		}
	}
	return nil
}

// Publisher is the transport a Broker hands encoded events to.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Broker encodes events as JSON and publishes them with the event type as
// routing key.
type Broker struct {
	pub Publisher
}

func NewBroker(pub Publisher) *Broker { return &Broker{pub: pub} }

func (b *Broker) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return b.pub.Publish(ctx, string(e.Type), body)
}

// Recorder keeps every event it receives. Used by dev tooling and tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of what was recorded, in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType filters the recorded events by t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
