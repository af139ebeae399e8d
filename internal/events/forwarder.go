package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/go_cart/cartsync/pkg/logger"
)

const (
	DefaultTopic        = "cart-events"
	defaultBuffer       = 256
	defaultDrainTimeout = 5 * time.Second
)

// MessageWriter is the part of *kafka.Writer the forwarder needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

type envelope struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Forwarder mirrors bus events to Kafka. Handlers only enqueue and Run does the
// writes. Events that do not fit in the buffer are dropped and logged.
type Forwarder struct {
	bus    *Bus
	writer MessageWriter
	log    *slog.Logger
	queue  chan Event
	unsubs []func()
}

func NewForwarder(bus *Bus, writer MessageWriter, log *slog.Logger) *Forwarder {
	return &Forwarder{
		bus:    bus,
		writer: writer,
		log:    logger.OrDefault(log).With("component", "event_forwarder"),
		queue:  make(chan Event, defaultBuffer),
	}
}

// Attach subscribes to names, or to every cart event when none are given.
func (f *Forwarder) Attach(names ...string) {
	if len(names) == 0 {
		names = CartEventNames
	}
	for _, n := range names {
		f.unsubs = append(f.unsubs, f.bus.Subscribe(n, f.enqueue))
	}
}

func (f *Forwarder) Detach() {
	for _, u := range f.unsubs {
		u()
	}
	f.unsubs = nil
}

// Run writes queued events until ctx is done, then flushes what is left.
func (f *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case e := <-f.queue:
			f.forward(ctx, e)
		case <-ctx.Done():
			f.drain()
			return
		}
	}
}

func (f *Forwarder) Close() error {
	f.Detach()
	return f.writer.Close()
}

func (f *Forwarder) enqueue(ctx context.Context, e Event) {
	select {
	case f.queue <- e:
	default:
		f.log.WarnContext(ctx, "event forward queue full, dropping event", "event", e.Name, "event_id", e.ID)
	}
}

func (f *Forwarder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultDrainTimeout)
	defer cancel()
	for {
		select {
		case e := <-f.queue:
			f.forward(ctx, e)
		default:
			return
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, e Event) {
	msg, err := toMessage(e)
	if err != nil {
		f.log.ErrorContext(ctx, "failed to encode event", "event", e.Name, "error", err)
		return
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		f.log.ErrorContext(ctx, "failed to publish event to kafka", "event", e.Name, "event_id", e.ID, "error", err)
	}
}

func toMessage(e Event) (kafka.Message, error) {
	value, err := json.Marshal(envelope{
		ID:         e.ID,
		Name:       e.Name,
		OccurredAt: e.OccurredAt,
		Payload:    e.Payload,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event %s: %w", e.Name, err)
	}

	var key []byte
	if s, ok := e.Payload.(SessionScoped); ok {
		key = []byte(s.Session()) // session id keeps one cart's events in order
	}

	return kafka.Message{
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Name)},
			{Key: "event_id", Value: []byte(e.ID)},
		},
		Time: e.OccurredAt,
	}, nil
}
