// Package events delivers registration events to Kafka.
package events

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/extracurricular/internal/domain"
)

// ErrQueueFull is returned by Publish when the in-memory queue has no room.
var ErrQueueFull = errors.New("event queue full")

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

type schemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

var _ domain.EventPublisher = (*Dispatcher)(nil)

// Option configures optional behaviour for the Dispatcher.
type Option func(*Dispatcher)

// WithSchemaRegistry enables Confluent wire framing with ids from registry.
func WithSchemaRegistry(registry schemaRegistrar) Option {
	return func(d *Dispatcher) {
		d.registry = registry
	}
}

// WithPollInterval sets how often the queue is drained.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

// WithBatchSize caps the number of events written per batch.
func WithBatchSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.batchSize = size
		}
	}
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithFlushTimeout bounds the final drain performed on shutdown.
func WithFlushTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.flushTimeout = timeout
		}
	}
}

// WithLogger overrides the logger used to report delivery errors.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Dispatcher queues registration events in memory and delivers them to Kafka in batches.
type Dispatcher struct {
	producer         messageWriter
	registry         schemaRegistrar
	topic            string
	queue            chan domain.RegistrationEvent
	queueSize        int
	pollInterval     time.Duration
	batchSize        int
	flushTimeout     time.Duration
	logger           *zap.Logger
	schemaIDCache    sync.Map
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher writing to topic.
func NewDispatcher(producer messageWriter, topic string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		producer:         producer,
		topic:            topic,
		queueSize:        1024,
		pollInterval:     time.Second,
		batchSize:        50,
		flushTimeout:     5 * time.Second,
		logger:           zap.NewNop(),
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan domain.RegistrationEvent, d.queueSize)
	return d
}

// Publish enqueues event without blocking.
func (d *Dispatcher) Publish(ctx context.Context, event domain.RegistrationEvent) error {
	select {
	case d.queue <- event:
		queueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		droppedCounter.Inc()
		return ErrQueueFull
	}
}

// Start runs the delivery loop until ctx is cancelled, then drains what is
// left in the queue once. It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		select {
		case <-ctx.Done():
			d.flush()
			return
		case <-ticker.C:
			for {
				n, err := d.processBatch(ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					d.logger.Error("event dispatcher error", zap.Error(err))
				}
				if err != nil || n < d.batchSize {
					break
				}
			}
		}
	}
}

// Wait blocks until Start has returned.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), d.flushTimeout)
	defer cancel()

	for len(d.queue) > 0 {
		if _, err := d.processBatch(ctx); err != nil {
			d.logger.Error("event flush failed", zap.Int("remaining", len(d.queue)), zap.Error(err))
			return
		}
	}
}

// processBatch takes up to batchSize queued events and delivers them, returning how many were taken.
func (d *Dispatcher) processBatch(ctx context.Context) (int, error) {
	batch := d.take()
	if len(batch) == 0 {
		return 0, nil
	}

	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	if err := d.deliver(ctx, batch); err != nil {
		failedCounter.Add(float64(len(batch)))
		return len(batch), fmt.Errorf("deliver %d events: %w", len(batch), err)
	}

	deliveredCounter.Add(float64(len(batch)))
	return len(batch), nil
}

func (d *Dispatcher) take() []domain.RegistrationEvent {
	batch := make([]domain.RegistrationEvent, 0, d.batchSize)
	defer func() { queueDepth.Set(float64(len(d.queue))) }()
	for len(batch) < d.batchSize {
		select {
		case event := <-d.queue:
			batch = append(batch, event)
		default:
			return batch
		}
	}
	return batch
}

func (d *Dispatcher) deliver(ctx context.Context, batch []domain.RegistrationEvent) error {
	records := make([]kafka.Message, 0, len(batch))
	for _, event := range batch {
		record, err := d.encode(ctx, event)
		if err != nil {
			return err
		}
		records = append(records, record)
	}
	return d.producer.WriteMessages(ctx, d.topic, records...)
}

func (d *Dispatcher) encode(ctx context.Context, event domain.RegistrationEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	subject := d.subject(event.Type)
	value := payload
	if d.registry != nil {
		schemaID, err := d.schemaID(ctx, subject, event.Type)
		if err != nil {
			return kafka.Message{}, err
		}
		value = encodeWireFormat(schemaID, payload)
	}

	return kafka.Message{
		Key:   []byte(event.Activity),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "schema_subject", Value: []byte(subject)},
		},
	}, nil
}

func (d *Dispatcher) subject(eventType domain.RegistrationEventType) string {
	return fmt.Sprintf("%s-%s", d.topic, eventType)
}

func (d *Dispatcher) schemaID(ctx context.Context, subject string, eventType domain.RegistrationEventType) (int, error) {
	if cached, ok := d.schemaIDCache.Load(subject); ok {
		return cached.(int), nil
	}
	schema, ok := schemaCatalog[eventType]
	if !ok {
		return 0, fmt.Errorf("no schema for event_type=%s", eventType)
	}
	id, err := d.registry.EnsureSchema(ctx, subject, schema)
	if err != nil {
		return 0, err
	}
	d.schemaIDCache.Store(subject, id)
	return id, nil
}

// encodeWireFormat prefixes payload with the Confluent magic byte and schema id.
func encodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}

// NoopPublisher discards events; used when no brokers are configured.
type NoopPublisher struct{}

// Publish implements domain.EventPublisher.
func (NoopPublisher) Publish(context.Context, domain.RegistrationEvent) error {
	return nil
}
