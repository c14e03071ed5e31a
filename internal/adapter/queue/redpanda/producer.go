// Package redpanda publishes candidate scoring events to Redpanda/Kafka.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// EventCandidateScored is the type of events published after a scoring write.
const EventCandidateScored = "candidate.scored"

// kafkaClient is the subset of *kgo.Client the producer needs.
type kafkaClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Request(ctx context.Context, req kmsg.Request) (kmsg.Response, error)
	Close()
}

// Envelope is the JSON value of every published record.
type Envelope struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       domain.CandidateScored `json:"data"`
}

// Producer implements domain.EventPublisher.
type Producer struct {
	client kafkaClient
	topic  string
	now    func() time.Time
}

// NewProducer connects to brokers and makes sure topic exists.
func NewProducer(ctx context.Context, brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.new_producer: no seed brokers provided")
	}
	if topic == "" {
		return nil, fmt.Errorf("op=redpanda.new_producer: topic name cannot be empty")
	}
	slog.Info("creating redpanda producer", slog.Any("brokers", brokers), slog.String("topic", topic))

	tracing := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
	)))
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.WithHooks(tracing.Hooks()...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.DialTimeout(10*time.Second),
		kgo.RetryTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.new_producer: %w", err)
	}
	p := newProducer(client, topic)
	if err := ensureTopic(ctx, client, topic, 1, 1, topicBackoff()); err != nil {
		slog.Warn("failed to ensure topic, publishing anyway", slog.String("topic", topic), slog.Any("error", err))
	}
	return p, nil
}

func newProducer(c kafkaClient, topic string) *Producer {
	return &Producer{client: c, topic: topic, now: time.Now}
}

// PublishCandidateScored writes one record keyed by candidate id so events of
// a candidate stay ordered within a partition.
func (p *Producer) PublishCandidateScored(ctx domain.Context, ev domain.CandidateScored) error {
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       EventCandidateScored,
		OccurredAt: p.now().UTC(),
		Data:       ev,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("op=redpanda.publish: marshal: %w", err)
	}
	key := strconv.FormatInt(ev.CandidateID, 10)
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(env.ID)},
			{Key: "event_type", Value: []byte(env.Type)},
			{Key: "client_id", Value: []byte(strconv.FormatInt(ev.ClientID, 10))},
			{Key: "source", Value: []byte(ev.Source)},
		},
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		slog.Error("failed to produce event",
			slog.String("topic", p.topic),
			slog.String("event_id", env.ID),
			slog.Int64("candidate_id", ev.CandidateID),
			slog.Any("error", err))
		return fmt.Errorf("op=redpanda.publish: %w", err)
	}
	slog.Debug("event published",
		slog.String("topic", p.topic),
		slog.String("event_id", env.ID),
		slog.Int64("candidate_id", ev.CandidateID))
	return nil
}

// Close flushes and closes the underlying client.
func (p *Producer) Close() {
	if p != nil && p.client != nil {
		p.client.Close()
	}
}
