// Package kafka streams stored approach events to an optional downstream
// topic. The relational store remains the source of truth; this sink exists
// for consumers that want the events as they are collected.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/lunardrift/neo-tracker/internal/domain"
	"github.com/lunardrift/neo-tracker/internal/observability"
)

// Publisher produces approach events to a Kafka topic.
// It implements collector.EventPublisher.
type Publisher struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger, metrics: metrics}
}

// PublishBatch serializes every approach event in the batch and publishes
// them in a single WriteMessages call.
func (p *Publisher) PublishBatch(ctx context.Context, batch *domain.Batch) error {
	_, events := batch.Flatten()
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeEvent(events[i], batch.CollectedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish approach events: %w", err)
	}

	p.metrics.EventsPublished.Add(float64(len(msgs)))
	p.logger.Info("approach events published", "count", len(msgs), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeEvent marshals an ApproachEvent into a Kafka message keyed by
// object id, so all approaches of one object land on one partition.
func serializeEvent(event domain.ApproachEvent, collectedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize approach event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(event.ObjectID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "orbiting_body", Value: []byte(event.OrbitingBody)},
			{Key: "collected_at", Value: []byte(collectedAt.Format(time.RFC3339))},
		},
	}, nil
}
