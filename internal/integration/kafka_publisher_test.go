//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/lunardrift/neo-tracker/internal/adapter/kafka"
	"github.com/lunardrift/neo-tracker/internal/domain"
	"github.com/lunardrift/neo-tracker/internal/observability"
)

const testTopic = "test-approach-events"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("neo-tracker-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial kafka broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	controllerConn, err := kafkago.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func testBatch(collectedAt time.Time) *domain.Batch {
	approach := func(id int, day string, velocity float64) domain.ApproachEvent {
		date, _ := time.Parse(time.DateOnly, day)
		return domain.ApproachEvent{
			ObjectID:             id,
			CloseApproachDate:    date,
			RelativeVelocityKMPH: velocity,
			MissDistanceAU:       0.1,
			MissDistanceKM:       14959787.07,
			MissDistanceLunar:    38.9,
			OrbitingBody:         "Earth",
		}
	}
	return &domain.Batch{
		CollectedAt: collectedAt,
		Records: []domain.AsteroidRecord{
			{
				Asteroid:   domain.Asteroid{ID: 3542519, Name: "(2010 PK9)"},
				Approaches: []domain.ApproachEvent{approach(3542519, "2024-01-03", 52000)},
			},
			{
				Asteroid: domain.Asteroid{ID: 2000433, Name: "433 Eros"},
				Approaches: []domain.ApproachEvent{
					approach(2000433, "2024-01-04", 21000),
					approach(2000433, "2024-01-06", 23500),
				},
			},
		},
	}
}

// TestPublishBatch publishes a collected batch through the real adapter and
// verifies every approach event arrives with its key and headers intact.
func TestPublishBatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	collectedAt := time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC)
	batch := testBatch(collectedAt)

	publisher := kafkaadapter.NewPublisher([]string{broker}, testTopic, discardLogger(), observability.NewMetricsForTesting())
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.PublishBatch(ctx, batch))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	byKey := map[string][]domain.ApproachEvent{}
	for i := 0; i < batch.EventCount(); i++ {
		readCtx, cancelRead := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		cancelRead()
		require.NoError(t, err, "read approach event %d", i)

		var event domain.ApproachEvent
		require.NoError(t, json.Unmarshal(msg.Value, &event))
		byKey[string(msg.Key)] = append(byKey[string(msg.Key)], event)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "Earth", headers["orbiting_body"])
		assert.Equal(t, collectedAt.Format(time.RFC3339), headers["collected_at"])
	}

	require.Len(t, byKey["3542519"], 1)
	require.Len(t, byKey["2000433"], 2)
	assert.Equal(t, 52000.0, byKey["3542519"][0].RelativeVelocityKMPH)
}
