//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"example.com/extracurricular/internal/domain"
)

func TestDispatcherPublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.RunContainer(ctx, testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	topic := "activity_registrations"

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))

	producer := NewKafkaProducer(brokers)
	defer producer.Close()

	dispatcher := NewDispatcher(producer, topic, WithPollInterval(50*time.Millisecond))
	runCtx, stop := context.WithCancel(ctx)
	go dispatcher.Start(runCtx)

	event := newEvent(domain.RegistrationSignedUp, "Chess Club")
	require.NoError(t, dispatcher.Publish(ctx, event))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, "Chess Club", string(msg.Key))

	var got domain.RegistrationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	require.Equal(t, event.ID, got.ID)
	require.Equal(t, domain.RegistrationSignedUp, got.Type)

	stop()
	dispatcher.Wait()
}
