//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"

	"ovation/internal/platform/kafka"
)

// RedpandaContainer wraps a testcontainers Redpanda instance as a
// Kafka-compatible broker.
type RedpandaContainer struct {
	Container *redpanda.Container
	Brokers   []string
}

// NewRedpandaContainer starts a Redpanda container.
func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.1.2")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		t.Fatalf("failed to get redpanda broker address: %v", err)
	}

	return &RedpandaContainer{Container: container, Brokers: []string{broker}}
}

// Connect opens a producer client against the container with the topic
// created.
func (r *RedpandaContainer) Connect(t *testing.T, topic string) *kgo.Client {
	t.Helper()

	client, err := kafka.Connect(context.Background(), r.Brokers, topic)
	if err != nil {
		t.Fatalf("failed to connect to redpanda: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}
