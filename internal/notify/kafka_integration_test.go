//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"ovation/internal/notify"
	"ovation/pkg/testutil/containers"
)

const testTopic = "ovation.notifications.test"

type KafkaNotifierSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	producer *kgo.Client
}

func TestKafkaNotifierSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaNotifierSuite))
}

func (s *KafkaNotifierSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())
	s.producer = s.redpanda.Connect(s.T(), testTopic)
}

// A dispatched confirmation lands on the topic keyed by its subject, so the
// mail worker can partition per record.
func (s *KafkaNotifierSuite) TestNotifyProducesMessage() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	notifier := notify.NewKafkaNotifier(s.producer, testTopic)
	msg := notify.Message{
		Kind:           notify.KindPaymentConfirmed,
		SubjectID:      "6b1e6c2e-5a1f-4d58-9f0a-3a9a39a1a001",
		RecipientEmail: "grace@example.org",
		RecipientName:  "Grace Hopper",
	}
	s.Require().NoError(notifier.Notify(ctx, msg))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	s.Equal(msg.SubjectID, string(records[0].Key))
	var got notify.Message
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(msg, got)
}
