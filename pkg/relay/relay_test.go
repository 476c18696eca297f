package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDelivery = Delivery{
	Event:   "push",
	ID:      "72d3162e-cc78-11e3-81ab-4c9367dc0958",
	Payload: []byte(`{"ref":"refs/heads/main"}`),
}

func TestKafka_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer func() { require.NoError(t, producer.Close()) }()
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "github.webhooks", msg.Topic)
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, testDelivery.ID, string(key))
		value, err := msg.Value.Encode()
		require.NoError(t, err)
		assert.Equal(t, testDelivery.Payload, value)
		require.Len(t, msg.Headers, 2)
		assert.Equal(t, "event", string(msg.Headers[0].Key))
		assert.Equal(t, "push", string(msg.Headers[0].Value))
		assert.Equal(t, "delivery", string(msg.Headers[1].Key))
		return nil
	})

	k := &Kafka{Producer: producer, Topic: "github.webhooks"}
	require.NoError(t, k.Publish(context.Background(), testDelivery))
}

func TestKafka_PublishWithoutDeliveryID(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer func() { require.NoError(t, producer.Close()) }()
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Nil(t, msg.Key)
		assert.Len(t, msg.Headers, 1)
		return nil
	})

	k := &Kafka{Producer: producer, Topic: "github.webhooks"}
	require.NoError(t, k.Publish(context.Background(), Delivery{Event: "ping", Payload: []byte(`{}`)}))
}

func TestKafka_PublishError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer func() { require.NoError(t, producer.Close()) }()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	k := &Kafka{Producer: producer, Topic: "github.webhooks"}
	err := k.Publish(context.Background(), testDelivery)
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers), "got %v", err)
}

func TestRedis_Publish(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := &Redis{Redis: client, Stream: "octolog:webhooks", MaxLen: 1000}
	mock.ExpectXAdd(r.args(testDelivery)).SetVal("1-0")

	require.NoError(t, r.Publish(context.Background(), testDelivery))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_Args(t *testing.T) {
	r := &Redis{Stream: "s"}
	args := r.args(testDelivery)
	assert.Equal(t, "s", args.Stream)
	assert.False(t, args.Approx)
	assert.Equal(t, []interface{}{
		"event", "push",
		"delivery", testDelivery.ID,
		"payload", `{"ref":"refs/heads/main"}`,
	}, args.Values)
}

func TestRedis_PublishError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := &Redis{Redis: client, Stream: "octolog:webhooks"}
	mock.ExpectXAdd(r.args(testDelivery)).SetErr(errors.New("READONLY"))

	err := r.Publish(context.Background(), testDelivery)
	assert.EqualError(t, err, "failed to add delivery to stream octolog:webhooks: READONLY")
	assert.NoError(t, mock.ExpectationsWereMet())
}
