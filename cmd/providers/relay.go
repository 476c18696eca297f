package providers

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.od2.network/octolog/pkg/relay"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ConfRelayKind selects where webhook deliveries are forwarded.
const ConfRelayKind = "relay.kind"

// Relay kinds.
const (
	RelayNone  = "none"
	RelayKafka = "kafka"
	RelayRedis = "redis"
)

func init() {
	viper.SetDefault(ConfRelayKind, RelayNone)
}

// NewRelay connects the configured relay backend.
// Broker clients are only constructed for the selected kind.
func NewRelay(ctx context.Context, lc fx.Lifecycle, log *zap.Logger) (relay.Relay, error) {
	log = log.Named("relay")
	switch kind := viper.GetString(ConfRelayKind); kind {
	case "", RelayNone:
		log.Info("Webhook relay disabled")
		return relay.Nop{}, nil
	case RelayKafka:
		topic := viper.GetString(ConfKafkaTopic)
		if topic == "" {
			return nil, fmt.Errorf("empty %s", ConfKafkaTopic)
		}
		config, err := NewSaramaConfig(log)
		if err != nil {
			return nil, err
		}
		client, err := NewSaramaClient(lc, log, config)
		if err != nil {
			return nil, err
		}
		producer, err := NewSaramaSyncProducer(log, client, lc)
		if err != nil {
			return nil, err
		}
		log.Info("Relaying webhooks to Kafka", zap.String(ConfKafkaTopic, topic))
		return &relay.Kafka{Producer: producer, Topic: topic}, nil
	case RelayRedis:
		rd, err := NewRedis(ctx, log, lc)
		if err != nil {
			return nil, err
		}
		stream := viper.GetString(ConfRedisStream)
		log.Info("Relaying webhooks to Redis", zap.String(ConfRedisStream, stream))
		return &relay.Redis{
			Redis:  rd,
			Stream: stream,
			MaxLen: viper.GetInt64(ConfRedisMaxLen),
		}, nil
	default:
		return nil, fmt.Errorf("unknown %s: %q", ConfRelayKind, kind)
	}
}
