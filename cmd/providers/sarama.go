package providers

import (
	"context"
	"os"

	"github.com/Shopify/sarama"
	"github.com/pelletier/go-toml"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ConfSaramaAddrs      = "sarama.addrs"
	ConfSaramaConfigFile = "sarama.config_file"
	ConfKafkaTopic       = "kafka.topic"
)

func init() {
	viper.SetDefault(ConfSaramaAddrs, []string{"localhost:9092"})
	viper.SetDefault(ConfSaramaConfigFile, "")
	viper.SetDefault(ConfKafkaTopic, "github.webhooks")
}

// NewSaramaConfig reads the producer config.
// Without a config file, sarama's defaults are used.
func NewSaramaConfig(log *zap.Logger) (*sarama.Config, error) {
	config := sarama.NewConfig()
	// Since sarama has so many options, it's easiest to read in a file.
	if configFilePath := viper.GetString(ConfSaramaConfigFile); configFilePath != "" {
		log.Info("Reading sarama config",
			zap.String(ConfSaramaConfigFile, configFilePath))
		f, err := os.Open(configFilePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		dec := toml.NewDecoder(f)
		if err := dec.Decode(config); err != nil {
			return nil, err
		}
	}
	config.ClientID = "octolog"
	config.MetricRegistry = metrics.DefaultRegistry
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	return config, nil
}

func NewSaramaClient(lc fx.Lifecycle, log *zap.Logger, config *sarama.Config) (sarama.Client, error) {
	// Construct client.
	addrs := viper.GetStringSlice(ConfSaramaAddrs)
	log.Info("Connecting to Kafka (sarama)",
		zap.Strings(ConfSaramaAddrs, addrs))
	client, err := sarama.NewClient(addrs, config)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func NewSaramaSyncProducer(
	log *zap.Logger,
	saramaClient sarama.Client,
	lc fx.Lifecycle,
) (sarama.SyncProducer, error) {
	producer, err := sarama.NewSyncProducerFromClient(saramaClient)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing Kafka producer")
			return producer.Close()
		},
	})
	return producer, nil
}
