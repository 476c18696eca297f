package relay

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis appends deliveries to a Redis stream.
type Redis struct {
	Redis  *redis.Client
	Stream string
	// MaxLen caps the stream approximately. Zero leaves it unbounded.
	MaxLen int64
}

// Publish adds the delivery as a stream entry.
func (r *Redis) Publish(ctx context.Context, d Delivery) error {
	err := r.Redis.XAdd(ctx, r.args(d)).Err()
	if err != nil {
		return fmt.Errorf("failed to add delivery to stream %s: %w", r.Stream, err)
	}
	return nil
}

func (r *Redis) args(d Delivery) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: r.Stream,
		MaxLen: r.MaxLen,
		Approx: r.MaxLen > 0,
		Values: []interface{}{
			"event", d.Event,
			"delivery", d.ID,
			"payload", string(d.Payload),
		},
	}
}
