package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fortuna/laurel/internal/awards"
)

// AwardsStream is the stream award pass summaries are appended to.
const AwardsStream = "awards.calculated"

// streamMaxLen caps the stream; trimming is approximate.
const streamMaxLen = 1000

// RedisPublisher publishes award events to Redis streams
type RedisPublisher struct {
	client *redis.Client
	owned  bool
}

// NewRedisPublisher creates a new Redis stream publisher
func NewRedisPublisher(redisURL string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisPublisher{client: client, owned: true}, nil
}

// NewRedisStreamPublisher creates a publisher from an existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Close closes the Redis connection if the publisher opened it
func (rp *RedisPublisher) Close() error {
	if !rp.owned {
		return nil
	}
	return rp.client.Close()
}

// AwardsCalculated appends the pass summary to the awards stream
func (rp *RedisPublisher) AwardsCalculated(ctx context.Context, summary awards.PassSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	return rp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: AwardsStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"award_type": string(summary.AwardType),
			"run_id":     summary.RunID,
			"data":       string(data),
			"timestamp":  time.Now().Unix(),
		},
	}).Err()
}
