package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saviobatista/sbs-capture/internal/types"
)

// StatusTTL bounds how long a capture status key outlives its last heartbeat,
// so statuses of dead captures expire on their own.
const StatusTTL = 5 * time.Minute

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client manages Redis connections and operations
type Client struct {
	client RedisClientInterface
}

// New creates a new Redis client
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

func statusKey(runID string) string {
	return fmt.Sprintf("capture:status:%s", runID)
}

// SetCaptureStatus stores a capture status snapshot under the run's key.
func (c *Client) SetCaptureStatus(ctx context.Context, status *types.CaptureStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal capture status: %w", err)
	}

	return c.client.Set(ctx, statusKey(status.RunID), data, StatusTTL).Err()
}

// getData retrieves data from Redis and unmarshals it into the target
func (c *Client) getData(ctx context.Context, key string, target interface{}, dataType string) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil // Data not found
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s data: %w", dataType, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s data: %w", dataType, err)
	}

	return true, nil
}

// GetCaptureStatus retrieves a capture status snapshot. It returns nil when
// the run has no stored status (expired or never written).
func (c *Client) GetCaptureStatus(ctx context.Context, runID string) (*types.CaptureStatus, error) {
	var status types.CaptureStatus
	found, err := c.getData(ctx, statusKey(runID), &status, "capture status")
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &status, nil
}

// DeleteCaptureStatus removes a run's status snapshot.
func (c *Client) DeleteCaptureStatus(ctx context.Context, runID string) error {
	return c.client.Del(ctx, statusKey(runID)).Err()
}
