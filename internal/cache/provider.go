// Package cache marks processed payment confirmations so replayed verify
// calls can be recognized without touching the orders table.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports a dedup miss, meaning the confirmation has not been
// processed within the TTL.
var ErrNotFound = errors.New("key not found")

// Provider is the dedup store behind payment verification. The memory
// provider covers a single instance; redis shares entries across replicas.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// VerificationKey names the dedup entry for one payment confirmation.
func VerificationKey(gatewayOrderID, paymentID string) string {
	return fmt.Sprintf("verify:%s:%s", gatewayOrderID, paymentID)
}
