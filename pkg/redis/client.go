package redis

import (
	"github.com/redis/go-redis/v9"

	"github.com/mjaychoi/hc-violins/pkg/config"
)

// NewClient builds a Redis client from config. Callers own the client and
// pass it down explicitly.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
