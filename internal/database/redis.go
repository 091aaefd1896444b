package database

import (
	"github.com/go-redis/redis"

	"github.com/talkie-app/sttd/internal/config"
)

func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Pass,
		DB:       0,
	})
	return client, nil
}
