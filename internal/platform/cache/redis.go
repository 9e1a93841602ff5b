package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// RDB backs candidate-local session state, the submit lock, the deadline
// index and the leaderboard cache.
var RDB *redis.Client

func ConnectRedis() error {
	RDB = redis.NewClient(&redis.Options{
		Addr:         config.AppConfig.RedisAddr,
		Password:     config.AppConfig.RedisPassword,
		DB:           config.AppConfig.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := RDB.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("could not connect to Redis: %w", err)
	}
	return nil
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
	}
}
