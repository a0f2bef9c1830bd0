package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"securechat/backend/internal/config"
)

// OpenKV connects the backend selected by cfg.Backend.
func OpenKV(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch cfg.Backend {
	case "memory":
		log.Println("WARNING: Using in-memory storage; data is lost on restart.")
		return NewMemoryKV(), nil

	case "sqlite":
		kv, err := NewSQLiteKV(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("INFO: SQLite storage opened at %s.", cfg.SQLitePath)
		return kv, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect Redis: %w", err)
		}
		log.Printf("INFO: Redis storage connected at %s.", cfg.RedisAddr)
		return NewRedisKV(rdb), nil

	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to connect PostgreSQL: %w", err)
		}
		kv, err := NewPostgresKV(db)
		if err != nil {
			return nil, err
		}
		log.Println("INFO: PostgreSQL storage connected, migrations complete.")
		return kv, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
