package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"permit-agent/internal/config"
	"permit-agent/internal/model"
	"permit-agent/internal/platform/redis"
	"permit-agent/internal/platform/sqlite"
)

// App bundles the process-wide resources every service hangs off.
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Redis     *redisv9.Client
	StartedAt time.Time
}

// New loads configuration, opens the database, runs migrations, prepares the
// upload root, and connects redis when it is configured.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	db, err := sqlite.New(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	if err := db.AutoMigrate(&model.Session{}, &model.Message{}, &model.Document{}); err != nil {
		return nil, fmt.Errorf("migrate database failed: %w", err)
	}

	uploadRoot := filepath.Join(cfg.Storage.PublicDir, "users")
	if err := os.MkdirAll(uploadRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root failed: %w", err)
	}

	app := &App{
		Config:    cfg,
		DB:        db,
		StartedAt: time.Now(),
	}

	if cfg.RedisEnabled() {
		client, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("connect redis failed: %w", err)
		}
		app.Redis = client
		log.Printf("redis connected at %s", cfg.Redis.Addr)
	}

	return app, nil
}

// Close releases the database and redis handles.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("close redis failed: %v", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("close database failed: %v", err)
			}
		}
	}
}
