// Package app opens the backends shared by the server and migrate commands.
package app

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/chat"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/config"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/db"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/profile"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/store/redisstore"
)

const redisKeyPrefix = "ts"

// Stores holds the user record store and the identity directory.
// With the redis driver, records live in redis and the directory stays in
// sqlite at store.dsn.
type Stores struct {
	DB        *gorm.DB
	Chat      chat.Store
	Directory *profile.GormDirectory

	redis *redisstore.Store
}

func OpenStores(ctx context.Context, cfg config.Config) (*Stores, error) {
	driver := strings.ToLower(cfg.Store.Driver)

	sqlDriver := driver
	if driver == "redis" {
		sqlDriver = "sqlite"
	}
	gdb, err := db.Connect(sqlDriver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	s := &Stores{DB: gdb, Directory: profile.NewGormDirectory(gdb)}

	if driver == "redis" {
		rs := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rs.Ping(ctx); err != nil {
			_ = s.Close()
			_ = rs.Close()
			return nil, err
		}
		s.redis = rs
		s.Chat = chat.NewRedisRepo(rs.Client, redisKeyPrefix)
	} else {
		s.Chat = chat.NewRepo(gdb)
	}
	return s, nil
}

// Models lists every table owned by the SQL store.
func Models() []any {
	return append(chat.Models(), &profile.Attribute{})
}

func (s *Stores) Migrate() error {
	if err := db.Migrate(s.DB, Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Stores) Close() error {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
