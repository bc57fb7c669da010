package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"foodconnect/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SessionKey is the row the provider's session is stored under
const SessionKey = "foodconnect_session"

type localSession struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (localSession) TableName() string { return "local_sessions" }

// LocalCache keeps the last confirmed session in a local SQLite file
type LocalCache struct {
	db  *gorm.DB
	log *slog.Logger
}

// OpenLocalCache opens (creating if needed) the cache file at path
func OpenLocalCache(path string, log *slog.Logger) (*LocalCache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session cache: %w", err)
	}
	return NewLocalCache(db, log)
}

func NewLocalCache(db *gorm.DB, log *slog.Logger) (*LocalCache, error) {
	if err := db.AutoMigrate(&localSession{}); err != nil {
		return nil, fmt.Errorf("migrate session cache: %w", err)
	}
	return &LocalCache{db: db, log: log}, nil
}

// Load returns nil when nothing usable is stored. An undecodable row counts as absent.
func (c *LocalCache) Load(ctx context.Context) (*models.Session, error) {
	var row localSession
	err := c.db.WithContext(ctx).First(&row, "key = ?", SessionKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal([]byte(row.Value), &s); err != nil {
		c.log.Warn("ignoring corrupt cached session", "error", err)
		return nil, nil
	}
	return &s, nil
}

func (c *LocalCache) Save(ctx context.Context, s *models.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	row := localSession{Key: SessionKey, Value: string(payload)}
	if err := c.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (c *LocalCache) Clear(ctx context.Context) error {
	if err := c.db.WithContext(ctx).Delete(&localSession{}, "key = ?", SessionKey).Error; err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close releases the underlying database handle
func (c *LocalCache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
