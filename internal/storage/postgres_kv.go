package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVRecord is one serialized record in PostgreSQL.
type KVRecord struct {
	// Key is the record name (e.g. "KV_DATA_V1").
	Key string `gorm:"primaryKey;type:text"`
	// Value is the serialized JSON record.
	Value []byte `gorm:"type:bytea;not null"`
	// UpdatedAt is maintained by GORM on every upsert.
	UpdatedAt time.Time
}

// PostgresKV stores records through GORM.
type PostgresKV struct {
	DB *gorm.DB
}

// NewPostgresKV migrates the kv_records table and returns the backend.
func NewPostgresKV(db *gorm.DB) (*PostgresKV, error) {
	if err := db.AutoMigrate(&KVRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &PostgresKV{DB: db}, nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var rec KVRecord
	err := p.DB.WithContext(ctx).Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

func (p *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	rec := KVRecord{Key: key, Value: value}
	return p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

func (p *PostgresKV) Close() error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
