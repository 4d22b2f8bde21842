package syncstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/taskvault/taskvault/internal/dbx"
)

const (
	deviceIDKey        = "device_id"
	watermarkKeyPrefix = "watermark:"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get sync_state[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set sync_state[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) DeviceID(ctx context.Context) (string, error) {
	return r.get(ctx, deviceIDKey)
}

func (r *SQLiteRepository) SetDeviceID(ctx context.Context, id string) error {
	return r.set(ctx, deviceIDKey, id)
}

func (r *SQLiteRepository) Watermark(ctx context.Context, owner string) (int64, error) {
	v, err := r.get(ctx, watermarkKeyPrefix+owner)
	if err != nil {
		return 0, err
	}
	if v == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt watermark for %s: %w", owner, err)
	}
	return ts, nil
}

func (r *SQLiteRepository) SetWatermark(ctx context.Context, owner string, ts int64) error {
	return r.set(ctx, watermarkKeyPrefix+owner, strconv.FormatInt(ts, 10))
}
