package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taskvault/taskvault/internal/client/models"
	"github.com/taskvault/taskvault/internal/common"
	"github.com/taskvault/taskvault/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx), so the store can run read-modify-write cycles transactionally.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec *models.Record) error {
	query := `INSERT INTO records (id, owner, payload, nonce, server_watermark)
			VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.Id, rec.Owner, rec.Payload, rec.Nonce, rec.ServerWatermark)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, owner, id string) (*models.Record, error) {
	query := `SELECT id, owner, payload, nonce, server_watermark
			FROM records WHERE owner = ? AND id = ?`
	row := r.db.QueryRowContext(ctx, query, owner, id)

	rec := &models.Record{}
	err := row.Scan(&rec.Id, &rec.Owner, &rec.Payload, &rec.Nonce, &rec.ServerWatermark)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, owner string) ([]models.Record, error) {
	query := `SELECT id, owner, payload, nonce, server_watermark
			FROM records WHERE owner = ?`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		var item models.Record
		if err := rows.Scan(&item.Id, &item.Owner, &item.Payload, &item.Nonce, &item.ServerWatermark); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *models.Record) error {
	query := `UPDATE records SET payload = ?, nonce = ?, server_watermark = ?
			WHERE owner = ? AND id = ?`
	res, err := r.db.ExecContext(ctx, query,
		rec.Payload, rec.Nonce, rec.ServerWatermark, rec.Owner, rec.Id)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) SetServerWatermark(ctx context.Context, owner, id string, ts int64) error {
	query := `UPDATE records SET server_watermark = ? WHERE owner = ? AND id = ?`
	res, err := r.db.ExecContext(ctx, query, ts, owner, id)
	if err != nil {
		return fmt.Errorf("failed to set watermark: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) HardDelete(ctx context.Context, owner, id string) error {
	query := `DELETE FROM records WHERE owner = ? AND id = ?`
	if _, err := r.db.ExecContext(ctx, query, owner, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}
