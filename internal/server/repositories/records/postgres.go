// Package records provides server-side record persistence: a PostgreSQL
// repository for production and an in-memory one for tests.
package records

import (
	"context"
	"fmt"

	"github.com/taskvault/taskvault/internal/dbx"
	"github.com/taskvault/taskvault/internal/server/models"
)

// PostgresRepository implements record storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.StoredRecord) error {
	query := `
		INSERT INTO records (record_id, owner, collection, encrypted_data, nonce, metadata, server_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner, collection, record_id)
		DO UPDATE SET
			encrypted_data = EXCLUDED.encrypted_data,
			nonce = EXCLUDED.nonce,
			metadata = EXCLUDED.metadata,
			server_updated_at = EXCLUDED.server_updated_at;
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.RecordId, rec.Owner, rec.Collection, rec.EncryptedData, rec.Nonce, []byte(rec.Metadata), rec.ServerUpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SelectUpdated(ctx context.Context, owner, collection string, since int64) ([]*models.StoredRecord, error) {
	query := `
		SELECT record_id, owner, collection, encrypted_data, nonce, metadata, server_updated_at FROM records
		WHERE owner = $1 AND collection = $2 AND server_updated_at > $3
		ORDER BY server_updated_at
	`
	rows, err := r.db.QueryContext(ctx, query, owner, collection, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.StoredRecord
	for rows.Next() {
		var item models.StoredRecord
		var meta []byte
		if err := rows.Scan(
			&item.RecordId, &item.Owner, &item.Collection, &item.EncryptedData, &item.Nonce,
			&meta, &item.ServerUpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Metadata = meta
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) MaxServerUpdatedAt(ctx context.Context, owner string) (int64, error) {
	query := `SELECT COALESCE(MAX(server_updated_at), 0) FROM records WHERE owner = $1`

	var max int64
	if err := r.db.QueryRowContext(ctx, query, owner).Scan(&max); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return max, nil
}
