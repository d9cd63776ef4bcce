package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

const schemaLockKey int64 = 2026101701

// UploadRepository is the upload registry. It tracks where a document is
// stored and how far its analysis got; results themselves are not kept.
type UploadRepository struct {
	db *sql.DB
}

func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

func (r *UploadRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS uploads (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	document_type TEXT NOT NULL,
	product_category TEXT,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_uploads_status ON uploads(status);
CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *UploadRepository) Create(ctx context.Context, upload *domain.Upload) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO uploads (
	id, filename, mime_type, storage_path, size_bytes, document_type, product_category, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		upload.ID, upload.Filename, upload.MimeType, upload.StoragePath, upload.SizeBytes,
		string(upload.DocumentType), nullableCategory(upload.ProductCategory),
		string(upload.Status), upload.Error, upload.CreatedAt, upload.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

func (r *UploadRepository) GetByID(ctx context.Context, id string) (*domain.Upload, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, size_bytes, document_type, product_category, status, error_message, created_at, updated_at
FROM uploads
WHERE id = $1
`, id)

	var upload domain.Upload
	var docType, status string
	var category sql.NullString

	err := row.Scan(
		&upload.ID, &upload.Filename, &upload.MimeType, &upload.StoragePath, &upload.SizeBytes,
		&docType, &category, &status, &upload.Error, &upload.CreatedAt, &upload.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrUploadNotFound, "get upload", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan upload: %w", err)
	}

	upload.DocumentType = domain.DocumentType(docType)
	upload.Status = domain.UploadStatus(status)
	if category.Valid {
		value := domain.ProductCategory(category.String)
		upload.ProductCategory = &value
	}
	return &upload, nil
}

func (r *UploadRepository) UpdateStatus(ctx context.Context, id string, status domain.UploadStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE uploads
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update upload status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update upload status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrUploadNotFound, "update upload status", fmt.Errorf("id=%s", id))
	}
	return nil
}

func nullableCategory(category *domain.ProductCategory) sql.NullString {
	if category == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*category), Valid: true}
}
