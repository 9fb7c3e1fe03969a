package postgres

import (
	"context"
	"database/sql"

	"docstore/internal/model"
	"docstore/internal/repository"
)

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
type FilePostgres struct {
	db *sql.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sql.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

const fileColumns = `id, file_name, file_path, size_kb, uploaded_by_user_id, created_at`

// Create inserts a file record and returns the stored row.
func (r *FilePostgres) Create(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error) {
	const q = `
		INSERT INTO file_records (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + fileColumns
	row := conn(ctx, r.db).QueryRowContext(ctx, q,
		rec.ID,
		rec.FileName,
		rec.FilePath,
		rec.SizeKB,
		rec.UploadedByUserID,
		rec.CreatedAt,
	)
	out, err := scanFile(row)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// FindByID fetches a single file record by its ID.
func (r *FilePostgres) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	const q = `SELECT ` + fileColumns + ` FROM file_records WHERE id = $1`
	out, err := scanFile(conn(ctx, r.db).QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// ListByUploader returns the uploader's records, newest first.
func (r *FilePostgres) ListByUploader(ctx context.Context, uploaderID string) ([]model.FileRecord, error) {
	const q = `
		SELECT ` + fileColumns + `
		FROM file_records
		WHERE uploaded_by_user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, uploaderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.FileRecord, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a record by ID and reports whether a row was deleted.
func (r *FilePostgres) Delete(ctx context.Context, id string) (bool, error) {
	const q = `DELETE FROM file_records WHERE id = $1`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, id)
	if err != nil {
		return false, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(s rowScanner) (*model.FileRecord, error) {
	var f model.FileRecord
	if err := s.Scan(
		&f.ID,
		&f.FileName,
		&f.FilePath,
		&f.SizeKB,
		&f.UploadedByUserID,
		&f.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}
