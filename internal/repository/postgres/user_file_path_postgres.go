package postgres

import (
	"context"
	"database/sql"

	"docstore/internal/model"
	"docstore/internal/repository"
)

// UserFilePathPostgres is a PostgreSQL implementation of repository.UserFilePathRepository.
type UserFilePathPostgres struct {
	db *sql.DB
}

// NewUserFilePathPostgres creates a new UserFilePathPostgres repository.
func NewUserFilePathPostgres(db *sql.DB) *UserFilePathPostgres {
	return &UserFilePathPostgres{db: db}
}

var _ repository.UserFilePathRepository = (*UserFilePathPostgres)(nil)

// Register inserts the ledger row; an existing (user_id, path) pair is left untouched.
func (r *UserFilePathPostgres) Register(ctx context.Context, p *model.UserFilePath) error {
	const q = `
		INSERT INTO user_file_paths (id, user_id, path, label, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, path) DO NOTHING
	`
	var label sql.NullString
	if p.Label != nil {
		label = sql.NullString{String: *p.Label, Valid: true}
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, q, p.ID, p.UserID, p.Path, label, p.CreatedAt)
	return mapError(err)
}

// ListByUser returns the user's ledger rows, newest first.
func (r *UserFilePathPostgres) ListByUser(ctx context.Context, userID string) ([]model.UserFilePath, error) {
	const q = `
		SELECT id, user_id, path, label, created_at
		FROM user_file_paths
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.UserFilePath, 0)
	for rows.Next() {
		var (
			p     model.UserFilePath
			label sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Path, &label, &p.CreatedAt); err != nil {
			return nil, err
		}
		if label.Valid {
			l := label.String
			p.Label = &l
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
