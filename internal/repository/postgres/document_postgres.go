package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docstore/internal/model"
	"docstore/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts the document row and version 1 in one transaction.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document, first *model.DocumentVersion) (*model.Document, error) {
	const qDoc = `
		INSERT INTO documents (id, name, owner_id, access_level, last_version, created_at)
		VALUES ($1, $2, $3, $4, 1, $5)
	`
	const qVersion = `
		INSERT INTO document_versions (id, document_id, version_number, file_record_id, created_at)
		VALUES ($1, $2, 1, $3, $4)
	`
	err := withinTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		if _, err := q.ExecContext(ctx, qDoc, doc.ID, doc.Name, doc.OwnerID, int(doc.AccessLevel), doc.CreatedAt); err != nil {
			return mapError(err)
		}
		if _, err := q.ExecContext(ctx, qVersion, first.ID, doc.ID, first.FileRecordID, first.CreatedAt); err != nil {
			return mapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	v := *first
	v.DocumentID = doc.ID
	v.VersionNumber = 1
	out := *doc
	out.Versions = []model.DocumentVersion{v}
	return &out, nil
}

// AddVersion bumps the per-document counter under the row lock taken by
// UPDATE, then inserts the version with that number. The counter never goes
// backwards, so numbers are not reused.
func (r *DocumentPostgres) AddVersion(ctx context.Context, documentID, versionID, fileRecordID string) (*model.DocumentVersion, error) {
	const qNext = `
		UPDATE documents
		SET last_version = GREATEST(
			last_version,
			(SELECT COALESCE(MAX(version_number), 0) FROM document_versions WHERE document_id = $1)
		) + 1
		WHERE id = $1
		RETURNING last_version
	`
	const qInsert = `
		INSERT INTO document_versions (id, document_id, version_number, file_record_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	v := &model.DocumentVersion{
		ID:           versionID,
		DocumentID:   documentID,
		FileRecordID: fileRecordID,
	}
	err := withinTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		if err := q.QueryRowContext(ctx, qNext, documentID).Scan(&v.VersionNumber); err != nil {
			return mapError(err)
		}
		if err := q.QueryRowContext(ctx, qInsert, v.ID, documentID, v.VersionNumber, fileRecordID).Scan(&v.CreatedAt); err != nil {
			return mapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

const documentGraphSelect = `
	SELECT d.id, d.name, d.owner_id, d.access_level, d.created_at,
	       v.id, v.version_number, v.file_record_id, v.created_at,
	       f.id, f.file_name, f.file_path, f.size_kb, f.uploaded_by_user_id, f.created_at
	FROM documents d
	LEFT JOIN document_versions v ON v.document_id = d.id
	LEFT JOIN file_records f ON f.id = v.file_record_id
`

// FindByID loads one document with its versions and their file records.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = documentGraphSelect + `
	WHERE d.id = $1
	ORDER BY v.version_number
	`
	docs, err := r.queryGraph(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, repository.ErrNotFound
	}
	return &docs[0], nil
}

// ListByOwner loads all of the owner's documents in a single query.
func (r *DocumentPostgres) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	const q = documentGraphSelect + `
	WHERE d.owner_id = $1
	ORDER BY d.seq, v.version_number
	`
	return r.queryGraph(ctx, q, ownerID)
}

// queryGraph folds the flat join rows back into documents, preserving row order.
func (r *DocumentPostgres) queryGraph(ctx context.Context, q string, arg any) ([]model.Document, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, arg)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			d      model.Document
			access int
			vID    sql.NullString
			vNum   sql.NullInt64
			vFile  sql.NullString
			vAt    sql.NullTime
			fID    sql.NullString
			fName  sql.NullString
			fPath  sql.NullString
			fSize  sql.NullInt64
			fBy    sql.NullString
			fAt    sql.NullTime
		)
		if err := rows.Scan(
			&d.ID, &d.Name, &d.OwnerID, &access, &d.CreatedAt,
			&vID, &vNum, &vFile, &vAt,
			&fID, &fName, &fPath, &fSize, &fBy, &fAt,
		); err != nil {
			return nil, err
		}

		i, ok := index[d.ID]
		if !ok {
			d.AccessLevel = model.AccessLevel(access)
			d.Versions = make([]model.DocumentVersion, 0, 1)
			docs = append(docs, d)
			i = len(docs) - 1
			index[d.ID] = i
		}
		if !vID.Valid {
			continue
		}

		v := model.DocumentVersion{
			ID:            vID.String,
			DocumentID:    d.ID,
			VersionNumber: int(vNum.Int64),
			FileRecordID:  vFile.String,
			CreatedAt:     vAt.Time,
		}
		if fID.Valid {
			v.File = &model.FileRecord{
				ID:               fID.String,
				FileName:         fName.String,
				FilePath:         fPath.String,
				SizeKB:           fSize.Int64,
				UploadedByUserID: fBy.String,
				CreatedAt:        fAt.Time,
			}
		}
		docs[i].Versions = append(docs[i].Versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete removes the document, its versions and their file records in one
// transaction and returns the removed file records.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) ([]model.FileRecord, error) {
	const qLock = `SELECT id FROM documents WHERE id = $1 FOR UPDATE`
	const qFiles = `
		WITH v AS (
			DELETE FROM document_versions WHERE document_id = $1 RETURNING file_record_id
		)
		DELETE FROM file_records f USING v
		WHERE f.id = v.file_record_id
		RETURNING f.id, f.file_name, f.file_path, f.size_kb, f.uploaded_by_user_id, f.created_at
	`
	const qDoc = `DELETE FROM documents WHERE id = $1`

	var removed []model.FileRecord
	err := withinTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		var locked string
		if err := q.QueryRowContext(ctx, qLock, id).Scan(&locked); err != nil {
			return mapError(err)
		}

		rows, err := q.QueryContext(ctx, qFiles, id)
		if err != nil {
			return mapError(err)
		}
		removed = make([]model.FileRecord, 0)
		for rows.Next() {
			f, err := scanFile(rows)
			if err != nil {
				rows.Close()
				return err
			}
			removed = append(removed, *f)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if _, err := q.ExecContext(ctx, qDoc, id); err != nil {
			return fmt.Errorf("delete document: %w", mapError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
