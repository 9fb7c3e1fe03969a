package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docstore/internal/model"
	"docstore/internal/repository"
	"docstore/internal/storage"
)

var (
	ErrFileNotFound = fmt.Errorf("%w: file", model.ErrNotFound)
	// ErrBlobMissing means the record exists but its bytes are gone.
	ErrBlobMissing = fmt.Errorf("%w: file content is missing", model.ErrNotFound)
	// ErrFileInUse is returned when deleting a file that backs a document version.
	ErrFileInUse = fmt.Errorf("%w: file belongs to a document version", model.ErrConflict)
)

// Download is an open file ready to be streamed. The caller closes Content.
type Download struct {
	File        *model.FileRecord
	Content     io.ReadCloser
	ContentType string
	FileName    string
}

// FileService defines the use cases for standalone file uploads.
type FileService interface {
	// Upload stores the content and records it for the uploader.
	Upload(ctx context.Context, up storage.Upload, uploaderID string) (*model.FileRecord, error)

	// Get returns the record without touching the blob.
	Get(ctx context.Context, id string) (*model.FileRecord, error)

	// Open returns the record's content. ErrFileNotFound when no record
	// exists, ErrBlobMissing when the record exists without bytes.
	Open(ctx context.Context, id string) (*Download, error)

	// Delete removes the record and then, best-effort, its blob. It reports
	// false when no record existed.
	Delete(ctx context.Context, id string) (bool, error)

	// ListByUploader returns the user's files, newest first.
	ListByUploader(ctx context.Context, uploaderID string) ([]model.FileRecord, error)

	// ListPaths returns every storage path registered to the user, document
	// versions included, newest first.
	ListPaths(ctx context.Context, userID string) ([]model.UserFilePath, error)

	// PublicURL returns the URL path the file is served under.
	PublicURL(rec model.FileRecord) string
}

type fileService struct {
	store storage.BlobStore
	files repository.FileRepository
	paths repository.UserFilePathRepository
	tx    repository.Transactor
	rec   recorder
	log   logrus.FieldLogger
}

// NewFileService constructs a new FileService.
func NewFileService(
	store storage.BlobStore,
	files repository.FileRepository,
	paths repository.UserFilePathRepository,
	tx repository.Transactor,
	opts ...Option,
) FileService {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &fileService{
		store: store,
		files: files,
		paths: paths,
		tx:    tx,
		rec:   recorder{files: files, paths: paths, now: o.now, newID: o.newID},
		log:   o.log.WithField("component", "file_service"),
	}
}

func (s *fileService) Upload(ctx context.Context, up storage.Upload, uploaderID string) (_ *model.FileRecord, err error) {
	ctx, span := tracer.Start(ctx, "FileService.Upload", trace.WithAttributes(attribute.String("uploader_id", uploaderID)))
	defer func() { endSpan(span, err) }()

	loc, err := s.store.Save(ctx, up, uploaderID)
	if err != nil {
		return nil, fmt.Errorf("save blob: %w", err)
	}

	var rec *model.FileRecord
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.rec.record(ctx, loc, up.Filename, uploaderID, nil)
		return err
	})
	if err != nil {
		s.log.WithError(err).WithField("path", loc.Path).Error("file metadata not persisted, blob orphaned")
		return nil, fmt.Errorf("persist file: %w", err)
	}
	return rec, nil
}

func (s *fileService) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	rec, err := s.files.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *fileService) Open(ctx context.Context, id string) (_ *Download, err error) {
	ctx, span := tracer.Start(ctx, "FileService.Open", trace.WithAttributes(attribute.String("file_id", id)))
	defer func() { endSpan(span, err) }()

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rc, err := s.store.Open(ctx, rec.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			s.log.WithFields(logrus.Fields{"file_id": id, "path": rec.FilePath}).Warn("file record without content")
			return nil, ErrBlobMissing
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return &Download{
		File:        rec,
		Content:     rc,
		ContentType: s.store.ContentType(rec.FileName),
		FileName:    rec.FileName,
	}, nil
}

func (s *fileService) Delete(ctx context.Context, id string) (_ bool, err error) {
	ctx, span := tracer.Start(ctx, "FileService.Delete", trace.WithAttributes(attribute.String("file_id", id)))
	defer func() { endSpan(span, err) }()

	rec, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return false, nil
		}
		return false, err
	}
	deleted, err := s.files.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return false, ErrFileInUse
		}
		return false, err
	}
	if !deleted {
		return false, nil
	}
	s.store.Delete(ctx, rec.FilePath)
	return true, nil
}

func (s *fileService) ListByUploader(ctx context.Context, uploaderID string) ([]model.FileRecord, error) {
	return s.files.ListByUploader(ctx, uploaderID)
}

func (s *fileService) ListPaths(ctx context.Context, userID string) ([]model.UserFilePath, error) {
	if userID == "" {
		return nil, ErrIDRequired
	}
	return s.paths.ListByUser(ctx, userID)
}

func (s *fileService) PublicURL(rec model.FileRecord) string {
	return s.store.PublicURL(rec.FilePath)
}
