package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docstore/internal/model"
	"docstore/internal/repository"
	"docstore/internal/storage"
)

var (
	ErrIDRequired         = fmt.Errorf("%w: id is required", model.ErrValidation)
	ErrNameRequired       = fmt.Errorf("%w: document name is required", model.ErrValidation)
	ErrInvalidAccessLevel = fmt.Errorf("%w: invalid access level", model.ErrValidation)
	ErrDocumentNotFound   = fmt.Errorf("%w: document", model.ErrNotFound)
	// ErrVersionConflict is returned when a version number could not be
	// claimed after one retry.
	ErrVersionConflict = fmt.Errorf("%w: version number already taken", model.ErrConflict)
)

// DocumentService defines the use cases for versioned documents.
type DocumentService interface {
	// Create stores the content and creates the document with version 1.
	// Name and access level are validated before any I/O.
	Create(ctx context.Context, name, ownerID string, access model.AccessLevel, up storage.Upload) (*model.Document, error)

	// AddVersion stores the content under the document owner and appends the
	// next version number.
	AddVersion(ctx context.Context, documentID string, up storage.Upload) (*model.DocumentVersion, error)

	// ListByOwner returns the owner's documents with versions and file
	// metadata resolved. Callers use it for ownership checks.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Delete removes the document and all of its versions. Blob removal is
	// best-effort and happens after the metadata delete committed.
	Delete(ctx context.Context, id string) error
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store storage.BlobStore
	docs  repository.DocumentRepository
	tx    repository.Transactor
	rec   recorder
	opts  options
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(
	store storage.BlobStore,
	docs repository.DocumentRepository,
	files repository.FileRepository,
	paths repository.UserFilePathRepository,
	tx repository.Transactor,
	opts ...Option,
) DocumentService {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.WithField("component", "document_service")
	return &documentService{
		store: store,
		docs:  docs,
		tx:    tx,
		rec:   recorder{files: files, paths: paths, now: o.now, newID: o.newID},
		opts:  o,
	}
}

func (s *documentService) Create(ctx context.Context, name, ownerID string, access model.AccessLevel, up storage.Upload) (_ *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Create", trace.WithAttributes(attribute.String("owner_id", ownerID)))
	defer func() { endSpan(span, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !access.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAccessLevel, int(access))
	}

	loc, err := s.store.Save(ctx, up, ownerID)
	if err != nil {
		return nil, fmt.Errorf("save blob: %w", err)
	}

	now := s.opts.now().UTC()
	doc := &model.Document{
		ID:          s.opts.newID(),
		Name:        name,
		OwnerID:     ownerID,
		AccessLevel: access,
		CreatedAt:   now,
	}
	label := LabelDocument

	var created *model.Document
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := s.rec.record(ctx, loc, up.Filename, ownerID, &label)
		if err != nil {
			return err
		}
		created, err = s.docs.Create(ctx, doc, &model.DocumentVersion{
			ID:           s.opts.newID(),
			FileRecordID: rec.ID,
			File:         rec,
			CreatedAt:    now,
		})
		return err
	})
	if err != nil {
		s.opts.log.WithError(err).WithField("path", loc.Path).Error("document metadata not persisted, blob orphaned")
		return nil, fmt.Errorf("persist document: %w", err)
	}

	s.opts.cache.InvalidateOwner(ctx, ownerID)
	s.opts.log.WithFields(logrus.Fields{"document_id": created.ID, "owner_id": ownerID}).Info("document created")
	return created, nil
}

func (s *documentService) AddVersion(ctx context.Context, documentID string, up storage.Upload) (_ *model.DocumentVersion, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.AddVersion", trace.WithAttributes(attribute.String("document_id", documentID)))
	defer func() { endSpan(span, err) }()

	if documentID == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.docs.FindByID(ctx, documentID)
	if err != nil {
		return nil, mapDocumentErr(err)
	}

	loc, err := s.store.Save(ctx, up, doc.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("save blob: %w", err)
	}

	label := LabelDocument
	var v *model.DocumentVersion
	for attempt := 0; attempt < 2; attempt++ {
		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			rec, err := s.rec.record(ctx, loc, up.Filename, doc.OwnerID, &label)
			if err != nil {
				return err
			}
			v, err = s.docs.AddVersion(ctx, documentID, s.opts.newID(), rec.ID)
			if err != nil {
				return err
			}
			v.File = rec
			return nil
		})
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
		s.opts.log.WithError(err).WithFields(logrus.Fields{"document_id": documentID, "attempt": attempt + 1}).
			Warn("version number conflict")
	}
	if err != nil {
		s.opts.log.WithError(err).WithField("path", loc.Path).Error("version metadata not persisted, blob orphaned")
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: document %s", ErrVersionConflict, documentID)
		}
		return nil, mapDocumentErr(err)
	}

	s.opts.cache.InvalidateOwner(ctx, doc.OwnerID)
	s.opts.log.WithFields(logrus.Fields{"document_id": documentID, "version": v.VersionNumber}).Info("document version added")
	return v, nil
}

func (s *documentService) ListByOwner(ctx context.Context, ownerID string) (_ []model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.ListByOwner", trace.WithAttributes(attribute.String("owner_id", ownerID)))
	defer func() { endSpan(span, err) }()

	// gen is read before the query so a write committed in between
	// outdates the entry stored below.
	docs, gen, ok := s.opts.cache.GetOwnerDocuments(ctx, ownerID)
	if ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return docs, nil
	}
	docs, err = s.docs.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.opts.cache.SetOwnerDocuments(ctx, ownerID, gen, docs)
	return docs, nil
}

func (s *documentService) Get(ctx context.Context, id string) (_ *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Get", trace.WithAttributes(attribute.String("document_id", id)))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, mapDocumentErr(err)
	}
	return doc, nil
}

func (s *documentService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Delete", trace.WithAttributes(attribute.String("document_id", id)))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return ErrIDRequired
	}
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return mapDocumentErr(err)
	}
	removed, err := s.docs.Delete(ctx, id)
	if err != nil {
		return mapDocumentErr(err)
	}
	s.opts.cache.InvalidateOwner(ctx, doc.OwnerID)

	// Metadata is gone; leftover blobs are logged by the store.
	for _, f := range removed {
		s.store.Delete(ctx, f.FilePath)
	}
	s.opts.log.WithFields(logrus.Fields{"document_id": id, "files": len(removed)}).Info("document deleted")
	return nil
}

func mapDocumentErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrDocumentNotFound
	}
	return err
}
