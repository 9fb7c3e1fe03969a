package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docstore/internal/cache"
	"docstore/internal/logging"
	"docstore/internal/model"
	"docstore/internal/repository"
	"docstore/internal/storage"
)

var tracer = otel.Tracer("docstore/internal/service")

// LabelDocument marks ledger rows written for document versions.
const LabelDocument = "document"

// Option customizes a service.
type Option func(*options)

type options struct {
	cache cache.DocumentCache
	log   logrus.FieldLogger
	now   func() time.Time
	newID func() string
}

func defaultOptions() options {
	return options{
		cache: cache.Noop{},
		log:   logging.Discard(),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithCache sets the owner listing cache.
func WithCache(c cache.DocumentCache) Option {
	return func(o *options) {
		if c != nil {
			o.cache = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock overrides the time source used for CreatedAt values.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides the synthetic id source.
func WithIDGenerator(f func() string) Option {
	return func(o *options) { o.newID = f }
}

// recorder writes the FileRecord and ledger row for a saved blob. It must run
// inside the caller's transaction.
type recorder struct {
	files repository.FileRepository
	paths repository.UserFilePathRepository
	now   func() time.Time
	newID func() string
}

func (r recorder) record(ctx context.Context, loc storage.Location, filename, userID string, label *string) (*model.FileRecord, error) {
	now := r.now().UTC()
	name := strings.TrimSpace(filename)
	if name == "" {
		name = loc.SafeName
	}
	rec, err := r.files.Create(ctx, &model.FileRecord{
		ID:               r.newID(),
		FileName:         name,
		FilePath:         loc.Path,
		SizeKB:           loc.SizeKB,
		UploadedByUserID: userID,
		CreatedAt:        now,
	})
	if err != nil {
		return nil, err
	}
	if err := r.paths.Register(ctx, &model.UserFilePath{
		ID:        r.newID(),
		UserID:    userID,
		Path:      loc.Path,
		Label:     label,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	return rec, nil
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
