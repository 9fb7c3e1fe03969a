package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
)

// blobStore implements BlobStore on top of a Backend.
// It is safe for concurrent use by multiple goroutines.
type blobStore struct {
	backend Backend
	namer   Namer
	allowed map[string]struct{}
	log     logrus.FieldLogger
}

// Option customizes a BlobStore.
type Option func(*blobStore)

// WithNamer replaces the default clock/token based namer.
func WithNamer(n Namer) Option {
	return func(s *blobStore) { s.namer = n }
}

// NewBlobStore wraps backend with validation, naming and best-effort deletes.
// allowedExt entries are matched case-insensitively; a missing leading dot is added.
func NewBlobStore(backend Backend, allowedExt []string, log logrus.FieldLogger, opts ...Option) BlobStore {
	s := &blobStore{
		backend: backend,
		namer:   NewNamer(),
		allowed: make(map[string]struct{}, len(allowedExt)),
		log:     log.WithField("component", "blobstore"),
	}
	for _, ext := range allowedExt {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.allowed[ext] = struct{}{}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *blobStore) Save(ctx context.Context, up Upload, ownerID string) (Location, error) {
	if up.Content == nil || up.Size == 0 {
		return Location{}, ErrEmptyFile
	}
	safe := SafeFileName(up.Filename)
	ext := strings.ToLower(path.Ext(safe))
	if _, ok := s.allowed[ext]; !ok {
		return Location{}, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}

	// The content stream can only be consumed once, so a conflicting path is
	// detected before any byte is read and the retry reuses the same reader.
	var (
		name Name
		n    int64
		err  error
	)
	for attempt := 0; attempt < 2; attempt++ {
		name, err = s.namer.Generate(ownerID, up.Filename)
		if err != nil {
			return Location{}, err
		}
		n, err = s.backend.Create(ctx, name.Path(), up.Content)
		if !errors.Is(err, ErrConflictingPath) {
			break
		}
		s.log.WithField("path", name.Path()).Warn("storage path collision, regenerating name")
	}
	if err != nil {
		return Location{}, err
	}
	if n == 0 {
		// Declared size was unknown and the stream turned out empty.
		s.Delete(ctx, name.Path())
		return Location{}, ErrEmptyFile
	}

	s.log.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"path":     name.Path(),
		"bytes":    n,
	}).Info("blob saved")

	return Location{
		Path:     name.Path(),
		SafeName: name.SafeName,
		Bytes:    n,
		SizeKB:   SizeKB(n),
	}, nil
}

func (s *blobStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	rc, err := s.backend.Open(ctx, p)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			s.log.WithField("path", p).Warn("physical file is missing")
		}
		return nil, err
	}
	return rc, nil
}

func (s *blobStore) Delete(ctx context.Context, p string) bool {
	removed, err := s.backend.Remove(ctx, p)
	if err != nil {
		s.log.WithError(err).WithField("path", p).Error("failed to delete physical file")
		return false
	}
	return removed
}

func (s *blobStore) ContentType(filename string) string {
	return ContentType(filename)
}

func (s *blobStore) PublicURL(p string) string {
	return "/" + strings.TrimPrefix(p, "/")
}
