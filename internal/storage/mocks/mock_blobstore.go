package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"docstore/internal/storage"
)

type MockBlobStore struct {
	mock.Mock
}

var _ storage.BlobStore = (*MockBlobStore)(nil)

func (m *MockBlobStore) Save(ctx context.Context, up storage.Upload, ownerID string) (storage.Location, error) {
	args := m.Called(ctx, up, ownerID)
	return args.Get(0).(storage.Location), args.Error(1)
}

func (m *MockBlobStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, path string) bool {
	args := m.Called(ctx, path)
	return args.Bool(0)
}

func (m *MockBlobStore) ContentType(filename string) string {
	return storage.ContentType(filename)
}

func (m *MockBlobStore) PublicURL(path string) string {
	return "/" + path
}
