package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docstore/internal/logging"
	"docstore/internal/model"
	"docstore/internal/storage"
	storeMocks "docstore/internal/storage/mocks"
)

var defaultExt = []string{".pdf", ".docx", ".xlsx", ".png", ".jpg", ".jpeg", ".txt"}

func newLocalStore(t *testing.T, opts ...storage.Option) storage.BlobStore {
	t.Helper()
	b, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	return storage.NewBlobStore(b, defaultExt, logging.Discard(), opts...)
}

func TestBlobStore_SaveAndOpenRoundTrip(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()
	content := bytes.Repeat([]byte("0123456789"), 300)

	loc, err := store.Save(ctx, storage.Upload{
		Filename: "My Report.PDF",
		Size:     int64(len(content)),
		Content:  bytes.NewReader(content),
	}, "owner-1")
	require.NoError(t, err)

	now := time.Now().UTC()
	assert.True(t, strings.HasPrefix(loc.Path, "uploads/owner-1/"+now.Format("2006")+"/"))
	assert.True(t, strings.HasSuffix(loc.Path, "-My_Report.PDF"))
	assert.Equal(t, "My_Report.PDF", loc.SafeName)
	assert.Equal(t, int64(3000), loc.Bytes)
	assert.Equal(t, int64(3), loc.SizeKB)

	rc, err := store.Open(ctx, loc.Path)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestBlobStore_SameNameDoesNotCollide(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()

	a, err := store.Save(ctx, storage.Upload{Filename: "a.txt", Size: 1, Content: strings.NewReader("a")}, "u")
	require.NoError(t, err)
	b, err := store.Save(ctx, storage.Upload{Filename: "a.txt", Size: 1, Content: strings.NewReader("b")}, "u")
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
}

func TestBlobStore_Validation(t *testing.T) {
	backend := new(storeMocks.MockBackend)
	store := storage.NewBlobStore(backend, defaultExt, logging.Discard())
	ctx := context.Background()

	tests := []struct {
		name    string
		up      storage.Upload
		owner   string
		wantErr error
	}{
		{name: "empty size", up: storage.Upload{Filename: "a.txt", Size: 0, Content: strings.NewReader("")}, owner: "u", wantErr: storage.ErrEmptyFile},
		{name: "nil content", up: storage.Upload{Filename: "a.txt", Size: 3}, owner: "u", wantErr: storage.ErrEmptyFile},
		{name: "disallowed extension", up: storage.Upload{Filename: "tool.exe", Size: 3, Content: strings.NewReader("abc")}, owner: "u", wantErr: storage.ErrUnsupportedFileType},
		{name: "no extension", up: storage.Upload{Filename: "README", Size: 3, Content: strings.NewReader("abc")}, owner: "u", wantErr: storage.ErrUnsupportedFileType},
		{name: "bad owner", up: storage.Upload{Filename: "a.txt", Size: 3, Content: strings.NewReader("abc")}, owner: "../x", wantErr: storage.ErrInvalidOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save(ctx, tt.up, tt.owner)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
	// Nothing reached the backend.
	backend.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestBlobStore_AllowListIsConfigurable(t *testing.T) {
	b, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	store := storage.NewBlobStore(b, []string{"CSV"}, logging.Discard())

	_, err = store.Save(context.Background(), storage.Upload{Filename: "d.csv", Size: 1, Content: strings.NewReader("x")}, "u")
	assert.NoError(t, err)
	_, err = store.Save(context.Background(), storage.Upload{Filename: "d.pdf", Size: 1, Content: strings.NewReader("x")}, "u")
	assert.ErrorIs(t, err, storage.ErrUnsupportedFileType)
}

func TestBlobStore_ConflictRetriedOnceWithFreshToken(t *testing.T) {
	backend := new(storeMocks.MockBackend)
	tokens := []string{"t1", "t2", "t3"}
	namer := storage.Namer{
		Now: time.Now,
		Token: func() string {
			tok := tokens[0]
			tokens = tokens[1:]
			return tok
		},
	}
	store := storage.NewBlobStore(backend, defaultExt, logging.Discard(), storage.WithNamer(namer))
	ctx := context.Background()
	r := strings.NewReader("abc")

	backend.On("Create", ctx, mock.MatchedBy(func(k string) bool { return strings.HasSuffix(k, "/t1-a.txt") }), r).
		Return(int64(0), storage.ErrConflictingPath).Once()
	backend.On("Create", ctx, mock.MatchedBy(func(k string) bool { return strings.HasSuffix(k, "/t2-a.txt") }), r).
		Return(int64(3), nil).Once()

	loc, err := store.Save(ctx, storage.Upload{Filename: "a.txt", Size: 3, Content: r}, "u")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(loc.Path, "/t2-a.txt"))
	backend.AssertExpectations(t)
}

func TestBlobStore_ConflictSurfacesAfterRetry(t *testing.T) {
	backend := new(storeMocks.MockBackend)
	store := storage.NewBlobStore(backend, defaultExt, logging.Discard())
	ctx := context.Background()

	backend.On("Create", ctx, mock.Anything, mock.Anything).Return(int64(0), storage.ErrConflictingPath).Twice()

	_, err := store.Save(ctx, storage.Upload{Filename: "a.txt", Size: 3, Content: strings.NewReader("abc")}, "u")
	assert.ErrorIs(t, err, storage.ErrConflictingPath)
	assert.ErrorIs(t, err, model.ErrConflict)
	backend.AssertExpectations(t)
}

func TestBlobStore_UnknownSizeEmptyStream(t *testing.T) {
	backend := new(storeMocks.MockBackend)
	store := storage.NewBlobStore(backend, defaultExt, logging.Discard())
	ctx := context.Background()

	backend.On("Create", ctx, mock.Anything, mock.Anything).Return(int64(0), nil).Once()
	backend.On("Remove", ctx, mock.Anything).Return(true, nil).Once()

	_, err := store.Save(ctx, storage.Upload{Filename: "a.txt", Size: -1, Content: strings.NewReader("")}, "u")
	assert.ErrorIs(t, err, storage.ErrEmptyFile)
	backend.AssertExpectations(t)
}

func TestBlobStore_WriteFailurePropagates(t *testing.T) {
	backend := new(storeMocks.MockBackend)
	store := storage.NewBlobStore(backend, defaultExt, logging.Discard())
	ctx := context.Background()

	backend.On("Create", ctx, mock.Anything, mock.Anything).Return(int64(0), errors.New("disk full")).Once()

	_, err := store.Save(ctx, storage.Upload{Filename: "a.txt", Size: 3, Content: strings.NewReader("abc")}, "u")
	assert.EqualError(t, err, "disk full")
	backend.AssertExpectations(t)
}

func TestBlobStore_OpenMissing(t *testing.T) {
	store := newLocalStore(t)
	_, err := store.Open(context.Background(), "uploads/u/2025/01/gone.txt")
	assert.ErrorIs(t, err, storage.ErrBlobNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBlobStore_Delete(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()

	loc, err := store.Save(ctx, storage.Upload{Filename: "a.txt", Size: 1, Content: strings.NewReader("a")}, "u")
	require.NoError(t, err)

	assert.True(t, store.Delete(ctx, loc.Path))
	assert.False(t, store.Delete(ctx, loc.Path), "second delete is a no-op")
}

func TestBlobStore_DeleteSwallowsIOFailure(t *testing.T) {
	backend := new(storeMocks.MockBackend)
	store := storage.NewBlobStore(backend, defaultExt, logging.Discard())
	ctx := context.Background()

	backend.On("Remove", ctx, "p").Return(false, errors.New("permission denied")).Once()

	assert.False(t, store.Delete(ctx, "p"))
	backend.AssertExpectations(t)
}

func TestBlobStore_ContentTypeAndPublicURL(t *testing.T) {
	store := newLocalStore(t)
	assert.Equal(t, "image/png", store.ContentType("x.png"))
	assert.Equal(t, "application/octet-stream", store.ContentType("x.bin"))
	assert.Equal(t, "/uploads/u/a.txt", store.PublicURL("uploads/u/a.txt"))
}
