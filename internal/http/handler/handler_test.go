package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docstore/internal/config"
	"docstore/internal/http/middleware"
	"docstore/internal/model"
	"docstore/internal/service"
	serviceMocks "docstore/internal/service/mocks"
	"docstore/internal/storage"
)

// newApp mounts h behind header identity, the way RegisterRoutes does.
func newApp(method, route string, h fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Add(method, route, middleware.Identity(config.AuthConfig{}), h)
	return app
}

func asUser(req *http.Request, userID string) *http.Request {
	req.Header.Set(middleware.UserIDHeader, userID)
	return req
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp(http.MethodGet, "/documents", ListDocuments(mockSvc))
	owner := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		docs := []model.Document{{ID: uuid.New().String(), Name: "Plan", OwnerID: owner, Versions: []model.DocumentVersion{}}}
		mockSvc.On("ListByOwner", mock.Anything, owner).Return(docs, nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents", nil), owner))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result documentList
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing identity", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("ListByOwner", mock.Anything, owner).Return(nil, errors.New("service error")).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents", nil), owner))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp(http.MethodPost, "/documents", UploadDocument(mockSvc))
	owner := uuid.New().String()

	upload := func(name string) any {
		return mock.MatchedBy(func(up storage.Upload) bool {
			return up.Filename == name && up.Size == int64(len("hello world")) && up.Content != nil
		})
	}

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"name": "Contract", "access_level": "shared"}, "test.txt", "hello world")

		expected := &model.Document{ID: uuid.New().String(), Name: "Contract", OwnerID: owner, AccessLevel: model.AccessShared}
		mockSvc.On("Create", mock.Anything, "Contract", owner, model.AccessShared, upload("test.txt")).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(asUser(req, owner))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expected.ID, result.ID)
		assert.Equal(t, model.AccessShared, result.AccessLevel)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"name": "Contract"}, "", "")

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(asUser(req, owner))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid access level", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"name": "Contract", "access_level": "secret"}, "test.txt", "hello world")

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(asUser(req, owner))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ACCESS_LEVEL", decodeError(t, resp).Error.Code)
	})

	t.Run("validation errors are mapped", func(t *testing.T) {
		tests := []struct {
			name     string
			err      error
			wantCode int
			wantBody string
		}{
			{name: "blank name", err: service.ErrNameRequired, wantCode: http.StatusBadRequest, wantBody: "NAME_REQUIRED"},
			{name: "extension", err: storage.ErrUnsupportedFileType, wantCode: http.StatusUnprocessableEntity, wantBody: "UNSUPPORTED_FILE_TYPE"},
			{name: "empty", err: storage.ErrEmptyFile, wantCode: http.StatusBadRequest, wantBody: "EMPTY_FILE"},
			{name: "io failure", err: errors.New("disk full"), wantCode: http.StatusInternalServerError, wantBody: "INTERNAL_ERROR"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				body, ct := multipartBody(t, map[string]string{"name": " "}, "test.txt", "hello world")
				mockSvc.On("Create", mock.Anything, " ", owner, model.AccessPrivate, mock.Anything).Return(nil, tt.err).Once()

				req := httptest.NewRequest(http.MethodPost, "/documents", body)
				req.Header.Set("Content-Type", ct)
				resp, _ := app.Test(asUser(req, owner))

				assert.Equal(t, tt.wantCode, resp.StatusCode)
				assert.Equal(t, tt.wantBody, decodeError(t, resp).Error.Code)
				mockSvc.AssertExpectations(t)
			})
		}
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp(http.MethodGet, "/documents/:id", GetDocument(mockSvc))
	owner := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expected := &model.Document{ID: id, Name: "Plan", OwnerID: owner}
		mockSvc.On("Get", mock.Anything, id).Return(expected, nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil), owner))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("other owner is hidden", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(&model.Document{ID: id, OwnerID: uuid.New().String()}, nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil), owner))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrDocumentNotFound).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil), owner))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents/invalid-uuid", nil), owner))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil), owner))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestAddVersion(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp(http.MethodPost, "/documents/:id/versions", AddVersion(mockSvc))
	owner := uuid.New().String()
	id := uuid.New().String()
	owned := []model.Document{{ID: id, OwnerID: owner}}

	post := func(t *testing.T, docID string) *http.Response {
		body, ct := multipartBody(t, nil, "v2.pdf", "%PDF-1.7")
		req := httptest.NewRequest(http.MethodPost, "/documents/"+docID+"/versions", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(asUser(req, owner))
		return resp
	}

	t.Run("success", func(t *testing.T) {
		mockSvc.On("ListByOwner", mock.Anything, owner).Return(owned, nil).Once()
		mockSvc.On("AddVersion", mock.Anything, id, mock.MatchedBy(func(up storage.Upload) bool {
			return up.Filename == "v2.pdf"
		})).Return(&model.DocumentVersion{ID: uuid.New().String(), DocumentID: id, VersionNumber: 2}, nil).Once()

		resp := post(t, id)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var v model.DocumentVersion
		json.NewDecoder(resp.Body).Decode(&v)
		assert.Equal(t, 2, v.VersionNumber)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not owned", func(t *testing.T) {
		mockSvc.On("ListByOwner", mock.Anything, owner).Return([]model.Document{}, nil).Once()

		resp := post(t, id)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
		mockSvc.AssertNotCalled(t, "AddVersion", mock.Anything, id, mock.Anything)
	})

	t.Run("conflict after retry", func(t *testing.T) {
		mockSvc.On("ListByOwner", mock.Anything, owner).Return(owned, nil).Once()
		mockSvc.On("AddVersion", mock.Anything, id, mock.Anything).Return(nil, service.ErrVersionConflict).Once()

		resp := post(t, id)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "VERSION_CONFLICT", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp(http.MethodDelete, "/documents/:id", DeleteDocument(mockSvc))
	owner := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("ListByOwner", mock.Anything, owner).Return([]model.Document{{ID: id, OwnerID: owner}}, nil).Once()
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil), owner))

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("ListByOwner", mock.Anything, owner).Return([]model.Document{}, nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil), owner))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("ListByOwner", mock.Anything, owner).Return([]model.Document{{ID: id, OwnerID: owner}}, nil).Once()
		mockSvc.On("Delete", mock.Anything, id).Return(errors.New("delete error")).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil), owner))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestListFiles(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := newApp(http.MethodGet, "/files", ListFiles(mockSvc))
	user := uuid.New().String()

	recs := []model.FileRecord{
		{ID: "f2", FileName: "b.txt", FilePath: "uploads/" + user + "/2024/05/t2-b.txt", SizeKB: 1, UploadedByUserID: user},
		{ID: "f1", FileName: "a.txt", FilePath: "uploads/" + user + "/2024/05/t1-a.txt", SizeKB: 1, UploadedByUserID: user},
	}
	mockSvc.On("ListByUploader", mock.Anything, user).Return(recs, nil).Once()

	resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/files", nil), user))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out fileList
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Items, 2)
	assert.Equal(t, "f2", out.Items[0].ID)
	assert.Equal(t, "/"+recs[0].FilePath, out.Items[0].URL)
	mockSvc.AssertExpectations(t)
}

func TestListFilePaths(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := newApp(http.MethodGet, "/files/paths", ListFilePaths(mockSvc))
	user := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		label := service.LabelDocument
		paths := []model.UserFilePath{
			{ID: "p2", UserID: user, Path: "uploads/" + user + "/2024/05/t2-plan.pdf", Label: &label},
			{ID: "p1", UserID: user, Path: "uploads/" + user + "/2024/05/t1-a.txt"},
		}
		mockSvc.On("ListPaths", mock.Anything, user).Return(paths, nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/files/paths", nil), user))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var out pathList
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, 2, out.Total)
		require.Len(t, out.Items, 2)
		assert.Equal(t, paths[0].Path, out.Items[0].Path)
		require.NotNil(t, out.Items[0].Label)
		assert.Equal(t, service.LabelDocument, *out.Items[0].Label)
		assert.Nil(t, out.Items[1].Label)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("ListPaths", mock.Anything, user).Return(nil, errors.New("db down")).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/files/paths", nil), user))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	mockSvc.AssertExpectations(t)
}

func TestUploadFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := newApp(http.MethodPost, "/files", UploadFile(mockSvc))
	user := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, nil, "notes.txt", "hi")
		rec := &model.FileRecord{ID: "f1", FileName: "notes.txt", FilePath: "uploads/u/2024/05/t-notes.txt", SizeKB: 1, UploadedByUserID: user}
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(up storage.Upload) bool {
			return up.Filename == "notes.txt" && up.Size == 2
		}), user).Return(rec, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/files", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(asUser(req, user))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var out fileView
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "/uploads/u/2024/05/t-notes.txt", out.URL)
		assert.Equal(t, "notes.txt", out.FileName)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		body, ct := multipartBody(t, nil, "", "")
		req := httptest.NewRequest(http.MethodPost, "/files", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(asUser(req, user))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})
}

func TestDownloadDocument(t *testing.T) {
	docSvc := new(serviceMocks.MockDocumentService)
	fileSvc := new(serviceMocks.MockFileService)
	app := newApp(http.MethodGet, "/documents/:id/download", DownloadDocument(docSvc, fileSvc))
	owner := uuid.New().String()

	t.Run("serves the highest version", func(t *testing.T) {
		id := uuid.New().String()
		docSvc.On("Get", mock.Anything, id).Return(&model.Document{ID: id, OwnerID: owner, Versions: []model.DocumentVersion{
			{VersionNumber: 1, FileRecordID: "f1"},
			{VersionNumber: 3, FileRecordID: "f3"},
			{VersionNumber: 2, FileRecordID: "f2"},
		}}, nil).Once()
		fileSvc.On("Open", mock.Anything, "f3").Return(&service.Download{
			File:        &model.FileRecord{ID: "f3", FileName: "plan.txt"},
			Content:     io.NopCloser(strings.NewReader("third")),
			ContentType: "text/plain; charset=utf-8",
			FileName:    "plan.txt",
		}, nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil), owner))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "3", resp.Header.Get("X-Document-Version"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="plan.txt"`)
		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "third", string(b))
	})

	t.Run("other owner is hidden", func(t *testing.T) {
		id := uuid.New().String()
		docSvc.On("Get", mock.Anything, id).Return(&model.Document{ID: id, OwnerID: uuid.New().String(),
			Versions: []model.DocumentVersion{{VersionNumber: 1, FileRecordID: "f9"}}}, nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil), owner))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		fileSvc.AssertNotCalled(t, "Open", mock.Anything, "f9")
	})

	t.Run("no versions", func(t *testing.T) {
		id := uuid.New().String()
		docSvc.On("Get", mock.Anything, id).Return(&model.Document{ID: id, OwnerID: owner}, nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil), owner))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("blob missing", func(t *testing.T) {
		id := uuid.New().String()
		docSvc.On("Get", mock.Anything, id).Return(&model.Document{ID: id, OwnerID: owner,
			Versions: []model.DocumentVersion{{VersionNumber: 1, FileRecordID: "f4"}}}, nil).Once()
		fileSvc.On("Open", mock.Anything, "f4").Return(nil, service.ErrBlobMissing).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil), owner))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/documents/nope/download", nil), owner))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	docSvc.AssertExpectations(t)
	fileSvc.AssertExpectations(t)
}

func TestDownloadFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := newApp(http.MethodGet, "/files/:id/download", DownloadFile(mockSvc))
	user := uuid.New().String()

	t.Run("streams content", func(t *testing.T) {
		id := uuid.New().String()
		rec := &model.FileRecord{ID: id, FileName: "report.pdf", FilePath: "uploads/x-report.pdf", UploadedByUserID: user}
		mockSvc.On("Get", mock.Anything, id).Return(rec, nil).Once()
		mockSvc.On("Open", mock.Anything, id).Return(&service.Download{
			File:        rec,
			Content:     io.NopCloser(strings.NewReader("%PDF-1.7")),
			ContentType: "application/pdf",
			FileName:    "report.pdf",
		}, nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/files/"+id+"/download", nil), user))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="report.pdf"`)
		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "%PDF-1.7", string(b))
		mockSvc.AssertExpectations(t)
	})

	t.Run("blob missing", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(&model.FileRecord{ID: id, UploadedByUserID: user}, nil).Once()
		mockSvc.On("Open", mock.Anything, id).Return(nil, service.ErrBlobMissing).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/files/"+id+"/download", nil), user))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "FILE_CONTENT_MISSING", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("other uploader", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(&model.FileRecord{ID: id, UploadedByUserID: uuid.New().String()}, nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/files/"+id+"/download", nil), user))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := newApp(http.MethodDelete, "/files/:id", DeleteFile(mockSvc))
	user := uuid.New().String()

	tests := []struct {
		name     string
		deleted  bool
		err      error
		wantCode int
	}{
		{name: "deleted", deleted: true, wantCode: http.StatusNoContent},
		{name: "raced away", deleted: false, wantCode: http.StatusNotFound},
		{name: "belongs to a version", err: service.ErrFileInUse, wantCode: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New().String()
			mockSvc.On("Get", mock.Anything, id).Return(&model.FileRecord{ID: id, UploadedByUserID: user}, nil).Once()
			mockSvc.On("Delete", mock.Anything, id).Return(tt.deleted, tt.err).Once()

			resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodDelete, "/files/"+id, nil), user))

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			mockSvc.AssertExpectations(t)
		})
	}

	t.Run("unknown file", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrFileNotFound).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodDelete, "/files/"+id, nil), user))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	fileSvc := new(serviceMocks.MockFileService)
	RegisterRoutes(app, nil, new(serviceMocks.MockDocumentService), fileSvc, config.AuthConfig{})

	t.Run("not found route", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("documents require identity", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("file paths are not taken for a file id", func(t *testing.T) {
		user := uuid.New().String()
		fileSvc.On("ListPaths", mock.Anything, user).Return([]model.UserFilePath{}, nil).Once()

		resp, _ := app.Test(asUser(httptest.NewRequest(http.MethodGet, "/files/paths", nil), user))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		fileSvc.AssertExpectations(t)
	})
}
