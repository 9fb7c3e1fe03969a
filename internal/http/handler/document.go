package handler

import (
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docstore/internal/http/middleware"
	"docstore/internal/model"
	"docstore/internal/service"
	"docstore/internal/storage"
)

// documentList is the response body of GET /documents.
type documentList struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// ListDocuments godoc
// @Summary List the caller's documents
// @Tags documents
// @Produce json
// @Success 200 {object} documentList
// @Failure 401 {object} errorPayload
// @Router /documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.ListByOwner(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(documentList{Items: docs, Total: len(docs)})
	}
}

// UploadDocument godoc
// @Summary Create a document from an uploaded file (version 1)
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Document name"
// @Param access_level formData string false "private, shared or public"
// @Param file formData file true "Content"
// @Success 201 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Router /documents [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		access, err := model.ParseAccessLevel(c.FormValue("access_level"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ACCESS_LEVEL", "invalid access level")
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.Create(c.UserContext(), c.FormValue("name"), middleware.UserID(c), access, toUpload(fh, f))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument godoc
// @Summary Get one of the caller's documents with its versions
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} model.Document
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		// Another owner's document is reported as absent.
		if doc.OwnerID != middleware.UserID(c) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
		}
		return c.JSON(doc)
	}
}

// DownloadDocument godoc
// @Summary Download the latest version of one of the caller's documents
// @Tags documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Header 200 {integer} X-Document-Version "Version number served"
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/download [get]
func DownloadDocument(docSvc service.DocumentService, fileSvc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		if doc.OwnerID != middleware.UserID(c) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
		}
		latest := doc.LatestVersion()
		if latest == nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document has no versions")
		}
		dl, err := fileSvc.Open(c.UserContext(), latest.FileRecordID)
		if err != nil {
			return respondError(c, err)
		}
		c.Attachment(dl.FileName)
		c.Set(fiber.HeaderContentType, dl.ContentType)
		c.Set("X-Document-Version", strconv.Itoa(latest.VersionNumber))
		return c.SendStream(dl.Content)
	}
}

// AddVersion godoc
// @Summary Upload a new version of a document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Document ID"
// @Param file formData file true "Content"
// @Success 201 {object} model.DocumentVersion
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /documents/{id}/versions [post]
func AddVersion(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		if ok, err := ownsDocument(c, svc, id); err != nil || !ok {
			return err
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		v, err := svc.AddVersion(c.UserContext(), id, toUpload(fh, f))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(v)
	}
}

// DeleteDocument godoc
// @Summary Delete a document with all of its versions
// @Tags documents
// @Param id path string true "Document ID"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if ok, err := ownsDocument(c, svc, id); err != nil || !ok {
			return err
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ownsDocument checks the caller's listing for id. When it returns false the
// response has already been written.
func ownsDocument(c *fiber.Ctx, svc service.DocumentService, id string) (bool, error) {
	docs, err := svc.ListByOwner(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return false, respondError(c, err)
	}
	for _, d := range docs {
		if d.ID == id {
			return true, nil
		}
	}
	return false, writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
}

func toUpload(fh *multipart.FileHeader, f multipart.File) storage.Upload {
	return storage.Upload{Filename: fh.Filename, Size: fh.Size, Content: f}
}
