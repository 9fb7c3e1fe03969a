package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docstore/internal/http/middleware"
	"docstore/internal/model"
	"docstore/internal/service"
)

// fileView is a FileRecord plus the URL it is served under.
type fileView struct {
	model.FileRecord
	URL string `json:"url"`
}

type fileList struct {
	Items []fileView `json:"data"`
	Total int        `json:"total"`
}

// ListFiles godoc
// @Summary List files uploaded by the caller, newest first
// @Tags files
// @Produce json
// @Success 200 {object} fileList
// @Router /files [get]
func ListFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		recs, err := svc.ListByUploader(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		items := make([]fileView, 0, len(recs))
		for _, r := range recs {
			items = append(items, fileView{FileRecord: r, URL: svc.PublicURL(r)})
		}
		return c.JSON(fileList{Items: items, Total: len(items)})
	}
}

type pathList struct {
	Items []model.UserFilePath `json:"data"`
	Total int                  `json:"total"`
}

// ListFilePaths godoc
// @Summary List the storage paths registered to the caller, newest first
// @Tags files
// @Produce json
// @Success 200 {object} pathList
// @Router /files/paths [get]
func ListFilePaths(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		paths, err := svc.ListPaths(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(pathList{Items: paths, Total: len(paths)})
	}
}

// UploadFile godoc
// @Summary Upload a standalone file
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Content"
// @Success 201 {object} fileView
// @Failure 400 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Router /files [post]
func UploadFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		rec, err := svc.Upload(c.UserContext(), toUpload(fh, f), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fileView{FileRecord: *rec, URL: svc.PublicURL(*rec)})
	}
}

// DownloadFile godoc
// @Summary Download one of the caller's files
// @Tags files
// @Produce octet-stream
// @Param id path string true "File ID"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /files/{id}/download [get]
func DownloadFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if ok, err := ownsFile(c, svc, id); err != nil || !ok {
			return err
		}
		dl, err := svc.Open(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		c.Attachment(dl.FileName)
		c.Set(fiber.HeaderContentType, dl.ContentType)
		// fasthttp closes the stream once the body is written.
		return c.SendStream(dl.Content)
	}
}

// DeleteFile godoc
// @Summary Delete one of the caller's standalone files
// @Tags files
// @Param id path string true "File ID"
// @Success 204
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /files/{id} [delete]
func DeleteFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if ok, err := ownsFile(c, svc, id); err != nil || !ok {
			return err
		}
		deleted, err := svc.Delete(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		if !deleted {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ownsFile reports whether the caller uploaded id. When it returns false the
// response has already been written.
func ownsFile(c *fiber.Ctx, svc service.FileService, id string) (bool, error) {
	rec, err := svc.Get(c.UserContext(), id)
	if err != nil {
		return false, respondError(c, err)
	}
	if rec.UploadedByUserID != middleware.UserID(c) {
		return false, writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
	}
	return true, nil
}
