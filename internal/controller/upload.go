package controller

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/util"
)

var allowedImageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".gif":  {},
}

// (POST /api/upload). Stores the image through the blob-store collaborator
// under a server-generated name and returns its public URL.
func (c *Controller) Upload(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		return util.NewResponseError(http.StatusBadRequest, "image file is required")
	}

	if fileHeader.Size > c.uploadCfg.MaxBytes {
		return util.NewResponseError(http.StatusRequestEntityTooLarge, "file too large")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, allowed := allowedImageExts[ext]; !allowed {
		return util.NewResponseError(http.StatusBadRequest, "unsupported file type")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return util.NewResponseError(http.StatusBadRequest, "could not read uploaded file")
	}
	defer src.Close()

	url, err := c.blobStore.Save(ctx.Request().Context(), uuid.NewString()+ext, src)
	if err != nil {
		return err
	}

	return ok(ctx, models.UploadResponse{URL: url})
}
