package controller

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/service"
	"github.com/ostrovsky/estate-cms/internal/storage"
	"github.com/ostrovsky/estate-cms/internal/util"
)

type Controller struct {
	zapLogger      *zap.SugaredLogger
	authService    *service.AuthService
	contentService *service.ContentService
	blobStore      storage.BlobStore
	cookies        *util.CookieConfig
	uploadCfg      *util.UploadConfig
}

func NewController(
	logger *zap.SugaredLogger,
	authService *service.AuthService,
	contentService *service.ContentService,
	blobStore storage.BlobStore,
	cookies *util.CookieConfig,
	uploadCfg *util.UploadConfig,
) *Controller {
	return &Controller{
		zapLogger:      logger,
		authService:    authService,
		contentService: contentService,
		blobStore:      blobStore,
		cookies:        cookies,
		uploadCfg:      uploadCfg,
	}
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

func ok(ctx echo.Context, data any) error {
	return ctx.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: data})
}

func idParam(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, util.NewResponseError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// identityFromContext reports whether the access guard resolved an identity
// for this request.
func identityFromContext(ctx echo.Context) (models.Identity, bool) {
	identity, okCast := ctx.Get(models.MwIdentityKey).(models.Identity)
	return identity, okCast
}

func requestMetadata(ctx echo.Context) models.RequestMetadata {
	return models.RequestMetadata{
		IPAddress: ctx.RealIP(),
		UserAgent: ctx.Request().UserAgent(),
	}
}
