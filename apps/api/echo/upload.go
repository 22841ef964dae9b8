package echoapi

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/eslclass/core"
)

const maxUploadSize = 10 << 20 // 10 MiB

var (
	errNoFile       = echo.NewHTTPError(http.StatusBadRequest, "file is required")
	errFileTooLarge = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds the 10 MiB limit")
)

type uploadApi struct {
	storage core.FileStorage
}

func registerUploadAPI(g *echo.Group, auth echo.MiddlewareFunc, storage core.FileStorage) {
	api := uploadApi{storage: storage}

	// leave room for the multipart envelope
	g.POST("/uploads", api.upload, auth, middleware.BodyLimit("11M"))
}

type UploadResponse struct {
	URL string `json:"url"`
}

func (api *uploadApi) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile {
			return errNoFile
		}
		return errors.Wrap(err, "reading multipart file")
	}
	if fh.Size > maxUploadSize {
		return errFileTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening multipart file")
	}
	defer src.Close()

	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}

	key := uploadKey(mustContextUser(ctx).ID, fh.Filename)
	url, err := api.storage.Upload(ctx.Request().Context(), key, src, contentType)
	if err != nil {
		return errors.Wrap(err, "uploading file")
	}
	return ctx.JSON(http.StatusCreated, UploadResponse{URL: url})
}

// uploadKey returns "<userID>/<uuid><ext>"; the client file name is never used as a path.
func uploadKey(userID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return path.Join(userID, uuid.New().String()+ext)
}
