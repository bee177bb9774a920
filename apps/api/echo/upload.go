package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/upload"
)

type uploadApi struct {
	svc      upload.ServiceInterface
	validate *validator.Validate
	conf     *core.Config
}

func registerUploadAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := uploadApi{
		svc:      deps.UploadSvc,
		validate: deps.Validate,
		conf:     deps.Conf,
	}

	fg := g.Group("/files", jwt)
	fg.POST("", api.create)
	fg.GET("", api.query)
	fg.GET("/:id", api.retrieve)
	fg.DELETE("/:id", api.destroy)
}

func (api *uploadApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})
	}

	data := upload.NewUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	if err := data.Validate(api.validate, api.conf.Storage.MaxUploadSize); err != nil {
		return err
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer src.Close()

	uf, err := api.svc.Upload(ctx.Request().Context(), claims.Subject, data, src)
	if err != nil {
		return errors.Wrap(err, "uploading file")
	}
	return ctx.JSON(http.StatusCreated, uf)
}

func (api *uploadApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	files, err := api.svc.QueryOwn(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying files")
	}
	if files == nil {
		files = []upload.UploadedFile{}
	}
	return ctx.JSON(http.StatusOK, files)
}

// ownFile loads a file and rejects access unless the caller owns it or is staff.
func (api *uploadApi) ownFile(ctx echo.Context) (upload.UploadedFile, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return upload.UploadedFile{}, errors.Wrap(err, "getting context claims")
	}

	uf, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == upload.ErrNotFound {
			return upload.UploadedFile{}, errHttpNotFound
		}
		return upload.UploadedFile{}, errors.Wrap(err, "finding file by ID")
	}
	if uf.UserID != claims.Subject && !claims.IsStaff() {
		return upload.UploadedFile{}, errHttpNotFound
	}
	return uf, nil
}

func (api *uploadApi) retrieve(ctx echo.Context) error {
	uf, err := api.ownFile(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, uf)
}

func (api *uploadApi) destroy(ctx echo.Context) error {
	uf, err := api.ownFile(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), uf.ID); err != nil {
		return errors.Wrap(err, "deleting file")
	}
	return ctx.NoContent(http.StatusNoContent)
}
