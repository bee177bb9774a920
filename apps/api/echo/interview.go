package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core/interview"
)

type interviewApi struct {
	svc      interview.ServiceInterface
	validate *validator.Validate
}

func registerInterviewAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := interviewApi{
		svc:      deps.InterviewSvc,
		validate: deps.Validate,
	}

	ig := g.Group("/interviews", jwt)
	ig.POST("", api.request)
	ig.GET("", api.query)
	ig.GET("/:id", api.retrieve)
	ig.PUT("/:id", api.update, staffMiddleware())
}

func (api *interviewApi) request(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data interview.NewInterview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInterview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	itv, err := api.svc.Request(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "requesting interview")
	}
	return ctx.JSON(http.StatusCreated, itv)
}

func (api *interviewApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	rctx := ctx.Request().Context()

	var itvs []interview.Interview
	if claims.IsStaff() {
		itvs, err = api.svc.QueryAll(rctx)
	} else {
		itvs, err = api.svc.QueryOwn(rctx, claims.Subject)
	}
	if err != nil {
		return errors.Wrap(err, "querying interviews")
	}
	if itvs == nil {
		itvs = []interview.Interview{}
	}
	return ctx.JSON(http.StatusOK, itvs)
}

func (api *interviewApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	itv, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == interview.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding interview by ID")
	}
	if itv.UserID != claims.Subject && !claims.IsStaff() {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, itv)
}

func (api *interviewApi) update(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	orig, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == interview.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding interview by ID")
	}

	var data interview.UpdateInterview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateInterview")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	itv, err := api.svc.Update(rctx, orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating interview")
	}
	return ctx.JSON(http.StatusOK, itv)
}
