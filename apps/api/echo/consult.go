package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core/consult"
)

type consultationApi struct {
	svc      consult.ServiceInterface
	validate *validator.Validate
}

func registerConsultationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := consultationApi{
		svc:      deps.ConsultSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/consultations", jwt)
	cg.POST("", api.open)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id/answer", api.answer, staffMiddleware())
}

func (api *consultationApi) open(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data consult.NewConsultation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConsultation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cons, err := api.svc.Open(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "opening consultation")
	}
	return ctx.JSON(http.StatusCreated, cons)
}

func (api *consultationApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	rctx := ctx.Request().Context()

	var conss []consult.Consultation
	if claims.IsStaff() {
		conss, err = api.svc.QueryAll(rctx)
	} else {
		conss, err = api.svc.QueryOwn(rctx, claims.Subject)
	}
	if err != nil {
		return errors.Wrap(err, "querying consultations")
	}
	if conss == nil {
		conss = []consult.Consultation{}
	}
	return ctx.JSON(http.StatusOK, conss)
}

func (api *consultationApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cons, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == consult.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding consultation by ID")
	}
	if cons.UserID != claims.Subject && !claims.IsStaff() {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, cons)
}

func (api *consultationApi) answer(ctx echo.Context) error {
	var data consult.AnswerConsultation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AnswerConsultation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cons, err := api.svc.Answer(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == consult.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "answering consultation")
	}
	return ctx.JSON(http.StatusOK, cons)
}
