package echoapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/diagnosis"
)

const sweepSecretHeader = "X-Sweep-Secret"

type diagnosisApi struct {
	svc      diagnosis.ServiceInterface
	validate *validator.Validate
	conf     *core.Config
}

func registerDiagnosisAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := diagnosisApi{
		svc:      deps.DiagnosisSvc,
		validate: deps.Validate,
		conf:     deps.Conf,
	}

	dg := g.Group("/diagnosis")

	// the sweep is called by the scheduler, not by users; it is guarded by a
	// shared secret instead of a JWT
	dg.GET("/sweep", api.sweep)

	ag := dg.Group("", jwt)
	ag.POST("/requests", api.submit)
	ag.GET("/requests", api.queryRequests)
	ag.POST("/check", api.check)
	ag.GET("/results", api.queryResults)
	ag.GET("/results/:id", api.retrieveResult)
}

func (api *diagnosisApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data diagnosis.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.Submit(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		if errors.Cause(err) == diagnosis.ErrAlreadyRegistered {
			return core.NewValidationError(nil, core.FieldError{Field: "url", Error: diagnosis.ErrAlreadyRegistered.Error()})
		}
		return errors.Wrap(err, "submitting diagnosis request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *diagnosisApi) queryRequests(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	reqs, err := api.svc.QueryOwnRequests(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying diagnosis requests")
	}
	if reqs == nil {
		reqs = []diagnosis.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *diagnosisApi) check(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data diagnosis.CheckRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ManualCheck(ctx.Request().Context(), claims.Subject, data.DiagnosisURLID); err != nil {
		if errors.Cause(err) == diagnosis.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "checking diagnosis request")
	}

	// the check itself succeeded; the caller re-fetches the request to see
	// where the status machine landed
	req, err := api.svc.QueryOwnRequests(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying diagnosis requests")
	}
	for _, r := range req {
		if r.ID == data.DiagnosisURLID {
			return ctx.JSON(http.StatusOK, r)
		}
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "check completed"})
}

func (api *diagnosisApi) sweep(ctx echo.Context) error {
	secret := api.conf.Diagnosis.SweepSecret
	if secret == "" {
		// sweeping is disabled when no secret is configured
		return errHttpNotFound
	}

	given := ctx.Request().Header.Get(sweepSecretHeader)
	if given == "" {
		given = strings.TrimPrefix(ctx.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	}
	if given == "" {
		given = ctx.QueryParam("secret")
	}
	if subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
		return errHttpForbidden
	}

	res, err := api.svc.Sweep(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "sweeping diagnosis requests")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *diagnosisApi) queryResults(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ds, err := api.svc.QueryOwnDiagnoses(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying diagnoses")
	}
	if ds == nil {
		ds = []diagnosis.Diagnosis{}
	}
	return ctx.JSON(http.StatusOK, ds)
}

func (api *diagnosisApi) retrieveResult(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	d, err := api.svc.GetDiagnosisByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == diagnosis.ErrDiagnosisNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding diagnosis by ID")
	}
	if d.UserID != claims.Subject && !claims.IsStaff() {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, d)
}
