package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core/session"
	"github.com/buddybow/backend/core/user"
)

type sessionApi struct {
	svc      session.ServiceInterface
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := sessionApi{
		svc:      deps.SessionSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/sessions", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create, staffMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, staffMiddleware())
	sg.DELETE("/:id", api.destroy, staffMiddleware())
	sg.POST("/:id/signup", api.signUp)
	sg.DELETE("/:id/signup", api.cancelSignup)
	sg.GET("/:id/participants", api.participants, staffMiddleware())
}

func (api *sessionApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data session.NewStudySession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudySession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionApi) query(ctx echo.Context) error {
	sessions, err := api.svc.QueryUpcoming(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []session.StudySession{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding session by ID")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) update(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	orig, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding session by ID")
	}

	var data session.UpdateStudySession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudySession")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Update(rctx, orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) signUp(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	sess, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding session by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	su, err := api.svc.SignUp(rctx, sess, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	return ctx.JSON(http.StatusCreated, su)
}

func (api *sessionApi) cancelSignup(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.CancelSignup(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		if errors.Cause(err) == session.ErrNotSigned {
			return errHttpNotFound
		}
		return errors.Wrap(err, "canceling signup")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) participants(ctx echo.Context) error {
	signups, err := api.svc.Participants(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying participants")
	}
	if signups == nil {
		signups = []session.Signup{}
	}
	return ctx.JSON(http.StatusOK, signups)
}
