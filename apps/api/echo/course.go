package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core/course"
)

type courseApi struct {
	svc      course.ServiceInterface
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, staffMiddleware())

	// chapter endpoints come before "/:id" so the static segment wins
	cg.POST("/chapters/:id/complete", api.completeChapter)
	cg.DELETE("/chapters/:id/complete", api.uncompleteChapter)
	cg.PUT("/chapters/:id", api.updateChapter, staffMiddleware())
	cg.DELETE("/chapters/:id", api.destroyChapter, staffMiddleware())

	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, staffMiddleware())
	cg.DELETE("/:id", api.destroy, staffMiddleware())
	cg.POST("/:id/chapters", api.addChapter, staffMiddleware())
	cg.GET("/:id/progress", api.progress)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// members only see published courses
	courses, err := api.svc.Query(ctx.Request().Context(), !claims.IsStaff())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}
	if !crs.IsPublished && !claims.IsStaff() {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	orig, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Update(rctx, orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addChapter(ctx echo.Context) error {
	var data course.NewChapter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChapter")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	chap, err := api.svc.AddChapter(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding chapter")
	}
	return ctx.JSON(http.StatusCreated, chap)
}

func (api *courseApi) updateChapter(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	orig, err := api.svc.GetChapterByID(rctx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrChapterNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding chapter by ID")
	}

	var data course.UpdateChapter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChapter")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	chap, err := api.svc.UpdateChapter(rctx, orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating chapter")
	}
	return ctx.JSON(http.StatusOK, chap)
}

func (api *courseApi) destroyChapter(ctx echo.Context) error {
	if err := api.svc.DeleteChapter(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == course.ErrChapterNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting chapter")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) completeChapter(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cpl, err := api.svc.CompleteChapter(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrChapterNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "completing chapter")
	}
	return ctx.JSON(http.StatusCreated, cpl)
}

func (api *courseApi) uncompleteChapter(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.UncompleteChapter(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "uncompleting chapter")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) progress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	prog, err := api.svc.GetProgress(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, prog)
}
