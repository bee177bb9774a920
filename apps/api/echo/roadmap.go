package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core/roadmap"
)

type roadmapApi struct {
	svc      roadmap.ServiceInterface
	validate *validator.Validate
}

func registerRoadmapAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := roadmapApi{
		svc:      deps.RoadmapSvc,
		validate: deps.Validate,
	}

	rg := g.Group("/roadmap", jwt)
	rg.GET("", api.retrieveOwn)
	rg.PUT("", api.updateOwn)
	rg.POST("/milestones", api.addMilestone)
	rg.PUT("/milestones/:id", api.updateMilestone)
	rg.DELETE("/milestones/:id", api.destroyMilestone)

	// staff view of a member's roadmap
	g.GET("/users/:id/roadmap", api.retrieveForUser, jwt, staffMiddleware())
}

func (api *roadmapApi) retrieveOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rm, err := api.svc.GetOrCreate(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting roadmap")
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roadmapApi) retrieveForUser(ctx echo.Context) error {
	rm, err := api.svc.GetOrCreate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting roadmap")
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roadmapApi) updateOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	rctx := ctx.Request().Context()

	orig, err := api.svc.GetOrCreate(rctx, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting roadmap")
	}

	var data roadmap.UpdateRoadmap
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRoadmap")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	rm, err := api.svc.Update(rctx, claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "updating roadmap")
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roadmapApi) addMilestone(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data roadmap.NewMilestone
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMilestone")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ms, err := api.svc.AddMilestone(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "adding milestone")
	}
	return ctx.JSON(http.StatusCreated, ms)
}

// ownMilestone loads a milestone and rejects access unless it belongs to the
// caller's roadmap or the caller is staff.
func (api *roadmapApi) ownMilestone(ctx echo.Context) (roadmap.Milestone, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return roadmap.Milestone{}, errors.Wrap(err, "getting context claims")
	}
	rctx := ctx.Request().Context()

	ms, err := api.svc.GetMilestoneByID(rctx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == roadmap.ErrMilestoneNotFound {
			return roadmap.Milestone{}, errHttpNotFound
		}
		return roadmap.Milestone{}, errors.Wrap(err, "finding milestone by ID")
	}

	if !claims.IsStaff() {
		rm, err := api.svc.GetOrCreate(rctx, claims.Subject)
		if err != nil {
			return roadmap.Milestone{}, errors.Wrap(err, "getting roadmap")
		}
		if ms.RoadmapID != rm.ID {
			return roadmap.Milestone{}, errHttpNotFound
		}
	}
	return ms, nil
}

func (api *roadmapApi) updateMilestone(ctx echo.Context) error {
	orig, err := api.ownMilestone(ctx)
	if err != nil {
		return err
	}

	var data roadmap.UpdateMilestone
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMilestone")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	ms, err := api.svc.UpdateMilestone(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating milestone")
	}
	return ctx.JSON(http.StatusOK, ms)
}

func (api *roadmapApi) destroyMilestone(ctx echo.Context) error {
	ms, err := api.ownMilestone(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteMilestone(ctx.Request().Context(), ms.ID); err != nil {
		return errors.Wrap(err, "deleting milestone")
	}
	return ctx.NoContent(http.StatusNoContent)
}
