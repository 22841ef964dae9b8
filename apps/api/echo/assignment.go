package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eslclass/core/assignment"
)

type assignmentApi struct {
	svc assignment.Service
}

func registerAssignmentAPI(g *echo.Group, auth echo.MiddlewareFunc, svc assignment.Service) {
	api := assignmentApi{svc: svc}

	// class scoped
	cg := g.Group("/classes/:id/assignments", auth)
	cg.POST("", api.create)
	cg.GET("", api.listForClass)

	ag := g.Group("/assignments/:id", auth)
	ag.GET("", api.retrieve)
	ag.PUT("", api.update)
	ag.DELETE("", api.destroy)
	ag.POST("/submissions", api.submit)
	ag.GET("/submissions", api.listSubmissions)
	ag.PUT("/submissions/:submissionId/grade", api.grade)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	asg, err := api.svc.Create(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *assignmentApi) listForClass(ctx echo.Context) error {
	asgs, err := api.svc.ListForClass(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying class assignments")
	}
	if asgs == nil {
		asgs = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	asg, err := api.svc.Get(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	var data assignment.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}

	asg, err := api.svc.Update(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	var data assignment.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) listSubmissions(ctx echo.Context) error {
	subs, err := api.svc.ListSubmissions(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	var data assignment.Grade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Grade")
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"), ctx.Param("submissionId"), data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
