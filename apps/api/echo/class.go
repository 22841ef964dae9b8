package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eslclass/core/class"
)

type classApi struct {
	svc class.Service
}

func registerClassAPI(g *echo.Group, auth echo.MiddlewareFunc, svc class.Service) {
	api := classApi{svc: svc}

	cg := g.Group("/classes", auth)
	cg.POST("", api.create)
	cg.GET("/teacher", api.listForTeacher)
	cg.GET("/student", api.listForStudent)
	cg.POST("/join", api.join)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.POST("/:id/enrollment-code", api.regenerateCode)
	cg.DELETE("/:id/students/:studentId", api.removeStudent)
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), mustContextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) listForTeacher(ctx echo.Context) error {
	classes, err := api.svc.ListForTeacher(ctx.Request().Context(), mustContextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "querying teacher classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) listForStudent(ctx echo.Context) error {
	classes, err := api.svc.ListForStudent(ctx.Request().Context(), mustContextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "querying student classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) join(ctx echo.Context) error {
	var data class.JoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.svc.Join(ctx.Request().Context(), mustContextUser(ctx), data.EnrollmentCode)
	if err != nil {
		return errors.Wrap(err, "joining class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, err := api.svc.Get(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	var data class.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}

	cls, err := api.svc.Update(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) regenerateCode(ctx echo.Context) error {
	cls, err := api.svc.RegenerateCode(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "regenerating enrollment code")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) removeStudent(ctx echo.Context) error {
	err := api.svc.RemoveStudent(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"), ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "removing student")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "student removed successfully"})
}
