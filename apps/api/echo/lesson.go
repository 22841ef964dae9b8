package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eslclass/core/lesson"
)

type lessonApi struct {
	svc lesson.Service
}

func registerLessonAPI(g *echo.Group, auth echo.MiddlewareFunc, svc lesson.Service) {
	api := lessonApi{svc: svc}

	lg := g.Group("/lessons", auth)
	lg.POST("", api.create)
	lg.GET("", api.query)
	lg.GET("/:id", api.retrieve)
	lg.PUT("/:id", api.update)
	lg.DELETE("/:id", api.destroy)
	lg.POST("/:id/use", api.use)

	sg := g.Group("/students/:id/progress", auth)
	sg.POST("", api.complete)
	sg.GET("", api.progress)
}

func (api *lessonApi) create(ctx echo.Context) error {
	var data lesson.NewPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlan")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), mustContextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson plan")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *lessonApi) query(ctx echo.Context) error {
	var filter lesson.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []lesson.Plan{})
	}
	filter.Clean()

	plans, err := api.svc.List(ctx.Request().Context(), mustContextUser(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying lesson plans")
	}
	if plans == nil {
		plans = []lesson.Plan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving lesson plan")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *lessonApi) update(ctx echo.Context) error {
	var data lesson.UpdatePlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePlan")
	}

	p, err := api.svc.Update(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson plan")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lessonApi) use(ctx echo.Context) error {
	p, err := api.svc.Use(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking lesson plan used")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *lessonApi) complete(ctx echo.Context) error {
	var data lesson.NewCompletion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCompletion")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	c, err := api.svc.Complete(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "completing lesson")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *lessonApi) progress(ctx echo.Context) error {
	p, err := api.svc.Progress(ctx.Request().Context(), mustContextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting lesson progress")
	}
	return ctx.JSON(http.StatusOK, p)
}
