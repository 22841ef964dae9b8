package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eslclass/core/pronunciation"
)

type pronunciationApi struct {
	svc pronunciation.Service
}

func registerPronunciationAPI(g *echo.Group, auth echo.MiddlewareFunc, svc pronunciation.Service) {
	api := pronunciationApi{svc: svc}

	pg := g.Group("/pronunciation", auth)
	pg.POST("/score", api.score)
	pg.POST("/attempts", api.record)
	pg.GET("/attempts", api.queryAttempts)
	pg.GET("/progress", api.progress)
}

func (api *pronunciationApi) score(ctx echo.Context) error {
	var data pronunciation.ScoreRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.Score(data))
}

func (api *pronunciationApi) record(ctx echo.Context) error {
	var data pronunciation.ScoreRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	a, err := api.svc.Record(ctx.Request().Context(), mustContextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording practice attempt")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *pronunciationApi) queryAttempts(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit")) // invalid -> default

	attempts, err := api.svc.ListAttempts(ctx.Request().Context(), mustContextUser(ctx), limit)
	if err != nil {
		return errors.Wrap(err, "querying practice attempts")
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *pronunciationApi) progress(ctx echo.Context) error {
	p, err := api.svc.Progress(ctx.Request().Context(), mustContextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "computing practice progress")
	}
	return ctx.JSON(http.StatusOK, p)
}
