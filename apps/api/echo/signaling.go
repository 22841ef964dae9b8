package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/eslclass/apps/signaling"
	"github.com/trezcool/eslclass/core"
)

func registerSignalingAPI(e *echo.Echo, auth echo.MiddlewareFunc, hub *signaling.Hub, logger core.Logger) {
	e.GET("/ws", func(ctx echo.Context) error {
		usr := mustContextUser(ctx)
		if err := hub.ServeWS(ctx.Response(), ctx.Request(), usr.ID); err != nil {
			// the handshake response is already written
			logger.Warn("websocket upgrade failed", err, usr)
		}
		return nil
	}, auth)
}
