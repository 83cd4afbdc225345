package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-io-live/dm-service/pkg/log"
)

// NewEngine builds the gin engine serving the HTTP API and the WebSocket
// endpoint.
func NewEngine(logger zerolog.Logger, httpHandler *Handler, wsHandler *WSHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), log.GinMiddleware(logger))

	r.GET("/ws", wsHandler.HandleWebSocket)
	httpHandler.RegisterRoutes(r)

	return r
}
