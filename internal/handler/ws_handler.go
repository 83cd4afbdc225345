package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-io-live/dm-service/internal/audit"
	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/internal/hub"
	"github.com/weiawesome/wes-io-live/dm-service/internal/service"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/log"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub       *hub.Hub
	lifecycle *service.Lifecycle
	router    *service.Router
	auth      *middleware.AuthMiddleware
	logger    zerolog.Logger
}

func NewWSHandler(
	h *hub.Hub,
	lifecycle *service.Lifecycle,
	router *service.Router,
	auth *middleware.AuthMiddleware,
	logger zerolog.Logger,
) *WSHandler {
	return &WSHandler{
		hub:       h,
		lifecycle: lifecycle,
		router:    router,
		auth:      auth,
		logger:    logger,
	}
}

// HandleWebSocket upgrades the request. A missing or invalid token yields an
// anonymous connection that only receives presence updates.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	claimed := h.auth.Identify(c.Request)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn, h.hub.Config())
	h.hub.Register(client)

	ctx := log.WithConn(h.logger, client.ID())

	go client.WritePump()

	if err := h.lifecycle.Connect(ctx, client, claimed); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("connection left anonymous")
	}

	go client.ReadPump(
		func(cl *hub.Client, message []byte) { h.handleMessage(ctx, cl, message) },
		func(cl *hub.Client) { h.lifecycle.Disconnect(ctx, cl) },
	)
}

func (h *WSHandler) handleMessage(ctx context.Context, client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	switch base.Type {
	case domain.MsgTypeSendPrivateMessage:
		var msg domain.SendPrivateMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid send_private_message"))
			return
		}
		h.handleSend(ctx, client, &msg)

	case domain.MsgTypePing:
		client.SendMessage(map[string]string{"type": domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
	}
}

func (h *WSHandler) handleSend(ctx context.Context, client *hub.Client, msg *domain.SendPrivateMessage) {
	sender := client.Username()
	if sender == "" {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeUnauthorized, "Not authenticated"))
		return
	}

	m, err := h.router.Route(ctx, sender, msg.Recipient, msg.Msg)
	if err != nil {
		code, text := sendErrorCode(err)
		audit.LogWithDetail(ctx, audit.ActionSendFailed, sender, msg.Recipient, err.Error())
		client.SendMessage(domain.NewErrorMessage(code, text))
		return
	}

	audit.LogWithDetail(ctx, audit.ActionSendMessage, sender, m.Recipient, "message sent")
}

func sendErrorCode(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidBody):
		return domain.ErrCodeBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnknownUser):
		return domain.ErrCodeUnknownUser, "Unknown user"
	case errors.Is(err, domain.ErrPersistence):
		return domain.ErrCodePersistenceFailed, "Message could not be saved"
	default:
		return domain.ErrCodeInternalError, "Failed to send message"
	}
}
