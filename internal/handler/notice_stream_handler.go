package handler

import (
	"market-insight-be/internal/pkg/logger"
	"market-insight-be/internal/pkg/serverutils"
	internalWS "market-insight-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// NoticeStreamHandler upgrades authenticated requests to a websocket that
// receives the caller's notices as they are recorded.
type NoticeStreamHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewNoticeStreamHandler(hub *internalWS.Hub, log logger.ILogger) *NoticeStreamHandler {
	return &NoticeStreamHandler{hub: hub, logger: log}
}

func (h *NoticeStreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/notices", h.ServeWs)
}

func (h *NoticeStreamHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on the handshake, so the query wins.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
	}

	owner, err := serverutils.ParseOwner(tokenStr)
	if err != nil {
		h.logger.Warn("NOTICE_STREAM", "Invalid token in websocket handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("NOTICE_STREAM", "Starting websocket session", map[string]interface{}{"owner": owner})
		internalWS.ServeWs(h.hub, conn, owner)
		h.logger.Info("NOTICE_STREAM", "Websocket session ended", map[string]interface{}{"owner": owner})
	})(c)
}
