package handlers

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/realtime"
	"github.com/slicehouse/pizzeria/internal/service"
)

const (
	wsUserKey  = "ws_user_id"
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// NotificationsHandler serves the notification inbox and the realtime stream.
type NotificationsHandler struct {
	notifications *service.NotificationService
	registry      realtime.ConnectionRegistry
	logger        *zap.Logger
}

func NewNotificationsHandler(notifications *service.NotificationService, registry realtime.ConnectionRegistry, logger *zap.Logger) *NotificationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationsHandler{notifications: notifications, registry: registry, logger: logger}
}

// List GET /api/notifications?limit=50.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	notes, err := h.notifications.List(c.UserContext(), principal.User.ID, queryInt(c, "limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(data(notes))
}

// MarkRead PATCH /api/notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	note, err := h.notifications.MarkRead(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(data(note))
}

// MarkAllRead POST /api/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	updated, err := h.notifications.MarkAllRead(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(data(fiber.Map{"updated": updated}))
}

// Upgrade rejects plain HTTP requests and hands the authenticated user to the socket.
func (h *NotificationsHandler) Upgrade(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(wsUserKey, principal.User.ID)
	return c.Next()
}

// Stream GET /api/ws/notifications. The connection stays registered until the client
// goes away or stops answering pings.
func (h *NotificationsHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(wsUserKey).(string)
		if userID == "" {
			_ = conn.Close()
			return
		}

		h.registry.Register(userID, conn)
		defer h.registry.Unregister(userID, conn)
		h.logger.Debug("notification stream opened", zap.String("user_id", userID))

		done := make(chan struct{})
		defer close(done)
		go h.keepAlive(conn, done)

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.logger.Debug("notification stream closed", zap.String("user_id", userID), zap.Error(err))
				return
			}
		}
	})
}

func (h *NotificationsHandler) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
