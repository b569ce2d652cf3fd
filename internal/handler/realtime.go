package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-order/internal/middleware"
	"github.com/iliyamo/table-order/internal/realtime"
)

// RealtimeHandler upgrades staff dashboards to websockets subscribed to
// their store's order events.
type RealtimeHandler struct {
	Hub        *realtime.Hub
	Upgrader   websocket.Upgrader
	SendBuffer int
	Log        logrus.FieldLogger
}

// NewRealtimeHandler accepts any origin: the connection is authorized by
// the admin token, not by cookies.
func NewRealtimeHandler(hub *realtime.Hub, sendBuffer int, log logrus.FieldLogger) *RealtimeHandler {
	return &RealtimeHandler{
		Hub: hub,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		SendBuffer: sendBuffer,
		Log:        log.WithField("component", "ws"),
	}
}

// AdminSocket serves GET /ws/admin/:store_id.  AdminAuth and RequireStore
// run first, so the store here is the token's store.
func (h *RealtimeHandler) AdminSocket(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	conn, err := h.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered the request
		h.Log.WithError(err).Debug("websocket upgrade")
		return nil
	}
	adminID, _ := middleware.AdminID(c)
	log := h.Log.WithFields(logrus.Fields{"store_id": store, "admin_id": adminID})
	client := realtime.NewClient(conn, h.SendBuffer, log)
	log.WithField("subscriber", client.ID()).Info("dashboard connected")
	if err := client.Serve(h.Hub, store); err != nil {
		log.WithError(err).Warn("dashboard rejected")
		return nil
	}
	log.WithField("subscriber", client.ID()).Info("dashboard disconnected")
	return nil
}
