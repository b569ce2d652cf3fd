package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-order/internal/logging"
	"github.com/iliyamo/table-order/internal/model"
)

func startWS(t *testing.T, hub *Hub, storeID uint64) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = NewClient(conn, 4, logging.Discard()).Serve(hub, storeID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestClient_HeartbeatAndDelivery(t *testing.T) {
	hub := NewHub(logging.Discard())
	conn := startWS(t, hub, 3)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	pong := readEvent(t, conn)
	assert.Equal(t, TypePong, pong.Type)
	assert.Equal(t, "Connection alive", pong.Message)
	assert.Equal(t, 1, hub.Count(3))

	hub.NotifyNewOrder(3, model.Order{ID: 77, OrderNumber: "#004"})
	ev := readEvent(t, conn)
	assert.Equal(t, TypeNewOrder, ev.Type)
	assert.Equal(t, "#004", ev.Data.(map[string]interface{})["order_number"])
}

func TestClient_DisconnectUnsubscribes(t *testing.T) {
	hub := NewHub(logging.Discard())
	conn := startWS(t, hub, 8)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
	readEvent(t, conn)
	require.Equal(t, 1, hub.Count(8))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool { return hub.Groups() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestClient_HubCloseClosesSocket(t *testing.T) {
	hub := NewHub(logging.Discard())
	conn := startWS(t, hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
	readEvent(t, conn)

	hub.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestClient_DeliverNeverBlocks(t *testing.T) {
	c := &Client{id: "x", send: make(chan []byte, 1), done: make(chan struct{}), log: logging.Discard()}
	require.NoError(t, c.Deliver([]byte("1")))
	assert.ErrorIs(t, c.Deliver([]byte("2")), ErrSendBufferFull)
	c.Close()
	c.Close()
	assert.ErrorIs(t, c.Deliver([]byte("3")), ErrClientClosed)
}
