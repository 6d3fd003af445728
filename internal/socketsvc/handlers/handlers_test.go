package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mazen286/cubecraft/internal/comm"
	"github.com/Mazen286/cubecraft/internal/socketsvc/broker"
	"github.com/Mazen286/cubecraft/internal/socketsvc/ws"
)

func dial(t *testing.T, perSecond float64, burst int) *websocket.Conn {
	t.Helper()
	s := ws.NewWs()
	s.Broker = broker.NewBroker(nil, s.GetConnection, s.GetRoomSockets, s.StoreRoom)
	h := NewHandler(s, perSecond, burst, "0")

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readError(t *testing.T, conn *websocket.Conn) comm.ErrorData {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg comm.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, comm.TypeError, msg.Type)
	var e comm.ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	return e
}

func TestSocketRejectsBadMessages(t *testing.T) {
	conn := dial(t, 100, 100)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, "bad_request", readError(t, conn).Code)

	require.NoError(t, conn.WriteJSON(comm.WSMessage{Type: "offer"}))
	assert.Equal(t, "bad_request", readError(t, conn).Code)
}

func TestSocketReportsUnavailableDraftService(t *testing.T) {
	conn := dial(t, 100, 100)

	msg, err := comm.NewMessage(comm.TypeGetState, comm.SessionRequest{SessionID: "s", PlayerID: "p"}, "")
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
	assert.Equal(t, "unavailable", readError(t, conn).Code)
}

func TestSocketRateLimit(t *testing.T) {
	conn := dial(t, 0.001, 1)

	require.NoError(t, conn.WriteJSON(comm.WSMessage{Type: "offer"}))
	assert.Equal(t, "bad_request", readError(t, conn).Code)

	require.NoError(t, conn.WriteJSON(comm.WSMessage{Type: "offer"}))
	assert.Equal(t, "rate_limited", readError(t, conn).Code)
}
