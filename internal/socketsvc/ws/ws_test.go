package ws

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mazen286/cubecraft/internal/comm"
	"github.com/Mazen286/cubecraft/internal/socketsvc/broker"
)

func newWs() *Ws {
	s := NewWs()
	s.Broker = broker.NewBroker(nil, s.GetConnection, s.GetRoomSockets, s.StoreRoom)
	return s
}

func TestSocketMessageRejectsUnknownTypes(t *testing.T) {
	s := newWs()
	err := s.SocketMessage("s1", &comm.WSMessage{Type: "offer"})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestSocketMessageBindsSession(t *testing.T) {
	s := newWs()
	data, err := json.Marshal(comm.CardRequest{
		SessionRequest: comm.SessionRequest{SessionID: "sess-1", PlayerID: "p1"},
		CardID:         "c1",
	})
	require.NoError(t, err)

	msg := &comm.WSMessage{Type: comm.TypeMakePick, Data: data}
	// no NATS connection in tests, so the publish fails after binding
	assert.Error(t, s.SocketMessage("s1", msg))
	assert.Equal(t, "s1", msg.SocketId)

	b, ok := s.GetRoom("s1")
	require.True(t, ok)
	assert.Equal(t, Binding{SessionID: "sess-1", PlayerID: "p1"}, b)
}

func TestSocketMessageRejectsAnotherPlayerOnBoundSocket(t *testing.T) {
	s := newWs()
	s.StoreRoom("s1", "sess-1", "p1")

	data, err := json.Marshal(comm.SessionRequest{SessionID: "sess-1", PlayerID: "p2"})
	require.NoError(t, err)
	msg := &comm.WSMessage{Type: comm.TypePassBid, Data: data}

	assert.ErrorIs(t, s.SocketMessage("s1", msg), ErrForeignPlayer)
	b, ok := s.GetRoom("s1")
	require.True(t, ok)
	assert.Equal(t, "p1", b.PlayerID, "binding unchanged")

	// an unbound socket still binds on its first command
	err = s.SocketMessage("s2", msg)
	assert.NotErrorIs(t, err, ErrForeignPlayer)
	b, ok = s.GetRoom("s2")
	require.True(t, ok)
	assert.Equal(t, "p2", b.PlayerID)
}

func TestRoomSockets(t *testing.T) {
	s := newWs()
	s.StoreRoom("s1", "sess-1", "p1")
	s.StoreRoom("s2", "sess-1", "p2")
	s.StoreRoom("s3", "sess-2", "p3")

	socks, ok := s.GetRoomSockets("sess-1")
	require.True(t, ok)
	sort.Strings(socks)
	assert.Equal(t, []string{"s1", "s2"}, socks)

	_, ok = s.GetRoomSockets("sess-3")
	assert.False(t, ok)

	s.HandleDisconnect("s2")
	_, ok = s.GetRoom("s2")
	assert.False(t, ok)
	socks, _ = s.GetRoomSockets("sess-1")
	assert.Equal(t, []string{"s1"}, socks)
}
