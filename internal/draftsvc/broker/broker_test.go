package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mazen286/cubecraft/internal/comm"
	"github.com/Mazen286/cubecraft/internal/draftsvc/bot"
	"github.com/Mazen286/cubecraft/internal/draftsvc/catalog"
	"github.com/Mazen286/cubecraft/internal/draftsvc/engine"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
	"github.com/Mazen286/cubecraft/internal/draftsvc/store"
)

func newTestBroker(t *testing.T) (*Broker, []string) {
	t.Helper()
	pool := make([]string, 12)
	cards := make([]models.Card, len(pool))
	for i := range pool {
		pool[i] = fmt.Sprintf("c%02d", i)
		cards[i] = models.Card{ID: pool[i], Name: pool[i], Score: float64(i * 5)}
	}
	cat := catalog.New(cards)
	eng := engine.New(store.NewMemStore(), bot.New(cat, bot.DefaultTuning(), rand.New(rand.NewSource(1))))
	return NewBroker(nil, eng), pool
}

func send(t *testing.T, b *Broker, msgType string, data any) *comm.WSMessage {
	t.Helper()
	msg, err := comm.NewMessage(msgType, data, "sock-1")
	require.NoError(t, err)
	reply := b.Dispatch(context.Background(), msg)
	require.NotNil(t, reply)
	assert.Equal(t, "sock-1", reply.SocketId)
	return reply
}

func decodeReply[T any](t *testing.T, reply *comm.WSMessage, wantType string) T {
	t.Helper()
	require.Equal(t, wantType, reply.Type, string(reply.Data))
	var v T
	require.NoError(t, json.Unmarshal(reply.Data, &v))
	return v
}

func TestDispatchDraftCommands(t *testing.T) {
	b, pool := newTestBroker(t)

	created := decodeReply[comm.Joined](t, send(t, b, comm.TypeCreateSession, comm.CreateRequest{
		Mode:           "pack",
		HostName:       "alice",
		PlayerCount:    2,
		CardsPerPlayer: 4,
		UnitSize:       3,
		BurnPerUnit:    1,
		TimerSeconds:   60,
		Pool:           pool,
	}), "create-session-response")
	assert.Len(t, created.RoomCode, 6)
	assert.Equal(t, 0, created.Seat)

	joined := decodeReply[comm.Joined](t, send(t, b, comm.TypeJoinSession, comm.JoinRequest{
		RoomCode: created.RoomCode,
		Name:     "bob",
	}), "join-session-response")
	assert.Equal(t, created.SessionID, joined.SessionID)
	assert.Equal(t, 1, joined.Seat)

	host := comm.SessionRequest{SessionID: created.SessionID, PlayerID: created.PlayerID}
	res := decodeReply[comm.Res](t, send(t, b, comm.TypeStartDraft, host), "start-draft-response")
	assert.True(t, res.Status)

	view := decodeReply[models.Snapshot](t, send(t, b, comm.TypeGetState, host), "get-state-response")
	assert.Nil(t, view.Session.Units)
	require.Len(t, view.Players, 2)
	me := view.Player(created.PlayerID)
	require.Len(t, me.Hand, 3)
	assert.Nil(t, view.Player(joined.PlayerID).Hand)

	pick := comm.CardRequest{SessionRequest: host, CardID: me.Hand[0]}
	decodeReply[comm.Res](t, send(t, b, comm.TypeMakePick, pick), "make-pick-response")

	paused := decodeReply[comm.PauseState](t, send(t, b, comm.TypeTogglePause, host), "toggle-pause-response")
	assert.True(t, paused.Paused)
}

func TestDispatchErrors(t *testing.T) {
	b, pool := newTestBroker(t)
	created := decodeReply[comm.Joined](t, send(t, b, comm.TypeCreateSession, comm.CreateRequest{
		Mode: "pack", PlayerCount: 2, CardsPerPlayer: 4, UnitSize: 3, BurnPerUnit: 1, Pool: pool,
	}), "create-session-response")

	tests := []struct {
		name    string
		msgType string
		data    any
		code    string
	}{
		{"unknown type", "shuffle-up", comm.SessionRequest{}, "bad_request"},
		{"malformed data", comm.TypePlaceBid, "not an object", "bad_request"},
		{"missing session", comm.TypeGetState, comm.SessionRequest{SessionID: "nope"}, "not_found"},
		{"stranger reads state", comm.TypeGetState, comm.SessionRequest{SessionID: created.SessionID, PlayerID: "ghost"}, "not_in_session"},
		{"start too early", comm.TypeStartDraft, comm.SessionRequest{SessionID: created.SessionID, PlayerID: created.PlayerID}, "roster_incomplete"},
		{"bid in pack mode", comm.TypePlaceBid, comm.BidRequest{SessionRequest: comm.SessionRequest{SessionID: created.SessionID, PlayerID: created.PlayerID}, Amount: 1}, "not_in_progress"},
		{"bad config", comm.TypeCreateSession, comm.CreateRequest{Mode: "pack", PlayerCount: 1, CardsPerPlayer: 4, UnitSize: 3}, "invalid_config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeReply[comm.ErrorData](t, send(t, b, tt.msgType, tt.data), comm.TypeError)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.msgType, e.Request)
		})
	}
}

func TestDispatchWithoutData(t *testing.T) {
	b, _ := newTestBroker(t)
	reply := b.Dispatch(context.Background(), &comm.WSMessage{Type: comm.TypePassBid, SocketId: "s"})
	e := decodeReply[comm.ErrorData](t, reply, comm.TypeError)
	assert.Equal(t, "bad_request", e.Code)
}

func TestSessionChangedWithoutConnection(t *testing.T) {
	b, _ := newTestBroker(t)
	assert.NotPanics(t, func() {
		b.SessionChanged(context.Background(), "s1", engine.ChangePicked)
	})
}
