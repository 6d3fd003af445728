package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mazen286/cubecraft/internal/comm"
	"github.com/Mazen286/cubecraft/internal/draftsvc/bot"
	"github.com/Mazen286/cubecraft/internal/draftsvc/catalog"
	"github.com/Mazen286/cubecraft/internal/draftsvc/engine"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
	"github.com/Mazen286/cubecraft/internal/draftsvc/store"
)

type client struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newClient(t *testing.T) (*client, []string) {
	t.Helper()
	pool := make([]string, 12)
	cards := make([]models.Card, len(pool))
	for i := range pool {
		pool[i] = fmt.Sprintf("c%02d", i)
		cards[i] = models.Card{ID: pool[i], Name: pool[i], Score: float64(i)}
	}
	cat := catalog.New(cards)
	eng := engine.New(store.NewMemStore(), bot.New(cat, bot.DefaultTuning(), rand.New(rand.NewSource(1))))

	h := NewHandler(eng, "8080")
	h.InitAuth("test-secret", false)
	r := chi.NewRouter()
	h.SetRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	_, token, err := h.tokenAuth.Encode(map[string]interface{}{"service_id": "test"})
	require.NoError(t, err)
	return &client{t: t, server: srv, token: token}, pool
}

func (c *client) do(method, path, player string, body interface{}) (int, Response) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if player != "" {
		req.Header.Set(PlayerHeader, player)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out Response
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

// data re-decodes a response payload into v.
func data(t *testing.T, rsp Response, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(rsp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	c, pool := newClient(t)

	code, rsp := c.do(http.MethodPost, "/v1/sessions", "", comm.CreateRequest{
		Mode: "pack", HostName: "alice", PlayerCount: 2, CardsPerPlayer: 4, UnitSize: 3, BurnPerUnit: 1, TimerSeconds: 60, Pool: pool,
	})
	require.Equal(t, http.StatusCreated, code, rsp.Error)
	var host comm.Joined
	data(t, rsp, &host)

	code, _ = c.do(http.MethodPost, "/v1/sessions/"+host.SessionID+"/bots", host.PlayerID, nil)
	require.Equal(t, http.StatusCreated, code)

	code, rsp = c.do(http.MethodPost, "/v1/sessions/"+host.SessionID+"/start", host.PlayerID, nil)
	require.Equal(t, http.StatusOK, code, rsp.Error)

	code, rsp = c.do(http.MethodGet, "/v1/sessions/"+host.SessionID, host.PlayerID, nil)
	require.Equal(t, http.StatusOK, code, rsp.Error)
	var snap models.Snapshot
	data(t, rsp, &snap)
	assert.Equal(t, models.StatusInProgress, snap.Session.Status)
	me := snap.Player(host.PlayerID)
	require.Len(t, me.Hand, 3)

	code, rsp = c.do(http.MethodPost, "/v1/sessions/"+host.SessionID+"/picks", host.PlayerID, comm.CardRequest{CardID: me.Hand[0]})
	require.Equal(t, http.StatusOK, code, rsp.Error)

	// the bot picked during start, so the round has moved on
	code, rsp = c.do(http.MethodGet, "/v1/sessions/"+host.SessionID, host.PlayerID, nil)
	require.Equal(t, http.StatusOK, code)
	data(t, rsp, &snap)
	assert.Equal(t, 2, snap.Session.CurrentPick)

	code, rsp = c.do(http.MethodPost, "/v1/sessions/"+host.SessionID+"/pause", host.PlayerID, nil)
	require.Equal(t, http.StatusOK, code)
	var paused comm.PauseState
	data(t, rsp, &paused)
	assert.True(t, paused.Paused)

	code, _ = c.do(http.MethodDelete, "/v1/sessions/"+host.SessionID, host.PlayerID, nil)
	require.Equal(t, http.StatusOK, code)
	code, rsp = c.do(http.MethodGet, "/v1/sessions/"+host.SessionID, host.PlayerID, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", rsp.Message)
}

func TestErrorStatuses(t *testing.T) {
	c, pool := newClient(t)
	_, rsp := c.do(http.MethodPost, "/v1/sessions", "", comm.CreateRequest{
		Mode: "pack", PlayerCount: 2, CardsPerPlayer: 4, UnitSize: 3, BurnPerUnit: 1, Pool: pool,
	})
	var host comm.Joined
	data(t, rsp, &host)
	code, rsp := c.do(http.MethodPost, "/v1/sessions/join", "", comm.JoinRequest{RoomCode: host.RoomCode, Name: "bob"})
	require.Equal(t, http.StatusCreated, code)
	var guest comm.Joined
	data(t, rsp, &guest)

	code, rsp = c.do(http.MethodPost, "/v1/sessions/"+host.SessionID+"/start", guest.PlayerID, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "not_host", rsp.Message)

	code, rsp = c.do(http.MethodPost, "/v1/sessions/"+host.SessionID+"/picks", host.PlayerID, comm.CardRequest{CardID: "c00"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "not_in_progress", rsp.Message)

	code, rsp = c.do(http.MethodPost, "/v1/sessions", "", comm.CreateRequest{Mode: "pack", PlayerCount: 2, CardsPerPlayer: 4, UnitSize: 3, BurnPerUnit: 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "not_enough_cards", rsp.Message)

	code, _ = c.do(http.MethodPost, "/v1/sessions/join", "", "{")
	assert.Equal(t, http.StatusBadRequest, code)

	c.token = ""
	code, _ = c.do(http.MethodGet, "/v1/sessions/"+host.SessionID, host.PlayerID, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.do(http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{engine.ErrSessionNotFound, http.StatusNotFound},
		{engine.ErrNotHost, http.StatusForbidden},
		{engine.ErrBidTooLow, http.StatusBadRequest},
		{engine.ErrNotYourTurn, http.StatusConflict},
		{fmt.Errorf("commit: %w", engine.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, _ := statusOf(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
