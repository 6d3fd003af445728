package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/Mazen286/cubecraft/internal/comm"
	"github.com/Mazen286/cubecraft/internal/draftsvc/engine"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

// PlayerHeader names the acting player on session routes.
const PlayerHeader = "X-Player-ID"

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	eng       *engine.Engine
	port      string
}

func NewHandler(eng *engine.Engine, port string) *Handler {
	return &Handler{eng: eng, port: port}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "draft service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

func (h *Handler) ok(w http.ResponseWriter, code int, data interface{}) {
	h.CreateResponse(w, Response{Message: "ok", Code: code, Data: data})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, errCode := statusOf(err)
	if code >= http.StatusInternalServerError {
		log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	h.CreateResponse(w, Response{Message: errCode, Code: code, Error: err.Error()})
}

var errBadBody = errors.New("malformed request body")

// statusOf maps engine errors to an HTTP status and error code.
func statusOf(err error) (int, string) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		switch verr.Code {
		case engine.CodeNotFound:
			return http.StatusNotFound, string(verr.Code)
		case engine.CodeNotHost, engine.CodeNotInSession:
			return http.StatusForbidden, string(verr.Code)
		case engine.CodeInvalidConfig, engine.CodeNotEnoughCards, engine.CodeBidTooLow,
			engine.CodeInsufficientPoints, engine.CodeCardNotInHand, engine.CodeCardNotAvailable,
			engine.CodeNotABot:
			return http.StatusBadRequest, string(verr.Code)
		}
		return http.StatusConflict, string(verr.Code)
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, engine.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

func ids(r *http.Request) (string, string) {
	return chi.URLParam(r, "sessionID"), r.Header.Get(PlayerHeader)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req comm.CreateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	s, host, err := h.eng.CreateSession(r.Context(), engine.CreateParams{
		Mode:            models.Mode(req.Mode),
		HostName:        req.HostName,
		PlayerCount:     req.PlayerCount,
		CardsPerPlayer:  req.CardsPerPlayer,
		UnitSize:        req.UnitSize,
		BurnPerUnit:     req.BurnPerUnit,
		TimerSeconds:    req.TimerSeconds,
		BidTimerSeconds: req.BidTimerSeconds,
		BiddingPoints:   req.BiddingPoints,
		Pool:            req.Pool,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, comm.Joined{SessionID: s.ID, PlayerID: host.ID, RoomCode: s.RoomCode, Seat: host.Seat})
}

func (h *Handler) JoinSession(w http.ResponseWriter, r *http.Request) {
	var req comm.JoinRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.eng.JoinSession(r.Context(), req.RoomCode, req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, comm.Joined{SessionID: p.SessionID, PlayerID: p.ID, RoomCode: req.RoomCode, Seat: p.Seat})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID := ids(r)
	snap, err := h.eng.Snapshot(r.Context(), sessionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if snap.Player(playerID) == nil {
		h.fail(w, r, engine.ErrNotInSession)
		return
	}
	h.ok(w, http.StatusOK, snap.ViewFor(playerID))
}

func (h *Handler) BidHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := ids(r)
	events, err := h.eng.BidHistory(r.Context(), sessionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, events)
}

func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID := ids(r)
	h.done(w, r, h.eng.CancelSession(r.Context(), sessionID, playerID))
}

func (h *Handler) AddBot(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID := ids(r)
	b, err := h.eng.AddBot(r.Context(), sessionID, playerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, b)
}

func (h *Handler) RemoveBot(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID := ids(r)
	h.done(w, r, h.eng.RemoveBot(r.Context(), sessionID, playerID, chi.URLParam(r, "botID")))
}

func (h *Handler) StartDraft(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID := ids(r)
	h.done(w, r, h.eng.StartDraft(r.Context(), sessionID, playerID))
}

func (h *Handler) MakePick(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID := ids(r)
	var req comm.CardRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, h.eng.MakePick(r.Context(), sessionID, playerID, req.CardID))
}

func (h *Handler) SelectCard(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID := ids(r)
	var req comm.CardRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, h.eng.SelectCard(r.Context(), sessionID, playerID, req.CardID))
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID := ids(r)
	var req comm.BidRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, h.eng.PlaceBid(r.Context(), sessionID, playerID, req.Amount))
}

func (h *Handler) PassBid(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID := ids(r)
	h.done(w, r, h.eng.PassBid(r.Context(), sessionID, playerID))
}

func (h *Handler) TogglePause(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID := ids(r)
	paused, err := h.eng.TogglePause(r.Context(), sessionID, playerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, comm.PauseState{Paused: paused})
}

// CheckTimeouts applies due automatic actions now instead of waiting for
// the control loop.
func (h *Handler) CheckTimeouts(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := ids(r)
	n, err := h.eng.CheckTimeouts(r.Context(), sessionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, map[string]int{"applied": n})
}

func (h *Handler) done(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, comm.Res{Status: true})
}
