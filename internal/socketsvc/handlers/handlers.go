package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Mazen286/cubecraft/internal/comm"
	"github.com/Mazen286/cubecraft/internal/socketsvc/ws"
)

type Handler struct {
	upgrader  websocket.Upgrader
	ws        *ws.Ws
	perSecond rate.Limit
	burst     int
	port      string
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

// NewHandler limits each socket to perSecond messages with the given burst.
func NewHandler(s *ws.Ws, perSecond float64, burst int, port string) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ws:        s,
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		port:      port,
	}
	return h
}

// HandleWebSocket upgrades the request and relays the client's commands
// to the draft service.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	client := h.ws.StoreConnection(socketId, conn)

	log.Infof("New WebSocket connection established: %s", socketId)

	go h.handleConnection(conn, client, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, client *ws.Client, socketId string) {
	// Ensure cleanup happens when connection closes
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		conn.Close()
		h.ws.HandleDisconnect(socketId)
	}()

	limiter := rate.NewLimiter(h.perSecond, h.burst)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			// Check if it's a normal close or unexpected error
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			} else {
				log.Infof("WebSocket connection closed normally for socket: %s", socketId)
			}
			break
		}

		if !limiter.Allow() {
			h.sendErrorToClient(client, socketId, "rate_limited", "too many messages, slow down")
			continue
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			h.sendErrorToClient(client, socketId, "bad_request", "invalid message format")
			continue // Don't break, just skip this message
		}

		log.Debugf("Received message from socket %s: type=%s", socketId, message.Type)

		if err := h.ws.SocketMessage(socketId, message); err != nil {
			if errors.Is(err, ws.ErrUnknownType) {
				h.sendErrorToClient(client, socketId, "bad_request", err.Error())
				continue
			}
			if errors.Is(err, ws.ErrForeignPlayer) {
				h.sendErrorToClient(client, socketId, "not_in_session", "this connection belongs to another player")
				continue
			}
			log.Errorf("socket %s: %v", socketId, err)
			h.sendErrorToClient(client, socketId, "unavailable", "draft service unavailable, try again")
		}
	}
}

// sendErrorToClient sends an error message back to the WebSocket client
func (h *Handler) sendErrorToClient(client *ws.Client, socketId, code, errorMsg string) {
	msg, err := comm.NewMessage(comm.TypeError, comm.ErrorData{Code: code, Message: errorMsg}, socketId)
	if err != nil {
		log.Errorf("Failed to build error message: %v", err)
		return
	}
	if err := client.WriteJSON(msg); err != nil {
		log.Errorf("Failed to send error message to client: %v", err)
	}
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
		Message: "socket service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}
