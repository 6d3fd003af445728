package comm

import (
	"encoding/json"
	"time"
)

// NATS subjects shared by the services.
const (
	SubjectSocket        = "socket.service" // socket gateway -> draft service
	SubjectDraft         = "draft.service"  // draft service replies -> socket gateway
	SubjectSessionPrefix = "draft.session."
	SubjectSessionAll    = SubjectSessionPrefix + "*"
)

func SessionSubject(sessionID string) string {
	return SubjectSessionPrefix + sessionID
}

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "make-pick", "place-bid"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// client commands
const (
	TypeCreateSession = "create-session"
	TypeJoinSession   = "join-session"
	TypeAddBot        = "add-bot"
	TypeRemoveBot     = "remove-bot"
	TypeStartDraft    = "start-draft"
	TypeMakePick      = "make-pick"
	TypeSelectCard    = "select-card"
	TypePlaceBid      = "place-bid"
	TypePassBid       = "pass-bid"
	TypeTogglePause   = "toggle-pause"
	TypeCancelSession = "cancel-session"
	TypeGetState      = "get-state"
	TypeSetConnected  = "set-connected"
)

// server messages
const (
	TypeSessionChanged = "session-changed"
	TypeError          = "error"
)

// Commands lists every message type a client may send.
var Commands = map[string]bool{
	TypeCreateSession: true,
	TypeJoinSession:   true,
	TypeAddBot:        true,
	TypeRemoveBot:     true,
	TypeStartDraft:    true,
	TypeMakePick:      true,
	TypeSelectCard:    true,
	TypePlaceBid:      true,
	TypePassBid:       true,
	TypeTogglePause:   true,
	TypeCancelSession: true,
	TypeGetState:      true,
	TypeSetConnected:  true,
}

// Response is the reply type for a command.
func Response(msgType string) string {
	return msgType + "-response"
}

// SessionRequest identifies the acting player. Most commands carry only this.
type SessionRequest struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
}

type CreateRequest struct {
	Mode            string   `json:"mode"`
	HostName        string   `json:"host_name"`
	PlayerCount     int      `json:"player_count"`
	CardsPerPlayer  int      `json:"cards_per_player"`
	UnitSize        int      `json:"unit_size"`
	BurnPerUnit     int      `json:"burn_per_unit"`
	TimerSeconds    int      `json:"timer_seconds"`
	BidTimerSeconds int      `json:"bid_timer_seconds,omitempty"`
	BiddingPoints   int      `json:"bidding_points,omitempty"`
	Pool            []string `json:"pool"`
}

type JoinRequest struct {
	RoomCode string `json:"room_code"`
	Name     string `json:"name"`
}

type CardRequest struct {
	SessionRequest
	CardID string `json:"card_id"`
}

type BidRequest struct {
	SessionRequest
	Amount int `json:"amount"`
}

type BotRequest struct {
	SessionRequest
	BotID string `json:"bot_id"`
}

type ConnectedRequest struct {
	SessionRequest
	Connected bool `json:"connected"`
}

// Joined answers create-session and join-session. The gateway binds the
// socket to the session from it.
type Joined struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	RoomCode  string `json:"room_code"`
	Seat      int    `json:"seat"`
}

type PauseState struct {
	Paused bool `json:"paused"`
}

// SessionUpdate is published on the session subject after every applied
// change. Observers re-read the session to see what changed.
type SessionUpdate struct {
	SessionID string    `json:"session_id"`
	Change    string    `json:"change"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Request string `json:"request"`
}

type Res struct {
	Status bool `json:"status"`
}

type ServiceHeartbeat struct {
	ID        string    `json:"id"` // service id
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage marshals data into a message envelope.
func NewMessage(msgType string, data any, socketId string) (*WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &WSMessage{Type: msgType, Data: raw, SocketId: socketId}, nil
}
