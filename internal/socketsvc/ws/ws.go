package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/Mazen286/cubecraft/internal/comm"
	"github.com/Mazen286/cubecraft/internal/socketsvc/broker"
)

var (
	ErrUnknownType   = errors.New("unknown message type")
	ErrForeignPlayer = errors.New("socket is bound to another player")
)

// Client serializes writes to one websocket connection, which gorilla
// does not allow concurrently.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Binding is the session and player a socket last acted as. It is the
// client's "current session" pointer and lives only in the gateway.
type Binding struct {
	SessionID string
	PlayerID  string
}

type Ws struct {
	connMap sync.Map // socketId -> *Client
	roomMap sync.Map // socketId -> Binding
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// SocketMessage forwards a client command to the draft service. Once a
// socket is bound to a player it may only act as that player; creating or
// joining a session rebinds it through the reply.
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) error {
	if !comm.Commands[message.Type] {
		return fmt.Errorf("%w: %s", ErrUnknownType, message.Type)
	}

	var ref comm.SessionRequest
	if err := json.Unmarshal(message.Data, &ref); err == nil && ref.PlayerID != "" {
		if b, ok := s.GetRoom(socketId); ok && b.PlayerID != ref.PlayerID {
			log.Warnf("socket %s bound to player %s sent a command as %s", socketId, b.PlayerID, ref.PlayerID)
			return fmt.Errorf("%w: %s", ErrForeignPlayer, ref.PlayerID)
		}
		if ref.SessionID != "" {
			s.StoreRoom(socketId, ref.SessionID, ref.PlayerID)
		}
	}

	message.SocketId = socketId
	return s.publish(message)
}

func (s *Ws) publish(msg *comm.WSMessage) error {
	bytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Type, err)
	}
	topic := comm.SubjectSocket
	if err := s.Broker.Publish(topic, bytes); err != nil {
		return fmt.Errorf("publish %s to %s: %w", msg.Type, topic, err)
	}
	log.Debugf("published %s from socket %s", msg.Type, msg.SocketId)
	return nil
}

// HandleDisconnect forgets the socket and marks its player disconnected.
func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	b, ok := s.GetRoom(socketId)
	if !ok {
		return
	}
	s.roomMap.Delete(socketId)

	msg, err := comm.NewMessage(comm.TypeSetConnected, comm.ConnectedRequest{
		SessionRequest: comm.SessionRequest{SessionID: b.SessionID, PlayerID: b.PlayerID},
		Connected:      false,
	}, socketId)
	if err != nil {
		log.Errorf("Error building disconnect for socket %s: %v", socketId, err)
		return
	}
	if err := s.publish(msg); err != nil {
		log.Warnf("unable to report disconnect of player %s: %v", b.PlayerID, err)
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) *Client {
	c := &Client{conn: conn}
	s.connMap.Store(socketId, c)
	return c
}

func (s *Ws) GetConnection(socketId string) (broker.Sender, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*Client), true
}

func (s *Ws) StoreRoom(socketId, sessionId, playerId string) {
	s.roomMap.Store(socketId, Binding{SessionID: sessionId, PlayerID: playerId})
}

func (s *Ws) GetRoom(socketId string) (Binding, bool) {
	b, ok := s.roomMap.Load(socketId)
	if !ok {
		return Binding{}, false
	}
	return b.(Binding), true
}

func (s *Ws) GetRoomSockets(sessionId string) ([]string, bool) {
	var sockets []string

	s.roomMap.Range(func(key, value interface{}) bool {
		if value.(Binding).SessionID == sessionId {
			sockets = append(sockets, key.(string))
		}
		return true // continue iterating
	})

	return sockets, len(sockets) > 0
}
