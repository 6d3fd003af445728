package broker

import (
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/Mazen286/cubecraft/internal/comm"
)

var errNoConn = errors.New("nats connection not set")

// Sender writes one JSON message to a client socket.
type Sender interface {
	WriteJSON(v interface{}) error
}

type Broker struct {
	Conn           *nats.Conn
	GetConnection  func(string) (Sender, bool)
	GetRoomSockets func(string) ([]string, bool)
	Bind           func(socketId, sessionId, playerId string)
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (Sender, bool), fncGetRoomSockets func(string) ([]string, bool), fncBind func(string, string, string)) *Broker {
	return &Broker{
		Conn:           conn,
		GetConnection:  fncGetConnection,
		GetRoomSockets: fncGetRoomSockets,
		Bind:           fncBind,
	}
}

// consume replies and session changes from the draft service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// publish client commands to the draft service
func (b *Broker) Publish(topic string, payload []byte) error {
	if b.Conn == nil {
		return errNoConn
	}
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(msgNats.Data, message); err != nil {
		log.Errorf("Error %s", err)
		return
	}
	b.route(message)
}

// route delivers a draft service message: replies go to the socket that
// asked, session changes go to every socket bound to the session.
func (b *Broker) route(m *comm.WSMessage) {
	if m.Type == comm.TypeSessionChanged {
		b.broadcast(m)
		return
	}
	if m.SocketId == "" {
		log.Warnf("dropping %s message without socket id", m.Type)
		return
	}

	switch m.Type {
	case comm.Response(comm.TypeCreateSession), comm.Response(comm.TypeJoinSession):
		var joined comm.Joined
		if err := json.Unmarshal(m.Data, &joined); err != nil {
			log.Errorf("Error decoding %s: %s", m.Type, err)
		} else if b.Bind != nil {
			b.Bind(m.SocketId, joined.SessionID, joined.PlayerID)
		}
	}
	b.sendMessage(m.SocketId, m)
}

func (b *Broker) broadcast(m *comm.WSMessage) {
	var update comm.SessionUpdate
	if err := json.Unmarshal(m.Data, &update); err != nil {
		log.Errorf("Error decoding session update: %s", err)
		return
	}
	sockets, ok := b.GetRoomSockets(update.SessionID)
	if !ok {
		return
	}
	for _, socketId := range sockets {
		b.sendMessage(socketId, m)
	}
}

// send socket message to the web client
func (b *Broker) sendMessage(socketId string, m *comm.WSMessage) {
	if conn, ok := b.GetConnection(socketId); ok {
		if err := conn.WriteJSON(m); err != nil {
			log.Warnf("write to socket %s: %v", socketId, err)
		}
	}
}
