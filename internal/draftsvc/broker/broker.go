// Package broker connects the draft engine to NATS. It runs client
// commands relayed by the socket gateway and publishes session changes.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/Mazen286/cubecraft/internal/comm"
	"github.com/Mazen286/cubecraft/internal/draftsvc/engine"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

const commandTimeout = 30 * time.Second

var errBadRequest = errors.New("bad request")

type Broker struct {
	Conn   *nats.Conn
	Engine *engine.Engine
}

func NewBroker(nc *nats.Conn, eng *engine.Engine) *Broker {
	return &Broker{
		Conn:   nc,
		Engine: eng,
	}
}

// SessionChanged publishes the change on the session's subject. It makes
// Broker an engine.Notifier.
func (b *Broker) SessionChanged(ctx context.Context, sessionID string, change engine.Change) {
	update := comm.SessionUpdate{
		SessionID: sessionID,
		Change:    string(change),
		Timestamp: time.Now().UTC(),
	}
	msg, err := comm.NewMessage(comm.TypeSessionChanged, update, "")
	if err != nil {
		log.Errorf("error [SessionChanged] marshaling update for session %s: %v", sessionID, err)
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("error [SessionChanged] marshaling WSMessage: %v", err)
		return
	}
	b.Publish(comm.SessionSubject(sessionID), payload)
}

// consume commands from the socket service; the queue group spreads them
// across draft service instances
func (b *Broker) QueueSubscribeSocketService(topic, queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) Publish(topic string, payload []byte) error {
	if b.Conn == nil {
		return nil
	}
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handles message coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(msgNat.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply := b.Dispatch(ctx, msg)
	payload, err := json.Marshal(reply)
	if err != nil {
		log.Errorf("Error marshaling %s reply: %s", reply.Type, err)
		return
	}
	b.Publish(comm.SubjectDraft, payload)
}

// Dispatch runs one client command and builds the reply for its socket.
func (b *Broker) Dispatch(ctx context.Context, msg *comm.WSMessage) *comm.WSMessage {
	data, err := b.run(ctx, msg)
	if err == nil {
		var reply *comm.WSMessage
		reply, err = comm.NewMessage(comm.Response(msg.Type), data, msg.SocketId)
		if err == nil {
			return reply
		}
	}

	e := errorData(err)
	e.Request = msg.Type
	if e.Code == "internal" || e.Code == "unavailable" {
		log.Errorf("error [%s] socket %s: %v", msg.Type, msg.SocketId, err)
	} else {
		log.Debugf("rejected [%s] socket %s: %v", msg.Type, msg.SocketId, err)
	}
	reply, mErr := comm.NewMessage(comm.TypeError, e, msg.SocketId)
	if mErr != nil {
		return &comm.WSMessage{Type: comm.TypeError, SocketId: msg.SocketId}
	}
	return reply
}

func (b *Broker) run(ctx context.Context, msg *comm.WSMessage) (any, error) {
	eng := b.Engine
	switch msg.Type {
	case comm.TypeCreateSession:
		var req comm.CreateRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		s, host, err := eng.CreateSession(ctx, engine.CreateParams{
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
			return nil, err
		}
		return comm.Joined{SessionID: s.ID, PlayerID: host.ID, RoomCode: s.RoomCode, Seat: host.Seat}, nil

	case comm.TypeJoinSession:
		var req comm.JoinRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		p, err := eng.JoinSession(ctx, req.RoomCode, req.Name)
		if err != nil {
			return nil, err
		}
		return comm.Joined{SessionID: p.SessionID, PlayerID: p.ID, RoomCode: req.RoomCode, Seat: p.Seat}, nil

	case comm.TypeAddBot:
		var req comm.SessionRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		return eng.AddBot(ctx, req.SessionID, req.PlayerID)

	case comm.TypeRemoveBot:
		var req comm.BotRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		return ok(eng.RemoveBot(ctx, req.SessionID, req.PlayerID, req.BotID))

	case comm.TypeStartDraft:
		var req comm.SessionRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		return ok(eng.StartDraft(ctx, req.SessionID, req.PlayerID))

	case comm.TypeMakePick:
		var req comm.CardRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		return ok(eng.MakePick(ctx, req.SessionID, req.PlayerID, req.CardID))

	case comm.TypeSelectCard:
		var req comm.CardRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		return ok(eng.SelectCard(ctx, req.SessionID, req.PlayerID, req.CardID))

	case comm.TypePlaceBid:
		var req comm.BidRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		return ok(eng.PlaceBid(ctx, req.SessionID, req.PlayerID, req.Amount))

	case comm.TypePassBid:
		var req comm.SessionRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		return ok(eng.PassBid(ctx, req.SessionID, req.PlayerID))

	case comm.TypeTogglePause:
		var req comm.SessionRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		paused, err := eng.TogglePause(ctx, req.SessionID, req.PlayerID)
		if err != nil {
			return nil, err
		}
		return comm.PauseState{Paused: paused}, nil

	case comm.TypeCancelSession:
		var req comm.SessionRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		return ok(eng.CancelSession(ctx, req.SessionID, req.PlayerID))

	case comm.TypeGetState:
		var req comm.SessionRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		snap, err := eng.Snapshot(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		if snap.Player(req.PlayerID) == nil {
			return nil, engine.ErrNotInSession
		}
		return snap.ViewFor(req.PlayerID), nil

	case comm.TypeSetConnected:
		var req comm.ConnectedRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		return ok(eng.SetConnected(ctx, req.SessionID, req.PlayerID, req.Connected))
	}
	return nil, fmt.Errorf("%w: unknown message type %q", errBadRequest, msg.Type)
}

func decode(msg *comm.WSMessage, v any) error {
	if len(msg.Data) == 0 {
		return fmt.Errorf("%w: %s has no data", errBadRequest, msg.Type)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", errBadRequest, msg.Type, err)
	}
	return nil
}

func ok(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return comm.Res{Status: true}, nil
}

func errorData(err error) comm.ErrorData {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		return comm.ErrorData{Code: string(verr.Code), Message: verr.Msg}
	case errors.Is(err, errBadRequest):
		return comm.ErrorData{Code: "bad_request", Message: err.Error()}
	case errors.Is(err, engine.ErrUnavailable):
		return comm.ErrorData{Code: "unavailable", Message: "service temporarily unavailable, try again"}
	}
	return comm.ErrorData{Code: "internal", Message: "internal error"}
}
