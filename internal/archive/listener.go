package archive

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/Mazen286/cubecraft/internal/comm"
	"github.com/Mazen286/cubecraft/internal/draftsvc/engine"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

const saveTimeout = 10 * time.Second

type Snapshotter interface {
	Snapshot(ctx context.Context, sessionID string) (*models.Snapshot, error)
}

type Saver interface {
	Save(ctx context.Context, snap *models.Snapshot) error
}

// Listener archives sessions as their completion is announced.
type Listener struct {
	sessions Snapshotter
	saver    Saver
}

func NewListener(sessions Snapshotter, saver Saver) *Listener {
	return &Listener{sessions: sessions, saver: saver}
}

// Subscribe listens on every session subject.
func (l *Listener) Subscribe(nc *nats.Conn) (*nats.Subscription, error) {
	return nc.Subscribe(comm.SubjectSessionAll, func(m *nats.Msg) {
		msg := &comm.WSMessage{}
		if err := json.Unmarshal(m.Data, msg); err != nil {
			log.Errorf("archive: decode message on %s: %v", m.Subject, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		l.Handle(ctx, msg)
	})
}

// Handle saves the session named by a completed change. Other changes are
// ignored. It reports whether a record was written.
func (l *Listener) Handle(ctx context.Context, msg *comm.WSMessage) bool {
	if msg.Type != comm.TypeSessionChanged {
		return false
	}
	var update comm.SessionUpdate
	if err := json.Unmarshal(msg.Data, &update); err != nil {
		log.Errorf("archive: decode session update: %v", err)
		return false
	}
	if update.Change != string(engine.ChangeCompleted) {
		return false
	}

	snap, err := l.sessions.Snapshot(ctx, update.SessionID)
	if err != nil {
		log.Errorf("archive: load session %s: %v", update.SessionID, err)
		return false
	}
	if err := l.saver.Save(ctx, snap); err != nil {
		log.Errorf("archive: %v", err)
		return false
	}
	return true
}
