// Package archive keeps a read-only record of completed drafts in MongoDB.
package archive

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

const Collection = "completed_drafts"

type PlayerRecord struct {
	PlayerID      string   `bson:"player_id" json:"player_id"`
	Name          string   `bson:"name" json:"name"`
	Seat          int      `bson:"seat" json:"seat"`
	IsBot         bool     `bson:"is_bot" json:"is_bot"`
	Cards         []string `bson:"cards" json:"cards"`
	PointsSpent   int      `bson:"points_spent" json:"points_spent"`
	AutoPicks     int      `bson:"auto_picks" json:"auto_picks"`
	BiddingPoints int      `bson:"bidding_points" json:"bidding_points"`
}

// Record is one completed draft as archived.
type Record struct {
	SessionID   string         `bson:"_id" json:"session_id"`
	RoomCode    string         `bson:"room_code" json:"room_code"`
	Mode        models.Mode    `bson:"mode" json:"mode"`
	Units       int            `bson:"units" json:"units"`
	Players     []PlayerRecord `bson:"players" json:"players"`
	Burned      []string       `bson:"burned" json:"burned"`
	CompletedAt time.Time      `bson:"completed_at" json:"completed_at"`
	ExpiresAt   time.Time      `bson:"expires_at" json:"expires_at"`
}

// BuildRecord summarizes a completed snapshot. Cards are listed in pick order.
func BuildRecord(snap *models.Snapshot, now time.Time, ttl time.Duration) (Record, error) {
	s := snap.Session
	if s.Status != models.StatusCompleted {
		return Record{}, fmt.Errorf("session %s is %s, not completed", s.ID, s.Status)
	}

	rec := Record{
		SessionID:   s.ID,
		RoomCode:    s.RoomCode,
		Mode:        s.Mode,
		Units:       s.CurrentUnit,
		CompletedAt: now.UTC(),
		ExpiresAt:   now.UTC().Add(ttl),
	}
	byPlayer := make(map[string]*PlayerRecord, len(snap.Players))
	for _, p := range snap.Players {
		rec.Players = append(rec.Players, PlayerRecord{
			PlayerID:      p.ID,
			Name:          p.Name,
			Seat:          p.Seat,
			IsBot:         p.IsBot,
			BiddingPoints: p.BiddingPoints,
		})
	}
	for i := range rec.Players {
		byPlayer[rec.Players[i].PlayerID] = &rec.Players[i]
	}
	for _, pk := range snap.Picks {
		pr, ok := byPlayer[pk.PlayerID]
		if !ok {
			continue
		}
		pr.Cards = append(pr.Cards, pk.CardID)
		pr.PointsSpent += pk.Cost
		if pk.WasAutoPick {
			pr.AutoPicks++
		}
	}
	for _, b := range snap.Burned {
		rec.Burned = append(rec.Burned, b.CardID)
	}
	return rec, nil
}

type Archiver struct {
	coll *mongo.Collection
	ttl  time.Duration
	now  func() time.Time
}

// NewArchiver ensures the TTL index on the archive collection.
func NewArchiver(ctx context.Context, db *mongo.Database, ttl time.Duration) (*Archiver, error) {
	if err := CreateTTLIndexForCollection(ctx, db, Collection); err != nil {
		return nil, fmt.Errorf("create ttl index: %w", err)
	}
	return &Archiver{coll: db.Collection(Collection), ttl: ttl, now: time.Now}, nil
}

// Save upserts the record for a completed session, so repeated change
// notifications write it once.
func (a *Archiver) Save(ctx context.Context, snap *models.Snapshot) error {
	rec, err := BuildRecord(snap, a.now(), a.ttl)
	if err != nil {
		return err
	}
	_, err = a.coll.ReplaceOne(ctx, bson.M{"_id": rec.SessionID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("archive session %s: %w", rec.SessionID, err)
	}
	log.Infof("archived session %s (%d players)", rec.SessionID, len(rec.Players))
	return nil
}

// Get reads an archived record back.
func (a *Archiver) Get(ctx context.Context, sessionID string) (*Record, error) {
	var rec Record
	if err := a.coll.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
