// Package store persists sessions with conditioned writes. A write that
// loses a race reports ConflictStale instead of failing.
package store

import (
	"errors"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

var ErrNotFound = errors.New("not found")

type Result int

const (
	Applied       Result = iota
	ConflictStale        // a guarded field no longer matched
	ConflictCard         // the card already has a pick in this session
	ConflictSlot         // the player already has a pick for this slot, or the seat is taken
)

func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case ConflictStale:
		return "stale"
	case ConflictCard:
		return "card_taken"
	case ConflictSlot:
		return "slot_taken"
	}
	return "unknown"
}

// Cond guards a session write on the values the writer last read.
// Nil fields are not checked.
type Cond struct {
	Status     *models.Status
	Unit       *int
	Pick       *int
	Paused     *bool
	AuctionSeq *int
}

func Expect() Cond { return Cond{} }

func (c Cond) WithStatus(s models.Status) Cond {
	c.Status = &s
	return c
}

// AtPick guards on the pack round.
func (c Cond) AtPick(unit, pick int) Cond {
	c.Unit = &unit
	c.Pick = &pick
	return c
}

// AtAuction guards on the auction sequence number.
func (c Cond) AtAuction(seq int) Cond {
	c.AuctionSeq = &seq
	return c
}

func (c Cond) WithPaused(p bool) Cond {
	c.Paused = &p
	return c
}

// Matches reports whether s satisfies the condition.
func (c Cond) Matches(s *models.Session) bool {
	if c.Status != nil && s.Status != *c.Status {
		return false
	}
	if c.Unit != nil && s.CurrentUnit != *c.Unit {
		return false
	}
	if c.Pick != nil && s.CurrentPick != *c.Pick {
		return false
	}
	if c.Paused != nil && s.Pause.Paused != *c.Paused {
		return false
	}
	if c.AuctionSeq != nil && auctionSeq(s) != *c.AuctionSeq {
		return false
	}
	return true
}

func auctionSeq(s *models.Session) int {
	if s.Auction == nil {
		return 0
	}
	return s.Auction.Seq
}

// PlayerCond guards a player write on its own pick flag and on the
// owning session.
type PlayerCond struct {
	PickMade *bool
	Session  Cond
}

func Unpicked(session Cond) PlayerCond {
	f := false
	return PlayerCond{PickMade: &f, Session: session}
}

// Mutation is applied atomically by Commit. Session is required. Player
// writes cover draft fields only; connection status is written separately.
type Mutation struct {
	Cond      Cond
	Session   *models.Session
	Players   []*models.Player
	Picks     []models.Pick
	Burned    []models.BurnedCard
	BidEvents []models.BidEvent
}
