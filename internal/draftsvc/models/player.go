package models

import "time"

type Player struct {
	ID               string    `json:"id"`         // Primary key
	SessionID        string    `json:"session_id"` // FK to sessions(id)
	Name             string    `json:"name"`
	Seat             int       `json:"seat"` // 0-based, unique per session
	IsHost           bool      `json:"is_host"`
	IsBot            bool      `json:"is_bot"`
	IsConnected      bool      `json:"is_connected"`
	Hand             []string  `json:"current_hand"`             // Pack currently held, pack mode only
	BiddingPoints    int       `json:"bidding_points"`           // Remaining auction budget
	AcquiredThisUnit int       `json:"cards_acquired_this_unit"` // Cards won in the current grid
	PickMade         bool      `json:"pick_made"`                // Picked in the current pack round
	JoinedAt         time.Time `json:"joined_at"`
}

func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	c.Hand = append([]string(nil), p.Hand...)
	return &c
}

type Pick struct {
	SessionID       string    `json:"session_id"`
	PlayerID        string    `json:"player_id"`
	CardID          string    `json:"card_id"`
	Unit            int       `json:"unit_number"`
	PickNumber      int       `json:"pick_number"`
	Cost            int       `json:"cost"` // Points paid, auction mode only
	PickTimeSeconds int       `json:"pick_time_seconds"`
	WasAutoPick     bool      `json:"was_auto_pick"`
	CreatedAt       time.Time `json:"created_at"`
}

// BurnedCard is a card discarded at the end of a pack or grid.
// Seat is -1 for cards left over in a grid.
type BurnedCard struct {
	SessionID string    `json:"session_id"`
	CardID    string    `json:"card_id"`
	Unit      int       `json:"unit_number"`
	Seat      int       `json:"seat"`
	CreatedAt time.Time `json:"created_at"`
}

type BidEvent struct {
	SessionID string    `json:"session_id"`
	Unit      int       `json:"unit_number"`
	CardID    string    `json:"card_id"`
	PlayerID  string    `json:"player_id"`
	Amount    int       `json:"amount"`
	Passed    bool      `json:"passed"`
	CreatedAt time.Time `json:"created_at"`
}

// Card is the catalog view of a card used for bot scoring.
type Card struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Score      float64  `json:"score"` // 0-100
	Archetypes []string `json:"archetypes,omitempty"`
	Colors     []string `json:"colors,omitempty"`
	Type       string   `json:"type,omitempty"`
}
