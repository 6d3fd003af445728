package models

import "time"

type Mode string

const (
	ModePack    Mode = "pack"
	ModeAuction Mode = "auction-grid"
	ModeOpen    Mode = "open"
)

// Grid reports whether the mode deals cards through shared grids.
func (m Mode) Grid() bool {
	return m == ModeAuction || m == ModeOpen
}

func (m Mode) Valid() bool {
	switch m {
	case ModePack, ModeAuction, ModeOpen:
		return true
	}
	return false
}

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type Session struct {
	ID             string        `json:"id"`               // Primary key
	RoomCode       string        `json:"room_code"`        // Short join code, unique
	Mode           Mode          `json:"mode"`             // pack | auction-grid | open
	Status         Status        `json:"status"`           // waiting | in_progress | completed | cancelled
	PlayerCount    int           `json:"player_count"`     // Seats in the session
	CardsPerPlayer int           `json:"cards_per_player"` // Cards each player ends with
	UnitSize       int           `json:"unit_size"`        // Pack size or picks per player per grid
	BurnPerUnit    int           `json:"burn_per_unit"`    // Cards discarded per pack or extra cards per grid
	TimerSeconds   int           `json:"timer_seconds"`    // Pick or selection timer, 0 disables
	CurrentUnit    int           `json:"current_unit"`     // 1-based pack or grid number, 0 before start
	CurrentPick    int           `json:"current_pick"`     // 1-based pick within the pack, pack mode only
	Direction      Direction     `json:"direction"`        // Pass direction or bidding direction
	PickStartedAt  *time.Time    `json:"pick_started_at"`  // Start of the current pick or selection
	Pause          Pause         `json:"pause"`
	Units          [][]string    `json:"units"`          // Pool partitioned into packs or grids
	GridRemaining  []string      `json:"grid_remaining"` // Unclaimed cards in the current grid
	Auction        *AuctionState `json:"auction,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type Pause struct {
	Paused           bool          `json:"paused"`
	RemainingAtPause time.Duration `json:"remaining_at_pause"` // Active timer remaining when paused
	ResumeAt         *time.Time    `json:"resume_at,omitempty"`
}

// Waiting reports whether the resume countdown is still running at now.
func (p Pause) Waiting(now time.Time) bool {
	return p.ResumeAt != nil && now.Before(*p.ResumeAt)
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.PickStartedAt != nil {
		t := *s.PickStartedAt
		c.PickStartedAt = &t
	}
	if s.Pause.ResumeAt != nil {
		t := *s.Pause.ResumeAt
		c.Pause.ResumeAt = &t
	}
	c.Units = make([][]string, len(s.Units))
	for i, u := range s.Units {
		c.Units[i] = append([]string(nil), u...)
	}
	c.GridRemaining = append([]string(nil), s.GridRemaining...)
	c.Auction = s.Auction.Clone()
	return &c
}
