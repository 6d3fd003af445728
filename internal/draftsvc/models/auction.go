package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type PhaseKind string

const (
	PhaseSelecting    PhaseKind = "selecting"
	PhaseBidding      PhaseKind = "bidding"
	PhaseGridComplete PhaseKind = "grid_complete"
)

// Phase is one of Selecting, Bidding or GridComplete.
type Phase interface {
	Kind() PhaseKind
}

// Selecting waits for the selector to put a grid card up.
type Selecting struct {
	SelectorSeat int `json:"selector_seat"`
}

// Bidding is an open auction on a single card.
type Bidding struct {
	SelectorSeat    int       `json:"selector_seat"`
	CardID          string    `json:"card_id"`
	CurrentBid      int       `json:"current_bid"`
	CurrentBidderID string    `json:"current_bidder_id,omitempty"`
	Bids            []Bid     `json:"bids"`
	Passed          []string  `json:"passed_player_ids"`
	NextBidderSeat  int       `json:"next_bidder_seat"`
	BidStartedAt    time.Time `json:"bid_started_at"`
	Direction       Direction `json:"direction"`
}

type Bid struct {
	PlayerID string `json:"player_id"`
	Amount   int    `json:"amount"`
}

// GridComplete marks the final grid as closed.
type GridComplete struct {
	Grid int `json:"grid"`
}

func (Selecting) Kind() PhaseKind    { return PhaseSelecting }
func (Bidding) Kind() PhaseKind      { return PhaseBidding }
func (GridComplete) Kind() PhaseKind { return PhaseGridComplete }

func (b Bidding) HasPassed(playerID string) bool {
	for _, id := range b.Passed {
		if id == playerID {
			return true
		}
	}
	return false
}

// AuctionState is the single record of a grid session's auction.
// Seq increases on every transition and guards conditional writes.
type AuctionState struct {
	Seq                int
	BidTimerSeconds    int
	TotalBiddingPoints int
	Phase              Phase
}

type auctionJSON struct {
	Seq                int             `json:"seq"`
	BidTimerSeconds    int             `json:"bid_timer_seconds"`
	TotalBiddingPoints int             `json:"total_bidding_points"`
	Phase              PhaseKind       `json:"phase"`
	State              json.RawMessage `json:"state"`
}

func (a AuctionState) MarshalJSON() ([]byte, error) {
	out := auctionJSON{
		Seq:                a.Seq,
		BidTimerSeconds:    a.BidTimerSeconds,
		TotalBiddingPoints: a.TotalBiddingPoints,
	}
	if a.Phase != nil {
		state, err := json.Marshal(a.Phase)
		if err != nil {
			return nil, err
		}
		out.Phase = a.Phase.Kind()
		out.State = state
	}
	return json.Marshal(out)
}

func (a *AuctionState) UnmarshalJSON(b []byte) error {
	var in auctionJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	a.Seq = in.Seq
	a.BidTimerSeconds = in.BidTimerSeconds
	a.TotalBiddingPoints = in.TotalBiddingPoints
	a.Phase = nil

	switch in.Phase {
	case "":
		return nil
	case PhaseSelecting:
		var p Selecting
		if err := json.Unmarshal(in.State, &p); err != nil {
			return err
		}
		a.Phase = p
	case PhaseBidding:
		var p Bidding
		if err := json.Unmarshal(in.State, &p); err != nil {
			return err
		}
		a.Phase = p
	case PhaseGridComplete:
		var p GridComplete
		if err := json.Unmarshal(in.State, &p); err != nil {
			return err
		}
		a.Phase = p
	default:
		return fmt.Errorf("unknown auction phase %q", in.Phase)
	}
	return nil
}

func (a *AuctionState) Clone() *AuctionState {
	if a == nil {
		return nil
	}
	c := *a
	if b, ok := a.Phase.(Bidding); ok {
		b.Bids = append([]Bid(nil), b.Bids...)
		b.Passed = append([]string(nil), b.Passed...)
		c.Phase = b
	}
	return &c
}
