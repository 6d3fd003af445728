package models

import "sort"

// Snapshot is a consistent read of a session and everything hanging off it.
type Snapshot struct {
	Session *Session     `json:"session"`
	Players []*Player    `json:"players"`
	Picks   []Pick       `json:"picks,omitempty"`
	Burned  []BurnedCard `json:"burned,omitempty"`
}

func (s *Snapshot) SortPlayers() {
	sort.SliceStable(s.Players, func(i, j int) bool { return s.Players[i].Seat < s.Players[j].Seat })
}

func (s *Snapshot) Player(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Snapshot) PlayerAtSeat(seat int) *Player {
	for _, p := range s.Players {
		if p.Seat == seat {
			return p
		}
	}
	return nil
}

func (s *Snapshot) Host() *Player {
	for _, p := range s.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// Drafted returns the card ids picked by a player, in pick order.
func (s *Snapshot) Drafted(playerID string) []string {
	var out []string
	for _, pk := range s.Picks {
		if pk.PlayerID == playerID {
			out = append(out, pk.CardID)
		}
	}
	return out
}

func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{Session: s.Session.Clone()}
	for _, p := range s.Players {
		c.Players = append(c.Players, p.Clone())
	}
	c.Picks = append([]Pick(nil), s.Picks...)
	c.Burned = append([]BurnedCard(nil), s.Burned...)
	return c
}

// ViewFor is the snapshot as playerID may see it. Undealt units and the
// other players' hands are dropped.
func (s *Snapshot) ViewFor(playerID string) *Snapshot {
	c := s.Clone()
	c.Session.Units = nil
	for _, p := range c.Players {
		if p.ID != playerID {
			p.Hand = nil
		}
	}
	return c
}
