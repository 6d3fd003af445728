package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuctionStateKeepsBiddingPhase(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := AuctionState{
		Seq:                7,
		BidTimerSeconds:    15,
		TotalBiddingPoints: 100,
		Phase: Bidding{
			SelectorSeat:    1,
			CardID:          "c-42",
			CurrentBid:      3,
			CurrentBidderID: "p2",
			Bids:            []Bid{{PlayerID: "p2", Amount: 3}},
			Passed:          []string{"p0"},
			NextBidderSeat:  0,
			BidStartedAt:    started,
			Direction:       CounterClockwise,
		},
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"phase":"bidding"`)
	assert.Contains(t, string(raw), `"direction":"right"`)

	var out AuctionState
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestAuctionStateRejectsUnknownPhase(t *testing.T) {
	var out AuctionState
	err := json.Unmarshal([]byte(`{"seq":1,"phase":"haggling","state":{}}`), &out)
	assert.Error(t, err)
}

func TestAuctionCloneDoesNotShareBids(t *testing.T) {
	a := &AuctionState{Seq: 1, Phase: Bidding{Bids: []Bid{{PlayerID: "a", Amount: 1}}}}
	c := a.Clone()

	b := c.Phase.(Bidding)
	b.Bids[0].Amount = 9

	assert.Equal(t, 1, a.Phase.(Bidding).Bids[0].Amount)
}

func TestPauseWaiting(t *testing.T) {
	now := time.Now()
	later := now.Add(3 * time.Second)
	p := Pause{ResumeAt: &later}

	assert.True(t, p.Waiting(now))
	assert.False(t, p.Waiting(later))
	assert.False(t, Pause{}.Waiting(now))
}
