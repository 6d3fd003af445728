package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

func TestGuardSQL(t *testing.T) {
	tests := []struct {
		name  string
		cond  Cond
		want  string
		wargs []any
	}{
		{"empty", Expect(), "", []any{"id"}},
		{"pick", Expect().AtPick(2, 5), " AND current_unit = $2 AND current_pick = $3", []any{"id", 2, 5}},
		{
			"auction",
			Expect().WithStatus(models.StatusInProgress).WithPaused(false).AtAuction(9),
			" AND status = $2 AND paused = $3 AND auction_seq = $4",
			[]any{"id", "in_progress", false, 9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args := guardSQL(tt.cond, "", []any{"id"})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wargs, args)
		})
	}
}

func TestUpdateSessionSQLNumbersAfterSetColumns(t *testing.T) {
	base := make([]any, 12)
	query, args := updateSessionSQL(Expect().AtPick(1, 3), base)

	assert.Contains(t, query, "WHERE id = $1 AND current_unit = $13 AND current_pick = $14")
	assert.Len(t, args, 14)
}

func TestUpdatePlayerSQLQualifiesSessionGuard(t *testing.T) {
	base := make([]any, 6)
	query, args := updatePlayerSQL(Unpicked(Expect().AtPick(1, 2)), base)

	assert.Contains(t, query, "AND p.pick_made = $7 AND s.current_unit = $8 AND s.current_pick = $9")
	assert.Equal(t, []any{false, 1, 2}, args[6:])
}

func TestCondMatches(t *testing.T) {
	s := &models.Session{
		Status:      models.StatusInProgress,
		CurrentUnit: 2,
		CurrentPick: 4,
		Auction:     &models.AuctionState{Seq: 7},
	}

	assert.True(t, Expect().Matches(s))
	assert.True(t, Expect().AtPick(2, 4).WithPaused(false).Matches(s))
	assert.False(t, Expect().AtPick(2, 3).Matches(s))
	assert.False(t, Expect().WithStatus(models.StatusWaiting).Matches(s))
	assert.True(t, Expect().AtAuction(7).Matches(s))
	assert.False(t, Expect().AtAuction(6).Matches(s))
	assert.False(t, Expect().AtAuction(1).Matches(&models.Session{}))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "card_taken", ConflictCard.String())
	assert.Equal(t, "unknown", Result(42).String())
}
