package engine

import "github.com/Mazen286/cubecraft/internal/draftsvc/models"

// Layout is the card arithmetic for a session configuration.
type Layout struct {
	Units            int // packs per player, or grids
	TotalUnits       int // packs across all players, or grids
	CardsPerUnit     int // cards in one pack or one grid
	TotalCardsNeeded int
}

// ComputeLayout validates a configuration and derives its card counts.
//
// Pack mode: each pack of unitSize loses burn cards unpicked, so a player
// keeps unitSize-burn per pack. Grid modes: each grid holds unitSize cards
// per player plus burn extras.
func ComputeLayout(mode models.Mode, players, cardsPerPlayer, unitSize, burn int) (Layout, error) {
	if !mode.Valid() {
		return Layout{}, invalid(CodeInvalidConfig, "unknown draft mode %q", mode)
	}
	if players < 2 {
		return Layout{}, invalid(CodeInvalidConfig, "need at least 2 players, got %d", players)
	}
	if unitSize <= 0 || cardsPerPlayer <= 0 || burn < 0 {
		return Layout{}, invalid(CodeInvalidConfig, "card counts must be positive")
	}

	if mode == models.ModePack {
		kept := unitSize - burn
		if kept <= 0 {
			return Layout{}, invalid(CodeInvalidConfig, "burn %d leaves nothing to pick from a pack of %d", burn, unitSize)
		}
		if cardsPerPlayer%kept != 0 {
			return Layout{}, invalid(CodeInvalidConfig, "%d cards per player is not a multiple of %d picks per pack", cardsPerPlayer, kept)
		}
		units := cardsPerPlayer / kept
		return Layout{
			Units:            units,
			TotalUnits:       units * players,
			CardsPerUnit:     unitSize,
			TotalCardsNeeded: units * players * unitSize,
		}, nil
	}

	if cardsPerPlayer%unitSize != 0 {
		return Layout{}, invalid(CodeInvalidConfig, "%d cards per player is not a multiple of %d cards per grid", cardsPerPlayer, unitSize)
	}
	grids := cardsPerPlayer / unitSize
	perGrid := players*unitSize + burn
	return Layout{
		Units:            grids,
		TotalUnits:       grids,
		CardsPerUnit:     perGrid,
		TotalCardsNeeded: grids * perGrid,
	}, nil
}

func layoutOf(s *models.Session) Layout {
	l, _ := ComputeLayout(s.Mode, s.PlayerCount, s.CardsPerPlayer, s.UnitSize, s.BurnPerUnit)
	return l
}

// partition splits pool into consecutive units of size each.
func partition(pool []string, units, size int) [][]string {
	out := make([][]string, units)
	for i := range out {
		out[i] = append([]string(nil), pool[i*size:(i+1)*size]...)
	}
	return out
}
