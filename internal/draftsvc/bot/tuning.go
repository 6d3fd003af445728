package bot

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Tier groups cards by catalog score. Tiers are matched top down.
type Tier struct {
	Name           string  `toml:"name"`
	MinScore       float64 `toml:"min_score"`
	Interest       float64 `toml:"interest"`        // chance a fitting card is worth bidding on
	BudgetFraction float64 `toml:"budget_fraction"` // share of total points this card is worth
	Bomb           bool    `toml:"bomb"`            // eligible for hate drafting
	Bluffable      bool    `toml:"bluffable"`       // eligible for bluff bids
}

type Tuning struct {
	Tiers []Tier `toml:"tiers"`

	CommitAfter     int     `toml:"commit_after"`      // drafted cards before colors are locked in
	HateDraftChance float64 `toml:"hate_draft_chance"` // off-fit bomb still bid on
	HateDraftBudget float64 `toml:"hate_draft_budget"` // willingness multiplier for hate bids
	BluffChance     float64 `toml:"bluff_chance"`      // uninterested mid-tier card bid on anyway
	BluffHeadroom   int     `toml:"bluff_headroom"`    // points a bluff will go above the current bid
	ArchetypeBoost  float64 `toml:"archetype_boost"`   // multiplier on archetype match
	ColorBoost      float64 `toml:"color_boost"`       // multiplier on color match
	TypeNeedBoost   float64 `toml:"type_need_boost"`   // multiplier when the card type is underrepresented
	GridDecay       float64 `toml:"grid_decay"`        // per-grid multiplicative decay
	MinDecay        float64 `toml:"min_decay"`         // floor for the decay
	ShortfallBoost  float64 `toml:"shortfall_boost"`   // extra willingness when short on cards this grid
	MaxIncrement    int     `toml:"max_increment"`     // random points added above the minimum bid
}

func DefaultTuning() Tuning {
	return Tuning{
		Tiers: []Tier{
			{Name: "S", MinScore: 90, Interest: 0.97, BudgetFraction: 0.14, Bomb: true},
			{Name: "A", MinScore: 75, Interest: 0.8, BudgetFraction: 0.08},
			{Name: "B", MinScore: 60, Interest: 0.55, BudgetFraction: 0.05, Bluffable: true},
			{Name: "C", MinScore: 40, Interest: 0.3, BudgetFraction: 0.03, Bluffable: true},
			{Name: "D", MinScore: 0, Interest: 0.1, BudgetFraction: 0.01},
		},
		CommitAfter:     4,
		HateDraftChance: 0.15,
		HateDraftBudget: 0.5,
		BluffChance:     0.05,
		BluffHeadroom:   2,
		ArchetypeBoost:  1.3,
		ColorBoost:      1.15,
		TypeNeedBoost:   1.1,
		GridDecay:       0.9,
		MinDecay:        0.4,
		ShortfallBoost:  0.5,
		MaxIncrement:    2,
	}
}

// LoadTuning decodes a TOML file over DefaultTuning. Keys missing from
// the file keep their defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read bot tuning: %w", err)
	}
	if err := toml.Unmarshal(b, &t); err != nil {
		return t, fmt.Errorf("decode bot tuning: %w", err)
	}
	if len(t.Tiers) == 0 {
		return t, fmt.Errorf("bot tuning %s defines no tiers", path)
	}
	return t, nil
}

func (t Tuning) tier(score float64) Tier {
	for _, tr := range t.Tiers {
		if score >= tr.MinScore {
			return tr
		}
	}
	return t.Tiers[len(t.Tiers)-1]
}
