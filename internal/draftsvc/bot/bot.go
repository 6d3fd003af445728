// Package bot makes draft decisions for AI-controlled seats.
package bot

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

type Catalog interface {
	Lookup(id string) (models.Card, bool)
}

// Source is the randomness the bidder draws from. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

type Engine struct {
	catalog Catalog
	tuning  Tuning

	mu  sync.Mutex
	rng Source
}

func New(catalog Catalog, tuning Tuning, rng Source) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if len(tuning.Tiers) == 0 {
		tuning = DefaultTuning()
	}
	return &Engine{catalog: catalog, tuning: tuning, rng: rng}
}

func (e *Engine) score(id string) float64 {
	card, _ := e.catalog.Lookup(id)
	return card.Score
}

// RankHand orders a hand from best to worst pick. Equal scores keep
// their hand order.
func (e *Engine) RankHand(hand []string) []string {
	ranked := append([]string(nil), hand...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return e.score(ranked[i]) > e.score(ranked[j])
	})
	return ranked
}

// ChooseSelection picks the grid card a bot selector puts up for auction,
// favouring cards that fit what it already drafted.
func (e *Engine) ChooseSelection(pool, drafted []string) (string, bool) {
	if len(pool) == 0 {
		return "", false
	}
	prof := e.profile(drafted)
	best, bestValue := "", math.Inf(-1)
	for _, id := range pool {
		card, _ := e.catalog.Lookup(id)
		v := card.Score * e.fitMultiplier(card, prof)
		if v > bestValue {
			best, bestValue = id, v
		}
	}
	return best, true
}

// BidInput is everything a bot sees when it is the next bidder.
type BidInput struct {
	CardID      string
	Drafted     []string
	TotalPoints int // points every player started with
	Points      int // points this bot has left
	CurrentBid  int
	Grid        int // 1-based
	Acquired    int // cards won this grid
	Cap         int // cards each player takes per grid
	Remaining   int // cards left in the grid, the one up for bid included
}

// Bid returns the amount to bid, or ok=false to pass.
func (e *Engine) Bid(in BidInput) (amount int, ok bool) {
	card, _ := e.catalog.Lookup(in.CardID)
	tier := e.tuning.tier(card.Score)
	prof := e.profile(in.Drafted)
	fits := e.fits(card, prof)
	minBid := in.CurrentBid + 1

	e.mu.Lock()
	defer e.mu.Unlock()

	var willing float64
	switch {
	case !fits:
		if !tier.Bomb || e.rng.Float64() >= e.tuning.HateDraftChance {
			return 0, false
		}
		willing = e.willingness(card, tier, prof, in) * e.tuning.HateDraftBudget
	case e.rng.Float64() >= tier.Interest:
		if !tier.Bluffable || e.rng.Float64() >= e.tuning.BluffChance {
			return 0, false
		}
		willing = float64(in.CurrentBid + e.tuning.BluffHeadroom)
	default:
		willing = e.willingness(card, tier, prof, in)
	}

	if float64(minBid) > willing || minBid > in.Points {
		return 0, false
	}

	amount = minBid
	if e.tuning.MaxIncrement > 0 {
		amount += e.rng.Intn(e.tuning.MaxIncrement + 1)
	}
	if ceiling := int(math.Floor(willing)); amount > ceiling {
		amount = ceiling
	}
	if amount > in.Points {
		amount = in.Points
	}
	if amount < minBid {
		amount = minBid
	}
	return amount, true
}

func (e *Engine) willingness(card models.Card, tier Tier, prof profile, in BidInput) float64 {
	w := float64(in.TotalPoints) * tier.BudgetFraction * e.fitMultiplier(card, prof)

	if in.Grid > 1 {
		decay := math.Pow(e.tuning.GridDecay, float64(in.Grid-1))
		w *= math.Max(decay, e.tuning.MinDecay)
	}
	if need := in.Cap - in.Acquired; in.Cap > 0 && need > 0 && in.Remaining > 0 {
		// short once the grid barely holds enough cards to fill the gap
		short := math.Min(1, float64(need)/float64(in.Remaining))
		w *= 1 + e.tuning.ShortfallBoost*short
	}
	return w
}
