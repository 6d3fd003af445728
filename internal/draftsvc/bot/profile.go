package bot

import (
	"sort"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

// profile summarises what a bot has drafted so far.
type profile struct {
	size       int
	colors     map[string]bool
	archetypes map[string]bool
	types      map[string]int
}

const profileColors = 2

func (e *Engine) profile(drafted []string) profile {
	p := profile{
		size:       len(drafted),
		colors:     map[string]bool{},
		archetypes: map[string]bool{},
		types:      map[string]int{},
	}
	colorCount := map[string]int{}
	archCount := map[string]int{}
	for _, id := range drafted {
		card, ok := e.catalog.Lookup(id)
		if !ok {
			continue
		}
		for _, c := range card.Colors {
			colorCount[c]++
		}
		for _, a := range card.Archetypes {
			archCount[a]++
		}
		if card.Type != "" {
			p.types[card.Type]++
		}
	}
	for _, c := range top(colorCount, profileColors) {
		p.colors[c] = true
	}
	for _, a := range top(archCount, 1) {
		p.archetypes[a] = true
	}
	return p
}

// top returns up to n keys with the highest counts, ties by name.
func top(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func (p profile) colorMatch(card models.Card) bool {
	if len(card.Colors) == 0 {
		return true
	}
	for _, c := range card.Colors {
		if !p.colors[c] {
			return false
		}
	}
	return true
}

func (p profile) archetypeMatch(card models.Card) bool {
	for _, a := range card.Archetypes {
		if p.archetypes[a] {
			return true
		}
	}
	return false
}

// typeNeeded reports whether the card's type is below an even share of
// the collection.
func (p profile) typeNeeded(card models.Card) bool {
	if card.Type == "" || p.size == 0 {
		return false
	}
	kinds := len(p.types)
	if p.types[card.Type] == 0 {
		kinds++
	}
	return p.types[card.Type]*kinds < p.size
}

// fits is false only once the bot has committed and the card is both
// off-color and off-archetype.
func (e *Engine) fits(card models.Card, p profile) bool {
	if p.size < e.tuning.CommitAfter {
		return true
	}
	return p.colorMatch(card) || p.archetypeMatch(card)
}

func (e *Engine) fitMultiplier(card models.Card, p profile) float64 {
	if p.size == 0 {
		return 1
	}
	m := 1.0
	if p.archetypeMatch(card) {
		m *= e.tuning.ArchetypeBoost
	}
	if len(card.Colors) > 0 && p.colorMatch(card) {
		m *= e.tuning.ColorBoost
	}
	if p.typeNeeded(card) {
		m *= e.tuning.TypeNeedBoost
	}
	return m
}
