// Package catalog resolves card ids to the scores and traits bots draft with.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

type Catalog struct {
	cards map[string]models.Card
}

func New(cards []models.Card) *Catalog {
	c := &Catalog{cards: make(map[string]models.Card, len(cards))}
	for _, card := range cards {
		c.cards[card.ID] = card
	}
	return c
}

// Lookup returns the card for id. Unknown ids are reported with ok=false
// and scored as zero by callers.
func (c *Catalog) Lookup(id string) (models.Card, bool) {
	if c == nil {
		return models.Card{}, false
	}
	card, ok := c.cards[id]
	return card, ok
}

func (c *Catalog) Score(id string) float64 {
	card, _ := c.Lookup(id)
	return card.Score
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.cards)
}

// IDs returns every card id in the catalog, in no particular order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, c.Len())
	for id := range c.cards {
		ids = append(ids, id)
	}
	return ids
}

// Cards returns every card in the catalog, in no particular order.
func (c *Catalog) Cards() []models.Card {
	out := make([]models.Card, 0, c.Len())
	for _, card := range c.cards {
		out = append(out, card)
	}
	return out
}

// LoadFile reads a JSON array of cards.
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	var cards []models.Card
	if err := json.Unmarshal(b, &cards); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", path, err)
	}
	return New(cards), nil
}
