package engine

import (
	"fmt"
	"sort"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

// CheckConservation verifies that drafted, burned and remaining cards
// partition the session pool with no card in two places.
func CheckConservation(snap *models.Snapshot) error {
	s := snap.Session
	where := map[string]string{}
	var dup []string
	place := func(id, kind string) {
		if prev, ok := where[id]; ok {
			dup = append(dup, fmt.Sprintf("%s (%s and %s)", id, prev, kind))
			return
		}
		where[id] = kind
	}

	for _, pk := range snap.Picks {
		place(pk.CardID, "drafted")
	}
	for _, b := range snap.Burned {
		place(b.CardID, "burned")
	}
	for _, id := range remaining(snap) {
		place(id, "remaining")
	}

	pool := map[string]bool{}
	for _, u := range s.Units {
		for _, id := range u {
			pool[id] = true
		}
	}
	var missing, extra []string
	for id := range pool {
		if _, ok := where[id]; !ok {
			missing = append(missing, id)
		}
	}
	for id := range where {
		if !pool[id] {
			extra = append(extra, id)
		}
	}
	if len(dup)+len(missing)+len(extra) == 0 {
		return nil
	}
	sort.Strings(dup)
	sort.Strings(missing)
	sort.Strings(extra)
	return fmt.Errorf("session %s pool mismatch: duplicated=%v missing=%v unknown=%v", s.ID, dup, missing, extra)
}

// remaining lists cards not yet drafted or burned: cards in hands or the
// open grid, plus units not dealt yet.
func remaining(snap *models.Snapshot) []string {
	s := snap.Session
	var out []string
	if s.Status == models.StatusWaiting {
		for _, u := range s.Units {
			out = append(out, u...)
		}
		return out
	}
	if s.Mode.Grid() {
		out = append(out, s.GridRemaining...)
		for i := s.CurrentUnit; i < len(s.Units); i++ {
			out = append(out, s.Units[i]...)
		}
		return out
	}
	for _, p := range snap.Players {
		out = append(out, p.Hand...)
	}
	for i := s.CurrentUnit * s.PlayerCount; i < len(s.Units); i++ {
		out = append(out, s.Units[i]...)
	}
	return out
}
