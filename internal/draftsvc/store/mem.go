package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

// MemStore keeps everything in memory behind a single mutex. It enforces
// the same guards and uniqueness rules as PgStore.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	players  map[string]*models.Player
	picks    map[string][]models.Pick
	burned   map[string][]models.BurnedCard
	bids     map[string][]models.BidEvent
	now      func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		sessions: map[string]*models.Session{},
		players:  map[string]*models.Player{},
		picks:    map[string][]models.Pick{},
		burned:   map[string][]models.BurnedCard{},
		bids:     map[string][]models.BidEvent{},
		now:      time.Now,
	}
}

func (m *MemStore) CreateSession(ctx context.Context, s *models.Session, host *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	for _, other := range m.sessions {
		if other.RoomCode == s.RoomCode {
			return fmt.Errorf("room code %s already in use", s.RoomCode)
		}
	}
	now := m.now()
	c := s.Clone()
	c.CreatedAt, c.UpdatedAt = now, now
	m.sessions[s.ID] = c
	if host != nil {
		h := host.Clone()
		h.JoinedAt = now
		m.players[h.ID] = h
	}
	return nil
}

func (m *MemStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemStore) GetSessionByRoomCode(ctx context.Context, code string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.RoomCode == code {
			return s.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemStore) ListSessionsByStatus(ctx context.Context, status models.Status) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Session
	for _, s := range m.sessions {
		if s.Status == status {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteSession removes the session and everything that belongs to it.
func (m *MemStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	for pid, p := range m.players {
		if p.SessionID == id {
			delete(m.players, pid)
		}
	}
	delete(m.picks, id)
	delete(m.burned, id)
	delete(m.bids, id)
	return nil
}

// AddPlayer reports ConflictSlot if the seat is taken and ConflictStale
// if the session is no longer waiting or already full.
func (m *MemStore) AddPlayer(ctx context.Context, p *models.Player) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[p.SessionID]
	if !ok {
		return 0, ErrNotFound
	}
	if s.Status != models.StatusWaiting {
		return ConflictStale, nil
	}
	count := 0
	for _, other := range m.players {
		if other.SessionID != p.SessionID {
			continue
		}
		if other.Seat == p.Seat {
			return ConflictSlot, nil
		}
		count++
	}
	if count >= s.PlayerCount {
		return ConflictStale, nil
	}
	c := p.Clone()
	c.JoinedAt = m.now()
	m.players[c.ID] = c
	return Applied, nil
}

// RemovePlayer deletes a player while the session is still waiting.
func (m *MemStore) RemovePlayer(ctx context.Context, id string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return 0, ErrNotFound
	}
	if s := m.sessions[p.SessionID]; s == nil || s.Status != models.StatusWaiting {
		return ConflictStale, nil
	}
	delete(m.players, id)
	return Applied, nil
}

func (m *MemStore) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *MemStore) ListPlayers(ctx context.Context, sessionID string) ([]*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listPlayers(sessionID), nil
}

func (m *MemStore) listPlayers(sessionID string) []*models.Player {
	var out []*models.Player
	for _, p := range m.players {
		if p.SessionID == sessionID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}

func (m *MemStore) UpdatePlayer(ctx context.Context, p *models.Player, cond PlayerCond) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.players[p.ID]
	if !ok {
		return 0, ErrNotFound
	}
	if !m.playerMatches(cur, cond) {
		return ConflictStale, nil
	}
	writeDraftFields(cur, p)
	return Applied, nil
}

func (m *MemStore) playerMatches(cur *models.Player, cond PlayerCond) bool {
	if cond.PickMade != nil && cur.PickMade != *cond.PickMade {
		return false
	}
	s := m.sessions[cur.SessionID]
	return s != nil && cond.Session.Matches(s)
}

// RecordPick stores the pick and writes p together, if cond still holds
// and neither pick constraint is violated.
func (m *MemStore) RecordPick(ctx context.Context, pick models.Pick, p *models.Player, cond PlayerCond) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.players[p.ID]
	if !ok {
		return 0, ErrNotFound
	}
	if !m.playerMatches(cur, cond) {
		return ConflictStale, nil
	}
	if res := m.pickConflict(pick, nil); res != Applied {
		return res, nil
	}
	writeDraftFields(cur, p)
	pick.CreatedAt = m.now()
	m.picks[pick.SessionID] = append(m.picks[pick.SessionID], pick)
	return Applied, nil
}

func (m *MemStore) SetConnected(ctx context.Context, playerID string, connected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return ErrNotFound
	}
	p.IsConnected = connected
	return nil
}

func (m *MemStore) InsertPick(ctx context.Context, pick models.Pick) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if res := m.pickConflict(pick, nil); res != Applied {
		return res, nil
	}
	pick.CreatedAt = m.now()
	m.picks[pick.SessionID] = append(m.picks[pick.SessionID], pick)
	return Applied, nil
}

func (m *MemStore) pickConflict(pick models.Pick, pending []models.Pick) Result {
	all := append(append([]models.Pick(nil), m.picks[pick.SessionID]...), pending...)
	for _, other := range all {
		if other.SessionID != pick.SessionID {
			continue
		}
		if other.CardID == pick.CardID {
			return ConflictCard
		}
		if other.PlayerID == pick.PlayerID && other.Unit == pick.Unit && other.PickNumber == pick.PickNumber {
			return ConflictSlot
		}
	}
	return Applied
}

func (m *MemStore) GetPickBySlot(ctx context.Context, sessionID, playerID string, unit, pickNumber int) (*models.Pick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, pk := range m.picks[sessionID] {
		if pk.PlayerID == playerID && pk.Unit == unit && pk.PickNumber == pickNumber {
			c := pk
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemStore) ListPicks(ctx context.Context, sessionID string) ([]models.Pick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Pick(nil), m.picks[sessionID]...), nil
}

func (m *MemStore) ListBurned(ctx context.Context, sessionID string) ([]models.BurnedCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.BurnedCard(nil), m.burned[sessionID]...), nil
}

func (m *MemStore) ListBidEvents(ctx context.Context, sessionID string) ([]models.BidEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.BidEvent(nil), m.bids[sessionID]...), nil
}

// Commit applies mut atomically if its condition holds against the stored session.
func (m *MemStore) Commit(ctx context.Context, mut Mutation) (Result, error) {
	if mut.Session == nil {
		return 0, fmt.Errorf("commit without session")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[mut.Session.ID]
	if !ok {
		return 0, ErrNotFound
	}
	if !mut.Cond.Matches(cur) {
		return ConflictStale, nil
	}
	var pending []models.Pick
	for _, pk := range mut.Picks {
		if res := m.pickConflict(pk, pending); res != Applied {
			return res, nil
		}
		pending = append(pending, pk)
	}
	for _, p := range mut.Players {
		if existing, ok := m.players[p.ID]; !ok || existing.SessionID != cur.ID {
			return 0, fmt.Errorf("player %s not in session %s", p.ID, cur.ID)
		}
	}

	now := m.now()
	next := mut.Session.Clone()
	next.Units = cur.Units
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = now
	m.sessions[cur.ID] = next

	for _, p := range mut.Players {
		writeDraftFields(m.players[p.ID], p)
	}
	for _, pk := range pending {
		pk.CreatedAt = now
		m.picks[cur.ID] = append(m.picks[cur.ID], pk)
	}
	for _, b := range mut.Burned {
		b.CreatedAt = now
		m.burned[cur.ID] = append(m.burned[cur.ID], b)
	}
	for _, e := range mut.BidEvents {
		e.CreatedAt = now
		m.bids[cur.ID] = append(m.bids[cur.ID], e)
	}
	return Applied, nil
}

func writeDraftFields(dst, src *models.Player) {
	dst.Seat = src.Seat
	dst.Hand = append([]string(nil), src.Hand...)
	dst.BiddingPoints = src.BiddingPoints
	dst.AcquiredThisUnit = src.AcquiredThisUnit
	dst.PickMade = src.PickMade
}
