package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

const (
	uniqueViolation = "23505"

	pickCardKey = "picks_session_card_key"
	pickSlotKey = "picks_session_slot_key"
	seatKey     = "players_session_seat_key"
)

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

// conflictOf maps a unique violation on one of the draft constraints to
// its Result. Any other error is returned unchanged.
func conflictOf(err error) (Result, error) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case pickCardKey:
			return ConflictCard, nil
		case pickSlotKey, seatKey:
			return ConflictSlot, nil
		}
	}
	return 0, err
}

func sessionArgs(s *models.Session) ([]any, error) {
	var auction []byte
	seq := 0
	if s.Auction != nil {
		b, err := json.Marshal(s.Auction)
		if err != nil {
			return nil, fmt.Errorf("encode auction state: %w", err)
		}
		auction = b
		seq = s.Auction.Seq
	}
	return []any{
		s.ID,
		string(s.Status),
		s.CurrentUnit,
		s.CurrentPick,
		int(s.Direction),
		s.PickStartedAt,
		s.Pause.Paused,
		s.Pause.RemainingAtPause.Milliseconds(),
		s.Pause.ResumeAt,
		nonNil(s.GridRemaining),
		seq,
		auction,
	}, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var (
		s         models.Session
		mode      string
		status    string
		direction int
		pausedMs  int64
		units     []byte
		auction   []byte
	)
	err := row.Scan(
		&s.ID,
		&s.RoomCode,
		&mode,
		&status,
		&s.PlayerCount,
		&s.CardsPerPlayer,
		&s.UnitSize,
		&s.BurnPerUnit,
		&s.TimerSeconds,
		&s.CurrentUnit,
		&s.CurrentPick,
		&direction,
		&s.PickStartedAt,
		&s.Pause.Paused,
		&pausedMs,
		&s.Pause.ResumeAt,
		&units,
		&s.GridRemaining,
		&auction,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Mode = models.Mode(mode)
	s.Status = models.Status(status)
	s.Direction = models.Direction(direction)
	s.Pause.RemainingAtPause = time.Duration(pausedMs) * time.Millisecond
	if len(units) > 0 {
		if err := json.Unmarshal(units, &s.Units); err != nil {
			return nil, fmt.Errorf("decode units: %w", err)
		}
	}
	if len(auction) > 0 {
		s.Auction = &models.AuctionState{}
		if err := json.Unmarshal(auction, s.Auction); err != nil {
			return nil, fmt.Errorf("decode auction state: %w", err)
		}
	}
	return &s, nil
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	err := row.Scan(
		&p.ID,
		&p.SessionID,
		&p.Name,
		&p.Seat,
		&p.IsHost,
		&p.IsBot,
		&p.IsConnected,
		&p.Hand,
		&p.BiddingPoints,
		&p.AcquiredThisUnit,
		&p.PickMade,
		&p.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPick(row pgx.Row) (models.Pick, error) {
	var pk models.Pick
	err := row.Scan(
		&pk.SessionID,
		&pk.PlayerID,
		&pk.CardID,
		&pk.Unit,
		&pk.PickNumber,
		&pk.Cost,
		&pk.PickTimeSeconds,
		&pk.WasAutoPick,
		&pk.CreatedAt,
	)
	return pk, err
}

func (s *PgStore) CreateSession(ctx context.Context, sess *models.Session, host *models.Player) error {
	units, err := json.Marshal(sess.Units)
	if err != nil {
		return fmt.Errorf("encode units: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, room_code, mode, status, player_count, cards_per_player, unit_size,
			burn_per_unit, timer_seconds, direction, units)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, sess.ID, sess.RoomCode, string(sess.Mode), string(sess.Status), sess.PlayerCount, sess.CardsPerPlayer,
		sess.UnitSize, sess.BurnPerUnit, sess.TimerSeconds, int(sess.Direction), units)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if host != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO players (id, session_id, name, seat, is_host, is_bot, is_connected, current_hand, bidding_points)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, host.ID, host.SessionID, host.Name, host.Seat, host.IsHost, host.IsBot, host.IsConnected,
			nonNil(host.Hand), host.BiddingPoints)
		if err != nil {
			return fmt.Errorf("failed to create host player: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	sess, err := scanSession(s.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

func (s *PgStore) GetSessionByRoomCode(ctx context.Context, code string) (*models.Session, error) {
	sess, err := scanSession(s.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE room_code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session by room code: %w", err)
	}
	return sess, nil
}

func (s *PgStore) ListSessionsByStatus(ctx context.Context, status models.Status) ([]*models.Session, error) {
	rows, err := s.db.Query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE status = $1 ORDER BY created_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// DeleteSession removes the session; players, picks, burned cards and bid
// events go with it through ON DELETE CASCADE.
func (s *PgStore) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) AddPlayer(ctx context.Context, p *models.Player) (Result, error) {
	// CTE locks the session row and enforces status='waiting' and the seat count
	const query = `
WITH locked AS (
  SELECT s.id
  FROM sessions s
  WHERE s.id = $1
    AND s.status = 'waiting'
    AND (SELECT COUNT(*) FROM players x WHERE x.session_id = s.id) < s.player_count
  FOR UPDATE
)
INSERT INTO players (id, session_id, name, seat, is_host, is_bot, is_connected, current_hand, bidding_points)
SELECT $2, l.id, $3, $4, $5, $6, $7, $8, $9
FROM locked l
RETURNING joined_at;
`
	err := s.db.QueryRow(ctx, query, p.SessionID, p.ID, p.Name, p.Seat, p.IsHost, p.IsBot, p.IsConnected,
		nonNil(p.Hand), p.BiddingPoints).Scan(&p.JoinedAt)
	if err != nil {
		// zero rows means the session isn't waiting, is full or doesn't exist
		if errors.Is(err, pgx.ErrNoRows) {
			return ConflictStale, nil
		}
		if res, cerr := conflictOf(err); cerr == nil {
			return res, nil
		}
		return 0, fmt.Errorf("failed to add player: %w", err)
	}
	return Applied, nil
}

func (s *PgStore) RemovePlayer(ctx context.Context, id string) (Result, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM players p
		USING sessions s
		WHERE p.id = $1 AND s.id = p.session_id AND s.status = 'waiting'
	`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to remove player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ConflictStale, nil
	}
	return Applied, nil
}

func (s *PgStore) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	p, err := scanPlayer(s.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

func (s *PgStore) ListPlayers(ctx context.Context, sessionID string) ([]*models.Player, error) {
	rows, err := s.db.Query(ctx, `SELECT `+playerColumns+` FROM players WHERE session_id = $1 ORDER BY seat`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *PgStore) UpdatePlayer(ctx context.Context, p *models.Player, cond PlayerCond) (Result, error) {
	query, args := updatePlayerSQL(cond, []any{p.ID, p.Seat, nonNil(p.Hand), p.BiddingPoints, p.AcquiredThisUnit, p.PickMade})
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ConflictStale, nil
	}
	return Applied, nil
}

// RecordPick stores the pick and the player's new hand in one transaction.
// The player update carries cond; if it matches no row nothing is written.
func (s *PgStore) RecordPick(ctx context.Context, pk models.Pick, p *models.Player, cond PlayerCond) (Result, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args := updatePlayerSQL(cond, []any{p.ID, p.Seat, nonNil(p.Hand), p.BiddingPoints, p.AcquiredThisUnit, p.PickMade})
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ConflictStale, nil
	}

	if err := insertPick(ctx, tx, pk); err != nil {
		res, cerr := conflictOf(err)
		if cerr != nil {
			return 0, fmt.Errorf("failed to insert pick: %w", cerr)
		}
		return res, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit pick: %w", err)
	}
	return Applied, nil
}

func (s *PgStore) SetConnected(ctx context.Context, playerID string, connected bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE players SET is_connected = $2 WHERE id = $1`, playerID, connected)
	if err != nil {
		return fmt.Errorf("failed to set connection status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertPick(ctx context.Context, q interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}, pk models.Pick) error {
	_, err := q.Exec(ctx, `
		INSERT INTO picks (session_id, player_id, card_id, unit_number, pick_number, cost, pick_time_seconds, was_auto_pick)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, pk.SessionID, pk.PlayerID, pk.CardID, pk.Unit, pk.PickNumber, pk.Cost, pk.PickTimeSeconds, pk.WasAutoPick)
	return err
}

func (s *PgStore) InsertPick(ctx context.Context, pk models.Pick) (Result, error) {
	if err := insertPick(ctx, s.db, pk); err != nil {
		res, cerr := conflictOf(err)
		if cerr != nil {
			return 0, fmt.Errorf("failed to insert pick: %w", cerr)
		}
		return res, nil
	}
	return Applied, nil
}

func (s *PgStore) GetPickBySlot(ctx context.Context, sessionID, playerID string, unit, pickNumber int) (*models.Pick, error) {
	pk, err := scanPick(s.db.QueryRow(ctx, `
		SELECT `+pickColumns+`
		FROM picks
		WHERE session_id = $1 AND player_id = $2 AND unit_number = $3 AND pick_number = $4
	`, sessionID, playerID, unit, pickNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pick: %w", err)
	}
	return &pk, nil
}

func (s *PgStore) ListPicks(ctx context.Context, sessionID string) ([]models.Pick, error) {
	rows, err := s.db.Query(ctx, `SELECT `+pickColumns+` FROM picks WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	picks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Pick, error) {
		return scanPick(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan picks: %w", err)
	}
	return picks, nil
}

func (s *PgStore) ListBurned(ctx context.Context, sessionID string) ([]models.BurnedCard, error) {
	rows, err := s.db.Query(ctx, `
		SELECT session_id, card_id, unit_number, seat, created_at
		FROM burned_cards WHERE session_id = $1 ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list burned cards: %w", err)
	}
	burned, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.BurnedCard, error) {
		var b models.BurnedCard
		err := row.Scan(&b.SessionID, &b.CardID, &b.Unit, &b.Seat, &b.CreatedAt)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan burned cards: %w", err)
	}
	return burned, nil
}

func (s *PgStore) ListBidEvents(ctx context.Context, sessionID string) ([]models.BidEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT session_id, unit_number, card_id, player_id, amount, passed, created_at
		FROM bid_events WHERE session_id = $1 ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bid events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.BidEvent, error) {
		var e models.BidEvent
		err := row.Scan(&e.SessionID, &e.Unit, &e.CardID, &e.PlayerID, &e.Amount, &e.Passed, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan bid events: %w", err)
	}
	return events, nil
}

// Commit applies mut in one transaction. The session update carries the
// guard; if it matches no row nothing else is written.
func (s *PgStore) Commit(ctx context.Context, mut Mutation) (Result, error) {
	if mut.Session == nil {
		return 0, fmt.Errorf("commit without session")
	}
	args, err := sessionArgs(mut.Session)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args := updateSessionSQL(mut.Cond, args)
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ConflictStale, nil
	}

	for _, p := range mut.Players {
		tag, err := tx.Exec(ctx, `
			UPDATE players
			SET seat = $3, current_hand = $4, bidding_points = $5, cards_acquired_this_unit = $6, pick_made = $7
			WHERE id = $1 AND session_id = $2
		`, p.ID, mut.Session.ID, p.Seat, nonNil(p.Hand), p.BiddingPoints, p.AcquiredThisUnit, p.PickMade)
		if err != nil {
			return 0, fmt.Errorf("failed to update player %s: %w", p.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return 0, fmt.Errorf("player %s not in session %s", p.ID, mut.Session.ID)
		}
	}

	for _, pk := range mut.Picks {
		if err := insertPick(ctx, tx, pk); err != nil {
			res, cerr := conflictOf(err)
			if cerr != nil {
				return 0, fmt.Errorf("failed to insert pick: %w", cerr)
			}
			return res, nil
		}
	}

	for _, b := range mut.Burned {
		_, err := tx.Exec(ctx, `
			INSERT INTO burned_cards (session_id, card_id, unit_number, seat) VALUES ($1, $2, $3, $4)
		`, b.SessionID, b.CardID, b.Unit, b.Seat)
		if err != nil {
			return 0, fmt.Errorf("failed to burn card %s: %w", b.CardID, err)
		}
	}

	for _, e := range mut.BidEvents {
		_, err := tx.Exec(ctx, `
			INSERT INTO bid_events (session_id, unit_number, card_id, player_id, amount, passed)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.SessionID, e.Unit, e.CardID, e.PlayerID, e.Amount, e.Passed)
		if err != nil {
			return 0, fmt.Errorf("failed to record bid event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		// deferred seat constraint is checked at commit
		if res, cerr := conflictOf(err); cerr == nil {
			return res, nil
		}
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return Applied, nil
}
