package store

import (
	"fmt"
	"strings"
)

// guardSQL renders c as " AND col = $n" predicates, numbering placeholders
// after the args already collected. prefix qualifies the session columns.
func guardSQL(c Cond, prefix string, args []any) (string, []any) {
	var b strings.Builder
	add := func(col string, v any) {
		args = append(args, v)
		fmt.Fprintf(&b, " AND %s%s = $%d", prefix, col, len(args))
	}
	if c.Status != nil {
		add("status", string(*c.Status))
	}
	if c.Unit != nil {
		add("current_unit", *c.Unit)
	}
	if c.Pick != nil {
		add("current_pick", *c.Pick)
	}
	if c.Paused != nil {
		add("paused", *c.Paused)
	}
	if c.AuctionSeq != nil {
		add("auction_seq", *c.AuctionSeq)
	}
	return b.String(), args
}

const sessionColumns = `id, room_code, mode, status, player_count, cards_per_player, unit_size,
	burn_per_unit, timer_seconds, current_unit, current_pick, direction, pick_started_at,
	paused, remaining_at_pause_ms, resume_at, units, grid_remaining, auction_state,
	created_at, updated_at`

const playerColumns = `id, session_id, name, seat, is_host, is_bot, is_connected, current_hand,
	bidding_points, cards_acquired_this_unit, pick_made, joined_at`

const pickColumns = `session_id, player_id, card_id, unit_number, pick_number, cost,
	pick_time_seconds, was_auto_pick, created_at`

// updateSessionSQL builds the guarded session update. Units are written
// once at creation and never updated.
func updateSessionSQL(c Cond, args []any) (string, []any) {
	guard, args := guardSQL(c, "", args)
	query := `
		UPDATE sessions
		SET status = $2, current_unit = $3, current_pick = $4, direction = $5,
			pick_started_at = $6, paused = $7, remaining_at_pause_ms = $8, resume_at = $9,
			grid_remaining = $10, auction_seq = $11, auction_state = $12, updated_at = NOW()
		WHERE id = $1` + guard
	return query, args
}

// updatePlayerSQL builds the guarded player update. The session guard is
// checked against the owning session row.
func updatePlayerSQL(c PlayerCond, args []any) (string, []any) {
	var b strings.Builder
	if c.PickMade != nil {
		args = append(args, *c.PickMade)
		fmt.Fprintf(&b, " AND p.pick_made = $%d", len(args))
	}
	guard, args := guardSQL(c.Session, "s.", args)
	query := `
		UPDATE players AS p
		SET seat = $2, current_hand = $3, bidding_points = $4, cards_acquired_this_unit = $5, pick_made = $6
		FROM sessions s
		WHERE p.id = $1 AND s.id = p.session_id` + b.String() + guard
	return query, args
}
