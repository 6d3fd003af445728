// Package timeout decides which automatic actions are due for a session.
// It only reads persisted timestamps and never mutates anything.
package timeout

import (
	"time"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

const (
	DefaultGrace       = 5 * time.Second
	DefaultBotLiveness = 3 * time.Second
)

type Kind string

const (
	AutoPick   Kind = "auto_pick"   // pack timer expired for a human
	AutoSelect Kind = "auto_select" // selection timer expired for a human selector
	AutoPass   Kind = "auto_pass"   // bid timer expired for a human bidder
	BotRetry   Kind = "bot_retry"   // a bot has not acted within the liveness window
)

type Action struct {
	Kind     Kind
	PlayerID string
}

type Monitor struct {
	Grace       time.Duration
	BotLiveness time.Duration
}

func New(grace, botLiveness time.Duration) Monitor {
	if grace <= 0 {
		grace = DefaultGrace
	}
	if botLiveness <= 0 {
		botLiveness = DefaultBotLiveness
	}
	return Monitor{Grace: grace, BotLiveness: botLiveness}
}

// Remaining is the time left on a timer of timerSeconds that started at
// startedAt. While paused or waiting out the resume countdown it is the
// value captured at pause time.
func Remaining(timerSeconds int, startedAt time.Time, pause models.Pause, now time.Time) time.Duration {
	if pause.Paused || pause.Waiting(now) {
		return pause.RemainingAtPause
	}
	return time.Duration(timerSeconds)*time.Second - now.Sub(startedAt)
}

// Check returns the actions due at now. Bot retries come before timeouts.
func (m Monitor) Check(snap *models.Snapshot, now time.Time) []Action {
	s := snap.Session
	if s == nil || s.Status != models.StatusInProgress {
		return nil
	}
	if s.Pause.Paused || s.Pause.Waiting(now) {
		return nil
	}
	if s.Mode.Grid() {
		return m.checkGrid(snap, now)
	}
	return m.checkPack(snap, now)
}

func (m Monitor) checkPack(snap *models.Snapshot, now time.Time) []Action {
	s := snap.Session
	if s.PickStartedAt == nil {
		return nil
	}
	elapsed := now.Sub(*s.PickStartedAt)
	expired := s.TimerSeconds > 0 && Remaining(s.TimerSeconds, *s.PickStartedAt, s.Pause, now) <= -m.Grace

	var retries, picks []Action
	for _, p := range snap.Players {
		if p.PickMade {
			continue
		}
		switch {
		case p.IsBot && elapsed >= m.BotLiveness:
			retries = append(retries, Action{Kind: BotRetry, PlayerID: p.ID})
		case !p.IsBot && expired:
			picks = append(picks, Action{Kind: AutoPick, PlayerID: p.ID})
		}
	}
	return append(retries, picks...)
}

func (m Monitor) checkGrid(snap *models.Snapshot, now time.Time) []Action {
	s := snap.Session
	if s.Auction == nil {
		return nil
	}
	switch ph := s.Auction.Phase.(type) {
	case models.Selecting:
		sel := snap.PlayerAtSeat(ph.SelectorSeat)
		if sel == nil || s.PickStartedAt == nil {
			return nil
		}
		if sel.IsBot {
			if now.Sub(*s.PickStartedAt) >= m.BotLiveness {
				return []Action{{Kind: BotRetry, PlayerID: sel.ID}}
			}
			return nil
		}
		if s.TimerSeconds > 0 && Remaining(s.TimerSeconds, *s.PickStartedAt, s.Pause, now) <= -m.Grace {
			return []Action{{Kind: AutoSelect, PlayerID: sel.ID}}
		}
	case models.Bidding:
		bidder := snap.PlayerAtSeat(ph.NextBidderSeat)
		if bidder == nil {
			return nil
		}
		if bidder.IsBot {
			if now.Sub(ph.BidStartedAt) >= m.BotLiveness {
				return []Action{{Kind: BotRetry, PlayerID: bidder.ID}}
			}
			return nil
		}
		timer := s.Auction.BidTimerSeconds
		if timer > 0 && Remaining(timer, ph.BidStartedAt, s.Pause, now) <= -m.Grace {
			return []Action{{Kind: AutoPass, PlayerID: bidder.ID}}
		}
	}
	return nil
}
