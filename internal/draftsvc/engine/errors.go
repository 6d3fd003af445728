package engine

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeNotInSession       Code = "not_in_session"
	CodeNotHost            Code = "not_host"
	CodeInvalidConfig      Code = "invalid_config"
	CodeNotEnoughCards     Code = "not_enough_cards"
	CodeSessionFull        Code = "session_full"
	CodeAlreadyStarted     Code = "already_started"
	CodeRosterIncomplete   Code = "roster_incomplete"
	CodeNotInProgress      Code = "not_in_progress"
	CodeWrongMode          Code = "wrong_mode"
	CodeWrongPhase         Code = "wrong_phase"
	CodePaused             Code = "paused"
	CodeNotYourTurn        Code = "not_your_turn"
	CodeCardNotInHand      Code = "card_not_in_hand"
	CodeCardAlreadyPicked  Code = "card_already_picked"
	CodeCardNotAvailable   Code = "card_not_available"
	CodeBidTooLow          Code = "bid_too_low"
	CodeInsufficientPoints Code = "insufficient_points"
	CodeAtCap              Code = "at_cap"
	CodeNotABot            Code = "not_a_bot"
)

// ValidationError rejects a caller action without changing any state.
type ValidationError struct {
	Code Code
	Msg  string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Is matches on code, so wrapped or reworded errors still compare equal
// to the sentinels below.
func (e *ValidationError) Is(target error) bool {
	var t *ValidationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func invalid(code Code, format string, args ...any) error {
	return &ValidationError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrSessionNotFound    = &ValidationError{CodeNotFound, "session not found"}
	ErrNotInSession       = &ValidationError{CodeNotInSession, "player is not in this session"}
	ErrNotHost            = &ValidationError{CodeNotHost, "only the host can do that"}
	ErrSessionFull        = &ValidationError{CodeSessionFull, "session is full"}
	ErrAlreadyStarted     = &ValidationError{CodeAlreadyStarted, "session already started"}
	ErrRosterIncomplete   = &ValidationError{CodeRosterIncomplete, "not every seat is filled"}
	ErrNotInProgress      = &ValidationError{CodeNotInProgress, "session is not in progress"}
	ErrWrongMode          = &ValidationError{CodeWrongMode, "action does not apply to this draft mode"}
	ErrWrongPhase         = &ValidationError{CodeWrongPhase, "action does not apply to the current auction phase"}
	ErrPaused             = &ValidationError{CodePaused, "session is paused"}
	ErrNotYourTurn        = &ValidationError{CodeNotYourTurn, "not your turn"}
	ErrCardNotInHand      = &ValidationError{CodeCardNotInHand, "card is not in your hand"}
	ErrCardAlreadyPicked  = &ValidationError{CodeCardAlreadyPicked, "card was already picked"}
	ErrCardNotAvailable   = &ValidationError{CodeCardNotAvailable, "card is not in the grid"}
	ErrBidTooLow          = &ValidationError{CodeBidTooLow, "bid must exceed the current bid"}
	ErrInsufficientPoints = &ValidationError{CodeInsufficientPoints, "not enough bidding points"}
	ErrAtCap              = &ValidationError{CodeAtCap, "already holding the maximum cards for this grid"}
	ErrNotABot            = &ValidationError{CodeNotABot, "player is not a bot"}
)

// ErrUnavailable wraps failures of the store or other collaborators.
var ErrUnavailable = errors.New("draft service unavailable")

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
