package engine

import (
	"errors"
	"fmt"

	"github.com/tremby/discord-tagbot/internal/game"
)

// StateError reports a phase the engine can never legally observe, such as
// a recount encountering an archived game or a corrupted phase tag. It is
// fatal to the operation that raised it but local to that game.
type StateError struct {
	ChannelID string
	Status    game.Status
	Mode      Mode
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal game state %q in %s mode (channel=%s)", e.Status, e.Mode, e.ChannelID)
}

// IsStateError reports whether err is (or wraps) a StateError.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// RecoveryError reports that deadline recovery derived an unexpected phase
// from the recount. The recovery is aborted; the game is left untouched.
type RecoveryError struct {
	ChannelID string
	Got       game.Status
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("deadline recovery expected %q after recount, got %q (channel=%s)",
		game.StatusAwaitingMatch, e.Got, e.ChannelID)
}

// IsRecoveryError reports whether err is (or wraps) a RecoveryError.
func IsRecoveryError(err error) bool {
	var re *RecoveryError
	return errors.As(err, &re)
}
