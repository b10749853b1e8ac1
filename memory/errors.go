package memory

import "errors"

var (
	// errNoTurns is returned when Add is called with nothing to persist.
	errNoTurns = errors.New("no turns to persist")
)
