package duel

import (
	"errors"
	"fmt"

	"github.com/gokatarajesh/duel-platform/internal/duel/queue"
)

// Error kinds. Refined errors wrap one of these so callers can use errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrTaskSelectionFailed = errors.New("task selection failed")
)

var (
	ErrUserNotFound          = fmt.Errorf("user %w", ErrNotFound)
	ErrDuelNotFound          = fmt.Errorf("duel %w", ErrNotFound)
	ErrConfigurationNotFound = fmt.Errorf("configuration %w", ErrNotFound)
	ErrInvitationNotFound    = fmt.Errorf("invitation %w", ErrNotFound)

	ErrAlreadyWaiting   = fmt.Errorf("%w: %w", ErrConflict, queue.ErrAlreadyWaiting)
	ErrActiveDuel       = fmt.Errorf("%w: user already has an active duel", ErrConflict)
	ErrAlreadyFinished  = fmt.Errorf("%w: duel already finished", ErrConflict)
	ErrNotInProgress    = fmt.Errorf("%w: duel is not in progress", ErrConflict)
	ErrInvitationExists = fmt.Errorf("%w: invitation already exists", ErrConflict)
	ErrLockHeld         = fmt.Errorf("%w: duel is locked", ErrConflict)
	ErrNotFinishable    = fmt.Errorf("%w: no finish condition holds yet", ErrConflict)

	ErrNotParticipant = fmt.Errorf("%w: not a duel participant", ErrForbidden)
	ErrInvalidWinner  = fmt.Errorf("%w: winner is not a duel participant", ErrForbidden)
	ErrSelfInvitation = fmt.Errorf("%w: cannot invite yourself", ErrForbidden)
)
