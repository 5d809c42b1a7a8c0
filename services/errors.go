package services

import "errors"

// Shared errors surfaced by the service layer and mapped onto HTTP status
// codes by the handlers.
var (
	ErrNotFound = errors.New("requested resource not found")

	// validation and business rules
	ErrValidationFailed   = errors.New("validation failed")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTeamNameRequired   = errors.New("team name is required")

	// conflicts
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrUserNicknameConflict   = errors.New("nickname is already in use")
	ErrTeamNameConflict       = errors.New("team name is already in use in this tournament")
	ErrTournamentNameConflict = errors.New("tournament name already exists for this organizer")
	ErrCheckInConflict        = errors.New("team already checked in for this bracket")

	// authentication and authorization
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// entity-specific lookups
	ErrUserNotFound       = errors.New("user not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrBracketNotFound    = errors.New("bracket not found")
	ErrMatchNotFound      = errors.New("match not found")

	// tournament lifecycle
	ErrRegistrationNotOpen     = errors.New("tournament registration is not open")
	ErrTournamentFinalized     = errors.New("tournament is already finalized")
	ErrTournamentNotOver       = errors.New("tournament still has unfinished brackets")
	ErrBracketAlreadyStarted   = errors.New("bracket has already started")
	ErrBracketCannotStart      = errors.New("bracket cannot be started yet")
	ErrBracketNotStarted       = errors.New("bracket has not started")
	ErrCheckInClosed           = errors.New("check-in is not open")
	ErrMatchReopenBlocked      = errors.New("match result can no longer be reopened")
	ErrInvalidStatusTransition = errors.New("invalid tournament status transition")
)
