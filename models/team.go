package models

import "time"

// TeamCheckIn records that a team checked in, either to the tournament as
// a whole (BracketIdx == 0, the regular check-in window) or to a specific
// later bracket.
type TeamCheckIn struct {
	BracketIdx  int       `json:"bracket_idx" db:"bracket_idx"`
	CheckedInAt time.Time `json:"checked_in_at" db:"checked_in_at"`
}

// Team is a tournament team. Seed is not stored: it is derived from the
// team's position in the tournament's ordered team list.
type Team struct {
	ID           int           `json:"id" db:"id"`
	TournamentID int           `json:"tournament_id" db:"tournament_id"`
	Name         string        `json:"name" db:"name"`
	DroppedOut   bool          `json:"dropped_out" db:"dropped_out"`
	CheckIns     []TeamCheckIn `json:"check_ins,omitempty" db:"-"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	LogoKey      *string       `json:"-" db:"logo_key"`
	LogoURL      *string       `json:"logo_url,omitempty" db:"-"`
}
