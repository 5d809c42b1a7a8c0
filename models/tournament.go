package models

import "time"

// TournamentStatus mirrors the ENUM in the database.
type TournamentStatus string

const (
	StatusSoon         TournamentStatus = "soon"
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

type Tournament struct {
	ID          int                `json:"id" db:"id"`
	Name        string             `json:"name" db:"name"`
	Description *string            `json:"description,omitempty" db:"description"`
	OrganizerID int                `json:"organizer_id" db:"organizer_id"`
	StartDate   time.Time          `json:"start_date" db:"start_date"`
	Status      TournamentStatus   `json:"status" db:"status"`
	IsFinalized bool               `json:"is_finalized" db:"is_finalized"`
	Settings    TournamentSettings `json:"settings" db:"-"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
	LogoKey     *string            `json:"-" db:"logo_key"`
	LogoURL     *string            `json:"logo_url,omitempty" db:"-"`

	// Optional linked entities, populated by the service layer.
	Teams  []Team  `json:"teams,omitempty" db:"-"`
	Stages []Stage `json:"stages,omitempty" db:"-"`
}
