package models

import (
	"encoding/json"
	"time"
)

// PreparedRoundMaps is a pre-authored map list for one round of a bracket
// that has not started yet. The list content itself is opaque to the
// engine; it only re-slots lists onto rounds.
type PreparedRoundMaps struct {
	GroupID int             `json:"groupId"`
	RoundID int             `json:"roundId"`
	Count   int             `json:"count"`
	Type    MapListType     `json:"type"`
	List    json.RawMessage `json:"list,omitempty"`
}

// PreparedMaps is the full pre-authored map set for one bracket.
// EliminationTeamCount records which team-count bucket the maps were
// prepared for; nil for non-elimination brackets.
type PreparedMaps struct {
	AuthorID             int                 `json:"authorId"`
	CreatedAt            time.Time           `json:"createdAt"`
	Maps                 []PreparedRoundMaps `json:"maps"`
	EliminationTeamCount *int                `json:"eliminationTeamCount,omitempty"`
}
