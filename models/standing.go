package models

// StandingStats carries the accumulated tie-break metrics for one team.
// BuchholzSets and BuchholzMaps are only filled for swiss stages.
type StandingStats struct {
	SetWins         int  `json:"setWins"`
	SetLosses       int  `json:"setLosses"`
	MapWins         int  `json:"mapWins"`
	MapLosses       int  `json:"mapLosses"`
	Points          int  `json:"points"`
	WinsAgainstTied int  `json:"winsAgainstTied"`
	BuchholzSets    *int `json:"buchholzSets,omitempty"`
	BuchholzMaps    *int `json:"buchholzMaps,omitempty"`
}

// StandingTeam identifies a team within standings output. Seed is the
// 1-based rank derived from the tournament's ordered team list.
type StandingTeam struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Seed       int    `json:"seed,omitempty"`
	DroppedOut bool   `json:"dropped_out,omitempty"`
	LogoURL    string `json:"logo_url,omitempty"`
}

// Standing is one row of a bracket's derived standings. Placement is
// 1-based; tied teams share a placement and the next distinct placement
// continues from the count of teams encountered plus one.
type Standing struct {
	Team      StandingTeam   `json:"team"`
	Placement int            `json:"placement"`
	GroupID   *int           `json:"group_id,omitempty"`
	Stats     *StandingStats `json:"stats,omitempty"`
}
