package models

// BracketSource attaches a stage's participant list to placement ranges of
// an earlier stage. Positive placements mean "Nth place overall"; negative
// placements mean "eliminated N rounds from the end of the losers bracket"
// (double elimination only).
type BracketSource struct {
	BracketIdx int   `json:"bracketIdx"`
	Placements []int `json:"placements"`
}

type BracketProgressionEntry struct {
	Type    BracketType     `json:"type"`
	Name    string          `json:"name"`
	Sources []BracketSource `json:"sources,omitempty"`
}

type SwissSettings struct {
	GroupCount int `json:"groupCount"`
	RoundCount int `json:"roundCount"`
}

// TournamentSettings are the organizer-configured knobs read by the
// orchestrator when it builds preview brackets.
type TournamentSettings struct {
	BracketProgression []BracketProgressionEntry `json:"bracketProgression"`
	ThirdPlaceMatch    *bool                     `json:"thirdPlaceMatch,omitempty"`
	TeamsPerGroup      int                       `json:"teamsPerGroup,omitempty"`
	Swiss              *SwissSettings            `json:"swiss,omitempty"`
}

// StageSettings is what the skeleton provider receives for one stage.
type StageSettings struct {
	ConsolationFinal *bool          `json:"consolationFinal,omitempty"`
	GrandFinal       string         `json:"grandFinal,omitempty"`
	GroupCount       int            `json:"groupCount,omitempty"`
	Swiss            *SwissSettings `json:"swiss,omitempty"`
}
