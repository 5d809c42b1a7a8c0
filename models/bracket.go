package models

import "time"

// BracketType enumerates the supported stage formats.
type BracketType string

const (
	BracketSingleElimination BracketType = "single_elimination"
	BracketDoubleElimination BracketType = "double_elimination"
	BracketRoundRobin        BracketType = "round_robin"
	BracketSwiss             BracketType = "swiss"
)

func (t BracketType) IsElimination() bool {
	return t == BracketSingleElimination || t == BracketDoubleElimination
}

type OpponentResult string

const (
	ResultWin  OpponentResult = "win"
	ResultLoss OpponentResult = "loss"
)

// Opponent is one side of a match. A nil *Opponent on the match means a bye;
// a non-nil Opponent with a nil ID means the slot waits for an earlier match.
type Opponent struct {
	ID          *int           `json:"id"`
	Score       *int           `json:"score,omitempty"`
	Result      OpponentResult `json:"result,omitempty"`
	TotalPoints *int           `json:"totalPoints,omitempty"`
}

type Match struct {
	ID        int       `json:"id" db:"id"`
	StageID   int       `json:"stage_id" db:"stage_id"`
	GroupID   int       `json:"group_id" db:"group_id"`
	RoundID   int       `json:"round_id" db:"round_id"`
	Number    int       `json:"number" db:"number"`
	Opponent1 *Opponent `json:"opponent1"`
	Opponent2 *Opponent `json:"opponent2"`
}

// IsBye reports whether the match has only one real opponent.
func (m *Match) IsBye() bool {
	return m.Opponent1 == nil || m.Opponent2 == nil
}

// IsOver reports whether exactly one opponent has recorded a win.
func (m *Match) IsOver() bool {
	if m.IsBye() {
		return false
	}
	return m.Opponent1.Result == ResultWin || m.Opponent2.Result == ResultWin
}

// Winner returns the winning opponent of a finished match, nil otherwise.
func (m *Match) Winner() *Opponent {
	if m.IsBye() {
		return nil
	}
	if m.Opponent1.Result == ResultWin {
		return m.Opponent1
	}
	if m.Opponent2.Result == ResultWin {
		return m.Opponent2
	}
	return nil
}

// Loser returns the losing opponent of a finished match, nil otherwise.
func (m *Match) Loser() *Opponent {
	if m.IsBye() {
		return nil
	}
	if m.Opponent1.Result == ResultWin {
		return m.Opponent2
	}
	if m.Opponent2.Result == ResultWin {
		return m.Opponent1
	}
	return nil
}

// Group is a semantic partition within a stage. In double elimination
// number 1 is the winners bracket, 2 the losers bracket and 3 the grand
// finals; in round robin and swiss groups are parallel pools.
type Group struct {
	ID      int `json:"id" db:"id"`
	StageID int `json:"stage_id" db:"stage_id"`
	Number  int `json:"number" db:"number"`
}

type MapListType string

const (
	MapListBestOf  MapListType = "BEST_OF"
	MapListPlayAll MapListType = "PLAY_ALL"
)

// RoundMaps describes how many maps a round's matches are played on.
type RoundMaps struct {
	Count int         `json:"count"`
	Type  MapListType `json:"type"`
}

type Round struct {
	ID      int        `json:"id" db:"id"`
	StageID int        `json:"stage_id" db:"stage_id"`
	GroupID int        `json:"group_id" db:"group_id"`
	Number  int        `json:"number" db:"number"`
	Maps    *RoundMaps `json:"maps,omitempty" db:"-"`
}

type Stage struct {
	ID           int           `json:"id" db:"id"`
	TournamentID int           `json:"tournament_id" db:"tournament_id"`
	Name         string        `json:"name" db:"name"`
	Number       int           `json:"number" db:"number"`
	Type         BracketType   `json:"type" db:"type"`
	Settings     StageSettings `json:"settings" db:"-"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// BracketParticipant is a team as seen from inside one stage's data set.
type BracketParticipant struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// BracketData is the normalized snapshot of one stage: the shape produced
// by the skeleton provider and re-read from persistence after mutation.
type BracketData struct {
	Stages       []Stage              `json:"stage"`
	Groups       []Group              `json:"group"`
	Rounds       []Round              `json:"round"`
	Matches      []*Match             `json:"match"`
	Participants []BracketParticipant `json:"participant"`
}

// InsertableMatch is a newly generated match row handed to persistence,
// currently only produced by swiss round generation.
type InsertableMatch struct {
	StageID     int       `json:"stage_id"`
	GroupID     int       `json:"group_id"`
	RoundID     int       `json:"round_id"`
	Number      int       `json:"number"`
	OpponentOne *Opponent `json:"opponent_one"`
	OpponentTwo *Opponent `json:"opponent_two"`
}
