package brackets

import (
	"errors"
	"fmt"
	"time"

	"github.com/Aibek0/bracket-engine/models"
)

var (
	// ErrTeamNotFound signals a standings row referencing a team the
	// bracket's participant set does not contain. Treated as a bug in the
	// caller's data, not a retryable condition.
	ErrTeamNotFound = errors.New("brackets: team not found")

	// ErrLoserMissing signals a finished match whose losing side has no
	// team id. Invariant violation.
	ErrLoserMissing = errors.New("brackets: finished match has no loser id")

	ErrGroupsNotFinished = errors.New("brackets: not all group matches are finished")

	// ErrNegativePlacementsUnsupported is returned when negative (losers
	// bracket) placements are requested from a bracket type that has no
	// losers bracket.
	ErrNegativePlacementsUnsupported = errors.New("brackets: negative placements only supported for double elimination sources")

	// ErrPositivePlacementsUnsupported mirrors the source implementation:
	// double elimination feeds later stages from losers rounds only.
	ErrPositivePlacementsUnsupported = errors.New("brackets: positive placements not supported for double elimination sources")
)

// SourceResult is the outcome of resolving a bracket's placement range for
// a downstream stage. RelevantMatchesFinished false means "not ready yet",
// not an error.
type SourceResult struct {
	RelevantMatchesFinished bool
	Teams                   []models.StandingTeam
}

// CreateArgs carries everything a bracket needs: its immutable data
// snapshot plus the tournament-level team summaries (seed order, dropout
// flags) the standings tie-breaks depend on.
type CreateArgs struct {
	ID                  int
	Name                string
	Type                models.BracketType
	Preview             bool
	Data                *models.BracketData
	Sources             []models.BracketSource
	CanBeStarted        bool
	TeamsPendingCheckIn []int
	CreatedAt           time.Time
	Teams               []models.StandingTeam
}

// Bracket is one stage of a tournament. Standings and source resolution
// are pure views recomputed from the data snapshot on every call.
type Bracket interface {
	ID() int
	Name() string
	Type() models.BracketType
	Preview() bool
	Data() *models.BracketData
	Sources() []models.BracketSource
	CanBeStarted() bool
	TeamsPendingCheckIn() []int
	CreatedAt() time.Time

	// EveryMatchOver reports whether every non-bye match has a winner.
	EveryMatchOver() bool

	// Standings computes the bracket's current placements.
	Standings() ([]models.Standing, error)

	// Source resolves which teams the given placements select for a
	// downstream stage.
	Source(placements []int) (*SourceResult, error)
}

// New constructs the bracket implementation for the stage type. The switch
// is exhaustive: an unknown type is a caller bug.
func New(args CreateArgs) (Bracket, error) {
	base := newBaseBracket(args)

	switch args.Type {
	case models.BracketSingleElimination:
		return &SingleEliminationBracket{baseBracket: base}, nil
	case models.BracketDoubleElimination:
		return &DoubleEliminationBracket{baseBracket: base}, nil
	case models.BracketRoundRobin:
		return &RoundRobinBracket{baseBracket: base}, nil
	case models.BracketSwiss:
		return &SwissBracket{baseBracket: base}, nil
	default:
		return nil, fmt.Errorf("brackets: unknown bracket type %q", args.Type)
	}
}

type baseBracket struct {
	id                  int
	name                string
	bracketType         models.BracketType
	preview             bool
	data                *models.BracketData
	sources             []models.BracketSource
	canBeStarted        bool
	teamsPendingCheckIn []int
	createdAt           time.Time
	teams               map[int]models.StandingTeam
}

func newBaseBracket(args CreateArgs) baseBracket {
	teams := make(map[int]models.StandingTeam, len(args.Teams))
	for _, team := range args.Teams {
		teams[team.ID] = team
	}

	return baseBracket{
		id:                  args.ID,
		name:                args.Name,
		bracketType:         args.Type,
		preview:             args.Preview,
		data:                args.Data,
		sources:             args.Sources,
		canBeStarted:        args.CanBeStarted,
		teamsPendingCheckIn: args.TeamsPendingCheckIn,
		createdAt:           args.CreatedAt,
		teams:               teams,
	}
}

func (b *baseBracket) ID() int                         { return b.id }
func (b *baseBracket) Name() string                    { return b.name }
func (b *baseBracket) Type() models.BracketType        { return b.bracketType }
func (b *baseBracket) Preview() bool                   { return b.preview }
func (b *baseBracket) Data() *models.BracketData       { return b.data }
func (b *baseBracket) Sources() []models.BracketSource { return b.sources }
func (b *baseBracket) CanBeStarted() bool              { return b.canBeStarted }
func (b *baseBracket) TeamsPendingCheckIn() []int      { return b.teamsPendingCheckIn }
func (b *baseBracket) CreatedAt() time.Time            { return b.createdAt }

func (b *baseBracket) EveryMatchOver() bool {
	if b.preview {
		return false
	}

	for _, match := range b.data.Matches {
		if match.IsBye() {
			continue
		}
		if !match.IsOver() {
			return false
		}
	}

	return true
}

// team resolves a tournament-level team summary, falling back to the
// bracket's own participant list when the tournament context is absent
// (standalone use, tests).
func (b *baseBracket) team(id int) (models.StandingTeam, error) {
	if team, ok := b.teams[id]; ok {
		return team, nil
	}
	for _, participant := range b.data.Participants {
		if participant.ID == id {
			return models.StandingTeam{ID: id, Name: participant.Name}, nil
		}
	}
	return models.StandingTeam{}, fmt.Errorf("%w: id %d", ErrTeamNotFound, id)
}

func (b *baseBracket) teamsWithNames(ids []int) ([]models.StandingTeam, error) {
	teams := make([]models.StandingTeam, 0, len(ids))
	for _, id := range ids {
		team, err := b.team(id)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, nil
}

// positiveSource resolves "Nth place overall" placements from standings.
// Shared by every bracket type that feeds downstream stages by placement.
func (b *baseBracket) positiveSource(placements []int, standings []models.Standing) (*SourceResult, error) {
	for _, placement := range placements {
		if placement < 1 {
			return nil, fmt.Errorf("%w: placement %d", ErrNegativePlacementsUnsupported, placement)
		}
	}

	wanted := make(map[int]bool, len(placements))
	for _, placement := range placements {
		wanted[placement] = true
	}

	teams := make([]models.StandingTeam, 0, len(placements))
	for _, standing := range standings {
		if wanted[standing.Placement] {
			teams = append(teams, standing.Team)
		}
	}

	return &SourceResult{
		RelevantMatchesFinished: b.EveryMatchOver(),
		Teams:                   teams,
	}, nil
}

func minGroupID(data *models.BracketData) int {
	min := data.Groups[0].ID
	for _, group := range data.Groups[1:] {
		if group.ID < min {
			min = group.ID
		}
	}
	return min
}

func maxGroupID(data *models.BracketData) int {
	max := data.Groups[0].ID
	for _, group := range data.Groups[1:] {
		if group.ID > max {
			max = group.ID
		}
	}
	return max
}
