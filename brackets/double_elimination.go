package brackets

import (
	"fmt"
	"sort"

	"github.com/Aibek0/bracket-engine/models"
)

// DoubleEliminationBracket derives intermediate placements from the losers
// bracket alone and the top two from the grand finals group. The bracket
// reset match is always modeled; standings collapse it when the winners
// side takes the first grand final.
type DoubleEliminationBracket struct {
	baseBracket
}

func (b *DoubleEliminationBracket) winnersGroupID() int { return minGroupID(b.data) }
func (b *DoubleEliminationBracket) losersGroupID() int  { return minGroupID(b.data) + 1 }
func (b *DoubleEliminationBracket) finalsGroupID() int  { return minGroupID(b.data) + 2 }

func (b *DoubleEliminationBracket) Standings() ([]models.Standing, error) {
	losersGroup := b.losersGroupID()

	loserMatches := make([]*models.Match, 0, len(b.data.Matches))
	for _, match := range b.data.Matches {
		if match.GroupID == losersGroup {
			loserMatches = append(loserMatches, match)
		}
	}

	bands, err := collectLossBands(loserMatches)
	if err != nil {
		return nil, err
	}

	standings, err := b.bandStandings(bands, len(b.data.Participants))
	if err != nil {
		return nil, err
	}

	top, err := b.grandFinalStandings()
	if err != nil {
		return nil, err
	}

	return append(top, standings...), nil
}

// grandFinalStandings resolves placements 1 and 2. If the first grand
// final went to opponent1 (the winners bracket side) the reset match is
// moot and opponent1 takes the bracket outright.
func (b *DoubleEliminationBracket) grandFinalStandings() ([]models.Standing, error) {
	finals := b.grandFinalMatches()
	if len(finals) == 0 || !finals[0].IsOver() {
		return nil, nil
	}

	first, second := finals[0], (*models.Match)(nil)
	if len(finals) > 1 {
		second = finals[1]
	}

	var winner, loser *models.Opponent
	if first.Winner() == first.Opponent1 || second == nil {
		winner, loser = first.Winner(), first.Loser()
	} else {
		if !second.IsOver() {
			return nil, nil
		}
		winner, loser = second.Winner(), second.Loser()
	}

	if winner.ID == nil || loser.ID == nil {
		return nil, fmt.Errorf("%w: grand final", ErrLoserMissing)
	}

	winnerTeam, err := b.team(*winner.ID)
	if err != nil {
		return nil, err
	}
	loserTeam, err := b.team(*loser.ID)
	if err != nil {
		return nil, err
	}

	return []models.Standing{
		{Team: winnerTeam, Placement: 1},
		{Team: loserTeam, Placement: 2},
	}, nil
}

// grandFinalMatches returns the finals group matches in round order: the
// grand final first, the bracket reset second when the stage models one.
func (b *DoubleEliminationBracket) grandFinalMatches() []*models.Match {
	finalsGroup := b.finalsGroupID()

	finals := make([]*models.Match, 0, 2)
	for _, match := range b.data.Matches {
		if match.GroupID == finalsGroup {
			finals = append(finals, match)
		}
	}
	sort.SliceStable(finals, func(i, j int) bool { return finals[i].RoundID < finals[j].RoundID })
	return finals
}

// EveryMatchOver ignores the bracket reset match once the first grand
// final has made it unnecessary.
func (b *DoubleEliminationBracket) EveryMatchOver() bool {
	if b.preview {
		return false
	}

	skipID := -1
	if finals := b.grandFinalMatches(); len(finals) > 1 &&
		finals[0].IsOver() && finals[0].Winner() == finals[0].Opponent1 {
		skipID = finals[1].ID
	}

	for _, match := range b.data.Matches {
		if match.IsBye() || match.ID == skipID {
			continue
		}
		if !match.IsOver() {
			return false
		}
	}

	return true
}

// Source resolves negative placements only: -N selects the losers of the
// first N losers bracket rounds, skipping a leading bye-only round that
// eliminates nobody. Teams knocked out in later rounds come first so they
// carry the better seed downstream.
func (b *DoubleEliminationBracket) Source(placements []int) (*SourceResult, error) {
	if len(placements) == 0 {
		return &SourceResult{RelevantMatchesFinished: b.EveryMatchOver()}, nil
	}

	minPlacement := placements[0]
	for _, placement := range placements {
		if placement > 0 {
			return nil, fmt.Errorf("%w: placement %d", ErrPositivePlacementsUnsupported, placement)
		}
		if placement < minPlacement {
			minPlacement = placement
		}
	}

	losersRounds := b.losersRounds()
	if len(losersRounds) == 0 {
		return nil, fmt.Errorf("%w: bracket has no losers rounds", ErrNegativePlacementsUnsupported)
	}

	roundCount := -minPlacement
	if b.roundIsByeOnly(losersRounds[0].ID) {
		roundCount++
	}
	if roundCount > len(losersRounds) {
		roundCount = len(losersRounds)
	}

	finished := true
	var teamIDs []int
	for i := roundCount - 1; i >= 0; i-- {
		for _, match := range b.data.Matches {
			if match.RoundID != losersRounds[i].ID || match.IsBye() {
				continue
			}
			if !match.IsOver() {
				finished = false
				continue
			}
			loser := match.Loser()
			if loser.ID == nil {
				return nil, fmt.Errorf("%w: match %d", ErrLoserMissing, match.ID)
			}
			teamIDs = append(teamIDs, *loser.ID)
		}
	}

	teams, err := b.teamsWithNames(teamIDs)
	if err != nil {
		return nil, err
	}

	return &SourceResult{RelevantMatchesFinished: finished, Teams: teams}, nil
}

func (b *DoubleEliminationBracket) losersRounds() []models.Round {
	losersGroup := b.losersGroupID()

	rounds := make([]models.Round, 0, len(b.data.Rounds))
	for _, round := range b.data.Rounds {
		if round.GroupID == losersGroup {
			rounds = append(rounds, round)
		}
	}
	sort.SliceStable(rounds, func(i, j int) bool { return rounds[i].ID < rounds[j].ID })
	return rounds
}

func (b *DoubleEliminationBracket) roundIsByeOnly(roundID int) bool {
	for _, match := range b.data.Matches {
		if match.RoundID == roundID && !match.IsBye() {
			return false
		}
	}
	return true
}

// WinnersSourceRound maps a losers bracket round number to the winners
// bracket round whose losers drop into it. Only intake rounds (the first
// one and even-numbered ones) have a source round.
func (b *DoubleEliminationBracket) WinnersSourceRound(losersRoundNumber int) *models.Round {
	var winnersRoundNumber int
	switch {
	case losersRoundNumber == 1:
		winnersRoundNumber = 1
	case losersRoundNumber%2 == 0:
		winnersRoundNumber = losersRoundNumber/2 + 1
	default:
		return nil
	}

	winnersGroup := b.winnersGroupID()
	for i := range b.data.Rounds {
		round := &b.data.Rounds[i]
		if round.GroupID == winnersGroup && round.Number == winnersRoundNumber {
			return round
		}
	}
	return nil
}
