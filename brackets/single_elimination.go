package brackets

import (
	"sort"

	"github.com/Aibek0/bracket-engine/models"
)

// SingleEliminationBracket ranks teams by the round they were knocked out
// in: everyone losing in the same round shares a placement band, and the
// optional third place match splits the band it would otherwise tie.
type SingleEliminationBracket struct {
	baseBracket
}

func (b *SingleEliminationBracket) Standings() ([]models.Standing, error) {
	thirdPlaceGroup := -1
	if len(b.data.Groups) > 1 {
		thirdPlaceGroup = maxGroupID(b.data)
	}

	mainMatches := make([]*models.Match, 0, len(b.data.Matches))
	for _, match := range b.data.Matches {
		if match.GroupID == thirdPlaceGroup {
			continue
		}
		mainMatches = append(mainMatches, match)
	}

	bands, err := collectLossBands(mainMatches)
	if err != nil {
		return nil, err
	}

	standings, err := b.bandStandings(bands, len(b.data.Participants))
	if err != nil {
		return nil, err
	}

	if thirdPlaceGroup >= 0 {
		if err := b.applyThirdPlaceMatch(standings, thirdPlaceGroup); err != nil {
			return nil, err
		}
	}

	return standings, nil
}

// bandStandings turns loss bands into an ordered standings list: the sole
// undefeated team (if the bracket has run down to one) first, then the
// bands from the latest round back, each ordered by seed.
func (b *baseBracket) bandStandings(bands []lossBand, participants int) ([]models.Standing, error) {
	eliminated := 0
	lost := make(map[int]bool)
	for _, band := range bands {
		eliminated += len(band.teamIDs)
		for _, id := range band.teamIDs {
			lost[id] = true
		}
	}
	remaining := participants - eliminated

	standings := make([]models.Standing, 0, participants)
	if remaining == 1 {
		for _, participant := range b.data.Participants {
			if lost[participant.ID] {
				continue
			}
			team, err := b.team(participant.ID)
			if err != nil {
				return nil, err
			}
			standings = append(standings, models.Standing{Team: team, Placement: 1})
		}
	}

	placements := bandPlacements(bands, remaining)
	for i := len(bands) - 1; i >= 0; i-- {
		teams, err := b.teamsWithNames(bands[i].teamIDs)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(teams, func(a, c int) bool { return teams[a].Seed < teams[c].Seed })

		for _, team := range teams {
			standings = append(standings, models.Standing{Team: team, Placement: placements[i]})
		}
	}

	return standings, nil
}

// applyThirdPlaceMatch promotes the consolation final's winner to third and
// demotes its loser to fourth, splitting the tie the semifinal losers would
// otherwise share.
func (b *SingleEliminationBracket) applyThirdPlaceMatch(standings []models.Standing, groupID int) error {
	for _, match := range b.data.Matches {
		if match.GroupID != groupID || !match.IsOver() {
			continue
		}

		winner, loser := match.Winner(), match.Loser()
		if winner.ID == nil || loser.ID == nil {
			continue
		}

		for i := range standings {
			switch standings[i].Team.ID {
			case *winner.ID:
				standings[i].Placement = 3
			case *loser.ID:
				standings[i].Placement = 4
			}
		}

		sort.SliceStable(standings, func(i, j int) bool {
			return standings[i].Placement < standings[j].Placement
		})
		return nil
	}

	return nil
}

func (b *SingleEliminationBracket) Source(placements []int) (*SourceResult, error) {
	standings, err := b.Standings()
	if err != nil {
		return nil, err
	}
	return b.positiveSource(placements, standings)
}
