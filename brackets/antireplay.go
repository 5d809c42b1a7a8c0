package brackets

import (
	"github.com/Aibek0/bracket-engine/models"
	"github.com/Aibek0/bracket-engine/skeleton"
)

// antiReplayIterationLimit bounds the seed-swap search. Exceeding it falls
// back to the unmodified order, never fails the request.
const antiReplayIterationLimit = 100

// adjustSeedingForReplays reorders an elimination preview's seeding so
// that teams who already met in the single upstream bracket are less
// likely to meet again immediately. Only the lowest-seeded offender is
// moved, and only via swaps within the lower half of the seed list; if no
// swap improves things the original order stands.
func (t *Tournament) adjustSeedingForReplays(entry models.BracketProgressionEntry, teams []models.StandingTeam) []models.StandingTeam {
	if len(teams) < 8 || len(entry.Sources) != 1 {
		return teams
	}

	upstream, err := t.BracketByIdx(entry.Sources[0].BracketIdx)
	if err != nil || upstream.Preview() {
		return teams
	}

	history := make(map[pairKey]bool)
	for _, match := range upstream.Data().Matches {
		if match.IsBye() || match.Opponent1.ID == nil || match.Opponent2.ID == nil {
			continue
		}
		history[keyOf(*match.Opponent1.ID, *match.Opponent2.ID)] = true
	}
	if len(history) == 0 {
		return teams
	}

	current := append([]models.StandingTeam{}, teams...)
	bestCount, offenderIdx, err := t.replayScan(entry, current, history)
	if err != nil {
		return teams
	}

	for iteration := 0; iteration < antiReplayIterationLimit; iteration++ {
		if bestCount == 0 {
			return current
		}

		swapped := false
		for j := len(current) / 2; j < len(current); j++ {
			if j == offenderIdx {
				continue
			}

			candidate := append([]models.StandingTeam{}, current...)
			candidate[offenderIdx], candidate[j] = candidate[j], candidate[offenderIdx]

			count, offender, err := t.replayScan(entry, candidate, history)
			if err != nil {
				return teams
			}
			if count < bestCount {
				current, bestCount, offenderIdx = candidate, count, offender
				swapped = true
				break
			}
		}

		if !swapped {
			t.logger.Warn("replay avoidance found no improving seed swap, keeping original order",
				"bracket", entry.Name, "replays", bestCount)
			return teams
		}
	}

	t.logger.Warn("replay avoidance ran out of iterations, keeping original order",
		"bracket", entry.Name)
	return teams
}

// replayScan generates the candidate bracket for the given seed order and
// counts matches whose opponents already met upstream. The offender index
// points at the lowest-seeded team involved in any such match.
func (t *Tournament) replayScan(entry models.BracketProgressionEntry, teams []models.StandingTeam, history map[pairKey]bool) (count, offenderIdx int, err error) {
	seeding := skeleton.FillWithByesUntilPowerOfTwo(teamSeeds(teams))
	data, err := t.provider.Generate(skeleton.GenerateParams{
		TournamentID: t.tournament.ID,
		Name:         entry.Name,
		Type:         entry.Type,
		Seeding:      seeding,
		Settings:     t.stageSettings(entry.Type, len(teams)),
	})
	if err != nil {
		return 0, 0, err
	}

	seedIdx := make(map[int]int, len(teams))
	for i, team := range teams {
		seedIdx[team.ID] = i
	}

	offenderIdx = -1
	for _, match := range data.Matches {
		if match.IsBye() || match.Opponent1.ID == nil || match.Opponent2.ID == nil {
			continue
		}
		if !history[keyOf(*match.Opponent1.ID, *match.Opponent2.ID)] {
			continue
		}

		count++
		for _, id := range []int{*match.Opponent1.ID, *match.Opponent2.ID} {
			if idx, ok := seedIdx[id]; ok && idx > offenderIdx {
				offenderIdx = idx
			}
		}
	}

	return count, offenderIdx, nil
}
