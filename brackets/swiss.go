package brackets

import (
	"sort"

	"github.com/Aibek0/bracket-engine/models"
)

// SwissBracket accumulates stats like round robin and adds buchholz
// tie-breaks: the cumulative set and map wins of every opponent a team has
// faced. Byes count as full-match wins and dropped-out teams sink to the
// bottom of the table.
type SwissBracket struct {
	baseBracket
}

type swissRow struct {
	team           models.StandingTeam
	groupID        int
	groupPlacement int
	stats          models.StandingStats
}

func (b *SwissBracket) Standings() ([]models.Standing, error) {
	table := newStatsTable(b.data)
	if err := table.accumulate(b.data.Matches, true); err != nil {
		return nil, err
	}
	table.computeWinsAgainstTied()
	table.computeBuchholz()

	var rows []swissRow
	for _, group := range b.data.Groups {
		groupRows, err := b.groupRows(table, group.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, groupRows...)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].groupPlacement != rows[j].groupPlacement {
			return rows[i].groupPlacement < rows[j].groupPlacement
		}
		return rows[i].groupID < rows[j].groupID
	})
	placements := collapsePlacements(len(rows), func(prev, cur int) bool {
		return rows[prev].groupPlacement == rows[cur].groupPlacement
	})

	standings := make([]models.Standing, 0, len(rows))
	for i, row := range rows {
		groupID := row.groupID
		stats := row.stats
		standings = append(standings, models.Standing{
			Team:      row.team,
			Placement: placements[i],
			GroupID:   &groupID,
			Stats:     &stats,
		})
	}
	return standings, nil
}

func (b *SwissBracket) groupRows(table *statsTable, groupID int) ([]swissRow, error) {
	var rows []swissRow
	for _, teamID := range b.groupTeamIDs(groupID) {
		team, err := b.team(teamID)
		if err != nil {
			return nil, err
		}

		idx, err := table.rowIdx(teamID)
		if err != nil {
			return nil, err
		}
		row := table.rows[idx]

		buchholzSets, buchholzMaps := row.buchholzSets, row.buchholzMaps
		rows = append(rows, swissRow{
			team:    team,
			groupID: groupID,
			stats: models.StandingStats{
				SetWins:         row.setWins,
				SetLosses:       row.setLosses,
				MapWins:         row.mapWins,
				MapLosses:       row.mapLosses,
				Points:          row.points,
				WinsAgainstTied: row.winsAgainstTied,
				BuchholzSets:    &buchholzSets,
				BuchholzMaps:    &buchholzMaps,
			},
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, c := rows[i], rows[j]
		if a.team.DroppedOut != c.team.DroppedOut {
			return !a.team.DroppedOut
		}
		if a.stats.SetWins != c.stats.SetWins {
			return a.stats.SetWins > c.stats.SetWins
		}
		if a.stats.WinsAgainstTied != c.stats.WinsAgainstTied {
			return a.stats.WinsAgainstTied > c.stats.WinsAgainstTied
		}
		if a.stats.MapWins != c.stats.MapWins {
			return a.stats.MapWins > c.stats.MapWins
		}
		if *a.stats.BuchholzSets != *c.stats.BuchholzSets {
			return *a.stats.BuchholzSets > *c.stats.BuchholzSets
		}
		if *a.stats.BuchholzMaps != *c.stats.BuchholzMaps {
			return *a.stats.BuchholzMaps > *c.stats.BuchholzMaps
		}
		return a.team.Seed < c.team.Seed
	})

	placements := collapsePlacements(len(rows), func(prev, cur int) bool {
		return rows[prev].team.DroppedOut == rows[cur].team.DroppedOut &&
			rows[prev].stats.SetWins == rows[cur].stats.SetWins &&
			rows[prev].stats.WinsAgainstTied == rows[cur].stats.WinsAgainstTied &&
			rows[prev].stats.MapWins == rows[cur].stats.MapWins &&
			*rows[prev].stats.BuchholzSets == *rows[cur].stats.BuchholzSets &&
			*rows[prev].stats.BuchholzMaps == *rows[cur].stats.BuchholzMaps
	})
	for i := range rows {
		rows[i].groupPlacement = placements[i]
	}

	return rows, nil
}

// groupTeamIDs lists the teams assigned to a pool in first-appearance
// order, byes included.
func (b *SwissBracket) groupTeamIDs(groupID int) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, match := range b.data.Matches {
		if match.GroupID != groupID {
			continue
		}
		for _, opponent := range []*models.Opponent{match.Opponent1, match.Opponent2} {
			if opponent == nil || opponent.ID == nil || seen[*opponent.ID] {
				continue
			}
			seen[*opponent.ID] = true
			ids = append(ids, *opponent.ID)
		}
	}
	return ids
}

func (b *SwissBracket) Source(placements []int) (*SourceResult, error) {
	standings, err := b.Standings()
	if err != nil {
		return nil, err
	}
	return b.positiveSource(placements, standings)
}
