package brackets

import (
	"sort"

	"github.com/Aibek0/bracket-engine/models"
)

// RoundRobinBracket ranks each pool independently and merges the pools'
// placements into one list: group winners share first place, group
// runners-up share second, and so on.
type RoundRobinBracket struct {
	baseBracket
}

type roundRobinRow struct {
	team           models.StandingTeam
	groupID        int
	groupPlacement int
	stats          models.StandingStats
}

// Standings requires every group to be finished. Use PartialStandings for
// the live view of a running stage.
func (b *RoundRobinBracket) Standings() ([]models.Standing, error) {
	for _, match := range b.data.Matches {
		if !match.IsBye() && !match.IsOver() {
			return nil, ErrGroupsNotFinished
		}
	}
	return b.computeStandings()
}

func (b *RoundRobinBracket) PartialStandings() ([]models.Standing, error) {
	return b.computeStandings()
}

func (b *RoundRobinBracket) computeStandings() ([]models.Standing, error) {
	table := newStatsTable(b.data)
	if err := table.accumulate(b.data.Matches, false); err != nil {
		return nil, err
	}
	table.computeWinsAgainstTied()

	var rows []roundRobinRow
	for _, group := range b.groupsInOrder() {
		groupRows, err := b.groupRows(table, group.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, groupRows...)
	}

	// pools merge on their internal placement; equal pool placements share
	// the overall one, ties broken toward the lower group id for ordering
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

// groupRows ranks one pool: setWins, then head-to-head among tied teams,
// then map wins, then points, with seed as the deterministic last resort.
func (b *RoundRobinBracket) groupRows(table *statsTable, groupID int) ([]roundRobinRow, error) {
	var rows []roundRobinRow
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

		rows = append(rows, roundRobinRow{
			team:    team,
			groupID: groupID,
			stats: models.StandingStats{
				SetWins:         row.setWins,
				SetLosses:       row.setLosses,
				MapWins:         row.mapWins,
				MapLosses:       row.mapLosses,
				Points:          row.points,
				WinsAgainstTied: row.winsAgainstTied,
			},
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, c := rows[i], rows[j]
		if a.stats.SetWins != c.stats.SetWins {
			return a.stats.SetWins > c.stats.SetWins
		}
		if a.stats.WinsAgainstTied != c.stats.WinsAgainstTied {
			return a.stats.WinsAgainstTied > c.stats.WinsAgainstTied
		}
		if a.stats.MapWins != c.stats.MapWins {
			return a.stats.MapWins > c.stats.MapWins
		}
		if a.stats.Points != c.stats.Points {
			return a.stats.Points > c.stats.Points
		}
		return a.team.Seed < c.team.Seed
	})

	placements := collapsePlacements(len(rows), func(prev, cur int) bool {
		return rows[prev].stats.SetWins == rows[cur].stats.SetWins &&
			rows[prev].stats.WinsAgainstTied == rows[cur].stats.WinsAgainstTied &&
			rows[prev].stats.MapWins == rows[cur].stats.MapWins &&
			rows[prev].stats.Points == rows[cur].stats.Points
	})
	for i := range rows {
		rows[i].groupPlacement = placements[i]
	}

	return rows, nil
}

// groupTeamIDs lists the teams assigned to a pool, in first-appearance
// order over the pool's match grid. Byes and unplayed matches count for
// membership even though they carry no stats.
func (b *RoundRobinBracket) groupTeamIDs(groupID int) []int {
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

func (b *RoundRobinBracket) groupsInOrder() []models.Group {
	groups := make([]models.Group, len(b.data.Groups))
	copy(groups, b.data.Groups)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups
}

func (b *RoundRobinBracket) Source(placements []int) (*SourceResult, error) {
	standings, err := b.PartialStandings()
	if err != nil {
		return nil, err
	}
	return b.positiveSource(placements, standings)
}
