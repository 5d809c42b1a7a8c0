package brackets

import (
	"fmt"
	"sort"

	"github.com/Aibek0/bracket-engine/models"
)

// statsRow is one team's accumulated metrics. Rows live in a dense slice
// indexed by a per-stage team index, so the hot accumulation loop never
// hashes and "team not found" is caught once at index time.
type statsRow struct {
	teamID          int
	groupID         *int
	setWins         int
	setLosses       int
	mapWins         int
	mapLosses       int
	points          int
	winsAgainstTied int
	buchholzSets    int
	buchholzMaps    int
	opponents       []int
}

type headToHead struct {
	winnerIdx int
	loserIdx  int
}

type statsTable struct {
	index   map[int]int
	rows    []statsRow
	rounds  map[int]*models.Round
	results []headToHead
}

func newStatsTable(data *models.BracketData) *statsTable {
	table := &statsTable{
		index:  make(map[int]int, len(data.Participants)),
		rows:   make([]statsRow, 0, len(data.Participants)),
		rounds: make(map[int]*models.Round, len(data.Rounds)),
	}

	for _, participant := range data.Participants {
		table.index[participant.ID] = len(table.rows)
		table.rows = append(table.rows, statsRow{teamID: participant.ID})
	}
	for i := range data.Rounds {
		round := &data.Rounds[i]
		table.rounds[round.ID] = round
	}

	return table
}

func (t *statsTable) rowIdx(teamID int) (int, error) {
	idx, ok := t.index[teamID]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrTeamNotFound, teamID)
	}
	return idx, nil
}

// accumulate folds finished matches into the table. With swissByes set,
// bye rows credit a full-match win worth half the round's map count
// (rounded up), or all of it for play-all rounds.
func (t *statsTable) accumulate(matches []*models.Match, swissByes bool) error {
	for _, match := range matches {
		if match.IsBye() {
			if swissByes {
				if err := t.accumulateBye(match); err != nil {
					return err
				}
			}
			continue
		}
		if !match.IsOver() {
			continue
		}

		winner, loser := match.Winner(), match.Loser()
		if winner.ID == nil || loser.ID == nil {
			return fmt.Errorf("%w: match %d", ErrLoserMissing, match.ID)
		}

		winnerIdx, err := t.rowIdx(*winner.ID)
		if err != nil {
			return fmt.Errorf("match %d: %w", match.ID, err)
		}
		loserIdx, err := t.rowIdx(*loser.ID)
		if err != nil {
			return fmt.Errorf("match %d: %w", match.ID, err)
		}

		groupID := match.GroupID
		t.rows[winnerIdx].groupID = &groupID
		t.rows[loserIdx].groupID = &groupID

		t.rows[winnerIdx].setWins++
		t.rows[loserIdx].setLosses++
		t.rows[winnerIdx].mapWins += scoreOf(winner)
		t.rows[winnerIdx].mapLosses += scoreOf(loser)
		t.rows[loserIdx].mapWins += scoreOf(loser)
		t.rows[loserIdx].mapLosses += scoreOf(winner)
		t.rows[winnerIdx].points += pointsOf(winner)
		t.rows[loserIdx].points += pointsOf(loser)

		t.rows[winnerIdx].opponents = append(t.rows[winnerIdx].opponents, loserIdx)
		t.rows[loserIdx].opponents = append(t.rows[loserIdx].opponents, winnerIdx)
		t.results = append(t.results, headToHead{winnerIdx: winnerIdx, loserIdx: loserIdx})
	}

	return nil
}

func (t *statsTable) accumulateBye(match *models.Match) error {
	survivor := match.Opponent1
	if survivor == nil {
		survivor = match.Opponent2
	}
	if survivor == nil || survivor.ID == nil {
		return nil
	}

	idx, err := t.rowIdx(*survivor.ID)
	if err != nil {
		return fmt.Errorf("bye match %d: %w", match.ID, err)
	}

	groupID := match.GroupID
	t.rows[idx].groupID = &groupID
	t.rows[idx].setWins++
	t.rows[idx].mapWins += t.byeMapWins(match.RoundID)
	return nil
}

func (t *statsTable) byeMapWins(roundID int) int {
	round, ok := t.rounds[roundID]
	if !ok || round.Maps == nil {
		return 0
	}
	if round.Maps.Type == models.MapListPlayAll {
		return round.Maps.Count
	}
	return (round.Maps.Count + 1) / 2
}

// computeWinsAgainstTied awards one point per head-to-head win over a team
// that currently has the same set win count.
func (t *statsTable) computeWinsAgainstTied() {
	for _, result := range t.results {
		if t.rows[result.winnerIdx].setWins == t.rows[result.loserIdx].setWins {
			t.rows[result.winnerIdx].winsAgainstTied++
		}
	}
}

// computeBuchholz sums, for each team, the set and map wins of every
// opponent it has faced, using the opponents' totals at computation time.
func (t *statsTable) computeBuchholz() {
	for i := range t.rows {
		for _, oppIdx := range t.rows[i].opponents {
			t.rows[i].buchholzSets += t.rows[oppIdx].setWins
			t.rows[i].buchholzMaps += t.rows[oppIdx].mapWins
		}
	}
}

func scoreOf(opponent *models.Opponent) int {
	if opponent.Score == nil {
		return 0
	}
	return *opponent.Score
}

func pointsOf(opponent *models.Opponent) int {
	if opponent.TotalPoints == nil {
		return 0
	}
	return *opponent.TotalPoints
}

// collapsePlacements assigns 1-based placements over already-sorted rows,
// best first. Tied rows share a placement and the next distinct placement
// continues from the count of teams encountered, i.e. 1,1,3 rather than
// 1,1,2.
func collapsePlacements(n int, tied func(prev, cur int) bool) []int {
	placements := make([]int, n)
	for i := 0; i < n; i++ {
		if i > 0 && tied(i-1, i) {
			placements[i] = placements[i-1]
		} else {
			placements[i] = i + 1
		}
	}
	return placements
}

// lossBand groups the teams eliminated in one round of an elimination
// bracket. Bands further from the start rank higher.
type lossBand struct {
	roundID int
	teamIDs []int
}

// collectLossBands scans finished, non-bye matches in round order and
// groups losers by the round they lost in.
func collectLossBands(matches []*models.Match) ([]lossBand, error) {
	ordered := make([]*models.Match, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].RoundID != ordered[j].RoundID {
			return ordered[i].RoundID < ordered[j].RoundID
		}
		return ordered[i].Number < ordered[j].Number
	})

	var bands []lossBand
	for _, match := range ordered {
		if match.IsBye() || !match.IsOver() {
			continue
		}
		loser := match.Loser()
		if loser.ID == nil {
			return nil, fmt.Errorf("%w: match %d", ErrLoserMissing, match.ID)
		}

		if len(bands) == 0 || bands[len(bands)-1].roundID != match.RoundID {
			bands = append(bands, lossBand{roundID: match.RoundID})
		}
		bands[len(bands)-1].teamIDs = append(bands[len(bands)-1].teamIDs, *loser.ID)
	}

	return bands, nil
}

// bandPlacements computes the shared placement of each band: with K teams
// not yet eliminated, the band's placement is K plus the number of teams
// eliminated in later rounds plus one.
func bandPlacements(bands []lossBand, remaining int) []int {
	placements := make([]int, len(bands))
	after := 0
	for i := len(bands) - 1; i >= 0; i-- {
		placements[i] = remaining + after + 1
		after += len(bands[i].teamIDs)
	}
	return placements
}
