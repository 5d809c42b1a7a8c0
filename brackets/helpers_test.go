package brackets

import (
	"testing"

	"github.com/Aibek0/bracket-engine/models"
	"github.com/Aibek0/bracket-engine/skeleton"
)

func generateData(t *testing.T, bracketType models.BracketType, teamCount int, settings models.StageSettings) *models.BracketData {
	t.Helper()

	seeding := make([]*skeleton.Seed, 0, teamCount)
	for i := 1; i <= teamCount; i++ {
		seeding = append(seeding, &skeleton.Seed{ID: i, Name: teamName(i)})
	}
	if bracketType.IsElimination() {
		seeding = skeleton.FillWithByesUntilPowerOfTwo(seeding)
	}

	data, err := skeleton.NewGenerator().Generate(skeleton.GenerateParams{
		TournamentID: 1,
		StageID:      0,
		Name:         "Stage",
		Type:         bracketType,
		Seeding:      seeding,
		Settings:     settings,
	})
	if err != nil {
		t.Fatalf("generate %s skeleton for %d teams: %v", bracketType, teamCount, err)
	}
	return data
}

func teamName(id int) string {
	return string(rune('A' + id - 1))
}

func standingTeams(teamCount int) []models.StandingTeam {
	teams := make([]models.StandingTeam, 0, teamCount)
	for i := 1; i <= teamCount; i++ {
		teams = append(teams, models.StandingTeam{ID: i, Name: teamName(i), Seed: i})
	}
	return teams
}

func newTestBracket(t *testing.T, bracketType models.BracketType, data *models.BracketData, teamCount int) Bracket {
	t.Helper()

	bracket, err := New(CreateArgs{
		ID:    0,
		Name:  "Stage",
		Type:  bracketType,
		Data:  data,
		Teams: standingTeams(teamCount),
	})
	if err != nil {
		t.Fatalf("construct %s bracket: %v", bracketType, err)
	}
	return bracket
}

// findMatch locates the match pairing the two teams, in either slot order.
func findMatch(t *testing.T, data *models.BracketData, teamA, teamB int) *models.Match {
	t.Helper()

	for _, match := range data.Matches {
		if match.IsBye() || match.Opponent1.ID == nil || match.Opponent2.ID == nil {
			continue
		}
		one, two := *match.Opponent1.ID, *match.Opponent2.ID
		if (one == teamA && two == teamB) || (one == teamB && two == teamA) {
			return match
		}
	}
	t.Fatalf("no match pairs team %d against team %d", teamA, teamB)
	return nil
}

// recordWin stamps a result onto the match: winnerID takes winnerScore,
// the other side loserScore.
func recordWin(t *testing.T, match *models.Match, winnerID, winnerScore, loserScore int) {
	t.Helper()

	winner, loser := match.Opponent1, match.Opponent2
	if winner.ID == nil || *winner.ID != winnerID {
		winner, loser = loser, winner
	}
	if winner.ID == nil || *winner.ID != winnerID {
		t.Fatalf("team %d does not play in match %d", winnerID, match.ID)
	}

	ws, ls := winnerScore, loserScore
	winner.Score, winner.Result = &ws, models.ResultWin
	loser.Score, loser.Result = &ls, models.ResultLoss
}

func placementOf(t *testing.T, standings []models.Standing, teamID int) int {
	t.Helper()

	for _, standing := range standings {
		if standing.Team.ID == teamID {
			return standing.Placement
		}
	}
	t.Fatalf("team %d missing from standings", teamID)
	return 0
}

func intPtr(v int) *int { return &v }
