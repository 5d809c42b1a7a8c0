package brackets

import (
	"testing"

	"github.com/Aibek0/bracket-engine/models"
)

func createSwissData(teamCount, groupCount, roundCount int) *models.BracketData {
	seeding := make([]models.BracketParticipant, 0, teamCount)
	for i := 1; i <= teamCount; i++ {
		seeding = append(seeding, models.BracketParticipant{ID: i, Name: teamName(i)})
	}
	return CreateSwiss(CreateSwissArgs{
		TournamentID: 1,
		StageID:      0,
		Name:         "Swiss",
		Seeding:      seeding,
		Settings: models.StageSettings{
			Swiss: &models.SwissSettings{GroupCount: groupCount, RoundCount: roundCount},
		},
	})
}

func newSwissBracket(t *testing.T, data *models.BracketData, teamCount int) *SwissBracket {
	t.Helper()
	return newTestBracket(t, models.BracketSwiss, data, teamCount).(*SwissBracket)
}

func TestCreateSwissFirstRoundSeedSplit(t *testing.T) {
	data := createSwissData(9, 1, 3)

	if len(data.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(data.Groups))
	}
	if len(data.Rounds) != 3 {
		t.Fatalf("expected 3 rounds, got %d", len(data.Rounds))
	}
	if len(data.Matches) != 5 {
		t.Fatalf("expected 4 pairs plus a bye, got %d matches", len(data.Matches))
	}

	// top half against bottom half: 1v5, 2v6, 3v7, 4v8, bye for 9
	for i, want := range [][2]int{{1, 5}, {2, 6}, {3, 7}, {4, 8}} {
		match := data.Matches[i]
		if match.IsBye() {
			t.Fatalf("match %d: unexpected bye", i)
		}
		if *match.Opponent1.ID != want[0] || *match.Opponent2.ID != want[1] {
			t.Errorf("match %d: %d vs %d, want %d vs %d",
				i, *match.Opponent1.ID, *match.Opponent2.ID, want[0], want[1])
		}
	}

	bye := data.Matches[4]
	if !bye.IsBye() || bye.Opponent1 == nil || *bye.Opponent1.ID != 9 {
		t.Fatal("expected the lowest seed to receive the first round bye")
	}
}

func TestSwissByeCreditsHalfTheMapPool(t *testing.T) {
	data := createSwissData(9, 1, 3)
	// the first round is played best-of-3, so a bye is worth 2 map wins
	data.Rounds[0].Maps = &models.RoundMaps{Count: 3, Type: models.MapListBestOf}

	for _, pair := range [][2]int{{1, 5}, {2, 6}, {3, 7}, {4, 8}} {
		recordWin(t, findMatch(t, data, pair[0], pair[1]), pair[0], 2, 1)
	}

	bracket := newSwissBracket(t, data, 9)
	standings, err := bracket.Standings()
	if err != nil {
		t.Fatalf("standings: %v", err)
	}

	for _, standing := range standings {
		if standing.Team.ID != 9 {
			continue
		}
		if standing.Stats.SetWins != 1 {
			t.Errorf("bye team set wins = %d, want 1", standing.Stats.SetWins)
		}
		if standing.Stats.MapWins != 2 {
			t.Errorf("bye team map wins = %d, want 2", standing.Stats.MapWins)
		}
		return
	}
	t.Fatal("bye team missing from standings")
}

func TestSwissTieBreaksAndBuchholz(t *testing.T) {
	data := createSwissData(4, 1, 2)

	// round 1: 1 beats 3, 2 beats 4 (seed split pairs 1v3, 2v4)
	recordWin(t, findMatch(t, data, 1, 3), 1, 2, 0)
	recordWin(t, findMatch(t, data, 2, 4), 2, 2, 0)

	bracket := newSwissBracket(t, data, 4)
	generated, err := bracket.GenerateMatchUps(0)
	if err != nil {
		t.Fatalf("generate round 2: %v", err)
	}
	for _, insertable := range generated {
		data.Matches = append(data.Matches, &models.Match{
			ID:        len(data.Matches),
			StageID:   insertable.StageID,
			GroupID:   insertable.GroupID,
			RoundID:   insertable.RoundID,
			Number:    insertable.Number,
			Opponent1: insertable.OpponentOne,
			Opponent2: insertable.OpponentTwo,
		})
	}

	// round 2 pairs winners together and losers together; 2 takes the top
	// match and 3 the bottom one
	recordWin(t, findMatch(t, data, 1, 2), 2, 2, 1)
	recordWin(t, findMatch(t, data, 3, 4), 3, 2, 1)

	standings, err := bracket.Standings()
	if err != nil {
		t.Fatalf("standings: %v", err)
	}

	if got := placementOf(t, standings, 2); got != 1 {
		t.Errorf("team 2: placement = %d, want 1", got)
	}
	// 1 and 3 both sit at one set win; 1 beat 3 directly, so it ranks above
	if got := placementOf(t, standings, 1); got >= placementOf(t, standings, 3) {
		t.Errorf("team 1 (placement %d) must rank above team 3 (placement %d)",
			got, placementOf(t, standings, 3))
	}

	// buchholz sums each team's opponents' set wins: 1 faced 3 and 2 (three
	// set wins between them), 3 faced 1 and 4 (one)
	wantBuchholz := map[int]int{1: 3, 3: 1}
	for _, standing := range standings {
		want, ok := wantBuchholz[standing.Team.ID]
		if !ok {
			continue
		}
		if standing.Stats.BuchholzSets == nil || *standing.Stats.BuchholzSets != want {
			t.Errorf("team %d: buchholz sets = %v, want %d",
				standing.Team.ID, standing.Stats.BuchholzSets, want)
		}
	}
}

func TestSwissDroppedOutTeamsSinkToBottom(t *testing.T) {
	data := createSwissData(4, 1, 2)
	recordWin(t, findMatch(t, data, 1, 3), 1, 2, 0)
	recordWin(t, findMatch(t, data, 2, 4), 2, 2, 0)

	teams := standingTeams(4)
	teams[0].DroppedOut = true // team 1 leaves despite winning

	bracket, err := New(CreateArgs{
		Type:  models.BracketSwiss,
		Data:  data,
		Teams: teams,
	})
	if err != nil {
		t.Fatalf("construct bracket: %v", err)
	}

	standings, err := bracket.Standings()
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if standings[len(standings)-1].Team.ID != 1 {
		t.Fatalf("dropped out team must rank last, got team %d", standings[len(standings)-1].Team.ID)
	}
}
