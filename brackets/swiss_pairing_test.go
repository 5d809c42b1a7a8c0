package brackets

import (
	"errors"
	"testing"

	"github.com/Aibek0/bracket-engine/models"
)

func appendInsertable(data *models.BracketData, generated []models.InsertableMatch) {
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
}

func TestGenerateMatchUpsRequiresFinishedRound(t *testing.T) {
	data := createSwissData(8, 1, 3)
	bracket := newSwissBracket(t, data, 8)

	if _, err := bracket.GenerateMatchUps(0); !errors.Is(err, ErrRoundNotFinished) {
		t.Fatalf("expected ErrRoundNotFinished, got %v", err)
	}
}

func TestGenerateMatchUpsAvoidsRematches(t *testing.T) {
	data := createSwissData(8, 1, 3)

	// round 1 pairs 1v5, 2v6, 3v7, 4v8; top seeds win
	firstRound := [][2]int{{1, 5}, {2, 6}, {3, 7}, {4, 8}}
	for _, pair := range firstRound {
		recordWin(t, findMatch(t, data, pair[0], pair[1]), pair[0], 2, 0)
	}

	bracket := newSwissBracket(t, data, 8)
	generated, err := bracket.GenerateMatchUps(0)
	if err != nil {
		t.Fatalf("generate round 2: %v", err)
	}
	if len(generated) != 4 {
		t.Fatalf("expected 4 matches, got %d", len(generated))
	}

	played := make(map[pairKey]bool)
	for _, pair := range firstRound {
		played[keyOf(pair[0], pair[1])] = true
	}

	for _, match := range generated {
		if match.RoundID != data.Rounds[1].ID {
			t.Errorf("match generated for round %d, want %d", match.RoundID, data.Rounds[1].ID)
		}
		if match.OpponentOne == nil || match.OpponentTwo == nil {
			t.Fatal("unexpected bye in an even pool")
		}
		if played[keyOf(*match.OpponentOne.ID, *match.OpponentTwo.ID)] {
			t.Errorf("rematch generated: %d vs %d", *match.OpponentOne.ID, *match.OpponentTwo.ID)
		}
	}
}

func TestGenerateMatchUpsSectionsByScore(t *testing.T) {
	data := createSwissData(8, 1, 3)
	for _, pair := range [][2]int{{1, 5}, {2, 6}, {3, 7}, {4, 8}} {
		recordWin(t, findMatch(t, data, pair[0], pair[1]), pair[0], 2, 0)
	}

	bracket := newSwissBracket(t, data, 8)
	generated, err := bracket.GenerateMatchUps(0)
	if err != nil {
		t.Fatalf("generate round 2: %v", err)
	}

	winners := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for _, match := range generated {
		oneWon := winners[*match.OpponentOne.ID]
		twoWon := winners[*match.OpponentTwo.ID]
		if oneWon != twoWon {
			t.Errorf("cross-section pairing: %d vs %d", *match.OpponentOne.ID, *match.OpponentTwo.ID)
		}
	}
}

func TestGenerateMatchUpsByeRotates(t *testing.T) {
	data := createSwissData(5, 1, 3)

	// round 1: 1v3, 2v4, bye for the lowest seed 5
	byeCount := 0
	for _, match := range data.Matches {
		if match.IsBye() {
			byeCount++
			if *match.Opponent1.ID != 5 {
				t.Fatalf("first bye went to team %d, want 5", *match.Opponent1.ID)
			}
			continue
		}
		recordWin(t, match, *match.Opponent1.ID, 2, 0)
	}
	if byeCount != 1 {
		t.Fatalf("expected exactly one bye, got %d", byeCount)
	}

	bracket := newSwissBracket(t, data, 5)
	generated, err := bracket.GenerateMatchUps(0)
	if err != nil {
		t.Fatalf("generate round 2: %v", err)
	}

	var bye *models.InsertableMatch
	for i := range generated {
		if generated[i].OpponentTwo == nil {
			if bye != nil {
				t.Fatal("more than one bye generated")
			}
			bye = &generated[i]
		}
	}
	if bye == nil {
		t.Fatal("odd pool must generate a bye")
	}
	if *bye.OpponentOne.ID == 5 {
		t.Fatal("the same team received a bye twice")
	}
}

func TestGenerateMatchUpsExhaustsRounds(t *testing.T) {
	data := createSwissData(4, 1, 1)
	recordWin(t, findMatch(t, data, 1, 3), 1, 2, 0)
	recordWin(t, findMatch(t, data, 2, 4), 2, 2, 0)

	bracket := newSwissBracket(t, data, 4)
	if _, err := bracket.GenerateMatchUps(0); !errors.Is(err, ErrNoRoundsLeft) {
		t.Fatalf("expected ErrNoRoundsLeft, got %v", err)
	}
}

func TestGenerateMatchUpsSkipsDroppedOutTeams(t *testing.T) {
	data := createSwissData(4, 1, 2)
	recordWin(t, findMatch(t, data, 1, 3), 1, 2, 0)
	recordWin(t, findMatch(t, data, 2, 4), 2, 2, 0)

	teams := standingTeams(4)
	teams[3].DroppedOut = true // team 4 leaves after round 1

	bracket, err := New(CreateArgs{Type: models.BracketSwiss, Data: data, Teams: teams})
	if err != nil {
		t.Fatalf("construct bracket: %v", err)
	}

	generated, err := bracket.(*SwissBracket).GenerateMatchUps(0)
	if err != nil {
		t.Fatalf("generate round 2: %v", err)
	}

	// three active teams: one pair plus a bye, and team 4 appears nowhere
	if len(generated) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(generated))
	}
	for _, match := range generated {
		for _, opponent := range []*models.Opponent{match.OpponentOne, match.OpponentTwo} {
			if opponent != nil && opponent.ID != nil && *opponent.ID == 4 {
				t.Fatal("dropped out team was paired")
			}
		}
	}
}

// pairPool falls back to seed-fold rematches once every section has merged
// and no rematch-free assignment exists.
func TestPairPoolAllowsRematchesAsLastResort(t *testing.T) {
	pool := []poolTeam{
		{id: 1, seed: 1, mapWins: 1, mapLosses: 1},
		{id: 2, seed: 2, mapWins: 1, mapLosses: 1},
	}
	history := map[pairKey]bool{keyOf(1, 2): true}

	pairs, err := pairPool(pool, history)
	if err != nil {
		t.Fatalf("pairPool: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if keyOf(pairs[0][0].id, pairs[0][1].id) != keyOf(1, 2) {
		t.Fatalf("unexpected pairing: %d vs %d", pairs[0][0].id, pairs[0][1].id)
	}
}
