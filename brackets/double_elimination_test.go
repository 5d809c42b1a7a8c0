package brackets

import (
	"testing"

	"github.com/Aibek0/bracket-engine/models"
	"github.com/Aibek0/bracket-engine/skeleton"
)

// playOutLowestIDWins repeatedly records the lower team id as winner of
// every playable match and propagates, until nothing is left to play.
func playOutLowestIDWins(t *testing.T, bracket Bracket) {
	t.Helper()

	de := bracket.(*DoubleEliminationBracket)
	data := bracket.Data()

	for {
		progressed := false
		for _, match := range data.Matches {
			if match.IsBye() || match.IsOver() ||
				match.Opponent1.ID == nil || match.Opponent2.ID == nil {
				continue
			}

			winnerID := *match.Opponent1.ID
			if *match.Opponent2.ID < winnerID {
				winnerID = *match.Opponent2.ID
			}
			recordWin(t, match, winnerID, 2, 0)
			if _, err := de.PropagateResult(match.ID); err != nil {
				t.Fatalf("propagate match %d: %v", match.ID, err)
			}
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

func TestDoubleEliminationGrandFinalCollapse(t *testing.T) {
	data := generateData(t, models.BracketDoubleElimination, 8, models.StageSettings{GrandFinal: "double"})
	bracket := newTestBracket(t, models.BracketDoubleElimination, data, 8)

	playOutLowestIDWins(t, bracket)

	// the winners side champion took the first grand final, so the modeled
	// bracket reset match stays unplayed and must not block completion
	if !bracket.EveryMatchOver() {
		t.Fatal("expected the bracket to count as finished without the reset match")
	}

	standings, err := bracket.Standings()
	if err != nil {
		t.Fatalf("standings: %v", err)
	}

	want := map[int]int{1: 1, 2: 2, 3: 3, 4: 4, 5: 5, 6: 5, 7: 7, 8: 7}
	for teamID, placement := range want {
		if got := placementOf(t, standings, teamID); got != placement {
			t.Errorf("team %d: placement = %d, want %d", teamID, got, placement)
		}
	}
}

func TestDoubleEliminationBracketResetPlayed(t *testing.T) {
	data := generateData(t, models.BracketDoubleElimination, 4, models.StageSettings{GrandFinal: "double"})
	bracket := newTestBracket(t, models.BracketDoubleElimination, data, 4)
	de := bracket.(*DoubleEliminationBracket)

	for _, pair := range [][2]int{{1, 4}, {2, 3}, {1, 2}, {3, 4}, {3, 2}} {
		match := findMatch(t, data, pair[0], pair[1])
		recordWin(t, match, pair[0], 2, 0)
		if _, err := de.PropagateResult(match.ID); err != nil {
			t.Fatalf("propagate match %d: %v", match.ID, err)
		}
	}

	// losers side champion 3 takes the first grand final from 1
	grandFinal := findMatch(t, data, 1, 3)
	recordWin(t, grandFinal, 3, 2, 1)
	modified, err := de.PropagateResult(grandFinal.ID)
	if err != nil {
		t.Fatalf("propagate grand final: %v", err)
	}
	if len(modified) == 0 {
		t.Fatal("expected the reset match to be fed")
	}

	if bracket.EveryMatchOver() {
		t.Fatal("bracket must not be over before the reset match is played")
	}
	if standings, err := bracket.Standings(); err != nil {
		t.Fatalf("standings: %v", err)
	} else if len(standings) > 0 && standings[0].Placement == 1 {
		t.Fatal("no first place may be awarded before the reset match resolves")
	}

	finals := de.grandFinalMatches()
	if len(finals) != 2 {
		t.Fatalf("expected 2 grand final matches, got %d", len(finals))
	}
	reset := finals[1]
	if reset.Opponent1.ID == nil || reset.Opponent2.ID == nil {
		t.Fatal("reset match was not fed both grand final participants")
	}
	recordWin(t, reset, 1, 2, 1)

	standings, err := bracket.Standings()
	if err != nil {
		t.Fatalf("standings after reset: %v", err)
	}
	if got := placementOf(t, standings, 1); got != 1 {
		t.Errorf("team 1: placement = %d, want 1", got)
	}
	if got := placementOf(t, standings, 3); got != 2 {
		t.Errorf("team 3: placement = %d, want 2", got)
	}
}

// byeHeavyDoubleElim builds an 8-slot double elimination with only 4 real
// teams, which makes the first losers round consist of byes alone.
func byeHeavyDoubleElim(t *testing.T) *models.BracketData {
	t.Helper()

	seeding := make([]*skeleton.Seed, 8)
	for i := 0; i < 4; i++ {
		seeding[i] = &skeleton.Seed{ID: i + 1, Name: teamName(i + 1)}
	}

	data, err := skeleton.NewGenerator().Generate(skeleton.GenerateParams{
		TournamentID: 1,
		Name:         "Stage",
		Type:         models.BracketDoubleElimination,
		Seeding:      seeding,
		Settings:     models.StageSettings{GrandFinal: "double"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return data
}

func TestDoubleEliminationSourceSkipsByeOnlyLosersRound(t *testing.T) {
	data := byeHeavyDoubleElim(t)
	bracket := newTestBracket(t, models.BracketDoubleElimination, data, 4)
	de := bracket.(*DoubleEliminationBracket)

	for _, pair := range [][2]int{{1, 4}, {2, 3}} {
		match := findMatch(t, data, pair[0], pair[1])
		recordWin(t, match, pair[0], 2, 0)
		if _, err := de.PropagateResult(match.ID); err != nil {
			t.Fatalf("propagate match %d: %v", match.ID, err)
		}
	}

	// the dropped teams sit in bye rows of the intake round; place them
	// into the third losers round by hand and resolve it
	losersRounds := de.losersRounds()
	if len(losersRounds) != 4 {
		t.Fatalf("expected 4 losers rounds, got %d", len(losersRounds))
	}
	thirdRound := matchesOfRound(data.Matches, losersRounds[2].ID)
	if len(thirdRound) != 1 {
		t.Fatalf("expected 1 match in the third losers round, got %d", len(thirdRound))
	}
	thirdRound[0].Opponent1.ID = intPtr(4)
	thirdRound[0].Opponent2.ID = intPtr(3)
	recordWin(t, thirdRound[0], 3, 2, 1)

	// -1 and -2 would normally cover two losers rounds; the bye-only first
	// round extends the window to three, reaching the match just played
	result, err := bracket.Source([]int{-1, -2})
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if !result.RelevantMatchesFinished {
		t.Error("expected relevant matches to be finished")
	}
	if len(result.Teams) != 1 || result.Teams[0].ID != 4 {
		t.Fatalf("source teams = %v, want just team 4", result.Teams)
	}
}

func TestDoubleEliminationSourceRejectsPositivePlacements(t *testing.T) {
	data := generateData(t, models.BracketDoubleElimination, 4, models.StageSettings{GrandFinal: "double"})
	bracket := newTestBracket(t, models.BracketDoubleElimination, data, 4)

	if _, err := bracket.Source([]int{1}); err == nil {
		t.Fatal("expected an error for positive placements")
	}
}

func TestWinnersSourceRound(t *testing.T) {
	data := generateData(t, models.BracketDoubleElimination, 8, models.StageSettings{GrandFinal: "double"})
	bracket := newTestBracket(t, models.BracketDoubleElimination, data, 8)
	de := bracket.(*DoubleEliminationBracket)

	cases := []struct {
		losersRound int
		wantWinners int // 0 means no source round
	}{
		{1, 1},
		{2, 2},
		{3, 0},
		{4, 3},
	}
	for _, tc := range cases {
		round := de.WinnersSourceRound(tc.losersRound)
		if tc.wantWinners == 0 {
			if round != nil {
				t.Errorf("losers round %d: expected no source round, got winners round %d", tc.losersRound, round.Number)
			}
			continue
		}
		if round == nil {
			t.Errorf("losers round %d: expected winners round %d, got none", tc.losersRound, tc.wantWinners)
			continue
		}
		if round.Number != tc.wantWinners {
			t.Errorf("losers round %d: got winners round %d, want %d", tc.losersRound, round.Number, tc.wantWinners)
		}
	}
}
