package brackets

import (
	"testing"

	"github.com/Aibek0/bracket-engine/models"
)

// playSingleElim4 runs a 4-team single elimination to completion: team 1
// and team 3 win their openers, team 1 takes the final.
func playSingleElim4(t *testing.T, bracket Bracket) {
	t.Helper()

	se := bracket.(*SingleEliminationBracket)
	data := bracket.Data()

	opener1 := findMatch(t, data, 1, 4)
	recordWin(t, opener1, 1, 2, 0)
	if _, err := se.PropagateResult(opener1.ID); err != nil {
		t.Fatalf("propagate opener 1: %v", err)
	}

	opener2 := findMatch(t, data, 2, 3)
	recordWin(t, opener2, 3, 2, 1)
	if _, err := se.PropagateResult(opener2.ID); err != nil {
		t.Fatalf("propagate opener 2: %v", err)
	}

	final := findMatch(t, data, 1, 3)
	recordWin(t, final, 1, 2, 1)
	if _, err := se.PropagateResult(final.ID); err != nil {
		t.Fatalf("propagate final: %v", err)
	}
}

func TestSingleEliminationStandingsSharedThirdPlace(t *testing.T) {
	data := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	bracket := newTestBracket(t, models.BracketSingleElimination, data, 4)
	playSingleElim4(t, bracket)

	if !bracket.EveryMatchOver() {
		t.Fatal("expected every match to be over")
	}

	standings, err := bracket.Standings()
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(standings) != 4 {
		t.Fatalf("expected 4 standings rows, got %d", len(standings))
	}

	want := map[int]int{1: 1, 3: 2, 2: 3, 4: 3}
	for teamID, placement := range want {
		if got := placementOf(t, standings, teamID); got != placement {
			t.Errorf("team %d: placement = %d, want %d", teamID, got, placement)
		}
	}
}

func TestSingleEliminationThirdPlaceMatchSplitsTie(t *testing.T) {
	enabled := true
	data := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{ConsolationFinal: &enabled})
	bracket := newTestBracket(t, models.BracketSingleElimination, data, 4)
	playSingleElim4(t, bracket)

	// semifinal losers 4 and 2 were propagated into the consolation final
	consolation := findMatch(t, data, 2, 4)
	recordWin(t, consolation, 4, 2, 1)

	standings, err := bracket.Standings()
	if err != nil {
		t.Fatalf("standings: %v", err)
	}

	want := map[int]int{1: 1, 3: 2, 4: 3, 2: 4}
	for teamID, placement := range want {
		if got := placementOf(t, standings, teamID); got != placement {
			t.Errorf("team %d: placement = %d, want %d", teamID, got, placement)
		}
	}
}

func TestSingleEliminationPartialStandingsOnlyRankEliminated(t *testing.T) {
	data := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	bracket := newTestBracket(t, models.BracketSingleElimination, data, 4)

	se := bracket.(*SingleEliminationBracket)
	opener := findMatch(t, data, 1, 4)
	recordWin(t, opener, 1, 2, 0)
	if _, err := se.PropagateResult(opener.ID); err != nil {
		t.Fatalf("propagate: %v", err)
	}

	standings, err := bracket.Standings()
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(standings) != 1 {
		t.Fatalf("expected only the eliminated team ranked, got %d rows", len(standings))
	}
	// three teams remain in the running, so the sole eliminated team
	// currently holds fourth place
	if standings[0].Team.ID != 4 || standings[0].Placement != 4 {
		t.Fatalf("eliminated team: got team %d at %d, want team 4 at 4",
			standings[0].Team.ID, standings[0].Placement)
	}
}

func TestSingleEliminationSourceSelectsPlacements(t *testing.T) {
	data := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	bracket := newTestBracket(t, models.BracketSingleElimination, data, 4)
	playSingleElim4(t, bracket)

	result, err := bracket.Source([]int{1, 2})
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if !result.RelevantMatchesFinished {
		t.Error("expected relevant matches to be finished")
	}
	if len(result.Teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(result.Teams))
	}
	if result.Teams[0].ID != 1 || result.Teams[1].ID != 3 {
		t.Errorf("source teams = [%d %d], want [1 3]", result.Teams[0].ID, result.Teams[1].ID)
	}
}

func TestSingleEliminationSourceRejectsNegativePlacements(t *testing.T) {
	data := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	bracket := newTestBracket(t, models.BracketSingleElimination, data, 4)

	if _, err := bracket.Source([]int{-1}); err == nil {
		t.Fatal("expected an error for negative placements")
	}
}
