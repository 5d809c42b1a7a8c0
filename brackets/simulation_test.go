package brackets

import (
	"testing"

	"github.com/Aibek0/bracket-engine/models"
)

func TestSimulateOutcomesBetterSeedAdvances(t *testing.T) {
	data := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	bracket := newTestBracket(t, models.BracketSingleElimination, data, 4).(*SingleEliminationBracket)

	simulated, err := bracket.SimulateOutcomes(nil)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if simulated == nil {
		t.Fatal("simulation was abandoned for a well-formed bracket")
	}

	var final *models.Match
	for _, match := range simulated {
		if match.RoundID == 1 {
			final = match
		}
	}
	if final == nil {
		t.Fatal("no final in the simulated match list")
	}
	if final.Opponent1.ID == nil || final.Opponent2.ID == nil {
		t.Fatal("simulation left the final unresolved")
	}
	got := map[int]bool{*final.Opponent1.ID: true, *final.Opponent2.ID: true}
	if !got[1] || !got[2] {
		t.Fatalf("final pairs %d vs %d, want seeds 1 and 2", *final.Opponent1.ID, *final.Opponent2.ID)
	}

	// the simulation works on a copy; real data stays untouched
	for _, match := range data.Matches {
		if match.RoundID == 1 && (match.Opponent1.ID != nil || match.Opponent2.ID != nil) {
			t.Fatal("simulation mutated the bracket's own data")
		}
	}
}

func TestSimulateOutcomesKeepsRecordedResults(t *testing.T) {
	data := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	bracket := newTestBracket(t, models.BracketSingleElimination, data, 4).(*SingleEliminationBracket)

	// the underdog already won its opener; simulation must respect that
	opener := findMatch(t, data, 1, 4)
	recordWin(t, opener, 4, 2, 1)

	simulated, err := bracket.SimulateOutcomes(nil)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	var final *models.Match
	for _, match := range simulated {
		if match.RoundID == 1 {
			final = match
		}
	}
	if final == nil || final.Opponent1.ID == nil {
		t.Fatal("no resolved final in the simulated match list")
	}
	if *final.Opponent1.ID != 4 {
		t.Fatalf("final slot 1 holds team %d, want the recorded winner 4", *final.Opponent1.ID)
	}
}
