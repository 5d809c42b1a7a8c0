package brackets

import (
	"errors"
	"testing"

	"github.com/Aibek0/bracket-engine/models"
)

func TestPropagateResultFillsNextRound(t *testing.T) {
	data := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	bracket := newTestBracket(t, models.BracketSingleElimination, data, 4).(*SingleEliminationBracket)

	opener := findMatch(t, data, 1, 4)
	recordWin(t, opener, 1, 2, 0)

	modified, err := bracket.PropagateResult(opener.ID)
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if len(modified) != 1 {
		t.Fatalf("expected 1 modified match, got %d", len(modified))
	}
	final := modified[0]
	if final.Opponent1.ID == nil || *final.Opponent1.ID != 1 {
		t.Fatal("winner was not slotted into the final")
	}

	// propagating again must be a no-op
	modified, err = bracket.PropagateResult(opener.ID)
	if err != nil {
		t.Fatalf("repeat propagate: %v", err)
	}
	if len(modified) != 0 {
		t.Fatalf("repeat propagation modified %d matches", len(modified))
	}
}

func TestPropagateResultRequiresWinner(t *testing.T) {
	data := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	bracket := newTestBracket(t, models.BracketSingleElimination, data, 4).(*SingleEliminationBracket)

	opener := findMatch(t, data, 1, 4)
	if _, err := bracket.PropagateResult(opener.ID); !errors.Is(err, ErrMatchNotOver) {
		t.Fatalf("expected ErrMatchNotOver, got %v", err)
	}
}

func TestRetractResultClearsSlots(t *testing.T) {
	data := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	bracket := newTestBracket(t, models.BracketSingleElimination, data, 4).(*SingleEliminationBracket)

	opener := findMatch(t, data, 1, 4)
	recordWin(t, opener, 1, 2, 0)
	if _, err := bracket.PropagateResult(opener.ID); err != nil {
		t.Fatalf("propagate: %v", err)
	}

	modified, err := bracket.RetractResult(opener.ID)
	if err != nil {
		t.Fatalf("retract: %v", err)
	}
	if len(modified) != 1 {
		t.Fatalf("expected 1 modified match, got %d", len(modified))
	}
	final := modified[0]
	if final.Opponent1.ID != nil {
		t.Fatal("retraction left the winner in the final's slot")
	}
}

func TestPropagateFeedsLoserIntoLosersBracket(t *testing.T) {
	data := generateData(t, models.BracketDoubleElimination, 4, models.StageSettings{GrandFinal: "double"})
	bracket := newTestBracket(t, models.BracketDoubleElimination, data, 4).(*DoubleEliminationBracket)

	opener := findMatch(t, data, 1, 4)
	recordWin(t, opener, 1, 2, 0)

	modified, err := bracket.PropagateResult(opener.ID)
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if len(modified) != 2 {
		t.Fatalf("expected the next winners match and the losers intake, got %d matches", len(modified))
	}

	losersGroup := bracket.losersGroupID()
	foundLoser := false
	for _, match := range modified {
		if match.GroupID == losersGroup && slotContains(match, 4) {
			foundLoser = true
		}
	}
	if !foundLoser {
		t.Fatal("loser was not dropped into the losers bracket")
	}
}

func TestPropagateGrandFinalCollapseFeedsNothing(t *testing.T) {
	data := generateData(t, models.BracketDoubleElimination, 4, models.StageSettings{GrandFinal: "double"})
	bracket := newTestBracket(t, models.BracketDoubleElimination, data, 4).(*DoubleEliminationBracket)

	for _, pair := range [][2]int{{1, 4}, {2, 3}, {1, 2}, {3, 4}, {3, 2}} {
		match := findMatch(t, data, pair[0], pair[1])
		recordWin(t, match, pair[0], 2, 0)
		if _, err := bracket.PropagateResult(match.ID); err != nil {
			t.Fatalf("propagate match %d: %v", match.ID, err)
		}
	}

	// winners side champion takes the first grand final
	grandFinal := findMatch(t, data, 1, 3)
	recordWin(t, grandFinal, 1, 2, 0)

	modified, err := bracket.PropagateResult(grandFinal.ID)
	if err != nil {
		t.Fatalf("propagate grand final: %v", err)
	}
	if len(modified) != 0 {
		t.Fatalf("a collapsed reset match must receive nothing, got %d modified matches", len(modified))
	}

	finals := bracket.grandFinalMatches()
	if len(finals) != 2 {
		t.Fatalf("expected 2 grand final matches, got %d", len(finals))
	}
	if finals[1].Opponent1.ID != nil || finals[1].Opponent2.ID != nil {
		t.Fatal("the reset match must stay empty after the collapse")
	}
}
