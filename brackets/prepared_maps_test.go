package brackets

import (
	"testing"
	"time"

	"github.com/Aibek0/bracket-engine/models"
)

func TestEliminationTeamCountBucket(t *testing.T) {
	cases := map[int]int{
		2:   2,
		3:   4,
		4:   4,
		5:   8,
		9:   16,
		65:  128,
		128: 128,
	}
	for teamCount, want := range cases {
		if got := EliminationTeamCountBucket(teamCount); got != want {
			t.Errorf("bucket(%d) = %d, want %d", teamCount, got, want)
		}
	}
}

func TestResolvePreparedFallsBackToSibling(t *testing.T) {
	progression := []models.BracketProgressionEntry{
		{Type: models.BracketRoundRobin, Name: "Groups"},
		{Type: models.BracketSingleElimination, Name: "Upper Cut", Sources: []models.BracketSource{
			{BracketIdx: 0, Placements: []int{1, 2}},
		}},
		{Type: models.BracketSingleElimination, Name: "Lower Cut", Sources: []models.BracketSource{
			{BracketIdx: 0, Placements: []int{3, 4}},
		}},
	}
	prepared := &models.PreparedMaps{AuthorID: 7, CreatedAt: time.Now()}
	resolver := NewPreparedMapsResolver(map[int]*models.PreparedMaps{1: prepared}, progression, nil)

	if got := resolver.ResolvePreparedForTheBracket(1); got != prepared {
		t.Fatal("exact hit must return the bracket's own prepared maps")
	}
	// bracket 2 shares stage type and upstream with bracket 1
	if got := resolver.ResolvePreparedForTheBracket(2); got != prepared {
		t.Fatal("sibling with matching type and sources must inherit prepared maps")
	}
	if got := resolver.ResolvePreparedForTheBracket(0); got != nil {
		t.Fatal("a bracket of a different type must not inherit prepared maps")
	}
	if got := resolver.ResolvePreparedForTheBracket(5); got != nil {
		t.Fatal("an out of range bracket index must resolve to nothing")
	}
}

func TestTrimPreparedEliminationMapsKeepsTail(t *testing.T) {
	bucket := 8
	prepared := &models.PreparedMaps{
		AuthorID:             7,
		EliminationTeamCount: &bucket,
		Maps: []models.PreparedRoundMaps{
			{GroupID: 0, RoundID: 0, Count: 1, Type: models.MapListBestOf},
			{GroupID: 0, RoundID: 1, Count: 3, Type: models.MapListBestOf},
			{GroupID: 0, RoundID: 2, Count: 5, Type: models.MapListBestOf},
		},
	}

	resolver := NewPreparedMapsResolver(nil, nil, nil)
	trimmed := resolver.TrimPreparedEliminationMaps(TrimArgs{
		Prepared:  prepared,
		Type:      models.BracketSingleElimination,
		TeamCount: 4,
		Name:      "Playoffs",
	})
	if trimmed == nil {
		t.Fatal("expected a trimmed set")
	}
	if trimmed.EliminationTeamCount == nil || *trimmed.EliminationTeamCount != 4 {
		t.Fatalf("trimmed bucket = %v, want 4", trimmed.EliminationTeamCount)
	}
	if len(trimmed.Maps) != 2 {
		t.Fatalf("expected 2 rounds of maps, got %d", len(trimmed.Maps))
	}

	// a 4-team bracket drops the earliest prepared round; the semifinal and
	// final lists survive, remapped onto the real round ids
	if trimmed.Maps[0].Count != 3 || trimmed.Maps[1].Count != 5 {
		t.Errorf("map counts = [%d %d], want [3 5]", trimmed.Maps[0].Count, trimmed.Maps[1].Count)
	}
	if trimmed.Maps[0].RoundID != 0 || trimmed.Maps[1].RoundID != 1 {
		t.Errorf("round ids = [%d %d], want [0 1]", trimmed.Maps[0].RoundID, trimmed.Maps[1].RoundID)
	}
}

func TestTrimPreparedEliminationMapsPassthroughSameBucket(t *testing.T) {
	bucket := 4
	prepared := &models.PreparedMaps{EliminationTeamCount: &bucket}

	resolver := NewPreparedMapsResolver(nil, nil, nil)
	trimmed := resolver.TrimPreparedEliminationMaps(TrimArgs{
		Prepared:  prepared,
		Type:      models.BracketSingleElimination,
		TeamCount: 3, // buckets to 4 as well
		Name:      "Playoffs",
	})
	if trimmed != prepared {
		t.Fatal("a same-bucket prepared set must come back unmodified")
	}
}

func TestTrimPreparedEliminationMapsRejectsSmallerPreparation(t *testing.T) {
	bucket := 4
	prepared := &models.PreparedMaps{EliminationTeamCount: &bucket}

	resolver := NewPreparedMapsResolver(nil, nil, nil)
	trimmed := resolver.TrimPreparedEliminationMaps(TrimArgs{
		Prepared:  prepared,
		Type:      models.BracketSingleElimination,
		TeamCount: 8,
		Name:      "Playoffs",
	})
	if trimmed != nil {
		t.Fatal("maps prepared for fewer teams than play cannot be used")
	}
}
