package brackets

import (
	"testing"
	"time"

	"github.com/Aibek0/bracket-engine/models"
	"github.com/Aibek0/bracket-engine/skeleton"
)

func tournamentModel(teamCount int, progression []models.BracketProgressionEntry) *models.Tournament {
	teams := make([]models.Team, 0, teamCount)
	for i := 1; i <= teamCount; i++ {
		teams = append(teams, models.Team{ID: i, TournamentID: 1, Name: teamName(i)})
	}
	return &models.Tournament{
		ID:          1,
		Name:        "Test Cup",
		OrganizerID: 1,
		StartDate:   time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC),
		Status:      models.StatusActive,
		Settings:    models.TournamentSettings{BracketProgression: progression},
		Teams:       teams,
		CreatedAt:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestTournament(t *testing.T, model *models.Tournament, stageData []*models.BracketData, now time.Time) *Tournament {
	t.Helper()

	tournament, err := NewTournament(Args{
		Tournament: model,
		StageData:  stageData,
		Now:        now,
	})
	if err != nil {
		t.Fatalf("NewTournament: %v", err)
	}
	return tournament
}

func singleElimProgression() []models.BracketProgressionEntry {
	return []models.BracketProgressionEntry{
		{Type: models.BracketSingleElimination, Name: "Playoffs"},
	}
}

func TestFirstBracketBeforeCheckInWindow(t *testing.T) {
	model := tournamentModel(4, singleElimProgression())
	now := model.StartDate.Add(-2 * time.Hour)

	tournament := newTestTournament(t, model, nil, now)
	bracket := tournament.Brackets()[0]

	if !bracket.Preview() {
		t.Fatal("unstarted bracket must be a preview")
	}
	if !bracket.CanBeStarted() {
		t.Fatal("before the check-in window every registered team counts as present")
	}
	if len(bracket.TeamsPendingCheckIn()) != 0 {
		t.Fatalf("expected no pending teams, got %v", bracket.TeamsPendingCheckIn())
	}
	if got := len(bracket.Data().Participants); got != 4 {
		t.Fatalf("expected 4 participants, got %d", got)
	}
}

func TestFirstBracketInsideCheckInWindow(t *testing.T) {
	model := tournamentModel(4, singleElimProgression())
	now := model.StartDate.Add(-30 * time.Minute)

	tournament := newTestTournament(t, model, nil, now)
	bracket := tournament.Brackets()[0]

	if bracket.CanBeStarted() {
		t.Fatal("no team has checked in, the bracket must not be startable")
	}
	if got := len(bracket.TeamsPendingCheckIn()); got != 4 {
		t.Fatalf("expected 4 pending teams, got %d", got)
	}

	for i := range model.Teams {
		model.Teams[i].CheckIns = []models.TeamCheckIn{{BracketIdx: 0, CheckedInAt: now}}
	}
	tournament = newTestTournament(t, model, nil, now)
	bracket = tournament.Brackets()[0]

	if !bracket.CanBeStarted() {
		t.Fatal("every team checked in, the bracket must be startable")
	}
	if len(bracket.TeamsPendingCheckIn()) != 0 {
		t.Fatalf("expected no pending teams, got %v", bracket.TeamsPendingCheckIn())
	}
}

func TestLaterBracketRequiresExplicitCheckIn(t *testing.T) {
	progression := []models.BracketProgressionEntry{
		{Type: models.BracketSingleElimination, Name: "Qualifier"},
		{Type: models.BracketSingleElimination, Name: "Final", Sources: []models.BracketSource{
			{BracketIdx: 0, Placements: []int{1, 2}},
		}},
	}
	model := tournamentModel(4, progression)
	now := model.StartDate.Add(-2 * time.Hour)

	qualifier := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	tournament := newTestTournament(t, model, []*models.BracketData{qualifier}, now)
	playSingleElim4(t, tournament.Brackets()[0])

	// rebuild so the final's preview sees the finished qualifier
	tournament = newTestTournament(t, model, []*models.BracketData{qualifier}, now)
	final := tournament.Brackets()[1]
	if final.CanBeStarted() {
		t.Fatal("the final needs explicit check-ins regardless of the tournament window")
	}
	if got := len(final.TeamsPendingCheckIn()); got != 2 {
		t.Fatalf("expected 2 pending teams, got %d", got)
	}

	for i := range model.Teams {
		id := model.Teams[i].ID
		if id == 1 || id == 3 {
			model.Teams[i].CheckIns = []models.TeamCheckIn{{BracketIdx: 1, CheckedInAt: now}}
		}
	}
	tournament = newTestTournament(t, model, []*models.BracketData{qualifier}, now)
	if !tournament.Brackets()[1].CanBeStarted() {
		t.Fatal("both qualified teams checked in, the final must be startable")
	}
}

func TestMatchCanBeReopenedRules(t *testing.T) {
	model := tournamentModel(4, singleElimProgression())
	data := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	now := model.StartDate.Add(-2 * time.Hour)

	opener := findMatch(t, data, 1, 4)
	recordWin(t, opener, 1, 2, 0)

	tournament := newTestTournament(t, model, []*models.BracketData{data}, now)
	se := tournament.Brackets()[0].(*SingleEliminationBracket)
	if _, err := se.PropagateResult(opener.ID); err != nil {
		t.Fatalf("propagate: %v", err)
	}

	canReopen, err := tournament.MatchCanBeReopened(opener.ID)
	if err != nil {
		t.Fatalf("MatchCanBeReopened: %v", err)
	}
	if !canReopen {
		t.Fatal("nothing downstream has progressed, the match must be reopenable")
	}

	// once the final carries a score the opener is pinned
	otherOpener := findMatch(t, data, 2, 3)
	recordWin(t, otherOpener, 3, 2, 1)
	if _, err := se.PropagateResult(otherOpener.ID); err != nil {
		t.Fatalf("propagate: %v", err)
	}
	final := findMatch(t, data, 1, 3)
	recordWin(t, final, 1, 2, 0)

	canReopen, err = tournament.MatchCanBeReopened(opener.ID)
	if err != nil {
		t.Fatalf("MatchCanBeReopened: %v", err)
	}
	if canReopen {
		t.Fatal("a scored following match must block reopening")
	}

	// finalization blocks everything
	model.IsFinalized = true
	tournament = newTestTournament(t, model, []*models.BracketData{data}, now)
	canReopen, err = tournament.MatchCanBeReopened(final.ID)
	if err != nil {
		t.Fatalf("MatchCanBeReopened: %v", err)
	}
	if canReopen {
		t.Fatal("a finalized tournament must block reopening")
	}
}

func TestSwissMatchPinnedByGeneratedRound(t *testing.T) {
	progression := []models.BracketProgressionEntry{
		{Type: models.BracketSwiss, Name: "Swiss"},
	}
	model := tournamentModel(4, progression)
	model.Settings.Swiss = &models.SwissSettings{GroupCount: 1, RoundCount: 2}

	data := createSwissData(4, 1, 2)
	roundOne := findMatch(t, data, 1, 3)
	recordWin(t, roundOne, 1, 2, 0)
	recordWin(t, findMatch(t, data, 2, 4), 2, 2, 0)

	now := model.StartDate.Add(-2 * time.Hour)
	tournament := newTestTournament(t, model, []*models.BracketData{data}, now)

	canReopen, err := tournament.MatchCanBeReopened(roundOne.ID)
	if err != nil {
		t.Fatalf("MatchCanBeReopened: %v", err)
	}
	if !canReopen {
		t.Fatal("no later round exists yet, the match must be reopenable")
	}

	generated, err := tournament.Brackets()[0].(*SwissBracket).GenerateMatchUps(0)
	if err != nil {
		t.Fatalf("generate round 2: %v", err)
	}
	appendInsertable(data, generated)

	tournament = newTestTournament(t, model, []*models.BracketData{data}, now)
	canReopen, err = tournament.MatchCanBeReopened(roundOne.ID)
	if err != nil {
		t.Fatalf("MatchCanBeReopened: %v", err)
	}
	if canReopen {
		t.Fatal("a generated later round must pin every earlier swiss match")
	}
}

func TestFinalStandingsMergeAcrossBrackets(t *testing.T) {
	progression := []models.BracketProgressionEntry{
		{Type: models.BracketSingleElimination, Name: "Qualifier"},
		{Type: models.BracketSingleElimination, Name: "Final", Sources: []models.BracketSource{
			{BracketIdx: 0, Placements: []int{1, 2}},
		}},
	}
	model := tournamentModel(4, progression)
	now := model.StartDate.Add(-2 * time.Hour)

	qualifier := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	tournament := newTestTournament(t, model, []*models.BracketData{qualifier}, now)
	playSingleElim4(t, tournament.Brackets()[0])

	// the final: teams 1 and 3 qualified, 3 takes the rematch
	finalData, err := skeleton.NewGenerator().Generate(skeleton.GenerateParams{
		TournamentID: 1,
		StageID:      1,
		Name:         "Final",
		Type:         models.BracketSingleElimination,
		Seeding: []*skeleton.Seed{
			{ID: 1, Name: teamName(1)},
			{ID: 3, Name: teamName(3)},
		},
	})
	if err != nil {
		t.Fatalf("generate final: %v", err)
	}
	// stage data ids must not collide across started brackets
	for _, match := range finalData.Matches {
		match.ID += 100
	}
	recordWin(t, findMatch(t, finalData, 1, 3), 3, 2, 1)

	tournament = newTestTournament(t, model, []*models.BracketData{qualifier, finalData}, now)

	if !tournament.EveryBracketOver() {
		t.Fatal("expected every bracket to be over")
	}

	standings, err := tournament.FinalStandings()
	if err != nil {
		t.Fatalf("FinalStandings: %v", err)
	}
	if len(standings) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(standings))
	}

	// the later bracket outranks the qualifier, and its loser keeps second
	// place over the qualifier's claim that team 1 won
	want := map[int]int{3: 1, 1: 2, 2: 3, 4: 3}
	for teamID, placement := range want {
		if got := placementOf(t, standings, teamID); got != placement {
			t.Errorf("team %d: placement = %d, want %d", teamID, got, placement)
		}
	}
}

func TestEveryBracketOverFalseWithPreview(t *testing.T) {
	model := tournamentModel(4, singleElimProgression())
	tournament := newTestTournament(t, model, nil, model.StartDate.Add(-2*time.Hour))

	if tournament.EveryBracketOver() {
		t.Fatal("a preview bracket cannot count as over")
	}
}

func TestAdjustSeedingForReplaysReducesRepeats(t *testing.T) {
	progression := []models.BracketProgressionEntry{
		{Type: models.BracketSingleElimination, Name: "Qualifier"},
		{Type: models.BracketSingleElimination, Name: "Playoffs", Sources: []models.BracketSource{
			{BracketIdx: 0, Placements: []int{1, 2, 3, 4, 5, 6, 7, 8}},
		}},
	}
	model := tournamentModel(8, progression)
	now := model.StartDate.Add(-2 * time.Hour)

	qualifier := generateData(t, models.BracketSingleElimination, 8, models.StageSettings{})
	tournament := newTestTournament(t, model, []*models.BracketData{qualifier}, now)

	history := make(map[pairKey]bool)
	for _, match := range qualifier.Matches {
		if match.IsBye() || match.Opponent1.ID == nil || match.Opponent2.ID == nil {
			continue
		}
		history[keyOf(*match.Opponent1.ID, *match.Opponent2.ID)] = true
	}

	entry := progression[1]
	teams := standingTeams(8)

	before, _, err := tournament.replayScan(entry, teams, history)
	if err != nil {
		t.Fatalf("replayScan: %v", err)
	}
	if before == 0 {
		t.Fatal("the unmodified order must produce replays for this test to mean anything")
	}

	adjusted := tournament.adjustSeedingForReplays(entry, teams)
	if len(adjusted) != len(teams) {
		t.Fatalf("adjusted seeding has %d teams, want %d", len(adjusted), len(teams))
	}

	after, _, err := tournament.replayScan(entry, adjusted, history)
	if err != nil {
		t.Fatalf("replayScan adjusted: %v", err)
	}
	if after >= before {
		t.Fatalf("replays went from %d to %d, expected a reduction", before, after)
	}
}

func TestAdjustSeedingSkipsSmallFields(t *testing.T) {
	progression := []models.BracketProgressionEntry{
		{Type: models.BracketSingleElimination, Name: "Qualifier"},
		{Type: models.BracketSingleElimination, Name: "Playoffs", Sources: []models.BracketSource{
			{BracketIdx: 0, Placements: []int{1, 2, 3, 4}},
		}},
	}
	model := tournamentModel(4, progression)
	qualifier := generateData(t, models.BracketSingleElimination, 4, models.StageSettings{})
	tournament := newTestTournament(t, model, []*models.BracketData{qualifier}, model.StartDate.Add(-2*time.Hour))

	teams := standingTeams(4)
	adjusted := tournament.adjustSeedingForReplays(progression[1], teams)
	for i := range teams {
		if adjusted[i].ID != teams[i].ID {
			t.Fatal("fields under 8 teams must keep their original order")
		}
	}
}
