package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Aibek0/bracket-engine/models"
	"github.com/Aibek0/bracket-engine/repositories"
)

// fakeTournamentRepo keeps a single tournament in memory. Enough for the
// authorization and lifecycle rules, which never touch SQL directly.
type fakeTournamentRepo struct {
	tournament *models.Tournament
	statusSet  *models.TournamentStatus
}

func (f *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	t.ID = 1
	f.tournament = t
	return nil
}

func (f *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	if f.tournament == nil || f.tournament.ID != id {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *f.tournament
	return &copied, nil
}

func (f *fakeTournamentRepo) List(_ context.Context, _ repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	if f.tournament == nil {
		return nil, nil
	}
	return []models.Tournament{*f.tournament}, nil
}

func (f *fakeTournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	f.tournament = t
	return nil
}

func (f *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	if f.tournament == nil || f.tournament.ID != id {
		return repositories.ErrTournamentNotFound
	}
	f.tournament.Status = status
	f.statusSet = &status
	return nil
}

func (f *fakeTournamentRepo) SetFinalized(_ context.Context, _ repositories.SQLExecutor, id int, finalized bool) error {
	if f.tournament == nil || f.tournament.ID != id {
		return repositories.ErrTournamentNotFound
	}
	f.tournament.IsFinalized = finalized
	return nil
}

func (f *fakeTournamentRepo) UpdateLogoKey(_ context.Context, id int, logoKey *string) error {
	if f.tournament == nil || f.tournament.ID != id {
		return repositories.ErrTournamentNotFound
	}
	f.tournament.LogoKey = logoKey
	return nil
}

func (f *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	if f.tournament == nil || f.tournament.ID != id {
		return repositories.ErrTournamentNotFound
	}
	f.tournament = nil
	return nil
}

func validProgression() []models.BracketProgressionEntry {
	return []models.BracketProgressionEntry{
		{Type: models.BracketRoundRobin, Name: "Groups"},
		{Type: models.BracketSingleElimination, Name: "Playoffs", Sources: []models.BracketSource{
			{BracketIdx: 0, Placements: []int{1, 2}},
		}},
	}
}

func TestValidateSettings(t *testing.T) {
	base := models.TournamentSettings{BracketProgression: validProgression()}
	if err := validateSettings(base); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}

	cases := map[string]models.TournamentSettings{
		"empty progression": {},
		"unknown type": {BracketProgression: []models.BracketProgressionEntry{
			{Type: "ladder", Name: "Ladder"},
		}},
		"unnamed bracket": {BracketProgression: []models.BracketProgressionEntry{
			{Type: models.BracketSwiss, Name: "  "},
		}},
		"forward source": {BracketProgression: []models.BracketProgressionEntry{
			{Type: models.BracketRoundRobin, Name: "Groups", Sources: []models.BracketSource{
				{BracketIdx: 1, Placements: []int{1}},
			}},
			{Type: models.BracketSingleElimination, Name: "Playoffs"},
		}},
		"self source": {BracketProgression: []models.BracketProgressionEntry{
			{Type: models.BracketRoundRobin, Name: "Groups", Sources: []models.BracketSource{
				{BracketIdx: 0, Placements: []int{1}},
			}},
		}},
		"source without placements": {BracketProgression: []models.BracketProgressionEntry{
			{Type: models.BracketRoundRobin, Name: "Groups"},
			{Type: models.BracketSingleElimination, Name: "Playoffs", Sources: []models.BracketSource{
				{BracketIdx: 0},
			}},
		}},
		"single team groups": {
			BracketProgression: validProgression(),
			TeamsPerGroup:      1,
		},
		"negative swiss rounds": {
			BracketProgression: validProgression(),
			Swiss:              &models.SwissSettings{RoundCount: -1},
		},
	}
	for name, settings := range cases {
		if err := validateSettings(settings); !errors.Is(err, ErrValidationFailed) {
			t.Errorf("%s: got %v, want ErrValidationFailed", name, err)
		}
	}
}

func seedTournament(repo *fakeTournamentRepo, status models.TournamentStatus) {
	repo.tournament = &models.Tournament{
		ID:          1,
		Name:        "Spring Cup",
		OrganizerID: 10,
		StartDate:   time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC),
		Status:      status,
		Settings:    models.TournamentSettings{BracketProgression: validProgression()},
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	organizer := Actor{ID: 10, Role: models.RoleOrganizer}

	transitions := []struct {
		from models.TournamentStatus
		to   models.TournamentStatus
		ok   bool
	}{
		{models.StatusSoon, models.StatusRegistration, true},
		{models.StatusSoon, models.StatusActive, false},
		{models.StatusRegistration, models.StatusActive, true},
		{models.StatusRegistration, models.StatusSoon, false},
		{models.StatusActive, models.StatusCompleted, true},
		{models.StatusActive, models.StatusCanceled, true},
		{models.StatusCompleted, models.StatusActive, false},
		{models.StatusCanceled, models.StatusRegistration, false},
	}

	for _, tc := range transitions {
		repo := &fakeTournamentRepo{}
		seedTournament(repo, tc.from)
		service := NewTournamentService(repo, nil)

		_, err := service.UpdateStatus(context.Background(), organizer, 1, tc.to)
		if tc.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidStatusTransition) {
			t.Errorf("%s -> %s: got %v, want ErrInvalidStatusTransition", tc.from, tc.to, err)
		}
	}
}

func TestUpdateStatusAuthorization(t *testing.T) {
	repo := &fakeTournamentRepo{}
	seedTournament(repo, models.StatusSoon)
	service := NewTournamentService(repo, nil)

	stranger := Actor{ID: 99, Role: models.RoleOrganizer}
	if _, err := service.UpdateStatus(context.Background(), stranger, 1, models.StatusRegistration); !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("stranger: got %v, want ErrForbiddenOperation", err)
	}

	admin := Actor{ID: 99, Role: models.RoleAdmin}
	if _, err := service.UpdateStatus(context.Background(), admin, 1, models.StatusRegistration); err != nil {
		t.Fatalf("admin: unexpected error %v", err)
	}
	if repo.statusSet == nil || *repo.statusSet != models.StatusRegistration {
		t.Fatal("status change never reached the repository")
	}
}

func TestUpdateLocksProgressionOnceActive(t *testing.T) {
	repo := &fakeTournamentRepo{}
	seedTournament(repo, models.StatusActive)
	service := NewTournamentService(repo, nil)

	organizer := Actor{ID: 10, Role: models.RoleOrganizer}
	settings := models.TournamentSettings{BracketProgression: validProgression()}
	if _, err := service.Update(context.Background(), organizer, 1, UpdateTournamentInput{
		Settings: &settings,
	}); !errors.Is(err, ErrBracketAlreadyStarted) {
		t.Fatalf("got %v, want ErrBracketAlreadyStarted", err)
	}

	// a plain rename is still fine while the bracket runs
	name := "Spring Cup Finals"
	updated, err := service.Update(context.Background(), organizer, 1, UpdateTournamentInput{Name: &name})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.Name != name {
		t.Fatalf("name = %q, want %q", updated.Name, name)
	}
}

func TestUpdateRejectsFinalizedTournament(t *testing.T) {
	repo := &fakeTournamentRepo{}
	seedTournament(repo, models.StatusCompleted)
	repo.tournament.IsFinalized = true
	service := NewTournamentService(repo, nil)

	name := "Renamed"
	organizer := Actor{ID: 10, Role: models.RoleOrganizer}
	if _, err := service.Update(context.Background(), organizer, 1, UpdateTournamentInput{Name: &name}); !errors.Is(err, ErrTournamentFinalized) {
		t.Fatalf("got %v, want ErrTournamentFinalized", err)
	}
}
