package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Aibek0/bracket-engine/models"
	"github.com/Aibek0/bracket-engine/repositories"
	"github.com/Aibek0/bracket-engine/storage"
)

// regularCheckInWindow mirrors the orchestrator: tournament-wide check-in
// opens one hour before the start time.
const regularCheckInWindow = time.Hour

type TeamService interface {
	Register(ctx context.Context, actor Actor, tournamentID int, name string) (*models.Team, error)
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Team, error)

	// CheckIn records a per-bracket check-in. Bracket index 0 is the
	// tournament-wide check-in and is only accepted inside the regular
	// window before the start time.
	CheckIn(ctx context.Context, actor Actor, teamID, bracketIdx int) error

	SetDroppedOut(ctx context.Context, actor Actor, teamID int, droppedOut bool) error
	UploadLogo(ctx context.Context, actor Actor, teamID int, contentType string, file io.Reader) (*models.Team, error)
	Delete(ctx context.Context, actor Actor, teamID int) error
}

type teamService struct {
	teamRepo       repositories.TeamRepository
	tournamentRepo repositories.TournamentRepository
	uploader       storage.FileUploader
	now            func() time.Time
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	uploader storage.FileUploader,
) TeamService {
	return &teamService{
		teamRepo:       teamRepo,
		tournamentRepo: tournamentRepo,
		uploader:       uploader,
		now:            time.Now,
	}
}

func (s *teamService) Register(ctx context.Context, actor Actor, tournamentID int, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	tournament, err := s.managedTournament(ctx, actor, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusSoon && tournament.Status != models.StatusRegistration {
		return nil, ErrRegistrationNotOpen
	}

	team := &models.Team{
		TournamentID: tournamentID,
		Name:         name,
	}
	if err := s.teamRepo.Create(ctx, nil, team); err != nil {
		return nil, s.mapTeamError(err)
	}
	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapTeamError(err)
	}
	s.populateLogoURL(team)
	return team, nil
}

func (s *teamService) ListByTournament(ctx context.Context, tournamentID int) ([]models.Team, error) {
	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		s.populateLogoURL(&teams[i])
	}
	return teams, nil
}

func (s *teamService) CheckIn(ctx context.Context, actor Actor, teamID, bracketIdx int) error {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return s.mapTeamError(err)
	}

	tournament, err := s.managedTournament(ctx, actor, team.TournamentID)
	if err != nil {
		return err
	}
	if tournament.IsFinalized {
		return ErrTournamentFinalized
	}
	if bracketIdx < 0 || bracketIdx >= len(tournament.Settings.BracketProgression) {
		return ErrBracketNotFound
	}

	now := s.now()
	if bracketIdx == 0 && now.Before(tournament.StartDate.Add(-regularCheckInWindow)) {
		return ErrCheckInClosed
	}

	if err := s.teamRepo.CheckIn(ctx, nil, teamID, bracketIdx, now); err != nil {
		if errors.Is(err, repositories.ErrCheckInConflict) {
			return ErrCheckInConflict
		}
		return s.mapTeamError(err)
	}
	return nil
}

func (s *teamService) SetDroppedOut(ctx context.Context, actor Actor, teamID int, droppedOut bool) error {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return s.mapTeamError(err)
	}
	if _, err := s.managedTournament(ctx, actor, team.TournamentID); err != nil {
		return err
	}
	return s.mapTeamError(s.teamRepo.UpdateDroppedOut(ctx, nil, teamID, droppedOut))
}

func (s *teamService) UploadLogo(ctx context.Context, actor Actor, teamID int, contentType string, file io.Reader) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, s.mapTeamError(err)
	}
	if _, err := s.managedTournament(ctx, actor, team.TournamentID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("teams/%d/logo", teamID)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload team logo: %w", err)
	}

	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, &result.Key); err != nil {
		return nil, s.mapTeamError(err)
	}
	team.LogoKey = &result.Key
	s.populateLogoURL(team)
	return team, nil
}

func (s *teamService) Delete(ctx context.Context, actor Actor, teamID int) error {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return s.mapTeamError(err)
	}

	tournament, err := s.managedTournament(ctx, actor, team.TournamentID)
	if err != nil {
		return err
	}
	// removing a team after brackets started would corrupt seeding
	if tournament.Status == models.StatusActive || tournament.Status == models.StatusCompleted {
		return ErrBracketAlreadyStarted
	}

	return s.mapTeamError(s.teamRepo.Delete(ctx, teamID))
}

func (s *teamService) managedTournament(ctx context.Context, actor Actor, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if !actor.canManage(tournament) {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}

func (s *teamService) populateLogoURL(team *models.Team) {
	if team.LogoKey == nil || s.uploader == nil {
		return
	}
	url := s.uploader.GetPublicURL(*team.LogoKey)
	team.LogoURL = &url
}

func (s *teamService) mapTeamError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrTeamNameConflict):
		return ErrTeamNameConflict
	case errors.Is(err, repositories.ErrTeamInvalidTournament):
		return ErrTournamentNotFound
	}
	return err
}
