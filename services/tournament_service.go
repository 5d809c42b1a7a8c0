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

// Actor identifies the authenticated caller for authorization checks.
type Actor struct {
	ID   int
	Role models.UserRole
}

func (a Actor) canManage(t *models.Tournament) bool {
	return a.Role == models.RoleAdmin || a.ID == t.OrganizerID
}

type CreateTournamentInput struct {
	Name        string                    `json:"name"`
	Description *string                   `json:"description"`
	StartDate   time.Time                 `json:"start_date"`
	Settings    models.TournamentSettings `json:"settings"`
}

type UpdateTournamentInput struct {
	Name        *string                    `json:"name"`
	Description *string                    `json:"description"`
	StartDate   *time.Time                 `json:"start_date"`
	Settings    *models.TournamentSettings `json:"settings"`
}

type TournamentService interface {
	Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, actor Actor, id int, input UpdateTournamentInput) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, actor Actor, id int, status models.TournamentStatus) (*models.Tournament, error)
	UploadLogo(ctx context.Context, actor Actor, id int, contentType string, file io.Reader) (*models.Tournament, error)
	Delete(ctx context.Context, actor Actor, id int) error
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	uploader       storage.FileUploader
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	uploader storage.FileUploader,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		uploader:       uploader,
	}
}

func (s *tournamentService) Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || input.StartDate.IsZero() {
		return nil, ErrValidationFailed
	}
	if err := validateSettings(input.Settings); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Description: input.Description,
		OrganizerID: actor.ID,
		StartDate:   input.StartDate,
		Status:      models.StatusSoon,
		Settings:    input.Settings,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, s.mapRepoError(err)
	}
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populateLogoURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, actor Actor, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	if !actor.canManage(tournament) {
		return nil, ErrForbiddenOperation
	}
	if tournament.IsFinalized {
		return nil, ErrTournamentFinalized
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrValidationFailed
		}
		tournament.Name = name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.Settings != nil {
		// the progression is locked in once brackets start playing
		if tournament.Status == models.StatusActive || tournament.Status == models.StatusCompleted {
			return nil, ErrBracketAlreadyStarted
		}
		if err := validateSettings(*input.Settings); err != nil {
			return nil, err
		}
		tournament.Settings = *input.Settings
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, s.mapRepoError(err)
	}
	s.populateLogoURL(tournament)
	return tournament, nil
}

var allowedStatusTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusSoon:         {models.StatusRegistration, models.StatusCanceled},
	models.StatusRegistration: {models.StatusActive, models.StatusCanceled},
	models.StatusActive:       {models.StatusCompleted, models.StatusCanceled},
}

func (s *tournamentService) UpdateStatus(ctx context.Context, actor Actor, id int, status models.TournamentStatus) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	if !actor.canManage(tournament) {
		return nil, ErrForbiddenOperation
	}

	allowed := false
	for _, next := range allowedStatusTransitions[tournament.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tournament.Status, status)
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, s.mapRepoError(err)
	}
	tournament.Status = status
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, actor Actor, id int, contentType string, file io.Reader) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	if !actor.canManage(tournament) {
		return nil, ErrForbiddenOperation
	}

	key := fmt.Sprintf("tournaments/%d/logo", id)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament logo: %w", err)
	}

	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, s.mapRepoError(err)
	}
	tournament.LogoKey = &result.Key
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, actor Actor, id int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return s.mapRepoError(err)
	}
	if !actor.canManage(tournament) {
		return ErrForbiddenOperation
	}
	return s.mapRepoError(s.tournamentRepo.Delete(ctx, id))
}

func (s *tournamentService) populateLogoURL(tournament *models.Tournament) {
	if tournament.LogoKey == nil || s.uploader == nil {
		return
	}
	url := s.uploader.GetPublicURL(*tournament.LogoKey)
	tournament.LogoURL = &url
}

func (s *tournamentService) mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameConflict
	case errors.Is(err, repositories.ErrTournamentInvalidOrg):
		return ErrValidationFailed
	}
	return err
}

// validateSettings rejects progressions the orchestrator could not build:
// unknown stage types, forward or self references in sources, and
// non-positive group sizes.
func validateSettings(settings models.TournamentSettings) error {
	if len(settings.BracketProgression) == 0 {
		return fmt.Errorf("%w: bracket progression is empty", ErrValidationFailed)
	}

	for idx, entry := range settings.BracketProgression {
		switch entry.Type {
		case models.BracketSingleElimination, models.BracketDoubleElimination,
			models.BracketRoundRobin, models.BracketSwiss:
		default:
			return fmt.Errorf("%w: unknown bracket type %q", ErrValidationFailed, entry.Type)
		}
		if strings.TrimSpace(entry.Name) == "" {
			return fmt.Errorf("%w: bracket %d has no name", ErrValidationFailed, idx)
		}
		for _, source := range entry.Sources {
			if source.BracketIdx < 0 || source.BracketIdx >= idx {
				return fmt.Errorf("%w: bracket %d sources bracket %d", ErrValidationFailed, idx, source.BracketIdx)
			}
			if len(source.Placements) == 0 {
				return fmt.Errorf("%w: bracket %d has a source without placements", ErrValidationFailed, idx)
			}
		}
	}

	if settings.TeamsPerGroup < 0 || settings.TeamsPerGroup == 1 {
		return fmt.Errorf("%w: teams per group must be at least 2", ErrValidationFailed)
	}
	if swiss := settings.Swiss; swiss != nil {
		if swiss.GroupCount < 0 || swiss.RoundCount < 0 {
			return fmt.Errorf("%w: swiss group and round counts must not be negative", ErrValidationFailed)
		}
	}
	return nil
}
