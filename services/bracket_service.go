package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aibek0/bracket-engine/brackets"
	"github.com/Aibek0/bracket-engine/models"
	"github.com/Aibek0/bracket-engine/repositories"
	"github.com/Aibek0/bracket-engine/skeleton"
)

// BracketView is one bracket of the progression as served to clients.
type BracketView struct {
	Idx                 int                 `json:"idx"`
	Name                string              `json:"name"`
	Type                models.BracketType  `json:"type"`
	Preview             bool                `json:"preview"`
	CanBeStarted        bool                `json:"can_be_started"`
	TeamsPendingCheckIn []int               `json:"teams_pending_check_in,omitempty"`
	Data                *models.BracketData `json:"data"`
}

// MatchResultInput reports a match outcome. WinnerSlot is 1 or 2.
type MatchResultInput struct {
	MatchID        int `json:"match_id"`
	Opponent1Score int `json:"opponent1_score"`
	Opponent2Score int `json:"opponent2_score"`
	WinnerSlot     int `json:"winner_slot"`
}

type BracketService interface {
	GetBrackets(ctx context.Context, tournamentID int) ([]BracketView, error)
	GetStandings(ctx context.Context, tournamentID, bracketIdx int) ([]models.Standing, error)
	GetFinalStandings(ctx context.Context, tournamentID int) ([]models.Standing, error)

	// StartBracket materializes a preview bracket: the generated skeleton
	// is persisted, prepared map lists are resolved and stamped onto its
	// rounds, and the tournament moves to active on the first start.
	StartBracket(ctx context.Context, actor Actor, tournamentID, bracketIdx int) (*models.BracketData, error)

	// GenerateSwissRound pairs and persists the next round of a started
	// swiss group.
	GenerateSwissRound(ctx context.Context, actor Actor, tournamentID, bracketIdx, groupID int) ([]models.InsertableMatch, error)

	ReportMatchResult(ctx context.Context, actor Actor, tournamentID int, input MatchResultInput) error
	ReopenMatch(ctx context.Context, actor Actor, tournamentID, matchID int) error
	MatchCanBeReopened(ctx context.Context, tournamentID, matchID int) (bool, error)

	// SimulateBracket predicts the remainder of an elimination bracket
	// under "the better seed always wins".
	SimulateBracket(ctx context.Context, tournamentID, bracketIdx int) ([]*models.Match, error)

	GetPreparedMaps(ctx context.Context, tournamentID, bracketIdx int) (*models.PreparedMaps, error)
	SavePreparedMaps(ctx context.Context, actor Actor, tournamentID, bracketIdx int, prepared *models.PreparedMaps) error

	// Finalize locks the tournament once every bracket has played out and
	// returns the combined final standings.
	Finalize(ctx context.Context, actor Actor, tournamentID int) ([]models.Standing, error)
}

type bracketService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	stageRepo      repositories.StageRepository
	preparedRepo   repositories.PreparedMapsRepository
	provider       skeleton.Provider
	hub            *brackets.Hub
	logger         *slog.Logger
	now            func() time.Time
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	stageRepo repositories.StageRepository,
	preparedRepo repositories.PreparedMapsRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &bracketService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		stageRepo:      stageRepo,
		preparedRepo:   preparedRepo,
		provider:       skeleton.NewGenerator(),
		hub:            hub,
		logger:         logger,
		now:            time.Now,
	}
}

// loadTournament assembles the orchestrator from one parallel snapshot:
// tournament row, seed-ordered teams, and every started stage.
func (s *bracketService) loadTournament(ctx context.Context, tournamentID int) (*brackets.Tournament, *models.Tournament, error) {
	var (
		tournament *models.Tournament
		teams      []models.Team
		snapshots  []*models.BracketData
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tournament, err = s.tournamentRepo.GetByID(gCtx, tournamentID)
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = s.teamRepo.ListByTournament(gCtx, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		snapshots, err = s.stageRepo.ListBracketData(gCtx, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	tournament.Teams = teams

	// stage number is the 1-based bracket progression index; unstarted
	// slots stay nil and become previews
	stageData := make([]*models.BracketData, len(tournament.Settings.BracketProgression))
	for _, snapshot := range snapshots {
		idx := snapshot.Stages[0].Number - 1
		if idx >= 0 && idx < len(stageData) {
			stageData[idx] = snapshot
		}
	}

	orchestrator, err := brackets.NewTournament(brackets.Args{
		Tournament: tournament,
		StageData:  stageData,
		Provider:   s.provider,
		Logger:     s.logger,
		Now:        s.now(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build tournament %d: %w", tournamentID, err)
	}
	return orchestrator, tournament, nil
}

func (s *bracketService) GetBrackets(ctx context.Context, tournamentID int) ([]BracketView, error) {
	orchestrator, _, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	views := make([]BracketView, 0, len(orchestrator.Brackets()))
	for _, bracket := range orchestrator.Brackets() {
		views = append(views, BracketView{
			Idx:                 bracket.ID(),
			Name:                bracket.Name(),
			Type:                bracket.Type(),
			Preview:             bracket.Preview(),
			CanBeStarted:        bracket.CanBeStarted(),
			TeamsPendingCheckIn: bracket.TeamsPendingCheckIn(),
			Data:                bracket.Data(),
		})
	}
	return views, nil
}

func (s *bracketService) GetStandings(ctx context.Context, tournamentID, bracketIdx int) ([]models.Standing, error) {
	orchestrator, _, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	bracket, err := orchestrator.BracketByIdx(bracketIdx)
	if err != nil {
		return nil, ErrBracketNotFound
	}
	if bracket.Preview() {
		return nil, ErrBracketNotStarted
	}
	return bracket.Standings()
}

func (s *bracketService) GetFinalStandings(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	orchestrator, _, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return orchestrator.FinalStandings()
}

func (s *bracketService) StartBracket(ctx context.Context, actor Actor, tournamentID, bracketIdx int) (*models.BracketData, error) {
	orchestrator, tournament, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(tournament) {
		return nil, ErrForbiddenOperation
	}

	bracket, err := orchestrator.BracketByIdx(bracketIdx)
	if err != nil {
		return nil, ErrBracketNotFound
	}
	if !bracket.Preview() {
		return nil, ErrBracketAlreadyStarted
	}
	if !bracket.CanBeStarted() {
		return nil, ErrBracketCannotStart
	}

	data := bracket.Data()
	data.Stages[0].ID = 0
	data.Stages[0].Number = bracketIdx + 1

	if err := s.applyPreparedMaps(ctx, tournament, bracketIdx, bracket, data); err != nil {
		s.logger.Warn("prepared maps not applied",
			"tournament", tournamentID, "bracket", bracketIdx, "error", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.stageRepo.CreateStage(ctx, tx, data); err != nil {
		return nil, fmt.Errorf("failed to persist bracket %d: %w", bracketIdx, err)
	}
	if tournament.Status == models.StatusRegistration || tournament.Status == models.StatusSoon {
		if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StatusActive); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.broadcast(tournamentID, brackets.EventBracketStarted, &bracketIdx, data)
	return data, nil
}

// applyPreparedMaps resolves the pre-authored map lists for the bracket,
// trims elimination sets to the materialized team count, and stamps the
// lists onto the skeleton's rounds before persistence.
func (s *bracketService) applyPreparedMaps(ctx context.Context, tournament *models.Tournament, bracketIdx int, bracket brackets.Bracket, data *models.BracketData) error {
	allPrepared, err := s.preparedRepo.GetAllByTournament(ctx, tournament.ID)
	if err != nil {
		return err
	}
	if len(allPrepared) == 0 {
		return nil
	}

	resolver := brackets.NewPreparedMapsResolver(allPrepared, tournament.Settings.BracketProgression, s.provider)
	prepared := resolver.ResolvePreparedForTheBracket(bracketIdx)
	if prepared == nil {
		return nil
	}

	if bracket.Type().IsElimination() {
		prepared = resolver.TrimPreparedEliminationMaps(brackets.TrimArgs{
			Prepared:  prepared,
			Type:      bracket.Type(),
			TeamCount: len(data.Participants),
			Name:      bracket.Name(),
			Settings:  data.Stages[0].Settings,
		})
		if prepared == nil {
			return nil
		}
	}

	byRound := make(map[int]models.PreparedRoundMaps, len(prepared.Maps))
	for _, maps := range prepared.Maps {
		byRound[maps.RoundID] = maps
	}
	for i := range data.Rounds {
		if maps, ok := byRound[data.Rounds[i].ID]; ok {
			data.Rounds[i].Maps = &models.RoundMaps{Count: maps.Count, Type: maps.Type}
		}
	}
	return nil
}

func (s *bracketService) GenerateSwissRound(ctx context.Context, actor Actor, tournamentID, bracketIdx, groupID int) ([]models.InsertableMatch, error) {
	orchestrator, tournament, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(tournament) {
		return nil, ErrForbiddenOperation
	}

	bracket, err := orchestrator.BracketByIdx(bracketIdx)
	if err != nil {
		return nil, ErrBracketNotFound
	}
	swiss, ok := bracket.(*brackets.SwissBracket)
	if !ok {
		return nil, fmt.Errorf("%w: bracket %d is %s, not swiss", ErrValidationFailed, bracketIdx, bracket.Type())
	}
	if bracket.Preview() {
		return nil, ErrBracketNotStarted
	}

	matches, err := swiss.GenerateMatchUps(groupID)
	if err != nil {
		return nil, err
	}

	if err := s.stageRepo.InsertMatches(ctx, nil, matches); err != nil {
		return nil, fmt.Errorf("failed to persist swiss round: %w", err)
	}

	s.broadcast(tournamentID, brackets.EventSwissRoundGenerated, &bracketIdx, matches)
	return matches, nil
}

func (s *bracketService) ReportMatchResult(ctx context.Context, actor Actor, tournamentID int, input MatchResultInput) error {
	if input.WinnerSlot != 1 && input.WinnerSlot != 2 {
		return fmt.Errorf("%w: winner slot must be 1 or 2", ErrValidationFailed)
	}
	if input.Opponent1Score < 0 || input.Opponent2Score < 0 {
		return fmt.Errorf("%w: scores must not be negative", ErrValidationFailed)
	}

	orchestrator, tournament, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if !actor.canManage(tournament) {
		return ErrForbiddenOperation
	}
	if tournament.IsFinalized {
		return ErrTournamentFinalized
	}

	idx, err := orchestrator.MatchIDToBracketIdx(input.MatchID)
	if err != nil {
		return ErrMatchNotFound
	}
	bracket, _ := orchestrator.BracketByIdx(idx)

	match, err := findMatch(bracket.Data(), input.MatchID)
	if err != nil {
		return ErrMatchNotFound
	}
	if match.IsBye() || match.Opponent1.ID == nil || match.Opponent2.ID == nil {
		return fmt.Errorf("%w: match %d has unresolved opponents", ErrValidationFailed, input.MatchID)
	}

	var modified []*models.Match
	if match.IsOver() {
		// overwriting a recorded result is a reopen followed by a report
		canReopen, err := orchestrator.MatchCanBeReopened(input.MatchID)
		if err != nil {
			return err
		}
		if !canReopen {
			return ErrMatchReopenBlocked
		}
		retracted, err := retractIfElimination(bracket, input.MatchID)
		if err != nil {
			return err
		}
		modified = append(modified, retracted...)
	}

	one, two := *match.Opponent1.ID, *match.Opponent2.ID
	match.Opponent1 = &models.Opponent{ID: &one, Score: &input.Opponent1Score, Result: models.ResultLoss}
	match.Opponent2 = &models.Opponent{ID: &two, Score: &input.Opponent2Score, Result: models.ResultLoss}
	if input.WinnerSlot == 1 {
		match.Opponent1.Result = models.ResultWin
	} else {
		match.Opponent2.Result = models.ResultWin
	}

	propagated, err := propagateIfElimination(bracket, input.MatchID)
	if err != nil {
		return err
	}
	modified = append(modified, propagated...)

	if err := s.persistMatches(ctx, append([]*models.Match{match}, modified...)); err != nil {
		return err
	}

	s.broadcast(tournamentID, brackets.EventMatchUpdated, &idx, match)
	return nil
}

func (s *bracketService) ReopenMatch(ctx context.Context, actor Actor, tournamentID, matchID int) error {
	orchestrator, tournament, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if !actor.canManage(tournament) {
		return ErrForbiddenOperation
	}

	canReopen, err := orchestrator.MatchCanBeReopened(matchID)
	if err != nil {
		if errors.Is(err, brackets.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	if !canReopen {
		return ErrMatchReopenBlocked
	}

	idx, err := orchestrator.MatchIDToBracketIdx(matchID)
	if err != nil {
		return ErrMatchNotFound
	}
	bracket, _ := orchestrator.BracketByIdx(idx)

	match, err := findMatch(bracket.Data(), matchID)
	if err != nil {
		return ErrMatchNotFound
	}
	if !match.IsOver() {
		return nil
	}

	modified, err := retractIfElimination(bracket, matchID)
	if err != nil {
		return err
	}

	for _, opponent := range []*models.Opponent{match.Opponent1, match.Opponent2} {
		opponent.Score = nil
		opponent.Result = ""
	}

	if err := s.persistMatches(ctx, append([]*models.Match{match}, modified...)); err != nil {
		return err
	}

	s.broadcast(tournamentID, brackets.EventMatchReopened, &idx, match)
	return nil
}

func (s *bracketService) MatchCanBeReopened(ctx context.Context, tournamentID, matchID int) (bool, error) {
	orchestrator, _, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return false, err
	}

	canReopen, err := orchestrator.MatchCanBeReopened(matchID)
	if errors.Is(err, brackets.ErrMatchNotFound) {
		return false, ErrMatchNotFound
	}
	return canReopen, err
}

func (s *bracketService) SimulateBracket(ctx context.Context, tournamentID, bracketIdx int) ([]*models.Match, error) {
	orchestrator, _, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	bracket, err := orchestrator.BracketByIdx(bracketIdx)
	if err != nil {
		return nil, ErrBracketNotFound
	}

	switch b := bracket.(type) {
	case *brackets.SingleEliminationBracket:
		return b.SimulateOutcomes(s.logger)
	case *brackets.DoubleEliminationBracket:
		return b.SimulateOutcomes(s.logger)
	default:
		return nil, fmt.Errorf("%w: simulation is only defined for elimination brackets", ErrValidationFailed)
	}
}

func (s *bracketService) GetPreparedMaps(ctx context.Context, tournamentID, bracketIdx int) (*models.PreparedMaps, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	allPrepared, err := s.preparedRepo.GetAllByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	resolver := brackets.NewPreparedMapsResolver(allPrepared, tournament.Settings.BracketProgression, s.provider)
	prepared := resolver.ResolvePreparedForTheBracket(bracketIdx)
	if prepared == nil {
		return nil, ErrNotFound
	}
	return prepared, nil
}

func (s *bracketService) SavePreparedMaps(ctx context.Context, actor Actor, tournamentID, bracketIdx int, prepared *models.PreparedMaps) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if !actor.canManage(tournament) {
		return ErrForbiddenOperation
	}

	progression := tournament.Settings.BracketProgression
	if bracketIdx < 0 || bracketIdx >= len(progression) {
		return ErrBracketNotFound
	}

	entry := progression[bracketIdx]
	if entry.Type.IsElimination() {
		if prepared.EliminationTeamCount == nil {
			return fmt.Errorf("%w: elimination prepared maps need a team count", ErrValidationFailed)
		}
		bucket := brackets.EliminationTeamCountBucket(*prepared.EliminationTeamCount)
		prepared.EliminationTeamCount = &bucket
	} else {
		prepared.EliminationTeamCount = nil
	}

	prepared.AuthorID = actor.ID
	prepared.CreatedAt = s.now()

	return s.preparedRepo.Upsert(ctx, nil, tournamentID, bracketIdx, prepared)
}

func (s *bracketService) Finalize(ctx context.Context, actor Actor, tournamentID int) ([]models.Standing, error) {
	orchestrator, tournament, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(tournament) {
		return nil, ErrForbiddenOperation
	}
	if tournament.IsFinalized {
		return nil, ErrTournamentFinalized
	}
	if !orchestrator.EveryBracketOver() {
		return nil, ErrTournamentNotOver
	}

	standings, err := orchestrator.FinalStandings()
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.tournamentRepo.SetFinalized(ctx, tx, tournamentID, true); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StatusCompleted); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.broadcast(tournamentID, brackets.EventTournamentFinalized, nil, standings)
	return standings, nil
}

func (s *bracketService) persistMatches(ctx context.Context, matches []*models.Match) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, match := range matches {
		if err := s.stageRepo.UpdateMatchOpponents(ctx, tx, match.ID, match.Opponent1, match.Opponent2); err != nil {
			return fmt.Errorf("failed to persist match %d: %w", match.ID, err)
		}
	}
	return tx.Commit()
}

func (s *bracketService) broadcast(tournamentID int, eventType string, bracketIdx *int, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.Event{
		Type:       eventType,
		BracketIdx: bracketIdx,
		Payload:    payload,
	})
}

func propagateIfElimination(bracket brackets.Bracket, matchID int) ([]*models.Match, error) {
	switch b := bracket.(type) {
	case *brackets.SingleEliminationBracket:
		return b.PropagateResult(matchID)
	case *brackets.DoubleEliminationBracket:
		return b.PropagateResult(matchID)
	}
	return nil, nil
}

func retractIfElimination(bracket brackets.Bracket, matchID int) ([]*models.Match, error) {
	switch b := bracket.(type) {
	case *brackets.SingleEliminationBracket:
		return b.RetractResult(matchID)
	case *brackets.DoubleEliminationBracket:
		return b.RetractResult(matchID)
	}
	return nil, nil
}

func findMatch(data *models.BracketData, matchID int) (*models.Match, error) {
	for _, match := range data.Matches {
		if match.ID == matchID {
			return match, nil
		}
	}
	return nil, ErrMatchNotFound
}
