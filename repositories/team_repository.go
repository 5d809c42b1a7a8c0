package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/Aibek0/bracket-engine/models"
)

var (
	ErrTeamNotFound          = errors.New("team not found")
	ErrTeamNameConflict      = errors.New("team name is already taken in this tournament")
	ErrTeamInvalidTournament = errors.New("invalid tournament reference")
	ErrCheckInConflict       = errors.New("team already checked in for this bracket")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)

	// ListByTournament returns teams in registration order, which doubles
	// as seed order, with their check-in rows attached.
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Team, error)

	UpdateDroppedOut(ctx context.Context, exec SQLExecutor, teamID int, droppedOut bool) error
	CheckIn(ctx context.Context, exec SQLExecutor, teamID, bracketIdx int, at time.Time) error
	UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error
	Delete(ctx context.Context, id int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (tournament_id, name, dropped_out, logo_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		team.TournamentID, team.Name, team.DroppedOut, team.LogoKey,
	).Scan(&team.ID, &team.CreatedAt)

	return r.handleTeamError(err)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `
		SELECT id, tournament_id, name, dropped_out, created_at, logo_key
		FROM teams
		WHERE id = $1`

	team := &models.Team{}
	err := r.getExecutor(nil).QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.TournamentID, &team.Name, &team.DroppedOut, &team.CreatedAt, &team.LogoKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	checkIns, err := r.checkInsByTeam(ctx, []int{team.ID})
	if err != nil {
		return nil, err
	}
	team.CheckIns = checkIns[team.ID]
	return team, nil
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Team, error) {
	query := `
		SELECT id, tournament_id, name, dropped_out, created_at, logo_key
		FROM teams
		WHERE tournament_id = $1
		ORDER BY created_at, id`

	rows, err := r.getExecutor(nil).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	ids := make([]int, 0)
	for rows.Next() {
		var team models.Team
		if scanErr := rows.Scan(
			&team.ID, &team.TournamentID, &team.Name, &team.DroppedOut, &team.CreatedAt, &team.LogoKey,
		); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, team)
		ids = append(ids, team.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	checkIns, err := r.checkInsByTeam(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		teams[i].CheckIns = checkIns[teams[i].ID]
	}

	return teams, nil
}

func (r *postgresTeamRepository) checkInsByTeam(ctx context.Context, teamIDs []int) (map[int][]models.TeamCheckIn, error) {
	result := make(map[int][]models.TeamCheckIn, len(teamIDs))
	if len(teamIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT team_id, bracket_idx, checked_in_at
		FROM team_check_ins
		WHERE team_id = ANY($1)
		ORDER BY team_id, bracket_idx`

	rows, err := r.getExecutor(nil).QueryContext(ctx, query, pq.Array(teamIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var teamID int
		var checkIn models.TeamCheckIn
		if scanErr := rows.Scan(&teamID, &checkIn.BracketIdx, &checkIn.CheckedInAt); scanErr != nil {
			return nil, scanErr
		}
		result[teamID] = append(result[teamID], checkIn)
	}

	return result, rows.Err()
}

func (r *postgresTeamRepository) UpdateDroppedOut(ctx context.Context, exec SQLExecutor, teamID int, droppedOut bool) error {
	query := `UPDATE teams SET dropped_out = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, droppedOut, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) CheckIn(ctx context.Context, exec SQLExecutor, teamID, bracketIdx int, at time.Time) error {
	query := `
		INSERT INTO team_check_ins (team_id, bracket_idx, checked_in_at)
		VALUES ($1, $2, $3)`

	_, err := r.getExecutor(exec).ExecContext(ctx, query, teamID, bracketIdx, at)
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrCheckInConflict
		case "23503":
			return ErrTeamNotFound
		}
	}
	return err
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error {
	query := `UPDATE teams SET logo_key = $1 WHERE id = $2`
	result, err := r.getExecutor(nil).ExecContext(ctx, query, logoKey, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM teams WHERE id = $1`
	result, err := r.getExecutor(nil).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrTeamNameConflict
		case "23503":
			return ErrTeamInvalidTournament
		}
	}
	return err
}
