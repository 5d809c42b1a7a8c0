package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Aibek0/bracket-engine/models"
)

var ErrStageNotFound = errors.New("stage not found")

// StageRepository persists bracket snapshots: the stage/group/round/match
// rows the engine reads, plus insertion of incrementally generated swiss
// matches.
type StageRepository interface {
	// CreateStage writes a full generated snapshot inside the caller's
	// transaction, remapping the generator's dense ids onto database ids
	// in place.
	CreateStage(ctx context.Context, exec SQLExecutor, data *models.BracketData) error

	GetBracketData(ctx context.Context, stageID int) (*models.BracketData, error)

	// ListBracketData returns a tournament's started stages ordered by
	// stage number, i.e. bracket progression order.
	ListBracketData(ctx context.Context, tournamentID int) ([]*models.BracketData, error)

	InsertMatches(ctx context.Context, exec SQLExecutor, matches []models.InsertableMatch) error
	UpdateMatchOpponents(ctx context.Context, exec SQLExecutor, matchID int, one, two *models.Opponent) error
	DeleteStage(ctx context.Context, exec SQLExecutor, stageID int) error
}

type postgresStageRepository struct {
	db *sql.DB
}

func NewPostgresStageRepository(db *sql.DB) StageRepository {
	return &postgresStageRepository{db: db}
}

func (r *postgresStageRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStageRepository) CreateStage(ctx context.Context, exec SQLExecutor, data *models.BracketData) error {
	executor := r.getExecutor(exec)
	if len(data.Stages) != 1 {
		return fmt.Errorf("stage snapshot must contain exactly one stage, got %d", len(data.Stages))
	}

	stage := &data.Stages[0]
	settings, err := json.Marshal(stage.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode stage settings: %w", err)
	}

	err = executor.QueryRowContext(ctx, `
		INSERT INTO stages (tournament_id, name, number, type, settings)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		stage.TournamentID, stage.Name, stage.Number, stage.Type, settings,
	).Scan(&stage.ID, &stage.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert stage: %w", err)
	}

	groupIDs := make(map[int]int, len(data.Groups))
	for i := range data.Groups {
		group := &data.Groups[i]
		oldID := group.ID
		err = executor.QueryRowContext(ctx, `
			INSERT INTO stage_groups (stage_id, number) VALUES ($1, $2) RETURNING id`,
			stage.ID, group.Number,
		).Scan(&group.ID)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		group.StageID = stage.ID
		groupIDs[oldID] = group.ID
	}

	roundIDs := make(map[int]int, len(data.Rounds))
	for i := range data.Rounds {
		round := &data.Rounds[i]
		oldID := round.ID

		var maps []byte
		if round.Maps != nil {
			if maps, err = json.Marshal(round.Maps); err != nil {
				return fmt.Errorf("failed to encode round maps: %w", err)
			}
		}

		err = executor.QueryRowContext(ctx, `
			INSERT INTO stage_rounds (stage_id, group_id, number, maps)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			stage.ID, groupIDs[round.GroupID], round.Number, maps,
		).Scan(&round.ID)
		if err != nil {
			return fmt.Errorf("failed to insert round: %w", err)
		}
		round.StageID = stage.ID
		round.GroupID = groupIDs[round.GroupID]
		roundIDs[oldID] = round.ID
	}

	for _, match := range data.Matches {
		one, two, encodeErr := encodeOpponents(match.Opponent1, match.Opponent2)
		if encodeErr != nil {
			return encodeErr
		}

		err = executor.QueryRowContext(ctx, `
			INSERT INTO stage_matches (stage_id, group_id, round_id, number, opponent_one, opponent_two)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			stage.ID, groupIDs[match.GroupID], roundIDs[match.RoundID], match.Number, one, two,
		).Scan(&match.ID)
		if err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}
		match.StageID = stage.ID
		match.GroupID = groupIDs[match.GroupID]
		match.RoundID = roundIDs[match.RoundID]
	}

	for _, participant := range data.Participants {
		_, err = executor.ExecContext(ctx, `
			INSERT INTO stage_participants (stage_id, team_id, name) VALUES ($1, $2, $3)`,
			stage.ID, participant.ID, participant.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	return nil
}

func (r *postgresStageRepository) GetBracketData(ctx context.Context, stageID int) (*models.BracketData, error) {
	executor := r.getExecutor(nil)

	var stage models.Stage
	var settings []byte
	err := executor.QueryRowContext(ctx, `
		SELECT id, tournament_id, name, number, type, settings, created_at
		FROM stages WHERE id = $1`, stageID,
	).Scan(&stage.ID, &stage.TournamentID, &stage.Name, &stage.Number, &stage.Type, &settings, &stage.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &stage.Settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings for stage %d: %w", stage.ID, err)
		}
	}

	data := &models.BracketData{Stages: []models.Stage{stage}}
	if err := r.loadStageChildren(ctx, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (r *postgresStageRepository) ListBracketData(ctx context.Context, tournamentID int) ([]*models.BracketData, error) {
	rows, err := r.getExecutor(nil).QueryContext(ctx, `
		SELECT id FROM stages WHERE tournament_id = $1 ORDER BY number`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stageIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		stageIDs = append(stageIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snapshots := make([]*models.BracketData, 0, len(stageIDs))
	for _, id := range stageIDs {
		data, err := r.GetBracketData(ctx, id)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, data)
	}
	return snapshots, nil
}

func (r *postgresStageRepository) loadStageChildren(ctx context.Context, data *models.BracketData) error {
	executor := r.getExecutor(nil)
	stageID := data.Stages[0].ID

	groupRows, err := executor.QueryContext(ctx, `
		SELECT id, stage_id, number FROM stage_groups WHERE stage_id = $1 ORDER BY id`, stageID)
	if err != nil {
		return err
	}
	defer groupRows.Close()
	for groupRows.Next() {
		var group models.Group
		if err := groupRows.Scan(&group.ID, &group.StageID, &group.Number); err != nil {
			return err
		}
		data.Groups = append(data.Groups, group)
	}
	if err := groupRows.Err(); err != nil {
		return err
	}

	roundRows, err := executor.QueryContext(ctx, `
		SELECT id, stage_id, group_id, number, maps FROM stage_rounds WHERE stage_id = $1 ORDER BY id`, stageID)
	if err != nil {
		return err
	}
	defer roundRows.Close()
	for roundRows.Next() {
		var round models.Round
		var maps []byte
		if err := roundRows.Scan(&round.ID, &round.StageID, &round.GroupID, &round.Number, &maps); err != nil {
			return err
		}
		if len(maps) > 0 {
			round.Maps = &models.RoundMaps{}
			if err := json.Unmarshal(maps, round.Maps); err != nil {
				return fmt.Errorf("failed to decode maps for round %d: %w", round.ID, err)
			}
		}
		data.Rounds = append(data.Rounds, round)
	}
	if err := roundRows.Err(); err != nil {
		return err
	}

	matchRows, err := executor.QueryContext(ctx, `
		SELECT id, stage_id, group_id, round_id, number, opponent_one, opponent_two
		FROM stage_matches WHERE stage_id = $1 ORDER BY id`, stageID)
	if err != nil {
		return err
	}
	defer matchRows.Close()
	for matchRows.Next() {
		match := &models.Match{}
		var one, two []byte
		if err := matchRows.Scan(&match.ID, &match.StageID, &match.GroupID, &match.RoundID, &match.Number, &one, &two); err != nil {
			return err
		}
		if match.Opponent1, err = decodeOpponent(one); err != nil {
			return fmt.Errorf("match %d: %w", match.ID, err)
		}
		if match.Opponent2, err = decodeOpponent(two); err != nil {
			return fmt.Errorf("match %d: %w", match.ID, err)
		}
		data.Matches = append(data.Matches, match)
	}
	if err := matchRows.Err(); err != nil {
		return err
	}

	participantRows, err := executor.QueryContext(ctx, `
		SELECT team_id, name FROM stage_participants WHERE stage_id = $1 ORDER BY team_id`, stageID)
	if err != nil {
		return err
	}
	defer participantRows.Close()
	for participantRows.Next() {
		var participant models.BracketParticipant
		if err := participantRows.Scan(&participant.ID, &participant.Name); err != nil {
			return err
		}
		data.Participants = append(data.Participants, participant)
	}
	return participantRows.Err()
}

func (r *postgresStageRepository) InsertMatches(ctx context.Context, exec SQLExecutor, matches []models.InsertableMatch) error {
	executor := r.getExecutor(exec)
	for _, match := range matches {
		one, two, err := encodeOpponents(match.OpponentOne, match.OpponentTwo)
		if err != nil {
			return err
		}

		_, err = executor.ExecContext(ctx, `
			INSERT INTO stage_matches (stage_id, group_id, round_id, number, opponent_one, opponent_two)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			match.StageID, match.GroupID, match.RoundID, match.Number, one, two,
		)
		if err != nil {
			return fmt.Errorf("failed to insert generated match: %w", err)
		}
	}
	return nil
}

func (r *postgresStageRepository) UpdateMatchOpponents(ctx context.Context, exec SQLExecutor, matchID int, one, two *models.Opponent) error {
	encodedOne, encodedTwo, err := encodeOpponents(one, two)
	if err != nil {
		return err
	}

	result, err := r.getExecutor(exec).ExecContext(ctx, `
		UPDATE stage_matches SET opponent_one = $1, opponent_two = $2 WHERE id = $3`,
		encodedOne, encodedTwo, matchID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStageNotFound)
}

func (r *postgresStageRepository) DeleteStage(ctx context.Context, exec SQLExecutor, stageID int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM stages WHERE id = $1`, stageID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStageNotFound)
}

func encodeOpponents(one, two *models.Opponent) ([]byte, []byte, error) {
	encode := func(opponent *models.Opponent) ([]byte, error) {
		if opponent == nil {
			return nil, nil
		}
		return json.Marshal(opponent)
	}

	encodedOne, err := encode(one)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode opponent: %w", err)
	}
	encodedTwo, err := encode(two)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode opponent: %w", err)
	}
	return encodedOne, encodedTwo, nil
}

func decodeOpponent(raw []byte) (*models.Opponent, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	opponent := &models.Opponent{}
	if err := json.Unmarshal(raw, opponent); err != nil {
		return nil, fmt.Errorf("failed to decode opponent: %w", err)
	}
	return opponent, nil
}
