package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Aibek0/bracket-engine/models"
)

var ErrPreparedMapsNotFound = errors.New("prepared maps not found")

// PreparedMapsRepository stores pre-authored per-round map lists keyed by
// tournament and bracket progression index.
type PreparedMapsRepository interface {
	Get(ctx context.Context, tournamentID, bracketIdx int) (*models.PreparedMaps, error)
	GetAllByTournament(ctx context.Context, tournamentID int) (map[int]*models.PreparedMaps, error)
	Upsert(ctx context.Context, exec SQLExecutor, tournamentID, bracketIdx int, prepared *models.PreparedMaps) error
	Delete(ctx context.Context, tournamentID, bracketIdx int) error
}

type postgresPreparedMapsRepository struct {
	db *sql.DB
}

func NewPostgresPreparedMapsRepository(db *sql.DB) PreparedMapsRepository {
	return &postgresPreparedMapsRepository{db: db}
}

func (r *postgresPreparedMapsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPreparedMapsRepository) Get(ctx context.Context, tournamentID, bracketIdx int) (*models.PreparedMaps, error) {
	query := `
		SELECT payload FROM prepared_maps
		WHERE tournament_id = $1 AND bracket_idx = $2`

	var payload []byte
	err := r.getExecutor(nil).QueryRowContext(ctx, query, tournamentID, bracketIdx).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPreparedMapsNotFound
		}
		return nil, err
	}

	prepared := &models.PreparedMaps{}
	if err := json.Unmarshal(payload, prepared); err != nil {
		return nil, fmt.Errorf("failed to decode prepared maps: %w", err)
	}
	return prepared, nil
}

func (r *postgresPreparedMapsRepository) GetAllByTournament(ctx context.Context, tournamentID int) (map[int]*models.PreparedMaps, error) {
	query := `
		SELECT bracket_idx, payload FROM prepared_maps
		WHERE tournament_id = $1`

	rows, err := r.getExecutor(nil).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int]*models.PreparedMaps)
	for rows.Next() {
		var bracketIdx int
		var payload []byte
		if err := rows.Scan(&bracketIdx, &payload); err != nil {
			return nil, err
		}

		prepared := &models.PreparedMaps{}
		if err := json.Unmarshal(payload, prepared); err != nil {
			return nil, fmt.Errorf("failed to decode prepared maps for bracket %d: %w", bracketIdx, err)
		}
		result[bracketIdx] = prepared
	}
	return result, rows.Err()
}

func (r *postgresPreparedMapsRepository) Upsert(ctx context.Context, exec SQLExecutor, tournamentID, bracketIdx int, prepared *models.PreparedMaps) error {
	payload, err := json.Marshal(prepared)
	if err != nil {
		return fmt.Errorf("failed to encode prepared maps: %w", err)
	}

	query := `
		INSERT INTO prepared_maps (tournament_id, bracket_idx, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id, bracket_idx) DO UPDATE SET payload = EXCLUDED.payload`

	_, err = r.getExecutor(exec).ExecContext(ctx, query, tournamentID, bracketIdx, payload)
	return err
}

func (r *postgresPreparedMapsRepository) Delete(ctx context.Context, tournamentID, bracketIdx int) error {
	query := `DELETE FROM prepared_maps WHERE tournament_id = $1 AND bracket_idx = $2`
	result, err := r.getExecutor(nil).ExecContext(ctx, query, tournamentID, bracketIdx)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPreparedMapsNotFound)
}
