package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ftpong/arena-server/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) Create(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO matches (reception_id, left_user_id, right_user_id, left_score, right_score, winner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		m.ReceptionID, m.LeftUserID, m.RightUserID, m.LeftScore, m.RightScore, m.WinnerID,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `
		SELECT id, reception_id, left_user_id, right_user_id, left_score, right_score, winner_id, created_at
		FROM matches
		WHERE id = $1`

	m := &models.Match{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.ReceptionID, &m.LeftUserID, &m.RightUserID,
		&m.LeftScore, &m.RightScore, &m.WinnerID, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Match, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, reception_id, left_user_id, right_user_id, left_score, right_score, winner_id, created_at
		FROM matches
		WHERE left_user_id = $1 OR right_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(
			&m.ID, &m.ReceptionID, &m.LeftUserID, &m.RightUserID,
			&m.LeftScore, &m.RightScore, &m.WinnerID, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
