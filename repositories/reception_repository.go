package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ftpong/arena-server/models"
)

var ErrReceptionNotFound = errors.New("reception not found")

type ReceptionRepository interface {
	Create(ctx context.Context, reception *models.Reception) error
	GetByID(ctx context.Context, id string) (*models.Reception, error)
	List(ctx context.Context, limit, offset int) ([]models.Reception, error)
	Delete(ctx context.Context, id string) error
}

type postgresReceptionRepository struct {
	db *sql.DB
}

func NewPostgresReceptionRepository(db *sql.DB) ReceptionRepository {
	return &postgresReceptionRepository{db: db}
}

func (r *postgresReceptionRepository) Create(ctx context.Context, rec *models.Reception) error {
	query := `
		INSERT INTO receptions (id, name, owner_id, max_players, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return r.db.QueryRowContext(ctx, query,
		rec.ID, rec.Name, rec.OwnerID, rec.MaxPlayers, rec.PasswordHash,
	).Scan(&rec.CreatedAt)
}

func (r *postgresReceptionRepository) GetByID(ctx context.Context, id string) (*models.Reception, error) {
	query := `
		SELECT id, name, owner_id, max_players, password_hash, created_at
		FROM receptions
		WHERE id = $1`

	rec := &models.Reception{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Name, &rec.OwnerID, &rec.MaxPlayers, &rec.PasswordHash, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReceptionNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *postgresReceptionRepository) List(ctx context.Context, limit, offset int) ([]models.Reception, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, name, owner_id, max_players, password_hash, created_at
		FROM receptions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receptions []models.Reception
	for rows.Next() {
		var rec models.Reception
		if err := rows.Scan(
			&rec.ID, &rec.Name, &rec.OwnerID, &rec.MaxPlayers, &rec.PasswordHash, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		receptions = append(receptions, rec)
	}
	return receptions, rows.Err()
}

func (r *postgresReceptionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM receptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrReceptionNotFound)
}
