package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ftpong/arena-server/models"
	"github.com/lib/pq"
)

var ErrParticipantConflict = errors.New("user already joined this tournament")

type TournamentParticipantRepository interface {
	Create(ctx context.Context, participant *models.TournamentParticipant) error
	// ListByTournament returns participants in join order; the bracket seeds
	// leaves from this ordering.
	ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentParticipant, error)
	CountByTournament(ctx context.Context, tournamentID int) (int, error)
	Exists(ctx context.Context, tournamentID, userID int) (bool, error)
}

type postgresTournamentParticipantRepository struct {
	db *sql.DB
}

func NewPostgresTournamentParticipantRepository(db *sql.DB) TournamentParticipantRepository {
	return &postgresTournamentParticipantRepository{db: db}
}

func (r *postgresTournamentParticipantRepository) Create(ctx context.Context, p *models.TournamentParticipant) error {
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id)
		VALUES ($1, $2)
		RETURNING id, joined_at`

	err := r.db.QueryRowContext(ctx, query, p.TournamentID, p.UserID).Scan(&p.ID, &p.JoinedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrParticipantConflict
		}
		return err
	}
	return nil
}

func (r *postgresTournamentParticipantRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentParticipant, error) {
	query := `
		SELECT id, tournament_id, user_id, joined_at
		FROM tournament_participants
		WHERE tournament_id = $1
		ORDER BY joined_at, id`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.TournamentParticipant
	for rows.Next() {
		var p models.TournamentParticipant
		if err := rows.Scan(&p.ID, &p.TournamentID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresTournamentParticipantRepository) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1`,
		tournamentID,
	).Scan(&count)
	return count, err
}

func (r *postgresTournamentParticipantRepository) Exists(ctx context.Context, tournamentID, userID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tournament_participants WHERE tournament_id = $1 AND user_id = $2)`,
		tournamentID, userID,
	).Scan(&exists)
	return exists, err
}
