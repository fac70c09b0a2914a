package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ftpong/arena-server/models"
)

var ErrTournamentMatchNotFound = errors.New("tournament match not found")

type TournamentMatchRepository interface {
	CreateAll(ctx context.Context, matches []*models.TournamentMatch) error
	GetByNumber(ctx context.Context, tournamentID, matchNumber int) (*models.TournamentMatch, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentMatch, error)
	ListByRound(ctx context.Context, tournamentID, round int) ([]models.TournamentMatch, error)
	Update(ctx context.Context, match *models.TournamentMatch) error
}

type postgresTournamentMatchRepository struct {
	db *sql.DB
}

func NewPostgresTournamentMatchRepository(db *sql.DB) TournamentMatchRepository {
	return &postgresTournamentMatchRepository{db: db}
}

// CreateAll inserts a whole bracket in one transaction so a half-created
// bracket can never be observed.
func (r *postgresTournamentMatchRepository) CreateAll(ctx context.Context, matches []*models.TournamentMatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range matches {
		if err := insertTournamentMatch(ctx, tx, m); err != nil {
			return fmt.Errorf("failed to insert bracket match %d: %w", m.MatchNumber, err)
		}
	}
	return tx.Commit()
}

func insertTournamentMatch(ctx context.Context, execer SQLExecutor, m *models.TournamentMatch) error {
	query := `
		INSERT INTO tournament_matches
			(tournament_id, round, match_number, left_user_id, right_user_id, left_score, right_score, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return execer.QueryRowContext(ctx, query,
		m.TournamentID, m.Round, m.MatchNumber,
		m.LeftUserID, m.RightUserID, m.LeftScore, m.RightScore, m.State,
	).Scan(&m.ID)
}

func (r *postgresTournamentMatchRepository) GetByNumber(ctx context.Context, tournamentID, matchNumber int) (*models.TournamentMatch, error) {
	query := selectTournamentMatch + ` WHERE tournament_id = $1 AND match_number = $2`

	m := &models.TournamentMatch{}
	err := scanTournamentMatch(r.db.QueryRowContext(ctx, query, tournamentID, matchNumber), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresTournamentMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentMatch, error) {
	query := selectTournamentMatch + ` WHERE tournament_id = $1 ORDER BY match_number`
	return r.list(ctx, query, tournamentID)
}

func (r *postgresTournamentMatchRepository) ListByRound(ctx context.Context, tournamentID, round int) ([]models.TournamentMatch, error) {
	query := selectTournamentMatch + ` WHERE tournament_id = $1 AND round = $2 ORDER BY match_number`
	return r.list(ctx, query, tournamentID, round)
}

func (r *postgresTournamentMatchRepository) Update(ctx context.Context, m *models.TournamentMatch) error {
	query := `
		UPDATE tournament_matches
		SET left_user_id = $1, right_user_id = $2, left_score = $3, right_score = $4,
		    winner_id = $5, state = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		m.LeftUserID, m.RightUserID, m.LeftScore, m.RightScore, m.WinnerID, m.State, m.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentMatchNotFound)
}

const selectTournamentMatch = `
	SELECT id, tournament_id, round, match_number, left_user_id, right_user_id,
	       left_score, right_score, winner_id, state
	FROM tournament_matches`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTournamentMatch(row rowScanner, m *models.TournamentMatch) error {
	return row.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.MatchNumber,
		&m.LeftUserID, &m.RightUserID, &m.LeftScore, &m.RightScore,
		&m.WinnerID, &m.State,
	)
}

func (r *postgresTournamentMatchRepository) list(ctx context.Context, query string, args ...any) ([]models.TournamentMatch, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.TournamentMatch
	for rows.Next() {
		var m models.TournamentMatch
		if err := scanTournamentMatch(rows, &m); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
