package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ftpong/arena-server/arena"
	"github.com/ftpong/arena-server/models"
	"github.com/ftpong/arena-server/repositories"
)

type MatchService interface {
	// RecordResult persists the outcome of a finished reception match.
	RecordResult(ctx context.Context, result arena.Result) (*models.Match, error)

	// History lists a user's finished matches, newest first.
	History(ctx context.Context, userID, limit, offset int) ([]models.Match, error)
}

type matchService struct {
	matchRepo repositories.MatchRepository
	logger    *slog.Logger
}

func NewMatchService(matchRepo repositories.MatchRepository, logger *slog.Logger) MatchService {
	return &matchService{matchRepo: matchRepo, logger: logger}
}

func (s *matchService) RecordResult(ctx context.Context, result arena.Result) (*models.Match, error) {
	match := &models.Match{
		ReceptionID: result.ArenaID,
		LeftUserID:  result.LeftUserID,
		RightUserID: result.RightUserID,
		LeftScore:   result.LeftScore,
		RightScore:  result.RightScore,
		WinnerID:    result.WinnerID,
	}
	if err := s.matchRepo.Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to record match result for arena %s: %w", result.ArenaID, err)
	}

	s.logger.Info("match recorded",
		slog.String("reception_id", match.ReceptionID),
		slog.Int("winner_id", match.WinnerID),
		slog.Int("left_score", match.LeftScore),
		slog.Int("right_score", match.RightScore),
	)
	return match, nil
}

func (s *matchService) History(ctx context.Context, userID, limit, offset int) ([]models.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.matchRepo.ListByUser(ctx, userID, limit, offset)
}
