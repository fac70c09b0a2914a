package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/bits"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ftpong/arena-server/arena"
	"github.com/ftpong/arena-server/models"
	"github.com/ftpong/arena-server/repositories"
	"github.com/ftpong/arena-server/storage"
)

// Tournament event discriminators.
const (
	EventRoundStart    = "tournament.round.start"
	EventTournamentEnd = "tournament.end"
)

type CreateTournamentInput struct {
	Name            string
	CreatorID       int
	MaxParticipants int
}

// MatchAssignment tells a participant which bracket match to connect to.
type MatchAssignment struct {
	TournamentID int    `json:"tournament_id"`
	Round        int    `json:"round"`
	MatchNumber  int    `json:"match_number"`
	URL          string `json:"url"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)

	// Join registers a participant; the join that fills the bracket starts
	// the tournament.
	Join(ctx context.Context, tournamentID, userID int) error

	// HandleMatchEnd records one bracket match result and advances the
	// bracket: winner propagation, round completion, tournament completion.
	// Duplicate deliveries for the same match are no-ops.
	HandleMatchEnd(ctx context.Context, tournamentID, matchNumber int, result arena.Result) error

	UserTeam(ctx context.Context, tournamentID, matchNumber, userID int) (models.Team, error)
	IsMatchFinished(ctx context.Context, tournamentID, matchNumber int) (bool, error)
	IsUserInMatch(ctx context.Context, tournamentID, matchNumber, userID int) (bool, error)

	UploadBanner(ctx context.Context, tournamentID, userID int, contentType string, file io.Reader) (*models.Tournament, error)
}

type tournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.TournamentParticipantRepository
	matchRepo       repositories.TournamentMatchRepository
	notifier        Notifier
	uploader        storage.FileUploader
	logger          *slog.Logger

	// Bracket mutations are a critical section per tournament: sibling match
	// results racing on the shared parent would lose updates otherwise.
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.TournamentParticipantRepository,
	matchRepo repositories.TournamentMatchRepository,
	notifier Notifier,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		notifier:        notifier,
		uploader:        uploader,
		logger:          logger,
		locks:           make(map[int]*sync.Mutex),
	}
}

func (s *tournamentService) lockTournament(id int) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrNameRequired
	}
	if !models.IsValidTournamentCapacity(input.MaxParticipants) {
		return nil, ErrInvalidCapacity
	}

	tournament := &models.Tournament{
		Name:            input.Name,
		CreatorID:       input.CreatorID,
		MaxParticipants: input.MaxParticipants,
		State:           models.TournamentWaiting,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) Get(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", id, err)
	}
	tournament.Participants = participants

	matches, err := s.matchRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", id, err)
	}
	tournament.Matches = matches

	s.resolveBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.resolveBannerURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) Join(ctx context.Context, tournamentID, userID int) error {
	unlock := s.lockTournament(tournamentID)
	defer unlock()

	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament.State != models.TournamentWaiting {
		return ErrTournamentNotWaiting
	}

	exists, err := s.participantRepo.Exists(ctx, tournamentID, userID)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyJoined
	}

	count, err := s.participantRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if count >= tournament.MaxParticipants {
		return ErrTournamentFull
	}

	participant := &models.TournamentParticipant{TournamentID: tournamentID, UserID: userID}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		if errors.Is(err, repositories.ErrParticipantConflict) {
			return ErrAlreadyJoined
		}
		return err
	}

	// The join that fills the bracket starts the tournament.
	if count+1 == tournament.MaxParticipants {
		return s.start(ctx, tournament)
	}
	return nil
}

// start builds the single-elimination bracket. Matches use 1-indexed heap
// numbering: round(n) = totalRounds - floor(log2(n)); the leaves
// [capacity/2, capacity-1] are seeded with participants in join order, two
// per match, and go straight to ready.
func (s *tournamentService) start(ctx context.Context, t *models.Tournament) error {
	participants, err := s.participantRepo.ListByTournament(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to list participants for bracket: %w", err)
	}
	if len(participants) != t.MaxParticipants {
		return ErrTournamentNotFull
	}

	totalRounds := t.TotalRounds()
	capacity := t.MaxParticipants
	matches := make([]*models.TournamentMatch, 0, capacity-1)
	for n := 1; n < capacity; n++ {
		m := &models.TournamentMatch{
			TournamentID: t.ID,
			Round:        totalRounds - log2(n),
			MatchNumber:  n,
			State:        models.MatchPending,
		}
		if n >= capacity/2 {
			i := 2 * (n - capacity/2)
			left, right := participants[i].UserID, participants[i+1].UserID
			m.LeftUserID, m.RightUserID = &left, &right
			m.State = models.MatchReady
		}
		matches = append(matches, m)
	}

	if err := s.matchRepo.CreateAll(ctx, matches); err != nil {
		return fmt.Errorf("failed to persist bracket for tournament %d: %w", t.ID, err)
	}
	if err := s.tournamentRepo.UpdateState(ctx, t.ID, models.TournamentInProgress); err != nil {
		return fmt.Errorf("failed to mark tournament %d in progress: %w", t.ID, err)
	}

	var firstRound []models.TournamentMatch
	for _, m := range matches {
		if m.Round == 1 {
			firstRound = append(firstRound, *m)
		}
	}
	s.notifyAssignments(ctx, t.ID, firstRound)
	return nil
}

func (s *tournamentService) HandleMatchEnd(ctx context.Context, tournamentID, matchNumber int, result arena.Result) error {
	unlock := s.lockTournament(tournamentID)
	defer unlock()

	match, err := s.getMatch(ctx, tournamentID, matchNumber)
	if err != nil {
		return err
	}
	if match.State == models.MatchFinished {
		// Duplicate result delivery; the first one won.
		return nil
	}

	winnerID := result.WinnerID
	match.LeftScore = result.LeftScore
	match.RightScore = result.RightScore
	match.WinnerID = &winnerID
	match.State = models.MatchFinished
	if err := s.matchRepo.Update(ctx, match); err != nil {
		return fmt.Errorf("failed to record result of match %d: %w", matchNumber, err)
	}

	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return err
	}

	if match.Round == tournament.TotalRounds() {
		return s.finish(ctx, tournament, winnerID)
	}

	if err := s.propagateWinner(ctx, tournamentID, match, winnerID); err != nil {
		return err
	}

	roundMatches, err := s.matchRepo.ListByRound(ctx, tournamentID, match.Round)
	if err != nil {
		return err
	}
	for _, m := range roundMatches {
		if m.State != models.MatchFinished {
			// The round is still in progress; the next round waits.
			return nil
		}
	}

	nextRound, err := s.matchRepo.ListByRound(ctx, tournamentID, match.Round+1)
	if err != nil {
		return err
	}
	s.notifyAssignments(ctx, tournamentID, nextRound)
	return nil
}

func (s *tournamentService) propagateWinner(ctx context.Context, tournamentID int, match *models.TournamentMatch, winnerID int) error {
	parent, err := s.getMatch(ctx, tournamentID, match.ParentNumber())
	if err != nil {
		return err
	}
	if match.ParentSlot() == models.TeamLeft {
		parent.LeftUserID = &winnerID
	} else {
		parent.RightUserID = &winnerID
	}
	if parent.LeftUserID != nil && parent.RightUserID != nil {
		parent.State = models.MatchReady
	}
	if err := s.matchRepo.Update(ctx, parent); err != nil {
		return fmt.Errorf("failed to propagate winner into match %d: %w", parent.MatchNumber, err)
	}
	return nil
}

func (s *tournamentService) finish(ctx context.Context, t *models.Tournament, winnerID int) error {
	if err := s.tournamentRepo.UpdateWinner(ctx, t.ID, winnerID); err != nil {
		return fmt.Errorf("failed to set tournament %d winner: %w", t.ID, err)
	}
	if err := s.tournamentRepo.UpdateState(ctx, t.ID, models.TournamentFinished); err != nil {
		return fmt.Errorf("failed to finish tournament %d: %w", t.ID, err)
	}

	participants, err := s.participantRepo.ListByTournament(ctx, t.ID)
	if err != nil {
		return err
	}
	message := map[string]any{
		"tournament_id": t.ID,
		"name":          t.Name,
		"winner_id":     winnerID,
	}
	group, gctx := errgroup.WithContext(ctx)
	for _, p := range participants {
		uid := p.UserID
		group.Go(func() error {
			if !s.notifier.Notify(gctx, uid, EventTournamentEnd, message) {
				s.logger.Warn("tournament end notification not delivered",
					slog.Int("tournament_id", t.ID), slog.Int("user_id", uid))
			}
			return nil
		})
	}
	return group.Wait()
}

// notifyAssignments tells every participant of the given ready matches where
// to connect. Best effort: failures are logged, never propagated.
func (s *tournamentService) notifyAssignments(ctx context.Context, tournamentID int, matches []models.TournamentMatch) {
	group, gctx := errgroup.WithContext(ctx)
	for _, m := range matches {
		if m.State != models.MatchReady {
			continue
		}
		assignment := MatchAssignment{
			TournamentID: tournamentID,
			Round:        m.Round,
			MatchNumber:  m.MatchNumber,
			URL:          fmt.Sprintf("/ws/tournaments/%d/matches/%d", tournamentID, m.MatchNumber),
		}
		for _, uid := range []*int{m.LeftUserID, m.RightUserID} {
			if uid == nil {
				continue
			}
			userID := *uid
			group.Go(func() error {
				if !s.notifier.Notify(gctx, userID, EventRoundStart, assignment) {
					s.logger.Warn("round start notification not delivered",
						slog.Int("tournament_id", tournamentID), slog.Int("user_id", userID))
				}
				return nil
			})
		}
	}
	_ = group.Wait()
}

func (s *tournamentService) UserTeam(ctx context.Context, tournamentID, matchNumber, userID int) (models.Team, error) {
	match, err := s.getMatch(ctx, tournamentID, matchNumber)
	if err != nil {
		return "", err
	}
	if match.LeftUserID != nil && *match.LeftUserID == userID {
		return models.TeamLeft, nil
	}
	if match.RightUserID != nil && *match.RightUserID == userID {
		return models.TeamRight, nil
	}
	return "", ErrAccessDenied
}

func (s *tournamentService) IsMatchFinished(ctx context.Context, tournamentID, matchNumber int) (bool, error) {
	match, err := s.getMatch(ctx, tournamentID, matchNumber)
	if err != nil {
		return false, err
	}
	return match.State == models.MatchFinished, nil
}

func (s *tournamentService) IsUserInMatch(ctx context.Context, tournamentID, matchNumber, userID int) (bool, error) {
	match, err := s.getMatch(ctx, tournamentID, matchNumber)
	if err != nil {
		return false, err
	}
	return match.HasUser(userID), nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, tournamentID, userID int, contentType string, file io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrValidationFailed
	}
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.CreatorID != userID {
		return nil, ErrAccessDenied
	}
	if contentType != "image/png" && contentType != "image/jpeg" {
		return nil, ErrValidationFailed
	}

	key := fmt.Sprintf("tournaments/%d/banner_%s", tournamentID, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload banner: %w", err)
	}
	if err := s.tournamentRepo.UpdateBannerKey(ctx, tournamentID, &result.Key); err != nil {
		return nil, err
	}

	if tournament.BannerKey != nil {
		if err := s.uploader.Delete(ctx, *tournament.BannerKey); err != nil {
			s.logger.Warn("failed to delete previous banner",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	}
	tournament.BannerKey = &result.Key
	s.resolveBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) getTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) getMatch(ctx context.Context, tournamentID, matchNumber int) (*models.TournamentMatch, error) {
	match, err := s.matchRepo.GetByNumber(ctx, tournamentID, matchNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentMatchNotFound) {
			return nil, ErrTournamentMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *tournamentService) resolveBannerURL(t *models.Tournament) {
	if t.BannerKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*t.BannerKey)
		t.BannerURL = &url
	}
}

func log2(n int) int {
	return bits.Len(uint(n)) - 1
}
