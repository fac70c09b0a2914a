package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/ftpong/arena-server/models"
	"github.com/ftpong/arena-server/repositories"
	"github.com/ftpong/arena-server/utils"
)

const (
	// InviteTTL bounds how long an invitation bypasses the join gate.
	InviteTTL = 5 * time.Minute
	// joinTokenTTL bounds the window between the REST join and the websocket
	// connect that consumes the token.
	joinTokenTTL = 2 * time.Minute
)

// Reception event discriminators.
const (
	EventParticipants = "participants"
	EventMove         = "move"
	EventInvited      = "reception.invited"
)

type CreateReceptionInput struct {
	Name       string
	OwnerID    int
	MaxPlayers int
	Password   string
}

// MoveMessage tells a reception member where their match is.
type MoveMessage struct {
	ArenaID string `json:"arena_id"`
	URL     string `json:"url"`
}

type ReceptionService interface {
	Create(ctx context.Context, input CreateReceptionInput) (*models.Reception, error)
	Get(ctx context.Context, id string) (*models.Reception, error)
	List(ctx context.Context) ([]models.Reception, error)

	// Join validates the password/invitation gate and returns a one-time
	// token for the websocket connect.
	Join(ctx context.Context, receptionID string, userID int, password string) (string, error)
	Invite(ctx context.Context, receptionID string, inviterID, inviteeID int) error

	// Connect consumes a join token and adds the user to the live roster.
	Connect(ctx context.Context, receptionID string, userID int, token string) error
	Disconnect(ctx context.Context, receptionID string, userID int)
	SetReady(ctx context.Context, receptionID string, userID int, isReady bool) error

	Participants(receptionID string) []models.ReceptionParticipant
	IsPlaying(receptionID string) bool
	// ResetAfterMatch reopens the reception once its normal match finished.
	ResetAfterMatch(ctx context.Context, receptionID string)
	Sweep()
}

type receptionState struct {
	order   []int
	ready   map[int]bool
	playing bool
}

type receptionService struct {
	repo        repositories.ReceptionRepository
	broadcaster Broadcaster
	notifier    Notifier
	users       UserGateway
	arenaAllow  *AllowList
	jwtSecret   []byte
	logger      *slog.Logger

	mu            sync.Mutex
	states        map[string]*receptionState
	userReception map[int]string
	invites       map[string]time.Time
	usedTokens    map[string]time.Time
}

func NewReceptionService(
	repo repositories.ReceptionRepository,
	broadcaster Broadcaster,
	notifier Notifier,
	users UserGateway,
	arenaAllow *AllowList,
	jwtSecret []byte,
	logger *slog.Logger,
) ReceptionService {
	return &receptionService{
		repo:          repo,
		broadcaster:   broadcaster,
		notifier:      notifier,
		users:         users,
		arenaAllow:    arenaAllow,
		jwtSecret:     jwtSecret,
		logger:        logger,
		states:        make(map[string]*receptionState),
		userReception: make(map[int]string),
		invites:       make(map[string]time.Time),
		usedTokens:    make(map[string]time.Time),
	}
}

func (s *receptionService) Create(ctx context.Context, input CreateReceptionInput) (*models.Reception, error) {
	if input.Name == "" {
		return nil, ErrNameRequired
	}
	if input.MaxPlayers < 2 {
		return nil, ErrInvalidReceptionCap
	}

	reception := &models.Reception{
		ID:         uuid.NewString(),
		Name:       input.Name,
		OwnerID:    input.OwnerID,
		MaxPlayers: input.MaxPlayers,
	}
	if input.Password != "" {
		hash, err := utils.HashPassword(input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash reception password: %w", err)
		}
		reception.PasswordHash = &hash
	}

	if err := s.repo.Create(ctx, reception); err != nil {
		return nil, fmt.Errorf("failed to create reception: %w", err)
	}
	return reception, nil
}

func (s *receptionService) Get(ctx context.Context, id string) (*models.Reception, error) {
	reception, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrReceptionNotFound) {
			return nil, ErrReceptionNotFound
		}
		return nil, err
	}
	return reception, nil
}

func (s *receptionService) List(ctx context.Context) ([]models.Reception, error) {
	return s.repo.List(ctx, 0, 0)
}

func (s *receptionService) Join(ctx context.Context, receptionID string, userID int, password string) (string, error) {
	reception, err := s.Get(ctx, receptionID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	invited := s.consumeInviteLocked(receptionID, userID)
	state := s.states[receptionID]
	full := state != nil && len(state.order) >= reception.MaxPlayers
	playing := state != nil && state.playing
	s.mu.Unlock()

	// An invitation bypasses the password and capacity gate for one attempt.
	if !invited {
		if full {
			return "", ErrReceptionFull
		}
		if playing {
			return "", ErrReceptionPlaying
		}
		if reception.IsProtected() && !utils.CheckPasswordHash(password, *reception.PasswordHash) {
			return "", ErrInvalidPassword
		}
	}

	return s.issueJoinToken(receptionID, userID)
}

func (s *receptionService) Invite(ctx context.Context, receptionID string, inviterID, inviteeID int) error {
	reception, err := s.Get(ctx, receptionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.invites[inviteKey(receptionID, inviteeID)] = time.Now().Add(InviteTTL)
	s.mu.Unlock()

	delivered := s.notifier.Notify(ctx, inviteeID, EventInvited, map[string]any{
		"reception_id": reception.ID,
		"name":         reception.Name,
		"inviter_id":   inviterID,
	})
	if !delivered {
		s.logger.Warn("invite notification not delivered",
			slog.String("reception_id", receptionID), slog.Int("user_id", inviteeID))
	}
	return nil
}

func (s *receptionService) Connect(ctx context.Context, receptionID string, userID int, token string) error {
	if err := s.consumeJoinToken(receptionID, userID, token); err != nil {
		return err
	}
	reception, err := s.Get(ctx, receptionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if current, ok := s.userReception[userID]; ok && current != receptionID {
		s.mu.Unlock()
		return ErrAlreadyInReception
	}
	state := s.states[receptionID]
	if state == nil {
		state = &receptionState{ready: make(map[int]bool)}
		s.states[receptionID] = state
	}
	if state.playing {
		s.mu.Unlock()
		return ErrReceptionPlaying
	}
	if !containsInt(state.order, userID) {
		if len(state.order) >= reception.MaxPlayers {
			s.mu.Unlock()
			return ErrReceptionFull
		}
		state.order = append(state.order, userID)
		state.ready[userID] = false
	}
	s.userReception[userID] = receptionID
	s.mu.Unlock()

	s.broadcastRoster(ctx, receptionID)
	return nil
}

func (s *receptionService) Disconnect(ctx context.Context, receptionID string, userID int) {
	s.mu.Lock()
	state := s.states[receptionID]
	if state == nil {
		s.mu.Unlock()
		return
	}
	state.order = removeInt(state.order, userID)
	delete(state.ready, userID)
	if s.userReception[userID] == receptionID {
		delete(s.userReception, userID)
	}
	empty := len(state.order) == 0 && !state.playing
	if empty {
		delete(s.states, receptionID)
	}
	s.mu.Unlock()

	if empty {
		// The last participant left an idle reception: destroy it.
		if err := s.repo.Delete(ctx, receptionID); err != nil &&
			!errors.Is(err, repositories.ErrReceptionNotFound) {
			s.logger.Error("failed to delete empty reception",
				slog.String("reception_id", receptionID), slog.Any("error", err))
		}
		return
	}
	s.broadcastRoster(ctx, receptionID)
}

func (s *receptionService) SetReady(ctx context.Context, receptionID string, userID int, isReady bool) error {
	s.mu.Lock()
	state := s.states[receptionID]
	if state == nil || !containsInt(state.order, userID) {
		s.mu.Unlock()
		return ErrReceptionNotFound
	}
	state.ready[userID] = isReady

	// Quorum: more than one participant and everyone ready. The playing flag
	// makes the transition fire exactly once; later toggles are no-ops.
	start := !state.playing && len(state.order) > 1 && allReady(state)
	var members []int
	if start {
		state.playing = true
		members = append([]int(nil), state.order...)
	}
	s.mu.Unlock()

	s.broadcastRoster(ctx, receptionID)

	if start {
		arenaID := receptionID
		for _, uid := range members {
			s.arenaAllow.Allow(arenaID, uid, 0)
		}
		s.broadcaster.BroadcastToRoom(ReceptionGroupName(receptionID), EventMove, MoveMessage{
			ArenaID: arenaID,
			URL:     fmt.Sprintf("/ws/arenas/%s", arenaID),
		})
	}
	return nil
}

func (s *receptionService) Participants(receptionID string) []models.ReceptionParticipant {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[receptionID]
	if state == nil {
		return nil
	}
	participants := make([]models.ReceptionParticipant, 0, len(state.order))
	for _, uid := range state.order {
		participants = append(participants, models.ReceptionParticipant{
			UserID:  uid,
			IsReady: state.ready[uid],
		})
	}
	return participants
}

func (s *receptionService) IsPlaying(receptionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[receptionID]
	return state != nil && state.playing
}

func (s *receptionService) ResetAfterMatch(ctx context.Context, receptionID string) {
	s.arenaAllow.RevokeAll(receptionID)

	s.mu.Lock()
	state := s.states[receptionID]
	var empty bool
	if state != nil {
		state.playing = false
		for uid := range state.ready {
			state.ready[uid] = false
		}
		empty = len(state.order) == 0
		if empty {
			delete(s.states, receptionID)
		}
	}
	s.mu.Unlock()

	if state == nil {
		return
	}
	if empty {
		if err := s.repo.Delete(ctx, receptionID); err != nil &&
			!errors.Is(err, repositories.ErrReceptionNotFound) {
			s.logger.Error("failed to delete reception after match",
				slog.String("reception_id", receptionID), slog.Any("error", err))
		}
		return
	}
	s.broadcastRoster(ctx, receptionID)
}

// Sweep drops expired invitations and used-token records.
func (s *receptionService) Sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, deadline := range s.invites {
		if now.After(deadline) {
			delete(s.invites, key)
		}
	}
	for jti, deadline := range s.usedTokens {
		if now.After(deadline) {
			delete(s.usedTokens, jti)
		}
	}
}

func (s *receptionService) broadcastRoster(ctx context.Context, receptionID string) {
	participants := s.Participants(receptionID)
	for i := range participants {
		name, err := s.users.GetDisplayName(ctx, participants[i].UserID, "")
		if err != nil {
			name = FallbackName(participants[i].UserID)
		}
		participants[i].Name = name
	}
	s.broadcaster.BroadcastToRoom(ReceptionGroupName(receptionID), EventParticipants, participants)
}

func (s *receptionService) issueJoinToken(receptionID string, userID int) (string, error) {
	claims := jwt.MapClaims{
		"reception_id": receptionID,
		"user_id":      userID,
		"jti":          uuid.NewString(),
		"exp":          time.Now().Add(joinTokenTTL).Unix(),
		"iat":          time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign join token: %w", err)
	}
	return signed, nil
}

// consumeJoinToken validates the one-time token issued by Join and burns it.
func (s *receptionService) consumeJoinToken(receptionID string, userID int, tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidToken
	}
	if rid, _ := claims["reception_id"].(string); rid != receptionID {
		return ErrInvalidToken
	}
	if uid, _ := claims["user_id"].(float64); int(uid) != userID {
		return ErrInvalidToken
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, used := s.usedTokens[jti]; used {
		return ErrInvalidToken
	}
	s.usedTokens[jti] = time.Now().Add(joinTokenTTL)
	return nil
}

func (s *receptionService) consumeInviteLocked(receptionID string, userID int) bool {
	key := inviteKey(receptionID, userID)
	deadline, ok := s.invites[key]
	if !ok {
		return false
	}
	delete(s.invites, key)
	return time.Now().Before(deadline)
}

func inviteKey(receptionID string, userID int) string {
	return fmt.Sprintf("invitation:%s:%d", receptionID, userID)
}

func allReady(state *receptionState) bool {
	for _, uid := range state.order {
		if !state.ready[uid] {
			return false
		}
	}
	return true
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func removeInt(values []int, v int) []int {
	out := values[:0]
	for _, x := range values {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
