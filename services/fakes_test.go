package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ftpong/arena-server/models"
	"github.com/ftpong/arena-server/repositories"
	"github.com/ftpong/arena-server/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type broadcastEvent struct {
	Room    string
	Type    string
	Message any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (b *fakeBroadcaster) BroadcastToRoom(roomID, eventType string, message any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{Room: roomID, Type: eventType, Message: message})
}

func (b *fakeBroadcaster) ofType(eventType string) []broadcastEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []broadcastEvent
	for _, e := range b.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type notification struct {
	Type    string
	Message any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent map[int][]notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(map[int][]notification)}
}

func (n *fakeNotifier) Notify(_ context.Context, userID int, eventType string, message any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[userID] = append(n.sent[userID], notification{Type: eventType, Message: message})
	return true
}

func (n *fakeNotifier) forUser(userID int) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent[userID]...)
}

type fakeUserGateway struct {
	names map[int]string
}

func (g *fakeUserGateway) GetDisplayName(_ context.Context, userID int, _ string) (string, error) {
	if name, ok := g.names[userID]; ok {
		return name, nil
	}
	return "", fmt.Errorf("no such user %d", userID)
}

type fakeReceptionRepo struct {
	mu         sync.Mutex
	receptions map[string]*models.Reception
	deleted    []string
}

func newFakeReceptionRepo() *fakeReceptionRepo {
	return &fakeReceptionRepo{receptions: make(map[string]*models.Reception)}
}

func (r *fakeReceptionRepo) Create(_ context.Context, rec *models.Reception) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *rec
	r.receptions[rec.ID] = &clone
	return nil
}

func (r *fakeReceptionRepo) GetByID(_ context.Context, id string) (*models.Reception, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.receptions[id]
	if !ok {
		return nil, repositories.ErrReceptionNotFound
	}
	clone := *rec
	return &clone, nil
}

func (r *fakeReceptionRepo) List(_ context.Context, _, _ int) ([]models.Reception, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Reception, 0, len(r.receptions))
	for _, rec := range r.receptions {
		out = append(out, *rec)
	}
	return out, nil
}

func (r *fakeReceptionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.receptions[id]; !ok {
		return repositories.ErrReceptionNotFound
	}
	delete(r.receptions, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	seq         int
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	t.ID = r.seq
	clone := *t
	r.tournaments[t.ID] = &clone
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Tournament
	for _, t := range r.tournaments {
		if filter.State != nil && t.State != *filter.State {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) UpdateState(_ context.Context, id int, state models.TournamentState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.State = state
	return nil
}

func (r *fakeTournamentRepo) UpdateWinner(_ context.Context, id int, winnerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.WinnerID = &winnerID
	return nil
}

func (r *fakeTournamentRepo) UpdateBannerKey(_ context.Context, id int, bannerKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

type fakeParticipantRepo struct {
	mu   sync.Mutex
	seq  int
	rows []models.TournamentParticipant
}

func (r *fakeParticipantRepo) Create(_ context.Context, p *models.TournamentParticipant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.TournamentID == p.TournamentID && row.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
	}
	r.seq++
	p.ID = r.seq
	r.rows = append(r.rows, *p)
	return nil
}

func (r *fakeParticipantRepo) ListByTournament(_ context.Context, tournamentID int) ([]models.TournamentParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TournamentParticipant
	for _, row := range r.rows {
		if row.TournamentID == tournamentID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) CountByTournament(_ context.Context, tournamentID int) (int, error) {
	rows, _ := r.ListByTournament(context.Background(), tournamentID)
	return len(rows), nil
}

func (r *fakeParticipantRepo) Exists(_ context.Context, tournamentID, userID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.TournamentID == tournamentID && row.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeTournamentMatchRepo struct {
	mu      sync.Mutex
	seq     int
	matches map[int]map[int]*models.TournamentMatch
}

func newFakeTournamentMatchRepo() *fakeTournamentMatchRepo {
	return &fakeTournamentMatchRepo{matches: make(map[int]map[int]*models.TournamentMatch)}
}

func (r *fakeTournamentMatchRepo) CreateAll(_ context.Context, matches []*models.TournamentMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range matches {
		r.seq++
		m.ID = r.seq
		byNumber, ok := r.matches[m.TournamentID]
		if !ok {
			byNumber = make(map[int]*models.TournamentMatch)
			r.matches[m.TournamentID] = byNumber
		}
		clone := *m
		byNumber[m.MatchNumber] = &clone
	}
	return nil
}

func (r *fakeTournamentMatchRepo) GetByNumber(_ context.Context, tournamentID, matchNumber int) (*models.TournamentMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[tournamentID][matchNumber]
	if !ok {
		return nil, repositories.ErrTournamentMatchNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *fakeTournamentMatchRepo) ListByTournament(_ context.Context, tournamentID int) ([]models.TournamentMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TournamentMatch
	for _, m := range r.matches[tournamentID] {
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeTournamentMatchRepo) ListByRound(_ context.Context, tournamentID, round int) ([]models.TournamentMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TournamentMatch
	for _, m := range r.matches[tournamentID] {
		if m.Round == round {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeTournamentMatchRepo) Update(_ context.Context, m *models.TournamentMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[m.TournamentID][m.MatchNumber]; !ok {
		return repositories.ErrTournamentMatchNotFound
	}
	clone := *m
	r.matches[m.TournamentID][m.MatchNumber] = &clone
	return nil
}

type fakeUploader struct {
	mu       sync.Mutex
	uploaded map[string]string
	deleted  []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploaded: make(map[string]string)}
}

func (u *fakeUploader) Upload(_ context.Context, key, contentType string, _ io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploaded[key] = contentType
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}
