package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftpong/arena-server/arena"
	"github.com/ftpong/arena-server/models"
)

type tournamentServiceFixture struct {
	tournaments  *fakeTournamentRepo
	participants *fakeParticipantRepo
	matches      *fakeTournamentMatchRepo
	notifier     *fakeNotifier
	uploader     *fakeUploader
	svc          TournamentService
}

func newTournamentServiceFixture() *tournamentServiceFixture {
	f := &tournamentServiceFixture{
		tournaments:  newFakeTournamentRepo(),
		participants: &fakeParticipantRepo{},
		matches:      newFakeTournamentMatchRepo(),
		notifier:     newFakeNotifier(),
		uploader:     newFakeUploader(),
	}
	f.svc = NewTournamentService(f.tournaments, f.participants, f.matches,
		f.notifier, f.uploader, testLogger())
	return f
}

// fill creates a tournament of the given capacity and joins users 1..capacity,
// which starts it.
func (f *tournamentServiceFixture) fill(t *testing.T, capacity int) *models.Tournament {
	t.Helper()
	tournament, err := f.svc.Create(context.Background(), CreateTournamentInput{
		Name: "cup", CreatorID: 1, MaxParticipants: capacity,
	})
	require.NoError(t, err)
	for uid := 1; uid <= capacity; uid++ {
		require.NoError(t, f.svc.Join(context.Background(), tournament.ID, uid))
	}
	return tournament
}

func (f *tournamentServiceFixture) finishMatch(t *testing.T, tournamentID, matchNumber, winnerID int) {
	t.Helper()
	match, err := f.matches.GetByNumber(context.Background(), tournamentID, matchNumber)
	require.NoError(t, err)
	require.NotNil(t, match.LeftUserID)
	require.NotNil(t, match.RightUserID)
	result := arena.Result{
		ArenaID:     TournamentArenaID(tournamentID, matchNumber),
		LeftUserID:  *match.LeftUserID,
		RightUserID: *match.RightUserID,
		WinnerID:    winnerID,
	}
	if winnerID == *match.LeftUserID {
		result.LeftScore, result.Winner = 5, models.TeamLeft
	} else {
		result.RightScore, result.Winner = 5, models.TeamRight
	}
	require.NoError(t, f.svc.HandleMatchEnd(context.Background(), tournamentID, matchNumber, result))
}

func TestTournamentCreateValidation(t *testing.T) {
	f := newTournamentServiceFixture()

	tests := []struct {
		name    string
		input   CreateTournamentInput
		wantErr error
	}{
		{"empty name", CreateTournamentInput{Name: "", CreatorID: 1, MaxParticipants: 4}, ErrNameRequired},
		{"capacity three", CreateTournamentInput{Name: "cup", CreatorID: 1, MaxParticipants: 3}, ErrInvalidCapacity},
		{"capacity thirty two", CreateTournamentInput{Name: "cup", CreatorID: 1, MaxParticipants: 32}, ErrInvalidCapacity},
		{"capacity two", CreateTournamentInput{Name: "cup", CreatorID: 1, MaxParticipants: 2}, nil},
		{"capacity sixteen", CreateTournamentInput{Name: "cup", CreatorID: 1, MaxParticipants: 16}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tournament, err := f.svc.Create(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.TournamentWaiting, tournament.State)
		})
	}
}

func TestTournamentJoinErrors(t *testing.T) {
	f := newTournamentServiceFixture()
	tournament, err := f.svc.Create(context.Background(), CreateTournamentInput{
		Name: "cup", CreatorID: 1, MaxParticipants: 2,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Join(context.Background(), tournament.ID, 1))
	assert.ErrorIs(t, f.svc.Join(context.Background(), tournament.ID, 1), ErrAlreadyJoined)

	// The second join fills the bracket and starts the tournament.
	require.NoError(t, f.svc.Join(context.Background(), tournament.ID, 2))
	assert.ErrorIs(t, f.svc.Join(context.Background(), tournament.ID, 3), ErrTournamentNotWaiting)

	assert.ErrorIs(t, f.svc.Join(context.Background(), 999, 1), ErrTournamentNotFound)
}

func TestTournamentBracketNumbering(t *testing.T) {
	tests := []struct {
		capacity    int
		totalRounds int
		// matchNumber -> round
		rounds map[int]int
	}{
		{2, 1, map[int]int{1: 1}},
		{4, 2, map[int]int{1: 2, 2: 1, 3: 1}},
		{8, 3, map[int]int{1: 3, 2: 2, 3: 2, 4: 1, 5: 1, 6: 1, 7: 1}},
		{16, 4, map[int]int{1: 4, 2: 3, 3: 3, 4: 2, 5: 2, 6: 2, 7: 2, 8: 1, 9: 1, 10: 1, 11: 1, 12: 1, 13: 1, 14: 1, 15: 1}},
	}
	for _, tt := range tests {
		f := newTournamentServiceFixture()
		tournament := f.fill(t, tt.capacity)

		matches, err := f.matches.ListByTournament(context.Background(), tournament.ID)
		require.NoError(t, err)
		require.Len(t, matches, tt.capacity-1)

		for _, m := range matches {
			assert.Equal(t, tt.rounds[m.MatchNumber], m.Round,
				"capacity %d match %d", tt.capacity, m.MatchNumber)
			if m.Round == 1 {
				assert.Equal(t, models.MatchReady, m.State)
				assert.NotNil(t, m.LeftUserID)
				assert.NotNil(t, m.RightUserID)
			} else {
				assert.Equal(t, models.MatchPending, m.State)
				assert.Nil(t, m.LeftUserID)
				assert.Nil(t, m.RightUserID)
			}
		}
	}
}

func TestTournamentSeedsLeavesInJoinOrder(t *testing.T) {
	f := newTournamentServiceFixture()
	tournament := f.fill(t, 4)

	// Users joined 1,2,3,4: leaves are matches 2 (users 1,2) and 3 (users 3,4).
	m2, err := f.matches.GetByNumber(context.Background(), tournament.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, *m2.LeftUserID)
	assert.Equal(t, 2, *m2.RightUserID)

	m3, err := f.matches.GetByNumber(context.Background(), tournament.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, *m3.LeftUserID)
	assert.Equal(t, 4, *m3.RightUserID)
}

func TestTournamentStartNotifiesFirstRound(t *testing.T) {
	f := newTournamentServiceFixture()
	tournament := f.fill(t, 4)

	got, err := f.tournaments.GetByID(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentInProgress, got.State)

	for uid := 1; uid <= 4; uid++ {
		notifications := f.notifier.forUser(uid)
		require.Len(t, notifications, 1, "user %d", uid)
		assert.Equal(t, EventRoundStart, notifications[0].Type)

		assignment, ok := notifications[0].Message.(MatchAssignment)
		require.True(t, ok)
		assert.Equal(t, 1, assignment.Round)
		assert.True(t, strings.HasPrefix(assignment.URL, "/ws/tournaments/"))
	}
}

func TestTournamentWinnerPropagation(t *testing.T) {
	f := newTournamentServiceFixture()
	tournament := f.fill(t, 4)

	// Match 2 winner fills the LEFT slot of the final, match 3 the RIGHT.
	f.finishMatch(t, tournament.ID, 2, 1)

	final, err := f.matches.GetByNumber(context.Background(), tournament.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, final.LeftUserID)
	assert.Equal(t, 1, *final.LeftUserID)
	assert.Nil(t, final.RightUserID)
	assert.Equal(t, models.MatchPending, final.State)

	f.finishMatch(t, tournament.ID, 3, 4)

	final, err = f.matches.GetByNumber(context.Background(), tournament.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, final.RightUserID)
	assert.Equal(t, 4, *final.RightUserID)
	assert.Equal(t, models.MatchReady, final.State)

	// Both finalists get a round start notification once round 1 is done.
	for _, uid := range []int{1, 4} {
		notifications := f.notifier.forUser(uid)
		require.Len(t, notifications, 2, "user %d", uid)
		assert.Equal(t, EventRoundStart, notifications[1].Type)
		assignment, ok := notifications[1].Message.(MatchAssignment)
		require.True(t, ok)
		assert.Equal(t, 1, assignment.MatchNumber)
		assert.Equal(t, 2, assignment.Round)
	}
	// Eliminated players only got the first notification.
	assert.Len(t, f.notifier.forUser(2), 1)
	assert.Len(t, f.notifier.forUser(3), 1)
}

func TestTournamentNextRoundWaitsForWholeRound(t *testing.T) {
	f := newTournamentServiceFixture()
	tournament := f.fill(t, 4)

	f.finishMatch(t, tournament.ID, 2, 1)

	// Round 1 is not complete: nobody hears about the final yet.
	assert.Len(t, f.notifier.forUser(1), 1)
}

func TestTournamentFinal(t *testing.T) {
	f := newTournamentServiceFixture()
	tournament := f.fill(t, 4)

	f.finishMatch(t, tournament.ID, 2, 1)
	f.finishMatch(t, tournament.ID, 3, 4)
	f.finishMatch(t, tournament.ID, 1, 4)

	got, err := f.tournaments.GetByID(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentFinished, got.State)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, 4, *got.WinnerID)

	// Every participant hears about the end.
	for uid := 1; uid <= 4; uid++ {
		notifications := f.notifier.forUser(uid)
		require.NotEmpty(t, notifications)
		assert.Equal(t, EventTournamentEnd, notifications[len(notifications)-1].Type)
	}
}

func TestTournamentHandleMatchEndIdempotent(t *testing.T) {
	f := newTournamentServiceFixture()
	tournament := f.fill(t, 4)

	f.finishMatch(t, tournament.ID, 2, 1)

	// A duplicate result with a different winner must be ignored.
	duplicate := arena.Result{
		ArenaID:     TournamentArenaID(tournament.ID, 2),
		LeftUserID:  1,
		RightUserID: 2,
		RightScore:  5,
		Winner:      models.TeamRight,
		WinnerID:    2,
	}
	require.NoError(t, f.svc.HandleMatchEnd(context.Background(), tournament.ID, 2, duplicate))

	match, err := f.matches.GetByNumber(context.Background(), tournament.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, 1, *match.WinnerID)

	final, err := f.matches.GetByNumber(context.Background(), tournament.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, *final.LeftUserID)
}

func TestTournamentTwoPlayerBracketIsSingleFinal(t *testing.T) {
	f := newTournamentServiceFixture()
	tournament := f.fill(t, 2)

	matches, err := f.matches.ListByTournament(context.Background(), tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].MatchNumber)
	assert.Equal(t, models.MatchReady, matches[0].State)

	f.finishMatch(t, tournament.ID, 1, 2)

	got, err := f.tournaments.GetByID(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentFinished, got.State)
	assert.Equal(t, 2, *got.WinnerID)
}

func TestTournamentMatchAccessHelpers(t *testing.T) {
	f := newTournamentServiceFixture()
	tournament := f.fill(t, 4)

	team, err := f.svc.UserTeam(context.Background(), tournament.ID, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TeamLeft, team)

	team, err = f.svc.UserTeam(context.Background(), tournament.ID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, models.TeamRight, team)

	_, err = f.svc.UserTeam(context.Background(), tournament.ID, 2, 3)
	assert.ErrorIs(t, err, ErrAccessDenied)

	inMatch, err := f.svc.IsUserInMatch(context.Background(), tournament.ID, 2, 1)
	require.NoError(t, err)
	assert.True(t, inMatch)
	inMatch, err = f.svc.IsUserInMatch(context.Background(), tournament.ID, 2, 3)
	require.NoError(t, err)
	assert.False(t, inMatch)

	finished, err := f.svc.IsMatchFinished(context.Background(), tournament.ID, 2)
	require.NoError(t, err)
	assert.False(t, finished)

	f.finishMatch(t, tournament.ID, 2, 1)
	finished, err = f.svc.IsMatchFinished(context.Background(), tournament.ID, 2)
	require.NoError(t, err)
	assert.True(t, finished)
}

func TestTournamentBannerUpload(t *testing.T) {
	f := newTournamentServiceFixture()
	tournament, err := f.svc.Create(context.Background(), CreateTournamentInput{
		Name: "cup", CreatorID: 1, MaxParticipants: 4,
	})
	require.NoError(t, err)

	_, err = f.svc.UploadBanner(context.Background(), tournament.ID, 2, "image/png", strings.NewReader("img"))
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.svc.UploadBanner(context.Background(), tournament.ID, 1, "text/plain", strings.NewReader("img"))
	assert.ErrorIs(t, err, ErrValidationFailed)

	updated, err := f.svc.UploadBanner(context.Background(), tournament.ID, 1, "image/png", strings.NewReader("img"))
	require.NoError(t, err)
	require.NotNil(t, updated.BannerURL)
	assert.True(t, strings.HasPrefix(*updated.BannerURL, "https://cdn.test/tournaments/"))

	// A second upload replaces the old object.
	first := *updated.BannerKey
	_, err = f.svc.UploadBanner(context.Background(), tournament.ID, 1, "image/jpeg", strings.NewReader("img2"))
	require.NoError(t, err)
	assert.Contains(t, f.uploader.deleted, first)
}
