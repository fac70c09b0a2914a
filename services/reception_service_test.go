package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftpong/arena-server/models"
)

type receptionServiceFixture struct {
	repo        *fakeReceptionRepo
	broadcaster *fakeBroadcaster
	notifier    *fakeNotifier
	arenaAllow  *AllowList
	svc         ReceptionService
}

func newReceptionServiceFixture() *receptionServiceFixture {
	f := &receptionServiceFixture{
		repo:        newFakeReceptionRepo(),
		broadcaster: &fakeBroadcaster{},
		notifier:    newFakeNotifier(),
		arenaAllow:  NewAllowList(),
	}
	gateway := &fakeUserGateway{names: map[int]string{1: "alice", 2: "bob"}}
	f.svc = NewReceptionService(f.repo, f.broadcaster, f.notifier, gateway,
		f.arenaAllow, []byte("test-secret"), testLogger())
	return f
}

// joinAndConnect walks a user through the REST join and the websocket
// connect that consumes the issued token.
func (f *receptionServiceFixture) joinAndConnect(t *testing.T, receptionID string, userID int, password string) {
	t.Helper()
	token, err := f.svc.Join(context.Background(), receptionID, userID, password)
	require.NoError(t, err)
	require.NoError(t, f.svc.Connect(context.Background(), receptionID, userID, token))
}

func TestReceptionCreateValidation(t *testing.T) {
	f := newReceptionServiceFixture()

	tests := []struct {
		name    string
		input   CreateReceptionInput
		wantErr error
	}{
		{"empty name", CreateReceptionInput{Name: "", OwnerID: 1, MaxPlayers: 2}, ErrNameRequired},
		{"capacity below two", CreateReceptionInput{Name: "duel", OwnerID: 1, MaxPlayers: 1}, ErrInvalidReceptionCap},
		{"valid", CreateReceptionInput{Name: "duel", OwnerID: 1, MaxPlayers: 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reception, err := f.svc.Create(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, reception.ID)
			assert.False(t, reception.IsProtected())
		})
	}
}

func TestReceptionPasswordGate(t *testing.T) {
	f := newReceptionServiceFixture()
	reception, err := f.svc.Create(context.Background(), CreateReceptionInput{
		Name: "private", OwnerID: 1, MaxPlayers: 2, Password: "hunter2",
	})
	require.NoError(t, err)
	require.True(t, reception.IsProtected())

	_, err = f.svc.Join(context.Background(), reception.ID, 2, "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = f.svc.Join(context.Background(), reception.ID, 2, "hunter2")
	assert.NoError(t, err)
}

func TestReceptionInviteBypassesPassword(t *testing.T) {
	f := newReceptionServiceFixture()
	reception, err := f.svc.Create(context.Background(), CreateReceptionInput{
		Name: "private", OwnerID: 1, MaxPlayers: 2, Password: "hunter2",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Invite(context.Background(), reception.ID, 1, 2))
	assert.NotEmpty(t, f.notifier.forUser(2), "invitee should be notified")

	// An invitation replaces the password for exactly one attempt.
	_, err = f.svc.Join(context.Background(), reception.ID, 2, "")
	assert.NoError(t, err)
	_, err = f.svc.Join(context.Background(), reception.ID, 2, "")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestReceptionJoinTokenIsSingleUse(t *testing.T) {
	f := newReceptionServiceFixture()
	reception, err := f.svc.Create(context.Background(), CreateReceptionInput{
		Name: "duel", OwnerID: 1, MaxPlayers: 2,
	})
	require.NoError(t, err)

	token, err := f.svc.Join(context.Background(), reception.ID, 1, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Connect(context.Background(), reception.ID, 1, token))
	assert.ErrorIs(t, f.svc.Connect(context.Background(), reception.ID, 1, token), ErrInvalidToken)
	assert.ErrorIs(t, f.svc.Connect(context.Background(), reception.ID, 1, "garbage"), ErrInvalidToken)
}

func TestReceptionTokenBoundToReceptionAndUser(t *testing.T) {
	f := newReceptionServiceFixture()
	first, err := f.svc.Create(context.Background(), CreateReceptionInput{Name: "a", OwnerID: 1, MaxPlayers: 2})
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), CreateReceptionInput{Name: "b", OwnerID: 1, MaxPlayers: 2})
	require.NoError(t, err)

	token, err := f.svc.Join(context.Background(), first.ID, 1, "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Connect(context.Background(), second.ID, 1, token), ErrInvalidToken)
	assert.ErrorIs(t, f.svc.Connect(context.Background(), first.ID, 2, token), ErrInvalidToken)
}

func TestReceptionCapacity(t *testing.T) {
	f := newReceptionServiceFixture()
	reception, err := f.svc.Create(context.Background(), CreateReceptionInput{
		Name: "duel", OwnerID: 1, MaxPlayers: 2,
	})
	require.NoError(t, err)

	f.joinAndConnect(t, reception.ID, 1, "")
	f.joinAndConnect(t, reception.ID, 2, "")

	_, err = f.svc.Join(context.Background(), reception.ID, 3, "")
	assert.ErrorIs(t, err, ErrReceptionFull)
}

func TestReceptionUserCannotBeInTwoReceptions(t *testing.T) {
	f := newReceptionServiceFixture()
	first, err := f.svc.Create(context.Background(), CreateReceptionInput{Name: "a", OwnerID: 1, MaxPlayers: 2})
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), CreateReceptionInput{Name: "b", OwnerID: 1, MaxPlayers: 2})
	require.NoError(t, err)

	f.joinAndConnect(t, first.ID, 1, "")

	token, err := f.svc.Join(context.Background(), second.ID, 1, "")
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Connect(context.Background(), second.ID, 1, token), ErrAlreadyInReception)
}

func TestReceptionReadyQuorum(t *testing.T) {
	f := newReceptionServiceFixture()
	reception, err := f.svc.Create(context.Background(), CreateReceptionInput{
		Name: "duel", OwnerID: 1, MaxPlayers: 2,
	})
	require.NoError(t, err)

	f.joinAndConnect(t, reception.ID, 1, "")

	// A lone ready participant never starts a match.
	require.NoError(t, f.svc.SetReady(context.Background(), reception.ID, 1, true))
	assert.False(t, f.svc.IsPlaying(reception.ID))
	assert.Empty(t, f.broadcaster.ofType(EventMove))

	f.joinAndConnect(t, reception.ID, 2, "")
	assert.False(t, f.svc.IsPlaying(reception.ID))

	require.NoError(t, f.svc.SetReady(context.Background(), reception.ID, 2, true))
	assert.True(t, f.svc.IsPlaying(reception.ID))

	moves := f.broadcaster.ofType(EventMove)
	require.Len(t, moves, 1)
	move, ok := moves[0].Message.(MoveMessage)
	require.True(t, ok)
	assert.Equal(t, reception.ID, move.ArenaID)
	assert.Equal(t, "/ws/arenas/"+reception.ID, move.URL)

	// Both members are allowed into the arena, outsiders are not.
	assert.True(t, f.arenaAllow.IsAllowed(reception.ID, 1))
	assert.True(t, f.arenaAllow.IsAllowed(reception.ID, 2))
	assert.False(t, f.arenaAllow.IsAllowed(reception.ID, 3))

	// Further ready toggles while playing must not fire a second move.
	require.NoError(t, f.svc.SetReady(context.Background(), reception.ID, 1, true))
	assert.Len(t, f.broadcaster.ofType(EventMove), 1)
}

func TestReceptionJoinRejectedWhilePlaying(t *testing.T) {
	f := newReceptionServiceFixture()
	reception, err := f.svc.Create(context.Background(), CreateReceptionInput{
		Name: "room", OwnerID: 1, MaxPlayers: 3,
	})
	require.NoError(t, err)

	f.joinAndConnect(t, reception.ID, 1, "")
	f.joinAndConnect(t, reception.ID, 2, "")
	require.NoError(t, f.svc.SetReady(context.Background(), reception.ID, 1, true))
	require.NoError(t, f.svc.SetReady(context.Background(), reception.ID, 2, true))
	require.True(t, f.svc.IsPlaying(reception.ID))

	_, err = f.svc.Join(context.Background(), reception.ID, 3, "")
	assert.ErrorIs(t, err, ErrReceptionPlaying)
}

func TestReceptionResetAfterMatch(t *testing.T) {
	f := newReceptionServiceFixture()
	reception, err := f.svc.Create(context.Background(), CreateReceptionInput{
		Name: "duel", OwnerID: 1, MaxPlayers: 2,
	})
	require.NoError(t, err)

	f.joinAndConnect(t, reception.ID, 1, "")
	f.joinAndConnect(t, reception.ID, 2, "")
	require.NoError(t, f.svc.SetReady(context.Background(), reception.ID, 1, true))
	require.NoError(t, f.svc.SetReady(context.Background(), reception.ID, 2, true))
	require.True(t, f.svc.IsPlaying(reception.ID))

	f.svc.ResetAfterMatch(context.Background(), reception.ID)

	assert.False(t, f.svc.IsPlaying(reception.ID))
	assert.False(t, f.arenaAllow.IsAllowed(reception.ID, 1))
	for _, p := range f.svc.Participants(reception.ID) {
		assert.False(t, p.IsReady)
	}

	// Everyone unready again, so the quorum can fire a second time.
	require.NoError(t, f.svc.SetReady(context.Background(), reception.ID, 1, true))
	require.NoError(t, f.svc.SetReady(context.Background(), reception.ID, 2, true))
	assert.Len(t, f.broadcaster.ofType(EventMove), 2)
}

func TestReceptionDeletedWhenLastParticipantLeaves(t *testing.T) {
	f := newReceptionServiceFixture()
	reception, err := f.svc.Create(context.Background(), CreateReceptionInput{
		Name: "duel", OwnerID: 1, MaxPlayers: 2,
	})
	require.NoError(t, err)

	f.joinAndConnect(t, reception.ID, 1, "")
	f.joinAndConnect(t, reception.ID, 2, "")

	f.svc.Disconnect(context.Background(), reception.ID, 1)
	_, err = f.svc.Get(context.Background(), reception.ID)
	assert.NoError(t, err, "reception survives while someone remains")

	f.svc.Disconnect(context.Background(), reception.ID, 2)
	_, err = f.svc.Get(context.Background(), reception.ID)
	assert.ErrorIs(t, err, ErrReceptionNotFound)
}

func TestReceptionRosterUsesFallbackNames(t *testing.T) {
	f := newReceptionServiceFixture()
	reception, err := f.svc.Create(context.Background(), CreateReceptionInput{
		Name: "duel", OwnerID: 1, MaxPlayers: 2,
	})
	require.NoError(t, err)

	// User 7 is unknown to the identity service.
	token, err := f.svc.Join(context.Background(), reception.ID, 7, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Connect(context.Background(), reception.ID, 7, token))

	rosters := f.broadcaster.ofType(EventParticipants)
	require.NotEmpty(t, rosters)
	participants, ok := rosters[len(rosters)-1].Message.([]models.ReceptionParticipant)
	require.True(t, ok)
	require.Len(t, participants, 1)
	assert.Equal(t, FallbackName(7), participants[0].Name)
}
