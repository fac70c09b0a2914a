package arena

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ftpong/arena-server/models"
)

var (
	ErrSlotOccupied  = errors.New("arena slot is already occupied")
	ErrArenaFull     = errors.New("arena is full")
	ErrArenaFinished = errors.New("arena is already finished")
)

// Arena is one live two-sided game. It owns its ball, bars and scores, and
// runs the authoritative simulation in a single background goroutine started
// when the second player attaches. All client input is applied through the
// mutex, never from inside the loop.
type Arena struct {
	ID string

	cfg       Config
	messenger Messenger
	onEnd     func(Result)

	mu       sync.Mutex
	players  map[models.Team]*Player
	bars     map[models.Team]*Bar
	ball     *Ball
	scores   map[models.Team]int
	round    int
	started  bool
	finished bool
	forfeit  *models.Team
	cancel   context.CancelFunc

	done    chan struct{}
	endOnce sync.Once
}

// New builds an idle arena. The messenger and the end callback are fixed at
// construction; onEnd fires exactly once with the final result.
func New(id string, cfg Config, messenger Messenger, onEnd func(Result)) *Arena {
	cfg = cfg.withDefaults()
	return &Arena{
		ID:        id,
		cfg:       cfg,
		messenger: messenger,
		onEnd:     onEnd,
		players:   make(map[models.Team]*Player),
		bars: map[models.Team]*Bar{
			models.TeamLeft:  NewBar(models.TeamLeft, cfg),
			models.TeamRight: NewBar(models.TeamRight, cfg),
		},
		ball:   NewBall(cfg),
		scores: map[models.Team]int{models.TeamLeft: 0, models.TeamRight: 0},
		round:  1,
		done:   make(chan struct{}),
	}
}

// AddPlayer seats a participant on the given side. Attaching the second side
// starts the simulation loop; attaching to an occupied side fails. A player
// who disconnected from a started match may reattach to their own seat.
func (a *Arena) AddPlayer(userID int, name string, team models.Team) error {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return ErrArenaFinished
	}
	if existing := a.players[team]; existing != nil {
		if existing.UserID == userID {
			existing.Connected = true
			a.mu.Unlock()
			return nil
		}
		a.mu.Unlock()
		return ErrSlotOccupied
	}
	both := a.claimSeatLocked(userID, name, team)
	a.mu.Unlock()

	if !both {
		a.publish(EventWaiting, "waiting for an opponent")
	}
	return nil
}

// AddPlayerAutoAssign seats a participant on whichever side is free, left
// first, under a single lock hold so two players connecting at once can never
// claim the same seat. Returns the side taken. A player who disconnected from
// a started match gets their own seat back.
func (a *Arena) AddPlayerAutoAssign(userID int, name string) (models.Team, error) {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return "", ErrArenaFinished
	}
	for team, p := range a.players {
		if p != nil && p.UserID == userID {
			p.Connected = true
			a.mu.Unlock()
			return team, nil
		}
	}
	var team models.Team
	switch {
	case a.players[models.TeamLeft] == nil:
		team = models.TeamLeft
	case a.players[models.TeamRight] == nil:
		team = models.TeamRight
	default:
		a.mu.Unlock()
		return "", ErrArenaFull
	}
	both := a.claimSeatLocked(userID, name, team)
	a.mu.Unlock()

	if !both {
		a.publish(EventWaiting, "waiting for an opponent")
	}
	return team, nil
}

// claimSeatLocked fills a verified-free seat and starts the simulation loop
// when the second side arrives. Caller holds a.mu.
func (a *Arena) claimSeatLocked(userID int, name string, team models.Team) (both bool) {
	a.players[team] = &Player{UserID: userID, Name: name, Team: team, Connected: true}

	both = a.players[models.TeamLeft] != nil && a.players[models.TeamRight] != nil
	if both && !a.started {
		a.started = true
		ctx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel
		go a.run(ctx)
	}
	return both
}

// TeamOf reports the seat a user currently holds, if any.
func (a *Arena) TeamOf(userID int) (models.Team, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for team, p := range a.players {
		if p != nil && p.UserID == userID {
			return team, true
		}
	}
	return "", false
}

// RemovePlayer detaches a participant. Before the match starts the seat is
// freed; afterwards the identity stays so the result can be reported. Removal
// never ends the match by itself, forfeiture is the caller's decision.
func (a *Arena) RemovePlayer(userID int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for team, p := range a.players {
		if p != nil && p.UserID == userID {
			if a.started {
				p.Connected = false
			} else {
				delete(a.players, team)
			}
			return
		}
	}
}

// Move applies paddle input immediately. Input from users without a seat is
// dropped.
func (a *Arena) Move(userID int, direction models.Direction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finished {
		return
	}
	for team, p := range a.players {
		if p != nil && p.UserID == userID {
			a.bars[team].Move(direction)
			return
		}
	}
}

// Forfeit force-ends the match against the leaving side. If the loop is
// running it is cancelled and finalization happens on the loop goroutine;
// otherwise the arena finishes on the spot. Either way the leaver's score is
// forced to zero and the opponent's to the max, and finalization runs at most
// once even when a forfeit races a natural win.
func (a *Arena) Forfeit(userID int) {
	a.mu.Lock()
	var team models.Team
	found := false
	for t, p := range a.players {
		if p != nil && p.UserID == userID {
			team, found = t, true
			break
		}
	}
	if !found || a.finished {
		a.mu.Unlock()
		return
	}
	a.forfeit = &team
	started, cancel := a.started, a.cancel
	a.mu.Unlock()

	if started {
		cancel()
		<-a.done
	} else {
		a.conclude()
	}
}

func (a *Arena) IsStarted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}

func (a *Arena) IsFinished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finished
}

// Empty reports whether no seat holds a connected player.
func (a *Arena) Empty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.players {
		if p != nil && p.Connected {
			return false
		}
	}
	return true
}

func (a *Arena) run(ctx context.Context) {
	defer close(a.done)
	a.publish(EventStart, "start")
	a.play(ctx)
	a.conclude()
}

func (a *Arena) play(ctx context.Context) {
	for {
		if !a.countdown(ctx) {
			return
		}
		ticker := time.NewTicker(a.cfg.TickInterval)
		roundOver := false
		for !roundOver {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				var decided bool
				decided, roundOver = a.step()
				if decided {
					ticker.Stop()
					return
				}
			}
		}
		ticker.Stop()
	}
}

func (a *Arena) countdown(ctx context.Context) bool {
	for i := a.cfg.CountdownFrom; i >= 1; i-- {
		a.publish(EventCountdown, i)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(a.cfg.CountdownInterval):
		}
	}
	return true
}

// step advances the simulation by one tick. It reports whether the match was
// decided and whether the current round ended.
func (a *Arena) step() (decided, roundOver bool) {
	a.mu.Lock()
	a.ball.UpdatePosition()
	a.ball.HandleCollision(a.bars[models.TeamLeft], a.bars[models.TeamRight])

	wall, crossed := a.ball.CheckBoundaryCollision()
	if !crossed {
		snap := a.snapshotLocked()
		a.mu.Unlock()
		a.publish(EventState, snap)
		return false, false
	}

	// Crossing a wall scores for the opposite side and ends the round.
	scorer := wall.Opponent()
	a.scores[scorer]++
	board := Scoreboard{
		Left:  a.scores[models.TeamLeft],
		Right: a.scores[models.TeamRight],
		Round: a.round,
	}
	a.round++
	a.ball.Reset(a.round)
	a.bars[models.TeamLeft].Reset()
	a.bars[models.TeamRight].Reset()
	decided = a.scores[scorer] >= a.cfg.MaxScore
	a.mu.Unlock()

	a.publish(EventRoundOver, board)
	return decided, true
}

// conclude runs end-of-match finalization exactly once: apply a pending
// forfeit override, freeze the state, broadcast the result and hand it to the
// reporting callback.
func (a *Arena) conclude() {
	a.endOnce.Do(func() {
		a.mu.Lock()
		if f := a.forfeit; f != nil {
			a.scores[*f] = 0
			a.scores[f.Opponent()] = a.cfg.MaxScore
		}
		a.finished = true
		res := a.resultLocked()
		a.mu.Unlock()

		a.publish(EventEnd, res)
		if a.onEnd != nil {
			a.onEnd(res)
		}
	})
}

func (a *Arena) resultLocked() Result {
	res := Result{
		ArenaID:    a.ID,
		LeftScore:  a.scores[models.TeamLeft],
		RightScore: a.scores[models.TeamRight],
		Forfeited:  a.forfeit != nil,
	}
	if p := a.players[models.TeamLeft]; p != nil {
		res.LeftUserID = p.UserID
	}
	if p := a.players[models.TeamRight]; p != nil {
		res.RightUserID = p.UserID
	}
	if res.LeftScore >= res.RightScore {
		res.Winner = models.TeamLeft
		res.WinnerID = res.LeftUserID
	} else {
		res.Winner = models.TeamRight
		res.WinnerID = res.RightUserID
	}
	return res
}

func (a *Arena) snapshotLocked() StateSnapshot {
	var snap StateSnapshot
	snap.Ball.X = a.ball.X
	snap.Ball.Y = a.ball.Y
	snap.Bars = map[models.Team]int{
		models.TeamLeft:  a.bars[models.TeamLeft].Y,
		models.TeamRight: a.bars[models.TeamRight].Y,
	}
	return snap
}

func (a *Arena) publish(eventType string, payload any) {
	if a.messenger != nil {
		a.messenger.Publish(eventType, payload)
	}
}

// PublishExit broadcasts that a named player left a running match.
func (a *Arena) PublishExit(name string) {
	a.publish(EventExit, name+" left the arena")
}
