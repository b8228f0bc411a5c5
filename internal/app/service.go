package app

import (
	"math/rand"
	"sort"
	"time"

	"pong/internal/domain"
)

// Engine drives one room's authoritative game: ready tracking, the delayed
// start, per-tick simulation advance and win detection. It emits Events for
// the transport layer to broadcast and is only ever called from its room's
// single-threaded loop.
type Engine struct {
	game *domain.Game

	ready       map[int]string // seat -> user id that sent ready
	startAtTick int64
	started     bool
	stopped     bool
}

// NewEngine constructs an engine with the provided rng or a time-seeded
// default.
func NewEngine(scoreToWin int, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		game:  domain.NewGame(scoreToWin, rng),
		ready: make(map[int]string),
	}
}

// MarkReady records a seat's ready signal and emits the resulting ready
// status. When the second seat readies up, a game start announcement is
// emitted and the simulation is scheduled to begin delayTicks later.
// Duplicate ready signals re-broadcast status but never re-schedule.
func (e *Engine) MarkReady(seat int, userID string, tick, delayTicks, nowMillis int64) []Event {
	e.ready[seat] = userID

	events := []Event{{
		Kind: EventReadyStatus,
		Payload: ReadyStatusPayload{
			Type:         "readyStatus",
			PlayersReady: e.ReadyPlayers(),
			AllReady:     e.AllReady(),
		},
	}}

	if e.AllReady() && !e.started && e.startAtTick == 0 {
		e.startAtTick = tick + delayTicks
		events = append(events, Event{
			Kind:    EventGameStart,
			Payload: GameStartPayload{Type: "gameStart", TimeStamp: nowMillis},
		})
	}

	return events
}

// MaybeStart begins the simulation once the scheduled start tick is reached.
// Returns true on the tick the game actually starts.
func (e *Engine) MaybeStart(tick, nowMillis int64) bool {
	if e.started || e.startAtTick == 0 || tick < e.startAtTick {
		return false
	}
	e.started = true
	e.game.Start(nowMillis)
	return true
}

// HandleMove applies a movement command to the seat's own paddle.
func (e *Engine) HandleMove(seat int, dir domain.Direction) error {
	return e.game.HandleInput(seat, dir)
}

// Pause freezes the simulation.
func (e *Engine) Pause() { e.game.Pause() }

// Resume continues a paused simulation.
func (e *Engine) Resume() { e.game.Resume() }

// Reset returns the simulation to its initial state.
func (e *Engine) Reset() { e.game.Reset() }

// Tick advances the simulation by dt seconds and returns the authoritative
// frame to broadcast, plus a game stop event on the tick a winner emerges.
// Before start or after stop it returns nothing.
func (e *Engine) Tick(dt float64, nowMillis int64) (*domain.StateFrame, []Event) {
	if !e.started || e.stopped {
		return nil, nil
	}

	e.game.Update(dt, nowMillis)
	frame := e.game.Frame()

	var events []Event
	if e.game.HasWinner() {
		events = e.Stop(nowMillis)
	}
	return &frame, events
}

// Stop tears the simulation down and emits the stop announcement exactly
// once; repeated stops return nothing.
func (e *Engine) Stop(nowMillis int64) []Event {
	if e.stopped {
		return nil
	}
	e.stopped = true
	e.game.Pause()
	return []Event{{
		Kind:    EventGameStop,
		Payload: GameStopPayload{Type: "gameStop", TimeStamp: nowMillis},
	}}
}

// ForceWinner ends the game in favor of seat regardless of score, for
// technical outcomes such as a reconnect-window forfeit.
func (e *Engine) ForceWinner(seat int, nowMillis int64) []Event {
	e.game.ForceWinner(seat)
	return e.Stop(nowMillis)
}

// Completed reports whether a winner has been decided.
func (e *Engine) Completed() bool { return e.game.HasWinner() }

// Started reports whether the simulation has begun.
func (e *Engine) Started() bool { return e.started }

// WinnerSeat returns the winning seat, or 0 when undecided.
func (e *Engine) WinnerSeat() int { return e.game.WinnerSeat }

// AllReady reports whether both seats sent ready.
func (e *Engine) AllReady() bool { return len(e.ready) >= PlayersPerMatch }

// ReadyPlayers lists the user ids that sent ready, in seat order.
func (e *Engine) ReadyPlayers() []string {
	seats := make([]int, 0, len(e.ready))
	for seat := range e.ready {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	ids := make([]string, len(seats))
	for i, seat := range seats {
		ids[i] = e.ready[seat]
	}
	return ids
}

// Frame exposes the current snapshot, regardless of engine state.
func (e *Engine) Frame() domain.StateFrame { return e.game.Frame() }
