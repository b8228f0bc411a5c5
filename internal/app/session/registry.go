// Package session tracks the live connections of one match room: sticky seat
// assignment, per-user activity, reconnect grace deadlines and the
// exactly-once result guard. A Room is owned by its match loop and is not
// safe for concurrent use.
package session

import (
	"sort"
	"time"

	"golang.org/x/time/rate"

	"pong/internal/domain"
)

// Per-connection inbound message budget. Sixty sustained messages per second
// matches the tick rate; the burst absorbs client-side batching.
const (
	messagesPerSecond = 60
	messageBurst      = 120
)

// roomCapacity is the number of seats in a two-party match.
const roomCapacity = 2

// Conn is the bookkeeping for one user's connection session.
type Conn struct {
	UserID       string
	Seat         int
	LastActivity time.Time

	// GraceDeadline is zero while connected; set when the transport closes
	// and cleared on reconnect.
	GraceDeadline time.Time

	limiter *rate.Limiter
}

// Connected reports whether the session has a live transport.
func (c *Conn) Connected() bool { return c.GraceDeadline.IsZero() }

// Room is the session registry for a single match.
type Room struct {
	MatchID string

	seats map[string]int // userID -> seat, sticky for the room's lifetime
	conns map[string]*Conn

	resultRecorded bool
}

// NewRoom creates an empty room bound to a match record.
func NewRoom(matchID string) *Room {
	return &Room{
		MatchID: matchID,
		seats:   make(map[string]int),
		conns:   make(map[string]*Conn),
	}
}

// Admit binds a user into the room. A returning user recovers their prior
// seat and any pending grace deadline is cancelled; a new user takes the
// lowest unused seat. Fails with domain.ErrRoomFull when both seats belong
// to other users.
func (r *Room) Admit(userID string, now time.Time) (*Conn, error) {
	seat, ok := r.seats[userID]
	if !ok {
		seat = r.lowestUnusedSeat()
		if seat > roomCapacity {
			return nil, domain.ErrRoomFull
		}
		r.seats[userID] = seat
	}

	conn, ok := r.conns[userID]
	if !ok {
		conn = &Conn{
			UserID:  userID,
			Seat:    seat,
			limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), messageBurst),
		}
		r.conns[userID] = conn
	}
	conn.GraceDeadline = time.Time{}
	conn.LastActivity = now
	return conn, nil
}

// Seat returns the sticky seat number for a user.
func (r *Room) Seat(userID string) (int, bool) {
	seat, ok := r.seats[userID]
	return seat, ok
}

// UserAtSeat resolves the user id holding a seat.
func (r *Room) UserAtSeat(seat int) (string, bool) {
	for userID, s := range r.seats {
		if s == seat {
			return userID, true
		}
	}
	return "", false
}

// MarkDisconnected arms the reconnect grace deadline for a user and returns
// it. Unknown users get a zero deadline.
func (r *Room) MarkDisconnected(userID string, now time.Time, grace time.Duration) time.Time {
	conn, ok := r.conns[userID]
	if !ok {
		return time.Time{}
	}
	conn.GraceDeadline = now.Add(grace)
	return conn.GraceDeadline
}

// InGrace reports whether the user is disconnected with the timer running.
func (r *Room) InGrace(userID string) bool {
	conn, ok := r.conns[userID]
	return ok && !conn.GraceDeadline.IsZero()
}

// ExpiredGrace returns users whose grace deadline has passed, in seat order.
func (r *Room) ExpiredGrace(now time.Time) []string {
	var expired []string
	for userID, conn := range r.conns {
		if !conn.GraceDeadline.IsZero() && now.After(conn.GraceDeadline) {
			expired = append(expired, userID)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return r.seats[expired[i]] < r.seats[expired[j]]
	})
	return expired
}

// Touch refreshes a user's activity timestamp.
func (r *Room) Touch(userID string, now time.Time) {
	if conn, ok := r.conns[userID]; ok {
		conn.LastActivity = now
	}
}

// AllowMessage reports whether the user's inbound message budget permits
// another message right now.
func (r *Room) AllowMessage(userID string) bool {
	conn, ok := r.conns[userID]
	if !ok {
		return false
	}
	return conn.limiter.Allow()
}

// Remove purges a user's session entry. The seat assignment stays sticky so
// a later reconnect recovers the same side.
func (r *Room) Remove(userID string) {
	delete(r.conns, userID)
}

// ConnectedCount returns how many sessions have a live transport.
func (r *Room) ConnectedCount() int {
	n := 0
	for _, conn := range r.conns {
		if conn.Connected() {
			n++
		}
	}
	return n
}

// SessionCount returns all tracked sessions, connected or in grace.
func (r *Room) SessionCount() int { return len(r.conns) }

// TryRecordResult returns true exactly once per room, guarding result
// persistence against teardown racing the grace path.
func (r *Room) TryRecordResult() bool {
	if r.resultRecorded {
		return false
	}
	r.resultRecorded = true
	return true
}

func (r *Room) lowestUnusedSeat() int {
	used := make(map[int]bool, len(r.seats))
	for _, s := range r.seats {
		used[s] = true
	}
	seat := 1
	for used[seat] {
		seat++
	}
	return seat
}
