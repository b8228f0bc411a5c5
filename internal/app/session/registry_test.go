package session

import (
	"errors"
	"testing"
	"time"

	"pong/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAdmitAssignsLowestSeats(t *testing.T) {
	r := NewRoom("m1")

	c1, err := r.Admit("u1", testNow)
	if err != nil {
		t.Fatalf("admit u1: %v", err)
	}
	c2, err := r.Admit("u2", testNow)
	if err != nil {
		t.Fatalf("admit u2: %v", err)
	}
	if c1.Seat != 1 || c2.Seat != 2 {
		t.Fatalf("seats = %d, %d, want 1, 2", c1.Seat, c2.Seat)
	}

	if _, err := r.Admit("u3", testNow); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("admit u3 err = %v, want ErrRoomFull", err)
	}
}

func TestReconnectRecoversSeatAndCancelsGrace(t *testing.T) {
	r := NewRoom("m1")
	r.Admit("u1", testNow)
	r.Admit("u2", testNow)

	deadline := r.MarkDisconnected("u1", testNow, time.Minute)
	if deadline != testNow.Add(time.Minute) {
		t.Fatalf("deadline = %v, want now+1m", deadline)
	}
	if !r.InGrace("u1") {
		t.Fatalf("u1 should be in grace")
	}
	if r.ConnectedCount() != 1 {
		t.Fatalf("connected = %d, want 1", r.ConnectedCount())
	}

	conn, err := r.Admit("u1", testNow.Add(30*time.Second))
	if err != nil {
		t.Fatalf("readmit u1: %v", err)
	}
	if conn.Seat != 1 {
		t.Fatalf("recovered seat = %d, want 1", conn.Seat)
	}
	if r.InGrace("u1") {
		t.Fatalf("grace should be cancelled on reconnect")
	}
	if r.ConnectedCount() != 2 {
		t.Fatalf("connected = %d, want 2", r.ConnectedCount())
	}
}

func TestSeatStaysStickyAfterRemove(t *testing.T) {
	r := NewRoom("m1")
	r.Admit("u1", testNow)
	r.Admit("u2", testNow)

	r.Remove("u1")
	if r.SessionCount() != 1 {
		t.Fatalf("sessions = %d, want 1", r.SessionCount())
	}

	conn, err := r.Admit("u1", testNow)
	if err != nil {
		t.Fatalf("readmit u1: %v", err)
	}
	if conn.Seat != 1 {
		t.Fatalf("seat after remove = %d, want sticky 1", conn.Seat)
	}
}

func TestExpiredGraceInSeatOrder(t *testing.T) {
	r := NewRoom("m1")
	r.Admit("u2", testNow) // seat 1
	r.Admit("u1", testNow) // seat 2

	r.MarkDisconnected("u1", testNow, time.Minute)
	r.MarkDisconnected("u2", testNow, time.Minute)

	if got := r.ExpiredGrace(testNow.Add(30 * time.Second)); len(got) != 0 {
		t.Fatalf("expired early = %v, want none", got)
	}

	got := r.ExpiredGrace(testNow.Add(61 * time.Second))
	if len(got) != 2 || got[0] != "u2" || got[1] != "u1" {
		t.Fatalf("expired = %v, want [u2 u1] in seat order", got)
	}
}

func TestUserAtSeat(t *testing.T) {
	r := NewRoom("m1")
	r.Admit("u1", testNow)
	r.Admit("u2", testNow)

	if uid, ok := r.UserAtSeat(2); !ok || uid != "u2" {
		t.Fatalf("seat 2 = %q, want u2", uid)
	}
	if _, ok := r.UserAtSeat(3); ok {
		t.Fatalf("seat 3 should be empty")
	}
}

func TestAllowMessageThrottlesFloods(t *testing.T) {
	r := NewRoom("m1")
	r.Admit("u1", testNow)

	denied := 0
	for i := 0; i < 500; i++ {
		if !r.AllowMessage("u1") {
			denied++
		}
	}
	if denied == 0 {
		t.Fatalf("message flood was never throttled")
	}
	if r.AllowMessage("ghost") {
		t.Fatalf("unknown user should never pass the limiter")
	}
}

func TestTryRecordResultIsExactlyOnce(t *testing.T) {
	r := NewRoom("m1")
	if !r.TryRecordResult() {
		t.Fatalf("first claim should succeed")
	}
	if r.TryRecordResult() {
		t.Fatalf("second claim should fail")
	}
}
