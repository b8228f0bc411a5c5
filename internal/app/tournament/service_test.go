package tournament

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pong/internal/domain"
)

// fakeTournamentStore is an in-memory ports.TournamentStore.
type fakeTournamentStore struct {
	tournaments  map[string]*domain.Tournament
	participants map[string]*domain.Participant
	brackets     map[string]*domain.TournamentMatch
	nextID       int
}

func newFakeTournamentStore() *fakeTournamentStore {
	return &fakeTournamentStore{
		tournaments:  make(map[string]*domain.Tournament),
		participants: make(map[string]*domain.Participant),
		brackets:     make(map[string]*domain.TournamentMatch),
	}
}

func (f *fakeTournamentStore) CreateTournament(ctx context.Context, name string, requiredPlayers int) (*domain.Tournament, error) {
	f.nextID++
	t := &domain.Tournament{
		ID:              fmt.Sprintf("t-%d", f.nextID),
		Name:            name,
		RequiredPlayers: requiredPlayers,
		Status:          domain.TournamentRegistration,
		CreatedAt:       time.Now(),
	}
	f.tournaments[t.ID] = t
	return t, nil
}

func (f *fakeTournamentStore) GetTournament(ctx context.Context, id string) (*domain.Tournament, error) {
	t, ok := f.tournaments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTournamentStore) ListNotCompleted(ctx context.Context) ([]*domain.Tournament, error) {
	var out []*domain.Tournament
	for _, t := range f.tournaments {
		if t.Status != domain.TournamentCompleted {
			copied := *t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTournamentStore) UpdateStatus(ctx context.Context, id string, status domain.TournamentStatus) error {
	f.tournaments[id].Status = status
	return nil
}

func (f *fakeTournamentStore) UpdateCurrentRound(ctx context.Context, id string, round int) error {
	f.tournaments[id].CurrentRound = round
	return nil
}

func (f *fakeTournamentStore) SetWinner(ctx context.Context, id, winnerID string) error {
	f.tournaments[id].WinnerID = winnerID
	return nil
}

func (f *fakeTournamentStore) AddParticipant(ctx context.Context, p *domain.Participant) error {
	key := p.TournamentID + ":" + p.UserID
	if _, ok := f.participants[key]; ok {
		return domain.ErrAlreadyRegistered
	}
	f.participants[key] = p
	return nil
}

func (f *fakeTournamentStore) RemoveParticipant(ctx context.Context, tournamentID, userID string) error {
	delete(f.participants, tournamentID+":"+userID)
	return nil
}

func (f *fakeTournamentStore) ListParticipants(ctx context.Context, tournamentID string) ([]*domain.Participant, error) {
	var out []*domain.Participant
	for _, p := range f.participants {
		if p.TournamentID == tournamentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (f *fakeTournamentStore) CreateTournamentMatch(ctx context.Context, tm *domain.TournamentMatch) (*domain.TournamentMatch, error) {
	if tm.ID == "" {
		f.nextID++
		tm.ID = fmt.Sprintf("tm-%d", f.nextID)
	}
	f.brackets[tm.ID] = tm
	return tm, nil
}

func (f *fakeTournamentStore) GetTournamentMatch(ctx context.Context, id string) (*domain.TournamentMatch, error) {
	tm, ok := f.brackets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tm, nil
}

func (f *fakeTournamentStore) ListByTournament(ctx context.Context, tournamentID string) ([]*domain.TournamentMatch, error) {
	var out []*domain.TournamentMatch
	for _, tm := range f.brackets {
		if tm.TournamentID == tournamentID {
			out = append(out, tm)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].BracketPos < out[j].BracketPos
	})
	return out, nil
}

func (f *fakeTournamentStore) ListByRound(ctx context.Context, tournamentID string, round int) ([]*domain.TournamentMatch, error) {
	all, _ := f.ListByTournament(ctx, tournamentID)
	var out []*domain.TournamentMatch
	for _, tm := range all {
		if tm.Round == round {
			out = append(out, tm)
		}
	}
	return out, nil
}

func (f *fakeTournamentStore) SetNextMatch(ctx context.Context, tmID, nextMatchID string) error {
	f.brackets[tmID].NextMatchID = nextMatchID
	return nil
}

// fakeMatchStore is an in-memory ports.MatchStore.
type fakeMatchStore struct {
	matches map[string]*domain.Match
	nextID  int
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{matches: make(map[string]*domain.Match)}
}

func (f *fakeMatchStore) CreateMatch(ctx context.Context, player1ID, player2ID string) (*domain.Match, error) {
	f.nextID++
	m := &domain.Match{
		ID:        fmt.Sprintf("match-%d", f.nextID),
		Player1ID: player1ID,
		Player2ID: player2ID,
		Status:    domain.MatchPending,
		CreatedAt: time.Now(),
	}
	f.matches[m.ID] = m
	return m, nil
}

func (f *fakeMatchStore) GetMatch(ctx context.Context, id string) (*domain.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMatchStore) SetPlayerSlot(ctx context.Context, id string, slot int, userID string) error {
	m, err := f.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	if slot == 1 {
		m.Player1ID = userID
	} else {
		m.Player2ID = userID
	}
	return nil
}

func (f *fakeMatchStore) BindRoom(ctx context.Context, id, roomID string) error {
	m, err := f.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	m.RoomID = roomID
	return nil
}

func (f *fakeMatchStore) MarkOngoing(ctx context.Context, id string) error {
	f.matches[id].Status = domain.MatchOngoing
	return nil
}

func (f *fakeMatchStore) CompleteMatch(ctx context.Context, id, winnerID string) error {
	f.matches[id].Status = domain.MatchCompleted
	f.matches[id].WinnerID = winnerID
	return nil
}

func (f *fakeMatchStore) FindPendingByPlayer(ctx context.Context, userID string) ([]*domain.Match, error) {
	return nil, nil
}

type fakeRoomCreator struct {
	created int
	failAt  int // when > 0, the failAt-th creation fails once
}

func (f *fakeRoomCreator) CreateRoom(ctx context.Context, match *domain.Match) (string, error) {
	f.created++
	if f.failAt > 0 && f.created == f.failAt {
		f.failAt = 0
		return "", fmt.Errorf("room provisioning unavailable")
	}
	return fmt.Sprintf("room-%d", f.created), nil
}

// fakeNotifier records delivered messages per user.
type fakeNotifier struct {
	mu       sync.Mutex
	messages map[string][]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{messages: make(map[string][]string)}
}

func (f *fakeNotifier) SendSystemMessage(ctx context.Context, userID, text, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[userID] = append(f.messages[userID], text)
	return nil
}

type testLogger struct{}

func (testLogger) Info(string, ...interface{}) {}
func (testLogger) Warn(string, ...interface{}) {}

type fixture struct {
	svc      *Service
	store    *fakeTournamentStore
	matches  *fakeMatchStore
	rooms    *fakeRoomCreator
	notifier *fakeNotifier
	clock    time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store:    newFakeTournamentStore(),
		matches:  newFakeMatchStore(),
		rooms:    &fakeRoomCreator{},
		notifier: newFakeNotifier(),
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.matches, f.rooms, f.notifier, testLogger{}, func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	})
	return f
}

func (f *fixture) register(t *testing.T, tournamentID string, users ...string) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, f.svc.Register(context.Background(), tournamentID, u, "alias-"+u))
	}
}

func (f *fixture) completeRound(t *testing.T, tournamentID string, round int, winners map[int]string) {
	t.Helper()
	ctx := context.Background()
	tms, err := f.store.ListByRound(ctx, tournamentID, round)
	require.NoError(t, err)
	for _, tm := range tms {
		winner, ok := winners[tm.BracketPos]
		require.True(t, ok, "missing winner for bracket pos %d", tm.BracketPos)
		require.NoError(t, f.matches.CompleteMatch(ctx, tm.MatchID, winner))
	}
}

func TestCreateValidatesPlayerCount(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), "bad", 6)
	require.ErrorIs(t, err, domain.ErrInvalidPlayerCount)

	tournament, err := f.svc.Create(context.Background(), "ok", 8)
	require.NoError(t, err)
	require.Equal(t, domain.TournamentRegistration, tournament.Status)
}

func TestRegistrationClosesAtCapacity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tournament, err := f.svc.Create(ctx, "cup", 4)
	require.NoError(t, err)

	f.register(t, tournament.ID, "u1", "u2", "u3")
	got, err := f.store.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TournamentRegistration, got.Status)

	require.ErrorIs(t, f.svc.Register(ctx, tournament.ID, "u1", ""), domain.ErrAlreadyRegistered)

	f.register(t, tournament.ID, "u4")
	got, err = f.store.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TournamentPending, got.Status)

	require.ErrorIs(t, f.svc.Register(ctx, tournament.ID, "u5", ""), domain.ErrRegistrationClosed)
}

func TestRegisterRejectsWhenParticipantsAtCapacity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tournament, err := f.svc.Create(ctx, "cup", 4)
	require.NoError(t, err)

	// Fill the slots directly so the status has not flipped off
	// REGISTRATION yet.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, u := range []string{"u1", "u2", "u3", "u4"} {
		require.NoError(t, f.store.AddParticipant(ctx, &domain.Participant{
			TournamentID: tournament.ID,
			UserID:       u,
			RegisteredAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	require.ErrorIs(t, f.svc.Register(ctx, tournament.ID, "u5", ""), domain.ErrRegistrationClosed)
	participants, err := f.store.ListParticipants(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, participants, 4)
}

func TestUnregisterOnlyDuringRegistration(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tournament, err := f.svc.Create(ctx, "cup", 4)
	require.NoError(t, err)

	f.register(t, tournament.ID, "u1", "u2")
	require.NoError(t, f.svc.Unregister(ctx, tournament.ID, "u2"))
	participants, err := f.store.ListParticipants(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)

	f.register(t, tournament.ID, "u2", "u3", "u4")
	require.ErrorIs(t, f.svc.Unregister(ctx, tournament.ID, "u1"), domain.ErrRegistrationClosed)
}

func TestScanAnnouncesThenGeneratesBracket(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tournament, err := f.svc.Create(ctx, "cup", 8)
	require.NoError(t, err)
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	f.register(t, tournament.ID, users...)

	// PENDING -> READY with a start announcement for everyone.
	require.NoError(t, f.svc.Scan(ctx))
	got, err := f.store.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TournamentReady, got.Status)
	for _, u := range users {
		require.Len(t, f.notifier.messages[u], 1)
	}

	// READY -> ONGOING with the full bracket seeded.
	require.NoError(t, f.svc.Scan(ctx))
	got, err = f.store.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TournamentOngoing, got.Status)
	require.Equal(t, 1, got.CurrentRound)

	tms, err := f.store.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, tms, 7)

	round1, _ := f.store.ListByRound(ctx, tournament.ID, 1)
	require.Len(t, round1, 4)
	first, err := f.matches.GetMatch(ctx, round1[0].MatchID)
	require.NoError(t, err)
	require.Equal(t, "u1", first.Player1ID)
	require.Equal(t, "u2", first.Player2ID)
	require.NotEmpty(t, first.RoomID)

	round2, _ := f.store.ListByRound(ctx, tournament.ID, 2)
	require.Len(t, round2, 2)
	for _, tm := range round2 {
		placeholder, err := f.matches.GetMatch(ctx, tm.MatchID)
		require.NoError(t, err)
		require.Empty(t, placeholder.Player1ID)
		require.Empty(t, placeholder.Player2ID)
	}

	// Positions 1 and 2 of round 1 both feed position 1 of round 2.
	require.Equal(t, round2[0].ID, round1[0].NextMatchID)
	require.Equal(t, round2[0].ID, round1[1].NextMatchID)
	require.Equal(t, round2[1].ID, round1[2].NextMatchID)
	require.Equal(t, round2[1].ID, round1[3].NextMatchID)

	final, _ := f.store.ListByRound(ctx, tournament.ID, 3)
	require.Len(t, final, 1)
	require.Empty(t, final[0].NextMatchID)
}

func TestBracketGenerationResumesAfterFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tournament, err := f.svc.Create(ctx, "cup", 4)
	require.NoError(t, err)
	f.register(t, tournament.ID, "u1", "u2", "u3", "u4")

	require.NoError(t, f.svc.Scan(ctx)) // announce

	// Room provisioning dies on the second bracket match; the scan logs the
	// failure and leaves the tournament READY.
	f.rooms.failAt = 2
	require.NoError(t, f.svc.Scan(ctx))
	got, err := f.store.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TournamentReady, got.Status)
	partial, err := f.store.ListByRound(ctx, tournament.ID, 1)
	require.NoError(t, err)
	require.Len(t, partial, 1)

	// The rescan picks up the persisted slot instead of regenerating it.
	require.NoError(t, f.svc.Scan(ctx))
	got, err = f.store.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TournamentOngoing, got.Status)

	round1, err := f.store.ListByRound(ctx, tournament.ID, 1)
	require.NoError(t, err)
	require.Len(t, round1, 2)
	all, err := f.store.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)

	first, err := f.matches.GetMatch(ctx, round1[0].MatchID)
	require.NoError(t, err)
	require.Equal(t, "u1", first.Player1ID)
	require.Equal(t, "u2", first.Player2ID)
	second, err := f.matches.GetMatch(ctx, round1[1].MatchID)
	require.NoError(t, err)
	require.Equal(t, "u3", second.Player1ID)
	require.Equal(t, "u4", second.Player2ID)
}

func TestScanAdvancesRoundsAndCompletes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tournament, err := f.svc.Create(ctx, "cup", 8)
	require.NoError(t, err)
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	f.register(t, tournament.ID, users...)

	require.NoError(t, f.svc.Scan(ctx)) // announce
	require.NoError(t, f.svc.Scan(ctx)) // bracket

	// No results yet: the scan is a no-op.
	require.NoError(t, f.svc.Scan(ctx))
	got, _ := f.store.GetTournament(ctx, tournament.ID)
	require.Equal(t, 1, got.CurrentRound)

	// Round 1: odd positions feed slot 1, even positions slot 2.
	f.completeRound(t, tournament.ID, 1, map[int]string{1: "u1", 2: "u3", 3: "u5", 4: "u7"})
	require.NoError(t, f.svc.Scan(ctx))
	got, _ = f.store.GetTournament(ctx, tournament.ID)
	require.Equal(t, 2, got.CurrentRound)

	round2, _ := f.store.ListByRound(ctx, tournament.ID, 2)
	semi1, _ := f.matches.GetMatch(ctx, round2[0].MatchID)
	require.Equal(t, "u1", semi1.Player1ID)
	require.Equal(t, "u3", semi1.Player2ID)
	semi2, _ := f.matches.GetMatch(ctx, round2[1].MatchID)
	require.Equal(t, "u5", semi2.Player1ID)
	require.Equal(t, "u7", semi2.Player2ID)

	f.completeRound(t, tournament.ID, 2, map[int]string{1: "u1", 2: "u5"})
	require.NoError(t, f.svc.Scan(ctx))
	got, _ = f.store.GetTournament(ctx, tournament.ID)
	require.Equal(t, 3, got.CurrentRound)

	final, _ := f.store.ListByRound(ctx, tournament.ID, 3)
	finalMatch, _ := f.matches.GetMatch(ctx, final[0].MatchID)
	require.Equal(t, "u1", finalMatch.Player1ID)
	require.Equal(t, "u5", finalMatch.Player2ID)

	f.completeRound(t, tournament.ID, 3, map[int]string{1: "u5"})
	require.NoError(t, f.svc.Scan(ctx))
	got, _ = f.store.GetTournament(ctx, tournament.ID)
	require.Equal(t, domain.TournamentCompleted, got.Status)
	require.Equal(t, "u5", got.WinnerID)

	// Winner and losers get distinct closing messages.
	winnerMsgs := f.notifier.messages["u5"]
	require.Len(t, winnerMsgs, 2)
	require.Contains(t, winnerMsgs[1], "won")
	loserMsgs := f.notifier.messages["u1"]
	require.Len(t, loserMsgs, 2)
	require.NotContains(t, loserMsgs[1], "won")

	// Completed tournaments drop out of the scan.
	require.NoError(t, f.svc.Scan(ctx))
	listed, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestRegisterUnknownTournament(t *testing.T) {
	f := newFixture()
	err := f.svc.Register(context.Background(), "missing", "u1", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
