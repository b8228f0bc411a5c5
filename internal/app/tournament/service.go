// Package tournament runs single-elimination tournaments: registration,
// bracket generation and round progression driven by a periodic scan.
package tournament

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pong/internal/domain"
	"pong/internal/ports"
)

const (
	notificationCategory = "tournament"

	// notifyConcurrency caps in-flight notification sends per fan-out.
	notifyConcurrency = 8
)

// Logger is the slice of the runtime logger the service uses.
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
}

// Service holds the tournament use-cases.
type Service struct {
	tournaments ports.TournamentStore
	matches     ports.MatchStore
	rooms       ports.RoomCreator
	notifier    ports.Notifier
	logger      Logger

	now func() time.Time
}

// NewService wires the tournament service. now may be nil to use time.Now.
func NewService(tournaments ports.TournamentStore, matches ports.MatchStore, rooms ports.RoomCreator, notifier ports.Notifier, logger Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		tournaments: tournaments,
		matches:     matches,
		rooms:       rooms,
		notifier:    notifier,
		logger:      logger,
		now:         now,
	}
}

// Create opens a tournament for registration. requiredPlayers must be an
// allowed bracket size.
func (s *Service) Create(ctx context.Context, name string, requiredPlayers int) (*domain.Tournament, error) {
	if !domain.ValidRequiredPlayers(requiredPlayers) {
		return nil, domain.ErrInvalidPlayerCount
	}
	t, err := s.tournaments.CreateTournament(ctx, name, requiredPlayers)
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return t, nil
}

// List returns tournaments that are still open or running.
func (s *Service) List(ctx context.Context) ([]*domain.Tournament, error) {
	return s.tournaments.ListNotCompleted(ctx)
}

// Register enters a user into an open tournament. The tournament moves to
// PENDING the moment the last required entrant registers.
func (s *Service) Register(ctx context.Context, tournamentID, userID, alias string) error {
	t, err := s.tournaments.GetTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != domain.TournamentRegistration {
		return domain.ErrRegistrationClosed
	}

	// The participant count is the real capacity gate; the status flip can
	// lag behind a registration that filled the last slot.
	participants, err := s.tournaments.ListParticipants(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	if len(participants) >= t.RequiredPlayers {
		return domain.ErrRegistrationClosed
	}

	p := &domain.Participant{
		TournamentID: tournamentID,
		UserID:       userID,
		Alias:        alias,
		RegisteredAt: s.now(),
	}
	if err := s.tournaments.AddParticipant(ctx, p); err != nil {
		return err
	}

	if len(participants)+1 >= t.RequiredPlayers {
		if err := s.tournaments.UpdateStatus(ctx, tournamentID, domain.TournamentPending); err != nil {
			return fmt.Errorf("failed to close registration for tournament %s: %w", tournamentID, err)
		}
	}
	return nil
}

// Unregister withdraws a user while registration is still open.
func (s *Service) Unregister(ctx context.Context, tournamentID, userID string) error {
	t, err := s.tournaments.GetTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != domain.TournamentRegistration {
		return domain.ErrRegistrationClosed
	}
	return s.tournaments.RemoveParticipant(ctx, tournamentID, userID)
}

// Scan advances every non-completed tournament one lifecycle step: PENDING
// tournaments announce their start and become READY, READY tournaments get
// their bracket generated and become ONGOING, and ONGOING tournaments check
// whether the current round has finished. A failing tournament is logged and
// skipped so the rest of the scan proceeds.
func (s *Service) Scan(ctx context.Context) error {
	tournaments, err := s.tournaments.ListNotCompleted(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tournaments: %w", err)
	}

	for _, t := range tournaments {
		var err error
		switch t.Status {
		case domain.TournamentPending:
			err = s.announceStart(ctx, t)
		case domain.TournamentReady:
			err = s.startTournament(ctx, t)
		case domain.TournamentOngoing:
			err = s.checkRound(ctx, t)
		}
		if err != nil {
			s.logger.Warn("tournament %s scan step failed: %v", t.ID, err)
		}
	}
	return nil
}

func (s *Service) announceStart(ctx context.Context, t *domain.Tournament) error {
	participants, err := s.tournaments.ListParticipants(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}

	text := fmt.Sprintf("Tournament %s is starting soon. Get ready!", t.Name)
	s.notifyAll(ctx, userIDs(participants), text)

	return s.tournaments.UpdateStatus(ctx, t.ID, domain.TournamentReady)
}

// startTournament seeds the full bracket: the first round pairs entrants in
// registration order, later rounds hold placeholder matches fed through
// next-match links. Every match gets a live room up front. A pass that fails
// partway leaves the tournament READY; the next scan resumes from the slots
// already persisted instead of duplicating them.
func (s *Service) startTournament(ctx context.Context, t *domain.Tournament) error {
	participants, err := s.tournaments.ListParticipants(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	if len(participants) < t.RequiredPlayers {
		return fmt.Errorf("tournament %s is READY with %d of %d participants", t.ID, len(participants), t.RequiredPlayers)
	}
	if len(participants) > t.RequiredPlayers {
		// Racing registrations can overshoot; the earliest registrations
		// hold the bracket slots.
		participants = participants[:t.RequiredPlayers]
	}

	existing, err := s.tournaments.ListByTournament(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to list bracket matches: %w", err)
	}
	seeded := make(map[[2]int]*domain.TournamentMatch, len(existing))
	for _, tm := range existing {
		seeded[[2]int{tm.Round, tm.BracketPos}] = tm
	}

	totalRounds := domain.TotalRounds(t.RequiredPlayers)
	rounds := make([][]*domain.TournamentMatch, totalRounds+1)

	for i, pair := range domain.FirstRoundPairs(userIDs(participants)) {
		tm, err := s.ensureBracketMatch(ctx, seeded, t.ID, 1, i+1, pair[0], pair[1])
		if err != nil {
			return err
		}
		rounds[1] = append(rounds[1], tm)
	}
	for round := 2; round <= totalRounds; round++ {
		for pos := 1; pos <= domain.MatchesInRound(t.RequiredPlayers, round); pos++ {
			tm, err := s.ensureBracketMatch(ctx, seeded, t.ID, round, pos, "", "")
			if err != nil {
				return err
			}
			rounds[round] = append(rounds[round], tm)
		}
	}

	for round := 1; round < totalRounds; round++ {
		for _, tm := range rounds[round] {
			next := rounds[round+1][domain.NextBracketPos(tm.BracketPos)-1]
			if err := s.tournaments.SetNextMatch(ctx, tm.ID, next.ID); err != nil {
				return fmt.Errorf("failed to link bracket match %s: %w", tm.ID, err)
			}
		}
	}

	if err := s.tournaments.UpdateStatus(ctx, t.ID, domain.TournamentOngoing); err != nil {
		return fmt.Errorf("failed to mark tournament %s ongoing: %w", t.ID, err)
	}
	if err := s.tournaments.UpdateCurrentRound(ctx, t.ID, 1); err != nil {
		return fmt.Errorf("failed to set round for tournament %s: %w", t.ID, err)
	}
	s.logger.Info("tournament %s bracket generated, %d rounds", t.ID, totalRounds)
	return nil
}

// ensureBracketMatch reuses the bracket match already persisted at the slot,
// if any, so generation stays idempotent across retries.
func (s *Service) ensureBracketMatch(ctx context.Context, seeded map[[2]int]*domain.TournamentMatch, tournamentID string, round, bracketPos int, player1ID, player2ID string) (*domain.TournamentMatch, error) {
	if tm, ok := seeded[[2]int{round, bracketPos}]; ok {
		return tm, nil
	}
	return s.createBracketMatch(ctx, tournamentID, round, bracketPos, player1ID, player2ID)
}

func (s *Service) createBracketMatch(ctx context.Context, tournamentID string, round, bracketPos int, player1ID, player2ID string) (*domain.TournamentMatch, error) {
	match, err := s.matches.CreateMatch(ctx, player1ID, player2ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create bracket match: %w", err)
	}
	roomID, err := s.rooms.CreateRoom(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("failed to create room for match %s: %w", match.ID, err)
	}
	if err := s.matches.BindRoom(ctx, match.ID, roomID); err != nil {
		return nil, fmt.Errorf("failed to bind room to match %s: %w", match.ID, err)
	}

	tm := &domain.TournamentMatch{
		TournamentID: tournamentID,
		MatchID:      match.ID,
		Round:        round,
		BracketPos:   bracketPos,
	}
	tm, err = s.tournaments.CreateTournamentMatch(ctx, tm)
	if err != nil {
		return nil, fmt.Errorf("failed to persist bracket match: %w", err)
	}
	return tm, nil
}

// checkRound inspects the current round; once every match in it has
// completed, winners advance into their next-match slots and the round
// counter moves forward, or the tournament completes after the final.
func (s *Service) checkRound(ctx context.Context, t *domain.Tournament) error {
	tms, err := s.tournaments.ListByRound(ctx, t.ID, t.CurrentRound)
	if err != nil {
		return fmt.Errorf("failed to list round %d: %w", t.CurrentRound, err)
	}
	if len(tms) == 0 {
		return fmt.Errorf("tournament %s has no matches in round %d", t.ID, t.CurrentRound)
	}

	results := make(map[string]*domain.Match, len(tms))
	for _, tm := range tms {
		match, err := s.matches.GetMatch(ctx, tm.MatchID)
		if err != nil {
			return fmt.Errorf("failed to load match %s: %w", tm.MatchID, err)
		}
		if match.Status != domain.MatchCompleted {
			return nil
		}
		results[tm.ID] = match
	}

	for _, tm := range tms {
		winnerID := results[tm.ID].WinnerID
		if tm.NextMatchID == "" {
			return s.completeTournament(ctx, t, winnerID)
		}
		next, err := s.tournaments.GetTournamentMatch(ctx, tm.NextMatchID)
		if err != nil {
			return fmt.Errorf("failed to load next bracket match %s: %w", tm.NextMatchID, err)
		}
		if err := s.matches.SetPlayerSlot(ctx, next.MatchID, domain.WinnerSlot(tm.BracketPos), winnerID); err != nil {
			return fmt.Errorf("failed to advance winner of match %s: %w", tm.MatchID, err)
		}
	}

	if err := s.tournaments.UpdateCurrentRound(ctx, t.ID, t.CurrentRound+1); err != nil {
		return fmt.Errorf("failed to advance tournament %s round: %w", t.ID, err)
	}
	s.logger.Info("tournament %s advanced to round %d", t.ID, t.CurrentRound+1)
	return nil
}

func (s *Service) completeTournament(ctx context.Context, t *domain.Tournament, winnerID string) error {
	if err := s.tournaments.SetWinner(ctx, t.ID, winnerID); err != nil {
		return fmt.Errorf("failed to set tournament winner: %w", err)
	}
	if err := s.tournaments.UpdateStatus(ctx, t.ID, domain.TournamentCompleted); err != nil {
		return fmt.Errorf("failed to complete tournament %s: %w", t.ID, err)
	}

	participants, err := s.tournaments.ListParticipants(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	var losers []string
	for _, p := range participants {
		if p.UserID != winnerID {
			losers = append(losers, p.UserID)
		}
	}
	s.notifyAll(ctx, []string{winnerID}, fmt.Sprintf("Congratulations! You won tournament %s.", t.Name))
	s.notifyAll(ctx, losers, fmt.Sprintf("Tournament %s has ended. Thanks for playing!", t.Name))

	s.logger.Info("tournament %s completed, winner %s", t.ID, winnerID)
	return nil
}

// notifyAll fans a system message out to every recipient concurrently.
// Failures are logged per recipient and never abort the caller.
func (s *Service) notifyAll(ctx context.Context, recipients []string, text string) {
	var g errgroup.Group
	g.SetLimit(notifyConcurrency)
	for _, userID := range recipients {
		userID := userID
		g.Go(func() error {
			if err := s.notifier.SendSystemMessage(ctx, userID, text, notificationCategory); err != nil {
				s.logger.Warn("failed to notify user %s: %v", userID, err)
			}
			return nil
		})
	}
	g.Wait()
}

func userIDs(participants []*domain.Participant) []string {
	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	return ids
}
