// Package conversation drives the dialogue with the calorie calculation
// service: it owns the message log and session identifier, enforces the
// one-pending-turn rule and converts every per-turn failure into a
// user-visible bot message.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AA-Fatima/599-cal/app/client/calc"
	"github.com/AA-Fatima/599-cal/app/service/history"
	"github.com/AA-Fatima/599-cal/app/service/session"
	"github.com/samber/do"
)

// Calculator is the single network call made per turn.
type Calculator interface {
	Calculate(ctx context.Context, query string, sessionID string) (*calc.Response, error)
}

// SessionStore persists the session identifier between runs.
type SessionStore interface {
	Load() (string, bool)
	Save(sessionID string) error
	Clear() error
}

// Archiver records resolved computations. A nil Archiver disables
// archiving.
type Archiver interface {
	Save(ctx context.Context, record *history.Calculation) error
}

type Service struct {
	client   Calculator
	store    SessionStore
	archiver Archiver

	state *State
}

func New(di *do.Injector) (*Service, error) {
	return newService(
		do.MustInvoke[*calc.Client](di),
		do.MustInvoke[*session.Service](di),
		do.MustInvoke[*history.Service](di),
	), nil
}

func newService(client Calculator, store SessionStore, archiver Archiver) *Service {
	var state State
	state.messages = []Message{newMessage(OriginBot, welcomeText)}

	if sessionID, ok := store.Load(); ok {
		state.sessionID = sessionID
		slog.Debug("Resumed session", "session_id", sessionID)
	}

	return &Service{
		client:   client,
		store:    store,
		archiver: archiver,
		state:    &state,
	}
}

// SubmitTurn runs one full turn: append the user message, call the
// service, persist the returned session identifier and append exactly one
// bot message. It blocks until the turn settles and returns the bot
// message. Blank input and double submission are rejected up front with
// no message appended and no network call issued.
func (s *Service) SubmitTurn(ctx context.Context, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrBlankInput
	}

	s.state.mu.Lock()
	if s.state.pending {
		s.state.mu.Unlock()
		return nil, ErrTurnPending
	}
	s.state.pending = true
	epoch := s.state.epoch
	sessionID := s.state.sessionID
	s.state.messages = append(s.state.messages, newMessage(OriginUser, text))
	s.state.mu.Unlock()

	resp, err := s.client.Calculate(ctx, text, sessionID)

	bot, computation := settleTurn(text, resp, err)

	s.state.mu.Lock()

	if s.state.epoch != epoch {
		// Cleared mid-flight: the response belongs to a discarded
		// conversation. pending was already reset by Clear.
		s.state.mu.Unlock()
		slog.Info("Discarding response of a cleared conversation", "text", text)
		return nil, ErrStaleTurn
	}

	s.state.pending = false

	if resp != nil && resp.SessionID != "" {
		s.state.sessionID = resp.SessionID
		if saveErr := s.store.Save(resp.SessionID); saveErr != nil {
			slog.Error("Failed to persist session", "error", saveErr)
		}
	}

	s.state.messages = append(s.state.messages, bot)
	s.state.mu.Unlock()

	if computation != nil {
		s.archive(ctx, text, computation)
	}

	return &bot, nil
}

// settleTurn produces the single bot message for a finished network call,
// success or failure. No error escapes to the caller as anything but
// message text. The computation is returned alongside so the caller can
// archive it once the turn is known not to be stale.
func settleTurn(text string, resp *calc.Response, err error) (Message, *Computation) {
	if err != nil {
		slog.Warn("Turn failed", "text", text, "error", err)
		return newMessage(OriginBot, renderFailure(err)), nil
	}

	result, err := normalize(resp)
	if err != nil {
		slog.Error("Malformed calculation response", "text", text, "error", err)
		return newMessage(OriginBot, genericFailureText), nil
	}

	if result.clarification != nil {
		return newMessage(OriginBot, renderClarification(result.clarification)), nil
	}

	bot := newMessage(OriginBot, renderComputation(result.computation))
	bot.Breakdown = result.computation

	return bot, result.computation
}

func (s *Service) archive(ctx context.Context, query string, comp *Computation) {
	if s.archiver == nil {
		return
	}

	record := &history.Calculation{
		Query:         query,
		Dish:          comp.Dish,
		TotalCalories: comp.TotalCalories,
	}
	for _, line := range comp.Lines {
		record.Lines = append(record.Lines, history.Line{
			Name:     line.Name,
			WeightG:  line.WeightG,
			Calories: line.Calories,
			Added:    line.Added,
			Removed:  line.Removed,
		})
	}

	if err := s.archiver.Save(ctx, record); err != nil {
		slog.Warn("Failed to archive calculation", "dish", comp.Dish, "error", err)
	}
}

// Clear resets the conversation from any state: the log becomes the
// single welcome message and the session identifier is dropped both in
// memory and in the store. An in-flight turn keeps running but its
// response is discarded on arrival.
func (s *Service) Clear() error {
	s.state.mu.Lock()
	s.state.epoch++
	s.state.pending = false
	s.state.sessionID = ""
	s.state.messages = []Message{newMessage(OriginBot, welcomeText)}
	s.state.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}

	return nil
}

// Messages returns a snapshot of the log in display order.
func (s *Service) Messages() []Message {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	result := make([]Message, len(s.state.messages))
	copy(result, s.state.messages)

	return result
}

// SessionID returns the active session identifier, or "" when the
// service has not issued one yet.
func (s *Service) SessionID() string {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	return s.state.sessionID
}

// Pending reports whether a turn is in flight.
func (s *Service) Pending() bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	return s.state.pending
}

func (s *Service) Close() error {
	return nil
}
