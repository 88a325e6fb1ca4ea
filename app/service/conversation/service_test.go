package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AA-Fatima/599-cal/app/client/calc"
	"github.com/AA-Fatima/599-cal/app/service/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCalculator struct {
	mu    sync.Mutex
	calls []fakeCall
	fn    func(ctx context.Context, query, sessionID string) (*calc.Response, error)
}

type fakeCall struct {
	query     string
	sessionID string
}

func (f *fakeCalculator) Calculate(ctx context.Context, query, sessionID string) (*calc.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{query: query, sessionID: sessionID})
	f.mu.Unlock()

	return f.fn(ctx, query, sessionID)
}

func (f *fakeCalculator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

type fakeStore struct {
	mu        sync.Mutex
	sessionID string
	stored    bool
}

func (f *fakeStore) Load() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sessionID, f.stored
}

func (f *fakeStore) Save(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessionID = sessionID
	f.stored = true

	return nil
}

func (f *fakeStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessionID = ""
	f.stored = false

	return nil
}

type fakeArchiver struct {
	mu    sync.Mutex
	saved []*history.Calculation
}

func (f *fakeArchiver) Save(_ context.Context, record *history.Calculation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saved = append(f.saved, record)

	return nil
}

func resolvedRiceResponse() *calc.Response {
	return &calc.Response{
		SessionID: "sess-1",
		Dish:      "rice",
		Ingredients: []calc.IngredientLine{
			{Name: "rice", WeightG: 200, Calories: 260},
		},
		TotalCalories: 260,
	}
}

func TestNewConversationStartsWithWelcome(t *testing.T) {
	svc := newService(&fakeCalculator{}, &fakeStore{}, nil)

	messages := svc.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, OriginBot, messages[0].Origin)
	assert.Equal(t, welcomeText, messages[0].Text)
	assert.Empty(t, svc.SessionID())
}

func TestSubmitTurnResolved(t *testing.T) {
	client := &fakeCalculator{fn: func(_ context.Context, _, _ string) (*calc.Response, error) {
		return resolvedRiceResponse(), nil
	}}
	store := &fakeStore{}
	archiver := &fakeArchiver{}
	svc := newService(client, store, archiver)

	bot, err := svc.SubmitTurn(context.Background(), "200g rice")
	require.NoError(t, err)

	// no prior session: the request carries none
	require.Len(t, client.calls, 1)
	assert.Empty(t, client.calls[0].sessionID)
	assert.Equal(t, "200g rice", client.calls[0].query)

	messages := svc.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, OriginUser, messages[1].Origin)
	assert.Equal(t, "200g rice", messages[1].Text)
	assert.Equal(t, OriginBot, messages[2].Origin)
	assert.Equal(t, bot.ID, messages[2].ID)

	assert.Contains(t, bot.Text, "Dish: rice")
	assert.Contains(t, bot.Text, "Total: 260 kcal")
	assert.Contains(t, bot.Text, "rice: 200g → 260 kcal")

	require.NotNil(t, bot.Breakdown)
	assert.Equal(t, float64(260), bot.Breakdown.TotalCalories)

	assert.Equal(t, "sess-1", svc.SessionID())
	stored, ok := store.Load()
	assert.True(t, ok)
	assert.Equal(t, "sess-1", stored)

	require.Len(t, archiver.saved, 1)
	assert.Equal(t, "rice", archiver.saved[0].Dish)
	assert.Equal(t, "200g rice", archiver.saved[0].Query)
}

func TestSubmitTurnClarificationPersistsSession(t *testing.T) {
	client := &fakeCalculator{fn: func(_ context.Context, _, _ string) (*calc.Response, error) {
		return &calc.Response{
			SessionID:            "sess-2",
			NeedsClarification:   true,
			Message:              "Which type of fajita?",
			SuggestedIngredients: []string{"chicken", "beef"},
		}, nil
	}}
	store := &fakeStore{}
	archiver := &fakeArchiver{}
	svc := newService(client, store, archiver)

	bot, err := svc.SubmitTurn(context.Background(), "fajita")
	require.NoError(t, err)

	assert.Contains(t, bot.Text, "Which type of fajita?")
	assert.Contains(t, bot.Text, "chicken")
	assert.Contains(t, bot.Text, "beef")
	assert.Nil(t, bot.Breakdown)

	// the session is tracked as soon as the service starts the dialogue,
	// not only on a final answer
	stored, ok := store.Load()
	assert.True(t, ok)
	assert.Equal(t, "sess-2", stored)

	assert.Empty(t, archiver.saved)
}

func TestSubmitTurnCarriesExistingSession(t *testing.T) {
	client := &fakeCalculator{fn: func(_ context.Context, _, _ string) (*calc.Response, error) {
		return resolvedRiceResponse(), nil
	}}
	store := &fakeStore{sessionID: "sess-old", stored: true}
	svc := newService(client, store, nil)

	_, err := svc.SubmitTurn(context.Background(), "chicken")
	require.NoError(t, err)

	require.Len(t, client.calls, 1)
	assert.Equal(t, "sess-old", client.calls[0].sessionID)
}

func TestSubmitTurnTransportFailure(t *testing.T) {
	client := &fakeCalculator{fn: func(_ context.Context, _, _ string) (*calc.Response, error) {
		return nil, &calc.TransportError{}
	}}
	svc := newService(client, &fakeStore{}, nil)

	bot, err := svc.SubmitTurn(context.Background(), "200g rice")
	require.NoError(t, err)
	assert.Equal(t, genericFailureText, bot.Text)

	// the user message from the failed turn stays in the log
	messages := svc.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, OriginUser, messages[1].Origin)

	// the machine is idle again and accepts a new submission
	assert.False(t, svc.Pending())
	_, err = svc.SubmitTurn(context.Background(), "200g rice")
	require.NoError(t, err)
	assert.Equal(t, 2, client.callCount())
}

func TestSubmitTurnSurfacesServerDetail(t *testing.T) {
	client := &fakeCalculator{fn: func(_ context.Context, _, _ string) (*calc.Response, error) {
		return nil, &calc.TransportError{StatusCode: 400, Detail: "Could not understand your query"}
	}}
	svc := newService(client, &fakeStore{}, nil)

	bot, err := svc.SubmitTurn(context.Background(), "gibberish")
	require.NoError(t, err)
	assert.Contains(t, bot.Text, "Could not understand your query")
}

func TestSubmitTurnProtocolViolation(t *testing.T) {
	client := &fakeCalculator{fn: func(_ context.Context, _, _ string) (*calc.Response, error) {
		// neither a clarification nor a dish
		return &calc.Response{SessionID: "sess-3"}, nil
	}}
	store := &fakeStore{}
	svc := newService(client, store, nil)

	bot, err := svc.SubmitTurn(context.Background(), "rice")
	require.NoError(t, err)
	assert.Equal(t, genericFailureText, bot.Text)

	require.Len(t, svc.Messages(), 3)
	assert.False(t, svc.Pending())
}

func TestSubmitTurnRejectsBlankInput(t *testing.T) {
	client := &fakeCalculator{fn: func(_ context.Context, _, _ string) (*calc.Response, error) {
		return resolvedRiceResponse(), nil
	}}
	svc := newService(client, &fakeStore{}, nil)

	for _, input := range []string{"", "   ", "\t\n"} {
		_, err := svc.SubmitTurn(context.Background(), input)
		require.ErrorIs(t, err, ErrBlankInput)
	}

	assert.Len(t, svc.Messages(), 1)
	assert.Zero(t, client.callCount())
}

func TestSubmitTurnRejectsDoubleSubmission(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	client := &fakeCalculator{fn: func(_ context.Context, _, _ string) (*calc.Response, error) {
		close(started)
		<-release
		return resolvedRiceResponse(), nil
	}}
	svc := newService(client, &fakeStore{}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.SubmitTurn(context.Background(), "200g rice")
	}()

	<-started
	logLenBefore := len(svc.Messages())

	_, err := svc.SubmitTurn(context.Background(), "300g rice")
	require.ErrorIs(t, err, ErrTurnPending)

	assert.Len(t, svc.Messages(), logLenBefore)
	assert.Equal(t, 1, client.callCount())

	close(release)
	<-done

	assert.Len(t, svc.Messages(), 3)
}

func TestClearResetsEverything(t *testing.T) {
	client := &fakeCalculator{fn: func(_ context.Context, _, _ string) (*calc.Response, error) {
		return resolvedRiceResponse(), nil
	}}
	store := &fakeStore{}
	svc := newService(client, store, nil)

	_, err := svc.SubmitTurn(context.Background(), "200g rice")
	require.NoError(t, err)
	require.Equal(t, "sess-1", svc.SessionID())

	require.NoError(t, svc.Clear())

	messages := svc.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, welcomeText, messages[0].Text)
	assert.Empty(t, svc.SessionID())

	_, ok := store.Load()
	assert.False(t, ok)

	// the next turn starts a fresh dialogue
	_, err = svc.SubmitTurn(context.Background(), "fajita")
	require.NoError(t, err)
	assert.Empty(t, client.calls[1].sessionID)
}

func TestClearDiscardsInFlightTurn(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	// the fake is called again for the post-Clear turn; only signal once
	var startedOnce sync.Once
	client := &fakeCalculator{fn: func(_ context.Context, _, _ string) (*calc.Response, error) {
		startedOnce.Do(func() { close(started) })
		<-release
		return resolvedRiceResponse(), nil
	}}
	store := &fakeStore{}
	svc := newService(client, store, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.SubmitTurn(context.Background(), "200g rice")
		errCh <- err
	}()

	<-started
	require.NoError(t, svc.Clear())
	close(release)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrStaleTurn)
	case <-time.After(time.Second):
		t.Fatal("turn did not settle")
	}

	// the stale response left no trace: no bot message, no session
	messages := svc.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, welcomeText, messages[0].Text)
	assert.Empty(t, svc.SessionID())
	_, ok := store.Load()
	assert.False(t, ok)

	// and the machine accepts new turns
	_, err := svc.SubmitTurn(context.Background(), "300g rice")
	require.NoError(t, err)
}

func TestExactlyOneBotMessagePerTurn(t *testing.T) {
	responses := []func() (*calc.Response, error){
		func() (*calc.Response, error) { return resolvedRiceResponse(), nil },
		func() (*calc.Response, error) {
			return &calc.Response{SessionID: "s", NeedsClarification: true, Message: "Which?"}, nil
		},
		func() (*calc.Response, error) { return nil, errors.New("boom") },
		func() (*calc.Response, error) { return &calc.Response{}, nil },
	}

	i := 0
	client := &fakeCalculator{fn: func(_ context.Context, _, _ string) (*calc.Response, error) {
		resp, err := responses[i]()
		i++
		return resp, err
	}}
	svc := newService(client, &fakeStore{}, nil)

	for turn := range responses {
		_, err := svc.SubmitTurn(context.Background(), "query")
		require.NoError(t, err)

		// welcome + (user, bot) per turn
		assert.Len(t, svc.Messages(), 1+2*(turn+1))
	}
}
