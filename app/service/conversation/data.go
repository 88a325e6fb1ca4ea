package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const welcomeText = `Hi! Ask me about calories, e.g. "200g rice" or "calories in fajita".`

var (
	// ErrBlankInput rejects input that trims to nothing. No message is
	// appended and no request is issued.
	ErrBlankInput = errors.New("input must not be blank")

	// ErrTurnPending rejects a submission while another turn is still in
	// flight. At most one turn may be pending per conversation.
	ErrTurnPending = errors.New("a turn is already pending")

	// ErrStaleTurn reports that the conversation was cleared while the
	// turn was in flight; its response has been discarded.
	ErrStaleTurn = errors.New("conversation was cleared while the turn was in flight")
)

type Origin string

const (
	OriginUser Origin = "user"
	OriginBot  Origin = "bot"
)

// Message is one immutable entry of the conversation log. Breakdown is
// set only on resolved computation turns.
type Message struct {
	ID        string
	Origin    Origin
	Text      string
	Breakdown *Computation
	Timestamp time.Time
}

func newMessage(origin Origin, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Origin:    origin,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// Clarification is a server request for more information. It does not
// advance the computation; the next turn is expected to answer it.
type Clarification struct {
	Prompt      string
	Suggestions []string
}

// Computation is a resolved calorie breakdown. TotalCalories is the
// server's figure, taken verbatim.
type Computation struct {
	Dish          string
	Lines         []Line
	TotalCalories float64
	Notes         []string
}

type Line struct {
	Name     string
	WeightG  float64
	Calories float64
	Added    bool
	Removed  bool
}

// State owns the message log, the session identifier and the turn
// lifecycle. The epoch counter marks in-flight turns stale across a
// mid-flight Clear.
type State struct {
	mu sync.Mutex

	messages  []Message
	sessionID string
	pending   bool
	epoch     uint64
}
