package mafia

import "time"

// EventType identifies the type of a game event.
type EventType string

// Lifecycle events.
const (
	// EventGameCreated records roster creation at setup.
	EventGameCreated EventType = "game.created"
	// EventRoleAssigned records a single role deal (observer-only knowledge).
	EventRoleAssigned EventType = "game.role_assigned"
	// EventPhaseChanged records a phase machine transition.
	EventPhaseChanged EventType = "game.phase_changed"
	// EventGameEnded records the winner.
	EventGameEnded EventType = "game.ended"
)

// Night events.
const (
	// EventNightSubmitted records an accepted night action.
	EventNightSubmitted EventType = "night.submitted"
	// EventNightResolved records the outcome of night resolution.
	EventNightResolved EventType = "night.resolved"
	// EventInvestigated records a detective result (observer-only knowledge).
	EventInvestigated EventType = "night.investigated"
)

// Day events.
const (
	// EventMessagePosted records a public discussion message.
	EventMessagePosted EventType = "day.message_posted"
	// EventDefensePosted records the accused's defense statement.
	EventDefensePosted EventType = "day.defense_posted"
	// EventVoteRecorded records an accepted day vote.
	EventVoteRecorded EventType = "day.vote_recorded"
	// EventVoteResolved records the accusation outcome of the voting sub-phase.
	EventVoteResolved EventType = "day.vote_resolved"
	// EventConfirmRecorded records a confirmation vote after defense.
	EventConfirmRecorded EventType = "day.confirm_recorded"
	// EventDayResolved records the day elimination outcome.
	EventDayResolved EventType = "day.resolved"
)

// Elimination and failure events.
const (
	// EventPlayerEliminated records an alive→dead transition.
	EventPlayerEliminated EventType = "player.eliminated"
	// EventDecisionRejected records a structurally invalid oracle decision.
	EventDecisionRejected EventType = "decision.rejected"
	// EventDecisionAbstained records a decision point resolved as abstention.
	EventDecisionAbstained EventType = "decision.abstained"
)

// Event is one entry of the append-only audit stream. Exactly one event is
// emitted per state mutation, after the mutation succeeds.
type Event struct {
	Seq    uint64    `json:"seq"`
	Round  int       `json:"round"`
	Phase  Phase     `json:"phase"`
	Type   EventType `json:"type"`
	Actor  string    `json:"actor,omitempty"`
	Target string    `json:"target,omitempty"`
	Kind   string    `json:"kind,omitempty"`   // night action kind or role name
	Text   string    `json:"text,omitempty"`   // message body
	Reason string    `json:"reason,omitempty"` // decision reason or rejection cause
	Flag   bool      `json:"flag,omitempty"`   // saved / affirm / confirmed
	Time   time.Time `json:"time"`
}

// Sink consumes the event stream. Implementations must not block the game
// flow; slow consumers should buffer or drop on their side.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

type multiSink []Sink

func (m multiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// MultiSink fans one event stream out to several sinks in order.
func MultiSink(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// NopSink discards all events.
func NopSink() Sink { return nopSink{} }
