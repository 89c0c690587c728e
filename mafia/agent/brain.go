package agent

import (
	"context"

	"mafia-lite/mafia"
)

// RequestKind identifies a decision point of the phase machine.
type RequestKind byte

const (
	RequestNightAction RequestKind = 1
	RequestDiscussion  RequestKind = 2
	RequestVote        RequestKind = 3
	RequestDefense     RequestKind = 4
	RequestConfirm     RequestKind = 5
)

var RequestKindDictionary = map[RequestKind]string{
	RequestNightAction: "night_action",
	RequestDiscussion:  "discussion",
	RequestVote:        "vote",
	RequestDefense:     "defense",
	RequestConfirm:     "confirm",
}

func (k RequestKind) String() string { return RequestKindDictionary[k] }

// Request is the structured prompt handed to a decision oracle. View is the
// role-scoped projection; Candidates are the only legal targets; Hint carries
// the validation error on a single retry.
type Request struct {
	Kind       RequestKind
	View       mafia.View
	Candidates []string
	Accused    string
	Hint       string
}

// Decision is a structured decision returned by an oracle. Which fields are
// meaningful depends on the request kind; the orchestrator validates every
// field against current game state before applying it.
type Decision struct {
	Target  string `json:"target,omitempty"`
	Speak   bool   `json:"speak,omitempty"`
	Message string `json:"message,omitempty"`
	Affirm  bool   `json:"affirm,omitempty"`
	Abstain bool   `json:"abstain,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Brain is the decision oracle interface. Implementations must treat the
// request as read-only context and never touch game state.
type Brain interface {
	// Decide is called when the agent owns the current decision point.
	Decide(ctx context.Context, req Request) (Decision, error)
	// Name returns a human-readable identifier for debugging.
	Name() string
}
