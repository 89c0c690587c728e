// Package orchestrator drives a full game: it owns the phase loop, polls
// agents one decision at a time, and is the only writer of game state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"mafia-lite/mafia"
	"mafia-lite/mafia/agent"
)

// defaultMaxRounds bounds games where agents keep abstaining and nobody is
// ever eliminated.
const defaultMaxRounds = 30

// ErrStalled is returned when the round cap is reached without a winner.
var ErrStalled = errors.New("round limit reached without a winner")

// Orchestrator sequences one game from the first night to a winner. Agents
// are only ever asked for decisions; every mutation goes through the state.
type Orchestrator struct {
	state  *mafia.State
	agents *agent.Manager
}

// New wires an orchestrator to a freshly created state and its agent roster.
func New(state *mafia.State, agents *agent.Manager) *Orchestrator {
	return &Orchestrator{state: state, agents: agents}
}

// State exposes the underlying game state for observers.
func (o *Orchestrator) State() *mafia.State { return o.state }

// Run plays the game to completion and returns the winner. It stops early
// on context cancellation or on a state invariant violation, which is never
// recovered from.
func (o *Orchestrator) Run(ctx context.Context) (mafia.Winner, error) {
	if err := o.state.BeginPhase(mafia.PhaseNightAction); err != nil {
		return mafia.WinnerNone, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return mafia.WinnerNone, err
		}
		log.Printf("[Orchestrator] Round %d: night falls", o.state.Round())

		if err := o.nightPhase(ctx); err != nil {
			return mafia.WinnerNone, err
		}
		if err := o.state.BeginPhase(mafia.PhaseNightResolution); err != nil {
			return mafia.WinnerNone, err
		}
		res, err := o.state.ResolveNight()
		if err != nil {
			return mafia.WinnerNone, err
		}
		o.logNight(res)

		if w := o.state.CheckWinCondition(); w != mafia.WinnerNone {
			return w, o.state.FinishGame(w)
		}

		if err := o.state.BeginPhase(mafia.PhaseDayDiscussion); err != nil {
			return mafia.WinnerNone, err
		}
		if err := o.discussionPhase(ctx); err != nil {
			return mafia.WinnerNone, err
		}

		if err := o.state.BeginPhase(mafia.PhaseVoting); err != nil {
			return mafia.WinnerNone, err
		}
		accused, err := o.votingPhase(ctx)
		if err != nil {
			return mafia.WinnerNone, err
		}

		if accused != "" {
			if err := o.state.BeginPhase(mafia.PhaseDefense); err != nil {
				return mafia.WinnerNone, err
			}
			if err := o.defensePhase(ctx, accused); err != nil {
				return mafia.WinnerNone, err
			}
		}

		if err := o.state.BeginPhase(mafia.PhaseDayElimination); err != nil {
			return mafia.WinnerNone, err
		}
		eliminated, err := o.state.ResolveDay()
		if err != nil {
			return mafia.WinnerNone, err
		}
		if eliminated != nil {
			log.Printf("[Orchestrator] Round %d: the village eliminates %s (%s)",
				o.state.Round(), eliminated.Name, eliminated.Role)
		} else {
			log.Printf("[Orchestrator] Round %d: the village eliminates nobody", o.state.Round())
		}

		if w := o.state.CheckWinCondition(); w != mafia.WinnerNone {
			return w, o.state.FinishGame(w)
		}
		if o.state.Round() >= o.maxRounds() {
			log.Printf("[Orchestrator] Round cap reached after round %d, declaring a stall", o.state.Round())
			if err := o.state.FinishGame(mafia.WinnerNone); err != nil {
				return mafia.WinnerNone, err
			}
			return mafia.WinnerNone, ErrStalled
		}
		if err := o.state.BeginPhase(mafia.PhaseNightAction); err != nil {
			return mafia.WinnerNone, err
		}
	}
}

func (o *Orchestrator) maxRounds() int {
	if n := o.state.Config().MaxRounds; n > 0 {
		return n
	}
	return defaultMaxRounds
}

// nightPhase polls each living night-capable agent exactly once, in seating
// order. Mafia are polled before doctor and detective so teammates can see
// earlier proposals in their views.
func (o *Orchestrator) nightPhase(ctx context.Context) error {
	living := o.state.LivingPlayers()

	poll := func(p *mafia.Player) error {
		a := o.agents.Get(p.Name)
		if a == nil {
			return mafia.ErrInvariant(fmt.Sprintf("no agent seated for %s", p.Name))
		}
		kind, ok := a.NightKind()
		if !ok {
			return nil
		}
		candidates := o.nightCandidates(p, kind)
		if len(candidates) == 0 {
			o.state.RecordAbstention(p.Name, "no valid target")
			return nil
		}
		view, err := o.state.ViewFor(p.Name)
		if err != nil {
			return err
		}
		dec, abstained, err := o.askWithRetry(ctx, a, agent.Request{
			Kind:       agent.RequestNightAction,
			View:       view,
			Candidates: candidates,
		})
		if err != nil {
			return err
		}
		if abstained || dec.Abstain {
			o.state.RecordAbstention(p.Name, dec.Reason)
			return nil
		}
		return o.state.SubmitNightAction(p.Name, kind, dec.Target, dec.Reason)
	}

	for _, p := range living {
		if p.Role != mafia.RoleMafia {
			continue
		}
		if err := poll(p); err != nil {
			return err
		}
	}
	for _, p := range living {
		if p.Role == mafia.RoleMafia {
			continue
		}
		if err := poll(p); err != nil {
			return err
		}
	}
	return nil
}

// nightCandidates mirrors the state's target rules so agents only ever see
// submittable names.
func (o *Orchestrator) nightCandidates(actor *mafia.Player, kind mafia.ActionKind) []string {
	out := make([]string, 0)
	for _, p := range o.state.LivingPlayers() {
		switch kind {
		case mafia.ActionKill:
			if p.Role != mafia.RoleMafia {
				out = append(out, p.Name)
			}
		case mafia.ActionSave:
			out = append(out, p.Name)
		case mafia.ActionInvestigate:
			if p.Name != actor.Name {
				out = append(out, p.Name)
			}
		}
	}
	return out
}

// discussionPhase runs the configured number of table rounds. Every living
// player is offered the floor each round, in seating order; passing is fine.
func (o *Orchestrator) discussionPhase(ctx context.Context) error {
	for i := 0; i < o.state.Config().DiscussionRounds; i++ {
		for _, p := range o.state.LivingPlayers() {
			a := o.agents.Get(p.Name)
			view, err := o.state.ViewFor(p.Name)
			if err != nil {
				return err
			}
			dec, abstained, err := o.askWithRetry(ctx, a, agent.Request{
				Kind: agent.RequestDiscussion,
				View: view,
			})
			if err != nil {
				return err
			}
			if abstained || !dec.Speak {
				continue
			}
			if _, err := o.state.AppendMessage(p.Name, dec.Message); err != nil {
				return err
			}
			log.Printf("[Orchestrator] %s: %s", p.Name, dec.Message)
		}
	}
	return nil
}

// votingPhase collects one vote per living player and resolves the strict
// majority. Returns the accused name, or "" when nobody reached majority.
func (o *Orchestrator) votingPhase(ctx context.Context) (string, error) {
	for _, p := range o.state.LivingPlayers() {
		a := o.agents.Get(p.Name)
		view, err := o.state.ViewFor(p.Name)
		if err != nil {
			return "", err
		}
		dec, abstained, err := o.askWithRetry(ctx, a, agent.Request{
			Kind:       agent.RequestVote,
			View:       view,
			Candidates: o.voteCandidates(p.Name),
		})
		if err != nil {
			return "", err
		}
		target := dec.Target
		if abstained || dec.Abstain {
			target = mafia.AbstainTarget
		}
		if err := o.state.RecordVote(p.Name, target, dec.Reason); err != nil {
			return "", err
		}
	}
	accused, err := o.state.ResolveVote()
	if err != nil {
		return "", err
	}
	if accused != "" {
		log.Printf("[Orchestrator] Round %d: %s stands accused", o.state.Round(), accused)
	}
	return accused, nil
}

func (o *Orchestrator) voteCandidates(voter string) []string {
	out := make([]string, 0)
	for _, p := range o.state.LivingPlayers() {
		if p.Name != voter {
			out = append(out, p.Name)
		}
	}
	return out
}

// defensePhase lets the accused speak, then collects affirm/oppose
// confirmation votes from every living player.
func (o *Orchestrator) defensePhase(ctx context.Context, accused string) error {
	a := o.agents.Get(accused)
	view, err := o.state.ViewFor(accused)
	if err != nil {
		return err
	}
	dec, abstained, err := o.askWithRetry(ctx, a, agent.Request{
		Kind:    agent.RequestDefense,
		View:    view,
		Accused: accused,
	})
	if err != nil {
		return err
	}
	if !abstained && dec.Speak && dec.Message != "" {
		if _, err := o.state.AppendDefense(accused, dec.Message); err != nil {
			return err
		}
		log.Printf("[Orchestrator] %s defends: %s", accused, dec.Message)
	} else {
		o.state.RecordAbstention(accused, "no defense given")
	}

	for _, p := range o.state.LivingPlayers() {
		va := o.agents.Get(p.Name)
		voterView, err := o.state.ViewFor(p.Name)
		if err != nil {
			return err
		}
		cv, cAbstained, err := o.askWithRetry(ctx, va, agent.Request{
			Kind:    agent.RequestConfirm,
			View:    voterView,
			Accused: accused,
		})
		if err != nil {
			return err
		}
		abstain := cAbstained || cv.Abstain
		if err := o.state.RecordConfirmVote(p.Name, cv.Affirm, abstain, cv.Reason); err != nil {
			return err
		}
	}
	return nil
}

// askWithRetry enforces the decision failure policy: a structurally invalid
// or failed decision is retried once with a corrective hint, and a second
// failure becomes an abstention. Invariant violations and context errors
// propagate untouched.
func (o *Orchestrator) askWithRetry(ctx context.Context, a *agent.Agent, req agent.Request) (agent.Decision, bool, error) {
	if a == nil {
		return agent.Decision{}, false, mafia.ErrInvariant("decision requested for unseated agent")
	}

	dec, err := a.Brain.Decide(ctx, req)
	if err == nil {
		err = validateDecision(req, dec)
	}
	if err == nil {
		return dec, false, nil
	}
	if ctx.Err() != nil {
		return agent.Decision{}, false, ctx.Err()
	}
	if mafia.IsInvariantViolation(err) {
		return agent.Decision{}, false, err
	}

	o.state.RejectDecision(a.Name, err.Error())
	log.Printf("[Orchestrator] %s gave an invalid decision, retrying: %v", a.Name, err)

	req.Hint = fmt.Sprintf("your previous answer was rejected (%v); follow the response format exactly", err)
	dec, err = a.Brain.Decide(ctx, req)
	if err == nil {
		err = validateDecision(req, dec)
	}
	if err == nil {
		return dec, false, nil
	}
	if ctx.Err() != nil {
		return agent.Decision{}, false, ctx.Err()
	}
	if mafia.IsInvariantViolation(err) {
		return agent.Decision{}, false, err
	}

	log.Printf("[Orchestrator] %s failed twice, treating as abstention: %v", a.Name, err)
	o.state.RejectDecision(a.Name, err.Error())
	return agent.Decision{Abstain: true, Reason: "decision failure"}, true, nil
}

var errBadDecision = errors.New("invalid decision")

// validateDecision checks shape only; game-rule checks live in the state.
func validateDecision(req agent.Request, dec agent.Decision) error {
	switch req.Kind {
	case agent.RequestNightAction, agent.RequestVote:
		if dec.Abstain {
			return nil
		}
		if dec.Target == "" {
			return fmt.Errorf("%w: no target and no abstain", errBadDecision)
		}
		for _, c := range req.Candidates {
			if c == dec.Target {
				return nil
			}
		}
		return fmt.Errorf("%w: target %q is not a valid candidate", errBadDecision, dec.Target)
	case agent.RequestDiscussion, agent.RequestDefense:
		if dec.Speak && dec.Message == "" {
			return fmt.Errorf("%w: speak without a message", errBadDecision)
		}
	}
	return nil
}

func (o *Orchestrator) logNight(res mafia.NightResult) {
	switch {
	case res.Eliminated != "":
		log.Printf("[Orchestrator] Round %d: %s was killed in the night", res.Round, res.Eliminated)
	case res.Saved:
		log.Printf("[Orchestrator] Round %d: the doctor foiled an attack on %s", res.Round, res.KillCandidate)
	default:
		log.Printf("[Orchestrator] Round %d: nobody died in the night", res.Round)
	}
}
