package replay

import (
	"fmt"

	"mafia-lite/mafia"
)

// Rebuild replays a tape into a fresh State, driving it through the same
// public methods the live orchestrator uses. Resolution events are verified
// against the recomputed outcome, so any divergence fails loudly.
func Rebuild(tape Tape, sink mafia.Sink) (*mafia.State, error) {
	roles := make(map[string]mafia.Role)
	for _, ev := range tape.Events {
		if ev.Type != mafia.EventRoleAssigned {
			continue
		}
		role, err := roleFromName(ev.Kind)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.Seq, err)
		}
		roles[ev.Actor] = role
	}

	state, err := mafia.NewStateWithRoles(tape.Config, roles, sink)
	if err != nil {
		return nil, err
	}

	for _, ev := range tape.Events {
		if err := applyEvent(state, ev); err != nil {
			return nil, fmt.Errorf("replay event %d (%s): %w", ev.Seq, ev.Type, err)
		}
	}
	return state, nil
}

func applyEvent(state *mafia.State, ev mafia.Event) error {
	switch ev.Type {
	case mafia.EventPhaseChanged:
		if ev.Kind == mafia.PhaseGameOver.String() {
			return nil // driven by the game.ended event
		}
		phase, err := phaseFromName(ev.Kind)
		if err != nil {
			return err
		}
		return state.BeginPhase(phase)

	case mafia.EventNightSubmitted:
		kind, err := actionKindFromName(ev.Kind)
		if err != nil {
			return err
		}
		return state.SubmitNightAction(ev.Actor, kind, ev.Target, ev.Reason)

	case mafia.EventNightResolved:
		res, err := state.ResolveNight()
		if err != nil {
			return err
		}
		if res.Eliminated != ev.Target || res.Saved != ev.Flag {
			return fmt.Errorf("night outcome diverged: got (%q saved=%t), tape has (%q saved=%t)",
				res.Eliminated, res.Saved, ev.Target, ev.Flag)
		}
		return nil

	case mafia.EventMessagePosted:
		_, err := state.AppendMessage(ev.Actor, ev.Text)
		return err

	case mafia.EventDefensePosted:
		_, err := state.AppendDefense(ev.Actor, ev.Text)
		return err

	case mafia.EventVoteRecorded:
		return state.RecordVote(ev.Actor, ev.Target, ev.Reason)

	case mafia.EventVoteResolved:
		accused, err := state.ResolveVote()
		if err != nil {
			return err
		}
		if accused != ev.Target {
			return fmt.Errorf("vote outcome diverged: got %q, tape has %q", accused, ev.Target)
		}
		return nil

	case mafia.EventConfirmRecorded:
		return state.RecordConfirmVote(ev.Actor, ev.Flag, false, ev.Reason)

	case mafia.EventDayResolved:
		eliminated, err := state.ResolveDay()
		if err != nil {
			return err
		}
		got := ""
		if eliminated != nil {
			got = eliminated.Name
		}
		want := ""
		if ev.Flag {
			want = ev.Target
		}
		if got != want {
			return fmt.Errorf("day outcome diverged: got %q, tape has %q", got, want)
		}
		return nil

	case mafia.EventGameEnded:
		return state.FinishGame(mafia.Winner(ev.Kind))

	case mafia.EventDecisionRejected:
		state.RejectDecision(ev.Actor, ev.Reason)
		return nil

	case mafia.EventDecisionAbstained:
		state.RecordAbstention(ev.Actor, ev.Reason)
		return nil

	// Byproducts of the calls above; the rebuild regenerates them itself.
	case mafia.EventGameCreated, mafia.EventRoleAssigned,
		mafia.EventInvestigated, mafia.EventPlayerEliminated:
		return nil
	}
	return fmt.Errorf("unknown event type %q", ev.Type)
}

// Summarize reduces a finished state to its observable outcome.
func Summarize(state *mafia.State) Summary {
	snap := state.Snapshot()
	sum := Summary{
		Winner:     mafia.Winner(snap.Winner),
		Rounds:     snap.Round,
		Eliminated: snap.Eliminated,
	}
	for _, p := range snap.Players {
		if p.Alive {
			sum.Living = append(sum.Living, p.Name)
		}
	}
	return sum
}

// Equal reports whether two summaries describe the same outcome.
func (s Summary) Equal(other Summary) bool {
	if s.Winner != other.Winner || s.Rounds != other.Rounds {
		return false
	}
	if len(s.Living) != len(other.Living) || len(s.Eliminated) != len(other.Eliminated) {
		return false
	}
	for i := range s.Living {
		if s.Living[i] != other.Living[i] {
			return false
		}
	}
	for i := range s.Eliminated {
		if s.Eliminated[i] != other.Eliminated[i] {
			return false
		}
	}
	return true
}

func roleFromName(name string) (mafia.Role, error) {
	for role, s := range mafia.RoleDictionary {
		if s == name {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

func phaseFromName(name string) (mafia.Phase, error) {
	for phase, s := range mafia.PhaseDictionary {
		if s == name {
			return phase, nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", name)
}

func actionKindFromName(name string) (mafia.ActionKind, error) {
	for kind, s := range mafia.ActionKindDictionary {
		if s == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown action kind %q", name)
}
