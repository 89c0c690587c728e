package agent

import "mafia-lite/mafia"

// roleCapabilities maps each role to the decision kinds it answers. A single
// Agent type dispatches by role tag instead of a subclass per role.
var roleCapabilities = map[mafia.Role]map[RequestKind]bool{
	mafia.RoleMafia: {
		RequestNightAction: true,
		RequestDiscussion:  true,
		RequestVote:        true,
		RequestDefense:     true,
		RequestConfirm:     true,
	},
	mafia.RoleDoctor: {
		RequestNightAction: true,
		RequestDiscussion:  true,
		RequestVote:        true,
		RequestDefense:     true,
		RequestConfirm:     true,
	},
	mafia.RoleDetective: {
		RequestNightAction: true,
		RequestDiscussion:  true,
		RequestVote:        true,
		RequestDefense:     true,
		RequestConfirm:     true,
	},
	mafia.RoleVillager: {
		RequestDiscussion: true,
		RequestVote:       true,
		RequestDefense:    true,
		RequestConfirm:    true,
	},
}

// Agent wraps one player's identity, role and persona around a decision
// oracle. Agents never mutate game state; they only answer requests.
type Agent struct {
	Name    string
	Role    mafia.Role
	Persona *Persona
	Brain   Brain
}

// CanAct reports whether this agent's role answers the request kind.
func (a *Agent) CanAct(kind RequestKind) bool {
	return roleCapabilities[a.Role][kind]
}

// NightKind returns the night action kind this agent's role submits.
func (a *Agent) NightKind() (mafia.ActionKind, bool) {
	switch a.Role {
	case mafia.RoleMafia:
		return mafia.ActionKill, true
	case mafia.RoleDoctor:
		return mafia.ActionSave, true
	case mafia.RoleDetective:
		return mafia.ActionInvestigate, true
	default:
		return 0, false
	}
}
