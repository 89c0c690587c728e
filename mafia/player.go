package mafia

// Player is one participant. Role is immutable after creation; the alive
// flag transitions true→false exactly once and never reverts.
type Player struct {
	Name    string
	Role    Role
	Persona string

	alive bool
}

func (p *Player) Alive() bool { return p.alive }

// CanPerform reports whether the player's role may submit the night action.
func (p *Player) CanPerform(kind ActionKind) bool {
	allowed, ok := nightCapabilities[p.Role]
	return ok && allowed == kind
}
