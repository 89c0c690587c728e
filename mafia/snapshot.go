package mafia

// PlayerSnapshot is the observer-side status of one player. Unlike View,
// snapshots reveal roles: they feed the audit stream and post-game reports,
// never an agent's context.
type PlayerSnapshot struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Persona string `json:"persona,omitempty"`
	Alive   bool   `json:"alive"`
}

type Snapshot struct {
	Round  int    `json:"round"`
	Phase  string `json:"phase"`
	Winner string `json:"winner,omitempty"`

	Players    []PlayerSnapshot `json:"players"`
	Eliminated []string         `json:"eliminated"` // elimination order
	Messages   int              `json:"messages"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Round:    s.round,
		Phase:    s.phase.String(),
		Winner:   string(s.winner),
		Messages: len(s.messages),
	}
	for _, name := range s.order {
		p := s.players[name]
		snap.Players = append(snap.Players, PlayerSnapshot{
			Name:    p.Name,
			Role:    p.Role.String(),
			Persona: p.Persona,
			Alive:   p.alive,
		})
	}
	snap.Eliminated = append(snap.Eliminated, s.eliminated...)
	return snap
}

// Transcript returns the full ordered message log.
func (s *State) Transcript() []DiscussionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DiscussionMessage{}, s.messages...)
}
