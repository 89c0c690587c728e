package agent

import (
	"fmt"
	"log"
	"math/rand"
	"sync"

	"mafia-lite/mafia"
)

// BrainFactory builds a brain for one seated agent. RuleBrain and OracleBrain
// both fit through here; the seed only matters to deterministic brains.
type BrainFactory func(persona *Persona, role mafia.Role, seed int64) (Brain, error)

// RuleBrainFactory is the default factory for offline and test runs.
func RuleBrainFactory(persona *Persona, _ mafia.Role, seed int64) (Brain, error) {
	return NewRuleBrain(persona, seed), nil
}

// Manager owns the agent roster for a single run and hands out agents by
// player name.
type Manager struct {
	registry *PersonaRegistry
	agents   map[string]*Agent
	mu       sync.RWMutex
	rng      *rand.Rand
}

// NewManager seats an agent for every player in the state, resolving each
// seat's persona through the registry and building brains via the factory.
// Sub-seeds derive from the run seed so a full roster is reproducible.
func NewManager(state *mafia.State, registry *PersonaRegistry, factory BrainFactory) (*Manager, error) {
	m := &Manager{
		registry: registry,
		agents:   make(map[string]*Agent),
		rng:      rand.New(rand.NewSource(state.Config().Seed)),
	}

	for _, seat := range state.Config().Players {
		player := state.PlayerByName(seat.Name)
		if player == nil {
			return nil, fmt.Errorf("seat %s: player not in game", seat.Name)
		}
		persona := registry.Get(seat.Persona)
		if persona == nil {
			return nil, fmt.Errorf("seat %s: unknown persona %q", seat.Name, seat.Persona)
		}
		brain, err := factory(persona, player.Role, m.rng.Int63())
		if err != nil {
			return nil, fmt.Errorf("seat %s: %w", seat.Name, err)
		}
		m.agents[seat.Name] = &Agent{
			Name:    seat.Name,
			Role:    player.Role,
			Persona: persona,
			Brain:   brain,
		}
		log.Printf("[Agent] Seated %s as %s (persona=%s, brain=%s)",
			seat.Name, player.Role, persona.ID, brain.Name())
	}
	return m, nil
}

// Registry returns the underlying PersonaRegistry.
func (m *Manager) Registry() *PersonaRegistry {
	return m.registry
}

// Get returns the agent for a player name, or nil.
func (m *Manager) Get(name string) *Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.agents[name]
}

// Count returns the number of seated agents.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}
