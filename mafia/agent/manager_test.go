package agent

import (
	"testing"

	"mafia-lite/mafia"
)

func rosterConfig() (mafia.Config, map[string]mafia.Role) {
	cfg := mafia.Config{
		Players: []mafia.Seat{
			{Name: "Alice", Persona: "aggressive"},
			{Name: "Bruno", Persona: "quiet"},
			{Name: "Clara", Persona: "cautious"},
			{Name: "Diego", Persona: "analytical"},
			{Name: "Elena", Persona: "suspicious"},
		},
		NumMafia:         1,
		DiscussionRounds: 1,
		Seed:             5,
	}
	roles := map[string]mafia.Role{
		"Alice": mafia.RoleMafia,
		"Bruno": mafia.RoleDoctor,
		"Clara": mafia.RoleDetective,
		"Diego": mafia.RoleVillager,
		"Elena": mafia.RoleVillager,
	}
	return cfg, roles
}

func TestManagerSeatsFullRoster(t *testing.T) {
	cfg, roles := rosterConfig()
	state, err := mafia.NewStateWithRoles(cfg, roles, mafia.NopSink())
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	m, err := NewManager(state, NewRegistryWithDefaults(), RuleBrainFactory)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.Count() != 5 {
		t.Fatalf("seated %d agents, want 5", m.Count())
	}

	alice := m.Get("Alice")
	if alice == nil || alice.Role != mafia.RoleMafia || alice.Persona.ID != "aggressive" {
		t.Fatalf("bad agent: %+v", alice)
	}
	if m.Get("Nobody") != nil {
		t.Fatalf("unknown name returned an agent")
	}
}

func TestManagerRejectsUnknownPersona(t *testing.T) {
	cfg, roles := rosterConfig()
	cfg.Players[0].Persona = "does_not_exist"
	state, err := mafia.NewStateWithRoles(cfg, roles, mafia.NopSink())
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if _, err := NewManager(state, NewRegistryWithDefaults(), RuleBrainFactory); err == nil {
		t.Fatalf("unknown persona accepted")
	}
}

func TestAgentCapabilities(t *testing.T) {
	villager := &Agent{Name: "Diego", Role: mafia.RoleVillager}
	if villager.CanAct(RequestNightAction) {
		t.Fatalf("villager can act at night")
	}
	if !villager.CanAct(RequestVote) || !villager.CanAct(RequestDiscussion) {
		t.Fatalf("villager missing day capabilities")
	}
	if _, ok := villager.NightKind(); ok {
		t.Fatalf("villager has a night kind")
	}

	cases := []struct {
		role mafia.Role
		kind mafia.ActionKind
	}{
		{mafia.RoleMafia, mafia.ActionKill},
		{mafia.RoleDoctor, mafia.ActionSave},
		{mafia.RoleDetective, mafia.ActionInvestigate},
	}
	for _, tc := range cases {
		a := &Agent{Role: tc.role}
		kind, ok := a.NightKind()
		if !ok || kind != tc.kind {
			t.Fatalf("%s night kind = %v/%v", tc.role, kind, ok)
		}
		if !a.CanAct(RequestNightAction) {
			t.Fatalf("%s cannot act at night", tc.role)
		}
	}
}

func TestRegistryLoadFromJSON(t *testing.T) {
	r := NewRegistry()
	err := r.LoadFromJSON([]byte(`[
		{"id": "custom", "name": "Custom", "tagline": "t",
		 "profile": {"suspicion": 0.5, "chattiness": 0.9}}
	]`))
	if err != nil {
		t.Fatalf("LoadFromJSON: %v", err)
	}
	p := r.Get("custom")
	if p == nil || p.Profile.Chattiness != 0.9 {
		t.Fatalf("bad persona: %+v", p)
	}
}

func TestDefaultPersonasAreComplete(t *testing.T) {
	r := NewRegistryWithDefaults()
	if r.Count() < 8 {
		t.Fatalf("only %d built-in personas", r.Count())
	}
	for _, p := range r.All() {
		if p.ID == "" || p.Name == "" {
			t.Fatalf("incomplete persona: %+v", p)
		}
	}
}
