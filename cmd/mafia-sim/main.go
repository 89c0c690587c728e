// mafia-sim plays one full game locally and prints the narrated transcript.
// A seed makes rule-brain games fully reproducible; oracle mode routes
// decisions through a chat-completions endpoint instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"mafia-lite/mafia"
	"mafia-lite/mafia/agent"
	"mafia-lite/mafia/orchestrator"
	"mafia-lite/replay"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath   = flag.String("config", "", "game config YAML (players, mafia count, discussion rounds)")
		personasPath = flag.String("personas", "", "personas JSON, defaults to the built-in set")
		mode         = flag.String("mode", "rule", "decision brain: rule | oracle")
		seed         = flag.Int64("seed", 0, "override the config seed (0 keeps it)")
		tapePath     = flag.String("tape", "", "write the game tape JSON here")
		verify       = flag.Bool("verify", false, "rebuild the game from its tape and compare outcomes")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("[Sim] Config: %v", err)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	registry := agent.NewRegistryWithDefaults()
	if *personasPath != "" {
		if err := registry.LoadFromFile(*personasPath); err != nil {
			log.Fatalf("[Sim] Personas: %v", err)
		}
	}

	factory, err := pickFactory(*mode)
	if err != nil {
		log.Fatalf("[Sim] Brains: %v", err)
	}

	recorder := replay.NewRecorder()
	sink := mafia.MultiSink(recorder, narrator{})

	state, err := mafia.NewState(cfg, sink)
	if err != nil {
		log.Fatalf("[Sim] New game: %v", err)
	}
	agents, err := agent.NewManager(state, registry, factory)
	if err != nil {
		log.Fatalf("[Sim] Seat agents: %v", err)
	}

	winner, err := orchestrator.New(state, agents).Run(context.Background())
	if err != nil && !errors.Is(err, orchestrator.ErrStalled) {
		log.Fatalf("[Sim] Game aborted: %v", err)
	}

	snap := state.Snapshot()
	if errors.Is(err, orchestrator.ErrStalled) {
		fmt.Printf("\n=== stalled after %d rounds, no winner ===\n", snap.Round)
	} else {
		fmt.Printf("\n=== %s wins after %d rounds ===\n", winner, snap.Round)
	}
	for _, p := range snap.Players {
		status := "eliminated"
		if p.Alive {
			status = "alive"
		}
		fmt.Printf("  %-12s %-10s %s\n", p.Name, p.Role, status)
	}

	tape := recorder.Tape("", cfg)
	if *tapePath != "" {
		if err := writeTape(*tapePath, tape); err != nil {
			log.Fatalf("[Sim] Write tape: %v", err)
		}
		fmt.Printf("tape written to %s (%d events)\n", *tapePath, len(tape.Events))
	}
	if *verify {
		rebuilt, err := replay.Rebuild(tape, mafia.NopSink())
		if err != nil {
			log.Fatalf("[Sim] Rebuild failed: %v", err)
		}
		if !replay.Summarize(state).Equal(replay.Summarize(rebuilt)) {
			log.Fatalf("[Sim] Rebuild outcome diverged from the live game")
		}
		fmt.Println("tape verified: rebuild matches the live game")
	}
}

// narrator prints the observer-facing story of the game as events arrive.
type narrator struct{}

func (narrator) Emit(ev mafia.Event) {
	switch ev.Type {
	case mafia.EventPhaseChanged:
		fmt.Printf("--- round %d: %s ---\n", ev.Round, ev.Kind)
	case mafia.EventMessagePosted:
		fmt.Printf("%s: %s\n", ev.Actor, ev.Text)
	case mafia.EventDefensePosted:
		fmt.Printf("%s (defense): %s\n", ev.Actor, ev.Text)
	case mafia.EventVoteResolved:
		if ev.Target != "" {
			fmt.Printf("the village accuses %s\n", ev.Target)
		} else {
			fmt.Println("no majority, nobody is accused")
		}
	case mafia.EventNightResolved:
		switch {
		case ev.Target != "":
			fmt.Printf("%s was found dead in the morning\n", ev.Target)
		case ev.Flag:
			fmt.Println("the doctor prevented a death tonight")
		default:
			fmt.Println("the night passed quietly")
		}
	case mafia.EventPlayerEliminated:
		if ev.Phase == mafia.PhaseDayElimination {
			fmt.Printf("%s has been eliminated by vote\n", ev.Target)
		}
	case mafia.EventGameEnded:
		if ev.Kind == "" {
			fmt.Println("game over: stalemate")
		} else {
			fmt.Printf("game over: %s victory\n", ev.Kind)
		}
	}
}

func loadConfig(path string) (mafia.Config, error) {
	if path != "" {
		return mafia.LoadConfigFile(path)
	}
	// A ready-to-run six player match when no config is given.
	return mafia.Config{
		Players: []mafia.Seat{
			{Name: "Alice", Persona: "analytical"},
			{Name: "Bruno", Persona: "aggressive"},
			{Name: "Clara", Persona: "cautious"},
			{Name: "Diego", Persona: "charismatic"},
			{Name: "Elena", Persona: "suspicious"},
			{Name: "Felix", Persona: "quiet"},
		},
		NumMafia:         1,
		DiscussionRounds: 2,
		Seed:             1,
	}, nil
}

func pickFactory(mode string) (agent.BrainFactory, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "rule":
		return agent.RuleBrainFactory, nil
	case "oracle":
		var oracleCfg agent.OracleConfig
		if err := env.Parse(&oracleCfg); err != nil {
			return nil, err
		}
		return func(persona *agent.Persona, _ mafia.Role, _ int64) (agent.Brain, error) {
			return agent.NewOracleBrain(oracleCfg, persona)
		}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

func writeTape(path string, tape replay.Tape) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return replay.SaveTape(f, tape)
}
