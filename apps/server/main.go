package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"mafia-lite/apps/server/internal/archive"
	"mafia-lite/apps/server/internal/gateway"
	"mafia-lite/apps/server/internal/runner"
	"mafia-lite/mafia"
	"mafia-lite/mafia/agent"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type serverConfig struct {
	Addr         string `env:"SERVER_ADDR" envDefault:":8080"`
	ArchiveMode  string `env:"ARCHIVE_MODE" envDefault:"sqlite"` // memory | sqlite | postgres
	BrainMode    string `env:"BRAIN_MODE" envDefault:"rule"`     // rule | oracle
	PersonasPath string `env:"PERSONAS_PATH"`
	Oracle       agent.OracleConfig
}

func main() {
	_ = godotenv.Load()

	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("[Server] Failed to parse env config: %v", err)
	}

	archiveService, archiveMode, err := archive.NewServiceFromEnv(cfg.ArchiveMode)
	if err != nil {
		log.Fatalf("[Server] Failed to init archive service: %v", err)
	}
	defer archiveService.Close()

	registry := agent.NewRegistryWithDefaults()
	if cfg.PersonasPath != "" {
		if err := registry.LoadFromFile(cfg.PersonasPath); err != nil {
			log.Fatalf("[Server] Failed to load personas: %v", err)
		}
	}

	factory, err := brainFactory(cfg, registry)
	if err != nil {
		log.Fatalf("[Server] Failed to init brains: %v", err)
	}

	gw := gateway.New()
	runs := runner.NewManager(archiveService, gw, registry, factory)
	runsHTTP := runner.NewHTTPHandler(runs, archiveService)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	runsHTTP.RegisterRoutes(mux)

	log.Printf("[Server] Archive mode: %s", archiveMode)
	log.Printf("[Server] Brain mode: %s", cfg.BrainMode)
	log.Printf("[Server] Personas loaded: %d", registry.Count())
	log.Printf("[Server] Listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
}

func brainFactory(cfg serverConfig, registry *agent.PersonaRegistry) (agent.BrainFactory, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.BrainMode)) {
	case "", "rule":
		return agent.RuleBrainFactory, nil
	case "oracle":
		oracleCfg := cfg.Oracle
		return func(persona *agent.Persona, _ mafia.Role, _ int64) (agent.Brain, error) {
			return agent.NewOracleBrain(oracleCfg, persona)
		}, nil
	default:
		return nil, fmt.Errorf("unknown brain mode %q", cfg.BrainMode)
	}
}
