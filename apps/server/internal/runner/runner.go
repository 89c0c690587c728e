// Package runner owns live games on the server: it starts runs, fans their
// event streams out to the archive and the observer gateway, and tracks
// status until completion.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"mafia-lite/apps/server/internal/archive"
	"mafia-lite/mafia"
	"mafia-lite/mafia/agent"
	"mafia-lite/mafia/orchestrator"
	"mafia-lite/replay"

	"github.com/google/uuid"
)

// Broadcaster pushes one run event to live observers.
type Broadcaster interface {
	BroadcastRun(runID string, ev mafia.Event)
}

type Status string

const (
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
)

// Run is one tracked game.
type Run struct {
	ID        string
	StartedAt time.Time

	mu       sync.Mutex
	status   Status
	winner   mafia.Winner
	err      error
	state    *mafia.State
	recorder *replay.Recorder
}

func (r *Run) Status() (Status, mafia.Winner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, r.winner, r.err
}

func (r *Run) Snapshot() mafia.Snapshot {
	return r.state.Snapshot()
}

// Tape returns the run's recorded tape so far.
func (r *Run) Tape() replay.Tape {
	return r.recorder.Tape(r.ID, r.state.Config())
}

// Manager starts and tracks runs.
type Manager struct {
	mu      sync.RWMutex
	runs    map[string]*Run
	archive archive.Service
	gateway Broadcaster

	registry *agent.PersonaRegistry
	factory  agent.BrainFactory
}

// NewManager wires the run manager to its persistence and broadcast sinks.
func NewManager(arch archive.Service, gw Broadcaster, registry *agent.PersonaRegistry, factory agent.BrainFactory) *Manager {
	return &Manager{
		runs:     make(map[string]*Run),
		archive:  arch,
		gateway:  gw,
		registry: registry,
		factory:  factory,
	}
}

// StartRun validates the config, seats agents, and plays the game on its own
// goroutine. Every event goes to the recorder, the archive, and observers.
func (m *Manager) StartRun(ctx context.Context, cfg mafia.Config) (*Run, error) {
	runID := uuid.NewString()
	recorder := replay.NewRecorder()

	sink := mafia.MultiSink(
		recorder,
		mafia.SinkFunc(func(ev mafia.Event) { m.archive.AppendEvent(runID, ev) }),
		mafia.SinkFunc(func(ev mafia.Event) { m.gateway.BroadcastRun(runID, ev) }),
	)

	state, err := mafia.NewState(cfg, sink)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	agents, err := agent.NewManager(state, m.registry, m.factory)
	if err != nil {
		return nil, fmt.Errorf("seat agents: %w", err)
	}

	run := &Run{
		ID:        runID,
		StartedAt: time.Now().UTC(),
		status:    StatusRunning,
		state:     state,
		recorder:  recorder,
	}
	m.mu.Lock()
	m.runs[runID] = run
	m.mu.Unlock()

	log.Printf("[Runner] Started run %s with %d players", runID, len(cfg.Players))

	go m.play(ctx, run, orchestrator.New(state, agents))
	return run, nil
}

func (m *Manager) play(ctx context.Context, run *Run, o *orchestrator.Orchestrator) {
	winner, err := o.Run(ctx)

	run.mu.Lock()
	switch {
	case err == nil:
		run.status = StatusFinished
		run.winner = winner
		log.Printf("[Runner] Run %s finished, %s wins", run.ID, winner)
	case errors.Is(err, orchestrator.ErrStalled):
		run.status = StatusFinished
		run.err = err
		log.Printf("[Runner] Run %s stalled at the round cap, no winner", run.ID)
	default:
		run.status = StatusFailed
		run.err = err
		log.Printf("[Runner] Run %s failed: %v", run.ID, err)
	}
	run.mu.Unlock()

	m.archive.UpsertRunSummary(run.ID, run.StartedAt, runSummary(run, err))
}

func runSummary(run *Run, runErr error) map[string]any {
	snap := run.state.Snapshot()
	sum := replay.Summarize(run.state)
	out := map[string]any{
		"winner":     string(sum.Winner),
		"rounds":     sum.Rounds,
		"living":     sum.Living,
		"eliminated": sum.Eliminated,
		"players":    len(snap.Players),
		"messages":   snap.Messages,
	}
	if runErr != nil {
		out["error"] = runErr.Error()
	}
	return out
}

// Get returns a tracked run by ID, or nil.
func (m *Manager) Get(runID string) *Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runs[runID]
}

// ListActive returns the IDs of runs still in memory.
func (m *Manager) ListActive() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	return ids
}
