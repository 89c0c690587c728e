// Package replay records a game's event stream to a JSON tape and rebuilds
// an identical game from it. Rebuilding exercises only public state methods,
// so a tape that replays cleanly proves the stream fully determines the game.
package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"mafia-lite/mafia"
)

const tapeVersion = 1

// Tape is one recorded game: the seating config plus every emitted event in
// sequence order.
type Tape struct {
	TapeVersion int           `json:"tape_version"`
	RunID       string        `json:"run_id,omitempty"`
	Config      mafia.Config  `json:"config"`
	Events      []mafia.Event `json:"events"`
}

// Summary captures the externally observable outcome of a game, used to
// compare an original run against its rebuild.
type Summary struct {
	Winner     mafia.Winner `json:"winner"`
	Rounds     int          `json:"rounds"`
	Living     []string     `json:"living"`
	Eliminated []string     `json:"eliminated"`
}

// Recorder is a Sink that accumulates every event for a tape.
type Recorder struct {
	mu     sync.Mutex
	events []mafia.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(ev mafia.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Tape packages the recorded events with the run's config.
func (r *Recorder) Tape(runID string, cfg mafia.Config) Tape {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]mafia.Event, len(r.events))
	copy(events, r.events)
	return Tape{TapeVersion: tapeVersion, RunID: runID, Config: cfg, Events: events}
}

// SaveTape writes a tape as indented JSON.
func SaveTape(w io.Writer, tape Tape) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tape)
}

// LoadTape parses a tape and checks the version.
func LoadTape(r io.Reader) (Tape, error) {
	var tape Tape
	if err := json.NewDecoder(r).Decode(&tape); err != nil {
		return Tape{}, fmt.Errorf("decode tape: %w", err)
	}
	if tape.TapeVersion != tapeVersion {
		return Tape{}, fmt.Errorf("unsupported tape version %d", tape.TapeVersion)
	}
	return tape, nil
}

// LoadTapeFile reads a tape from disk.
func LoadTapeFile(path string) (Tape, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tape{}, err
	}
	defer f.Close()

	var tape Tape
	if err := json.NewDecoder(f).Decode(&tape); err != nil {
		return Tape{}, fmt.Errorf("decode tape %s: %w", path, err)
	}
	if tape.TapeVersion != tapeVersion {
		return Tape{}, fmt.Errorf("unsupported tape version %d", tape.TapeVersion)
	}
	return tape, nil
}
