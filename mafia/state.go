package mafia

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// State is the authoritative game record. It is mutated only through its
// methods, by a single orchestrating flow; the mutex also keeps snapshot
// reads safe for concurrent observers.
type State struct {
	mu  sync.Mutex
	cfg Config

	players map[string]*Player
	order   []string // seating order, defines polling order

	round  int
	phase  Phase
	winner Winner

	// current round working set (overwrite-on-resubmit)
	nightActions map[string]NightAction
	votes        map[string]Vote
	confirms     map[string]ConfirmVote
	accused      string

	// append-only history
	messages       []DiscussionMessage
	actionLog      []NightAction
	voteLog        []Vote
	confirmLog     []ConfirmVote
	nightLog       []NightResult
	investigations map[string][]Investigation // detective -> private results
	eliminated     []string

	msgSeq   uint64
	eventSeq uint64
	sink     Sink
	now      func() time.Time
}

// NewState creates the game roster and deals roles with a seeded shuffle:
// NumMafia mafia, one doctor, one detective, villagers for the rest.
func NewState(cfg Config, sink Sink) (*State, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	roles := make([]Role, 0, len(cfg.Players))
	for i := 0; i < cfg.NumMafia; i++ {
		roles = append(roles, RoleMafia)
	}
	roles = append(roles, RoleDoctor, RoleDetective)
	for len(roles) < len(cfg.Players) {
		roles = append(roles, RoleVillager)
	}
	rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	assigned := make(map[string]Role, len(cfg.Players))
	for i, seat := range cfg.Players {
		assigned[seat.Name] = roles[i]
	}
	return NewStateWithRoles(cfg, assigned, sink)
}

// NewStateWithRoles creates a game with an explicit role assignment. Used by
// replay to rebuild a recorded game deterministically.
func NewStateWithRoles(cfg Config, roles map[string]Role, sink Sink) (*State, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NopSink()
	}
	s := &State{
		cfg:            cfg,
		players:        make(map[string]*Player, len(cfg.Players)),
		order:          make([]string, 0, len(cfg.Players)),
		phase:          PhaseSetup,
		nightActions:   make(map[string]NightAction),
		votes:          make(map[string]Vote),
		confirms:       make(map[string]ConfirmVote),
		investigations: make(map[string][]Investigation),
		sink:           sink,
		now:            time.Now,
	}
	for _, seat := range cfg.Players {
		role, ok := roles[seat.Name]
		if !ok {
			return nil, fmt.Errorf("no role assigned to player %q", seat.Name)
		}
		s.players[seat.Name] = &Player{
			Name:    seat.Name,
			Role:    role,
			Persona: seat.Persona,
			alive:   true,
		}
		s.order = append(s.order, seat.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(Event{Type: EventGameCreated})
	for _, name := range s.order {
		s.emitLocked(Event{Type: EventRoleAssigned, Actor: name, Kind: s.players[name].Role.String()})
	}
	return s, nil
}

func (s *State) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *State) Winner() Winner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner
}

func (s *State) Config() Config { return s.cfg }

// PlayerByName returns the player record, or nil.
func (s *State) PlayerByName(name string) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[name]
}

// LivingPlayers returns living players in seating order.
func (s *State) LivingPlayers() []*Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.livingLocked()
}

func (s *State) livingLocked() []*Player {
	out := make([]*Player, 0, len(s.order))
	for _, name := range s.order {
		if p := s.players[name]; p.alive {
			out = append(out, p)
		}
	}
	return out
}

// MafiaPlayers returns living mafia in seating order.
func (s *State) MafiaPlayers() []*Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Player, 0, s.cfg.NumMafia)
	for _, name := range s.order {
		if p := s.players[name]; p.alive && p.Role == RoleMafia {
			out = append(out, p)
		}
	}
	return out
}

// VillagePlayers returns living non-mafia in seating order.
func (s *State) VillagePlayers() []*Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Player, 0, len(s.order))
	for _, name := range s.order {
		if p := s.players[name]; p.alive && p.Role != RoleMafia {
			out = append(out, p)
		}
	}
	return out
}

// BeginPhase advances the phase machine. Entering NightAction starts a new
// round and clears the per-round working set.
func (s *State) BeginPhase(next Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseGameOver {
		return ErrGameOver
	}
	if !legalTransition(s.phase, next) {
		return ErrInvariant(fmt.Sprintf("illegal phase transition %s -> %s", s.phase, next))
	}
	if next == PhaseNightAction {
		s.round++
		s.nightActions = make(map[string]NightAction)
		s.votes = make(map[string]Vote)
		s.confirms = make(map[string]ConfirmVote)
		s.accused = ""
	}
	s.phase = next
	s.emitLocked(Event{Type: EventPhaseChanged, Kind: next.String()})
	return nil
}

func legalTransition(from, to Phase) bool {
	for _, p := range phaseTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// SubmitNightAction accepts one night action for the actor this round,
// overwriting any prior submission from the same actor.
func (s *State) SubmitNightAction(actor string, kind ActionKind, target, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseNightAction {
		return ErrInvalidAction(fmt.Sprintf("night action outside %s phase", PhaseNightAction))
	}
	p := s.players[actor]
	if p == nil {
		return ErrUnknownPlayer
	}
	if !p.alive {
		return ErrInvalidAction(fmt.Sprintf("actor %s is dead", actor))
	}
	if !p.CanPerform(kind) {
		return ErrInvalidAction(fmt.Sprintf("role %s cannot perform %s", p.Role, kind))
	}
	t := s.players[target]
	if t == nil {
		return ErrInvalidAction(fmt.Sprintf("unknown target %q", target))
	}
	if !t.alive {
		return ErrInvalidAction(fmt.Sprintf("target %s is dead", target))
	}
	if target == actor && kind != ActionSave {
		return ErrInvalidAction(fmt.Sprintf("%s cannot target self", kind))
	}
	if kind == ActionKill && t.Role == RoleMafia {
		return ErrInvalidAction("kill target must not be mafia")
	}

	act := NightAction{Round: s.round, Actor: actor, Kind: kind, Target: target, Reason: reason}
	s.nightActions[actor] = act
	s.actionLog = append(s.actionLog, act)
	s.emitLocked(Event{Type: EventNightSubmitted, Actor: actor, Target: target, Kind: kind.String(), Reason: reason})
	return nil
}

// ResolveNight applies the deterministic night order: majority mafia kill
// target (tie => nobody dies), doctor save negation, elimination, then
// detective results recorded as private knowledge.
func (s *State) ResolveNight() (NightResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseNightResolution {
		return NightResult{}, ErrInvariant(fmt.Sprintf("resolve night during %s", s.phase))
	}
	res := NightResult{Round: s.round}

	// 1. majority kill target among living mafia submissions
	counts := make(map[string]int)
	for actor, act := range s.nightActions {
		if act.Kind != ActionKill {
			continue
		}
		if p := s.players[actor]; p == nil || !p.alive || p.Role != RoleMafia {
			continue
		}
		counts[act.Target]++
	}
	res.KillCandidate = uniqueMax(counts)

	// 2. doctor negation
	if res.KillCandidate != "" {
		for actor, act := range s.nightActions {
			if act.Kind != ActionSave || act.Target != res.KillCandidate {
				continue
			}
			if p := s.players[actor]; p != nil && p.alive && p.Role == RoleDoctor {
				res.Saved = true
				break
			}
		}
	}

	// 3. elimination
	if res.KillCandidate != "" && !res.Saved {
		if err := s.eliminateLocked(res.KillCandidate); err != nil {
			return NightResult{}, err
		}
		res.Eliminated = res.KillCandidate
	}

	// 4. investigations become private knowledge, never a broadcast
	for actor, act := range s.nightActions {
		if act.Kind != ActionInvestigate {
			continue
		}
		p := s.players[actor]
		if p == nil || !p.alive || p.Role != RoleDetective {
			continue
		}
		inv := Investigation{Round: s.round, Target: act.Target, Role: s.players[act.Target].Role}
		s.investigations[actor] = append(s.investigations[actor], inv)
		s.emitLocked(Event{Type: EventInvestigated, Actor: actor, Target: act.Target, Kind: inv.Role.String()})
	}

	s.nightLog = append(s.nightLog, res)
	s.emitLocked(Event{Type: EventNightResolved, Target: res.Eliminated, Flag: res.Saved})
	if err := s.checkCountsLocked(); err != nil {
		return NightResult{}, err
	}
	return res, nil
}

// uniqueMax returns the single key with the highest count, or "" when the
// top count is shared. Ties never pick a winner arbitrarily.
func uniqueMax(counts map[string]int) string {
	best, bestN, dup := "", 0, false
	for k, n := range counts {
		switch {
		case n > bestN:
			best, bestN, dup = k, n, false
		case n == bestN && n > 0:
			dup = true
		}
	}
	if dup || bestN == 0 {
		return ""
	}
	return best
}

// AppendMessage posts a public discussion message with the next sequence
// number. Messages are visible to every later speaker of the same round.
func (s *State) AppendMessage(speaker, text string) (DiscussionMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseDayDiscussion {
		return DiscussionMessage{}, ErrInvalidAction(fmt.Sprintf("discussion outside %s phase", PhaseDayDiscussion))
	}
	return s.appendMessageLocked(speaker, text, false)
}

// AppendDefense posts the accused's defense, visible to all before the
// confirmation vote.
func (s *State) AppendDefense(speaker, text string) (DiscussionMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseDefense {
		return DiscussionMessage{}, ErrInvalidAction(fmt.Sprintf("defense outside %s phase", PhaseDefense))
	}
	if speaker != s.accused {
		return DiscussionMessage{}, ErrInvalidAction(fmt.Sprintf("%s is not the accused", speaker))
	}
	return s.appendMessageLocked(speaker, text, true)
}

func (s *State) appendMessageLocked(speaker, text string, defense bool) (DiscussionMessage, error) {
	p := s.players[speaker]
	if p == nil {
		return DiscussionMessage{}, ErrUnknownPlayer
	}
	if !p.alive {
		return DiscussionMessage{}, ErrInvalidAction(fmt.Sprintf("speaker %s is dead", speaker))
	}
	if text == "" {
		return DiscussionMessage{}, ErrInvalidAction("empty message")
	}
	s.msgSeq++
	msg := DiscussionMessage{Seq: s.msgSeq, Round: s.round, Speaker: speaker, Text: text, Defense: defense}
	s.messages = append(s.messages, msg)
	evType := EventMessagePosted
	if defense {
		evType = EventDefensePosted
	}
	s.emitLocked(Event{Type: evType, Actor: speaker, Text: text})
	return msg, nil
}

// RecordVote accepts one vote per living voter, overwriting on resubmission.
// Target AbstainTarget records an abstention.
func (s *State) RecordVote(voter, target, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseVoting {
		return ErrInvalidAction(fmt.Sprintf("vote outside %s phase", PhaseVoting))
	}
	p := s.players[voter]
	if p == nil {
		return ErrUnknownPlayer
	}
	if !p.alive {
		return ErrInvalidAction(fmt.Sprintf("voter %s is dead", voter))
	}
	if target != AbstainTarget {
		if target == voter {
			return ErrInvalidAction("cannot vote for self")
		}
		t := s.players[target]
		if t == nil {
			return ErrInvalidAction(fmt.Sprintf("unknown vote target %q", target))
		}
		if !t.alive {
			return ErrInvalidAction(fmt.Sprintf("vote target %s is dead", target))
		}
	}

	v := Vote{Round: s.round, Voter: voter, Target: target, Reason: reason}
	s.votes[voter] = v
	s.voteLog = append(s.voteLog, v)
	s.emitLocked(Event{Type: EventVoteRecorded, Actor: voter, Target: target, Reason: reason})
	return nil
}

// ResolveVote determines the accused: the candidate whose vote count exceeds
// half of the living players. No strict majority means no accusation.
func (s *State) ResolveVote() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseVoting {
		return "", ErrInvariant(fmt.Sprintf("resolve vote during %s", s.phase))
	}
	living := len(s.livingLocked())
	counts := make(map[string]int)
	for voter, v := range s.votes {
		if p := s.players[voter]; p == nil || !p.alive {
			continue
		}
		if v.Target != AbstainTarget {
			counts[v.Target]++
		}
	}
	accused := ""
	for target, n := range counts {
		if n*2 > living {
			accused = target
			break
		}
	}
	s.accused = accused
	s.emitLocked(Event{Type: EventVoteResolved, Target: accused})
	return accused, nil
}

// Accused returns the current round's accused player, or "".
func (s *State) Accused() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accused
}

// RecordConfirmVote accepts one confirmation vote per living voter after the
// defense, overwriting on resubmission.
func (s *State) RecordConfirmVote(voter string, affirm, abstain bool, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseDefense {
		return ErrInvalidAction(fmt.Sprintf("confirmation vote outside %s phase", PhaseDefense))
	}
	if s.accused == "" {
		return ErrInvariant("confirmation vote with no accused")
	}
	p := s.players[voter]
	if p == nil {
		return ErrUnknownPlayer
	}
	if !p.alive {
		return ErrInvalidAction(fmt.Sprintf("voter %s is dead", voter))
	}

	cv := ConfirmVote{Round: s.round, Voter: voter, Affirm: affirm && !abstain, Abstain: abstain, Reason: reason}
	s.confirms[voter] = cv
	s.confirmLog = append(s.confirmLog, cv)
	s.emitLocked(Event{Type: EventConfirmRecorded, Actor: voter, Target: s.accused, Flag: cv.Affirm, Reason: reason})
	return nil
}

// ResolveDay settles the day: the accused is eliminated only when affirming
// confirmation votes form a strict majority of living players.
func (s *State) ResolveDay() (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseDayElimination {
		return nil, ErrInvariant(fmt.Sprintf("resolve day during %s", s.phase))
	}
	if s.accused == "" {
		s.emitLocked(Event{Type: EventDayResolved})
		return nil, nil
	}

	living := len(s.livingLocked())
	affirms := 0
	for voter, cv := range s.confirms {
		if p := s.players[voter]; p == nil || !p.alive {
			continue
		}
		if cv.Affirm {
			affirms++
		}
	}
	confirmed := affirms*2 > living
	if !confirmed {
		s.emitLocked(Event{Type: EventDayResolved, Target: s.accused, Flag: false})
		return nil, nil
	}

	name := s.accused
	if err := s.eliminateLocked(name); err != nil {
		return nil, err
	}
	s.emitLocked(Event{Type: EventDayResolved, Target: name, Flag: true})
	if err := s.checkCountsLocked(); err != nil {
		return nil, err
	}
	return s.players[name], nil
}

// CheckWinCondition is a pure function of living role counts: village wins
// when no mafia remain; mafia wins when they match or outnumber the village.
func (s *State) CheckWinCondition() Winner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winConditionLocked()
}

func (s *State) winConditionLocked() Winner {
	mafia, village := 0, 0
	for _, p := range s.players {
		if !p.alive {
			continue
		}
		if p.Role == RoleMafia {
			mafia++
		} else {
			village++
		}
	}
	switch {
	case mafia == 0:
		return WinnerVillage
	case mafia >= village:
		return WinnerMafia
	default:
		return WinnerNone
	}
}

// FinishGame records the winner and moves to GameOver.
func (s *State) FinishGame(w Winner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseGameOver {
		return ErrGameOver
	}
	if !legalTransition(s.phase, PhaseGameOver) {
		return ErrInvariant(fmt.Sprintf("illegal phase transition %s -> %s", s.phase, PhaseGameOver))
	}
	s.phase = PhaseGameOver
	s.winner = w
	s.emitLocked(Event{Type: EventPhaseChanged, Kind: PhaseGameOver.String()})
	s.emitLocked(Event{Type: EventGameEnded, Kind: string(w)})
	return nil
}

// RejectDecision records a structurally invalid decision in the audit stream.
func (s *State) RejectDecision(actor, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(Event{Type: EventDecisionRejected, Actor: actor, Reason: reason})
}

// RecordAbstention records that a decision point was resolved as abstention.
func (s *State) RecordAbstention(actor, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(Event{Type: EventDecisionAbstained, Actor: actor, Reason: reason})
}

func (s *State) eliminateLocked(name string) error {
	p := s.players[name]
	if p == nil {
		return ErrInvariant(fmt.Sprintf("eliminating unknown player %q", name))
	}
	if !p.alive {
		return ErrInvariant(fmt.Sprintf("eliminating dead player %s", name))
	}
	p.alive = false
	s.eliminated = append(s.eliminated, name)
	s.emitLocked(Event{Type: EventPlayerEliminated, Target: name})
	return nil
}

// checkCountsLocked verifies the alive bookkeeping after a resolution step.
func (s *State) checkCountsLocked() error {
	living := 0
	for _, p := range s.players {
		if p.alive {
			living++
		}
	}
	if living+len(s.eliminated) != len(s.players) {
		return ErrInvariant(fmt.Sprintf("living %d + eliminated %d != total %d", living, len(s.eliminated), len(s.players)))
	}
	return nil
}

func (s *State) emitLocked(ev Event) {
	s.eventSeq++
	ev.Seq = s.eventSeq
	ev.Round = s.round
	ev.Phase = s.phase
	ev.Time = s.now()
	s.sink.Emit(ev)
}
