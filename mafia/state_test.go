package mafia

import (
	"errors"
	"testing"
)

// sixSeats builds a fixed roster: Alice+Bruno mafia, Clara doctor,
// Diego detective, Elena+Felix villagers.
func sixSeats() (Config, map[string]Role) {
	cfg := Config{
		Players: []Seat{
			{Name: "Alice", Persona: "aggressive"},
			{Name: "Bruno", Persona: "quiet"},
			{Name: "Clara", Persona: "cautious"},
			{Name: "Diego", Persona: "analytical"},
			{Name: "Elena", Persona: "suspicious"},
			{Name: "Felix", Persona: "logical"},
		},
		NumMafia:         2,
		DiscussionRounds: 2,
		Seed:             7,
	}
	roles := map[string]Role{
		"Alice": RoleMafia,
		"Bruno": RoleMafia,
		"Clara": RoleDoctor,
		"Diego": RoleDetective,
		"Elena": RoleVillager,
		"Felix": RoleVillager,
	}
	return cfg, roles
}

func newTestState(t *testing.T) *State {
	t.Helper()
	cfg, roles := sixSeats()
	s, err := NewStateWithRoles(cfg, roles, NopSink())
	if err != nil {
		t.Fatalf("NewStateWithRoles: %v", err)
	}
	return s
}

func beginNight(t *testing.T, s *State) {
	t.Helper()
	if err := s.BeginPhase(PhaseNightAction); err != nil {
		t.Fatalf("BeginPhase(night): %v", err)
	}
}

func TestRoleDealCounts(t *testing.T) {
	cfg, _ := sixSeats()
	s, err := NewState(cfg, NopSink())
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	counts := map[Role]int{}
	for _, seat := range cfg.Players {
		counts[s.PlayerByName(seat.Name).Role]++
	}
	if counts[RoleMafia] != 2 || counts[RoleDoctor] != 1 || counts[RoleDetective] != 1 || counts[RoleVillager] != 2 {
		t.Fatalf("bad role distribution: %v", counts)
	}
}

func TestRoleDealDeterministicBySeed(t *testing.T) {
	cfg, _ := sixSeats()
	a, _ := NewState(cfg, NopSink())
	b, _ := NewState(cfg, NopSink())
	for _, seat := range cfg.Players {
		if a.PlayerByName(seat.Name).Role != b.PlayerByName(seat.Name).Role {
			t.Fatalf("same seed dealt different roles for %s", seat.Name)
		}
	}
}

func TestNightKillMajority(t *testing.T) {
	s := newTestState(t)
	beginNight(t, s)

	if err := s.SubmitNightAction("Alice", ActionKill, "Elena", ""); err != nil {
		t.Fatalf("Alice kill: %v", err)
	}
	if err := s.SubmitNightAction("Bruno", ActionKill, "Elena", ""); err != nil {
		t.Fatalf("Bruno kill: %v", err)
	}
	if err := s.BeginPhase(PhaseNightResolution); err != nil {
		t.Fatalf("BeginPhase: %v", err)
	}
	res, err := s.ResolveNight()
	if err != nil {
		t.Fatalf("ResolveNight: %v", err)
	}
	if res.Eliminated != "Elena" {
		t.Fatalf("expected Elena eliminated, got %q", res.Eliminated)
	}
	if s.PlayerByName("Elena").Alive() {
		t.Fatalf("Elena should be dead")
	}
}

func TestNightKillTieKillsNobody(t *testing.T) {
	s := newTestState(t)
	beginNight(t, s)

	s.SubmitNightAction("Alice", ActionKill, "Elena", "")
	s.SubmitNightAction("Bruno", ActionKill, "Felix", "")
	s.BeginPhase(PhaseNightResolution)
	res, err := s.ResolveNight()
	if err != nil {
		t.Fatalf("ResolveNight: %v", err)
	}
	if res.Eliminated != "" || res.KillCandidate != "" {
		t.Fatalf("1-1 split must kill nobody, got %+v", res)
	}
	if len(s.LivingPlayers()) != 6 {
		t.Fatalf("living count changed on a tie")
	}
}

func TestDoctorSaveNegatesKill(t *testing.T) {
	s := newTestState(t)
	beginNight(t, s)

	s.SubmitNightAction("Alice", ActionKill, "Elena", "")
	s.SubmitNightAction("Bruno", ActionKill, "Elena", "")
	if err := s.SubmitNightAction("Clara", ActionSave, "Elena", ""); err != nil {
		t.Fatalf("Clara save: %v", err)
	}
	s.BeginPhase(PhaseNightResolution)
	res, err := s.ResolveNight()
	if err != nil {
		t.Fatalf("ResolveNight: %v", err)
	}
	if !res.Saved || res.Eliminated != "" {
		t.Fatalf("expected save, got %+v", res)
	}
	if !s.PlayerByName("Elena").Alive() {
		t.Fatalf("Elena should have survived")
	}
}

func TestDoctorMaySaveSelf(t *testing.T) {
	s := newTestState(t)
	beginNight(t, s)

	s.SubmitNightAction("Alice", ActionKill, "Clara", "")
	s.SubmitNightAction("Bruno", ActionKill, "Clara", "")
	if err := s.SubmitNightAction("Clara", ActionSave, "Clara", ""); err != nil {
		t.Fatalf("self save rejected: %v", err)
	}
	s.BeginPhase(PhaseNightResolution)
	res, _ := s.ResolveNight()
	if !res.Saved {
		t.Fatalf("self save had no effect: %+v", res)
	}
}

func TestNightResubmissionOverwrites(t *testing.T) {
	s := newTestState(t)
	beginNight(t, s)

	s.SubmitNightAction("Alice", ActionKill, "Elena", "")
	s.SubmitNightAction("Alice", ActionKill, "Felix", "")
	s.SubmitNightAction("Bruno", ActionKill, "Felix", "")
	s.BeginPhase(PhaseNightResolution)
	res, _ := s.ResolveNight()
	if res.Eliminated != "Felix" {
		t.Fatalf("resubmission did not overwrite: %+v", res)
	}
}

func TestNightActionValidation(t *testing.T) {
	s := newTestState(t)
	beginNight(t, s)

	cases := []struct {
		name   string
		actor  string
		kind   ActionKind
		target string
	}{
		{"villager cannot act", "Elena", ActionKill, "Felix"},
		{"mafia cannot investigate", "Alice", ActionInvestigate, "Felix"},
		{"kill target must not be mafia", "Alice", ActionKill, "Bruno"},
		{"detective cannot target self", "Diego", ActionInvestigate, "Diego"},
		{"unknown target", "Alice", ActionKill, "Nobody"},
	}
	for _, tc := range cases {
		err := s.SubmitNightAction(tc.actor, tc.kind, tc.target, "")
		var invalid InvalidActionError
		if !errors.As(err, &invalid) {
			t.Errorf("%s: expected InvalidActionError, got %v", tc.name, err)
		}
	}
}

func TestInvestigationIsPrivate(t *testing.T) {
	s := newTestState(t)
	beginNight(t, s)

	s.SubmitNightAction("Diego", ActionInvestigate, "Alice", "")
	s.BeginPhase(PhaseNightResolution)
	if _, err := s.ResolveNight(); err != nil {
		t.Fatalf("ResolveNight: %v", err)
	}

	diego, err := s.ViewFor("Diego")
	if err != nil {
		t.Fatalf("ViewFor: %v", err)
	}
	if len(diego.Investigations) != 1 || diego.Investigations[0].Role != RoleMafia {
		t.Fatalf("detective missing own result: %+v", diego.Investigations)
	}

	elena, _ := s.ViewFor("Elena")
	if len(elena.Investigations) != 0 {
		t.Fatalf("villager can see investigations")
	}
}

// advance drives a fresh state through a quiet night into the voting phase.
func advanceToVoting(t *testing.T, s *State) {
	t.Helper()
	beginNight(t, s)
	if err := s.BeginPhase(PhaseNightResolution); err != nil {
		t.Fatalf("to resolution: %v", err)
	}
	if _, err := s.ResolveNight(); err != nil {
		t.Fatalf("ResolveNight: %v", err)
	}
	if err := s.BeginPhase(PhaseDayDiscussion); err != nil {
		t.Fatalf("to discussion: %v", err)
	}
	if err := s.BeginPhase(PhaseVoting); err != nil {
		t.Fatalf("to voting: %v", err)
	}
}

func TestVoteRequiresStrictMajority(t *testing.T) {
	s := newTestState(t)
	advanceToVoting(t, s)

	// 3 of 6 votes is not a strict majority.
	s.RecordVote("Alice", "Elena", "")
	s.RecordVote("Bruno", "Elena", "")
	s.RecordVote("Clara", "Elena", "")
	s.RecordVote("Diego", AbstainTarget, "")
	s.RecordVote("Elena", "Alice", "")
	s.RecordVote("Felix", AbstainTarget, "")
	accused, err := s.ResolveVote()
	if err != nil {
		t.Fatalf("ResolveVote: %v", err)
	}
	if accused != "" {
		t.Fatalf("3/6 must not accuse, got %q", accused)
	}
}

func TestVoteStrictMajorityAccuses(t *testing.T) {
	s := newTestState(t)
	advanceToVoting(t, s)

	for _, voter := range []string{"Alice", "Bruno", "Clara", "Diego"} {
		if err := s.RecordVote(voter, "Elena", ""); err != nil {
			t.Fatalf("vote %s: %v", voter, err)
		}
	}
	accused, _ := s.ResolveVote()
	if accused != "Elena" {
		t.Fatalf("4/6 should accuse Elena, got %q", accused)
	}
	if s.Accused() != "Elena" {
		t.Fatalf("accused not recorded")
	}
}

func TestVoteValidation(t *testing.T) {
	s := newTestState(t)
	advanceToVoting(t, s)

	if err := s.RecordVote("Alice", "Alice", ""); err == nil {
		t.Fatalf("self-vote accepted")
	}
	if err := s.RecordVote("Alice", AbstainTarget, "unsure"); err != nil {
		t.Fatalf("abstain rejected: %v", err)
	}
	// Overwrite keeps one vote per voter.
	s.RecordVote("Alice", "Elena", "")
	s.RecordVote("Alice", "Felix", "")
	for _, voter := range []string{"Bruno", "Clara", "Diego"} {
		s.RecordVote(voter, "Felix", "")
	}
	accused, _ := s.ResolveVote()
	if accused != "Felix" {
		t.Fatalf("overwritten vote not counted, accused %q", accused)
	}
}

func TestConfirmVoteEliminatesOnMajority(t *testing.T) {
	s := newTestState(t)
	advanceToVoting(t, s)

	for _, voter := range []string{"Alice", "Bruno", "Clara", "Diego"} {
		s.RecordVote(voter, "Elena", "")
	}
	s.ResolveVote()
	if err := s.BeginPhase(PhaseDefense); err != nil {
		t.Fatalf("to defense: %v", err)
	}
	if _, err := s.AppendDefense("Elena", "it was not me"); err != nil {
		t.Fatalf("defense: %v", err)
	}
	if _, err := s.AppendDefense("Felix", "me neither"); err == nil {
		t.Fatalf("non-accused defense accepted")
	}

	for _, voter := range []string{"Alice", "Bruno", "Clara", "Diego"} {
		s.RecordConfirmVote(voter, true, false, "")
	}
	s.RecordConfirmVote("Elena", false, false, "")
	s.RecordConfirmVote("Felix", false, true, "")

	if err := s.BeginPhase(PhaseDayElimination); err != nil {
		t.Fatalf("to elimination: %v", err)
	}
	eliminated, err := s.ResolveDay()
	if err != nil {
		t.Fatalf("ResolveDay: %v", err)
	}
	if eliminated == nil || eliminated.Name != "Elena" {
		t.Fatalf("expected Elena eliminated, got %+v", eliminated)
	}
}

func TestConfirmVoteMinoritySpares(t *testing.T) {
	s := newTestState(t)
	advanceToVoting(t, s)

	for _, voter := range []string{"Alice", "Bruno", "Clara", "Diego"} {
		s.RecordVote(voter, "Elena", "")
	}
	s.ResolveVote()
	s.BeginPhase(PhaseDefense)
	s.AppendDefense("Elena", "look at the voting record")

	// Only 3 of 6 affirm: not a strict majority.
	s.RecordConfirmVote("Alice", true, false, "")
	s.RecordConfirmVote("Bruno", true, false, "")
	s.RecordConfirmVote("Clara", true, false, "")
	s.RecordConfirmVote("Diego", false, false, "")
	s.RecordConfirmVote("Elena", false, false, "")
	s.RecordConfirmVote("Felix", false, false, "")

	s.BeginPhase(PhaseDayElimination)
	eliminated, err := s.ResolveDay()
	if err != nil {
		t.Fatalf("ResolveDay: %v", err)
	}
	if eliminated != nil {
		t.Fatalf("3/6 affirms must spare, eliminated %s", eliminated.Name)
	}
	if !s.PlayerByName("Elena").Alive() {
		t.Fatalf("Elena should be alive")
	}
}

func TestNoAccusedSkipsElimination(t *testing.T) {
	s := newTestState(t)
	advanceToVoting(t, s)

	for _, seat := range s.Config().Players {
		s.RecordVote(seat.Name, AbstainTarget, "")
	}
	s.ResolveVote()
	if err := s.BeginPhase(PhaseDayElimination); err != nil {
		t.Fatalf("to elimination: %v", err)
	}
	eliminated, err := s.ResolveDay()
	if err != nil || eliminated != nil {
		t.Fatalf("expected quiet day, got %+v err=%v", eliminated, err)
	}
}

func TestWinConditions(t *testing.T) {
	s := newTestState(t)
	if w := s.CheckWinCondition(); w != WinnerNone {
		t.Fatalf("fresh game has winner %q", w)
	}

	// Eliminate both mafia: village wins.
	beginNight(t, s)
	s.BeginPhase(PhaseNightResolution)
	s.ResolveNight()
	s.BeginPhase(PhaseDayDiscussion)
	s.BeginPhase(PhaseVoting)
	for _, voter := range []string{"Clara", "Diego", "Elena", "Felix"} {
		s.RecordVote(voter, "Alice", "")
	}
	s.ResolveVote()
	s.BeginPhase(PhaseDefense)
	s.AppendDefense("Alice", "this is a mistake")
	for _, voter := range []string{"Clara", "Diego", "Elena", "Felix"} {
		s.RecordConfirmVote(voter, true, false, "")
	}
	s.BeginPhase(PhaseDayElimination)
	s.ResolveDay()
	if w := s.CheckWinCondition(); w != WinnerNone {
		t.Fatalf("one mafia still alive, winner %q", w)
	}

	s.BeginPhase(PhaseNightAction)
	s.BeginPhase(PhaseNightResolution)
	s.ResolveNight()
	s.BeginPhase(PhaseDayDiscussion)
	s.BeginPhase(PhaseVoting)
	for _, voter := range []string{"Clara", "Diego", "Elena"} {
		s.RecordVote(voter, "Bruno", "")
	}
	s.ResolveVote()
	s.BeginPhase(PhaseDefense)
	s.AppendDefense("Bruno", "you got the wrong man")
	for _, voter := range []string{"Clara", "Diego", "Elena"} {
		s.RecordConfirmVote(voter, true, false, "")
	}
	s.BeginPhase(PhaseDayElimination)
	s.ResolveDay()
	if w := s.CheckWinCondition(); w != WinnerVillage {
		t.Fatalf("no mafia left, winner %q", w)
	}
	if err := s.FinishGame(WinnerVillage); err != nil {
		t.Fatalf("FinishGame: %v", err)
	}
	if s.Phase() != PhaseGameOver || s.Winner() != WinnerVillage {
		t.Fatalf("game not finished: phase=%s winner=%q", s.Phase(), s.Winner())
	}
}

func TestMafiaWinsAtParity(t *testing.T) {
	cfg := Config{
		Players: []Seat{
			{Name: "Alice", Persona: "aggressive"},
			{Name: "Clara", Persona: "cautious"},
			{Name: "Diego", Persona: "analytical"},
			{Name: "Elena", Persona: "suspicious"},
		},
		NumMafia:         1,
		DiscussionRounds: 1,
		Seed:             3,
	}
	roles := map[string]Role{
		"Alice": RoleMafia,
		"Clara": RoleDoctor,
		"Diego": RoleDetective,
		"Elena": RoleVillager,
	}
	s, err := NewStateWithRoles(cfg, roles, NopSink())
	if err != nil {
		t.Fatalf("NewStateWithRoles: %v", err)
	}

	beginNight(t, s)
	s.SubmitNightAction("Alice", ActionKill, "Elena", "")
	s.BeginPhase(PhaseNightResolution)
	s.ResolveNight()
	if w := s.CheckWinCondition(); w != WinnerNone {
		t.Fatalf("1 mafia vs 2 village is not over, winner %q", w)
	}

	s.BeginPhase(PhaseDayDiscussion)
	s.BeginPhase(PhaseVoting)
	s.ResolveVote()
	s.BeginPhase(PhaseDayElimination)
	s.ResolveDay()
	s.BeginPhase(PhaseNightAction)
	s.SubmitNightAction("Alice", ActionKill, "Diego", "")
	s.BeginPhase(PhaseNightResolution)
	s.ResolveNight()

	// 1 mafia vs 1 villager: parity, mafia wins even against the doctor.
	if w := s.CheckWinCondition(); w != WinnerMafia {
		t.Fatalf("parity should be a mafia win, got %q", w)
	}
}

func TestIllegalPhaseTransition(t *testing.T) {
	s := newTestState(t)
	err := s.BeginPhase(PhaseVoting)
	if !IsInvariantViolation(err) {
		t.Fatalf("setup->voting must violate, got %v", err)
	}
	beginNight(t, s)
	if err := s.BeginPhase(PhaseDayDiscussion); !IsInvariantViolation(err) {
		t.Fatalf("night->discussion must violate, got %v", err)
	}
}

func TestDeadPlayersCannotParticipate(t *testing.T) {
	s := newTestState(t)
	beginNight(t, s)
	s.SubmitNightAction("Alice", ActionKill, "Elena", "")
	s.SubmitNightAction("Bruno", ActionKill, "Elena", "")
	s.BeginPhase(PhaseNightResolution)
	s.ResolveNight()
	s.BeginPhase(PhaseDayDiscussion)

	if _, err := s.AppendMessage("Elena", "I am somehow still talking"); err == nil {
		t.Fatalf("dead speaker accepted")
	}
	s.BeginPhase(PhaseVoting)
	if err := s.RecordVote("Elena", "Alice", ""); err == nil {
		t.Fatalf("dead voter accepted")
	}
	if err := s.RecordVote("Alice", "Elena", ""); err == nil {
		t.Fatalf("vote for dead target accepted")
	}
}

func TestNewRoundClearsWorkingSet(t *testing.T) {
	s := newTestState(t)
	advanceToVoting(t, s)
	for _, voter := range []string{"Alice", "Bruno", "Clara", "Diego"} {
		s.RecordVote(voter, "Elena", "")
	}
	s.ResolveVote()
	s.BeginPhase(PhaseDayElimination)
	// No confirmation votes were cast, so nobody dies even with an accused.
	if eliminated, _ := s.ResolveDay(); eliminated != nil {
		t.Fatalf("elimination without confirms")
	}

	s.BeginPhase(PhaseNightAction)
	if s.Round() != 2 {
		t.Fatalf("round not advanced: %d", s.Round())
	}
	if s.Accused() != "" {
		t.Fatalf("accused survived into the new round")
	}
}

func TestEventStreamOrdering(t *testing.T) {
	var events []Event
	cfg, roles := sixSeats()
	s, err := NewStateWithRoles(cfg, roles, SinkFunc(func(ev Event) { events = append(events, ev) }))
	if err != nil {
		t.Fatalf("NewStateWithRoles: %v", err)
	}
	beginNight(t, s)
	s.SubmitNightAction("Alice", ActionKill, "Elena", "")
	s.BeginPhase(PhaseNightResolution)
	s.ResolveNight()

	if len(events) == 0 {
		t.Fatalf("no events emitted")
	}
	for i, ev := range events {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
	}
	if events[0].Type != EventGameCreated {
		t.Fatalf("first event is %s", events[0].Type)
	}
	last := events[len(events)-1].Type
	if last != EventNightResolved && last != EventPlayerEliminated {
		t.Fatalf("unexpected final event %s", last)
	}
}
