package mafia

// Role 玩家阵营角色
type Role byte

const (
	RoleMafia     Role = 0
	RoleDoctor    Role = 1
	RoleDetective Role = 2
	RoleVillager  Role = 3
)

var RoleDictionary = map[Role]string{
	RoleMafia:     "mafia",
	RoleDoctor:    "doctor",
	RoleDetective: "detective",
	RoleVillager:  "villager",
}

func (r Role) String() string { return RoleDictionary[r] }

// NightCapable reports whether the role submits a night action.
func (r Role) NightCapable() bool { return r != RoleVillager }

// Phase 游戏阶段
type Phase byte

const (
	PhaseSetup           Phase = 0
	PhaseNightAction     Phase = 1
	PhaseNightResolution Phase = 2
	PhaseDayDiscussion   Phase = 3
	PhaseVoting          Phase = 4
	PhaseDefense         Phase = 5
	PhaseDayElimination  Phase = 6
	PhaseGameOver        Phase = 7
)

var PhaseDictionary = map[Phase]string{
	PhaseSetup:           "setup",
	PhaseNightAction:     "night_action",
	PhaseNightResolution: "night_resolution",
	PhaseDayDiscussion:   "day_discussion",
	PhaseVoting:          "voting",
	PhaseDefense:         "defense",
	PhaseDayElimination:  "day_elimination",
	PhaseGameOver:        "game_over",
}

func (p Phase) String() string { return PhaseDictionary[p] }

// phaseTransitions is the legal phase graph. Any transition outside this
// table is a core bug and surfaces as a StateInvariantViolation.
var phaseTransitions = map[Phase][]Phase{
	PhaseSetup:           {PhaseNightAction},
	PhaseNightAction:     {PhaseNightResolution},
	PhaseNightResolution: {PhaseDayDiscussion, PhaseGameOver},
	PhaseDayDiscussion:   {PhaseVoting},
	PhaseVoting:          {PhaseDefense, PhaseDayElimination},
	PhaseDefense:         {PhaseDayElimination},
	PhaseDayElimination:  {PhaseNightAction, PhaseGameOver},
}

// ActionKind 夜间行动类型
type ActionKind byte

const (
	ActionKill        ActionKind = 1
	ActionSave        ActionKind = 2
	ActionInvestigate ActionKind = 3
)

var ActionKindDictionary = map[ActionKind]string{
	ActionKill:        "kill",
	ActionSave:        "save",
	ActionInvestigate: "investigate",
}

func (k ActionKind) String() string { return ActionKindDictionary[k] }

// nightCapabilities maps each role to the single night action it may submit.
var nightCapabilities = map[Role]ActionKind{
	RoleMafia:     ActionKill,
	RoleDoctor:    ActionSave,
	RoleDetective: ActionInvestigate,
}

// Winner of a finished game. Empty means the game is still running.
type Winner string

const (
	WinnerNone    Winner = ""
	WinnerMafia   Winner = "mafia"
	WinnerVillage Winner = "village"
)

// AbstainTarget is the sentinel vote target for an abstention.
const AbstainTarget = ""

// NightAction is a single night submission. Resubmission by the same actor
// in the same round overwrites, never accumulates.
type NightAction struct {
	Round  int        `json:"round"`
	Actor  string     `json:"actor"`
	Kind   ActionKind `json:"kind"`
	Target string     `json:"target"`
	Reason string     `json:"reason,omitempty"`
}

// DiscussionMessage is one utterance in the public log. Seq is monotonic
// across the whole game and defines replay order.
type DiscussionMessage struct {
	Seq     uint64 `json:"seq"`
	Round   int    `json:"round"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Defense bool   `json:"defense,omitempty"`
}

// Vote is one live vote. Target == AbstainTarget records an abstention.
type Vote struct {
	Round  int    `json:"round"`
	Voter  string `json:"voter"`
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

// ConfirmVote is a yes/no vote on eliminating the accused after defense.
type ConfirmVote struct {
	Round   int    `json:"round"`
	Voter   string `json:"voter"`
	Affirm  bool   `json:"affirm"`
	Abstain bool   `json:"abstain,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Investigation is a detective's private night result.
type Investigation struct {
	Round  int    `json:"round"`
	Target string `json:"target"`
	Role   Role   `json:"role"`
}

// NightResult is the outcome of resolving one night.
type NightResult struct {
	Round         int
	KillCandidate string // majority mafia target, empty on tie or no votes
	Saved         bool   // doctor negated the kill
	Eliminated    string // empty if nobody died
}
