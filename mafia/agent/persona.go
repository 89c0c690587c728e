package agent

// PersonalityProfile defines the tunable parameters for a RuleBrain.
type PersonalityProfile struct {
	Suspicion  float64 `json:"suspicion"`  // 0.0–1.0: eagerness to accuse
	Boldness   float64 `json:"boldness"`   // 0.0–1.0: aggressive targeting vs caution
	Chattiness float64 `json:"chattiness"` // 0.0–1.0: probability of speaking per poll
	Loyalty    float64 `json:"loyalty"`    // 0.0–1.0: mafia: stick with team proposals
	Randomness float64 `json:"randomness"` // 0.0–1.0: decision noise
}

// Persona defines a named character handed to brains and prompts.
type Persona struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Tagline string             `json:"tagline"`
	Voice   string             `json:"voice"` // free-text style notes for the oracle prompt
	Profile PersonalityProfile `json:"profile"`
}

// DefaultPersonas is the built-in character set, available without a
// personas file.
func DefaultPersonas() []*Persona {
	return []*Persona{
		{
			ID: "analytical", Name: "The Analyst",
			Tagline: "Methodical and probability-driven",
			Voice:   "Speaks in careful, evidence-based statements. Cites voting patterns.",
			Profile: PersonalityProfile{Suspicion: 0.6, Boldness: 0.4, Chattiness: 0.6, Loyalty: 0.5, Randomness: 0.1},
		},
		{
			ID: "aggressive", Name: "The Accuser",
			Tagline: "Loud, confrontational, always pointing fingers",
			Voice:   "Blunt and forceful. Makes direct accusations early.",
			Profile: PersonalityProfile{Suspicion: 0.9, Boldness: 0.9, Chattiness: 0.9, Loyalty: 0.3, Randomness: 0.3},
		},
		{
			ID: "cautious", Name: "The Careful One",
			Tagline: "Slow to accuse, quick to doubt",
			Voice:   "Hedges everything. Prefers waiting for more information.",
			Profile: PersonalityProfile{Suspicion: 0.3, Boldness: 0.2, Chattiness: 0.4, Loyalty: 0.7, Randomness: 0.2},
		},
		{
			ID: "charismatic", Name: "The Smooth Talker",
			Tagline: "Persuasive and well-liked",
			Voice:   "Warm and disarming. Builds coalitions, deflects gracefully.",
			Profile: PersonalityProfile{Suspicion: 0.5, Boldness: 0.6, Chattiness: 0.8, Loyalty: 0.6, Randomness: 0.2},
		},
		{
			ID: "suspicious", Name: "The Paranoid",
			Tagline: "Trusts absolutely nobody",
			Voice:   "Sees plots everywhere. Questions every statement.",
			Profile: PersonalityProfile{Suspicion: 1.0, Boldness: 0.5, Chattiness: 0.7, Loyalty: 0.2, Randomness: 0.4},
		},
		{
			ID: "quiet", Name: "The Observer",
			Tagline: "Rarely speaks, always watching",
			Voice:   "Terse. Only speaks when certain.",
			Profile: PersonalityProfile{Suspicion: 0.5, Boldness: 0.3, Chattiness: 0.2, Loyalty: 0.6, Randomness: 0.1},
		},
		{
			ID: "logical", Name: "The Professor",
			Tagline: "Pure deduction, no emotion",
			Voice:   "Formal and structured. Lays out arguments step by step.",
			Profile: PersonalityProfile{Suspicion: 0.6, Boldness: 0.5, Chattiness: 0.5, Loyalty: 0.5, Randomness: 0.0},
		},
		{
			ID: "emotional", Name: "The Firebrand",
			Tagline: "Leads with gut feeling",
			Voice:   "Dramatic and reactive. Swings between trust and outrage.",
			Profile: PersonalityProfile{Suspicion: 0.7, Boldness: 0.7, Chattiness: 0.8, Loyalty: 0.4, Randomness: 0.6},
		},
	}
}
