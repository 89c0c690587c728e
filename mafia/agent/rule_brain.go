package agent

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"mafia-lite/mafia"
)

// RuleBrain makes decisions from a PersonalityProfile with a seeded RNG.
// It needs no network and keeps full games deterministic under a fixed seed,
// which is what the engine tests and offline runs use.
type RuleBrain struct {
	Persona *Persona
	rng     *rand.Rand
}

// NewRuleBrain creates a RuleBrain from a persona definition.
func NewRuleBrain(persona *Persona, seed int64) *RuleBrain {
	return &RuleBrain{
		Persona: persona,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (b *RuleBrain) Name() string { return b.Persona.Name }

// Decide implements Brain. Target choices are weighted by suspicion built
// from the public record; message text is templated, since utterance quality
// is not what this brain is for.
func (b *RuleBrain) Decide(_ context.Context, req Request) (Decision, error) {
	switch req.Kind {
	case RequestNightAction:
		return b.decideNight(req), nil
	case RequestDiscussion:
		return b.decideDiscussion(req), nil
	case RequestVote:
		return b.decideVote(req), nil
	case RequestDefense:
		return b.decideDefense(req), nil
	case RequestConfirm:
		return b.decideConfirm(req), nil
	default:
		return Decision{}, fmt.Errorf("unknown request kind %d", req.Kind)
	}
}

func (b *RuleBrain) decideNight(req Request) Decision {
	if len(req.Candidates) == 0 {
		return Decision{Abstain: true, Reason: "no valid target"}
	}
	p := b.Persona.Profile
	view := req.View

	switch view.Role {
	case mafia.RoleMafia:
		// Loyal mafia pile onto an existing team proposal for this round.
		if p.Loyalty > b.rng.Float64() {
			for i := len(view.TeamProposals) - 1; i >= 0; i-- {
				prop := view.TeamProposals[i]
				if prop.Round == view.Round && prop.Actor != view.Self && contains(req.Candidates, prop.Target) {
					return Decision{Target: prop.Target, Reason: "following the team"}
				}
			}
		}
		return Decision{Target: b.pickSuspect(view, req.Candidates), Reason: "loudest threat to us"}

	case mafia.RoleDoctor:
		// Cautious doctors guard themselves, bold ones guard the loudest
		// villager voice.
		if b.rng.Float64() > p.Boldness && contains(req.Candidates, view.Self) {
			return Decision{Target: view.Self, Reason: "staying safe"}
		}
		return Decision{Target: b.pickVocal(req), Reason: "protecting a likely target"}

	case mafia.RoleDetective:
		// Prefer names not yet investigated.
		seen := make(map[string]bool, len(view.Investigations))
		for _, inv := range view.Investigations {
			seen[inv.Target] = true
		}
		fresh := make([]string, 0, len(req.Candidates))
		for _, c := range req.Candidates {
			if !seen[c] {
				fresh = append(fresh, c)
			}
		}
		if len(fresh) == 0 {
			return Decision{Abstain: true, Reason: "everyone already investigated"}
		}
		return Decision{Target: fresh[b.rng.Intn(len(fresh))], Reason: "checking an unknown"}
	}
	return Decision{Target: req.Candidates[b.rng.Intn(len(req.Candidates))]}
}

func (b *RuleBrain) decideDiscussion(req Request) Decision {
	p := b.Persona.Profile
	speakChance := p.Chattiness
	if mentioned(req.View, req.View.Self) {
		speakChance += 0.4 // defend yourself when your name comes up
	}
	if b.rng.Float64() > speakChance {
		return Decision{Speak: false}
	}

	suspect := b.pickSuspect(req.View, othersOf(req.View))
	if suspect == "" {
		return Decision{Speak: false}
	}
	lines := []string{
		"Something about %s does not add up for me.",
		"I keep coming back to %s. Watch how they vote.",
		"If we get this wrong we lose a villager. My read is %s.",
		"%s has been too quiet for my taste.",
	}
	text := fmt.Sprintf(lines[b.rng.Intn(len(lines))], suspect)
	return Decision{Speak: true, Message: text, Reason: "pressing a suspect"}
}

func (b *RuleBrain) decideVote(req Request) Decision {
	p := b.Persona.Profile
	if len(req.Candidates) == 0 || b.rng.Float64() > p.Suspicion+0.5 {
		return Decision{Abstain: true, Reason: "not convinced by anyone"}
	}
	target := b.pickSuspect(req.View, req.Candidates)
	if target == "" {
		return Decision{Abstain: true, Reason: "no read on anyone"}
	}
	return Decision{Target: target, Reason: "most suspicious behavior"}
}

func (b *RuleBrain) decideDefense(req Request) Decision {
	lines := []string{
		"You are wasting a day on me. Think about who pushed this vote.",
		"I have been a villager from the first night. Check my votes.",
		"Eliminating me only helps the mafia. Look at the quiet ones.",
	}
	return Decision{Speak: true, Message: lines[b.rng.Intn(len(lines))]}
}

func (b *RuleBrain) decideConfirm(req Request) Decision {
	view := req.View
	if req.Accused == view.Self {
		return Decision{Affirm: false, Reason: "obviously against"}
	}
	// Mafia protect teammates in the confirmation vote.
	if view.Role == mafia.RoleMafia && contains(view.MafiaTeam, req.Accused) {
		return Decision{Affirm: false, Reason: "not convinced"}
	}
	// Detectives with a mafia hit always affirm.
	for _, inv := range view.Investigations {
		if inv.Target == req.Accused && inv.Role == mafia.RoleMafia {
			return Decision{Affirm: true, Reason: "certain about this one"}
		}
	}
	affirm := b.rng.Float64() < b.Persona.Profile.Suspicion+0.3
	return Decision{Affirm: affirm, Reason: "going with my read"}
}

// othersOf lists living players except the viewer.
func othersOf(view mafia.View) []string {
	out := make([]string, 0, len(view.Living))
	for _, n := range view.Living {
		if n != view.Self {
			out = append(out, n)
		}
	}
	return out
}

// pickSuspect weighs candidates by how often their name comes up in
// discussion and by votes against this agent, with persona noise on top.
func (b *RuleBrain) pickSuspect(view mafia.View, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	best, bestScore := "", -1.0
	for _, c := range candidates {
		score := b.rng.Float64() * b.Persona.Profile.Randomness
		for _, msg := range view.Messages {
			if msg.Speaker != c && strings.Contains(msg.Text, c) {
				score += 0.2 * b.Persona.Profile.Suspicion
			}
		}
		for _, v := range view.Votes {
			if v.Voter == c && v.Target == view.Self {
				score += 0.5 // they came after me
			}
		}
		// Mafia never propose teammates; views for other roles carry no team.
		if contains(view.MafiaTeam, c) {
			continue
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == "" {
		best = candidates[b.rng.Intn(len(candidates))]
	}
	return best
}

// pickVocal returns the candidate with the most recent messages, falling
// back to a random candidate.
func (b *RuleBrain) pickVocal(req Request) string {
	counts := make(map[string]int)
	for _, msg := range req.View.Messages {
		counts[msg.Speaker]++
	}
	best, bestN := "", 0
	for _, c := range req.Candidates {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	if best == "" {
		best = req.Candidates[b.rng.Intn(len(req.Candidates))]
	}
	return best
}

func mentioned(view mafia.View, name string) bool {
	start := len(view.Messages) - 5
	if start < 0 {
		start = 0
	}
	for _, msg := range view.Messages[start:] {
		if msg.Speaker != name && strings.Contains(msg.Text, name) {
			return true
		}
	}
	return false
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
