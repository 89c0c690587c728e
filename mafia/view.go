package mafia

// View is the role-scoped projection handed to an agent's decision oracle.
// It is built exclusively from information the role is entitled to see:
// hidden roles, night causes and other players' private results never appear.
type View struct {
	Self    string
	Role    Role
	Persona string

	Round int
	Phase Phase

	Living     []string
	Eliminated []string // names only, roles stay hidden

	Messages []DiscussionMessage
	Votes    []Vote // public voting record, current round

	// Role-private knowledge.
	MafiaTeam      []string        // mafia only: living and dead teammates
	TeamProposals  []NightAction   // mafia only: the team's kill submissions
	Investigations []Investigation // detective only: own results
	OwnActions     []NightAction   // own night action history
}

// ViewFor builds the context view for one player. This is the correctness
// core protecting hidden-role integrity: everything an oracle prompt may
// contain must pass through here.
func (s *State) ViewFor(name string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.players[name]
	if p == nil {
		return View{}, ErrUnknownPlayer
	}

	v := View{
		Self:    p.Name,
		Role:    p.Role,
		Persona: p.Persona,
		Round:   s.round,
		Phase:   s.phase,
	}
	for _, n := range s.order {
		if s.players[n].alive {
			v.Living = append(v.Living, n)
		}
	}
	v.Eliminated = append(v.Eliminated, s.eliminated...)
	v.Messages = append(v.Messages, s.messages...)
	for _, vote := range s.voteLog {
		if vote.Round == s.round {
			v.Votes = append(v.Votes, vote)
		}
	}
	for _, act := range s.actionLog {
		if act.Actor == name {
			v.OwnActions = append(v.OwnActions, act)
		}
	}

	switch p.Role {
	case RoleMafia:
		for _, n := range s.order {
			if s.players[n].Role == RoleMafia {
				v.MafiaTeam = append(v.MafiaTeam, n)
			}
		}
		for _, act := range s.actionLog {
			if act.Kind == ActionKill {
				v.TeamProposals = append(v.TeamProposals, act)
			}
		}
	case RoleDetective:
		v.Investigations = append(v.Investigations, s.investigations[name]...)
	}
	return v, nil
}

// IsLiving reports whether the name is in the view's living roster.
func (v View) IsLiving(name string) bool {
	for _, n := range v.Living {
		if n == name {
			return true
		}
	}
	return false
}
