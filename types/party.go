package types

// QueueState is the durable record of which ephemeral queue a party
// believes it is in. The ephemeral store is authoritative; the
// reconciler repairs this flag when the two drift apart.
type QueueState string

const (
	QueueStateNone   QueueState = ""
	QueueStateTeam   QueueState = "team"
	QueueStateMate   QueueState = "mate"
	QueueStateRoster QueueState = "roster"
)

// PartyMember is one player of a durable party.
type PartyMember struct {
	UserID string `json:"user_id"`
	Ready  bool   `json:"ready"`
	// PreferredRole is the role slot the member wants filled, carried
	// onto queue entries as a selection hint. Optional.
	PreferredRole string `json:"preferred_role,omitempty"`
}

// PartySnapshot is the durable party record as seen by the engine. The
// party/social layer owns these; the engine reads them to build queue
// entries, flips the queue-state flag, and materializes or dissolves
// them on roster confirmation.
type PartySnapshot struct {
	ID       string        `json:"id"`
	LeaderID string        `json:"leader_id"`
	Members  []PartyMember `json:"members"`
	Mode     string        `json:"mode,omitempty"`
	// TeamID and TeamName link the party to a persistent team. A linked
	// team's durable rating takes precedence over the member mean, and
	// the link travels with every queue entry the party produces.
	TeamID     string     `json:"team_id,omitempty"`
	TeamName   string     `json:"team_name,omitempty"`
	IGLID      string     `json:"igl_id,omitempty"`
	AnchorID   string     `json:"anchor_id,omitempty"`
	QueueState QueueState `json:"queue_state,omitempty"`
}

// Member returns the member with the given user id.
func (p *PartySnapshot) Member(userID string) (*PartyMember, bool) {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			return &p.Members[i], true
		}
	}
	return nil, false
}

// HasMember reports whether the user belongs to the party.
func (p *PartySnapshot) HasMember(userID string) bool {
	_, ok := p.Member(userID)
	return ok
}

// MemberIDs returns the member user ids in roster order.
func (p *PartySnapshot) MemberIDs() []string {
	ids := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// ReadyCount returns how many members have flagged ready.
func (p *PartySnapshot) ReadyCount() int {
	n := 0
	for _, m := range p.Members {
		if m.Ready {
			n++
		}
	}
	return n
}
