package types

// RosterPhase is the lifecycle state of an assembled team.
type RosterPhase string

const (
	RosterPhaseForming   RosterPhase = "forming"
	RosterPhaseSelecting RosterPhase = "selecting"
	RosterPhaseConfirmed RosterPhase = "confirmed"
	RosterPhaseDisbanded RosterPhase = "disbanded"
)

// RosterMember is a player on an assembled team, tagged with the
// constituent party that contributed them.
type RosterMember struct {
	QueueMember
	OriginPartyID string `json:"origin_party_id"`
}

// AssembledTeam is a provisional five-player team produced by merging
// teammate-queue entries. It lives in the ephemeral store under the
// selection-window TTL while the members settle on an IGL and an
// Anchor, then either confirms into a unified party or expires.
type AssembledTeam struct {
	Kind      string      `json:"kind"`
	V         int         `json:"v"`
	ID        string      `json:"id"`
	Phase     RosterPhase `json:"phase"`
	MatchType MatchType   `json:"match_type"`
	// PartyIDs lists the constituent parties; AuthorityID is the leader
	// of the largest one and may select roles directly.
	PartyIDs    []string       `json:"party_ids"`
	AuthorityID string         `json:"authority_id"`
	Members     []RosterMember `json:"members"`
	IGLID       string         `json:"igl_id,omitempty"`
	AnchorID    string         `json:"anchor_id,omitempty"`
	// one replaceable vote per member per role, voter id -> candidate id
	IGLVotes    map[string]string `json:"igl_votes,omitempty"`
	AnchorVotes map[string]string `json:"anchor_votes,omitempty"`
	CreatedAt   int64             `json:"created_at"` // unix milliseconds
}

// Size returns the current member count.
func (t *AssembledTeam) Size() int {
	return len(t.Members)
}

// HasMember reports whether the user is on the team.
func (t *AssembledTeam) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// HasParty reports whether the party is a constituent of the team.
func (t *AssembledTeam) HasParty(partyID string) bool {
	for _, id := range t.PartyIDs {
		if id == partyID {
			return true
		}
	}
	return false
}

// MajorityCandidate returns the candidate holding at least need of the
// recorded votes. Should several candidates reach the threshold at
// once the lexicographically lowest id wins, so promotion never
// depends on map iteration order.
func MajorityCandidate(votes map[string]string, need int) (string, bool) {
	tally := make(map[string]int, len(votes))
	for _, candidate := range votes {
		tally[candidate]++
	}
	winner := ""
	for candidate, n := range tally {
		if n < need {
			continue
		}
		if winner == "" || candidate < winner {
			winner = candidate
		}
	}
	return winner, winner != ""
}
