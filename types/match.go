package types

// MatchedParty summarizes one side of a found match.
type MatchedParty struct {
	PartyID  string        `json:"party_id"`
	LeaderID string        `json:"leader_id"`
	Rating   int           `json:"rating"`
	Tier     int           `json:"tier"`
	Members  []QueueMember `json:"members"`
}

// TeamMatchResult pairs two full-party entries. It is stored under
// both party ids with a short TTL so either side's next poll reports
// match_found, and handed to the relay engine through the notifier.
type TeamMatchResult struct {
	Kind      string       `json:"kind"`
	V         int          `json:"v"`
	MatchID   string       `json:"match_id"`
	MatchType MatchType    `json:"match_type"`
	TeamA     MatchedParty `json:"team_a"`
	TeamB     MatchedParty `json:"team_b"`
	FoundAt   int64        `json:"found_at"` // unix milliseconds
}

// Involves reports whether the party is one of the two sides.
func (r *TeamMatchResult) Involves(partyID string) bool {
	return r.TeamA.PartyID == partyID || r.TeamB.PartyID == partyID
}

// Opponent returns the side facing the given party.
func (r *TeamMatchResult) Opponent(partyID string) (MatchedParty, bool) {
	switch partyID {
	case r.TeamA.PartyID:
		return r.TeamB, true
	case r.TeamB.PartyID:
		return r.TeamA, true
	}
	return MatchedParty{}, false
}
