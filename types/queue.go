// Package types holds the shared record types that flow between the
// queue, roster and storage layers: queue entries, assembled teams,
// match results and the durable party/player snapshots they are built
// from. Every ephemeral record carries a kind discriminator and a
// format version so stale or foreign blobs are rejected on read.
package types

// MatchType segments the full-party queue. Ranked play enforces the
// full readiness and role requirements; casual only requires a full
// team.
type MatchType string

const (
	MatchTypeRanked MatchType = "ranked"
	MatchTypeCasual MatchType = "casual"
)

// Valid reports whether mt names a known queue segment.
func (mt MatchType) Valid() bool {
	return mt == MatchTypeRanked || mt == MatchTypeCasual
}

// Kind discriminators written into every ephemeral record.
const (
	KindFullParty   = "full_party"
	KindTeammate    = "teammate"
	KindAssembled   = "assembled"
	KindMatchResult = "match_result"
)

// SchemaVersion is the current ephemeral record format version.
// Records with a different version fail validation on read.
const SchemaVersion = 1

// RosterSize is the fixed number of players on a team.
const RosterSize = 5

// MajorityVotes is the strict majority needed to promote a role
// candidate by vote.
const MajorityVotes = 3

// QueuePhase is the client-visible state reported by the poll
// operations.
type QueuePhase string

const (
	PhaseFindingOpponents QueuePhase = "finding_opponents"
	PhaseFindingTeammates QueuePhase = "finding_teammates"
	PhaseIGLSelection     QueuePhase = "igl_selection"
	PhaseMatchFound       QueuePhase = "match_found"
)

// QueueMember is one player inside a queue entry, with their resolved
// rating and tier frozen at enqueue time.
type QueueMember struct {
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	PreferredRole string `json:"preferred_role,omitempty"`
	Rating        int    `json:"rating"`
	Tier          int    `json:"tier"`
}

// TeamQueueEntry is a full five-player party waiting in the full-party
// queue for an opposing team. TeamID and TeamName carry the party's
// persistent-team link, when one exists.
type TeamQueueEntry struct {
	Kind       string        `json:"kind"`
	V          int           `json:"v"`
	PartyID    string        `json:"party_id"`
	LeaderID   string        `json:"leader_id"`
	TeamID     string        `json:"team_id,omitempty"`
	TeamName   string        `json:"team_name,omitempty"`
	MatchType  MatchType     `json:"match_type"`
	Members    []QueueMember `json:"members"`
	Rating     int           `json:"rating"`
	Tier       int           `json:"tier"`
	IGLID      string        `json:"igl_id,omitempty"`
	AnchorID   string        `json:"anchor_id,omitempty"`
	EnqueuedAt int64         `json:"enqueued_at"` // unix milliseconds
}

// TeammateQueueEntry is a partial party of one to four players waiting
// in the assembly queue to be merged into a full team.
type TeammateQueueEntry struct {
	Kind       string        `json:"kind"`
	V          int           `json:"v"`
	PartyID    string        `json:"party_id"`
	LeaderID   string        `json:"leader_id"`
	TeamID     string        `json:"team_id,omitempty"`
	Members    []QueueMember `json:"members"`
	Rating     int           `json:"rating"`
	Tier       int           `json:"tier"`
	EnqueuedAt int64         `json:"enqueued_at"` // unix milliseconds
}

// Size returns the number of players the entry contributes to a merge.
func (e *TeammateQueueEntry) Size() int {
	return len(e.Members)
}
