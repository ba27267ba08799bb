package types

// PlayerRecord is the durable per-player rating record. Proficiencies
// map tracked operation names to a 1-100 skill value; legacy records
// may still carry values on the old 1-10 scale and are normalized by
// the rating resolver.
type PlayerRecord struct {
	UserID        string         `json:"user_id"`
	DisplayName   string         `json:"display_name,omitempty"`
	Avatar        string         `json:"avatar,omitempty"`
	Rating        int            `json:"rating"`
	Proficiencies map[string]int `json:"proficiencies,omitempty"`
}

// TeamRecord is the durable record of a persistent team. A party
// linked to one queues with the team's rating instead of the member
// mean.
type TeamRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Rating int    `json:"rating"`
}
