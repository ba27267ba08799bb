package queue

import (
	"time"

	"github.com/google/uuid"

	"pkg.world.dev/scrim/types"
)

// MergeStrategy decides how teammate entries combine into a full
// team. The queue service hands it the requesting entry plus every
// candidate inside the current rating window, already in scan order.
type MergeStrategy interface {
	// Merge returns the chosen constituent entries, seed included, or
	// nil when no exact-five combination exists from this seed's
	// perspective.
	Merge(seed *types.TeammateQueueEntry, candidates []*types.TeammateQueueEntry) []*types.TeammateQueueEntry
}

// GreedyMerge accumulates candidates in ascending-rating scan order,
// skipping any party that would overshoot five players, and declares a
// merge only when the running total lands exactly on five. The final
// membership is an artifact of scan order and timing, not balance.
type GreedyMerge struct {
	// TierTolerance bounds the tier gap between the seed and every
	// accepted candidate.
	TierTolerance int
}

func (g GreedyMerge) Merge(seed *types.TeammateQueueEntry, candidates []*types.TeammateQueueEntry) []*types.TeammateQueueEntry {
	total := seed.Size()
	if total == 0 || total >= types.RosterSize {
		return nil
	}
	picked := []*types.TeammateQueueEntry{seed}
	for _, candidate := range candidates {
		if candidate.PartyID == seed.PartyID {
			continue
		}
		if !tierCompatible(g.TierTolerance, seed.Tier, candidate.Tier) {
			continue
		}
		if total+candidate.Size() > types.RosterSize {
			continue
		}
		picked = append(picked, candidate)
		total += candidate.Size()
		if total == types.RosterSize {
			return picked
		}
	}
	return nil
}

// assembleTeam builds the provisional roster out of merged entries,
// starting in the forming phase; selection opens once the commit has
// detached every constituent. Members keep their origin party tag; the
// tie-break authority is the leader of the numerically largest
// constituent, first encountered winning ties.
func assembleTeam(entries []*types.TeammateQueueEntry, now time.Time) *types.AssembledTeam {
	team := &types.AssembledTeam{
		Kind:        types.KindAssembled,
		V:           types.SchemaVersion,
		ID:          uuid.New().String(),
		Phase:       types.RosterPhaseForming,
		MatchType:   types.MatchTypeRanked,
		IGLVotes:    map[string]string{},
		AnchorVotes: map[string]string{},
		CreatedAt:   now.UnixMilli(),
	}
	largest := 0
	for _, entry := range entries {
		team.PartyIDs = append(team.PartyIDs, entry.PartyID)
		for _, member := range entry.Members {
			team.Members = append(team.Members, types.RosterMember{
				QueueMember:   member,
				OriginPartyID: entry.PartyID,
			})
		}
		if entry.Size() > largest {
			largest = entry.Size()
			team.AuthorityID = entry.LeaderID
		}
	}
	return team
}
