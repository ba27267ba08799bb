package queue

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"pkg.world.dev/scrim/party"
	"pkg.world.dev/scrim/rating"
	"pkg.world.dev/scrim/types"
)

// Builder turns a durable party into a queue entry with resolved
// ratings frozen in at enqueue time.
type Builder struct {
	parties *party.Service
	ratings *rating.Resolver
	clock   func() time.Time
}

func NewBuilder(parties *party.Service, ratings *rating.Resolver, clock func() time.Time) *Builder {
	return &Builder{parties: parties, ratings: ratings, clock: clock}
}

// BuildTeamEntry validates and assembles a full-party entry. Joining a
// queue auto-readies the leader; other members' readiness is never
// touched.
func (b *Builder) BuildTeamEntry(
	ctx context.Context,
	callerID string,
	partyID string,
	matchType types.MatchType,
) (*types.TeamQueueEntry, error) {
	if !matchType.Valid() {
		return nil, eris.Wrapf(ErrInvalidMatchType, "%q", matchType)
	}
	snapshot, err := b.parties.Snapshot(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if err := party.RequireLeader(snapshot, callerID); err != nil {
		return nil, err
	}
	if err := b.parties.EnsureReady(ctx, snapshot, callerID); err != nil {
		return nil, err
	}
	if len(snapshot.Members) != types.RosterSize {
		if matchType == types.MatchTypeRanked {
			return nil, ErrRankedRequiresFive
		}
		return nil, ErrPartyNotFull
	}
	if matchType == types.MatchTypeRanked {
		if snapshot.ReadyCount() != types.RosterSize {
			return nil, ErrRankedRequiresFive
		}
		if err := checkRoles(snapshot); err != nil {
			return nil, err
		}
	}

	members := b.ratings.Squad(ctx, snapshot.MemberIDs())
	applyRoleSlots(snapshot, members)
	aggregateRating, aggregateTier := rating.Aggregate(members)
	if snapshot.TeamID != "" {
		if teamRating, ok := b.ratings.TeamRating(ctx, snapshot.TeamID); ok {
			aggregateRating = teamRating
		}
	}

	return &types.TeamQueueEntry{
		Kind:       types.KindFullParty,
		V:          types.SchemaVersion,
		PartyID:    snapshot.ID,
		LeaderID:   snapshot.LeaderID,
		TeamID:     snapshot.TeamID,
		TeamName:   snapshot.TeamName,
		MatchType:  matchType,
		Members:    members,
		Rating:     aggregateRating,
		Tier:       aggregateTier,
		IGLID:      snapshot.IGLID,
		AnchorID:   snapshot.AnchorID,
		EnqueuedAt: b.clock().UnixMilli(),
	}, nil
}

// checkRoles enforces the ranked role requirements: IGL and Anchor
// assigned, still in the party, and two different players.
func checkRoles(snapshot *types.PartySnapshot) error {
	if snapshot.IGLID == "" || snapshot.AnchorID == "" || snapshot.IGLID == snapshot.AnchorID {
		return ErrRolesUnassigned
	}
	if !snapshot.HasMember(snapshot.IGLID) || !snapshot.HasMember(snapshot.AnchorID) {
		return eris.Wrap(ErrRolesUnassigned, "assigned igl or anchor left the party")
	}
	return nil
}

// BuildTeammateEntry assembles a partial-party entry of one to four
// members for the assembly queue.
func (b *Builder) BuildTeammateEntry(ctx context.Context, callerID string, partyID string) (*types.TeammateQueueEntry, error) {
	snapshot, err := b.parties.Snapshot(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if err := party.RequireLeader(snapshot, callerID); err != nil {
		return nil, err
	}
	if len(snapshot.Members) >= types.RosterSize {
		return nil, ErrPartyFull
	}
	if err := b.parties.EnsureReady(ctx, snapshot, callerID); err != nil {
		return nil, err
	}

	members := b.ratings.Squad(ctx, snapshot.MemberIDs())
	applyRoleSlots(snapshot, members)
	aggregateRating, aggregateTier := rating.Aggregate(members)

	return &types.TeammateQueueEntry{
		Kind:       types.KindTeammate,
		V:          types.SchemaVersion,
		PartyID:    snapshot.ID,
		LeaderID:   snapshot.LeaderID,
		TeamID:     snapshot.TeamID,
		Members:    members,
		Rating:     aggregateRating,
		Tier:       aggregateTier,
		EnqueuedAt: b.clock().UnixMilli(),
	}, nil
}

// applyRoleSlots copies each member's preferred role slot from the
// durable party onto the resolved queue member.
func applyRoleSlots(snapshot *types.PartySnapshot, members []types.QueueMember) {
	for i := range members {
		if m, ok := snapshot.Member(members[i].UserID); ok {
			members[i].PreferredRole = m.PreferredRole
		}
	}
}
