// Package party is the engine's view of the party/social layer. The
// engine never owns party CRUD; it reads snapshots to build queue
// entries, keeps the durable queue-state flag roughly in step with the
// ephemeral queues, and materializes or dissolves parties when a
// roster confirms.
package party

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/scrim/storage"
	"pkg.world.dev/scrim/types"
)

var (
	ErrPartyNotFound = errors.New("party not found")
	ErrNotLeader     = errors.New("caller is not the party leader")
	ErrNotMember     = errors.New("caller is not a party member")
	ErrEmptyParty    = errors.New("party has no members")
)

// RequireLeader verifies the caller leads the party.
func RequireLeader(snapshot *types.PartySnapshot, callerID string) error {
	if snapshot.LeaderID != callerID {
		return eris.Wrapf(ErrNotLeader, "user %q does not lead party %q", callerID, snapshot.ID)
	}
	return nil
}

// RequireMember verifies the caller belongs to the party.
func RequireMember(snapshot *types.PartySnapshot, callerID string) error {
	if !snapshot.HasMember(callerID) {
		return eris.Wrapf(ErrNotMember, "user %q is not in party %q", callerID, snapshot.ID)
	}
	return nil
}

type Service struct {
	store storage.PartyStore
	log   zerolog.Logger
}

func NewService(store storage.PartyStore) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "party").Logger(),
	}
}

// Snapshot loads a party for an operation. Operational paths reject
// empty parties outright; the reconciler reads the store directly and
// handles them itself.
func (s *Service) Snapshot(ctx context.Context, partyID string) (*types.PartySnapshot, error) {
	snapshot, err := s.store.GetParty(ctx, partyID)
	if err != nil {
		if eris.Is(err, storage.ErrNotFound) {
			return nil, eris.Wrapf(ErrPartyNotFound, "party %q", partyID)
		}
		return nil, err
	}
	if len(snapshot.Members) == 0 {
		return nil, eris.Wrapf(ErrEmptyParty, "party %q", partyID)
	}
	return snapshot, nil
}

// EnsureReady flips one member's ready flag on, persisting only when
// it changed. Joining a queue auto-readies the leader and nobody else.
func (s *Service) EnsureReady(ctx context.Context, snapshot *types.PartySnapshot, userID string) error {
	member, ok := snapshot.Member(userID)
	if !ok {
		return eris.Wrapf(ErrNotMember, "user %q is not in party %q", userID, snapshot.ID)
	}
	if member.Ready {
		return nil
	}
	member.Ready = true
	return s.store.SaveParty(ctx, snapshot)
}

// SetQueueState records which queue the party is in on the durable
// snapshot. The ephemeral store stays authoritative; the reconciler
// repairs drift between the two.
func (s *Service) SetQueueState(ctx context.Context, partyID string, state types.QueueState) error {
	snapshot, err := s.store.GetParty(ctx, partyID)
	if err != nil {
		if eris.Is(err, storage.ErrNotFound) {
			return eris.Wrapf(ErrPartyNotFound, "party %q", partyID)
		}
		return err
	}
	if snapshot.QueueState == state {
		return nil
	}
	snapshot.QueueState = state
	return s.store.SaveParty(ctx, snapshot)
}

// ClearQueueStateIf resets the flag only when it currently names the
// given queue, so leaving one queue never clobbers another queue's
// flag. Eviction paths are best-effort: a missing party is not an
// error here.
func (s *Service) ClearQueueStateIf(ctx context.Context, partyID string, state types.QueueState) {
	snapshot, err := s.store.GetParty(ctx, partyID)
	if err != nil {
		if !eris.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Str("party_id", partyID).Msg("could not load party to clear queue state")
		}
		return
	}
	if snapshot.QueueState != state {
		return
	}
	snapshot.QueueState = types.QueueStateNone
	if err := s.store.SaveParty(ctx, snapshot); err != nil {
		s.log.Warn().Err(err).Str("party_id", partyID).Msg("could not clear durable queue state")
	}
}

// Materialize creates the brand-new unified party a confirmed roster
// becomes: all five members, already ready, led by the tie-break
// authority.
func (s *Service) Materialize(ctx context.Context, team *types.AssembledTeam) (*types.PartySnapshot, error) {
	members := make([]types.PartyMember, 0, len(team.Members))
	for _, m := range team.Members {
		members = append(members, types.PartyMember{
			UserID:        m.UserID,
			Ready:         true,
			PreferredRole: m.PreferredRole,
		})
	}
	snapshot := &types.PartySnapshot{
		ID:       uuid.New().String(),
		LeaderID: team.AuthorityID,
		Members:  members,
		Mode:     "5v5",
		IGLID:    team.IGLID,
		AnchorID: team.AnchorID,
	}
	if err := s.store.SaveParty(ctx, snapshot); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("party_id", snapshot.ID).
		Str("leader_id", snapshot.LeaderID).
		Msg("materialized unified party")
	return snapshot, nil
}

// Dissolve deletes constituent party records after their roster
// confirmed into a unified party.
func (s *Service) Dissolve(ctx context.Context, partyIDs ...string) error {
	for _, id := range partyIDs {
		if err := s.store.DeleteParty(ctx, id); err != nil && !eris.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	return nil
}
