// Package queue implements the two matchmaking phase queues: the
// full-party queue with its poll-driven match finder, and the teammate
// assembly queue with its exact-five merge pass. All transitions are
// computed lazily on the calling client's poll; nothing runs in the
// background.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/scrim/handoff"
	"pkg.world.dev/scrim/metrics"
	"pkg.world.dev/scrim/party"
	"pkg.world.dev/scrim/storage"
	"pkg.world.dev/scrim/types"
)

// TeamConfig carries the tunables of the full-party queue.
type TeamConfig struct {
	Window        WindowConfig
	TierTolerance int
	// Timeout is the absolute maximum queue duration; entry TTLs equal
	// it, so an abandoned entry dies when its timeout would have fired.
	Timeout time.Duration
	// ResultTTL bounds how long a found match stays readable, and with
	// it the pairing claim keys.
	ResultTTL time.Duration
}

// TeamService runs the full-party queue: joins, leaves, depth counts
// and the poll-driven match finder.
type TeamService struct {
	store    storage.Storage
	parties  *party.Service
	builder  *Builder
	notifier handoff.Notifier
	cfg      TeamConfig
	clock    func() time.Time
	log      zerolog.Logger
}

func NewTeamService(
	store storage.Storage,
	parties *party.Service,
	builder *Builder,
	notifier handoff.Notifier,
	cfg TeamConfig,
	clock func() time.Time,
) *TeamService {
	return &TeamService{
		store:    store,
		parties:  parties,
		builder:  builder,
		notifier: notifier,
		cfg:      cfg,
		clock:    clock,
		log:      log.With().Str("component", "team_queue").Logger(),
	}
}

// Join builds and enqueues a full-party entry. A party sits in at most
// one phase queue, so joining here physically evicts any teammate
// entry first. Re-joining overwrites the previous entry.
func (s *TeamService) Join(ctx context.Context, callerID string, partyID string, matchType types.MatchType) (*types.TeamQueueEntry, error) {
	entry, err := s.builder.BuildTeamEntry(ctx, callerID, partyID, matchType)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetTeammateEntry(ctx, partyID); err == nil {
		if err := s.store.DequeueTeammate(ctx, partyID); err != nil {
			return nil, err
		}
	} else if !eris.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if err := s.store.EnqueueTeam(ctx, entry, s.cfg.Timeout); err != nil {
		return nil, err
	}
	if err := s.parties.SetQueueState(ctx, partyID, types.QueueStateTeam); err != nil {
		return nil, err
	}
	s.publishDepth(ctx, matchType)
	s.log.Info().
		Str("party_id", partyID).
		Str("match_type", string(matchType)).
		Int("rating", entry.Rating).
		Int("tier", entry.Tier).
		Msg("party joined full-party queue")
	return entry, nil
}

// Leave evicts the party's entry. Leaving an already-absent entry is
// not an error and leaves no residue.
func (s *TeamService) Leave(ctx context.Context, callerID string, partyID string) error {
	snapshot, err := s.parties.Snapshot(ctx, partyID)
	if err != nil {
		return err
	}
	if err := party.RequireLeader(snapshot, callerID); err != nil {
		return err
	}
	entry, err := s.store.GetTeamEntry(ctx, partyID)
	switch {
	case eris.Is(err, storage.ErrNotFound):
		s.parties.ClearQueueStateIf(ctx, partyID, types.QueueStateTeam)
		return nil
	case err != nil:
		return err
	}
	if err := s.store.DequeueTeam(ctx, entry.MatchType, partyID); err != nil {
		return err
	}
	s.parties.ClearQueueStateIf(ctx, partyID, types.QueueStateTeam)
	s.publishDepth(ctx, entry.MatchType)
	return nil
}

// Count returns the live depth of one match type's queue.
func (s *TeamService) Count(ctx context.Context, matchType types.MatchType) (int64, error) {
	if !matchType.Valid() {
		return 0, eris.Wrapf(ErrInvalidMatchType, "%q", matchType)
	}
	return s.store.CountTeamQueue(ctx, matchType)
}

// TeamStatus is the poll result for a full-party entry.
type TeamStatus struct {
	Phase  types.QueuePhase       `json:"phase"`
	Window int                    `json:"window"`
	Match  *types.TeamMatchResult `json:"match,omitempty"`
}

// Check advances the party's matchmaking state: report a result that
// is already there, enforce the queue timeout, otherwise compute the
// current window and scan for the first compatible opponent.
func (s *TeamService) Check(ctx context.Context, partyID string) (*TeamStatus, error) {
	// A result committed by the opponent's poll wins over everything.
	result, err := s.store.GetMatch(ctx, partyID)
	if err == nil {
		return &TeamStatus{Phase: types.PhaseMatchFound, Match: result}, nil
	}
	if !eris.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	entry, err := s.store.GetTeamEntry(ctx, partyID)
	if err != nil {
		if eris.Is(err, storage.ErrNotFound) {
			return nil, eris.Wrapf(ErrNotQueued, "party %q", partyID)
		}
		return nil, err
	}

	elapsed := s.clock().Sub(time.UnixMilli(entry.EnqueuedAt))
	if elapsed >= s.cfg.Timeout {
		if err := s.store.DequeueTeam(ctx, entry.MatchType, partyID); err != nil {
			return nil, err
		}
		s.parties.ClearQueueStateIf(ctx, partyID, types.QueueStateTeam)
		metrics.QueueTimeouts.WithLabelValues("team").Inc()
		s.publishDepth(ctx, entry.MatchType)
		s.log.Info().Str("party_id", partyID).Dur("waited", elapsed).Msg("queue timeout, entry evicted")
		return nil, eris.Wrapf(ErrQueueTimeout, "party %q waited %s", partyID, elapsed)
	}

	window := s.cfg.Window.WindowAt(elapsed)
	candidates, err := s.store.ScanTeamRange(ctx, entry.MatchType, entry.Rating-window, entry.Rating+window)
	if err != nil {
		return nil, err
	}
	result, err = s.pair(ctx, entry, candidates)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return &TeamStatus{Phase: types.PhaseMatchFound, Window: window, Match: result}, nil
	}
	return &TeamStatus{Phase: types.PhaseFindingOpponents, Window: window}, nil
}

// pair commits the first compatible candidate. Both parties must be
// claimed before a result is written, which closes the race where two
// concurrent polls each discover the same opponent. A lost claim on a
// candidate skips to the next one; a lost claim on ourselves means an
// opponent is pairing us right now, so back off and let the next poll
// read the result.
func (s *TeamService) pair(ctx context.Context, entry *types.TeamQueueEntry, candidates []*types.TeamQueueEntry) (*types.TeamMatchResult, error) {
	matchID := uuid.New().String()
	selfClaimed := false
	for _, candidate := range candidates {
		if candidate.PartyID == entry.PartyID {
			continue
		}
		if !tierCompatible(s.cfg.TierTolerance, entry.Tier, candidate.Tier) {
			continue
		}
		if !selfClaimed {
			won, err := s.store.ClaimParty(ctx, entry.PartyID, matchID, s.cfg.ResultTTL)
			if err != nil {
				return nil, err
			}
			if !won {
				return nil, nil
			}
			selfClaimed = true
		}
		won, err := s.store.ClaimParty(ctx, candidate.PartyID, matchID, s.cfg.ResultTTL)
		if err != nil {
			return nil, err
		}
		if !won {
			continue
		}
		return s.commit(ctx, matchID, entry, candidate)
	}
	if selfClaimed {
		if err := s.store.ReleaseClaim(ctx, entry.PartyID); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (s *TeamService) commit(
	ctx context.Context,
	matchID string,
	entry *types.TeamQueueEntry,
	opponent *types.TeamQueueEntry,
) (*types.TeamMatchResult, error) {
	result := &types.TeamMatchResult{
		Kind:      types.KindMatchResult,
		V:         types.SchemaVersion,
		MatchID:   matchID,
		MatchType: entry.MatchType,
		TeamA:     matchedParty(entry),
		TeamB:     matchedParty(opponent),
		FoundAt:   s.clock().UnixMilli(),
	}
	if err := s.store.SaveMatch(ctx, result, s.cfg.ResultTTL); err != nil {
		return nil, err
	}
	if err := s.store.DequeueTeam(ctx, entry.MatchType, entry.PartyID); err != nil {
		return nil, err
	}
	if err := s.store.DequeueTeam(ctx, opponent.MatchType, opponent.PartyID); err != nil {
		return nil, err
	}
	s.parties.ClearQueueStateIf(ctx, entry.PartyID, types.QueueStateTeam)
	s.parties.ClearQueueStateIf(ctx, opponent.PartyID, types.QueueStateTeam)
	if err := s.notifier.MatchFound(ctx, result); err != nil {
		s.log.Warn().Err(err).Str("match_id", matchID).Msg("match hand-off publish failed")
	}
	metrics.MatchesFound.Inc()
	s.publishDepth(ctx, entry.MatchType)
	s.log.Info().
		Str("match_id", matchID).
		Str("party_a", entry.PartyID).
		Str("party_b", opponent.PartyID).
		Int("rating_a", entry.Rating).
		Int("rating_b", opponent.Rating).
		Msg("match found")
	return result, nil
}

func matchedParty(entry *types.TeamQueueEntry) types.MatchedParty {
	return types.MatchedParty{
		PartyID:  entry.PartyID,
		LeaderID: entry.LeaderID,
		Rating:   entry.Rating,
		Tier:     entry.Tier,
		Members:  entry.Members,
	}
}

func (s *TeamService) publishDepth(ctx context.Context, matchType types.MatchType) {
	if n, err := s.store.CountTeamQueue(ctx, matchType); err == nil {
		metrics.TeamQueueDepth.WithLabelValues(string(matchType)).Set(float64(n))
	}
}
