package queue

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/scrim/handoff"
	"pkg.world.dev/scrim/metrics"
	"pkg.world.dev/scrim/party"
	"pkg.world.dev/scrim/storage"
	"pkg.world.dev/scrim/types"
)

// MateConfig carries the tunables of the teammate assembly queue.
type MateConfig struct {
	Window        WindowConfig
	TierTolerance int
	// Timeout is the absolute maximum queue duration; entry TTLs equal
	// it.
	Timeout time.Duration
	// SelectionWindow is how long an assembled roster lives while its
	// members settle on an IGL and an Anchor.
	SelectionWindow time.Duration
}

// MateService runs the teammate assembly queue: partial parties of one
// to four players, merged on poll into exact-five provisional teams.
type MateService struct {
	store    storage.Storage
	parties  *party.Service
	builder  *Builder
	merge    MergeStrategy
	notifier handoff.Notifier
	cfg      MateConfig
	clock    func() time.Time
	log      zerolog.Logger
}

func NewMateService(
	store storage.Storage,
	parties *party.Service,
	builder *Builder,
	merge MergeStrategy,
	notifier handoff.Notifier,
	cfg MateConfig,
	clock func() time.Time,
) *MateService {
	return &MateService{
		store:    store,
		parties:  parties,
		builder:  builder,
		merge:    merge,
		notifier: notifier,
		cfg:      cfg,
		clock:    clock,
		log:      log.With().Str("component", "mate_queue").Logger(),
	}
}

// Join builds and enqueues a partial-party entry, evicting any
// full-party entry first so the party sits in one queue at most.
func (s *MateService) Join(ctx context.Context, callerID string, partyID string) (*types.TeammateQueueEntry, error) {
	entry, err := s.builder.BuildTeammateEntry(ctx, callerID, partyID)
	if err != nil {
		return nil, err
	}
	if teamEntry, err := s.store.GetTeamEntry(ctx, partyID); err == nil {
		if err := s.store.DequeueTeam(ctx, teamEntry.MatchType, partyID); err != nil {
			return nil, err
		}
	} else if !eris.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if err := s.store.EnqueueTeammate(ctx, entry, s.cfg.Timeout); err != nil {
		return nil, err
	}
	if err := s.parties.SetQueueState(ctx, partyID, types.QueueStateMate); err != nil {
		return nil, err
	}
	s.publishDepth(ctx)
	s.log.Info().
		Str("party_id", partyID).
		Int("size", entry.Size()).
		Int("rating", entry.Rating).
		Msg("party joined teammate queue")
	return entry, nil
}

// Leave evicts the party's entry. It needs no leader check and calling
// it for an already-absent entry is not an error.
func (s *MateService) Leave(ctx context.Context, partyID string) error {
	_, err := s.store.GetTeammateEntry(ctx, partyID)
	switch {
	case eris.Is(err, storage.ErrNotFound):
		s.parties.ClearQueueStateIf(ctx, partyID, types.QueueStateMate)
		return nil
	case err != nil:
		return err
	}
	if err := s.store.DequeueTeammate(ctx, partyID); err != nil {
		return err
	}
	s.parties.ClearQueueStateIf(ctx, partyID, types.QueueStateMate)
	s.publishDepth(ctx)
	return nil
}

// MateStatus is the poll result for a teammate entry.
type MateStatus struct {
	Phase  types.QueuePhase     `json:"phase"`
	Window int                  `json:"window"`
	Team   *types.AssembledTeam `json:"team,omitempty"`
}

// Check reports the roster this party already belongs to, enforces the
// queue timeout, and otherwise runs a merge pass from this entry's
// perspective.
func (s *MateService) Check(ctx context.Context, partyID string) (*MateStatus, error) {
	team, err := s.store.GetRosterByParty(ctx, partyID)
	if err == nil {
		return &MateStatus{Phase: types.PhaseIGLSelection, Team: team}, nil
	}
	if !eris.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	entry, err := s.store.GetTeammateEntry(ctx, partyID)
	if err != nil {
		if eris.Is(err, storage.ErrNotFound) {
			return nil, eris.Wrapf(ErrNotQueued, "party %q", partyID)
		}
		return nil, err
	}

	elapsed := s.clock().Sub(time.UnixMilli(entry.EnqueuedAt))
	if elapsed >= s.cfg.Timeout {
		if err := s.store.DequeueTeammate(ctx, partyID); err != nil {
			return nil, err
		}
		s.parties.ClearQueueStateIf(ctx, partyID, types.QueueStateMate)
		metrics.QueueTimeouts.WithLabelValues("mate").Inc()
		s.publishDepth(ctx)
		s.log.Info().Str("party_id", partyID).Dur("waited", elapsed).Msg("queue timeout, entry evicted")
		return nil, eris.Wrapf(ErrQueueTimeout, "party %q waited %s", partyID, elapsed)
	}

	window := s.cfg.Window.WindowAt(elapsed)
	candidates, err := s.store.ScanTeammateRange(ctx, entry.Rating-window, entry.Rating+window)
	if err != nil {
		return nil, err
	}
	merged := s.merge.Merge(entry, candidates)
	if merged == nil {
		return &MateStatus{Phase: types.PhaseFindingTeammates, Window: window}, nil
	}
	team, err = s.commitMerge(ctx, merged)
	if err != nil {
		return nil, err
	}
	return &MateStatus{Phase: types.PhaseIGLSelection, Window: window, Team: team}, nil
}

// commitMerge persists the assembled roster under its own id and every
// constituent party id, evicts the constituent entries and flips their
// durable flags to the roster state. The roster lands in the store
// forming and flips to selecting only after every constituent is
// detached.
func (s *MateService) commitMerge(ctx context.Context, entries []*types.TeammateQueueEntry) (*types.AssembledTeam, error) {
	team := assembleTeam(entries, s.clock())
	if err := s.store.SaveRoster(ctx, team, s.cfg.SelectionWindow); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if err := s.store.DequeueTeammate(ctx, entry.PartyID); err != nil {
			return nil, err
		}
		if err := s.parties.SetQueueState(ctx, entry.PartyID, types.QueueStateRoster); err != nil {
			// A party deleted mid-queue is the reconciler's problem,
			// not a reason to unwind the merge.
			if !eris.Is(err, party.ErrPartyNotFound) {
				return nil, err
			}
		}
	}
	team.Phase = types.RosterPhaseSelecting
	if err := s.store.SaveRoster(ctx, team, s.cfg.SelectionWindow); err != nil {
		return nil, err
	}
	if err := s.notifier.TeamAssembled(ctx, team); err != nil {
		s.log.Warn().Err(err).Str("team_id", team.ID).Msg("team assembly publish failed")
	}
	metrics.TeamsAssembled.Inc()
	s.publishDepth(ctx)
	s.log.Info().
		Str("team_id", team.ID).
		Strs("party_ids", team.PartyIDs).
		Str("authority_id", team.AuthorityID).
		Msg("assembled full team")
	return team, nil
}

func (s *MateService) publishDepth(ctx context.Context) {
	if ids, err := s.store.TeammateQueueIDs(ctx); err == nil {
		metrics.MateQueueDepth.Set(float64(len(ids)))
	}
}
