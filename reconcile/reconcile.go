// Package reconcile repairs drift between the durable queue-state
// flags and the ephemeral queue entries. The ephemeral store is
// authoritative: a flag without a matching entry is repaired, an entry
// whose party has lost all members is evicted. Both passes are
// idempotent and safe to run at any time.
package reconcile

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/scrim/metrics"
	"pkg.world.dev/scrim/storage"
	"pkg.world.dev/scrim/types"
)

// Report totals one reconciliation run.
type Report struct {
	PartiesScanned int      `json:"parties_scanned"`
	RepairedFlags  []string `json:"repaired_flags,omitempty"`
	EntriesEvicted []string `json:"entries_evicted,omitempty"`
	IndexPruned    int      `json:"index_pruned"`
}

// Total counts every repair the run applied.
func (rep *Report) Total() int {
	return len(rep.RepairedFlags) + len(rep.EntriesEvicted) + rep.IndexPruned
}

// Consistency is the read-only diagnostic for one party, for callers
// that want to verify state before sensitive party operations.
type Consistency struct {
	PartyID    string           `json:"party_id"`
	Durable    types.QueueState `json:"durable"`
	Ephemeral  types.QueueState `json:"ephemeral"`
	Consistent bool             `json:"consistent"`
}

type Reconciler struct {
	store    storage.Storage
	interval time.Duration
	log      zerolog.Logger
}

func New(store storage.Storage, interval time.Duration) *Reconciler {
	return &Reconciler{
		store:    store,
		interval: interval,
		log:      log.With().Str("component", "reconcile").Logger(),
	}
}

// Run executes both repair passes once and reports what was fixed.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	if err := r.repairFlags(ctx, report); err != nil {
		return nil, err
	}
	if err := r.evictOrphans(ctx, report); err != nil {
		return nil, err
	}
	r.log.Info().
		Int("parties_scanned", report.PartiesScanned).
		Int("repairs", report.Total()).
		Msg("reconciliation pass complete")
	return report, nil
}

// Validate reports whether a party's durable flag agrees with the
// ephemeral store, mutating nothing.
func (r *Reconciler) Validate(ctx context.Context, partyID string) (*Consistency, error) {
	snapshot, err := r.store.GetParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	observed, err := r.observedState(ctx, partyID)
	if err != nil {
		return nil, err
	}
	return &Consistency{
		PartyID:    partyID,
		Durable:    snapshot.QueueState,
		Ephemeral:  observed,
		Consistent: snapshot.QueueState == observed,
	}, nil
}

// Loop runs periodic reconciliation until the context ends. This is
// the only ticker in the engine, and it is optional: matchmaking
// transitions themselves stay poll-driven.
func (r *Reconciler) Loop(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				r.log.Error().Err(err).Msg("reconciliation pass failed")
			}
		}
	}
}

// repairFlags is pass (a): every durable party flagged as queuing must
// have a matching ephemeral presence; a flag the ephemeral store does
// not back is repaired to what is actually there.
func (r *Reconciler) repairFlags(ctx context.Context, report *Report) error {
	ids, err := r.store.PartyIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		snapshot, err := r.store.GetParty(ctx, id)
		if eris.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		report.PartiesScanned++
		if snapshot.QueueState == types.QueueStateNone {
			continue
		}
		observed, err := r.observedState(ctx, id)
		if err != nil {
			return err
		}
		if observed == snapshot.QueueState {
			continue
		}
		snapshot.QueueState = observed
		if err := r.store.SaveParty(ctx, snapshot); err != nil {
			return err
		}
		report.RepairedFlags = append(report.RepairedFlags, id)
		metrics.ReconcileRepairs.WithLabelValues("flag_repaired").Inc()
		r.log.Info().
			Str("party_id", id).
			Str("queue_state", string(observed)).
			Msg("repaired durable queue flag")
	}
	return nil
}

// evictOrphans is pass (b): entries whose party has been deleted or
// emptied are evicted. Index members whose payload TTL already fired
// are pruned along the way.
func (r *Reconciler) evictOrphans(ctx context.Context, report *Report) error {
	for _, matchType := range []types.MatchType{types.MatchTypeRanked, types.MatchTypeCasual} {
		ids, err := r.store.TeamQueueIDs(ctx, matchType)
		if err != nil {
			return err
		}
		for _, partyID := range ids {
			_, err := r.store.GetTeamEntry(ctx, partyID)
			live, err := usable(err)
			if err != nil {
				return err
			}
			if !live {
				if err := r.store.DequeueTeam(ctx, matchType, partyID); err != nil {
					return err
				}
				report.IndexPruned++
				metrics.ReconcileRepairs.WithLabelValues("index_pruned").Inc()
				continue
			}
			alive, err := r.partyAlive(ctx, partyID)
			if err != nil {
				return err
			}
			if alive {
				continue
			}
			if err := r.store.DequeueTeam(ctx, matchType, partyID); err != nil {
				return err
			}
			report.EntriesEvicted = append(report.EntriesEvicted, partyID)
			metrics.ReconcileRepairs.WithLabelValues("entry_evicted").Inc()
			r.log.Info().Str("party_id", partyID).Str("queue", "team").Msg("evicted orphaned queue entry")
		}
	}

	ids, err := r.store.TeammateQueueIDs(ctx)
	if err != nil {
		return err
	}
	for _, partyID := range ids {
		_, err := r.store.GetTeammateEntry(ctx, partyID)
		live, err := usable(err)
		if err != nil {
			return err
		}
		if !live {
			if err := r.store.DequeueTeammate(ctx, partyID); err != nil {
				return err
			}
			report.IndexPruned++
			metrics.ReconcileRepairs.WithLabelValues("index_pruned").Inc()
			continue
		}
		alive, err := r.partyAlive(ctx, partyID)
		if err != nil {
			return err
		}
		if alive {
			continue
		}
		if err := r.store.DequeueTeammate(ctx, partyID); err != nil {
			return err
		}
		report.EntriesEvicted = append(report.EntriesEvicted, partyID)
		metrics.ReconcileRepairs.WithLabelValues("entry_evicted").Inc()
		r.log.Info().Str("party_id", partyID).Str("queue", "mate").Msg("evicted orphaned queue entry")
	}
	return nil
}

// observedState derives a party's actual ephemeral presence.
func (r *Reconciler) observedState(ctx context.Context, partyID string) (types.QueueState, error) {
	_, err := r.store.GetTeamEntry(ctx, partyID)
	live, err := usable(err)
	if err != nil {
		return types.QueueStateNone, err
	}
	if live {
		return types.QueueStateTeam, nil
	}

	_, err = r.store.GetTeammateEntry(ctx, partyID)
	live, err = usable(err)
	if err != nil {
		return types.QueueStateNone, err
	}
	if live {
		return types.QueueStateMate, nil
	}

	_, err = r.store.GetRosterByParty(ctx, partyID)
	live, err = usable(err)
	if err != nil {
		return types.QueueStateNone, err
	}
	if live {
		return types.QueueStateRoster, nil
	}
	return types.QueueStateNone, nil
}

// partyAlive reports whether the durable party still has members.
func (r *Reconciler) partyAlive(ctx context.Context, partyID string) (bool, error) {
	snapshot, err := r.store.GetParty(ctx, partyID)
	if eris.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(snapshot.Members) > 0, nil
}

// usable collapses the read errors that mean "no usable entry":
// missing keys and corrupt blobs both read as absent here, so one bad
// record never wedges a repair pass.
func usable(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if eris.Is(err, storage.ErrNotFound) || eris.Is(err, storage.ErrCorruptRecord) {
		return false, nil
	}
	return false, err
}
