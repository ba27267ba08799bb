// Package rating resolves the numbers queue entries are built from:
// a per-player rating and a fairness tier. Resolution never fails the
// caller; any miss or store failure degrades to documented defaults
// and is logged.
package rating

import (
	"context"
	"math"
	"time"

	"github.com/coocood/freecache"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/scrim/codec"
	"pkg.world.dev/scrim/storage"
	"pkg.world.dev/scrim/types"
)

const (
	// DefaultRating and DefaultTier are used whenever a player has no
	// usable record.
	DefaultRating = 300
	DefaultTier   = 50

	TierMin = 1
	TierMax = 100

	// Proficiencies recorded on the retired 1-10 scale are mapped onto
	// 1-100 by a factor of ten.
	legacyScaleMax = 10

	cacheSizeBytes = 4 * 1024 * 1024
)

// Store is the durable surface the resolver reads through.
type Store interface {
	GetPlayer(ctx context.Context, userID string) (*types.PlayerRecord, error)
	GetTeam(ctx context.Context, teamID string) (*types.TeamRecord, error)
	EnsurePlayer(ctx context.Context, record *types.PlayerRecord) error
}

// Resolver caches player records in process so a five-member enqueue
// costs at most one store round-trip per member.
type Resolver struct {
	store    Store
	cache    *freecache.Cache
	cacheTTL int // seconds
	log      zerolog.Logger
}

func NewResolver(store Store, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		store:    store,
		cache:    freecache.NewCache(cacheSizeBytes),
		cacheTTL: int(cacheTTL.Seconds()),
		log:      log.With().Str("component", "rating").Logger(),
	}
}

// Member resolves one player into a queue member with rating and tier
// frozen for the lifetime of the entry.
func (r *Resolver) Member(ctx context.Context, userID string) types.QueueMember {
	member := types.QueueMember{UserID: userID, Rating: DefaultRating, Tier: DefaultTier}
	record, err := r.lookup(ctx, userID)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("rating lookup degraded to defaults")
		return member
	}
	member.DisplayName = record.DisplayName
	member.Avatar = record.Avatar
	if record.Rating > 0 {
		member.Rating = record.Rating
	}
	member.Tier = tierOf(record)
	return member
}

// Squad resolves a whole member list in order.
func (r *Resolver) Squad(ctx context.Context, userIDs []string) []types.QueueMember {
	members := make([]types.QueueMember, 0, len(userIDs))
	for _, id := range userIDs {
		members = append(members, r.Member(ctx, id))
	}
	return members
}

// TeamRating returns the durable rating of a persistent team, when one
// exists. A linked team's rating takes precedence over the member
// mean.
func (r *Resolver) TeamRating(ctx context.Context, teamID string) (int, bool) {
	record, err := r.store.GetTeam(ctx, teamID)
	if err != nil {
		if !eris.Is(err, storage.ErrNotFound) {
			r.log.Warn().Err(err).Str("team_id", teamID).Msg("team rating lookup failed")
		}
		return 0, false
	}
	return record.Rating, true
}

func (r *Resolver) lookup(ctx context.Context, userID string) (*types.PlayerRecord, error) {
	cacheKey := []byte(userID)
	if bz, err := r.cache.Get(cacheKey); err == nil {
		if record, err := codec.Decode[types.PlayerRecord](bz); err == nil {
			return &record, nil
		}
	}

	record, err := r.store.GetPlayer(ctx, userID)
	switch {
	case eris.Is(err, storage.ErrNotFound):
		// First sighting: persist the default record so the platform
		// sees the player exists from now on.
		record = &types.PlayerRecord{UserID: userID, Rating: DefaultRating}
		if err := r.store.EnsurePlayer(ctx, record); err != nil {
			r.log.Warn().Err(err).Str("user_id", userID).Msg("could not persist first-seen player record")
		}
	case err != nil:
		return nil, err
	}

	if bz, err := codec.Encode(record); err == nil {
		_ = r.cache.Set(cacheKey, bz, r.cacheTTL)
	}
	return record, nil
}

// tierOf derives the fairness tier: the minimum across tracked
// proficiencies, with legacy values rescaled and the result clamped
// onto [TierMin, TierMax]. The weakest skill governs fairness.
func tierOf(record *types.PlayerRecord) int {
	if len(record.Proficiencies) == 0 {
		return DefaultTier
	}
	lowest := TierMax + 1
	for _, value := range record.Proficiencies {
		if value <= legacyScaleMax {
			value *= 10
		}
		if value < lowest {
			lowest = value
		}
	}
	return clampTier(lowest)
}

func clampTier(v int) int {
	if v < TierMin {
		return TierMin
	}
	if v > TierMax {
		return TierMax
	}
	return v
}

// Aggregate returns the rounded mean rating and tier of the members.
func Aggregate(members []types.QueueMember) (int, int) {
	if len(members) == 0 {
		return DefaultRating, DefaultTier
	}
	var ratingSum, tierSum int
	for _, m := range members {
		ratingSum += m.Rating
		tierSum += m.Tier
	}
	n := float64(len(members))
	return int(math.Round(float64(ratingSum) / n)), int(math.Round(float64(tierSum) / n))
}
