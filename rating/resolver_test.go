package rating

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"gotest.tools/v3/assert"

	"pkg.world.dev/scrim/storage/redis"
	"pkg.world.dev/scrim/types"
)

func newTestResolver(t *testing.T) (*Resolver, *redis.Storage) {
	s := miniredis.RunT(t)
	store := redis.NewRedisStorage(redis.Options{
		Addr:     s.Addr(),
		Password: "", // no password set
		DB:       0,  // use default DB
	}, "scrimtest")
	t.Cleanup(func() { _ = store.Close() })
	return NewResolver(&store, time.Minute), &store
}

func TestMemberDefaultsForUnknownPlayer(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()

	member := resolver.Member(ctx, "fresh")
	assert.Equal(t, member.UserID, "fresh")
	assert.Equal(t, member.Rating, DefaultRating)
	assert.Equal(t, member.Tier, DefaultTier)

	// First sighting persists the default record.
	record, err := store.GetPlayer(ctx, "fresh")
	assert.NilError(t, err)
	assert.Equal(t, record.Rating, DefaultRating)
}

func TestMemberFromStoredRecord(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	assert.NilError(t, store.SavePlayer(ctx, &types.PlayerRecord{
		UserID:        "vet",
		DisplayName:   "Veteran",
		Rating:        310,
		Proficiencies: map[string]int{"breaching": 80, "support": 60},
	}))

	member := resolver.Member(ctx, "vet")
	assert.Equal(t, member.Rating, 310)
	assert.Equal(t, member.DisplayName, "Veteran")
	assert.Equal(t, member.Tier, 60, "tier is the weakest tracked proficiency")
}

func TestMemberZeroRatingFallsBack(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	assert.NilError(t, store.SavePlayer(ctx, &types.PlayerRecord{
		UserID:        "unrated",
		Proficiencies: map[string]int{"support": 70},
	}))

	member := resolver.Member(ctx, "unrated")
	assert.Equal(t, member.Rating, DefaultRating)
	assert.Equal(t, member.Tier, 70)
}

func TestMemberRescalesLegacyProficiencies(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	assert.NilError(t, store.SavePlayer(ctx, &types.PlayerRecord{
		UserID:        "legacy",
		Rating:        290,
		Proficiencies: map[string]int{"igl": 7},
	}))

	member := resolver.Member(ctx, "legacy")
	assert.Equal(t, member.Tier, 70)
}

func TestMemberCachesRecords(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	assert.NilError(t, store.SavePlayer(ctx, &types.PlayerRecord{UserID: "cached", Rating: 310}))

	member := resolver.Member(ctx, "cached")
	assert.Equal(t, member.Rating, 310)

	// A store update inside the cache TTL is not observed.
	assert.NilError(t, store.SavePlayer(ctx, &types.PlayerRecord{UserID: "cached", Rating: 999}))
	member = resolver.Member(ctx, "cached")
	assert.Equal(t, member.Rating, 310)
}

func TestSquadResolvesInOrder(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	assert.NilError(t, store.SavePlayer(ctx, &types.PlayerRecord{UserID: "u2", Rating: 350}))

	members := resolver.Squad(ctx, []string{"u1", "u2"})
	assert.Equal(t, len(members), 2)
	assert.Equal(t, members[0].UserID, "u1")
	assert.Equal(t, members[0].Rating, DefaultRating)
	assert.Equal(t, members[1].Rating, 350)
}

func TestTeamRating(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	assert.NilError(t, store.SaveTeam(ctx, &types.TeamRecord{ID: "t1", Name: "Night Shift", Rating: 777}))

	rating, ok := resolver.TeamRating(ctx, "t1")
	assert.Assert(t, ok)
	assert.Equal(t, rating, 777)

	_, ok = resolver.TeamRating(ctx, "missing")
	assert.Assert(t, !ok)
}

func TestTierOf(t *testing.T) {
	tests := []struct {
		name          string
		proficiencies map[string]int
		want          int
	}{
		{"no proficiencies", nil, DefaultTier},
		{"single value", map[string]int{"breaching": 64}, 64},
		{"minimum across operations", map[string]int{"breaching": 90, "support": 40, "igl": 75}, 40},
		{"legacy scale rescaled", map[string]int{"breaching": 9}, 90},
		{"mixed scales", map[string]int{"breaching": 9, "support": 45}, 45},
		{"clamped high", map[string]int{"breaching": 250}, TierMax},
		{"clamped low", map[string]int{"breaching": 0}, TierMin},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tierOf(&types.PlayerRecord{Proficiencies: tc.proficiencies})
			assert.Equal(t, got, tc.want)
		})
	}
}

func TestAggregate(t *testing.T) {
	members := []types.QueueMember{
		{Rating: 300, Tier: 50},
		{Rating: 310, Tier: 50},
		{Rating: 295, Tier: 50},
		{Rating: 305, Tier: 50},
		{Rating: 300, Tier: 50},
	}
	rating, tier := Aggregate(members)
	assert.Equal(t, rating, 302)
	assert.Equal(t, tier, 50)
}

func TestAggregateRoundsHalfUp(t *testing.T) {
	rating, tier := Aggregate([]types.QueueMember{
		{Rating: 300, Tier: 50},
		{Rating: 301, Tier: 51},
	})
	assert.Equal(t, rating, 301)
	assert.Equal(t, tier, 51)
}

func TestAggregateEmpty(t *testing.T) {
	rating, tier := Aggregate(nil)
	assert.Equal(t, rating, DefaultRating)
	assert.Equal(t, tier, DefaultTier)
}
