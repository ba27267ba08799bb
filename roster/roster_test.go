package roster

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"gotest.tools/v3/assert"

	"pkg.world.dev/scrim/handoff"
	"pkg.world.dev/scrim/party"
	"pkg.world.dev/scrim/queue"
	"pkg.world.dev/scrim/rating"
	"pkg.world.dev/scrim/storage"
	"pkg.world.dev/scrim/storage/redis"
	"pkg.world.dev/scrim/types"
)

type rosterEnv struct {
	mr      *miniredis.Miniredis
	store   *redis.Storage
	parties *party.Service
	teams   *queue.TeamService
	svc     *Service
	now     time.Time
}

func newRosterEnv(t *testing.T) *rosterEnv {
	s := miniredis.RunT(t)
	store := redis.NewRedisStorage(redis.Options{
		Addr:     s.Addr(),
		Password: "", // no password set
		DB:       0,  // use default DB
	}, "scrimtest")
	t.Cleanup(func() { _ = store.Close() })

	env := &rosterEnv{
		mr:    s,
		store: &store,
		now:   time.UnixMilli(1_700_000_000_000),
	}
	clock := func() time.Time { return env.now }
	env.parties = party.NewService(env.store)
	ratings := rating.NewResolver(env.store, time.Minute)
	builder := queue.NewBuilder(env.parties, ratings, clock)
	window := queue.WindowConfig{Start: 100, Step: 50, Interval: 15 * time.Second, Max: 400}
	env.teams = queue.NewTeamService(env.store, env.parties, builder, handoff.NopNotifier{}, queue.TeamConfig{
		Window:        window,
		TierTolerance: 20,
		Timeout:       180 * time.Second,
		ResultTTL:     90 * time.Second,
	}, clock)
	env.svc = NewService(env.store, env.parties, env.teams, Config{
		SelectionWindow: 120 * time.Second,
		Grace:           30 * time.Second,
	}, clock)
	return env
}

// seedRoster stores a selecting-phase team assembled from party
// "alpha" (three players, its leader arbitrating) and party "bravo"
// (two players), along with both durable party records.
func (e *rosterEnv) seedRoster(t *testing.T, teamID string) *types.AssembledTeam {
	t.Helper()
	ctx := context.Background()
	team := &types.AssembledTeam{
		Kind:        types.KindAssembled,
		V:           types.SchemaVersion,
		ID:          teamID,
		Phase:       types.RosterPhaseSelecting,
		MatchType:   types.MatchTypeRanked,
		PartyIDs:    []string{"alpha", "bravo"},
		AuthorityID: "alpha-u1",
		IGLVotes:    map[string]string{},
		AnchorVotes: map[string]string{},
		CreatedAt:   e.now.UnixMilli(),
	}
	sizes := map[string]int{"alpha": 3, "bravo": 2}
	for _, partyID := range team.PartyIDs {
		members := make([]types.PartyMember, 0, sizes[partyID])
		for i := 1; i <= sizes[partyID]; i++ {
			userID := fmt.Sprintf("%s-u%d", partyID, i)
			team.Members = append(team.Members, types.RosterMember{
				QueueMember:   types.QueueMember{UserID: userID, Rating: 300, Tier: 50},
				OriginPartyID: partyID,
			})
			members = append(members, types.PartyMember{UserID: userID, Ready: true})
		}
		assert.NilError(t, e.store.SaveParty(ctx, &types.PartySnapshot{
			ID:         partyID,
			LeaderID:   partyID + "-u1",
			Members:    members,
			QueueState: types.QueueStateRoster,
		}))
	}
	assert.NilError(t, e.store.SaveRoster(ctx, team, 120*time.Second))
	return team
}

func TestVoteMajorityPromotesIGL(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	team, err := env.svc.Select(ctx, "alpha-u1", "t1", "bravo-u1", RoleIGL, true)
	assert.NilError(t, err)
	assert.Equal(t, team.IGLID, "")
	team, err = env.svc.Select(ctx, "alpha-u2", "t1", "bravo-u1", RoleIGL, true)
	assert.NilError(t, err)
	assert.Equal(t, team.IGLID, "", "two of five votes are not a majority")

	team, err = env.svc.Select(ctx, "alpha-u3", "t1", "bravo-u1", RoleIGL, true)
	assert.NilError(t, err)
	assert.Equal(t, team.IGLID, "bravo-u1")

	stored, err := env.store.GetRoster(ctx, "t1")
	assert.NilError(t, err)
	assert.Equal(t, stored.IGLID, "bravo-u1")
	assert.Equal(t, len(stored.IGLVotes), 0, "a settled election leaves no ballots behind")
}

func TestVoteIsReplaceable(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	_, err := env.svc.Select(ctx, "alpha-u1", "t1", "bravo-u1", RoleIGL, true)
	assert.NilError(t, err)
	team, err := env.svc.Select(ctx, "alpha-u1", "t1", "bravo-u2", RoleIGL, true)
	assert.NilError(t, err)

	assert.Equal(t, len(team.IGLVotes), 1, "a new vote replaces the old one")
	assert.Equal(t, team.IGLVotes["alpha-u1"], "bravo-u2")
}

func TestDirectSelectionRequiresAuthority(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	_, err := env.svc.Select(ctx, "bravo-u1", "t1", "alpha-u2", RoleIGL, false)
	assert.ErrorIs(t, err, ErrNotAuthority)

	team, err := env.svc.Select(ctx, "alpha-u1", "t1", "alpha-u2", RoleIGL, false)
	assert.NilError(t, err)
	assert.Equal(t, team.IGLID, "alpha-u2", "the authority assigns without a vote")
}

func TestRolesMustBeDistinct(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	_, err := env.svc.Select(ctx, "alpha-u1", "t1", "alpha-u2", RoleIGL, false)
	assert.NilError(t, err)
	_, err = env.svc.Select(ctx, "alpha-u1", "t1", "alpha-u2", RoleAnchor, false)
	assert.ErrorIs(t, err, ErrAnchorIsIGL)
	_, err = env.svc.Select(ctx, "bravo-u1", "t1", "alpha-u2", RoleAnchor, true)
	assert.ErrorIs(t, err, ErrAnchorIsIGL, "votes hit the same wall")

	env.seedRoster(t, "t2")
	_, err = env.svc.Select(ctx, "alpha-u1", "t2", "bravo-u2", RoleAnchor, false)
	assert.NilError(t, err)
	_, err = env.svc.Select(ctx, "alpha-u1", "t2", "bravo-u2", RoleIGL, false)
	assert.ErrorIs(t, err, ErrAnchorIsIGL)
}

func TestStaleBallotsCannotReseatRoleHolder(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	// Three votes crown bravo-u1 IGL and settle that election.
	for _, voter := range []string{"alpha-u1", "alpha-u2", "alpha-u3"} {
		_, err := env.svc.Select(ctx, voter, "t1", "bravo-u1", RoleIGL, true)
		assert.NilError(t, err)
	}

	// The authority reassigns IGL, then hands the freed player the
	// anchor role.
	_, err := env.svc.Select(ctx, "alpha-u1", "t1", "alpha-u2", RoleIGL, false)
	assert.NilError(t, err)
	_, err = env.svc.Select(ctx, "alpha-u1", "t1", "bravo-u1", RoleAnchor, false)
	assert.NilError(t, err)

	// A later IGL vote counts from zero; it must not resurrect the
	// earlier majority for the sitting anchor.
	team, err := env.svc.Select(ctx, "bravo-u2", "t1", "alpha-u3", RoleIGL, true)
	assert.NilError(t, err)
	assert.Equal(t, team.IGLID, "alpha-u2")
	assert.Equal(t, team.AnchorID, "bravo-u1")
	assert.Equal(t, len(team.IGLVotes), 1)
	assert.Equal(t, team.IGLVotes["bravo-u2"], "alpha-u3")
}

func TestMajorityForOppositeRoleHolderIsNotSeated(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	team := env.seedRoster(t, "t1")

	// A record written before ballots were cleared on promotion: the
	// sitting anchor still holds a recorded IGL majority.
	team.AnchorID = "bravo-u1"
	team.IGLVotes = map[string]string{
		"alpha-u1": "bravo-u1",
		"alpha-u2": "bravo-u1",
		"alpha-u3": "bravo-u1",
	}
	assert.NilError(t, env.store.SaveRoster(ctx, team, 120*time.Second))

	got, err := env.svc.Select(ctx, "bravo-u2", "t1", "alpha-u1", RoleIGL, true)
	assert.NilError(t, err)
	assert.Equal(t, got.IGLID, "", "the stale majority stays unseated")
	assert.Equal(t, got.AnchorID, "bravo-u1")
	assert.Equal(t, len(got.IGLVotes), 1, "only the fresh ballot survives")
	assert.Equal(t, got.IGLVotes["bravo-u2"], "alpha-u1")
}

func TestSelectValidations(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	_, err := env.svc.Select(ctx, "alpha-u1", "missing", "alpha-u2", RoleIGL, true)
	assert.ErrorIs(t, err, ErrTeamNotFound)
	_, err = env.svc.Select(ctx, "outsider", "t1", "alpha-u2", RoleIGL, true)
	assert.ErrorIs(t, err, ErrNotOnTeam)
	_, err = env.svc.Select(ctx, "alpha-u1", "t1", "outsider", RoleIGL, true)
	assert.ErrorIs(t, err, ErrInvalidCandidate)
}

func TestSelectionNeverExtendsTheWindow(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	// A vote at the halfway mark re-persists with only the remainder.
	env.now = env.now.Add(60 * time.Second)
	_, err := env.svc.Select(ctx, "alpha-u1", "t1", "bravo-u1", RoleIGL, true)
	assert.NilError(t, err)

	env.mr.FastForward(61 * time.Second)
	_, err = env.store.GetRoster(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSelectAfterWindowLapseDropsRoster(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	env.now = env.now.Add(121 * time.Second)
	_, err := env.svc.Select(ctx, "alpha-u1", "t1", "bravo-u1", RoleIGL, true)
	assert.ErrorIs(t, err, ErrTeamNotFound)

	_, err = env.store.GetRoster(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLeaveStripsConstituent(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	// bravo-u1 holds IGL, and anchor votes exist in both directions.
	_, err := env.svc.Select(ctx, "alpha-u1", "t1", "bravo-u1", RoleIGL, false)
	assert.NilError(t, err)
	_, err = env.svc.Select(ctx, "alpha-u2", "t1", "bravo-u2", RoleAnchor, true)
	assert.NilError(t, err)
	_, err = env.svc.Select(ctx, "bravo-u2", "t1", "alpha-u3", RoleAnchor, true)
	assert.NilError(t, err)

	team, err := env.svc.Leave(ctx, "bravo-u1", "t1", "bravo")
	assert.NilError(t, err)
	assert.Equal(t, team.Size(), 3)
	assert.DeepEqual(t, team.PartyIDs, []string{"alpha"})
	assert.Equal(t, team.IGLID, "", "a seceding role holder vacates the role")
	assert.Equal(t, len(team.AnchorVotes), 0, "votes by and for the leavers are dropped")
	assert.Equal(t, team.Phase, types.RosterPhaseSelecting)

	_, err = env.store.GetRosterByParty(ctx, "bravo")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	linked, err := env.store.GetRosterByParty(ctx, "alpha")
	assert.NilError(t, err)
	assert.Equal(t, linked.ID, "t1")

	bravo, err := env.store.GetParty(ctx, "bravo")
	assert.NilError(t, err)
	assert.Equal(t, bravo.QueueState, types.QueueStateNone)

	// The shrunken roster only survives the secession grace period.
	env.mr.FastForward(31 * time.Second)
	_, err = env.store.GetRoster(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLeaveValidations(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	_, err := env.svc.Leave(ctx, "u1", "missing", "bravo")
	assert.ErrorIs(t, err, ErrTeamNotFound)
	_, err = env.svc.Leave(ctx, "u1", "t1", "charlie")
	assert.ErrorIs(t, err, ErrNotConstituent)
	_, err = env.svc.Leave(ctx, "bravo-u2", "t1", "bravo")
	assert.ErrorIs(t, err, party.ErrNotLeader)
}

func TestLeaveLastPartyDisbands(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	_, err := env.svc.Leave(ctx, "alpha-u1", "t1", "alpha")
	assert.NilError(t, err)
	team, err := env.svc.Leave(ctx, "bravo-u1", "t1", "bravo")
	assert.NilError(t, err)

	assert.Equal(t, team.Phase, types.RosterPhaseDisbanded)
	assert.Equal(t, team.Size(), 0)
	_, err = env.store.GetRoster(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestConfirmMaterializesAndQueuesRanked(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")
	_, err := env.svc.Select(ctx, "alpha-u1", "t1", "alpha-u2", RoleIGL, false)
	assert.NilError(t, err)
	_, err = env.svc.Select(ctx, "alpha-u1", "t1", "bravo-u1", RoleAnchor, false)
	assert.NilError(t, err)

	result, err := env.svc.Confirm(ctx, "alpha-u1", "t1")
	assert.NilError(t, err)
	assert.Equal(t, result.Team.Phase, types.RosterPhaseConfirmed)

	unified := result.Party
	assert.Equal(t, unified.LeaderID, "alpha-u1")
	assert.Equal(t, unified.Mode, "5v5")
	assert.Equal(t, unified.IGLID, "alpha-u2")
	assert.Equal(t, unified.AnchorID, "bravo-u1")
	assert.Equal(t, len(unified.Members), types.RosterSize)
	assert.Equal(t, unified.ReadyCount(), types.RosterSize)

	assert.Equal(t, result.Entry.MatchType, types.MatchTypeRanked)
	assert.Equal(t, result.Entry.PartyID, unified.ID)

	// Roster keys and constituent parties are gone; the unified party
	// exists and already sits in the ranked queue.
	_, err = env.store.GetRoster(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	for _, partyID := range []string{"alpha", "bravo"} {
		_, err = env.store.GetRosterByParty(ctx, partyID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = env.store.GetParty(ctx, partyID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
	stored, err := env.store.GetParty(ctx, unified.ID)
	assert.NilError(t, err)
	assert.Equal(t, stored.QueueState, types.QueueStateTeam)
	entry, err := env.store.GetTeamEntry(ctx, unified.ID)
	assert.NilError(t, err)
	assert.Equal(t, entry.MatchType, types.MatchTypeRanked)
}

func TestConfirmValidations(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	env.seedRoster(t, "t1")

	_, err := env.svc.Confirm(ctx, "missing-user", "t1")
	assert.ErrorIs(t, err, ErrNotAuthority)
	_, err = env.svc.Confirm(ctx, "alpha-u1", "t1")
	assert.ErrorIs(t, err, ErrRolesUnassigned)
	_, err = env.svc.Confirm(ctx, "alpha-u1", "missing")
	assert.ErrorIs(t, err, ErrTeamNotFound)

	// A seceded constituent leaves the team short of five.
	_, err = env.svc.Leave(ctx, "bravo-u1", "t1", "bravo")
	assert.NilError(t, err)
	_, err = env.svc.Confirm(ctx, "alpha-u1", "t1")
	assert.ErrorIs(t, err, ErrTeamNotFull)
}

func TestConfirmRejectsSharedRoleHolderBeforeTeardown(t *testing.T) {
	env := newRosterEnv(t)
	ctx := context.Background()
	team := env.seedRoster(t, "t1")

	team.IGLID = "bravo-u1"
	team.AnchorID = "bravo-u1"
	assert.NilError(t, env.store.SaveRoster(ctx, team, 120*time.Second))

	_, err := env.svc.Confirm(ctx, "alpha-u1", "t1")
	assert.ErrorIs(t, err, ErrAnchorIsIGL)

	// The rejection tore nothing down: the roster and both constituent
	// parties are still there.
	_, err = env.store.GetRoster(ctx, "t1")
	assert.NilError(t, err)
	for _, partyID := range []string{"alpha", "bravo"} {
		snapshot, err := env.parties.Snapshot(ctx, partyID)
		assert.NilError(t, err)
		assert.Equal(t, snapshot.QueueState, types.QueueStateRoster)
	}
}
