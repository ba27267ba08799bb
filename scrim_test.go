package scrim_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"gotest.tools/v3/assert"

	"pkg.world.dev/scrim"
	"pkg.world.dev/scrim/handoff"
	"pkg.world.dev/scrim/types"
)

const testEpochMs = 1_700_000_000_000

func newTestEngine(t *testing.T) *scrim.Engine {
	s := miniredis.RunT(t)
	now := time.UnixMilli(testEpochMs)
	engine, err := scrim.New(
		scrim.WithConfig(scrim.Config{RedisAddress: s.Addr(), Namespace: "scrimtest"}),
		scrim.WithClock(func() time.Time { return now }),
		scrim.WithNotifier(handoff.NopNotifier{}),
	)
	assert.NilError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func seedFullParty(t *testing.T, engine *scrim.Engine, id string) {
	t.Helper()
	members := make([]types.PartyMember, 0, types.RosterSize)
	for i := 1; i <= types.RosterSize; i++ {
		members = append(members, types.PartyMember{UserID: fmt.Sprintf("%s-u%d", id, i), Ready: true})
	}
	assert.NilError(t, engine.Storage().SaveParty(context.Background(), &types.PartySnapshot{
		ID:       id,
		LeaderID: id + "-u1",
		Members:  members,
		IGLID:    id + "-u1",
		AnchorID: id + "-u2",
	}))
}

func TestEngineServesHealth(t *testing.T) {
	engine := newTestEngine(t)
	assert.Equal(t, engine.Namespace(), "scrimtest")

	res, err := engine.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil), -1)
	assert.NilError(t, err)
	assert.Equal(t, res.StatusCode, fiber.StatusOK)
}

func TestEngineWiresQueueStack(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	seedFullParty(t, engine, "alpha")

	entry, err := engine.Teams().Join(ctx, "alpha-u1", "alpha", types.MatchTypeRanked)
	assert.NilError(t, err)
	// EnqueuedAt comes from the injected clock, not the wall clock.
	assert.Equal(t, entry.EnqueuedAt, int64(testEpochMs))

	status, err := engine.Teams().Check(ctx, "alpha")
	assert.NilError(t, err)
	assert.Equal(t, status.Phase, types.PhaseFindingOpponents)

	count, err := engine.Teams().Count(ctx, types.MatchTypeRanked)
	assert.NilError(t, err)
	assert.Equal(t, count, int64(1))

	snapshot, err := engine.Parties().Snapshot(ctx, "alpha")
	assert.NilError(t, err)
	assert.Equal(t, snapshot.QueueState, types.QueueStateTeam)

	report, err := engine.Reconciler().Run(ctx)
	assert.NilError(t, err)
	assert.Equal(t, report.Total(), 0, "a freshly joined queue needs no repair")
}

func TestEngineRoutesThroughHTTP(t *testing.T) {
	engine := newTestEngine(t)
	seedFullParty(t, engine, "alpha")

	body := `{"caller_id": "alpha-u1", "party_id": "alpha", "match_type": "casual"}`
	req := httptest.NewRequest(fiber.MethodPost, "/queue/team/join", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	res, err := engine.Test(req, -1)
	assert.NilError(t, err)
	assert.Equal(t, res.StatusCode, fiber.StatusOK)

	count, err := engine.Teams().Count(context.Background(), types.MatchTypeCasual)
	assert.NilError(t, err)
	assert.Equal(t, count, int64(1))
}
