// Package scrim assembles the team matchmaking engine: Redis-backed
// queue state, the poll-driven matchers, roster role selection, drift
// repair and the HTTP surface that exposes them.
package scrim

import (
	"context"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/scrim/handoff"
	"pkg.world.dev/scrim/metrics"
	"pkg.world.dev/scrim/party"
	"pkg.world.dev/scrim/queue"
	"pkg.world.dev/scrim/rating"
	"pkg.world.dev/scrim/reconcile"
	"pkg.world.dev/scrim/roster"
	"pkg.world.dev/scrim/server"
	"pkg.world.dev/scrim/storage/redis"
)

const redisDialTimeout = 15 * time.Second

type Engine struct {
	cfg   Config
	store *redis.Storage

	notifier handoff.Notifier
	nc       *nats.Conn

	parties    *party.Service
	ratings    *rating.Resolver
	teams      *queue.TeamService
	mates      *queue.MateService
	rosters    *roster.Service
	reconciler *reconcile.Reconciler

	server *server.Server
	clock  func() time.Time
}

// New creates a matchmaking engine using Redis as the state layer.
func New(opts ...Option) (*Engine, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, eris.Wrap(err, "Failed to load config to start engine")
	}

	e := &Engine{
		cfg:   cfg,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.setLogLevel(); err != nil {
		return nil, err
	}

	log.Info().Msgf("Creating a new scrim engine in namespace %q", e.cfg.Namespace)

	store := redis.NewRedisStorage(redis.Options{
		Addr:        e.cfg.RedisAddress,
		Password:    e.cfg.RedisPassword,
		DB:          0,                // use default DB
		DialTimeout: redisDialTimeout, // Increase startup dial timeout
	}, e.cfg.Namespace)
	e.store = &store

	pingCtx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := e.store.Ping(pingCtx); err != nil {
		return nil, eris.Wrap(err, "failed to reach redis")
	}

	if e.notifier == nil {
		if err := e.dialNotifier(); err != nil {
			return nil, err
		}
	}

	window := queue.WindowConfig{
		Start:    e.cfg.WindowStart,
		Step:     e.cfg.WindowStep,
		Interval: e.cfg.WindowInterval(),
		Max:      e.cfg.WindowMax,
	}

	e.parties = party.NewService(e.store)
	e.ratings = rating.NewResolver(e.store, e.cfg.RatingCacheTTL())
	builder := queue.NewBuilder(e.parties, e.ratings, e.clock)

	e.teams = queue.NewTeamService(e.store, e.parties, builder, e.notifier, queue.TeamConfig{
		Window:        window,
		TierTolerance: e.cfg.TierTolerance,
		Timeout:       e.cfg.QueueTimeout(),
		ResultTTL:     e.cfg.ResultTTL(),
	}, e.clock)

	merge := queue.GreedyMerge{TierTolerance: e.cfg.TierTolerance}
	e.mates = queue.NewMateService(e.store, e.parties, builder, merge, e.notifier, queue.MateConfig{
		Window:          window,
		TierTolerance:   e.cfg.TierTolerance,
		Timeout:         e.cfg.QueueTimeout(),
		SelectionWindow: e.cfg.SelectionWindow(),
	}, e.clock)

	e.rosters = roster.NewService(e.store, e.parties, e.teams, roster.Config{
		SelectionWindow: e.cfg.SelectionWindow(),
		Grace:           e.cfg.SecessionGrace(),
	}, e.clock)

	e.reconciler = reconcile.New(e.store, e.cfg.ReconcileInterval())

	srv, err := server.New(server.Services{
		Teams:      e.teams,
		Mates:      e.mates,
		Rosters:    e.rosters,
		Reconciler: e.reconciler,
		Pinger:     e.store,
	}, e.cfg.Port)
	if err != nil {
		return nil, err
	}
	e.server = srv

	return e, nil
}

// Serve runs the engine until the context is canceled: the metrics
// listener, the optional reconciliation loop and the HTTP API. It
// blocks the calling goroutine.
func (e *Engine) Serve(ctx context.Context) error {
	metrics.InitMetrics()
	metrics.ServeMetrics(":" + e.cfg.MetricsPort)

	go e.reconciler.Loop(ctx)

	serveErr := e.server.Serve(ctx)

	closeErr := e.Close()
	if serveErr != nil {
		return serveErr
	}
	return closeErr
}

// Close releases the engine's external connections.
func (e *Engine) Close() error {
	if e.nc != nil {
		e.nc.Close()
	}
	return e.store.Close()
}

// Test dispatches a request against the engine's router without a
// listener. Only used in tests.
func (e *Engine) Test(req *http.Request, msTimeout ...int) (*http.Response, error) {
	return e.server.Test(req, msTimeout...)
}

func (e *Engine) Teams() *queue.TeamService { return e.teams }

func (e *Engine) Mates() *queue.MateService { return e.mates }

func (e *Engine) Rosters() *roster.Service { return e.rosters }

func (e *Engine) Reconciler() *reconcile.Reconciler { return e.reconciler }

func (e *Engine) Parties() *party.Service { return e.parties }

func (e *Engine) Storage() *redis.Storage { return e.store }

func (e *Engine) Namespace() string { return e.cfg.Namespace }

// dialNotifier connects the NATS handoff when a URL is configured and
// falls back to the no-op notifier otherwise.
func (e *Engine) dialNotifier() error {
	if e.cfg.NatsURL == "" {
		log.Info().Msg("NATS_URL not set, match handoff notifications disabled")
		e.notifier = handoff.NopNotifier{}
		return nil
	}
	nc, err := nats.Connect(e.cfg.NatsURL)
	if err != nil {
		return eris.Wrap(err, "failed to connect to nats")
	}
	e.nc = nc
	e.notifier = handoff.NewNatsNotifier(nc)
	return nil
}
