package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/scrim/queue"
	"pkg.world.dev/scrim/reconcile"
	"pkg.world.dev/scrim/roster"
	"pkg.world.dev/scrim/server/handler"
)

const (
	defaultPort     = "4040"
	shutdownTimeout = 5 * time.Second
)

// Services are the engine components the HTTP surface exposes.
type Services struct {
	Teams      *queue.TeamService
	Mates      *queue.MateService
	Rosters    *roster.Service
	Reconciler *reconcile.Reconciler
	Pinger     handler.Pinger
}

type Server struct {
	app  *fiber.App
	svc  Services
	port string
}

// New returns an HTTP server with handlers for every queue, roster and
// reconciliation operation.
func New(svc Services, port string) (*Server, error) {
	if svc.Teams == nil || svc.Mates == nil || svc.Rosters == nil || svc.Reconciler == nil || svc.Pinger == nil {
		return nil, eris.New("server requires fully wired services")
	}
	if port == "" {
		port = defaultPort
	}

	app := fiber.New(fiber.Config{
		Network:               "tcp", // Enable server listening on both ipv4 & ipv6 (default: ipv4 only)
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})
	app.Use(cors.New())

	s := &Server{
		app:  app,
		svc:  svc,
		port: port,
	}
	s.setupRoutes()

	return s, nil
}

// Serve serves the application, blocking the calling thread.
// Call this in a new go routine to prevent blocking.
func (s *Server) Serve(ctx context.Context) error {
	serverErr := make(chan error, 1)

	// Starts the server in a new goroutine
	go func() {
		log.Info().Msgf("Starting HTTP server at port %s", s.port)
		if err := s.app.Listen(":" + s.port); err != nil {
			serverErr <- eris.Wrap(err, "error starting http server")
		}
	}()

	// This function will block until the server is shutdown or the context is canceled.
	select {
	case err := <-serverErr:
		return eris.Wrap(err, "server encountered an error")
	case <-ctx.Done():
		if err := s.shutdown(); err != nil {
			return eris.Wrap(err, "error shutting down server")
		}
	}

	return nil
}

// Test dispatches a request against the in-process router. Only used
// in tests.
func (s *Server) Test(req *http.Request, msTimeout ...int) (*http.Response, error) {
	return s.app.Test(req, msTimeout...)
}

// shutdown gracefully shuts down the server.
func (s *Server) shutdown() error {
	log.Info().Msg("Shutting down server")

	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return eris.Wrap(err, "error shutting down server")
	}

	log.Info().Msg("Successfully shut down server")
	return nil
}

func (s *Server) setupRoutes() {
	// Route: /health
	s.app.Get("/health", handler.GetHealth(s.svc.Pinger))

	// Route: /queue/team/...
	team := s.app.Group("/queue/team")
	team.Post("/join", handler.PostTeamJoin(s.svc.Teams))
	team.Post("/leave", handler.PostTeamLeave(s.svc.Teams))
	team.Post("/check", handler.PostTeamCheck(s.svc.Teams))
	team.Get("/count/:matchType", handler.GetTeamCount(s.svc.Teams))

	// Route: /queue/mate/...
	mate := s.app.Group("/queue/mate")
	mate.Post("/join", handler.PostMateJoin(s.svc.Mates))
	mate.Post("/leave", handler.PostMateLeave(s.svc.Mates))
	mate.Post("/check", handler.PostMateCheck(s.svc.Mates))

	// Route: /roster/...
	r := s.app.Group("/roster")
	r.Post("/igl", handler.PostSelectRole(s.svc.Rosters, roster.RoleIGL))
	r.Post("/anchor", handler.PostSelectRole(s.svc.Rosters, roster.RoleAnchor))
	r.Post("/leave", handler.PostRosterLeave(s.svc.Rosters))
	r.Post("/confirm", handler.PostRosterConfirm(s.svc.Rosters))

	// Route: /reconcile/...
	s.app.Post("/reconcile", handler.PostReconcile(s.svc.Reconciler))
	s.app.Get("/reconcile/party/:partyID", handler.GetPartyConsistency(s.svc.Reconciler))
}
