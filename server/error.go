package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rotisserie/eris"

	"pkg.world.dev/scrim/party"
	"pkg.world.dev/scrim/queue"
	"pkg.world.dev/scrim/roster"
	"pkg.world.dev/scrim/storage"
)

type ErrorResponse struct {
	Error Error `json:"error"`
}

type Error struct {
	Message string `json:"message"`
}

var ErrorHandler = func(c *fiber.Ctx, err error) error {
	c.Set(fiber.HeaderContentType, "application/json")
	return c.Status(httpStatus(err)).JSON(ErrorResponse{Error: Error{Message: err.Error()}})
}

// httpStatus maps the engine's sentinel errors onto HTTP status codes.
// Store outages are checked first so a wrapped sentinel never masks a
// 503.
func httpStatus(err error) int {
	var e *fiber.Error
	switch {
	case errors.As(err, &e):
		return e.Code
	case eris.Is(err, storage.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case eris.Is(err, queue.ErrQueueTimeout):
		return fiber.StatusRequestTimeout
	case eris.Is(err, queue.ErrNotQueued),
		eris.Is(err, party.ErrPartyNotFound),
		eris.Is(err, roster.ErrTeamNotFound),
		eris.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound
	case eris.Is(err, party.ErrNotLeader),
		eris.Is(err, party.ErrNotMember),
		eris.Is(err, roster.ErrNotAuthority),
		eris.Is(err, roster.ErrNotOnTeam):
		return fiber.StatusForbidden
	case eris.Is(err, queue.ErrInvalidMatchType),
		eris.Is(err, queue.ErrRankedRequiresFive),
		eris.Is(err, queue.ErrRolesUnassigned),
		eris.Is(err, queue.ErrPartyNotFull),
		eris.Is(err, queue.ErrPartyFull),
		eris.Is(err, party.ErrEmptyParty),
		eris.Is(err, roster.ErrInvalidCandidate),
		eris.Is(err, roster.ErrAnchorIsIGL),
		eris.Is(err, roster.ErrRolesUnassigned),
		eris.Is(err, roster.ErrTeamNotFull),
		eris.Is(err, roster.ErrNotConstituent):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
