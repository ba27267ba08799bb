package handler

import (
	"github.com/gofiber/fiber/v2"

	"pkg.world.dev/scrim/queue"
	"pkg.world.dev/scrim/types"
)

type TeamJoinRequest struct {
	CallerID  string          `json:"caller_id"`
	PartyID   string          `json:"party_id"`
	MatchType types.MatchType `json:"match_type"`
}

type TeamLeaveRequest struct {
	CallerID string `json:"caller_id"`
	PartyID  string `json:"party_id"`
}

type TeamCheckRequest struct {
	PartyID string `json:"party_id"`
}

type TeamCountResponse struct {
	MatchType types.MatchType `json:"match_type"`
	Count     int64           `json:"count"`
}

// AckResponse acknowledges an operation that has no payload to return.
type AckResponse struct {
	Ok bool `json:"ok"`
}

// PostTeamJoin submits a full party to the ranked or casual queue.
func PostTeamJoin(teams *queue.TeamService) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(TeamJoinRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad Request - unparseable body")
		}
		if req.CallerID == "" || req.PartyID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "caller_id and party_id are required")
		}
		entry, err := teams.Join(ctx.UserContext(), req.CallerID, req.PartyID, req.MatchType)
		if err != nil {
			return err
		}
		return ctx.JSON(entry)
	}
}

// PostTeamLeave withdraws a party from the full-party queue. Leaving
// a queue the party is not in is not an error.
func PostTeamLeave(teams *queue.TeamService) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(TeamLeaveRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad Request - unparseable body")
		}
		if req.CallerID == "" || req.PartyID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "caller_id and party_id are required")
		}
		if err := teams.Leave(ctx.UserContext(), req.CallerID, req.PartyID); err != nil {
			return err
		}
		return ctx.JSON(AckResponse{Ok: true})
	}
}

// PostTeamCheck is the poll endpoint that drives full-party
// matchmaking forward.
func PostTeamCheck(teams *queue.TeamService) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(TeamCheckRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad Request - unparseable body")
		}
		if req.PartyID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "party_id is required")
		}
		status, err := teams.Check(ctx.UserContext(), req.PartyID)
		if err != nil {
			return err
		}
		return ctx.JSON(status)
	}
}

func GetTeamCount(teams *queue.TeamService) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		matchType := types.MatchType(ctx.Params("matchType"))
		count, err := teams.Count(ctx.UserContext(), matchType)
		if err != nil {
			return err
		}
		return ctx.JSON(TeamCountResponse{MatchType: matchType, Count: count})
	}
}
