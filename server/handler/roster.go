package handler

import (
	"github.com/gofiber/fiber/v2"

	"pkg.world.dev/scrim/roster"
)

type SelectRoleRequest struct {
	CallerID    string `json:"caller_id"`
	TeamID      string `json:"team_id"`
	CandidateID string `json:"candidate_id"`
	IsVote      bool   `json:"is_vote"`
}

type RosterLeaveRequest struct {
	CallerID string `json:"caller_id"`
	TeamID   string `json:"team_id"`
	PartyID  string `json:"party_id"`
}

type RosterConfirmRequest struct {
	CallerID string `json:"caller_id"`
	TeamID   string `json:"team_id"`
}

// PostSelectRole handles both the IGL and the Anchor endpoint; the
// bound role is fixed by the route.
func PostSelectRole(rosters *roster.Service, role roster.Role) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(SelectRoleRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad Request - unparseable body")
		}
		if req.CallerID == "" || req.TeamID == "" || req.CandidateID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "caller_id, team_id and candidate_id are required")
		}
		team, err := rosters.Select(ctx.UserContext(), req.CallerID, req.TeamID, req.CandidateID, role, req.IsVote)
		if err != nil {
			return err
		}
		return ctx.JSON(team)
	}
}

// PostRosterLeave withdraws one constituent party from an assembled
// team before confirmation.
func PostRosterLeave(rosters *roster.Service) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(RosterLeaveRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad Request - unparseable body")
		}
		if req.CallerID == "" || req.TeamID == "" || req.PartyID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "caller_id, team_id and party_id are required")
		}
		team, err := rosters.Leave(ctx.UserContext(), req.CallerID, req.TeamID, req.PartyID)
		if err != nil {
			return err
		}
		return ctx.JSON(team)
	}
}

// PostRosterConfirm locks in the role selection and sends the unified
// party to the ranked full-party queue.
func PostRosterConfirm(rosters *roster.Service) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(RosterConfirmRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad Request - unparseable body")
		}
		if req.CallerID == "" || req.TeamID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "caller_id and team_id are required")
		}
		result, err := rosters.Confirm(ctx.UserContext(), req.CallerID, req.TeamID)
		if err != nil {
			return err
		}
		return ctx.JSON(result)
	}
}
