package handler

import (
	"github.com/gofiber/fiber/v2"

	"pkg.world.dev/scrim/queue"
)

type MateJoinRequest struct {
	CallerID string `json:"caller_id"`
	PartyID  string `json:"party_id"`
}

type MateLeaveRequest struct {
	PartyID string `json:"party_id"`
}

type MateCheckRequest struct {
	PartyID string `json:"party_id"`
}

// PostMateJoin submits an under-strength party to the teammate
// assembly queue.
func PostMateJoin(mates *queue.MateService) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(MateJoinRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad Request - unparseable body")
		}
		if req.CallerID == "" || req.PartyID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "caller_id and party_id are required")
		}
		entry, err := mates.Join(ctx.UserContext(), req.CallerID, req.PartyID)
		if err != nil {
			return err
		}
		return ctx.JSON(entry)
	}
}

// PostMateLeave withdraws a party from the teammate queue. Any member
// may trigger it, and leaving a queue the party is not in is not an
// error.
func PostMateLeave(mates *queue.MateService) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(MateLeaveRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad Request - unparseable body")
		}
		if req.PartyID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "party_id is required")
		}
		if err := mates.Leave(ctx.UserContext(), req.PartyID); err != nil {
			return err
		}
		return ctx.JSON(AckResponse{Ok: true})
	}
}

// PostMateCheck is the poll endpoint that drives teammate assembly
// forward.
func PostMateCheck(mates *queue.MateService) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(MateCheckRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad Request - unparseable body")
		}
		if req.PartyID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "party_id is required")
		}
		status, err := mates.Check(ctx.UserContext(), req.PartyID)
		if err != nil {
			return err
		}
		return ctx.JSON(status)
	}
}
