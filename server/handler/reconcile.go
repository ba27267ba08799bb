package handler

import (
	"github.com/gofiber/fiber/v2"

	"pkg.world.dev/scrim/reconcile"
)

// PostReconcile runs a full repair pass over the durable flags and the
// ephemeral queues.
func PostReconcile(rec *reconcile.Reconciler) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		report, err := rec.Run(ctx.UserContext())
		if err != nil {
			return err
		}
		return ctx.JSON(report)
	}
}

// GetPartyConsistency reports, without repairing, whether one party's
// durable flag matches the ephemeral store.
func GetPartyConsistency(rec *reconcile.Reconciler) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		consistency, err := rec.Validate(ctx.UserContext(), ctx.Params("partyID"))
		if err != nil {
			return err
		}
		return ctx.JSON(consistency)
	}
}
