package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/snapwatch/snapwatch/internal/errors"
)

// SubscriptionRequest toggles a profile's subscription to one channel.
// Value true attaches, false detaches; both directions are idempotent.
type SubscriptionRequest struct {
	Type  string `json:"type"` // "telegram" or "webhook"
	ID    uint   `json:"id"`   // channel config ID
	Value bool   `json:"value"`
}

// ToggleSubscription attaches or detaches a notification channel for a
// profile. Repeating a request never changes the outcome, so clients may
// retry freely.
func (c *Controller) ToggleSubscription(ctx echo.Context) error {
	profileID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid profile ID")
	}

	var req SubscriptionRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, errors.ValidationError("invalid request body"), "Invalid request body")
	}

	switch req.Type {
	case "telegram":
		err = c.DS.SetTelegramSubscription(profileID, req.ID, req.Value)
	case "webhook":
		err = c.DS.SetWebhookSubscription(profileID, req.ID, req.Value)
	default:
		err = errors.ValidationError("unknown subscription type %q", req.Type)
	}
	if err != nil {
		return c.HandleError(ctx, err, "Failed to update subscription")
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"profile_id": profileID,
		"type":       req.Type,
		"id":         req.ID,
		"value":      req.Value,
	})
}
