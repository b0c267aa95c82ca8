package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nvaldezc/food_orders/internal/middleware/auth"
	"github.com/nvaldezc/food_orders/internal/models"
	"github.com/nvaldezc/food_orders/internal/notify"
)

type SubscriptionHandler struct {
	Registry   *notify.Registry
	Dispatcher *notify.Dispatcher
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	UserAgent string     `json:"user_agent"`
	SeenAt    *time.Time `json:"seen_at"`
}

// Subscribe upserts the caller's device subscription, keyed by endpoint.
func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
	claims := auth.FromContext(c)

	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "endpoint and keys are required")
	}

	sub := models.PushSubscription{
		UserID:    claims.UserID,
		Role:      claims.Role,
		Endpoint:  req.Endpoint,
		P256dhKey: req.Keys.P256dh,
		AuthKey:   req.Keys.Auth,
		UserAgent: req.UserAgent,
	}
	if req.SeenAt != nil {
		sub.LastSeenAt = *req.SeenAt
	}
	if err := h.Registry.Upsert(c.Request().Context(), sub); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Unsubscribe disables the caller's subscription by endpoint. Idempotent.
func (h *SubscriptionHandler) Unsubscribe(c echo.Context) error {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := c.Bind(&req); err != nil || req.Endpoint == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "endpoint is required")
	}
	if err := h.Registry.Disable(c.Request().Context(), req.Endpoint); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SelfTest sends a single test push to the caller's own enabled
// subscriptions and reports the counts, so a user can verify their setup
// end to end.
func (h *SubscriptionHandler) SelfTest(c echo.Context) error {
	claims := auth.FromContext(c)
	job := notify.Job{
		Kind:   notify.TargetUser,
		UserID: claims.UserID,
		Title:  "Test notification",
		Body:   "Push notifications are working on this device",
		URL:    "/",
		Tag:    "self-test-" + claims.UserID,
	}
	res, err := h.Dispatcher.Dispatch(c.Request().Context(), []notify.Job{job})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
