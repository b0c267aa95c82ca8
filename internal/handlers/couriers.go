package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nvaldezc/food_orders/internal/middleware/auth"
	"github.com/nvaldezc/food_orders/internal/order"
	"github.com/nvaldezc/food_orders/internal/profile"
	"github.com/nvaldezc/food_orders/internal/tracking"
)

type CourierHandler struct {
	Profiles  *profile.Service
	Orders    *order.Service
	Hub       *tracking.Hub
	JWTSecret []byte
	Log       *slog.Logger
}

// Login exchanges a courier's 4-digit access code for a bearer token.
func (h *CourierHandler) Login(c echo.Context) error {
	var req struct {
		AccessCode string `json:"access_code"`
	}
	if err := c.Bind(&req); err != nil || req.AccessCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "access_code is required")
	}

	courier, err := h.Profiles.VerifyAccessCode(c.Request().Context(), req.AccessCode)
	if err != nil {
		return httpError(err)
	}
	token, err := auth.SignToken(courier.ID, courier.Role, h.JWTSecret, 12*time.Hour)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access_token": token, "courier": courier})
}

// SetAccessCode lets an admin claim a code for a courier. An already
// claimed code is a conflict, not an overwrite.
func (h *CourierHandler) SetAccessCode(c echo.Context) error {
	var req struct {
		AccessCode string `json:"access_code"`
	}
	if err := c.Bind(&req); err != nil || req.AccessCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "access_code is required")
	}
	if err := h.Profiles.SetAccessCode(c.Request().Context(), c.Param("id"), req.AccessCode); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ReportPosition stores the courier's position and, when the sample
// belongs to an order the caller is delivering, pushes it straight to the
// live-tracking sessions.
func (h *CourierHandler) ReportPosition(c echo.Context) error {
	var req struct {
		OrderID string  `json:"order_id"`
		Lat     float64 `json:"lat"`
		Lng     float64 `json:"lng"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	claims := auth.FromContext(c)
	ctx := c.Request().Context()
	if err := h.Orders.UpdateCourierPosition(ctx, claims.UserID, req.Lat, req.Lng); err != nil {
		return httpError(err)
	}

	if req.OrderID != "" {
		ord, err := h.Orders.Get(ctx, req.OrderID)
		if err == nil && ord.Status == order.StatusShipped &&
			ord.DeliveryID != nil && *ord.DeliveryID == claims.UserID {
			h.Hub.Publish(tracking.OrderUpdate{
				OrderID:   ord.ID,
				Status:    ord.Status,
				CourierID: ord.DeliveryID,
				Lat:       &req.Lat,
				Lng:       &req.Lng,
				At:        time.Now(),
			})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
