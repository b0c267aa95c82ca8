package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nvaldezc/food_orders/internal/notify"
	"github.com/nvaldezc/food_orders/internal/order"
	"github.com/nvaldezc/food_orders/internal/profile"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// httpError maps domain errors onto HTTP statuses at the boundary.
func httpError(err error) error {
	switch {
	case errors.Is(err, order.ErrNotFound), errors.Is(err, order.ErrCourierNotFound),
		errors.Is(err, profile.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrConflict), errors.Is(err, profile.ErrCodeTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrNotAllowed), errors.Is(err, order.ErrRoleNotAllowed):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrUnknownStatus),
		errors.Is(err, order.ErrBadOrder), errors.Is(err, notify.ErrBadEvent),
		errors.Is(err, profile.ErrBadAccessCode):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, profile.ErrBadCode):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
