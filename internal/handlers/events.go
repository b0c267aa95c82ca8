package handlers

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nvaldezc/food_orders/internal/notify"
)

const webhookSecretHeader = "X-Webhook-Secret"

// EventHandler is the change-event intake: the hosted store calls it on
// every order mutation.
type EventHandler struct {
	Secret   []byte
	Pipeline *Pipeline
}

func (h *EventHandler) HandleOrderEvent(c echo.Context) error {
	got := c.Request().Header.Get(webhookSecretHeader)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), h.Secret) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook secret")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}
	ev, err := notify.ParseEvent(body)
	if err != nil {
		return httpError(err)
	}

	res, err := h.Pipeline.Run(c.Request().Context(), *ev)
	if err != nil {
		// fail closed: never report success over skipped work
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
