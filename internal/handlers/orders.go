package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/nvaldezc/food_orders/internal/middleware/auth"
	"github.com/nvaldezc/food_orders/internal/models"
	"github.com/nvaldezc/food_orders/internal/notify"
	"github.com/nvaldezc/food_orders/internal/order"
	"github.com/nvaldezc/food_orders/internal/service/search"
	"github.com/nvaldezc/food_orders/internal/tracking"
)

type OrderHandler struct {
	Service  *order.Service
	Pipeline *Pipeline
	Hub      *tracking.Hub
	ES       *elasticsearch.Client
	ESIndex  string
	Log      *slog.Logger
}

type createOrderRequest struct {
	ClientName   string   `json:"client_name"`
	ClientPhone  string   `json:"client_phone"`
	DeliveryType string   `json:"delivery_type"`
	Shipping     float64  `json:"shipping"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Observations string   `json:"observations"`
	Items        []struct {
		ProductID string  `json:"product_id"`
		Name      string  `json:"name"`
		UnitPrice float64 `json:"unit_price"`
		Quantity  uint    `json:"quantity"`
	} `json:"items"`
}

// CreateOrder accepts both authenticated customers and guest checkouts;
// a guest order simply has no user_id.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	in := order.CreateInput{
		ClientName:   req.ClientName,
		ClientPhone:  req.ClientPhone,
		DeliveryType: req.DeliveryType,
		Shipping:     req.Shipping,
		Lat:          req.Lat,
		Lng:          req.Lng,
		Observations: req.Observations,
	}
	if claims := auth.FromContext(c); claims.UserID != "" {
		id := claims.UserID
		in.UserID = &id
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	ord, err := h.Service.Create(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}

	h.afterMutation(c, notify.FromOrders(notify.EventInsert, ord, nil), ord)
	return c.JSON(http.StatusCreated, ord)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ord, err := h.Service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ord)
}

// UpdateStatus moves the order one lifecycle step. The compare-and-set
// inside the service surfaces concurrent edits as 409 instead of losing
// them.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}

	claims := auth.FromContext(c)
	actor := order.Actor{ID: claims.UserID, Role: claims.Role}
	old, updated, err := h.Service.Transition(c.Request().Context(), c.Param("id"), req.Status, actor)
	if err != nil {
		return httpError(err)
	}

	h.afterMutation(c, notify.FromOrders(notify.EventUpdate, updated, old), updated)
	h.publishTracking(updated)
	return c.JSON(http.StatusOK, updated)
}

// AssignCourier sets delivery_id. Courier assignment is a separate
// mutation from status and goes through no status validation.
func (h *OrderHandler) AssignCourier(c echo.Context) error {
	var req struct {
		DeliveryID         string  `json:"delivery_id"`
		ExpectedDeliveryID *string `json:"expected_delivery_id"`
	}
	if err := c.Bind(&req); err != nil || req.DeliveryID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "delivery_id is required")
	}

	old, updated, err := h.Service.AssignCourier(c.Request().Context(), c.Param("id"), req.DeliveryID, req.ExpectedDeliveryID)
	if err != nil {
		return httpError(err)
	}

	h.afterMutation(c, notify.FromOrders(notify.EventUpdate, updated, old), updated)
	return c.JSON(http.StatusOK, updated)
}

func (h *OrderHandler) CancelOrder(c echo.Context) error {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	claims := auth.FromContext(c)
	actor := order.Actor{ID: claims.UserID, Role: claims.Role}
	old, updated, err := h.Service.Cancel(c.Request().Context(), c.Param("id"), req.Reason, actor)
	if err != nil {
		return httpError(err)
	}

	h.afterMutation(c, notify.FromOrders(notify.EventUpdate, updated, old), updated)
	h.publishTracking(updated)
	return c.JSON(http.StatusOK, updated)
}

// TrackOrder returns the authoritative tracking snapshot for one order.
func (h *OrderHandler) TrackOrder(c echo.Context) error {
	ord, err := h.Service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, h.snapshot(ord))
}

// StreamOrder is the live-tracking stream: one SSE session per open tab.
// Every message carries the full payload, so a late or reconnecting
// session needs no catch-up.
func (h *OrderHandler) StreamOrder(c echo.Context) error {
	ord, err := h.Service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	session := h.Hub.Subscribe(ord.ID)
	defer session.Close()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	if err := writeSSE(c, h.snapshot(ord)); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-session.Updates():
			if err := writeSSE(c, u); err != nil {
				return nil
			}
		}
	}
}

func (h *OrderHandler) snapshot(ord *models.Order) tracking.OrderUpdate {
	return tracking.OrderUpdate{
		OrderID:   ord.ID,
		Status:    order.Canonical(ord.Status),
		CourierID: ord.DeliveryID,
		Lat:       ord.Lat,
		Lng:       ord.Lng,
		At:        time.Now(),
	}
}

func (h *OrderHandler) publishTracking(ord *models.Order) {
	h.Hub.Publish(tracking.OrderUpdate{
		OrderID:   ord.ID,
		Status:    order.Canonical(ord.Status),
		CourierID: ord.DeliveryID,
		At:        time.Now(),
	})
}

// afterMutation runs the notification pipeline and reindexes the order.
// The mutation is already durable at this point; downstream failures are
// logged, not surfaced as request errors.
func (h *OrderHandler) afterMutation(c echo.Context, ev notify.ChangeEvent, ord *models.Order) {
	ctx := c.Request().Context()
	if _, err := h.Pipeline.Run(ctx, ev); err != nil && h.Log != nil {
		h.Log.Error("notification dispatch failed", "order_id", ord.ID, "error", err)
	}
	if h.ES != nil {
		if err := search.IndexOrder(ctx, h.ES, h.ESIndex, ord); err != nil && h.Log != nil {
			h.Log.Warn("order index error", "order_id", ord.ID, "error", err)
		}
	}
}
