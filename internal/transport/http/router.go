package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/nvaldezc/food_orders/internal/handlers"
	"github.com/nvaldezc/food_orders/internal/middleware/auth"
	"github.com/nvaldezc/food_orders/internal/models"
)

type Deps struct {
	DB                  *gorm.DB
	JWTSecret           []byte
	EventHandler        *handlers.EventHandler
	OrderHandler        *handlers.OrderHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	CourierHandler      *handlers.CourierHandler
	SearchHandler       *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	// store change events, authenticated by shared secret header
	e.POST("/hooks/orders", d.EventHandler.HandleOrderEvent)

	v1 := e.Group("/api/v1")

	v1.POST("/orders", d.OrderHandler.CreateOrder)
	v1.GET("/orders/:id", d.OrderHandler.GetOrder)
	v1.GET("/orders/:id/track", d.OrderHandler.TrackOrder)
	v1.GET("/orders/:id/stream", d.OrderHandler.StreamOrder)
	v1.POST("/courier/login", d.CourierHandler.Login)

	authed := v1.Group("", auth.Middleware(d.JWTSecret))
	authed.POST("/orders/:id/cancel", d.OrderHandler.CancelOrder)
	authed.POST("/push/subscriptions", d.SubscriptionHandler.Subscribe)
	authed.DELETE("/push/subscriptions", d.SubscriptionHandler.Unsubscribe)
	authed.POST("/push/test", d.SubscriptionHandler.SelfTest)

	admin := v1.Group("/admin", auth.Middleware(d.JWTSecret), auth.RequireRole(models.RoleAdmin))
	admin.PATCH("/orders/:id/status", d.OrderHandler.UpdateStatus)
	admin.PATCH("/orders/:id/courier", d.OrderHandler.AssignCourier)
	admin.GET("/orders/search", d.SearchHandler.SearchOrders)
	admin.POST("/couriers/:id/access-code", d.CourierHandler.SetAccessCode)

	courier := v1.Group("/courier", auth.Middleware(d.JWTSecret), auth.RequireRole(models.RoleDelivery, models.RoleAdmin))
	courier.PATCH("/orders/:id/status", d.OrderHandler.UpdateStatus)
	courier.POST("/position", d.CourierHandler.ReportPosition)
}
