package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nvaldezc/food_orders/internal/config"
	"github.com/nvaldezc/food_orders/internal/es"
	"github.com/nvaldezc/food_orders/internal/handlers"
	"github.com/nvaldezc/food_orders/internal/logging"
	"github.com/nvaldezc/food_orders/internal/mykafka"
	"github.com/nvaldezc/food_orders/internal/notify"
	"github.com/nvaldezc/food_orders/internal/order"
	"github.com/nvaldezc/food_orders/internal/profile"
	"github.com/nvaldezc/food_orders/internal/tracking"
	httpserver "github.com/nvaldezc/food_orders/internal/transport/http"
)

const ordersIndex = "orders"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS}, configuration.KAFKA_TOPIC)
	}

	hub := tracking.NewHub()
	reporter := tracking.NewReporter(db, hub, logger)

	registry := &notify.Registry{DB: db}
	resolver := &notify.Resolver{DB: db}
	sender := &notify.WebPushSender{
		PublicKey:  configuration.VAPID_PUBLIC_KEY,
		PrivateKey: configuration.VAPID_PRIVATE_KEY,
		Subscriber: configuration.VAPID_SUBSCRIBER,
	}
	dispatcher := &notify.Dispatcher{Registry: registry, Resolver: resolver, Sender: sender, Log: logger}

	pipeline := &handlers.Pipeline{DB: db, Dispatcher: dispatcher, Producer: prod, Log: logger}

	orderService := &order.Service{DB: db, Tracker: reporter, Log: logger}
	profileService := &profile.Service{DB: db}

	jwtSecret := []byte(configuration.JWT_SECRET)

	deps := httpserver.Deps{
		DB:        db,
		JWTSecret: jwtSecret,
		EventHandler: &handlers.EventHandler{
			Secret:   []byte(configuration.WEBHOOK_SECRET),
			Pipeline: pipeline,
		},
		OrderHandler: &handlers.OrderHandler{
			Service:  orderService,
			Pipeline: pipeline,
			Hub:      hub,
			ESIndex:  ordersIndex,
			Log:      logger,
		},
		SubscriptionHandler: &handlers.SubscriptionHandler{Registry: registry, Dispatcher: dispatcher},
		CourierHandler: &handlers.CourierHandler{
			Profiles:  profileService,
			Orders:    orderService,
			Hub:       hub,
			JWTSecret: jwtSecret,
			Log:       logger,
		},
		SearchHandler: &handlers.SearchHandler{Index: ordersIndex},
	}

	if configuration.ES_URL != "" {
		client, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		deps.OrderHandler.ES = client
		deps.SearchHandler.ES = client
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	reporter.Shutdown()

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
