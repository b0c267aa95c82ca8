package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nvaldezc/food_orders/internal/models"
)

type Config struct {
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	JWT_SECRET     string
	WEBHOOK_SECRET string

	VAPID_PUBLIC_KEY  string
	VAPID_PRIVATE_KEY string
	VAPID_SUBSCRIBER  string

	KAFKA_ADDRESS string
	KAFKA_TOPIC   string

	LOG_LEVEL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:           os.Getenv("DB_HOST"),
		DB_PORT:           os.Getenv("DB_PORT"),
		DB_USER:           os.Getenv("DB_USER"),
		DB_PASSWORD:       os.Getenv("DB_PASSWORD"),
		DB_NAME:           os.Getenv("DB_NAME"),
		ES_URL:            os.Getenv("ES_URL"),
		ES_USER:           os.Getenv("ES_USER"),
		ES_PASSWORD:       os.Getenv("ES_PASSWORD"),
		JWT_SECRET:        os.Getenv("JWT_SECRET"),
		WEBHOOK_SECRET:    os.Getenv("WEBHOOK_SECRET"),
		VAPID_PUBLIC_KEY:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPID_PRIVATE_KEY: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPID_SUBSCRIBER:  os.Getenv("VAPID_SUBSCRIBER"),
		KAFKA_ADDRESS:     os.Getenv("KAFKA_ADDRESS"),
		KAFKA_TOPIC:       os.Getenv("KAFKA_TOPIC"),
		LOG_LEVEL:         os.Getenv("LOG_LEVEL"),
	}
	if config.KAFKA_TOPIC == "" {
		config.KAFKA_TOPIC = "order_events"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate refuses to start without the secrets the dispatch pipeline
// depends on. A service without them would accept events and silently
// send nothing.
func (c *Config) Validate() error {
	var missing []string
	required := map[string]string{
		"JWT_SECRET":        c.JWT_SECRET,
		"WEBHOOK_SECRET":    c.WEBHOOK_SECRET,
		"VAPID_PUBLIC_KEY":  c.VAPID_PUBLIC_KEY,
		"VAPID_PRIVATE_KEY": c.VAPID_PRIVATE_KEY,
		"VAPID_SUBSCRIBER":  c.VAPID_SUBSCRIBER,
	}
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}
	return nil
}

func InitDB(c *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB_USER, c.DB_PASSWORD, c.DB_HOST, c.DB_PORT, c.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Profile{}, &models.PushSubscription{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
