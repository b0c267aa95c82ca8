package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nvaldezc/food_orders/internal/models"
	"github.com/nvaldezc/food_orders/internal/notify"
	"github.com/nvaldezc/food_orders/internal/order"
	"github.com/nvaldezc/food_orders/internal/tracking"
)

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Profile{}, &models.PushSubscription{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

// fakeSender records sends; endpoints marked gone fail permanently.
type fakeSender struct {
	mu   sync.Mutex
	gone map[string]bool
	sent []notify.Message
}

func (f *fakeSender) Send(_ context.Context, sub models.PushSubscription, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[sub.Endpoint] {
		return notify.ErrEndpointGone
	}
	f.sent = append(f.sent, msg)
	return nil
}

type testEnv struct {
	db       *gorm.DB
	sender   *fakeSender
	registry *notify.Registry
	pipeline *Pipeline
	hub      *tracking.Hub
	orders   *order.Service
}

func newTestEnv(t *testing.T) *testEnv {
	db := InitTestDB(t)
	sender := &fakeSender{gone: map[string]bool{}}
	registry := &notify.Registry{DB: db}
	dispatcher := &notify.Dispatcher{
		Registry: registry,
		Resolver: &notify.Resolver{DB: db},
		Sender:   sender,
	}
	hub := tracking.NewHub()
	return &testEnv{
		db:       db,
		sender:   sender,
		registry: registry,
		pipeline: &Pipeline{DB: db, Dispatcher: dispatcher},
		hub:      hub,
		orders:   &order.Service{DB: db},
	}
}

func (env *testEnv) seedProfile(t *testing.T, id, role string) {
	t.Helper()
	require.NoError(t, env.db.Create(&models.Profile{ID: id, Role: role, FirstName: "Carlos"}).Error)
}

func (env *testEnv) seedSubscription(t *testing.T, userID, role, endpoint string) {
	t.Helper()
	require.NoError(t, env.registry.Upsert(context.Background(), models.PushSubscription{
		UserID: userID, Role: role, Endpoint: endpoint, P256dhKey: "k", AuthKey: "a",
	}))
}

// newContext builds an echo context the way the router would, optionally
// with an authenticated identity already set.
func newContext(t *testing.T, method, path string, payload any, claims ...string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(claims) == 2 {
		c.Set("userID", claims[0])
		c.Set("role", claims[1])
	}
	return c, rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	return he.Code
}
