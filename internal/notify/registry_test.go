package notify

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nvaldezc/food_orders/internal/models"
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

func TestUpsertIsIdempotentByEndpoint(t *testing.T) {
	r := &Registry{DB: InitTestDB(t)}
	ctx := context.Background()

	first := models.PushSubscription{
		UserID:    "u1",
		Role:      models.RoleCustomer,
		Endpoint:  "https://push.example/ep1",
		P256dhKey: "key-old",
		AuthKey:   "auth-old",
	}
	require.NoError(t, r.Upsert(ctx, first))

	second := first
	second.P256dhKey = "key-new"
	second.AuthKey = "auth-new"
	require.NoError(t, r.Upsert(ctx, second))

	var count int64
	require.NoError(t, r.DB.Model(&models.PushSubscription{}).Count(&count).Error)
	require.EqualValues(t, 1, count, "re-subscribing must overwrite, never duplicate")

	var stored models.PushSubscription
	require.NoError(t, r.DB.First(&stored, "endpoint = ?", first.Endpoint).Error)
	require.Equal(t, "key-new", stored.P256dhKey)
	require.Equal(t, "auth-new", stored.AuthKey)
	require.True(t, stored.Enabled)
}

func TestUpsertReenablesDisabledRow(t *testing.T) {
	r := &Registry{DB: InitTestDB(t)}
	ctx := context.Background()

	sub := models.PushSubscription{UserID: "u1", Role: models.RoleCustomer, Endpoint: "ep1", P256dhKey: "k", AuthKey: "a"}
	require.NoError(t, r.Upsert(ctx, sub))
	require.NoError(t, r.Disable(ctx, "ep1"))

	subs, err := r.ListEnabled(ctx, []string{"u1"})
	require.NoError(t, err)
	require.Empty(t, subs)

	require.NoError(t, r.Upsert(ctx, sub))
	subs, err = r.ListEnabled(ctx, []string{"u1"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
}

func TestDisableKeepsRow(t *testing.T) {
	r := &Registry{DB: InitTestDB(t)}
	ctx := context.Background()

	sub := models.PushSubscription{UserID: "u1", Role: models.RoleCustomer, Endpoint: "ep1", P256dhKey: "k", AuthKey: "a"}
	require.NoError(t, r.Upsert(ctx, sub))
	require.NoError(t, r.Disable(ctx, "ep1"))

	// soft delete: the row stays for audit
	var stored models.PushSubscription
	require.NoError(t, r.DB.First(&stored, "endpoint = ?", "ep1").Error)
	require.False(t, stored.Enabled)

	// unknown endpoint is a no-op
	require.NoError(t, r.Disable(ctx, "ghost"))
}

func TestListEnabledBatch(t *testing.T) {
	r := &Registry{DB: InitTestDB(t)}
	ctx := context.Background()

	for _, s := range []models.PushSubscription{
		{UserID: "u1", Role: models.RoleCustomer, Endpoint: "ep1", P256dhKey: "k", AuthKey: "a"},
		{UserID: "u1", Role: models.RoleCustomer, Endpoint: "ep2", P256dhKey: "k", AuthKey: "a"},
		{UserID: "u2", Role: models.RoleAdmin, Endpoint: "ep3", P256dhKey: "k", AuthKey: "a"},
		{UserID: "u3", Role: models.RoleAdmin, Endpoint: "ep4", P256dhKey: "k", AuthKey: "a"},
	} {
		require.NoError(t, r.Upsert(ctx, s))
	}
	require.NoError(t, r.Disable(ctx, "ep2"))

	subs, err := r.ListEnabled(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	require.Len(t, subs, 2)

	subs, err = r.ListEnabled(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, subs)
}
