package tracking

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nvaldezc/food_orders/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.Profile{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func TestReporterPublishesCourierPosition(t *testing.T) {
	db := initTestDB(t)
	lat, lng := -34.60, -58.38
	require.NoError(t, db.Create(&models.Profile{ID: "c1", Role: models.RoleDelivery, LastLat: &lat, LastLng: &lng}).Error)

	hub := NewHub()
	r := NewReporter(db, hub, nil)
	r.Interval = 5 * time.Millisecond

	session := hub.Subscribe("o1")
	defer session.Close()

	r.StartReporting("o1", "c1")
	defer r.Shutdown()

	select {
	case u := <-session.Updates():
		require.Equal(t, "o1", u.OrderID)
		require.Equal(t, "shipped", u.Status)
		require.Equal(t, lat, *u.Lat)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a position report")
	}
}

func TestReporterSkipsCourierWithoutPosition(t *testing.T) {
	db := initTestDB(t)
	require.NoError(t, db.Create(&models.Profile{ID: "c1", Role: models.RoleDelivery}).Error)

	hub := NewHub()
	r := NewReporter(db, hub, nil)
	r.Interval = 5 * time.Millisecond

	session := hub.Subscribe("o1")
	defer session.Close()

	r.StartReporting("o1", "c1")
	defer r.Shutdown()

	select {
	case <-session.Updates():
		t.Fatal("no position stored, nothing should be published")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReporterStopEndsLoop(t *testing.T) {
	db := initTestDB(t)
	lat, lng := 1.0, 2.0
	require.NoError(t, db.Create(&models.Profile{ID: "c1", Role: models.RoleDelivery, LastLat: &lat, LastLng: &lng}).Error)

	hub := NewHub()
	r := NewReporter(db, hub, nil)
	r.Interval = 5 * time.Millisecond

	session := hub.Subscribe("o1")
	defer session.Close()

	r.StartReporting("o1", "c1")
	// starting twice for the same order is a no-op
	r.StartReporting("o1", "c1")

	<-session.Updates()
	r.StopReporting("o1")

	// drain anything in flight, then confirm silence
	time.Sleep(20 * time.Millisecond)
	select {
	case <-session.Updates():
	default:
	}
	select {
	case <-session.Updates():
		t.Fatal("reporter kept publishing after stop")
	case <-time.After(50 * time.Millisecond):
	}
}
