package tracking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/nvaldezc/food_orders/internal/models"
	"github.com/nvaldezc/food_orders/internal/order"
)

const defaultReportInterval = 10 * time.Second

// Reporter runs one uncoordinated background loop per in-transit order,
// publishing the assigned courier's last stored position to the hub.
// It starts when an order ships and stops on delivered/cancelled or
// shutdown. A tick with no fresh position is simply skipped.
type Reporter struct {
	DB       *gorm.DB
	Hub      *Hub
	Interval time.Duration
	Log      *slog.Logger

	mu    sync.Mutex
	stops map[string]context.CancelFunc
	wg    sync.WaitGroup
}

func NewReporter(db *gorm.DB, hub *Hub, log *slog.Logger) *Reporter {
	return &Reporter{
		DB:       db,
		Hub:      hub,
		Interval: defaultReportInterval,
		Log:      log,
		stops:    map[string]context.CancelFunc{},
	}
}

func (r *Reporter) StartReporting(orderID, courierID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, running := r.stops[orderID]; running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.stops[orderID] = cancel
	r.wg.Add(1)
	go r.run(ctx, orderID, courierID)
}

func (r *Reporter) StopReporting(orderID string) {
	r.mu.Lock()
	cancel, ok := r.stops[orderID]
	if ok {
		delete(r.stops, orderID)
	}
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown stops every loop and waits for them to drain.
func (r *Reporter) Shutdown() {
	r.mu.Lock()
	for id, cancel := range r.stops {
		cancel()
		delete(r.stops, id)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Reporter) run(ctx context.Context, orderID, courierID string) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report(ctx, orderID, courierID)
		}
	}
}

func (r *Reporter) report(ctx context.Context, orderID, courierID string) {
	var courier models.Profile
	err := r.DB.WithContext(ctx).First(&courier, "id = ?", courierID).Error
	if err != nil {
		if r.Log != nil {
			r.Log.Warn("position report skipped", "order_id", orderID, "error", err)
		}
		return
	}
	if courier.LastLat == nil || courier.LastLng == nil {
		return
	}
	r.Hub.Publish(OrderUpdate{
		OrderID:   orderID,
		Status:    order.StatusShipped,
		CourierID: &courier.ID,
		Lat:       courier.LastLat,
		Lng:       courier.LastLng,
		At:        time.Now(),
	})
}
