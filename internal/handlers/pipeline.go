package handlers

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/nvaldezc/food_orders/internal/models"
	"github.com/nvaldezc/food_orders/internal/mykafka"
	"github.com/nvaldezc/food_orders/internal/notify"
)

// Pipeline runs one change event end to end: plan, resolve, dispatch, and
// mirror the outcome to kafka. Both the webhook intake and the in-process
// order mutations go through it, so there is a single notification path.
type Pipeline struct {
	DB         *gorm.DB
	Dispatcher *notify.Dispatcher
	Producer   *mykafka.Producer
	Log        *slog.Logger
}

func (p *Pipeline) Run(ctx context.Context, ev notify.ChangeEvent) (notify.Result, error) {
	jobs := notify.Plan(ev, p.courierName(ctx))
	res, err := p.Dispatcher.Dispatch(ctx, jobs)
	if err != nil {
		return notify.Result{}, err
	}
	p.mirror(ctx, ev, len(jobs), res)
	return res, nil
}

// courierName is the planner's one permitted external read: the assigned
// courier's first name for the shipped message.
func (p *Pipeline) courierName(ctx context.Context) notify.CourierNameFunc {
	return func(courierID string) string {
		var prof models.Profile
		if err := p.DB.WithContext(ctx).First(&prof, "id = ?", courierID).Error; err != nil {
			return ""
		}
		return prof.FirstName
	}
}

func (p *Pipeline) mirror(ctx context.Context, ev notify.ChangeEvent, jobs int, res notify.Result) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	event := map[string]any{
		"type":             string(ev.Type),
		"order_id":         ev.Record.ID,
		"status":           ev.Record.Status,
		"jobs":             jobs,
		"sent":             res.Sent,
		"disabled_invalid": res.DisabledInvalid,
	}
	if err := p.Producer.PublishEvent(ctx, ev.Record.ID, event); err != nil && p.Log != nil {
		p.Log.Warn("kafka publish error", "order_id", ev.Record.ID, "error", err)
	}
}
