package notify

import (
	"fmt"

	"github.com/nvaldezc/food_orders/internal/order"
)

type TargetKind string

const (
	TargetAdmins  TargetKind = "admins"
	TargetUser    TargetKind = "user"
	TargetCourier TargetKind = "courier"
)

// Job is one planned notification, still abstract: the audience has not
// been resolved and nothing has been sent. Jobs live only in memory.
type Job struct {
	Kind   TargetKind
	UserID string // set for user/courier targets, empty for admins
	Title  string
	Body   string
	URL    string
	// Tag lets the receiving device collapse repeat notifications about
	// the same event. Not enforced server-side.
	Tag string
}

// CourierNameFunc is the single external read the planner is allowed: the
// first name of the assigned courier, for the shipped message. It must be
// deterministic for a given id within one planning call.
type CourierNameFunc func(courierID string) string

// Plan turns one normalized change event into the notifications it implies.
// It is a pure function of its inputs: replaying the same event yields the
// same job list, so a duplicated upstream event at worst duplicates a push.
func Plan(ev ChangeEvent, courierName CourierNameFunc) []Job {
	switch ev.Type {
	case EventInsert:
		return []Job{adminNewOrderJob(ev.Record)}
	case EventUpdate:
		return planUpdate(ev, courierName)
	default:
		return nil
	}
}

func planUpdate(ev ChangeEvent, courierName CourierNameFunc) []Job {
	var jobs []Job
	rec, old := ev.Record, ev.Old

	if courierAssigned(rec, old) {
		jobs = append(jobs, Job{
			Kind:   TargetCourier,
			UserID: *rec.DeliveryID,
			Title:  "Order assigned",
			Body:   fmt.Sprintf("Order for %s is yours to deliver", rec.ClientName),
			URL:    "/courier/orders/" + rec.ID,
			Tag:    rec.ID + "-assigned",
		})
	}

	if old == nil || rec.Status == old.Status {
		return jobs
	}

	if rec.Status == order.StatusCancelled {
		jobs = append(jobs, Job{
			Kind:  TargetAdmins,
			Title: "Order cancelled",
			Body:  fmt.Sprintf("Order for %s was cancelled", rec.ClientName),
			URL:   "/admin/orders/" + rec.ID,
			Tag:   rec.ID + "-" + order.StatusCancelled,
		})
		if rec.DeliveryID != nil {
			jobs = append(jobs, Job{
				Kind:   TargetCourier,
				UserID: *rec.DeliveryID,
				Title:  "Delivery cancelled",
				Body:   fmt.Sprintf("Order for %s was cancelled", rec.ClientName),
				URL:    "/courier/orders/" + rec.ID,
				Tag:    rec.ID + "-" + order.StatusCancelled,
			})
		}
		return jobs
	}

	if rec.UserID != nil {
		if title, body, ok := statusMessage(rec, courierName); ok {
			jobs = append(jobs, Job{
				Kind:   TargetUser,
				UserID: *rec.UserID,
				Title:  title,
				Body:   body,
				URL:    "/orders/" + rec.ID,
				Tag:    rec.ID + "-" + rec.Status,
			})
		}
	}
	return jobs
}

func adminNewOrderJob(rec OrderRecord) Job {
	return Job{
		Kind:  TargetAdmins,
		Title: "New order",
		Body:  fmt.Sprintf("%s placed an order for $%.2f", rec.ClientName, rec.Total),
		URL:   "/admin/orders/" + rec.ID,
		Tag:   rec.ID + "-created",
	}
}

func courierAssigned(rec OrderRecord, old *OrderRecord) bool {
	if rec.DeliveryID == nil {
		return false
	}
	if old == nil || old.DeliveryID == nil {
		return true
	}
	return *old.DeliveryID != *rec.DeliveryID
}

func statusMessage(rec OrderRecord, courierName CourierNameFunc) (string, string, bool) {
	switch rec.Status {
	case order.StatusPending:
		return "Order confirmed", "We received your order and will start soon", true
	case order.StatusCooking:
		return "Order in the kitchen", "Your order is being prepared", true
	case order.StatusReady:
		return "Order ready", "Your order is ready for pickup or dispatch", true
	case order.StatusShipped:
		name := ""
		if rec.DeliveryID != nil && courierName != nil {
			name = courierName(*rec.DeliveryID)
		}
		if name == "" {
			return "Order on the way", "Your order is on the way", true
		}
		return "Order on the way", fmt.Sprintf("%s is on the way with your order", name), true
	case order.StatusDelivered:
		return "Order delivered", "Enjoy! Your order was delivered", true
	}
	return "", "", false
}
