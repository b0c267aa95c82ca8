package order

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nvaldezc/food_orders/internal/models"
)

var (
	ErrNotAllowed      = errors.New("actor not allowed for this operation")
	ErrBadOrder        = errors.New("invalid order payload")
	ErrCourierNotFound = errors.New("courier profile not found")
)

// Actor is the authenticated identity driving a mutation.
type Actor struct {
	ID   string
	Role string
}

// Tracker receives the side effects of lifecycle transitions: courier
// position reporting starts when an order ships and stops when it reaches
// a terminal state.
type Tracker interface {
	StartReporting(orderID, courierID string)
	StopReporting(orderID string)
}

type Service struct {
	DB      *gorm.DB
	Tracker Tracker
	Log     *slog.Logger
}

type CreateInput struct {
	UserID       *string
	ClientName   string
	ClientPhone  string
	Items        []models.OrderItem
	Shipping     float64
	DeliveryType string
	Lat          *float64
	Lng          *float64
	Observations string
}

func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	var ord models.Order
	err := s.DB.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

// Create stores a new pending order. Totals are computed server-side so the
// total = subtotal + shipping invariant always holds.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if in.ClientName == "" || len(in.Items) == 0 {
		return nil, ErrBadOrder
	}
	if in.DeliveryType != models.DeliveryTypePickup && in.DeliveryType != models.DeliveryTypeDelivery {
		return nil, ErrBadOrder
	}

	subtotal := 0.0
	for i := range in.Items {
		if in.Items[i].Quantity == 0 || in.Items[i].UnitPrice < 0 {
			return nil, ErrBadOrder
		}
		in.Items[i].Position = i
		subtotal += in.Items[i].UnitPrice * float64(in.Items[i].Quantity)
	}
	subtotal = round2(subtotal)

	ord := models.Order{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		ClientName:   in.ClientName,
		ClientPhone:  in.ClientPhone,
		Items:        in.Items,
		Subtotal:     subtotal,
		Shipping:     in.Shipping,
		Total:        round2(subtotal + in.Shipping),
		DeliveryType: in.DeliveryType,
		Lat:          in.Lat,
		Lng:          in.Lng,
		Observations: in.Observations,
		Status:       StatusPending,
	}
	if err := s.DB.WithContext(ctx).Create(&ord).Error; err != nil {
		return nil, err
	}
	return &ord, nil
}

// Transition moves an order to the next lifecycle status with a
// compare-and-set on the current one. A concurrent mutation by another
// actor makes the update match zero rows and surfaces as ErrConflict
// instead of silently overwriting.
func (s *Service) Transition(ctx context.Context, id, to string, actor Actor) (*models.Order, *models.Order, error) {
	to = Canonical(to)
	old, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := CanTransition(old.Status, to, actor.Role); err != nil {
		return nil, nil, err
	}
	if actor.Role == models.RoleDelivery && (old.DeliveryID == nil || *old.DeliveryID != actor.ID) {
		return nil, nil, ErrNotAllowed
	}

	if err := s.casStatus(ctx, id, old.Status, map[string]any{"status": to}); err != nil {
		return nil, nil, err
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	s.applySideEffects(ctx, updated)
	return old, updated, nil
}

// casStatus is the guarded write behind every status mutation: it matches
// the row only while the status is still the one the caller read, so a
// concurrent actor's update surfaces as ErrConflict instead of being
// silently overwritten.
func (s *Service) casStatus(ctx context.Context, id, from string, fields map[string]any) error {
	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// Cancel ends the order from any non-terminal state, keeping who asked for
// it and why. Customers may only cancel their own order.
func (s *Service) Cancel(ctx context.Context, id, reason string, actor Actor) (*models.Order, *models.Order, error) {
	old, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := CanTransition(old.Status, StatusCancelled, actor.Role); err != nil {
		return nil, nil, err
	}
	source := models.CancelSourceAdmin
	if actor.Role == models.RoleCustomer {
		if old.UserID == nil || *old.UserID != actor.ID {
			return nil, nil, ErrNotAllowed
		}
		source = models.CancelSourceCustomer
	}

	err = s.casStatus(ctx, id, old.Status, map[string]any{
		"status":        StatusCancelled,
		"cancel_reason": reason,
		"cancelled_by":  source,
	})
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	s.applySideEffects(ctx, updated)
	return old, updated, nil
}

// AssignCourier sets or reassigns delivery_id with a compare-and-set on the
// expected previous value. Assignment is independent of the status
// machine: it never touches, and is never blocked by, the order status.
func (s *Service) AssignCourier(ctx context.Context, id, courierID string, expected *string) (*models.Order, *models.Order, error) {
	var courier models.Profile
	err := s.DB.WithContext(ctx).First(&courier, "id = ? AND role = ?", courierID, models.RoleDelivery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrCourierNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	old, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	q := s.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id)
	if expected == nil {
		q = q.Where("delivery_id IS NULL")
	} else {
		q = q.Where("delivery_id = ?", *expected)
	}
	res := q.Update("delivery_id", courierID)
	if res.Error != nil {
		return nil, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil, ErrConflict
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return old, updated, nil
}

// UpdateCourierPosition persists the courier's last known position.
func (s *Service) UpdateCourierPosition(ctx context.Context, courierID string, lat, lng float64) error {
	now := time.Now()
	res := s.DB.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND role = ?", courierID, models.RoleDelivery).
		Updates(map[string]any{"last_lat": lat, "last_lng": lng, "last_seen_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCourierNotFound
	}
	return nil
}

func (s *Service) applySideEffects(ctx context.Context, ord *models.Order) {
	switch ord.Status {
	case StatusShipped:
		if ord.DeliveryID != nil && s.Tracker != nil {
			s.Tracker.StartReporting(ord.ID, *ord.DeliveryID)
		}
		if ord.UserID != nil {
			s.setActiveOrder(ctx, *ord.UserID, &ord.ID)
		}
	case StatusDelivered, StatusCancelled:
		if s.Tracker != nil {
			s.Tracker.StopReporting(ord.ID)
		}
		if ord.UserID != nil {
			s.setActiveOrder(ctx, *ord.UserID, nil)
		}
	}
}

func (s *Service) setActiveOrder(ctx context.Context, userID string, orderID *string) {
	err := s.DB.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", userID).
		Update("active_order_id", orderID).Error
	if err != nil && s.Log != nil {
		s.Log.Warn("update active order pointer", "user_id", userID, "error", err)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
