package notify

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nvaldezc/food_orders/internal/models"
)

// Registry is the durable endpoint-keyed store of push subscriptions.
type Registry struct {
	DB *gorm.DB
}

// Upsert registers or refreshes a device subscription. The endpoint is the
// identity: a device re-subscribing overwrites its own row, never creating
// a duplicate, and a previously disabled row comes back enabled with the
// newest keys.
func (r *Registry) Upsert(ctx context.Context, sub models.PushSubscription) error {
	sub.Enabled = true
	if sub.LastSeenAt.IsZero() {
		sub.LastSeenAt = time.Now()
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "role", "p256dh_key", "auth_key", "user_agent",
			"enabled", "last_seen_at", "updated_at",
		}),
	}).Create(&sub).Error
}

// Disable soft-deletes one endpoint. The row is kept for audit; disabling
// an unknown endpoint is a no-op so the client flow stays idempotent.
func (r *Registry) Disable(ctx context.Context, endpoint string) error {
	return r.DB.WithContext(ctx).Model(&models.PushSubscription{}).
		Where("endpoint = ?", endpoint).
		Update("enabled", false).Error
}

// ListEnabled fetches every enabled subscription owned by any of the given
// users in one query.
func (r *Registry) ListEnabled(ctx context.Context, userIDs []string) ([]models.PushSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var subs []models.PushSubscription
	err := r.DB.WithContext(ctx).
		Where("user_id IN ? AND enabled = ?", userIDs, true).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
