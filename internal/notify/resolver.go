package notify

import (
	"context"

	"gorm.io/gorm"

	"github.com/nvaldezc/food_orders/internal/models"
)

// Resolver expands an abstract job audience into concrete profile ids.
type Resolver struct {
	DB *gorm.DB
}

// Resolve queries admins fresh on every call so a newly added admin is
// picked up by the very next event. User and courier targets pass through.
// An empty result is not an error, it just means zero sends.
func (r *Resolver) Resolve(ctx context.Context, j Job) ([]string, error) {
	switch j.Kind {
	case TargetAdmins:
		var ids []string
		err := r.DB.WithContext(ctx).Model(&models.Profile{}).
			Where("role = ?", models.RoleAdmin).
			Pluck("id", &ids).Error
		if err != nil {
			return nil, err
		}
		return ids, nil
	default:
		if j.UserID == "" {
			return nil, nil
		}
		return []string{j.UserID}, nil
	}
}
