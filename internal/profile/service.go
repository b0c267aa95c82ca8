package profile

import (
	"context"
	"errors"
	"regexp"

	"gorm.io/gorm"

	"github.com/nvaldezc/food_orders/internal/hash"
	"github.com/nvaldezc/food_orders/internal/models"
)

var (
	ErrNotFound      = errors.New("profile not found")
	ErrBadAccessCode = errors.New("access code must be exactly 4 digits")
	ErrCodeTaken     = errors.New("access code already claimed by another courier")
	ErrBadCode       = errors.New("no courier matches this access code")
)

var accessCodeRe = regexp.MustCompile(`^\d{4}$`)

type Service struct {
	DB *gorm.DB
}

func (s *Service) Get(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetAccessCode claims a 4-digit code for a courier. Codes are stored
// hashed, so uniqueness is checked by comparing against every other
// courier's hash; the code space is tiny and couriers are few.
func (s *Service) SetAccessCode(ctx context.Context, courierID, code string) error {
	if !accessCodeRe.MatchString(code) {
		return ErrBadAccessCode
	}
	couriers, err := s.listCouriers(ctx)
	if err != nil {
		return err
	}
	for _, c := range couriers {
		if c.ID == courierID || c.AccessCodeHash == "" {
			continue
		}
		if hash.CheckAccessCode(c.AccessCodeHash, code) {
			return ErrCodeTaken
		}
	}

	hashed, err := hash.HashAccessCode(code)
	if err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND role = ?", courierID, models.RoleDelivery).
		Update("access_code_hash", hashed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// VerifyAccessCode resolves a code back to its courier for login.
func (s *Service) VerifyAccessCode(ctx context.Context, code string) (*models.Profile, error) {
	if !accessCodeRe.MatchString(code) {
		return nil, ErrBadAccessCode
	}
	couriers, err := s.listCouriers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range couriers {
		if couriers[i].AccessCodeHash != "" && hash.CheckAccessCode(couriers[i].AccessCodeHash, code) {
			return &couriers[i], nil
		}
	}
	return nil, ErrBadCode
}

func (s *Service) listCouriers(ctx context.Context) ([]models.Profile, error) {
	var couriers []models.Profile
	err := s.DB.WithContext(ctx).
		Where("role = ?", models.RoleDelivery).
		Find(&couriers).Error
	if err != nil {
		return nil, err
	}
	return couriers, nil
}
