package repository

import (
	"context"

	"gorm.io/gorm"

	"paydirekt-gateway/internal/model"
)

type CheckoutRepository interface {
	Create(ctx context.Context, checkout *model.Checkout) error
	FindByCheckoutID(ctx context.Context, checkoutID string) (*model.Checkout, error)
	Save(ctx context.Context, checkout *model.Checkout) error
	Exists(ctx context.Context, checkoutID string) (bool, error)
}

type checkoutRepositoryImpl struct {
	db *gorm.DB
}

func NewCheckoutRepository(db *gorm.DB) CheckoutRepository {
	return &checkoutRepositoryImpl{
		db: db,
	}
}

func (r *checkoutRepositoryImpl) Create(ctx context.Context, checkout *model.Checkout) error {
	return r.db.WithContext(ctx).Create(checkout).Error
}

func (r *checkoutRepositoryImpl) FindByCheckoutID(ctx context.Context, checkoutID string) (*model.Checkout, error) {
	var checkout model.Checkout
	err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		First(&checkout).Error

	if err != nil {
		return nil, err
	}

	return &checkout, nil
}

func (r *checkoutRepositoryImpl) Save(ctx context.Context, checkout *model.Checkout) error {
	return r.db.WithContext(ctx).Save(checkout).Error
}

func (r *checkoutRepositoryImpl) Exists(ctx context.Context, checkoutID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Checkout{}).
		Where("checkout_id = ?", checkoutID).
		Count(&count).Error

	return count > 0, err
}
