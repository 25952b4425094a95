package repository

import (
	"context"

	"gorm.io/gorm"

	"paydirekt-gateway/internal/model"
)

type CaptureRepository interface {
	Create(ctx context.Context, capture *model.Capture) error
	FindByTransactionID(ctx context.Context, transactionID string) (*model.Capture, error)
	Save(ctx context.Context, capture *model.Capture) error
	ListByCheckoutID(ctx context.Context, checkoutID string) ([]*model.Capture, error)
}

type captureRepositoryImpl struct {
	db *gorm.DB
}

func NewCaptureRepository(db *gorm.DB) CaptureRepository {
	return &captureRepositoryImpl{
		db: db,
	}
}

func (r *captureRepositoryImpl) Create(ctx context.Context, capture *model.Capture) error {
	return r.db.WithContext(ctx).Create(capture).Error
}

func (r *captureRepositoryImpl) FindByTransactionID(ctx context.Context, transactionID string) (*model.Capture, error) {
	var capture model.Capture
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&capture).Error

	if err != nil {
		return nil, err
	}

	return &capture, nil
}

func (r *captureRepositoryImpl) Save(ctx context.Context, capture *model.Capture) error {
	return r.db.WithContext(ctx).Save(capture).Error
}

func (r *captureRepositoryImpl) ListByCheckoutID(ctx context.Context, checkoutID string) ([]*model.Capture, error) {
	var captures []*model.Capture
	err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		Find(&captures).Error

	if err != nil {
		return nil, err
	}

	return captures, nil
}
