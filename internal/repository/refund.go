package repository

import (
	"context"

	"gorm.io/gorm"

	"paydirekt-gateway/internal/model"
)

type RefundRepository interface {
	Create(ctx context.Context, refund *model.Refund) error
	FindByTransactionID(ctx context.Context, transactionID string) (*model.Refund, error)
	Save(ctx context.Context, refund *model.Refund) error
	ListByCheckoutID(ctx context.Context, checkoutID string) ([]*model.Refund, error)
}

type refundRepositoryImpl struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) RefundRepository {
	return &refundRepositoryImpl{
		db: db,
	}
}

func (r *refundRepositoryImpl) Create(ctx context.Context, refund *model.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *refundRepositoryImpl) FindByTransactionID(ctx context.Context, transactionID string) (*model.Refund, error) {
	var refund model.Refund
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&refund).Error

	if err != nil {
		return nil, err
	}

	return &refund, nil
}

func (r *refundRepositoryImpl) Save(ctx context.Context, refund *model.Refund) error {
	return r.db.WithContext(ctx).Save(refund).Error
}

func (r *refundRepositoryImpl) ListByCheckoutID(ctx context.Context, checkoutID string) ([]*model.Refund, error) {
	var refunds []*model.Refund
	err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		Find(&refunds).Error

	if err != nil {
		return nil, err
	}

	return refunds, nil
}
