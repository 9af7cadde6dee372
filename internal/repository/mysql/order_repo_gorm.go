package mysql

import (
	"errors"
	"log"
	"shop-backend/internal/domain"
	"shop-backend/internal/repository"

	"gorm.io/gorm"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(order *domain.Order) error {
	// Orders always enter the store awaiting payment; the indexed lookup
	// column must match the gateway order id embedded in the payment block.
	order.Status = domain.StatusPendingPayment
	order.PaymentOrderID = order.Payment.OrderID

	result := r.db.Create(order)
	if result.Error != nil {
		log.Printf("order create error: %v", result.Error)
		return result.Error
	}

	if order.ID == 0 {
		return errors.New("failed to assign order ID")
	}
	return nil
}

func (r *orderRepo) FindByID(id uint64) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Printf("order FindByID error: %v", err)
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByGatewayOrderID(orderID string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.Where("payment_order_id = ?", orderID).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Printf("order FindByGatewayOrderID error: %v", err)
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) Save(order *domain.Order) error {
	order.PaymentOrderID = order.Payment.OrderID
	if err := r.db.Save(order).Error; err != nil {
		log.Printf("order save error: %v", err)
		return err
	}
	return nil
}

func (r *orderRepo) List(limit, offset int) ([]domain.Order, error) {
	var out []domain.Order
	if err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		log.Printf("order list error: %v", err)
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) Count() (int64, error) {
	var n int64
	if err := r.db.Model(&domain.Order{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
