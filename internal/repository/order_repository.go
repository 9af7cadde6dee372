package repository

import (
	"shop-backend/internal/domain"
)

// OrderRepository persists the Order aggregate. Find methods return
// (nil, nil) when no row matches.
type OrderRepository interface {
	Create(order *domain.Order) error
	FindByID(id uint64) (*domain.Order, error)
	FindByGatewayOrderID(orderID string) (*domain.Order, error)
	Save(order *domain.Order) error
	List(limit, offset int) ([]domain.Order, error)
	Count() (int64, error)
}
