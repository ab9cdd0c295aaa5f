package repository

import (
	"preorder-storefront/internal/order"

	"github.com/stretchr/testify/mock"
)

// MockOrderRepository adalah mock untuk OrderRepository, dipakai test service dan handler.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Save(ord *order.Order) (*order.Order, error) {
	args := m.Called(ord)

	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByID(id int64) (*order.Order, error) {
	args := m.Called(id)

	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByStatus(status order.OrderStatus) ([]order.Order, error) {
	args := m.Called(status)

	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) DeleteAll() error {
	return m.Called().Error(0)
}
