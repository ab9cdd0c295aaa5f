// internal/order/repository/order_repository.go
package repository

import (
	"errors"

	"preorder-storefront/internal/order"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound dikembalikan FindByID jika belum ada snapshot untuk id tersebut.
var ErrNotFound = errors.New("snapshot pesanan tidak ditemukan")

// OrderRepository menyimpan snapshot detail pesanan terakhir yang dikirim server.
// Snapshot tidak pernah diubah secara lokal selain dengan data dari server.
type OrderRepository interface {
	Save(order *order.Order) (*order.Order, error)
	FindByID(id int64) (*order.Order, error)
	FindByStatus(status order.OrderStatus) ([]order.Order, error)
	DeleteAll() error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Save melakukan upsert berdasarkan id; semua kolom ditimpa dengan data terbaru.
func (r *orderRepository) Save(o *order.Order) (*order.Order, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(o).Error
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) FindByID(id int64) (*order.Order, error) {
	var o order.Order
	err := r.db.First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// FindByStatus mengembalikan snapshot dengan status tertentu, terbaru dulu.
func (r *orderRepository) FindByStatus(status order.OrderStatus) ([]order.Order, error) {
	var orders []order.Order
	if err := r.db.Where("status = ?", status).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// DeleteAll mengosongkan tabel snapshot, misalnya saat akun berganti.
func (r *orderRepository) DeleteAll() error {
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&order.Order{}).Error
}
