// internal/order/order_model.go
package order

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Status Pesanan (Enum). Nilainya sama persis dengan label yang dikirim API.
type OrderStatus string

const (
	StatusPending    OrderStatus = "Menunggu Konfirmasi"
	StatusProcessing OrderStatus = "Diproses"
	StatusCompleted  OrderStatus = "Selesai"
	StatusCancelled  OrderStatus = "Dibatalkan"
)

// AllStatuses berisi keempat status, urut sesuai alur pesanan.
var AllStatuses = []OrderStatus{StatusPending, StatusProcessing, StatusCompleted, StatusCancelled}

// Valid melaporkan apakah s salah satu dari empat status yang dikenal.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal: Selesai dan Dibatalkan tidak punya transisi keluar.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s OrderStatus) String() string { return string(s) }

// ParseStatus mengubah string dari query/API menjadi OrderStatus.
func ParseStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("status pesanan tidak dikenal: %q", raw)
	}
	return s, nil
}

// Role adalah konteks pengguna: pembeli atau penjual.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func (r Role) Valid() bool { return r == RoleBuyer || r == RoleSeller }

// Order adalah model domain (JSON dari API) sekaligus model GORM untuk snapshot lokal di tabel 'orders'.
// Server adalah sumber kebenaran; client tidak pernah menghitung ulang TotalPrice atau mengubah Status sendiri.
type Order struct {
	ID         int64       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	BuyerID    int64       `gorm:"index" json:"buyer_id"`
	ProductID  int64       `gorm:"index" json:"product_id"`
	Quantity   int         `gorm:"not null" json:"quantity"`
	TotalPrice float64     `gorm:"type:decimal(14,2);not null" json:"total_price"`
	Status     OrderStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`

	// Field denormalisasi untuk tampilan.
	ProductName    string `json:"product_name,omitempty"`
	ProductImage   string `json:"product_image,omitempty"`
	SellerName     string `json:"seller_name,omitempty"`
	SellerWhatsapp string `json:"seller_whatsapp,omitempty"`
	BuyerName      string `json:"buyer_name,omitempty"`
	BuyerWhatsapp  string `json:"buyer_whatsapp,omitempty"`

	// Alasan penolakan dari penjual. Hanya untuk ditampilkan ke pembeli, tidak memengaruhi Status.
	Reason string `json:"reason,omitempty"`
}

// Hook GORM: snapshot tanpa status dianggap baru dibuat, jadi Menunggu Konfirmasi.
func (order *Order) BeforeCreate(tx *gorm.DB) (err error) {
	if order.Status == "" {
		order.Status = StatusPending
	}
	return
}

// Product adalah data produk PO yang dibutuhkan saat membuat pesanan.
type Product struct {
	ID             int64      `json:"id"`
	SellerID       int64      `json:"seller_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Price          float64    `json:"price"`
	Stock          int        `json:"stock"`
	POOpenDate     time.Time  `json:"po_open_date"`
	POCloseDate    time.Time  `json:"po_close_date"`
	DeliveryDate   *time.Time `json:"delivery_date,omitempty"`
	PrimaryImage   string     `json:"primary_image,omitempty"`
	SellerName     string     `json:"seller_name,omitempty"`
	SellerWhatsapp string     `json:"seller_whatsapp,omitempty"`
}

// POOpen melaporkan apakah masa pre-order sedang dibuka pada waktu now.
func (p *Product) POOpen(now time.Time) bool {
	if !p.POOpenDate.IsZero() && now.Before(p.POOpenDate) {
		return false
	}
	if !p.POCloseDate.IsZero() && now.After(p.POCloseDate) {
		return false
	}
	return true
}
