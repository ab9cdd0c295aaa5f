// internal/order/order_dto.go
package order

// Payload JSON untuk POST /orders
type CreateOrderRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// Payload JSON untuk PATCH /orders/{id}/reject
type RejectOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ListParams adalah filter + paginasi untuk daftar pesanan.
// Status kosong berarti tanpa filter.
type ListParams struct {
	Page   int
	Limit  int
	Status OrderStatus
}

// DefaultLimit sama dengan default paginasi API.
const DefaultLimit = 10

// Normalize mengisi default: page minimal 1, limit DefaultLimit.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	return p
}

// Payload untuk POST /auth/login
type LoginRequest struct {
	Credential string `json:"credential" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// Payload untuk POST /auth/register
type RegisterRequest struct {
	NIM       string `json:"nim" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Major     string `json:"major"`
	Faculty   string `json:"faculty"`
	BatchYear int    `json:"batch_year"`
	Whatsapp  string `json:"whatsapp"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      Role   `json:"role,omitempty"`
}

// User adalah profil akun yang sedang login.
type User struct {
	ID        int64  `json:"id"`
	NIM       string `json:"nim"`
	Name      string `json:"name"`
	Major     string `json:"major,omitempty"`
	Faculty   string `json:"faculty,omitempty"`
	BatchYear int    `json:"batch_year,omitempty"`
	Whatsapp  string `json:"whatsapp,omitempty"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// AuthResponse adalah data dari /auth/login dan /auth/register.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// StatusCount adalah jumlah pesanan per status di ringkasan pembeli.
type StatusCount struct {
	Status OrderStatus `json:"status"`
	Count  int         `json:"count"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// Summary adalah ringkasan dashboard dari /dashboard/{role}/summary.
// Field penjual dan pembeli berbeda; yang tidak dikirim server dibiarkan kosong.
type Summary struct {
	TotalOrdersCount int     `json:"total_orders_count"`
	RecentOrders     []Order `json:"recent_orders"`

	// penjual
	TotalRevenue          float64          `json:"total_revenue,omitempty"`
	PendingOrdersCount    int              `json:"pending_orders_count,omitempty"`
	ProcessingOrdersCount int              `json:"processing_orders_count,omitempty"`
	ActiveProductsCount   int              `json:"active_products_count,omitempty"`
	TotalProductsCount    int              `json:"total_products_count,omitempty"`
	MonthlyRevenue        []MonthlyRevenue `json:"monthly_revenue,omitempty"`

	// pembeli
	TotalSpent     float64       `json:"total_spent,omitempty"`
	OrdersByStatus []StatusCount `json:"orders_by_status,omitempty"`
}
