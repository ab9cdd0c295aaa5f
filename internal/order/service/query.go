package service

import (
	"context"
	"sync"

	"preorder-storefront/internal/order"
)

// ListState adalah keadaan daftar pesanan yang ditampilkan. Tidak disimpan ke mana pun.
type ListState struct {
	Items      []order.Order     `json:"items"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
	Status     order.OrderStatus `json:"status,omitempty"`
	Loading    bool              `json:"loading"`
	Loaded     bool              `json:"loaded"`
	Err        error             `json:"-"`
	Error      string            `json:"error,omitempty"`
}

// OrderQuery menyimpan halaman dan filter status daftar pesanan satu role.
// Request terakhir yang menang: hasil request yang sudah digantikan dibuang dan context-nya dibatalkan.
type OrderQuery struct {
	svc  OrderService
	role order.Role

	mu     sync.Mutex
	page   int
	limit  int
	status order.OrderStatus
	state  ListState
	seq    uint64
	cancel context.CancelFunc
	closed bool
}

// NewOrderQuery membuat query untuk role. limit <= 0 berarti 10.
func NewOrderQuery(svc OrderService, role order.Role, limit int) *OrderQuery {
	if limit < 1 {
		limit = order.DefaultLimit
	}
	return &OrderQuery{
		svc:   svc,
		role:  role,
		page:  1,
		limit: limit,
		state: ListState{Items: []order.Order{}, Page: 1, Limit: limit},
	}
}

func (q *OrderQuery) Role() order.Role { return q.role }

// Status mengembalikan filter yang sedang aktif ("" berarti semua).
func (q *OrderQuery) Status() order.OrderStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status
}

// SetPage pindah halaman dengan filter yang sama. n < 1 dianggap 1.
// Halaman melebihi total halaman tetap diteruskan ke server.
func (q *OrderQuery) SetPage(ctx context.Context, n int) ListState {
	if n < 1 {
		n = 1
	}
	q.mu.Lock()
	q.page = n
	q.mu.Unlock()
	return q.load(ctx, false)
}

// SetStatus mengganti filter ("" untuk semua) dan selalu kembali ke halaman 1.
func (q *OrderQuery) SetStatus(ctx context.Context, s order.OrderStatus) ListState {
	if s != "" && !s.Valid() {
		_, err := order.ParseStatus(string(s))
		q.mu.Lock()
		defer q.mu.Unlock()
		q.state.Err = err
		q.state.Error = err.Error()
		return q.snapshotLocked()
	}
	q.mu.Lock()
	q.status = s
	q.page = 1
	q.mu.Unlock()
	return q.load(ctx, false)
}

// Fetch memuat halaman sekarang. Jika gagal, daftar dikosongkan.
func (q *OrderQuery) Fetch(ctx context.Context) ListState {
	return q.load(ctx, false)
}

// Refetch dipakai setelah mutasi. Jika gagal, daftar sebelumnya dipertahankan.
func (q *OrderQuery) Refetch(ctx context.Context) ListState {
	return q.load(ctx, true)
}

// Apply mengganti item dengan id yang sama memakai data dari server.
func (q *OrderQuery) Apply(o order.Order) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.state.Items {
		if q.state.Items[i].ID == o.ID {
			q.state.Items[i] = o
			return
		}
	}
}

// Lookup mencari status item yang sedang dimuat.
func (q *OrderQuery) Lookup(id int64) (order.OrderStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, o := range q.state.Items {
		if o.ID == id {
			return o.Status, true
		}
	}
	return "", false
}

func (q *OrderQuery) State() ListState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Reset membatalkan request yang berjalan dan kembali ke halaman 1 tanpa filter dan tanpa item.
// Berbeda dengan Close, fetch berikutnya tetap dijalankan.
func (q *OrderQuery) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.page = 1
	q.status = ""
	q.state = ListState{Items: []order.Order{}, Page: 1, Limit: q.limit}
}

// Close membatalkan request yang berjalan; hasil setelahnya dibuang dan fetch berikutnya tidak dijalankan.
func (q *OrderQuery) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.state.Loading = false
}

func (q *OrderQuery) load(ctx context.Context, keepItems bool) ListState {
	q.mu.Lock()
	if q.closed {
		defer q.mu.Unlock()
		return q.snapshotLocked()
	}
	q.seq++
	seq := q.seq
	if q.cancel != nil {
		q.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	params := order.ListParams{Page: q.page, Limit: q.limit, Status: q.status}
	q.state.Loading = true
	q.mu.Unlock()

	page, err := q.svc.ListOrders(reqCtx, q.role, params)
	cancel()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || seq != q.seq {
		return q.snapshotLocked()
	}
	q.cancel = nil
	q.state.Loading = false
	q.state.Page = params.Page
	q.state.Status = params.Status

	if err != nil {
		q.state.Err = err
		q.state.Error = Notice(err)
		if !keepItems {
			q.state.Items = []order.Order{}
			q.state.Loaded = false
		}
		return q.snapshotLocked()
	}

	q.state.Err = nil
	q.state.Error = ""
	q.state.Loaded = true
	q.state.Items = page.Items
	if q.state.Items == nil {
		q.state.Items = []order.Order{}
	}
	q.state.Limit = page.Meta.Limit
	q.state.Total = page.Meta.Total
	q.state.TotalPages = page.Meta.TotalPages
	return q.snapshotLocked()
}

func (q *OrderQuery) snapshotLocked() ListState {
	st := q.state
	st.Items = make([]order.Order, len(q.state.Items))
	copy(st.Items, q.state.Items)
	return st
}
