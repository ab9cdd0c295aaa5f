package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"preorder-storefront/internal/api"
	"preorder-storefront/internal/credential"
	"preorder-storefront/internal/order"
	"preorder-storefront/internal/order/client"
	"preorder-storefront/internal/order/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeBackend adalah API marketplace in-memory: server yang memegang status pesanan.
type fakeBackend struct {
	mu       sync.Mutex
	orders   map[int64]*order.Order
	products map[int64]*order.Product
	nextID   int64

	patches   int
	lists     int
	gets      int
	failLists bool

	// jika diisi, PATCH memberi tanda di patchSeen lalu menunggu patchGate
	patchSeen chan struct{}
	patchGate chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		orders:   map[int64]*order.Order{},
		products: map[int64]*order.Product{},
		nextID:   1,
	}
}

func (b *fakeBackend) addOrder(status order.OrderStatus) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.orders[id] = &order.Order{ID: id, BuyerID: 1, ProductID: 1, Quantity: 1, TotalPrice: 10000, Status: status}
	return id
}

func (b *fakeBackend) status(id int64) order.OrderStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orders[id].Status
}

// setStatus mengubah status langsung di server, misalnya oleh perangkat lain.
func (b *fakeBackend) setStatus(id int64, s order.OrderStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[id].Status = s
}

func (b *fakeBackend) getCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets
}

func (b *fakeBackend) patchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.patches
}

func (b *fakeBackend) listCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lists
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.Method == http.MethodGet && len(parts) == 3 && parts[1] == "me":
		b.list(w, r)
	case r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "orders":
		b.create(w, r)
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "orders":
		id, _ := strconv.ParseInt(parts[1], 10, 64)
		b.mu.Lock()
		b.gets++
		o, ok := b.orders[id]
		var cp order.Order
		if ok {
			cp = *o
		}
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Pesanan tidak ditemukan"})
			return
		}
		writeJSON(w, http.StatusOK, api.Response[order.Order]{Message: "ok", Data: cp})
	case r.Method == http.MethodPatch && len(parts) == 3 && parts[0] == "orders":
		id, _ := strconv.ParseInt(parts[1], 10, 64)
		b.patch(w, r, id, order.Action(parts[2]))
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "products":
		id, _ := strconv.ParseInt(parts[1], 10, 64)
		b.mu.Lock()
		p, ok := b.products[id]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Produk tidak ditemukan"})
			return
		}
		writeJSON(w, http.StatusOK, api.Response[order.Product]{Message: "ok", Data: *p})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func (b *fakeBackend) list(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists++
	if b.failLists {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Gagal memuat pesanan"})
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	status := order.OrderStatus(q.Get("status"))

	var all []order.Order
	for _, o := range b.orders {
		if status == "" || o.Status == status {
			all = append(all, *o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	items := []order.Order{}
	start := (page - 1) * limit
	if start < len(all) {
		end := start + limit
		if end > len(all) {
			end = len(all)
		}
		items = all[start:end]
	}
	writeJSON(w, http.StatusOK, api.Response[[]order.Order]{
		Message: "ok",
		Data:    items,
		Meta: &api.Meta{
			Page:       page,
			Limit:      limit,
			Total:      len(all),
			TotalPages: (len(all) + limit - 1) / limit,
		},
	})
}

func (b *fakeBackend) create(w http.ResponseWriter, r *http.Request) {
	var req order.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Body tidak valid"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[req.ProductID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Produk tidak ditemukan"})
		return
	}
	o := &order.Order{
		ID:          b.nextID,
		BuyerID:     1,
		ProductID:   p.ID,
		Quantity:    req.Quantity,
		TotalPrice:  p.Price * float64(req.Quantity),
		Status:      order.StatusPending,
		ProductName: p.Name,
		CreatedAt:   time.Now(),
	}
	b.nextID++
	b.orders[o.ID] = o
	p.Stock -= req.Quantity
	writeJSON(w, http.StatusCreated, api.Response[order.Order]{Message: "Pesanan berhasil dibuat", Data: *o})
}

func (b *fakeBackend) patch(w http.ResponseWriter, r *http.Request, id int64, action order.Action) {
	if b.patchSeen != nil {
		b.patchSeen <- struct{}{}
	}
	if b.patchGate != nil {
		<-b.patchGate
	}

	var body order.RejectOrderRequest
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.patches++
	o, ok := b.orders[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Pesanan tidak ditemukan"})
		return
	}
	next, err := order.Next(o.Status, action)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": fmt.Sprintf("Pesanan dengan status %s tidak dapat di-%s", o.Status, action),
		})
		return
	}
	o.Status = next
	if action == order.ActionReject {
		o.Reason = body.Reason
	}
	writeJSON(w, http.StatusOK, api.Response[order.Order]{Message: "ok", Data: *o})
}

type harness struct {
	backend *fakeBackend
	mr      *miniredis.Miniredis
	repo    repository.OrderRepository
	svc     OrderService
	pub     *recordingPublisher
}

// recordingPublisher mencatat routing key event yang terkirim.
type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&order.Order{}))
	return db
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	creds := credential.NewMemoryStore()
	oc := client.New(api.NewClient(srv.URL, 2*time.Second, creds))
	repo := repository.NewOrderRepository(newTestDB(t))
	pub := &recordingPublisher{}

	return &harness{
		backend: backend,
		mr:      mr,
		repo:    repo,
		svc:     NewOrderService(oc, repo, rdb, pub),
		pub:     pub,
	}
}
