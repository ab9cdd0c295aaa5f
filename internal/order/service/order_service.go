// internal/order/service/order_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"preorder-storefront/internal/api"
	"preorder-storefront/internal/order"
	"preorder-storefront/internal/order/client"
	"preorder-storefront/internal/order/repository"

	"github.com/go-redis/redis/v8"
)

const (
	// Sama dengan staleTime daftar pesanan di storefront.
	pageCacheTTL    = 30 * time.Second
	productCacheTTL = 10 * time.Minute
)

// OrderAPI adalah endpoint REST yang dibutuhkan service. *client.OrderClient memenuhinya.
type OrderAPI interface {
	List(ctx context.Context, role order.Role, p order.ListParams) (*client.ListPage, error)
	Get(ctx context.Context, id int64) (*order.Order, error)
	Create(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
	Do(ctx context.Context, id int64, action order.Action, reason string) (*order.Order, error)
	Product(ctx context.Context, id int64) (*order.Product, error)
	Summary(ctx context.Context, role order.Role) (*order.Summary, error)
}

// OrderService adalah kontrak yang dipakai query layer, transition engine dan handler.
type OrderService interface {
	ListOrders(ctx context.Context, role order.Role, p order.ListParams) (*client.ListPage, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
	ApplyAction(ctx context.Context, id int64, action order.Action, reason string) (*order.Order, error)
	Summary(ctx context.Context, role order.Role) (*order.Summary, error)
	Invalidate(ctx context.Context, role order.Role)
	Reset(ctx context.Context)
}

// orderService menampung semua "alat": API remote, snapshot (DB), cache (Redis), dan publisher event.
type orderService struct {
	remote OrderAPI
	repo   repository.OrderRepository
	rdb    *redis.Client
	pub    Publisher
	now    func() time.Time
}

// NewOrderService adalah constructor. rdb boleh nil (tanpa cache), pub boleh nil (tanpa event).
func NewOrderService(remote OrderAPI, repo repository.OrderRepository, rdb *redis.Client, pub Publisher) OrderService {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &orderService{
		remote: remote,
		repo:   repo,
		rdb:    rdb,
		pub:    pub,
		now:    time.Now,
	}
}

func pageCacheKey(role order.Role, p order.ListParams) string {
	return fmt.Sprintf("orders:%s:page=%d:limit=%d:status=%s", role, p.Page, p.Limit, p.Status)
}

func pageKeySet(role order.Role) string {
	return fmt.Sprintf("orders:%s:keys", role)
}

func summaryCacheKey(role order.Role) string {
	return fmt.Sprintf("dashboard:%s:summary", role)
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("products:%d", id)
}

// ListOrders: read-through cache per role + halaman + filter.
func (s *orderService) ListOrders(ctx context.Context, role order.Role, p order.ListParams) (*client.ListPage, error) {
	p = p.Normalize()
	cacheKey := pageCacheKey(role, p)

	if s.rdb != nil {
		val, err := s.rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			var page client.ListPage
			if json.Unmarshal([]byte(val), &page) == nil {
				log.Println("CACHE HIT untuk ListOrders:", cacheKey)
				return &page, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("PERINGATAN: gagal membaca cache %s: %v", cacheKey, err)
		}
		log.Println("CACHE MISS untuk ListOrders:", cacheKey)
	}

	page, err := s.remote.List(ctx, role, p)
	if err != nil {
		return nil, err
	}

	for i := range page.Items {
		s.saveSnapshot(&page.Items[i])
	}

	if s.rdb != nil {
		jsonData, _ := json.Marshal(page)
		pipe := s.rdb.TxPipeline()
		pipe.Set(ctx, cacheKey, jsonData, pageCacheTTL)
		pipe.SAdd(ctx, pageKeySet(role), cacheKey)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("PERINGATAN: gagal menyimpan cache %s: %v", cacheKey, err)
		}
	}
	return page, nil
}

// GetOrder mengambil detail dari server lalu memperbarui snapshot.
func (s *orderService) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	o, err := s.remote.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.saveSnapshot(o)
	return o, nil
}

// CreateOrder memvalidasi jumlah, stok dan masa PO sebelum POST /orders.
// Total harga dan status awal selalu dari server.
func (s *orderService) CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error) {
	if req.Quantity < 1 {
		return nil, api.NewValidationError("quantity", "Jumlah minimal 1")
	}

	product, err := s.fetchProductInfo(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.POOpen(s.now()) {
		return nil, api.NewValidationError("product_id", "Masa pre-order produk ini tidak sedang dibuka")
	}
	if req.Quantity > product.Stock {
		return nil, api.NewValidationError("quantity", fmt.Sprintf("Stok tidak mencukupi, tersisa %d", product.Stock))
	}

	created, err := s.remote.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.saveSnapshot(created)

	// pesanan baru juga masuk ke daftar dan ringkasan penjual
	s.Invalidate(ctx, order.RoleBuyer)
	s.Invalidate(ctx, order.RoleSeller)
	if s.rdb != nil {
		// stok produk berubah
		s.rdb.Del(ctx, productCacheKey(req.ProductID))
	}

	if err := s.publish(created, "order.created", ""); err != nil {
		log.Printf("PERINGATAN: Order #%d berhasil dibuat, tapi GAGAL publish event: %v", created.ID, err)
	}
	return created, nil
}

// ApplyAction mengirim PATCH aksi. Cache dan snapshot hanya diubah jika server menerima.
func (s *orderService) ApplyAction(ctx context.Context, id int64, action order.Action, reason string) (*order.Order, error) {
	updated, err := s.remote.Do(ctx, id, action, reason)
	if err != nil {
		return nil, err
	}
	if updated.ID == 0 {
		updated.ID = id
	}
	s.saveSnapshot(updated)

	// pesanan yang sama muncul di daftar pembeli dan penjual
	s.Invalidate(ctx, order.RoleBuyer)
	s.Invalidate(ctx, order.RoleSeller)

	if err := s.publish(updated, eventRoutingKey(action), reason); err != nil {
		log.Printf("PERINGATAN: Order #%d berhasil di-%s, tapi GAGAL publish event: %v", id, action, err)
	}
	return updated, nil
}

// Summary: read-through cache ringkasan dashboard per role.
func (s *orderService) Summary(ctx context.Context, role order.Role) (*order.Summary, error) {
	cacheKey := summaryCacheKey(role)
	if s.rdb != nil {
		if val, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var summary order.Summary
			if json.Unmarshal([]byte(val), &summary) == nil {
				log.Println("CACHE HIT untuk Summary:", cacheKey)
				return &summary, nil
			}
		}
		log.Println("CACHE MISS untuk Summary:", cacheKey)
	}

	summary, err := s.remote.Summary(ctx, role)
	if err != nil {
		return nil, err
	}
	for i := range summary.RecentOrders {
		s.saveSnapshot(&summary.RecentOrders[i])
	}

	if s.rdb != nil {
		jsonData, _ := json.Marshal(summary)
		if err := s.rdb.Set(ctx, cacheKey, jsonData, pageCacheTTL).Err(); err != nil {
			log.Printf("PERINGATAN: gagal menyimpan cache %s: %v", cacheKey, err)
		}
	}
	return summary, nil
}

// Invalidate menghapus semua halaman cache dan ringkasan milik role.
func (s *orderService) Invalidate(ctx context.Context, role order.Role) {
	if s.rdb == nil {
		return
	}
	setKey := pageKeySet(role)
	keys, err := s.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		log.Printf("PERINGATAN: gagal membaca daftar cache %s: %v", setKey, err)
		return
	}
	if err := s.rdb.Del(ctx, append(keys, setKey, summaryCacheKey(role))...).Err(); err != nil {
		log.Printf("PERINGATAN: gagal menghapus cache %s: %v", role, err)
	}
}

// Reset membuang semua data milik akun yang sedang login: cache kedua role dan snapshot.
// Dipanggil saat login, logout, dan saat server membalas 401.
func (s *orderService) Reset(ctx context.Context) {
	s.Invalidate(ctx, order.RoleBuyer)
	s.Invalidate(ctx, order.RoleSeller)
	if s.repo != nil {
		if err := s.repo.DeleteAll(); err != nil {
			log.Printf("PERINGATAN: gagal menghapus snapshot pesanan: %v", err)
		}
	}
}

// fetchProductInfo: cache Redis dulu, lalu GET /products/{id}.
func (s *orderService) fetchProductInfo(ctx context.Context, id int64) (*order.Product, error) {
	cacheKey := productCacheKey(id)
	if s.rdb != nil {
		if val, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var product order.Product
			if json.Unmarshal([]byte(val), &product) == nil {
				log.Println("CACHE HIT (Product Info):", id)
				return &product, nil
			}
		}
		log.Println("CACHE MISS (Product Info):", id)
	}

	product, err := s.remote.Product(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("gagal mengambil produk #%d: %w", id, err)
	}

	if s.rdb != nil {
		jsonData, _ := json.Marshal(product)
		s.rdb.Set(ctx, cacheKey, jsonData, productCacheTTL)
	}
	return product, nil
}

func (s *orderService) saveSnapshot(o *order.Order) {
	if s.repo == nil || o == nil || o.ID == 0 {
		return
	}
	snap := *o
	if _, err := s.repo.Save(&snap); err != nil {
		log.Printf("PERINGATAN: gagal menyimpan snapshot pesanan #%d: %v", o.ID, err)
	}
}
