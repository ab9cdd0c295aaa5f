package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"preorder-storefront/internal/api"
	"preorder-storefront/internal/order"
	"preorder-storefront/internal/order/repository"
)

// Pesan toast setelah server menerima perubahan status.
var successNotices = map[order.Action]string{
	order.ActionConfirm:  "Pesanan berhasil dikonfirmasi",
	order.ActionComplete: "Pesanan berhasil diselesaikan",
	order.ActionReject:   "Pesanan berhasil ditolak",
	order.ActionCancel:   "Pesanan berhasil dibatalkan",
}

// MsgInProgress ditampilkan saat aksi untuk pesanan yang sama masih berjalan.
const MsgInProgress = "Pesanan sedang diproses, mohon tunggu"

// Outcome adalah hasil aksi: pesanan dari server dan pesan untuk pengguna.
type Outcome struct {
	Order  *order.Order `json:"order,omitempty"`
	Notice string       `json:"notice"`
}

// TransitionEngine menjalankan aksi status untuk satu role.
// Setiap aksi dicek ke tabel transisi sebelum request mutasi dikirim.
type TransitionEngine struct {
	svc   OrderService
	repo  repository.OrderRepository
	role  order.Role
	views []*OrderQuery

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

// NewTransitionEngine membuat engine. views adalah daftar yang di-refetch setelah aksi berhasil.
func NewTransitionEngine(svc OrderService, repo repository.OrderRepository, role order.Role, views ...*OrderQuery) *TransitionEngine {
	return &TransitionEngine{
		svc:      svc,
		repo:     repo,
		role:     role,
		views:    views,
		inFlight: make(map[int64]struct{}),
	}
}

func (e *TransitionEngine) Role() order.Role { return e.role }

func (e *TransitionEngine) ConfirmOrder(ctx context.Context, id int64) (Outcome, error) {
	return e.Run(ctx, id, order.ActionConfirm, "")
}

func (e *TransitionEngine) CompleteOrder(ctx context.Context, id int64) (Outcome, error) {
	return e.Run(ctx, id, order.ActionComplete, "")
}

// RejectOrder menolak pesanan. reason hanya ditampilkan ke pembeli.
func (e *TransitionEngine) RejectOrder(ctx context.Context, id int64, reason string) (Outcome, error) {
	return e.Run(ctx, id, order.ActionReject, reason)
}

func (e *TransitionEngine) CancelOrder(ctx context.Context, id int64) (Outcome, error) {
	return e.Run(ctx, id, order.ActionCancel, "")
}

// UpdateStatus hanya menerima perpindahan status yang sama dengan satu aksi milik role ini.
func (e *TransitionEngine) UpdateStatus(ctx context.Context, id int64, to order.OrderStatus) (Outcome, error) {
	current, fresh, err := e.currentStatus(ctx, id)
	if err != nil {
		return failed(err)
	}
	action, ok := order.ActionFor(e.role, current, to)
	if !ok && !fresh && !current.Terminal() {
		if current, err = e.remoteStatus(ctx, id); err != nil {
			return failed(err)
		}
		action, ok = order.ActionFor(e.role, current, to)
	}
	if !ok {
		return failed(&order.TransitionError{
			OrderID: id,
			From:    current,
			Message: fmt.Sprintf("Status pesanan #%d tidak dapat diubah dari %q ke %q", id, current, to),
		})
	}
	return e.Run(ctx, id, action, "")
}

// Run menjalankan satu aksi: cek role, cek aksi yang sedang berjalan, cek tabel, lalu PATCH.
func (e *TransitionEngine) Run(ctx context.Context, id int64, action order.Action, reason string) (Outcome, error) {
	if r, ok := order.RoleOf(action); !ok || r != e.role {
		return failed(&order.TransitionError{OrderID: id, Action: action})
	}

	if !e.acquire(id) {
		return failed(fmt.Errorf("pesanan #%d: %w", id, order.ErrTransitionInProgress))
	}
	defer e.release(id)

	current, fresh, err := e.currentStatus(ctx, id)
	if err != nil {
		return failed(err)
	}
	if _, err := order.Next(current, action); err != nil {
		// status lokal bisa tertinggal dari server; hanya status akhir yang pasti
		if fresh || current.Terminal() {
			return failed(&order.TransitionError{OrderID: id, From: current, Action: action})
		}
		if current, err = e.remoteStatus(ctx, id); err != nil {
			return failed(err)
		}
		if _, err := order.Next(current, action); err != nil {
			return failed(&order.TransitionError{OrderID: id, From: current, Action: action})
		}
	}

	updated, err := e.svc.ApplyAction(ctx, id, action, reason)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError {
			err = &order.TransitionError{OrderID: id, From: current, Action: action, Message: apiErr.Message, Err: err}
		}
		return failed(err)
	}

	for _, v := range e.views {
		v.Apply(*updated)
	}
	for _, v := range e.views {
		v.Refetch(ctx)
	}

	log.Printf("Pesanan #%d: %s -> %s (%s)", id, current, updated.Status, action)
	return Outcome{Order: updated, Notice: successNotices[action]}, nil
}

func failed(err error) (Outcome, error) {
	return Outcome{Notice: Notice(err)}, err
}

func (e *TransitionEngine) acquire(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[id]; busy {
		return false
	}
	e.inFlight[id] = struct{}{}
	return true
}

func (e *TransitionEngine) release(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, id)
}

// currentStatus: daftar yang sedang dimuat, lalu snapshot lokal, terakhir GET /orders/{id}.
// fresh bernilai true hanya jika status baru diambil dari server.
func (e *TransitionEngine) currentStatus(ctx context.Context, id int64) (status order.OrderStatus, fresh bool, err error) {
	for _, v := range e.views {
		if s, ok := v.Lookup(id); ok {
			return s, false, nil
		}
	}
	if e.repo != nil {
		snap, err := e.repo.FindByID(id)
		switch {
		case err == nil:
			return snap.Status, false, nil
		case !errors.Is(err, repository.ErrNotFound):
			log.Printf("PERINGATAN: gagal membaca snapshot pesanan #%d: %v", id, err)
		}
	}
	status, err = e.remoteStatus(ctx, id)
	return status, err == nil, err
}

// remoteStatus mengambil detail dari server; snapshot ikut diperbarui oleh service.
func (e *TransitionEngine) remoteStatus(ctx context.Context, id int64) (order.OrderStatus, error) {
	o, err := e.svc.GetOrder(ctx, id)
	if err != nil {
		return "", err
	}
	return o.Status, nil
}

// Notice mengembalikan pesan untuk pengguna dari error query layer atau transition engine.
func Notice(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, order.ErrTransitionInProgress) {
		return MsgInProgress
	}
	var te *order.TransitionError
	if errors.As(err, &te) {
		return te.Error()
	}
	return api.UserMessage(err)
}
