// Package credential menyimpan token sesi yang dipakai transport client.
// Token dibaca sebelum setiap request dan dihapus saat 401 atau logout.
package credential

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Provider adalah "kontrak" penyimpanan token.
// Get mengembalikan "" tanpa error jika belum ada token.
type Provider interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type memoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore menyimpan token di memori proses saja.
func NewMemoryStore() Provider {
	return &memoryStore{}
}

func (m *memoryStore) Get(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *memoryStore) Set(ctx context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

// Expired membaca klaim 'exp' tanpa verifikasi tanda tangan (kunci hanya ada di server).
// Token yang bukan JWT atau tanpa 'exp' dianggap belum kedaluwarsa.
func Expired(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
