// Package auth membungkus endpoint /auth dan menyimpan token hasil login ke credential provider.
package auth

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"preorder-storefront/internal/api"
	"preorder-storefront/internal/credential"
	"preorder-storefront/internal/order"
)

type Session struct {
	client *api.Client
	creds  credential.Provider
	now    func() time.Time
}

func NewSession(c *api.Client, creds credential.Provider) *Session {
	return &Session{client: c, creds: creds, now: time.Now}
}

// Login mengirim kredensial (email atau NIM) dan menyimpan token.
func (s *Session) Login(ctx context.Context, credentialID, password string) (*order.User, error) {
	req := order.LoginRequest{Credential: credentialID, Password: password}
	var resp api.Response[order.AuthResponse]
	if err := s.client.Do(ctx, http.MethodPost, "/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Token == "" {
		return nil, fmt.Errorf("login berhasil tetapi token kosong")
	}
	if err := s.creds.Set(ctx, resp.Data.Token); err != nil {
		return nil, fmt.Errorf("gagal menyimpan token: %w", err)
	}
	log.Printf("Login berhasil untuk user #%d (%s)", resp.Data.User.ID, resp.Data.User.Role)
	return &resp.Data.User, nil
}

// Register membuat akun; token langsung disimpan jika server mengirimkannya.
func (s *Session) Register(ctx context.Context, req order.RegisterRequest) (*order.User, error) {
	var resp api.Response[order.AuthResponse]
	if err := s.client.Do(ctx, http.MethodPost, "/auth/register", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Token != "" {
		if err := s.creds.Set(ctx, resp.Data.Token); err != nil {
			return nil, fmt.Errorf("gagal menyimpan token: %w", err)
		}
	}
	return &resp.Data.User, nil
}

// Me mengambil profil user yang sedang login.
func (s *Session) Me(ctx context.Context) (*order.User, error) {
	var resp api.Response[order.User]
	if err := s.client.Do(ctx, http.MethodGet, "/auth/me", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Logout menghapus token lokal.
func (s *Session) Logout(ctx context.Context) error {
	return s.creds.Clear(ctx)
}

// IsAuthenticated: ada token dan belum kedaluwarsa.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	tok, err := s.creds.Get(ctx)
	if err != nil || tok == "" {
		return false
	}
	return !credential.Expired(tok, s.now())
}
