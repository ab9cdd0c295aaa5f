// Package api adalah transport client untuk REST API marketplace.
// Semua respons sukses berbentuk {message, data, meta}; kegagalan diseragamkan menjadi *Error,
// *NetworkError atau ErrUnauthenticated.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"preorder-storefront/internal/credential"

	"github.com/google/uuid"
)

// Meta adalah metadata paginasi dari API.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Response adalah amplop JSON standar API.
type Response[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Client mengirim request JSON terautentikasi. Tidak ada retry otomatis.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      credential.Provider

	// OnUnauthenticated dipanggil setelah token dihapus karena 401 (misalnya untuk arahkan ke login).
	OnUnauthenticated func()
}

// NewClient adalah constructor. timeout <= 0 berarti 10 detik.
func NewClient(baseURL string, timeout time.Duration, creds credential.Provider) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
	}
}

// Credentials mengembalikan provider token yang dipakai client.
func (c *Client) Credentials() credential.Provider { return c.creds }

// Do mengirim request. body dan out boleh nil. out biasanya *Response[T].
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	// 1. Siapkan body
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gagal serialize body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("gagal membuat request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	// 2. Token dibaca ulang sebelum setiap request
	token, err := c.creds.Get(ctx)
	if err != nil {
		log.Printf("PERINGATAN: gagal membaca token, request dikirim tanpa token: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// 3. Kirim
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("%s %s gagal: %v", method, path, err)
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	// 4. 401: hapus token, pemanggil diarahkan ke login
	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.creds.Clear(ctx); err != nil {
			log.Printf("PERINGATAN: gagal menghapus token setelah 401: %v", err)
		}
		if c.OnUnauthenticated != nil {
			c.OnUnauthenticated()
		}
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthenticated)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp.StatusCode, raw)
		log.Printf("%s %s -> %d: %s", method, path, resp.StatusCode, apiErr.Message)
		return apiErr
	}

	// 5. Sukses
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gagal decode respons %s %s: %w", method, path, err)
	}
	return nil
}

// decodeError membaca {message, errors} dari body; jika tidak bisa, pakai pesan generik.
func decodeError(status int, raw []byte) *Error {
	apiErr := &Error{Status: status}
	if err := json.Unmarshal(raw, apiErr); err != nil {
		apiErr.FieldErrors = nil
	}
	apiErr.Status = status
	if strings.TrimSpace(apiErr.Message) == "" {
		apiErr.Message = MsgGeneric
	}
	return apiErr
}
