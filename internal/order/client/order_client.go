// internal/order/client/order_client.go
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"preorder-storefront/internal/api"
	"preorder-storefront/internal/order"
)

// ListPage adalah satu halaman daftar pesanan beserta meta paginasi.
type ListPage struct {
	Items []order.Order `json:"items"`
	Meta  api.Meta      `json:"meta"`
}

// OrderClient membungkus endpoint pesanan dan produk.
type OrderClient struct {
	api *api.Client
}

func New(c *api.Client) *OrderClient {
	return &OrderClient{api: c}
}

func listPath(role order.Role) (string, error) {
	switch role {
	case order.RoleBuyer:
		return "/orders/me/buyer", nil
	case order.RoleSeller:
		return "/orders/me/seller", nil
	}
	return "", fmt.Errorf("role tidak dikenal: %q", role)
}

// List mengambil pesanan milik role. Parameter hanya dikirim jika diisi.
func (c *OrderClient) List(ctx context.Context, role order.Role, p order.ListParams) (*ListPage, error) {
	path, err := listPath(role)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Status != "" {
		q.Set("status", p.Status.String())
	}

	var resp api.Response[[]order.Order]
	if err := c.api.Do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}

	page := &ListPage{Items: resp.Data, Meta: fillMeta(resp.Meta)}
	if page.Items == nil {
		page.Items = []order.Order{}
	}
	return page, nil
}

// fillMeta: meta yang hilang jatuh ke page 1, limit 10, total 0.
func fillMeta(m *api.Meta) api.Meta {
	var out api.Meta
	if m != nil {
		out = *m
	}
	if out.Page < 1 {
		out.Page = 1
	}
	if out.Limit < 1 {
		out.Limit = order.DefaultLimit
	}
	if out.Total < 0 {
		out.Total = 0
	}
	if out.TotalPages == 0 && out.Total > 0 {
		out.TotalPages = (out.Total + out.Limit - 1) / out.Limit
	}
	return out
}

// Get mengambil detail satu pesanan.
func (c *OrderClient) Get(ctx context.Context, id int64) (*order.Order, error) {
	return c.orderCall(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil)
}

// Create membuat pesanan baru; status awal ditentukan server.
func (c *OrderClient) Create(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error) {
	return c.orderCall(ctx, http.MethodPost, "/orders", req)
}

func (c *OrderClient) Confirm(ctx context.Context, id int64) (*order.Order, error) {
	return c.orderCall(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/confirm", id), nil)
}

func (c *OrderClient) Complete(ctx context.Context, id int64) (*order.Order, error) {
	return c.orderCall(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/complete", id), nil)
}

// Reject menolak pesanan. reason boleh kosong.
func (c *OrderClient) Reject(ctx context.Context, id int64, reason string) (*order.Order, error) {
	return c.orderCall(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/reject", id), order.RejectOrderRequest{Reason: reason})
}

func (c *OrderClient) Cancel(ctx context.Context, id int64) (*order.Order, error) {
	return c.orderCall(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/cancel", id), nil)
}

// Do menjalankan aksi transisi lewat endpoint yang sesuai.
func (c *OrderClient) Do(ctx context.Context, id int64, action order.Action, reason string) (*order.Order, error) {
	switch action {
	case order.ActionConfirm:
		return c.Confirm(ctx, id)
	case order.ActionComplete:
		return c.Complete(ctx, id)
	case order.ActionReject:
		return c.Reject(ctx, id, reason)
	case order.ActionCancel:
		return c.Cancel(ctx, id)
	}
	return nil, fmt.Errorf("aksi tidak dikenal: %q", action)
}

// Summary mengambil ringkasan dashboard role.
func (c *OrderClient) Summary(ctx context.Context, role order.Role) (*order.Summary, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("role tidak dikenal: %q", role)
	}
	var resp api.Response[order.Summary]
	if err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/dashboard/%s/summary", role), nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data.RecentOrders == nil {
		resp.Data.RecentOrders = []order.Order{}
	}
	return &resp.Data, nil
}

// Product mengambil data produk PO.
func (c *OrderClient) Product(ctx context.Context, id int64) (*order.Product, error) {
	var resp api.Response[order.Product]
	if err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *OrderClient) orderCall(ctx context.Context, method, path string, body any) (*order.Order, error) {
	var resp api.Response[order.Order]
	if err := c.api.Do(ctx, method, path, nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
