package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"preorder-storefront/internal/api"
	"preorder-storefront/internal/order"
	"preorder-storefront/internal/order/client"
	"preorder-storefront/internal/order/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- MOCKS ---

// MockOrderService adalah mock untuk service.OrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) ListOrders(ctx context.Context, role order.Role, p order.ListParams) (*client.ListPage, error) {
	args := m.Called(role, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.ListPage), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ApplyAction(ctx context.Context, id int64, action order.Action, reason string) (*order.Order, error) {
	args := m.Called(id, action, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) Summary(ctx context.Context, role order.Role) (*order.Summary, error) {
	args := m.Called(role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Summary), args.Error(1)
}

func (m *MockOrderService) Invalidate(ctx context.Context, role order.Role) {
	m.Called(role)
}

func (m *MockOrderService) Reset(ctx context.Context) {
	m.Called()
}

// MockSession adalah mock untuk Authenticator
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Login(ctx context.Context, credential, password string) (*order.User, error) {
	args := m.Called(credential, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.User), args.Error(1)
}

func (m *MockSession) Register(ctx context.Context, req order.RegisterRequest) (*order.User, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.User), args.Error(1)
}

func (m *MockSession) Logout(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *MockSession) Me(ctx context.Context) (*order.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.User), args.Error(1)
}

func (m *MockSession) IsAuthenticated(ctx context.Context) bool {
	return m.Called().Bool(0)
}

// --- SETUP TEST ---

type fixture struct {
	router  *gin.Engine
	svc     *MockOrderService
	repo    *repository.MockOrderRepository
	session *MockSession
}

func setupTest(t *testing.T, authenticated bool) *fixture {
	gin.SetMode(gin.TestMode)

	f := &fixture{
		router:  gin.New(),
		svc:     new(MockOrderService),
		repo:    new(repository.MockOrderRepository),
		session: new(MockSession),
	}
	f.session.On("IsAuthenticated").Return(authenticated).Maybe()
	f.svc.On("Reset").Maybe()

	h := NewOrderHandler(f.svc, f.repo, f.session, 10)
	h.Register(f.router)
	t.Cleanup(h.Close)
	return f
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func pageOf(items ...order.Order) *client.ListPage {
	return &client.ListPage{Items: items, Meta: api.Meta{Page: 1, Limit: 10, Total: len(items), TotalPages: 1}}
}

// --- TEST CASES ---

func TestHealth(t *testing.T) {
	f := setupTest(t, false)
	w := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth(t *testing.T) {
	f := setupTest(t, false)

	w := f.do(http.MethodGet, "/seller/orders", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.MsgSessionExpired, decode(t, w)["error"])
	f.svc.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything)
}

func TestListOrders_SellerActions(t *testing.T) {
	f := setupTest(t, true)
	f.svc.On("ListOrders", order.RoleSeller, order.ListParams{Page: 1, Limit: 10}).
		Return(pageOf(
			order.Order{ID: 1, Quantity: 2, TotalPrice: 20000, Status: order.StatusPending},
			order.Order{ID: 2, Quantity: 1, TotalPrice: 5000, Status: order.StatusCompleted},
		), nil).Once()

	w := f.do(http.MethodGet, "/seller/orders", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, []order.UIAction{order.UIConfirm, order.UIReject}, resp.Items[0].Actions)
	assert.Equal(t, "yellow", resp.Items[0].Badge)
	assert.Equal(t, "Rp 10.000", resp.Items[0].UnitPrice)
	assert.Equal(t, "Rp 20.000", resp.Items[0].TotalLabel)
	assert.Empty(t, resp.Items[1].Actions)
	assert.Empty(t, resp.Items[0].ContactURL, "penjual tidak mendapat tautan hubungi penjual")
	f.svc.AssertExpectations(t)
}

func TestListOrders_StatusChangeResetsPage(t *testing.T) {
	f := setupTest(t, true)
	f.svc.On("ListOrders", order.RoleBuyer, order.ListParams{Page: 3, Limit: 10}).
		Return(pageOf(), nil).Once()
	f.svc.On("ListOrders", order.RoleBuyer, order.ListParams{Page: 1, Limit: 10, Status: order.StatusProcessing}).
		Return(pageOf(order.Order{ID: 4, Quantity: 1, Status: order.StatusProcessing, SellerWhatsapp: "0812"}), nil).Once()

	w := f.do(http.MethodGet, "/buyer/orders?page=3", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/buyer/orders?page=3&status=Diproses", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, order.StatusProcessing, resp.Status)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, []order.UIAction{order.UIContactSeller}, resp.Items[0].Actions)
	assert.Contains(t, resp.Items[0].ContactURL, "https://wa.me/62812")
	f.svc.AssertExpectations(t)
}

func TestListOrders_BadParams(t *testing.T) {
	f := setupTest(t, true)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/buyer/orders?status=Dikirim", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/buyer/orders?page=abc", nil).Code)
	f.svc.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything)
}

func TestListOrders_NetworkError(t *testing.T) {
	f := setupTest(t, true)
	f.svc.On("ListOrders", order.RoleBuyer, mock.Anything).
		Return(nil, &api.NetworkError{Err: errors.New("connection refused")}).Once()

	w := f.do(http.MethodGet, "/buyer/orders", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, api.MsgConnection, resp.Error)
	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 10, resp.Limit)
}

func TestListOrders_ErrorKeepsFilter(t *testing.T) {
	f := setupTest(t, true)
	f.svc.On("ListOrders", order.RoleSeller, order.ListParams{Page: 1, Limit: 10, Status: order.StatusPending}).
		Return(nil, &api.Error{Status: http.StatusInternalServerError, Message: "Gagal memuat pesanan"}).Once()

	w := f.do(http.MethodGet, "/seller/orders?status=Menunggu+Konfirmasi", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Gagal memuat pesanan", body["error"])
	assert.Equal(t, []any{}, body["items"])
	assert.Equal(t, string(order.StatusPending), body["status"])
}

func TestCreateOrder_Success(t *testing.T) {
	f := setupTest(t, true)
	req := order.CreateOrderRequest{ProductID: 3, Quantity: 2}
	f.svc.On("CreateOrder", req).
		Return(&order.Order{ID: 11, ProductID: 3, Quantity: 2, TotalPrice: 20000, Status: order.StatusPending}, nil).Once()

	w := f.do(http.MethodPost, "/buyer/orders", req)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(11), data["id"])
	assert.Equal(t, string(order.StatusPending), data["status"])
	f.svc.AssertExpectations(t)
}

func TestCreateOrder_InvalidInput(t *testing.T) {
	f := setupTest(t, true)

	w := f.do(http.MethodPost, "/buyer/orders", map[string]any{"product_id": 3, "quantity": 0})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.svc.AssertNotCalled(t, "CreateOrder", mock.Anything)
}

func TestCreateOrder_ValidationError(t *testing.T) {
	f := setupTest(t, true)
	req := order.CreateOrderRequest{ProductID: 3, Quantity: 9}
	f.svc.On("CreateOrder", req).
		Return(nil, api.NewValidationError("quantity", "Stok tidak mencukupi, tersisa 2")).Once()

	w := f.do(http.MethodPost, "/buyer/orders", req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Stok tidak mencukupi, tersisa 2", body["error"])
	assert.Equal(t, map[string]any{"quantity": "Stok tidak mencukupi, tersisa 2"}, body["errors"])
}

func TestConfirmOrder_Success(t *testing.T) {
	f := setupTest(t, true)
	f.repo.On("FindByID", int64(7)).Return(&order.Order{ID: 7, Status: order.StatusPending}, nil).Once()
	f.svc.On("ApplyAction", int64(7), order.ActionConfirm, "").
		Return(&order.Order{ID: 7, Quantity: 1, Status: order.StatusProcessing}, nil).Once()
	f.svc.On("ListOrders", order.RoleSeller, mock.Anything).Return(pageOf(), nil).Once()

	w := f.do(http.MethodPatch, "/seller/orders/7/confirm", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Pesanan berhasil dikonfirmasi", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, string(order.StatusProcessing), data["status"])
	assert.Equal(t, []any{"complete"}, data["actions"])
	f.svc.AssertExpectations(t)
}

func TestRejectOrder_PassesReason(t *testing.T) {
	f := setupTest(t, true)
	f.repo.On("FindByID", int64(7)).Return(&order.Order{ID: 7, Status: order.StatusPending}, nil).Once()
	f.svc.On("ApplyAction", int64(7), order.ActionReject, "out of stock").
		Return(&order.Order{ID: 7, Quantity: 1, Status: order.StatusCancelled, Reason: "out of stock"}, nil).Once()
	f.svc.On("ListOrders", order.RoleSeller, mock.Anything).Return(pageOf(), nil).Once()

	w := f.do(http.MethodPatch, "/seller/orders/7/reject", order.RejectOrderRequest{Reason: "out of stock"})

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "out of stock", data["reason"])
	assert.Equal(t, string(order.StatusCancelled), data["status"])
}

func TestRejectOrder_WithoutBody(t *testing.T) {
	f := setupTest(t, true)
	f.repo.On("FindByID", int64(7)).Return(&order.Order{ID: 7, Status: order.StatusPending}, nil).Once()
	f.svc.On("ApplyAction", int64(7), order.ActionReject, "").
		Return(&order.Order{ID: 7, Quantity: 1, Status: order.StatusCancelled}, nil).Once()
	f.svc.On("ListOrders", order.RoleSeller, mock.Anything).Return(pageOf(), nil).Once()

	w := f.do(http.MethodPatch, "/seller/orders/7/reject", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConfirmOrder_InvalidTransition(t *testing.T) {
	f := setupTest(t, true)
	f.repo.On("FindByID", int64(7)).Return(&order.Order{ID: 7, Status: order.StatusCompleted}, nil).Once()

	w := f.do(http.MethodPatch, "/seller/orders/7/confirm", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	f.svc.AssertNotCalled(t, "ApplyAction", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelOrder_ServerRejection(t *testing.T) {
	f := setupTest(t, true)
	f.repo.On("FindByID", int64(8)).Return(&order.Order{ID: 8, Status: order.StatusPending}, nil).Once()
	f.svc.On("ApplyAction", int64(8), order.ActionCancel, "").
		Return(nil, &api.Error{Status: http.StatusBadRequest, Message: "Pesanan sudah diproses penjual"}).Once()

	w := f.do(http.MethodPatch, "/buyer/orders/8/cancel", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Pesanan sudah diproses penjual", decode(t, w)["error"])
}

func TestAction_Unauthenticated(t *testing.T) {
	f := setupTest(t, true)
	f.repo.On("FindByID", int64(8)).Return(&order.Order{ID: 8, Status: order.StatusPending}, nil).Once()
	f.svc.On("ApplyAction", int64(8), order.ActionCancel, "").
		Return(nil, api.ErrUnauthenticated).Once()

	w := f.do(http.MethodPatch, "/buyer/orders/8/cancel", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.MsgSessionExpired, decode(t, w)["error"])
}

func TestAction_InvalidID(t *testing.T) {
	f := setupTest(t, true)
	w := f.do(http.MethodPatch, "/seller/orders/abc/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder(t *testing.T) {
	f := setupTest(t, true)
	f.svc.On("GetOrder", int64(5)).
		Return(&order.Order{ID: 5, Quantity: 1, Status: order.StatusCompleted}, nil).Twice()

	w := f.do(http.MethodGet, "/orders/5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, []any{"buy_again", "contact_seller"}, data["actions"])

	w = f.do(http.MethodGet, "/orders/5?role=seller", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decode(t, w)["data"].(map[string]any)
	assert.Equal(t, []any{}, data["actions"])

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/orders/5?role=admin", nil).Code)
}

func TestLogin(t *testing.T) {
	f := setupTest(t, false)
	f.session.On("Login", "2201001", "rahasia123").Return(&order.User{ID: 5, Role: order.RoleSeller}, nil).Once()

	w := f.do(http.MethodPost, "/auth/login", order.LoginRequest{Credential: "2201001", Password: "rahasia123"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login berhasil", decode(t, w)["message"])
	f.svc.AssertCalled(t, "Reset")
}

func TestLogin_WrongPassword(t *testing.T) {
	f := setupTest(t, false)
	f.session.On("Login", "x", "y").
		Return(nil, &api.Error{Status: http.StatusBadRequest, Message: "Email/NIM atau password salah"}).Once()

	w := f.do(http.MethodPost, "/auth/login", order.LoginRequest{Credential: "x", Password: "y"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email/NIM atau password salah", decode(t, w)["error"])
	f.svc.AssertNotCalled(t, "Reset")
}

func TestLogoutAndMe(t *testing.T) {
	f := setupTest(t, true)
	f.session.On("Logout").Return(nil).Once()
	f.session.On("Me").Return(nil, api.ErrUnauthenticated).Once()

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/auth/logout", nil).Code)
	f.svc.AssertCalled(t, "Reset")
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/auth/me", nil).Code)
}

func TestRegister(t *testing.T) {
	f := setupTest(t, false)
	req := order.RegisterRequest{NIM: "2201002", Name: "Bob", Email: "bob@kampus.ac.id", Password: "rahasia123"}
	f.session.On("Register", req).Return(&order.User{ID: 6, Name: "Bob", Role: order.RoleBuyer}, nil).Once()

	w := f.do(http.MethodPost, "/auth/register", req)

	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Registrasi berhasil", body["message"])
	assert.Equal(t, "Bob", body["data"].(map[string]any)["name"])
	f.svc.AssertCalled(t, "Reset")
}

func TestRegister_InvalidInput(t *testing.T) {
	f := setupTest(t, false)

	w := f.do(http.MethodPost, "/auth/register", map[string]any{"nim": "1", "name": "x", "email": "bukan-email", "password": "123"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.session.AssertNotCalled(t, "Register", mock.Anything)
}

func TestRegister_ServerValidation(t *testing.T) {
	f := setupTest(t, false)
	req := order.RegisterRequest{NIM: "2201002", Name: "Bob", Email: "bob@kampus.ac.id", Password: "rahasia123"}
	f.session.On("Register", req).
		Return(nil, &api.Error{Status: http.StatusConflict, Message: "Email sudah terdaftar"}).Once()

	w := f.do(http.MethodPost, "/auth/register", req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email sudah terdaftar", decode(t, w)["error"])
}

func TestSummary_Seller(t *testing.T) {
	f := setupTest(t, true)
	f.svc.On("Summary", order.RoleSeller).Return(&order.Summary{
		TotalOrdersCount:      3,
		PendingOrdersCount:    1,
		ProcessingOrdersCount: 1,
		TotalRevenue:          150000,
		RecentOrders:          []order.Order{{ID: 4, Quantity: 1, TotalPrice: 50000, Status: order.StatusPending}},
	}, nil).Once()

	w := f.do(http.MethodGet, "/seller/dashboard", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(1), data["pending_orders_count"])
	assert.Equal(t, "Rp 150.000", data["amount_label"])
	recent := data["recent_orders"].([]any)
	require.Len(t, recent, 1)
	assert.Equal(t, []any{"confirm", "reject"}, recent[0].(map[string]any)["actions"])
}

func TestSummary_BuyerError(t *testing.T) {
	f := setupTest(t, true)
	f.svc.On("Summary", order.RoleBuyer).Return(nil, &api.NetworkError{Err: errors.New("timeout")}).Once()

	w := f.do(http.MethodGet, "/buyer/dashboard", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, api.MsgConnection, decode(t, w)["error"])
}

func TestSummary_RequiresAuth(t *testing.T) {
	f := setupTest(t, false)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/seller/dashboard", nil).Code)
	f.svc.AssertNotCalled(t, "Summary", mock.Anything)
}
