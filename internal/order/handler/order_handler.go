package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"preorder-storefront/internal/api"
	"preorder-storefront/internal/order"
	"preorder-storefront/internal/order/repository"
	"preorder-storefront/internal/order/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Authenticator adalah operasi sesi yang dibutuhkan handler. *auth.Session memenuhinya.
type Authenticator interface {
	Login(ctx context.Context, credential, password string) (*order.User, error)
	Register(ctx context.Context, req order.RegisterRequest) (*order.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*order.User, error)
	IsAuthenticated(ctx context.Context) bool
}

// OrderHandler mengikat query layer dan transition engine ke HTTP untuk satu user yang sedang login.
type OrderHandler struct {
	Service service.OrderService
	Session Authenticator

	buyer        *service.OrderQuery
	seller       *service.OrderQuery
	buyerEngine  *service.TransitionEngine
	sellerEngine *service.TransitionEngine
}

// NewOrderHandler adalah constructor. Daftar pembeli dan penjual punya query dan engine masing-masing.
func NewOrderHandler(svc service.OrderService, repo repository.OrderRepository, session Authenticator, pageLimit int) *OrderHandler {
	buyer := service.NewOrderQuery(svc, order.RoleBuyer, pageLimit)
	seller := service.NewOrderQuery(svc, order.RoleSeller, pageLimit)
	return &OrderHandler{
		Service:      svc,
		Session:      session,
		buyer:        buyer,
		seller:       seller,
		buyerEngine:  service.NewTransitionEngine(svc, repo, order.RoleBuyer, buyer),
		sellerEngine: service.NewTransitionEngine(svc, repo, order.RoleSeller, seller),
	}
}

// Register memasang semua rute.
func (h *OrderHandler) Register(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/register", h.SignUp)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", h.Me)
	}

	protected := r.Group("/", h.RequireAuth)
	{
		protected.GET("/buyer/orders", h.ListOrders(h.buyer))
		protected.POST("/buyer/orders", h.CreateOrder)
		protected.PATCH("/buyer/orders/:id/cancel", h.runAction(h.buyerEngine, order.ActionCancel))
		protected.GET("/buyer/dashboard", h.Summary(order.RoleBuyer))

		protected.GET("/seller/orders", h.ListOrders(h.seller))
		protected.PATCH("/seller/orders/:id/confirm", h.runAction(h.sellerEngine, order.ActionConfirm))
		protected.PATCH("/seller/orders/:id/complete", h.runAction(h.sellerEngine, order.ActionComplete))
		protected.PATCH("/seller/orders/:id/reject", h.runAction(h.sellerEngine, order.ActionReject))
		protected.GET("/seller/dashboard", h.Summary(order.RoleSeller))

		protected.GET("/orders/:id", h.GetOrder)
	}
}

// Close menghentikan fetch yang sedang berjalan.
func (h *OrderHandler) Close() {
	h.buyer.Close()
	h.seller.Close()
}

// ResetSession membuang cache, snapshot dan state daftar milik akun sebelumnya.
func (h *OrderHandler) ResetSession(ctx context.Context) {
	h.Service.Reset(ctx)
	h.buyer.Reset()
	h.seller.Reset()
}

// RequireAuth menolak request tanpa token yang masih berlaku.
func (h *OrderHandler) RequireAuth(c *gin.Context) {
	if !h.Session.IsAuthenticated(c.Request.Context()) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": api.MsgSessionExpired})
		return
	}
	c.Next()
}

// OrderView adalah pesanan beserta data tampilan untuk role yang melihat.
type OrderView struct {
	order.Order
	Actions    []order.UIAction `json:"actions"`
	Badge      string           `json:"badge"`
	UnitPrice  string           `json:"unit_price"`
	TotalLabel string           `json:"total_label"`
	ContactURL string           `json:"contact_url,omitempty"`
}

func newOrderView(role order.Role, o order.Order) OrderView {
	v := OrderView{
		Order:      o,
		Actions:    order.AvailableActions(role, o.Status),
		Badge:      order.BadgeTone(o.Status),
		UnitPrice:  order.FormatRupiah(order.UnitPrice(o)),
		TotalLabel: order.FormatRupiah(decimal.NewFromFloat(o.TotalPrice)),
	}
	if role == order.RoleBuyer {
		v.ContactURL = order.ContactSellerURL(o)
	}
	return v
}

type listResponse struct {
	Items      []OrderView       `json:"items"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
	Status     order.OrderStatus `json:"status,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// ListOrders menangani GET /buyer/orders dan /seller/orders.
// Mengganti status selalu kembali ke halaman 1; selain itu pindah ke halaman yang diminta.
func (h *OrderHandler) ListOrders(q *service.OrderQuery) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		status := order.OrderStatus(c.Query("status"))
		if status != "" && !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Status pesanan tidak dikenal."})
			return
		}

		var st service.ListState
		if status != q.Status() {
			st = q.SetStatus(ctx, status)
		} else {
			page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Parameter page tidak valid."})
				return
			}
			st = q.SetPage(ctx, page)
		}

		resp := listResponse{
			Items:      make([]OrderView, 0, len(st.Items)),
			Page:       st.Page,
			Limit:      st.Limit,
			Total:      st.Total,
			TotalPages: st.TotalPages,
			Status:     st.Status,
		}
		for _, o := range st.Items {
			resp.Items = append(resp.Items, newOrderView(q.Role(), o))
		}

		// daftar kosong beserta pesan; klien cukup mengulang request yang sama
		if st.Err != nil {
			resp.Error = st.Error
			c.AbortWithStatusJSON(errorStatus(st.Err), resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// CreateOrder menangani POST /buyer/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Format request tidak valid.", "details": err.Error()})
		return
	}

	created, err := h.Service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, api.UserMessage(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Pesanan berhasil dibuat", "data": newOrderView(order.RoleBuyer, *created)})
}

// GetOrder menangani GET /orders/:id?role=buyer|seller
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	role := order.Role(c.DefaultQuery("role", string(order.RoleBuyer)))
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parameter role tidak valid."})
		return
	}

	o, err := h.Service.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, api.UserMessage(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newOrderView(role, *o)})
}

func (h *OrderHandler) runAction(e *service.TransitionEngine, action order.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var reason string
		if action == order.ActionReject {
			var req order.RejectOrderRequest
			if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Format request tidak valid.", "details": err.Error()})
				return
			}
			reason = req.Reason
		}

		out, err := e.Run(c.Request.Context(), id, action, reason)
		if err != nil {
			writeError(c, err, out.Notice)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": out.Notice, "data": newOrderView(e.Role(), *out.Order)})
	}
}

// SummaryView adalah ringkasan dashboard dengan pesanan terbaru siap tampil.
type SummaryView struct {
	order.Summary
	RecentOrders []OrderView `json:"recent_orders"`
	AmountLabel  string      `json:"amount_label"`
}

// Summary menangani GET /buyer/dashboard dan /seller/dashboard.
func (h *OrderHandler) Summary(role order.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := h.Service.Summary(c.Request.Context(), role)
		if err != nil {
			writeError(c, err, api.UserMessage(err))
			return
		}

		amount := summary.TotalSpent
		if role == order.RoleSeller {
			amount = summary.TotalRevenue
		}
		v := SummaryView{
			Summary:      *summary,
			RecentOrders: make([]OrderView, 0, len(summary.RecentOrders)),
			AmountLabel:  order.FormatRupiah(decimal.NewFromFloat(amount)),
		}
		for _, o := range summary.RecentOrders {
			v.RecentOrders = append(v.RecentOrders, newOrderView(role, o))
		}
		c.JSON(http.StatusOK, gin.H{"data": v})
	}
}

// Login menangani POST /auth/login
func (h *OrderHandler) Login(c *gin.Context) {
	var req order.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email/NIM dan password wajib diisi.", "details": err.Error()})
		return
	}
	user, err := h.Session.Login(c.Request.Context(), req.Credential, req.Password)
	if err != nil {
		writeError(c, err, api.UserMessage(err))
		return
	}
	h.ResetSession(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Login berhasil", "data": user})
}

// SignUp menangani POST /auth/register
func (h *OrderHandler) SignUp(c *gin.Context) {
	var req order.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Data registrasi tidak valid.", "details": err.Error()})
		return
	}
	user, err := h.Session.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, api.UserMessage(err))
		return
	}
	h.ResetSession(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{"message": "Registrasi berhasil", "data": user})
}

// Logout menangani POST /auth/logout
func (h *OrderHandler) Logout(c *gin.Context) {
	h.ResetSession(c.Request.Context())
	if err := h.Session.Logout(c.Request.Context()); err != nil {
		writeError(c, err, api.UserMessage(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout berhasil"})
}

// Me menangani GET /auth/me
func (h *OrderHandler) Me(c *gin.Context) {
	user, err := h.Session.Me(c.Request.Context())
	if err != nil {
		writeError(c, err, api.UserMessage(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Format ID pesanan tidak valid."})
		return 0, false
	}
	return id, true
}

// writeError memetakan error core ke status HTTP.
func writeError(c *gin.Context, err error, message string) {
	body := gin.H{"error": message}
	var apiErr *api.Error
	if errors.Is(err, api.ErrValidation) && errors.As(err, &apiErr) {
		body["errors"] = apiErr.Fields()
	}
	c.AbortWithStatusJSON(errorStatus(err), body)
}

func errorStatus(err error) int {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, order.ErrTransitionInProgress):
		return http.StatusTooManyRequests
	case errors.Is(err, order.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, api.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, api.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr) && apiErr.Status >= http.StatusBadRequest:
		return apiErr.Status
	}
	return http.StatusInternalServerError
}
