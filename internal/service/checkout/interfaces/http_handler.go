// internal/service/checkout/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/checkout/application"
	"storefront/internal/service/checkout/domain"
	"storefront/internal/service/checkout/domain/port"
)

// CheckoutUseCases 是 HTTP 层依赖的应用服务能力，由 *application.CheckoutService 实现
type CheckoutUseCases interface {
	GetCart(ctx context.Context, userID string) (*application.CartView, error)
	AddItem(ctx context.Context, userID string, req application.AddItemRequest) (*application.CartView, error)
	UpdateItem(ctx context.Context, userID, itemID string, req application.UpdateItemRequest) (*application.CartView, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*application.CartView, error)
	SelectShop(ctx context.Context, userID, shopID string, selected bool) (*application.CartView, error)
	SelectAll(ctx context.Context, userID string, selected bool) (*application.CartView, error)
	PreviewTotals(ctx context.Context, userID, couponCode string) (*application.TotalsView, error)
	GetAddressBook(ctx context.Context, userID string) (*domain.AddressBook, error)
	ApplyAddressCommand(ctx context.Context, userID string, cmd application.AddressCommand) (*domain.AddressBook, error)
	PlaceOrder(ctx context.Context, userID string, req application.PlaceOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	CancelOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)
	PayOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)
}

// CheckoutHandler 封装了 checkout 服务的 HTTP 处理器
type CheckoutHandler struct {
	service CheckoutUseCases
	hub     *Hub
}

// NewCheckoutHandler 创建 HTTP 处理器；hub 为 nil 时不注册实时推送接口
func NewCheckoutHandler(service CheckoutUseCases, hub *Hub) *CheckoutHandler {
	return &CheckoutHandler{service: service, hub: hub}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *CheckoutHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart/{userId}", h.handleGetCart)
	mux.HandleFunc("POST /api/cart/{userId}/items", h.handleAddItem)
	mux.HandleFunc("PATCH /api/cart/{userId}/items/{itemId}", h.handleUpdateItem)
	mux.HandleFunc("DELETE /api/cart/{userId}/items/{itemId}", h.handleRemoveItem)
	mux.HandleFunc("POST /api/cart/{userId}/shops/{shopId}/select", h.handleSelectShop)
	mux.HandleFunc("POST /api/cart/{userId}/select", h.handleSelectAll)

	mux.HandleFunc("GET /api/checkout/{userId}/totals", h.handlePreviewTotals)
	mux.HandleFunc("POST /api/checkout/{userId}/orders", h.handlePlaceOrder)

	mux.HandleFunc("GET /api/addresses/{userId}", h.handleGetAddressBook)
	mux.HandleFunc("POST /api/addresses/{userId}/transitions", h.handleAddressCommand)

	mux.HandleFunc("GET /api/orders/{userId}", h.handleListOrders)
	mux.HandleFunc("GET /api/orders/{userId}/{orderId}", h.handleGetOrder)
	mux.HandleFunc("POST /api/orders/{userId}/{orderId}/cancel", h.handleCancelOrder)
	mux.HandleFunc("POST /api/orders/{userId}/{orderId}/pay", h.handlePayOrder)

	if h.hub != nil {
		mux.HandleFunc("GET /ws/totals", h.handleTotalsStream)
	}
}

type selectRequest struct {
	Selected bool `json:"selected"`
}

func (h *CheckoutHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetCart(r.Context(), r.PathValue("userId"))
	respond(w, r, view, err)
}

func (h *CheckoutHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req application.AddItemRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.service.AddItem(r.Context(), r.PathValue("userId"), req)
	respond(w, r, view, err)
}

func (h *CheckoutHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req application.UpdateItemRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.service.UpdateItem(r.Context(), r.PathValue("userId"), r.PathValue("itemId"), req)
	respond(w, r, view, err)
}

func (h *CheckoutHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RemoveItem(r.Context(), r.PathValue("userId"), r.PathValue("itemId"))
	respond(w, r, view, err)
}

func (h *CheckoutHandler) handleSelectShop(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.service.SelectShop(r.Context(), r.PathValue("userId"), r.PathValue("shopId"), req.Selected)
	respond(w, r, view, err)
}

func (h *CheckoutHandler) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.service.SelectAll(r.Context(), r.PathValue("userId"), req.Selected)
	respond(w, r, view, err)
}

func (h *CheckoutHandler) handlePreviewTotals(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.PreviewTotals(r.Context(), r.PathValue("userId"), r.URL.Query().Get("coupon"))
	respond(w, r, view, err)
}

func (h *CheckoutHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req application.PlaceOrderRequest
	// 不带优惠券时允许空 body
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	order, err := h.service.PlaceOrder(r.Context(), r.PathValue("userId"), req)
	if err != nil {
		respond(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *CheckoutHandler) handleGetAddressBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.GetAddressBook(r.Context(), r.PathValue("userId"))
	respond(w, r, book, err)
}

func (h *CheckoutHandler) handleAddressCommand(w http.ResponseWriter, r *http.Request) {
	var cmd application.AddressCommand
	if !decode(w, r, &cmd) {
		return
	}
	book, err := h.service.ApplyAddressCommand(r.Context(), r.PathValue("userId"), cmd)
	respond(w, r, book, err)
}

func (h *CheckoutHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), r.PathValue("userId"))
	if orders == nil {
		orders = []*domain.Order{}
	}
	respond(w, r, orders, err)
}

func (h *CheckoutHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), r.PathValue("userId"), r.PathValue("orderId"))
	respond(w, r, order, err)
}

func (h *CheckoutHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.CancelOrder(r.Context(), r.PathValue("userId"), r.PathValue("orderId"))
	respond(w, r, order, err)
}

func (h *CheckoutHandler) handlePayOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.PayOrder(r.Context(), r.PathValue("userId"), r.PathValue("orderId"))
	respond(w, r, order, err)
}

// handleTotalsStream 升级为 WebSocket 后立即推送一次当前金额，之后由购物车变更触发推送
func (h *CheckoutHandler) handleTotalsStream(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	if err := h.hub.Serve(w, r, userID); err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}
	view, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Str("user_id", userID).Msg("failed to load initial totals")
		return
	}
	h.hub.NotifyTotals(userID, view.Totals)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func respond(w http.ResponseWriter, r *http.Request, body any, err error) {
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			logger.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor 根据错误类型返回不同的 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidItem),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrShopNotFound),
		errors.Is(err, domain.ErrAddressNotFound),
		errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidOrderState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNothingSelected),
		errors.Is(err, domain.ErrNoAddressSelected),
		errors.Is(err, port.ErrCouponRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
