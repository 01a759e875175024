package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"storefront/internal/pkg/constants"
	"storefront/internal/service/promotion/application"
	"storefront/internal/service/promotion/domain"
)

// CouponUseCases 是优惠服务对外提供的用例
type CouponUseCases interface {
	PreviewCoupon(ctx context.Context, req *application.CouponRequest) (*application.CouponResponse, error)
	UseCoupon(ctx context.Context, req *application.CouponRequest) (*application.CouponResponse, error)
	CancelCouponUsage(ctx context.Context, req *application.CouponRequest) error
	ConfirmCouponUsage(ctx context.Context, req *application.CouponRequest) error
}

// PromotionHandler 封装了 promotion 服务的 HTTP 处理器
type PromotionHandler struct {
	service CouponUseCases
}

// NewPromotionHandler 创建一个新的 HTTP 处理器实例
func NewPromotionHandler(service CouponUseCases) *PromotionHandler {
	return &PromotionHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *PromotionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+constants.PromotionPreviewCouponPath, h.handlePreviewCoupon)
	mux.HandleFunc("POST "+constants.PromotionUseCouponPath, h.handleUseCoupon)
	mux.HandleFunc("POST "+constants.PromotionCancelCouponPath, h.handleCancelCoupon)
	mux.HandleFunc("POST "+constants.PromotionConfirmCouponPath, h.handleConfirmCoupon)
}

func (h *PromotionHandler) handlePreviewCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	resp, err := h.service.PreviewCoupon(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, resp)
}

func (h *PromotionHandler) handleUseCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	resp, err := h.service.UseCoupon(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, resp)
}

// handleCancelCoupon 是补偿接口的处理器
func (h *PromotionHandler) handleCancelCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	if err := h.service.CancelCouponUsage(r.Context(), req); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, application.CouponResponse{CouponCode: req.CouponCode, Status: string(domain.StatusUnused), Message: "Coupon usage successfully cancelled."})
}

func (h *PromotionHandler) handleConfirmCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	if err := h.service.ConfirmCouponUsage(r.Context(), req); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, application.CouponResponse{CouponCode: req.CouponCode, Status: string(domain.StatusUsed)})
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*application.CouponRequest, bool) {
	var req application.CouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CouponCode == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor 根据错误类型返回不同的 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCouponNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCouponExpired),
		errors.Is(err, domain.ErrCouponAlreadyUsed),
		errors.Is(err, domain.ErrCouponNotOwned),
		errors.Is(err, domain.ErrCouponNotApplicable):
		return http.StatusForbidden // 客户端请求有效，但服务器拒绝执行
	case errors.Is(err, domain.ErrThresholdNotMet):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCouponStatusInvalid):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
