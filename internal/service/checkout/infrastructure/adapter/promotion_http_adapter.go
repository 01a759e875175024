package adapter

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"storefront/internal/pkg/constants"
	"storefront/internal/pkg/httpclient"
	"storefront/internal/service/checkout/domain/port"
)

type couponRequestDTO struct {
	UserID     string          `json:"user_id"`
	CouponCode string          `json:"coupon_code"`
	OrderID    string          `json:"order_id,omitempty"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ShopIDs    []string        `json:"shop_ids"`
	ItemCount  int             `json:"item_count"`
}

type couponResponseDTO struct {
	Discount decimal.Decimal `json:"discount"`
}

type jsonPoster interface {
	PostJSON(ctx context.Context, serviceName, path string, body, out any) error
}

var _ jsonPoster = (*httpclient.Client)(nil)

// PromotionHTTPAdapter 实现了 port.PromotionService
type PromotionHTTPAdapter struct {
	client jsonPoster
}

func NewPromotionHTTPAdapter(client jsonPoster) *PromotionHTTPAdapter {
	return &PromotionHTTPAdapter{client: client}
}

func (a *PromotionHTTPAdapter) PreviewCoupon(ctx context.Context, req port.CouponRequest) (decimal.Decimal, error) {
	return a.call(ctx, constants.PromotionPreviewCouponPath, req)
}

func (a *PromotionHTTPAdapter) UseCoupon(ctx context.Context, req port.CouponRequest) (decimal.Decimal, error) {
	return a.call(ctx, constants.PromotionUseCouponPath, req)
}

func (a *PromotionHTTPAdapter) CancelCoupon(ctx context.Context, req port.CouponRequest) error {
	_, err := a.call(ctx, constants.PromotionCancelCouponPath, req)
	return err
}

func (a *PromotionHTTPAdapter) call(ctx context.Context, path string, req port.CouponRequest) (decimal.Decimal, error) {
	body := couponRequestDTO{
		UserID:     req.UserID,
		CouponCode: req.CouponCode,
		OrderID:    req.OrderID,
		Subtotal:   req.Subtotal,
		ShopIDs:    req.ShopIDs,
		ItemCount:  req.ItemCount,
	}
	var resp couponResponseDTO
	if err := a.client.PostJSON(ctx, constants.PromotionService, path, body, &resp); err != nil {
		return decimal.Zero, mapPromotionError(err)
	}
	return resp.Discount, nil
}

// mapPromotionError 把优惠服务的业务拒绝映射为 ErrCouponRejected，其余错误原样返回
func mapPromotionError(err error) error {
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusNotFound, http.StatusForbidden, http.StatusConflict, http.StatusUnprocessableEntity, http.StatusBadRequest:
			return errors.Wrap(port.ErrCouponRejected, se.Body)
		}
	}
	return err
}
