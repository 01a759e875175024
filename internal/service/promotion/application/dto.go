package application

import "github.com/shopspring/decimal"

// CouponRequest 是试算、冻结、释放、核销优惠券共用的请求体
type CouponRequest struct {
	UserID     string          `json:"user_id"`
	CouponCode string          `json:"coupon_code"`
	OrderID    string          `json:"order_id,omitempty"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ShopIDs    []string        `json:"shop_ids"`
	ItemCount  int             `json:"item_count"`
}

// CouponResponse 是优惠券接口的响应体
type CouponResponse struct {
	CouponCode string          `json:"coupon_code"`
	Discount   decimal.Decimal `json:"discount"`
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
}
