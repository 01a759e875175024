// internal/service/checkout/domain/event.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// 订单事件类型
const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderCancelled = "OrderCancelled"
	EventOrderPaid      = "OrderPaid"
)

// OrderEvent 是发布到 Kafka 的订单领域事件
type OrderEvent struct {
	Type         string          `json:"type"`
	OrderID      string          `json:"orderId"`
	UserID       string          `json:"userId"`
	ShopIDs      []string        `json:"shopIds"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	CouponCode   string          `json:"couponCode,omitempty"`
	TraceID      string          `json:"traceId,omitempty"`
	At           time.Time       `json:"at"`
}

// NewOrderEvent 由订单快照构造事件
func NewOrderEvent(eventType string, o *Order) *OrderEvent {
	return &OrderEvent{
		Type:         eventType,
		OrderID:      o.ID,
		UserID:       o.UserID,
		ShopIDs:      SelectedShopIDs(o.Groups),
		Subtotal:     o.Totals.Subtotal,
		ShippingCost: o.Totals.ShippingCost,
		Discount:     o.Totals.Discount,
		Total:        o.Totals.Total,
		CouponCode:   o.CouponCode,
		At:           time.Now(),
	}
}
