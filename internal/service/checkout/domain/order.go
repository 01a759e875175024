// internal/service/checkout/domain/order.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order 是订单聚合的根实体，保存下单时刻的商品、地址和金额快照
type Order struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	Groups     []ShopGroup    `json:"groups"`
	Address    Address        `json:"address"`
	Totals     CheckoutTotals `json:"totals"`
	CouponCode string         `json:"couponCode,omitempty"`
	State      OrderState     `json:"state"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// NewOrder 用于创建一个新的订单实例，只包含已勾选的商品
func NewOrder(userID string, groups []ShopGroup, address Address, totals CheckoutTotals, couponCode string) (*Order, error) {
	if userID == "" || len(groups) == 0 {
		return nil, ErrNothingSelected
	}
	now := time.Now()
	return &Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		Groups:     groups,
		Address:    address,
		Totals:     totals,
		CouponCode: couponCode,
		State:      StateCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// MarkAsPendingPayment 将订单状态更新为等待支付
func (o *Order) MarkAsPendingPayment() error {
	if o.State != StateCreated {
		return ErrInvalidOrderState
	}
	o.transition(StatePendingPayment)
	return nil
}

// MarkAsFailed 将订单标记为失败
func (o *Order) MarkAsFailed() {
	o.transition(StateFailed)
}

// Cancel 取消订单，只有待支付的订单可以被取消
func (o *Order) Cancel() error {
	if o.State != StatePendingPayment {
		return ErrInvalidOrderState
	}
	o.transition(StateCancelled)
	return nil
}

// Pay 支付订单
func (o *Order) Pay() error {
	if o.State != StatePendingPayment {
		return ErrInvalidOrderState
	}
	o.transition(StatePaid)
	return nil
}

func (o *Order) transition(s OrderState) {
	o.State = s
	o.UpdatedAt = time.Now()
}
