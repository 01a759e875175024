package infrastructure

import "storefront/internal/service/checkout/domain"

// toOrderModel 将领域模型转换为数据库模型
func toOrderModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		ID:           o.ID,
		UserID:       o.UserID,
		State:        string(o.State),
		CouponCode:   o.CouponCode,
		Subtotal:     o.Totals.Subtotal,
		ShippingCost: o.Totals.ShippingCost,
		Discount:     o.Totals.Discount,
		Total:        o.Totals.Total,
		Groups:       o.Groups,
		Address:      o.Address,
		Totals:       o.Totals,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// toDomainOrder 将数据库模型转换为领域模型
func toDomainOrder(m *OrderModel) *domain.Order {
	if m == nil {
		return nil
	}
	return &domain.Order{
		ID:         m.ID,
		UserID:     m.UserID,
		Groups:     m.Groups,
		Address:    m.Address,
		Totals:     m.Totals,
		CouponCode: m.CouponCode,
		State:      domain.OrderState(m.State),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
