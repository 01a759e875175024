// internal/service/checkout/domain/totals.go
package domain

import "github.com/shopspring/decimal"

// CartState 区分“空购物车”和“有商品但未勾选”
type CartState string

const (
	CartStateEmpty        CartState = "EMPTY"         // 购物车内没有商品
	CartStateNoneSelected CartState = "NONE_SELECTED" // 有商品但一件都没勾选
	CartStateReady        CartState = "READY"         // 至少勾选了一件商品
)

// FreeShipping 是包邮门槛的提示信息，只用于展示，不会抵扣运费报价
type FreeShipping struct {
	Enabled   bool            `json:"enabled"`
	Threshold decimal.Decimal `json:"threshold"`
	// Eligible 门槛 <= 0 视为未开启包邮活动，此时恒为 false
	Eligible  bool            `json:"eligible"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Shipment 是单个店铺的运费明细
type Shipment struct {
	ShopID      string          `json:"shopId"`
	Fee         decimal.Decimal `json:"fee"`
	LeadTime    string          `json:"leadTime,omitempty"`
	ServiceName string          `json:"serviceName,omitempty"`
	Quoted      bool            `json:"quoted"`
}

// CheckoutTotals 由当前勾选状态派生，每次状态变化都重新计算
type CheckoutTotals struct {
	State            CartState       `json:"state"`
	SelectedCount    int             `json:"selectedCount"`
	SelectedQuantity int             `json:"selectedQuantity"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingCost     decimal.Decimal `json:"shippingCost"`
	Discount         decimal.Decimal `json:"discount"`
	Total            decimal.Decimal `json:"total"`
	FreeShipping     FreeShipping    `json:"freeShipping"`
	Shipments        []Shipment      `json:"shipments"`
}

// Aggregate 根据店铺分组、运费报价和包邮门槛计算结算金额。
// 纯函数：不修改入参，不返回错误。折扣恒为 0，优惠券折扣通过 WithDiscount 追加。
func Aggregate(groups []ShopGroup, quotes []ShippingQuote, threshold decimal.Decimal) CheckoutTotals {
	totals := CheckoutTotals{
		State:        CartStateEmpty,
		Subtotal:     decimal.Zero,
		ShippingCost: decimal.Zero,
		Discount:     decimal.Zero,
		Shipments:    []Shipment{},
	}

	hasItems := false
	for _, g := range groups {
		if len(g.Items) > 0 {
			hasItems = true
		}
		for _, it := range g.Items {
			if !it.Selected {
				continue
			}
			totals.SelectedCount++
			totals.SelectedQuantity += it.Quantity
			totals.Subtotal = totals.Subtotal.Add(it.LineTotal())
		}
	}

	for _, shopID := range SelectedShopIDs(groups) {
		shipment := Shipment{ShopID: shopID, Fee: decimal.Zero}
		if q, ok := ResolveQuote(shopID, quotes); ok {
			shipment.Fee = q.Fee
			shipment.LeadTime = q.LeadTime
			shipment.ServiceName = q.ServiceName
			shipment.Quoted = q.Success
		}
		totals.ShippingCost = totals.ShippingCost.Add(shipment.Fee)
		totals.Shipments = append(totals.Shipments, shipment)
	}

	switch {
	case totals.SelectedCount > 0:
		totals.State = CartStateReady
	case hasItems:
		totals.State = CartStateNoneSelected
	}

	totals.Total = totals.Subtotal.Add(totals.ShippingCost).Sub(totals.Discount)
	totals.FreeShipping = EvaluateFreeShipping(totals.Subtotal, threshold)
	return totals
}

// WithDiscount 追加折扣并重新计算总价，折扣被限制在 [0, Subtotal]
func (t CheckoutTotals) WithDiscount(amount decimal.Decimal) CheckoutTotals {
	switch {
	case amount.IsNegative():
		amount = decimal.Zero
	case amount.GreaterThan(t.Subtotal):
		amount = t.Subtotal
	}
	t.Discount = amount
	t.Total = t.Subtotal.Add(t.ShippingCost).Sub(t.Discount)
	return t
}

// EvaluateFreeShipping 计算距离包邮门槛还差多少。门槛 <= 0 表示未开启包邮活动。
func EvaluateFreeShipping(subtotal, threshold decimal.Decimal) FreeShipping {
	if !threshold.IsPositive() {
		return FreeShipping{Threshold: decimal.Zero, Remaining: decimal.Zero}
	}
	remaining := threshold.Sub(subtotal)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return FreeShipping{
		Enabled:   true,
		Threshold: threshold,
		Eligible:  subtotal.GreaterThanOrEqual(threshold),
		Remaining: remaining,
	}
}

// SelectedShopIDs 返回至少有一件已勾选商品的店铺ID，按首次出现顺序去重
func SelectedShopIDs(groups []ShopGroup) []string {
	seen := make(map[string]struct{}, len(groups))
	var ids []string
	for _, g := range groups {
		if !g.HasSelected() {
			continue
		}
		if _, ok := seen[g.ShopID]; ok {
			continue
		}
		seen[g.ShopID] = struct{}{}
		ids = append(ids, g.ShopID)
	}
	return ids
}
