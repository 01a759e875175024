// internal/service/checkout/application/dto.go
package application

import (
	"github.com/shopspring/decimal"

	"storefront/internal/service/checkout/domain"
)

// AddItemRequest 是加入购物车用例的输入数据
type AddItemRequest struct {
	ShopID    string          `json:"shopId"`
	ShopName  string          `json:"shopName"`
	ProductID string          `json:"productId"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

func (r AddItemRequest) toItem() domain.CartItem {
	return domain.CartItem{
		ProductID: r.ProductID,
		SKU:       r.SKU,
		Name:      r.Name,
		UnitPrice: r.UnitPrice,
		Quantity:  r.Quantity,
	}
}

// UpdateItemRequest 可以同时修改数量和勾选状态，nil 表示不修改
type UpdateItemRequest struct {
	Quantity *int  `json:"quantity,omitempty"`
	Selected *bool `json:"selected,omitempty"`
}

// 地址簿状态机命令
const (
	AddressBeginSelect = "begin_select"
	AddressSelect      = "select"
	AddressBeginEdit   = "begin_edit"
	AddressBeginAdd    = "begin_add"
	AddressSave        = "save"
	AddressCancel      = "cancel"
	AddressRemove      = "remove"
)

// AddressCommand 驱动地址簿状态机
type AddressCommand struct {
	Action    string          `json:"action"`
	AddressID string          `json:"addressId,omitempty"`
	Address   *domain.Address `json:"address,omitempty"`
}

// PlaceOrderRequest 是下单用例的输入数据
type PlaceOrderRequest struct {
	CouponCode string `json:"couponCode,omitempty"`
}

// CartView 是购物车和实时结算金额
type CartView struct {
	Cart   *domain.Cart          `json:"cart"`
	Totals domain.CheckoutTotals `json:"totals"`
}

// CouponResult 是试算优惠券的结果；Applied 为 false 时 Reason 给出原因
type CouponResult struct {
	Code    string `json:"code"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// TotalsView 是结算页展示的金额
type TotalsView struct {
	Totals domain.CheckoutTotals `json:"totals"`
	Coupon *CouponResult         `json:"coupon,omitempty"`
}

// Settings 是可以热更新的业务参数
type Settings struct {
	FreeShippingThreshold decimal.Decimal
	CouponsEnabled        bool
	LiveTotalsEnabled     bool
}
