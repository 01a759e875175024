package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/service/checkout/domain"
)

// OrderModel 对应数据库中的 orders 表。
// 金额列用于对账查询，商品、地址和结算明细以 JSON 快照保存。
type OrderModel struct {
	ID           string                `gorm:"primaryKey;size:36"`
	UserID       string                `gorm:"index;size:64"`
	State        string                `gorm:"size:32"`
	CouponCode   string                `gorm:"size:64"`
	Subtotal     decimal.Decimal       `gorm:"type:decimal(18,2)"`
	ShippingCost decimal.Decimal       `gorm:"type:decimal(18,2)"`
	Discount     decimal.Decimal       `gorm:"type:decimal(18,2)"`
	Total        decimal.Decimal       `gorm:"type:decimal(18,2)"`
	Groups       []domain.ShopGroup    `gorm:"type:json;serializer:json"`
	Address      domain.Address        `gorm:"type:json;serializer:json"`
	Totals       domain.CheckoutTotals `gorm:"type:json;serializer:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}
