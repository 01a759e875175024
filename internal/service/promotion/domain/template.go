// internal/service/promotion/domain/template.go
package domain

import (
	"github.com/shopspring/decimal"
)

// CouponType 定义了优惠的计算方式
type CouponType string

const (
	CouponTypeFixedAmount CouponType = "FIXED_AMOUNT" // 满减/立减
	CouponTypePercentage  CouponType = "PERCENTAGE"   // 折扣
)

var hundred = decimal.NewFromInt(100)

// CouponTemplate 是优惠券的规则定义，用户领取的每张券都指向一个模板
type CouponTemplate struct {
	ID           int64
	TemplateCode string
	Name         string
	Type         CouponType
	// DiscountValue 对于满减券是减免金额，对于折扣券是百分比（20 表示减免 20%）
	DiscountValue   decimal.Decimal
	ThresholdAmount decimal.Decimal
	// MaxDiscount 只对折扣券生效，<= 0 表示不封顶
	MaxDiscount decimal.Decimal
	// ShopIDs 为空表示全场通用
	ShopIDs []string
	// RuleExpression 是可选的 CEL 表达式，可用变量见 rule 包
	RuleExpression string
}

// Discount 计算优惠金额，结果在 [0, subtotal] 之间
func (t *CouponTemplate) Discount(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch t.Type {
	case CouponTypeFixedAmount:
		amount = t.DiscountValue
	case CouponTypePercentage:
		amount = subtotal.Mul(t.DiscountValue).Div(hundred).Round(2)
		if t.MaxDiscount.IsPositive() && amount.GreaterThan(t.MaxDiscount) {
			amount = t.MaxDiscount
		}
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

// AppliesToShops 模板限定了店铺时，至少有一个勾选的店铺在范围内
func (t *CouponTemplate) AppliesToShops(shopIDs []string) bool {
	if len(t.ShopIDs) == 0 {
		return true
	}
	for _, scoped := range t.ShopIDs {
		for _, id := range shopIDs {
			if scoped == id {
				return true
			}
		}
	}
	return false
}
