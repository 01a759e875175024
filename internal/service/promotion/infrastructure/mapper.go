package infrastructure

import (
	"strings"

	"storefront/internal/service/promotion/domain"
)

// ToDomainUserCoupon 将数据库模型转换为领域模型
func ToDomainUserCoupon(model *UserCouponModel) *domain.UserCoupon {
	if model == nil {
		return nil
	}
	coupon := &domain.UserCoupon{
		ID:         int64(model.ID),
		CouponCode: model.CouponCode,
		UserID:     model.UserID,
		Status:     domain.UserCouponStatus(model.Status),
		OrderID:    model.OrderID.String,
		ValidFrom:  model.ValidFrom,
		ValidTo:    model.ValidTo,
	}
	if model.UsedAt.Valid {
		usedAt := model.UsedAt.Time
		coupon.UsedAt = &usedAt
	}
	if model.Template.ID != 0 {
		coupon.Template = ToDomainCouponTemplate(&model.Template)
	}
	return coupon
}

// ToDomainCouponTemplate 将数据库模型转换为领域模型
func ToDomainCouponTemplate(model *CouponTemplateModel) *domain.CouponTemplate {
	if model == nil {
		return nil
	}
	return &domain.CouponTemplate{
		ID:              int64(model.ID),
		TemplateCode:    model.TemplateCode,
		Name:            model.Name,
		Type:            domain.CouponType(model.Type),
		DiscountValue:   model.DiscountValue,
		ThresholdAmount: model.ThresholdAmount,
		MaxDiscount:     model.MaxDiscount,
		ShopIDs:         splitShopIDs(model.ShopIDs),
		RuleExpression:  model.RuleExpression,
	}
}

func splitShopIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
