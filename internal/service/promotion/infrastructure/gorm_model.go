package infrastructure

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponTemplateModel 对应数据库中的 coupon_template 表
type CouponTemplateModel struct {
	gorm.Model
	TemplateCode    string `gorm:"size:64;uniqueIndex"`
	Name            string
	Type            string          `gorm:"size:32"`
	DiscountValue   decimal.Decimal `gorm:"type:decimal(18,2)"`
	ThresholdAmount decimal.Decimal `gorm:"type:decimal(18,2)"`
	MaxDiscount     decimal.Decimal `gorm:"type:decimal(18,2)"`
	ShopIDs         string          `gorm:"type:text"` // 逗号分隔，空表示全场
	RuleExpression  string          `gorm:"type:text"`
}

// TableName 指定 GORM 应该使用的表名
func (CouponTemplateModel) TableName() string {
	return "coupon_template"
}

// UserCouponModel 对应数据库中的 user_coupon 表
type UserCouponModel struct {
	gorm.Model
	CouponCode string `gorm:"size:64;uniqueIndex"`
	UserID     string `gorm:"size:64;index"`
	TemplateID uint
	Status     string `gorm:"size:16;default:UNUSED"`
	OrderID    sql.NullString
	ValidFrom  time.Time
	ValidTo    time.Time
	UsedAt     sql.NullTime
	// 关联关系
	Template CouponTemplateModel `gorm:"foreignKey:TemplateID"`
}

// TableName 指定 GORM 应该使用的表名
func (UserCouponModel) TableName() string {
	return "user_coupon"
}
