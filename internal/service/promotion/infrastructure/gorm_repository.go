package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"storefront/internal/service/promotion/domain"
)

// GormCouponRepository 是 CouponRepository 的 GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository 创建一个新的 GORM 仓储实例
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByCode 使用 GORM 从数据库中查找优惠券，并预加载模板
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*domain.UserCoupon, error) {
	var model UserCouponModel
	err := r.db.WithContext(ctx).Preload("Template").Where("coupon_code = ?", code).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, errors.Wrapf(err, "find coupon %s", code)
	}
	return ToDomainUserCoupon(&model), nil
}

// Save 以数据库中的状态作为条件更新，并发冻结同一张券时只有一个请求成功
func (r *GormCouponRepository) Save(ctx context.Context, coupon *domain.UserCoupon, expected domain.UserCouponStatus) error {
	updateData := map[string]interface{}{
		"status":   string(coupon.Status),
		"order_id": sql.NullString{String: coupon.OrderID, Valid: coupon.OrderID != ""},
		"used_at":  nullTime(coupon.UsedAt),
	}
	result := r.db.WithContext(ctx).Model(&UserCouponModel{}).
		Where("id = ? AND status = ?", coupon.ID, string(expected)).
		Updates(updateData)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "save coupon %s", coupon.CouponCode)
	}
	if result.RowsAffected == 0 {
		return domain.ErrCouponStatusInvalid
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
