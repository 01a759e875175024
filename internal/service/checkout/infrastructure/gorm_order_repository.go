package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/service/checkout/domain"
)

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save 插入订单，主键冲突时整行覆盖
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	model := toOrderModel(order)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
	return errors.Wrapf(err, "save order %s", order.ID)
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrapf(err, "find order %s", id)
	}
	return toDomainOrder(&model), nil
}

func (r *GormOrderRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&models).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of %s", userID)
	}
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, toDomainOrder(&models[i]))
	}
	return orders, nil
}

// UpdateState 以 from 作为条件更新状态列，没有命中任何行说明状态已被其他调用方改变
func (r *GormOrderRepository) UpdateState(ctx context.Context, id string, from, to domain.OrderState) error {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).Where("id = ? AND state = ?", id, string(from)).
		Updates(map[string]interface{}{"state": string(to), "updated_at": time.Now()})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update order %s state", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(domain.ErrInvalidOrderState, "order %s is no longer %s", id, from)
	}
	return nil
}
