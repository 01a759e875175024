// internal/service/checkout/domain/repository.go
package domain

import "context"

// CartRepository 定义了购物车聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type CartRepository interface {
	// Get 返回用户购物车，不存在时返回一个空购物车
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
}

// AddressRepository 定义了地址簿的持久化接口
type AddressRepository interface {
	// Get 返回用户地址簿，不存在时返回一个空地址簿
	Get(ctx context.Context, userID string) (*AddressBook, error)
	Save(ctx context.Context, book *AddressBook) error
}

// OrderRepository 定义了订单聚合的持久化接口
type OrderRepository interface {
	// Save 保存一个订单聚合（用于创建或更新）。
	Save(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找一个订单聚合，不存在时返回 ErrOrderNotFound
	FindByID(ctx context.Context, id string) (*Order, error)

	// FindByUserID 按创建时间倒序返回用户的订单
	FindByUserID(ctx context.Context, userID string) ([]*Order, error)

	// UpdateState 仅当订单当前状态仍为 from 时改为 to，否则返回 ErrInvalidOrderState
	UpdateState(ctx context.Context, id string, from, to OrderState) error
}
