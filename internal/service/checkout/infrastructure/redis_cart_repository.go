package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"storefront/internal/service/checkout/domain"
)

const (
	cartKeyPrefix    = "storefront:cart:"
	addressKeyPrefix = "storefront:address:"
)

func cartKey(userID string) string    { return cartKeyPrefix + userID }
func addressKey(userID string) string { return addressKeyPrefix + userID }

// RedisCartRepository 把整个购物车作为一个 JSON 文档存在 Redis 中，每次写入刷新 TTL
type RedisCartRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisCartRepository(rdb redis.Cmdable, ttl time.Duration) *RedisCartRepository {
	return &RedisCartRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.rdb.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewCart(userID), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get cart %s", userID)
	}
	cart := domain.NewCart(userID)
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, errors.Wrapf(err, "decode cart %s", userID)
	}
	return cart, nil
}

func (r *RedisCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := r.rdb.Set(ctx, cartKey(cart.UserID), data, r.ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set cart %s", cart.UserID)
	}
	return nil
}

// RedisAddressRepository 地址簿同样整体存储，不过期
type RedisAddressRepository struct {
	rdb redis.Cmdable
}

func NewRedisAddressRepository(rdb redis.Cmdable) *RedisAddressRepository {
	return &RedisAddressRepository{rdb: rdb}
}

func (r *RedisAddressRepository) Get(ctx context.Context, userID string) (*domain.AddressBook, error) {
	data, err := r.rdb.Get(ctx, addressKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewAddressBook(userID), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get address book %s", userID)
	}
	book := domain.NewAddressBook(userID)
	if err := json.Unmarshal(data, book); err != nil {
		return nil, errors.Wrapf(err, "decode address book %s", userID)
	}
	return book, nil
}

func (r *RedisAddressRepository) Save(ctx context.Context, book *domain.AddressBook) error {
	data, err := json.Marshal(book)
	if err != nil {
		return errors.Wrap(err, "encode address book")
	}
	if err := r.rdb.Set(ctx, addressKey(book.UserID), data, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis set address book %s", book.UserID)
	}
	return nil
}
