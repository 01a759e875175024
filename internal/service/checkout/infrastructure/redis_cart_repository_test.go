package infrastructure

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/service/checkout/domain"
)

func TestRedisCartRepository_GetMissingReturnsEmptyCart(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	repo := NewRedisCartRepository(rdb, time.Hour)

	mock.ExpectGet("storefront:cart:u1").RedisNil()

	cart, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", cart.UserID)
	assert.True(t, cart.IsEmpty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCartRepository_SaveAndGet(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	repo := NewRedisCartRepository(rdb, time.Hour)

	cart := domain.NewCart("u1")
	_, err := cart.AddItem("shop-a", "Shop A", domain.CartItem{
		ProductID: "p1", SKU: "red", UnitPrice: decimal.NewFromInt(100000), Quantity: 2,
	})
	require.NoError(t, err)
	data, err := json.Marshal(cart)
	require.NoError(t, err)

	mock.ExpectSet("storefront:cart:u1", data, time.Hour).SetVal("OK")
	mock.ExpectGet("storefront:cart:u1").SetVal(string(data))

	require.NoError(t, repo.Save(context.Background(), cart))
	got, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got.Groups, 1)
	assert.Equal(t, "shop-a", got.Groups[0].ShopID)
	assert.True(t, got.Groups[0].Items[0].UnitPrice.Equal(decimal.NewFromInt(100000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCartRepository_Errors(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	repo := NewRedisCartRepository(rdb, time.Hour)

	mock.ExpectGet("storefront:cart:u1").SetErr(errors.New("connection refused"))
	_, err := repo.Get(context.Background(), "u1")
	assert.ErrorContains(t, err, "connection refused")

	mock.ExpectGet("storefront:cart:u2").SetVal("{not json")
	_, err = repo.Get(context.Background(), "u2")
	assert.ErrorContains(t, err, "decode cart")
}

func TestRedisAddressRepository(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	repo := NewRedisAddressRepository(rdb)

	mock.ExpectGet("storefront:address:u1").RedisNil()
	book, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeViewing, book.Mode)

	require.NoError(t, book.BeginAdd())
	_, err = book.Save(domain.Address{Recipient: "An", Phone: "0912345678", Line1: "1 Le Loi", City: "HCM"})
	require.NoError(t, err)
	data, err := json.Marshal(book)
	require.NoError(t, err)

	mock.ExpectSet("storefront:address:u1", data, 0).SetVal("OK")
	require.NoError(t, repo.Save(context.Background(), book))
	assert.NoError(t, mock.ExpectationsWereMet())
}
