package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/pkg/httpclient"
	"storefront/internal/service/checkout/domain"
	"storefront/internal/service/checkout/domain/port"
)

// fakeQuoteServer 以店铺序号作为运费，shop-x 没有报价
type fakeQuoteServer struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeQuoteServer) GetJSON(_ context.Context, _, _ string, query url.Values, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, query["shop_id"])
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	resp := out.(*quoteResponse)
	for _, id := range query["shop_id"] {
		if id == "shop-x" {
			continue
		}
		resp.Quotes = append(resp.Quotes, quoteDTO{ShopID: id, Fee: decimal.NewFromInt(20000), Success: true, LeadTime: "2d"})
	}
	return nil
}

func TestShippingHTTPAdapter_GetQuotes(t *testing.T) {
	srv := &fakeQuoteServer{}
	a := NewShippingHTTPAdapter(srv)

	quotes, err := a.GetQuotes(context.Background(), []string{"shop-a", "shop-x", "shop-b"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "shop-a", quotes[0].ShopID)
	assert.Equal(t, "shop-b", quotes[1].ShopID)
	assert.Len(t, srv.calls, 1)
}

func TestShippingHTTPAdapter_Batches(t *testing.T) {
	srv := &fakeQuoteServer{}
	a := NewShippingHTTPAdapter(srv)

	ids := make([]string, 45)
	for i := range ids {
		ids[i] = fmt.Sprintf("shop-%02d", i)
	}
	quotes, err := a.GetQuotes(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, quotes, 45)
	for i, q := range quotes {
		assert.Equal(t, ids[i], q.ShopID, "order must follow the request")
	}
	assert.Len(t, srv.calls, 3)
}

func TestShippingHTTPAdapter_Empty(t *testing.T) {
	srv := &fakeQuoteServer{}
	quotes, err := NewShippingHTTPAdapter(srv).GetQuotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
	assert.Empty(t, srv.calls)
}

func TestShippingHTTPAdapter_Error(t *testing.T) {
	srv := &fakeQuoteServer{err: errors.New("timeout")}
	_, err := NewShippingHTTPAdapter(srv).GetQuotes(context.Background(), []string{"shop-a"})
	assert.ErrorContains(t, err, "timeout")
}

type stubQuotes struct {
	quotes []domain.ShippingQuote
	asked  [][]string
}

func (s *stubQuotes) GetQuotes(_ context.Context, shopIDs []string) ([]domain.ShippingQuote, error) {
	s.asked = append(s.asked, shopIDs)
	var out []domain.ShippingQuote
	for _, q := range s.quotes {
		for _, id := range shopIDs {
			if q.ShopID == id {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

func TestCachedShippingAdapter(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cachedQuote := domain.ShippingQuote{ShopID: "shop-a", Fee: decimal.NewFromInt(15000), Success: true}
	freshQuote := domain.ShippingQuote{ShopID: "shop-b", Fee: decimal.NewFromInt(30000), Success: true}
	failedQuote := domain.ShippingQuote{ShopID: "shop-c", Fee: decimal.NewFromInt(99999), Success: false}

	cachedJSON, _ := json.Marshal(cachedQuote)
	freshJSON, _ := json.Marshal(freshQuote)

	mock.ExpectMGet("storefront:quote:shop-a", "storefront:quote:shop-b", "storefront:quote:shop-c").
		SetVal([]interface{}{string(cachedJSON), nil, nil})
	mock.ExpectSet("storefront:quote:shop-b", freshJSON, time.Minute).SetVal("OK")

	next := &stubQuotes{quotes: []domain.ShippingQuote{freshQuote, failedQuote}}
	a := NewCachedShippingAdapter(next, rdb, time.Minute)

	quotes, err := a.GetQuotes(context.Background(), []string{"shop-a", "shop-b", "shop-c"})
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.True(t, quotes[0].Fee.Equal(decimal.NewFromInt(15000)), "served from cache")
	assert.Equal(t, "shop-b", quotes[1].ShopID)
	assert.False(t, quotes[2].Success, "failed quotes are returned but not cached")
	assert.Equal(t, [][]string{{"shop-b", "shop-c"}}, next.asked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedShippingAdapter_RedisDown(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	fresh := domain.ShippingQuote{ShopID: "shop-a", Fee: decimal.NewFromInt(1000), Success: true}
	freshJSON, _ := json.Marshal(fresh)

	mock.ExpectMGet("storefront:quote:shop-a").SetErr(errors.New("redis down"))
	mock.ExpectSet("storefront:quote:shop-a", freshJSON, time.Minute).SetErr(errors.New("redis down"))

	next := &stubQuotes{quotes: []domain.ShippingQuote{fresh}}
	quotes, err := NewCachedShippingAdapter(next, rdb, time.Minute).GetQuotes(context.Background(), []string{"shop-a"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
}

type fakePoster struct {
	path string
	body couponRequestDTO
	resp couponResponseDTO
	err  error
}

func (f *fakePoster) PostJSON(_ context.Context, _, path string, body, out any) error {
	f.path = path
	f.body = body.(couponRequestDTO)
	if f.err != nil {
		return f.err
	}
	*out.(*couponResponseDTO) = f.resp
	return nil
}

func TestPromotionHTTPAdapter(t *testing.T) {
	poster := &fakePoster{resp: couponResponseDTO{Discount: decimal.NewFromInt(50000)}}
	a := NewPromotionHTTPAdapter(poster)
	req := port.CouponRequest{UserID: "u1", CouponCode: "SALE", Subtotal: decimal.NewFromInt(200000), ShopIDs: []string{"shop-a"}}

	amount, err := a.UseCoupon(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, "/use_coupon", poster.path)
	assert.Equal(t, "SALE", poster.body.CouponCode)

	_, err = a.PreviewCoupon(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "/preview_coupon", poster.path)

	require.NoError(t, a.CancelCoupon(context.Background(), req))
	assert.Equal(t, "/cancel_coupon", poster.path)
}

func TestPromotionHTTPAdapter_ErrorMapping(t *testing.T) {
	tests := map[string]struct {
		err          error
		wantRejected bool
	}{
		"not found":    {err: &httpclient.StatusError{Code: http.StatusNotFound}, wantRejected: true},
		"threshold":    {err: &httpclient.StatusError{Code: http.StatusUnprocessableEntity}, wantRejected: true},
		"server error": {err: &httpclient.StatusError{Code: http.StatusInternalServerError}},
		"network":      {err: errors.New("connection reset")},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			a := NewPromotionHTTPAdapter(&fakePoster{err: tc.err})
			_, err := a.PreviewCoupon(context.Background(), port.CouponRequest{CouponCode: "X"})
			require.Error(t, err)
			assert.Equal(t, tc.wantRejected, errors.Is(err, port.ErrCouponRejected))
		})
	}
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Lock(context.Background(), "u2")
	require.NoError(t, err, "different keys do not block each other")
	require.NoError(t, other())

	require.NoError(t, unlock())
	require.NoError(t, unlock(), "unlock is idempotent")
	again, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, again())
	assert.Zero(t, l.size(), "released keys are removed")
}

func TestLocalLocker_PrunesKeys(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)

	acquired := make(chan func() error)
	go func() {
		next, err := l.Lock(context.Background(), "u1")
		if err != nil {
			close(acquired)
			return
		}
		acquired <- next
	}()
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.locks["u1"] != nil && l.locks["u1"].refs == 2
	}, time.Second, time.Millisecond)

	require.NoError(t, unlock())
	assert.Equal(t, 1, l.size(), "the key stays while a waiter holds it")
	next, ok := <-acquired
	require.True(t, ok)
	require.NoError(t, next())
	assert.Zero(t, l.size())

	for i := 0; i < 100; i++ {
		u, err := l.Lock(context.Background(), fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		require.NoError(t, u())
	}
	assert.Zero(t, l.size(), "one-off users leave nothing behind")

	ctx, cancel := context.WithCancel(context.Background())
	hold, err := l.Lock(context.Background(), "u2")
	require.NoError(t, err)
	cancel()
	_, err = l.Lock(ctx, "u2")
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, hold())
	assert.Zero(t, l.size(), "a cancelled waiter releases its reference")
}
