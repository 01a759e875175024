package domain

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type stubRules struct {
	ok  bool
	err error
}

func (s stubRules) Evaluate(string, Fact) (bool, error) { return s.ok, s.err }

var now = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newCoupon(t *CouponTemplate) *UserCoupon {
	return &UserCoupon{
		ID:         1,
		CouponCode: "SALE50",
		UserID:     "u1",
		Status:     StatusUnused,
		ValidFrom:  now.Add(-24 * time.Hour),
		ValidTo:    now.Add(24 * time.Hour),
		Template:   t,
	}
}

func fixed(value, threshold int64) *CouponTemplate {
	return &CouponTemplate{TemplateCode: "T1", Type: CouponTypeFixedAmount, DiscountValue: d(value), ThresholdAmount: d(threshold)}
}

func TestCouponTemplate_Discount(t *testing.T) {
	tests := map[string]struct {
		tmpl     CouponTemplate
		subtotal int64
		want     string
	}{
		"fixed":                {tmpl: CouponTemplate{Type: CouponTypeFixedAmount, DiscountValue: d(50000)}, subtotal: 200000, want: "50000"},
		"fixed clamped":        {tmpl: CouponTemplate{Type: CouponTypeFixedAmount, DiscountValue: d(50000)}, subtotal: 30000, want: "30000"},
		"percentage":           {tmpl: CouponTemplate{Type: CouponTypePercentage, DiscountValue: d(10)}, subtotal: 200000, want: "20000"},
		"percentage capped":    {tmpl: CouponTemplate{Type: CouponTypePercentage, DiscountValue: d(50), MaxDiscount: d(30000)}, subtotal: 200000, want: "30000"},
		"percentage uncapped":  {tmpl: CouponTemplate{Type: CouponTypePercentage, DiscountValue: d(50)}, subtotal: 200000, want: "100000"},
		"negative value":       {tmpl: CouponTemplate{Type: CouponTypeFixedAmount, DiscountValue: d(-10)}, subtotal: 200000, want: "0"},
		"zero subtotal":        {tmpl: CouponTemplate{Type: CouponTypeFixedAmount, DiscountValue: d(10)}, subtotal: 0, want: "0"},
		"unknown type":         {tmpl: CouponTemplate{Type: "FREEBIE", DiscountValue: d(10)}, subtotal: 200000, want: "0"},
		"percentage fractions": {tmpl: CouponTemplate{Type: CouponTypePercentage, DiscountValue: d(15)}, subtotal: 333, want: "49.95"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := tc.tmpl.Discount(d(tc.subtotal))
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
		})
	}
}

func TestUserCoupon_CanUse(t *testing.T) {
	fact := Fact{UserID: "u1", Subtotal: d(200000), ShopIDs: []string{"shop-a"}, ItemCount: 2}

	tests := map[string]struct {
		mutate  func(c *UserCoupon)
		fact    Fact
		rules   RuleEngine
		wantErr error
		want    int64
	}{
		"usable":          {fact: fact, want: 50000},
		"frozen":          {mutate: func(c *UserCoupon) { c.Status = StatusFrozen }, fact: fact, wantErr: ErrCouponAlreadyUsed},
		"used":            {mutate: func(c *UserCoupon) { c.Status = StatusUsed }, fact: fact, wantErr: ErrCouponAlreadyUsed},
		"expired status":  {mutate: func(c *UserCoupon) { c.Status = StatusExpired }, fact: fact, wantErr: ErrCouponExpired},
		"past valid_to":   {mutate: func(c *UserCoupon) { c.ValidTo = now.Add(-time.Minute) }, fact: fact, wantErr: ErrCouponExpired},
		"not yet valid":   {mutate: func(c *UserCoupon) { c.ValidFrom = now.Add(time.Minute) }, fact: fact, wantErr: ErrCouponExpired},
		"no expiry":       {mutate: func(c *UserCoupon) { c.ValidTo = time.Time{} }, fact: fact, want: 50000},
		"other user":      {fact: Fact{UserID: "u2", Subtotal: d(200000)}, wantErr: ErrCouponNotOwned},
		"below threshold": {fact: Fact{UserID: "u1", Subtotal: d(99999)}, wantErr: ErrThresholdNotMet},
		"shop scope miss": {
			mutate:  func(c *UserCoupon) { c.Template.ShopIDs = []string{"shop-z"} },
			fact:    fact,
			wantErr: ErrCouponNotApplicable,
		},
		"shop scope hit": {
			mutate: func(c *UserCoupon) { c.Template.ShopIDs = []string{"shop-z", "shop-a"} },
			fact:   fact,
			want:   50000,
		},
		"rule false": {
			mutate:  func(c *UserCoupon) { c.Template.RuleExpression = "item_count > 5" },
			fact:    fact,
			rules:   stubRules{ok: false},
			wantErr: ErrCouponNotApplicable,
		},
		"rule true": {
			mutate: func(c *UserCoupon) { c.Template.RuleExpression = "item_count > 1" },
			fact:   fact,
			rules:  stubRules{ok: true},
			want:   50000,
		},
		"no template": {mutate: func(c *UserCoupon) { c.Template = nil }, fact: fact, wantErr: ErrCouponNotApplicable},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := newCoupon(fixed(50000, 100000))
			if tc.mutate != nil {
				tc.mutate(c)
			}
			got, err := c.CanUse(tc.fact, now, tc.rules)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tc.want)), "got %s", got)
		})
	}
}

func TestUserCoupon_CanUseRuleError(t *testing.T) {
	c := newCoupon(fixed(50000, 0))
	c.Template.RuleExpression = "subtotal >"
	_, err := c.CanUse(Fact{UserID: "u1", Subtotal: d(1000)}, now, stubRules{err: errors.New("syntax error")})
	assert.ErrorContains(t, err, "syntax error")
}

func TestUserCoupon_Lifecycle(t *testing.T) {
	c := newCoupon(fixed(50000, 0))

	require.NoError(t, c.Freeze("o1"))
	assert.Equal(t, StatusFrozen, c.Status)
	assert.Equal(t, "o1", c.OrderID)
	assert.ErrorIs(t, c.Freeze("o2"), ErrCouponStatusInvalid)

	_, err := c.Unfreeze("o2")
	assert.ErrorIs(t, err, ErrCouponStatusInvalid, "another order cannot release the coupon")

	changed, err := c.Unfreeze("o1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusUnused, c.Status)
	assert.Empty(t, c.OrderID)

	changed, err = c.Unfreeze("o1")
	require.NoError(t, err, "release is idempotent")
	assert.False(t, changed)

	require.NoError(t, c.Freeze("o3"))
	changed, err = c.Confirm("o3", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusUsed, c.Status)
	require.NotNil(t, c.UsedAt)

	changed, err = c.Confirm("o3", now)
	require.NoError(t, err, "confirm is idempotent")
	assert.False(t, changed)

	_, err = c.Confirm("o4", now)
	assert.ErrorIs(t, err, ErrCouponAlreadyUsed)
	_, err = c.Unfreeze("o3")
	assert.ErrorIs(t, err, ErrCouponStatusInvalid, "used coupons are never released")
}

func TestUserCoupon_ConfirmRequiresFreeze(t *testing.T) {
	c := newCoupon(fixed(1, 0))
	_, err := c.Confirm("o1", now)
	assert.ErrorIs(t, err, ErrCouponStatusInvalid)
}
