package infrastructure

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront/internal/service/promotion/domain"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestGormCouponRepository_FindByCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormCouponRepository(db)
	validTo := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `user_coupon` WHERE coupon_code = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "coupon_code", "user_id", "template_id", "status", "order_id", "valid_from", "valid_to", "used_at"}).
			AddRow(7, "SALE50", "u1", 3, "FROZEN", "o1", time.Time{}, validTo, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `coupon_template`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "template_code", "name", "type", "discount_value", "threshold_amount", "max_discount", "shop_ids", "rule_expression"}).
			AddRow(3, "T50", "Giảm 50k", "FIXED_AMOUNT", "50000", "100000", "0", "shop-a, shop-b", "item_count >= 1"))

	got, err := repo.FindByCode(context.Background(), "SALE50")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, domain.StatusFrozen, got.Status)
	assert.Equal(t, "o1", got.OrderID)
	assert.Nil(t, got.UsedAt)
	assert.True(t, got.ValidTo.Equal(validTo))
	require.NotNil(t, got.Template)
	assert.Equal(t, domain.CouponTypeFixedAmount, got.Template.Type)
	assert.True(t, got.Template.DiscountValue.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, []string{"shop-a", "shop-b"}, got.Template.ShopIDs)
	assert.Equal(t, "item_count >= 1", got.Template.RuleExpression)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCouponRepository_FindByCodeNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormCouponRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `user_coupon`")).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByCode(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrCouponNotFound)
}

func TestGormCouponRepository_FindByCodeError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormCouponRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `user_coupon`")).WillReturnError(errors.New("connection refused"))

	_, err := repo.FindByCode(context.Background(), "SALE50")
	assert.ErrorContains(t, err, "connection refused")
	assert.NotErrorIs(t, err, domain.ErrCouponNotFound)
}

func TestGormCouponRepository_Save(t *testing.T) {
	tests := map[string]struct {
		affected int64
		wantErr  error
	}{
		"updated":        {affected: 1},
		"status changed": {affected: 0, wantErr: domain.ErrCouponStatusInvalid},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewGormCouponRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta("UPDATE `user_coupon` SET")).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))
			mock.ExpectCommit()

			coupon := &domain.UserCoupon{ID: 7, CouponCode: "SALE50", Status: domain.StatusFrozen, OrderID: "o1"}
			err := repo.Save(context.Background(), coupon, domain.StatusUnused)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMapper_EmptyShopScope(t *testing.T) {
	tmpl := ToDomainCouponTemplate(&CouponTemplateModel{ShopIDs: ""})
	assert.Nil(t, tmpl.ShopIDs, "empty scope means every shop")
	assert.True(t, tmpl.AppliesToShops([]string{"any"}))
}
