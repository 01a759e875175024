package domain

import "github.com/pkg/errors"

// 购物车与结算相关的领域错误，接口层据此映射 HTTP 状态码
var (
	ErrInvalidItem       = errors.New("invalid cart item")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrItemNotFound      = errors.New("cart item not found")
	ErrShopNotFound      = errors.New("shop not found in cart")
	ErrNothingSelected   = errors.New("no items selected for checkout")
	ErrNoAddressSelected = errors.New("no shipping address selected")
	ErrAddressNotFound   = errors.New("address not found")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidTransition = errors.New("invalid address book transition")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidOrderState = errors.New("invalid order state transition")
)
