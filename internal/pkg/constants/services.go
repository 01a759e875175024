// internal/pkg/constants/services.go
package constants

// 服务名，用于 Nacos 注册/发现和 span 命名
const (
	CheckoutService  = "checkout-service"
	ShippingService  = "shipping-service"
	PromotionService = "promotion-service"
)

// 下游接口路径
const (
	ShippingGetQuotePath = "/get_quote"

	PromotionPreviewCouponPath = "/preview_coupon"
	PromotionUseCouponPath     = "/use_coupon"
	PromotionCancelCouponPath  = "/cancel_coupon"
	PromotionConfirmCouponPath = "/confirm_coupon"
)

// Kafka 消费者组
const (
	PromotionOrderEventsGroup   = "promotion-order-events"
	CheckoutPaymentTimeoutGroup = "checkout-payment-timeout"
)
