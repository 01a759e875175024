// internal/service/checkout/domain/state.go
package domain

// OrderState 定义了订单的生命周期状态
type OrderState string

const (
	StateCreated        OrderState = "CREATED"         // 订单已生成，尚未持久化确认
	StatePendingPayment OrderState = "PENDING_PAYMENT" // 资源已预占，等待用户支付
	StatePaid           OrderState = "PAID"            // 已支付
	StateCancelled      OrderState = "CANCELLED"       // 已取消 (用户主动或系统超时)
	StateFailed         OrderState = "FAILED"          // 下单流程失败
)
