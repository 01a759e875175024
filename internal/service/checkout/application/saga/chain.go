package saga

// BuildPlaceOrderChain 按顺序连接下单流程的所有处理器
func BuildPlaceOrderChain() Handler {
	chain := new(LockHandler)
	chain.SetNext(new(SelectionHandler)).
		SetNext(new(QuoteHandler)).
		SetNext(new(CouponHandler)).
		SetNext(new(PersistHandler)).
		SetNext(new(PublishHandler)).
		SetNext(new(CartCleanupHandler))
	return chain
}
