package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"storefront/internal/pkg/constants"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/shipping/domain"
)

// QuoteUseCases 是 shipping 服务对外提供的用例
type QuoteUseCases interface {
	GetQuotes(ctx context.Context, shopIDs []string) []domain.Quote
}

type ShippingHandler struct {
	service QuoteUseCases
}

func NewShippingHandler(service QuoteUseCases) *ShippingHandler {
	return &ShippingHandler{service: service}
}

func (h *ShippingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+constants.ShippingGetQuotePath, h.handleGetQuote)
}

type quoteResponse struct {
	Quotes []domain.Quote `json:"quotes"`
}

// handleGetQuote 接受重复的 shop_id 参数，也接受逗号分隔的写法
func (h *ShippingHandler) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	var shopIDs []string
	for _, v := range r.URL.Query()["shop_id"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				shopIDs = append(shopIDs, id)
			}
		}
	}
	if len(shopIDs) == 0 {
		http.Error(w, "shop_id is required", http.StatusBadRequest)
		return
	}

	quotes := h.service.GetQuotes(r.Context(), shopIDs)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(quoteResponse{Quotes: quotes}); err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("failed to write quote response")
	}
}
