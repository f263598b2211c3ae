package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
	"github.com/vladislavdragonenkov/orderengine/internal/service/orders"
)

const maxBodyBytes = 1 << 20

// OrderEngine — операции движка, которые публикует API.
type OrderEngine interface {
	CreateOrder(ctx context.Context, req orders.CreateOrderRequest) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListCustomerOrders(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
	UpdateOrder(ctx context.Context, orderID string, directives orders.UpdateDirectives, updatedBy string) (domain.Order, error)
	AddItem(ctx context.Context, orderID string, item domain.OrderItem, updatedBy string) (domain.Order, error)
	RemoveItem(ctx context.Context, orderID, productID, updatedBy string) (domain.Order, error)
	UpdateItemQuantity(ctx context.Context, orderID, itemID string, quantity int, updatedBy string) (domain.Order, error)
	ApplyDiscount(ctx context.Context, req orders.DiscountRequest) (decimal.Decimal, error)
	ProcessPayment(ctx context.Context, req orders.PaymentRequest) (bool, error)
	ValidateOrder(ctx context.Context, req orders.ValidationRequest) (bool, []string, error)
	CalculateShipping(req orders.ShippingRequest) (domain.ShippingQuote, error)
	Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error)
}

// Handler переводит HTTP-запросы в вызовы движка.
type Handler struct {
	engine OrderEngine
	logger *log.Entry
}

// NewHandler создаёт Handler; nil logger заменяется компонентным.
func NewHandler(engine OrderEngine, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{engine: engine, logger: logger}
}

// updateOrderRequest — директивы обновления плюс автор изменения.
// Ключи, которых нет в теле, остаются незаданными.
type updateOrderRequest struct {
	orders.UpdateDirectives
	UpdatedBy string `json:"updated_by"`
}

type addItemRequest struct {
	Item      domain.OrderItem `json:"item"`
	UpdatedBy string           `json:"updated_by"`
}

type updateQuantityRequest struct {
	Quantity  int    `json:"quantity"`
	UpdatedBy string `json:"updated_by"`
}

type discountResponse struct {
	OrderID        string          `json:"order_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type paymentResponse struct {
	OrderID string `json:"order_id"`
	Paid    bool   `json:"paid"`
}

type validationResponse struct {
	OrderID    string   `json:"order_id"`
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}

type timelineResponse struct {
	OrderID string                 `json:"order_id"`
	Events  []domain.TimelineEvent `json:"events"`
}

type listOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// CreateOrder — POST /v1/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.engine.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// GetOrder — GET /v1/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.engine.GetOrder(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ListCustomerOrders — GET /v1/customers/{id}/orders?limit=N.
func (h *Handler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, r, domain.InvalidArgument("limit", "must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	list, err := h.engine.ListCustomerOrders(r.Context(), pathParam(r, "id"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: list})
}

// UpdateOrder — PATCH /v1/orders/{id}.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.engine.UpdateOrder(r.Context(), pathParam(r, "id"), req.UpdateDirectives, req.UpdatedBy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// AddItem — POST /v1/orders/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.engine.AddItem(r.Context(), pathParam(r, "id"), req.Item, req.UpdatedBy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// RemoveItem — DELETE /v1/orders/{id}/items/{productId}?updated_by=...
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	updatedBy := r.URL.Query().Get("updated_by")

	order, err := h.engine.RemoveItem(r.Context(), pathParam(r, "id"), pathParam(r, "productId"), updatedBy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateItemQuantity — PUT /v1/orders/{id}/items/{itemId}/quantity.
func (h *Handler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.engine.UpdateItemQuantity(r.Context(), pathParam(r, "id"), pathParam(r, "itemId"), req.Quantity, req.UpdatedBy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ApplyDiscount — POST /v1/orders/{id}/discounts.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req orders.DiscountRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.OrderID = pathParam(r, "id")

	amount, err := h.engine.ApplyDiscount(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, discountResponse{OrderID: req.OrderID, DiscountAmount: amount})
}

// ProcessPayment — POST /v1/orders/{id}/payments. Отказ шлюза — это 200 с paid=false.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req orders.PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.OrderID = pathParam(r, "id")

	paid, err := h.engine.ProcessPayment(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse{OrderID: req.OrderID, Paid: paid})
}

// ValidateOrder — POST /v1/orders/{id}/validate, проверяет сохранённый заказ.
func (h *Handler) ValidateOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.ValidationRequest
	if !h.decode(w, r, &req) {
		return
	}

	orderID := pathParam(r, "id")
	order, err := h.engine.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req.Order = &order

	valid, violations, err := h.engine.ValidateOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if violations == nil {
		violations = []string{}
	}
	writeJSON(w, http.StatusOK, validationResponse{OrderID: orderID, Valid: valid, Violations: violations})
}

// Timeline — GET /v1/orders/{id}/timeline.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	orderID := pathParam(r, "id")
	events, err := h.engine.Timeline(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, timelineResponse{OrderID: orderID, Events: events})
}

// CalculateShipping — POST /v1/shipping/quote.
func (h *Handler) CalculateShipping(w http.ResponseWriter, r *http.Request) {
	var req orders.ShippingRequest
	if !h.decode(w, r, &req) {
		return
	}

	quote, err := h.engine.CalculateShipping(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// decode читает JSON-тело; при ошибке отвечает 400 и возвращает false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: codeInvalidJSON, Message: err.Error()})
		return false
	}
	return true
}

func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
