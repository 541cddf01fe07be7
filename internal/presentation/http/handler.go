package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appOrder "github.com/stylecommerce/marketplace/internal/application/order"
	appPayment "github.com/stylecommerce/marketplace/internal/application/payment"
	domcart "github.com/stylecommerce/marketplace/internal/domain/cart"
	domcatalog "github.com/stylecommerce/marketplace/internal/domain/catalog"
	domorder "github.com/stylecommerce/marketplace/internal/domain/order"
	dompayment "github.com/stylecommerce/marketplace/internal/domain/payment"
	"github.com/stylecommerce/marketplace/internal/observability"
)

const (
	componentHTTPHandler = "http_server"
	headerUserID         = "X-User-ID"
)

type Handler struct {
	placeOrder   *appOrder.PlaceOrderUseCase
	updateStatus *appOrder.UpdateOrderStatusUseCase
	queries      *appOrder.Queries

	log observability.Logger
	tel observability.Observability
}

func NewHandler(
	placeOrder *appOrder.PlaceOrderUseCase,
	updateStatus *appOrder.UpdateOrderStatusUseCase,
	queries *appOrder.Queries,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		placeOrder:   placeOrder,
		updateStatus: updateStatus,
		queries:      queries,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(Observability(h.log, h.tel))

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.handlePlaceOrder)
		r.Get("/", h.handleOrderHistory)
		r.Get("/statuses", h.handleStatuses)
		r.Get("/{orderID}", h.handleGetOrder)
		r.Patch("/{orderID}/status", h.handleUpdateStatus)
	})
	r.Get("/health", h.handleHealth)

	return r
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type orderResponse struct {
	ID                 string              `json:"id"`
	UserID             string              `json:"user_id"`
	Items              []orderItemResponse `json:"items"`
	TotalAmount        int64               `json:"total_amount"`
	Status             domorder.Status     `json:"status"`
	FailureReason      string              `json:"failure_reason,omitempty"`
	TransactionID      string              `json:"transaction_id,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	LastStatusChangeAt time.Time           `json:"last_status_change_at"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return orderResponse{
		ID:                 o.ID,
		UserID:             o.UserID,
		Items:              items,
		TotalAmount:        o.TotalAmount,
		Status:             o.Status,
		FailureReason:      o.FailureReason,
		TransactionID:      o.TransactionID,
		CreatedAt:          o.CreatedAt,
		LastStatusChangeAt: o.LastStatusChangeAt,
	}
}

type placeOrderRequest struct {
	PaymentToken string `json:"payment_token"`
	ReturnURL    string `json:"return_url,omitempty"`
}

type placeOrderResponse struct {
	Order       orderResponse `json:"order"`
	RedirectURL string        `json:"redirect_url,omitempty"`
	Receipt     string        `json:"receipt,omitempty"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing "+headerUserID+" header"))
		return
	}

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.placeOrder.Execute(r.Context(), appOrder.PlaceOrderInput{
		UserID:       userID,
		PaymentToken: req.PaymentToken,
		ReturnURL:    req.ReturnURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := placeOrderResponse{Order: toOrderResponse(result.Order)}
	status := http.StatusCreated
	if result.Payment != nil {
		if result.Payment.Requires3DSecure {
			// Challenge pending: nothing shipped, nothing decremented.
			status = http.StatusAccepted
			resp.RedirectURL = result.Payment.RedirectURL
		} else if result.Payment.Success {
			resp.Receipt = appPayment.GenerateReceipt(result.Payment, result.Order)
		}
	}
	writeJSON(w, status, resp)
}

func (h *Handler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing "+headerUserID+" header"))
		return
	}

	orders, err := h.queries.GetOrderHistory(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.queries.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	order, err := h.updateStatus.Execute(r.Context(), appOrder.UpdateStatusInput{
		OrderID: chi.URLParam(r, "orderID"),
		Status:  req.Status,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) handleStatuses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"statuses": h.queries.AvailableStatuses()})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, domcart.ErrNotFound),
		errors.Is(err, domcatalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, appOrder.ErrEmptyCart),
		errors.Is(err, domorder.ErrInvalidStatus),
		errors.Is(err, domcart.ErrInvalidQuantity),
		errors.Is(err, domcatalog.ErrInvalidQuantity),
		errors.Is(err, dompayment.ErrTokenRequired),
		errors.Is(err, dompayment.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domcatalog.ErrInsufficientStock),
		errors.Is(err, domorder.ErrInvalidTransition),
		errors.Is(err, domorder.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, appOrder.ErrPaymentFailed):
		writeError(w, http.StatusPaymentRequired, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
