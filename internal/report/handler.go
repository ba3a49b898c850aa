package report

import (
	"net/http"

	"eshop-be/internal/logger"
	"eshop-be/internal/order"
	"eshop-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Routes serves /totalsales, /count and /userorders/{userId}; it is mounted
// under /orders/get.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/totalsales", h.TotalSales)
	r.Get("/count", h.Count)
	r.Get("/userorders/{userId}", h.UserOrders)
	return r
}

func (h *Handler) TotalSales(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.TotalSales(r.Context())
	if err != nil {
		h.fail(w, r, "the order sales cannot be generated", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"totalsales": order.Money(total)})
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.OrderCount(r.Context())
	if err != nil {
		h.fail(w, r, "the order count cannot be generated", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"orderCount": n})
}

func (h *Handler) UserOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		utils.WriteJSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}

	orders, err := h.svc.UserOrders(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "the user orders cannot be loaded", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, order.ToOrderResponses(orders))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.FromCtx(r.Context()).Error("report failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	utils.WriteJSONError(w, msg, http.StatusInternalServerError)
}
