package order

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"eshop-be/internal/inventory"
	"eshop-be/internal/logger"
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

// Register mounts the order routes on r. deleteGuard wraps the delete route
// (authentication); nil leaves it open.
func (h *Handler) Register(r chi.Router, deleteGuard func(http.Handler) http.Handler) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.UpdateStatus)

	if deleteGuard != nil {
		r.With(deleteGuard).Delete("/{id}", h.Delete)
	} else {
		r.Delete("/{id}", h.Delete)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, sort, err := parseListQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	orders, err := h.svc.ListOrders(r.Context(), filter, sort)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, ToOrderResponses(orders))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, ErrOrderNotFound)
		return
	}

	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, ToOrderResponse(o))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := DecodePlaceOrderRequest(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.svc.PlaceOrder(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, ToOrderResponse(o))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, ErrOrderNotFound)
		return
	}

	status, err := DecodeUpdateStatusRequest(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.svc.UpdateOrderStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, ToOrderResponse(o))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeDeleteNotFound(w)
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			writeDeleteNotFound(w)
			return
		}
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "the order is deleted!",
	})
}

func writeDeleteNotFound(w http.ResponseWriter) {
	utils.WriteJSON(w, http.StatusNotFound, map[string]any{
		"success": false,
		"message": "order not found!",
	})
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// StatusCode maps a domain error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, inventory.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)

	msg := err.Error()
	if code == http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal server error"
	}

	utils.WriteJSONError(w, msg, code)
}

const dateOnly = "2006-01-02"

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateOnly, s)
}

// parseListQuery reads ?status=&user=&from=&to=&sort=&dir=.
func parseListQuery(r *http.Request) (ListFilter, ListSort, error) {
	q := r.URL.Query()
	var filter ListFilter
	var bad []string

	if v := q.Get("status"); v != "" {
		status := ParseStatus(v)
		if status.IsValid() {
			filter.Status = &status
		} else {
			bad = append(bad, "status")
		}
	}

	if v := q.Get("user"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.UserID = &id
		} else {
			bad = append(bad, "user")
		}
	}

	if v := q.Get("from"); v != "" {
		if t, err := parseTime(v); err == nil {
			filter.DateFrom = &t
		} else {
			bad = append(bad, "from")
		}
	}

	if v := q.Get("to"); v != "" {
		t, err := parseTime(v)
		switch {
		case err != nil:
			bad = append(bad, "to")
		case len(v) == len(dateOnly):
			// a bare date includes the whole day
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.DateTo = &end
		default:
			filter.DateTo = &t
		}
	}

	sort := ListSort{Field: SortFieldDateOrdered, Direction: SortDirectionDesc}
	switch SortField(q.Get("sort")) {
	case "", SortFieldDateOrdered:
	case SortFieldTotalPrice:
		sort.Field = SortFieldTotalPrice
	default:
		bad = append(bad, "sort")
	}

	switch SortDirection(strings.ToUpper(q.Get("dir"))) {
	case "", SortDirectionDesc:
	case SortDirectionAsc:
		sort.Direction = SortDirectionAsc
	default:
		bad = append(bad, "dir")
	}

	if len(bad) > 0 {
		return ListFilter{}, ListSort{}, &ValidationError{Fields: bad}
	}
	return filter, sort, nil
}
