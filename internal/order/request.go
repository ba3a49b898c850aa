package order

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"
)

const (
	maxRequestBody = 1 << 20
	// MaxItemQuantity is the largest quantity the INTEGER stock columns hold.
	MaxItemQuantity = math.MaxInt32
)

// PlaceOrderRequest is the wire shape of POST /orders.
type PlaceOrderRequest struct {
	OrderItems       []PlaceOrderItemRequest `json:"orderItems"`
	ShippingAddress1 string                  `json:"shippingAddress1"`
	ShippingAddress2 string                  `json:"shippingAddress2"`
	City             string                  `json:"city"`
	Zip              string                  `json:"zip"`
	Country          string                  `json:"country"`
	Phone            string                  `json:"phone"`
	Status           string                  `json:"status"`
	User             string                  `json:"user"`
}

type PlaceOrderItemRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type LineItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput is a validated placement request.
type PlaceOrderInput struct {
	Items            []LineItemInput
	ShippingAddress1 string
	ShippingAddress2 string
	City             string
	Zip              string
	Country          string
	Phone            string
	Status           OrderStatus
	UserID           uuid.UUID
}

// DecodePlaceOrderRequest reads and validates a placement body. A body that
// is not JSON, or has a field of the wrong type (orderItems not a list,
// quantity not a number), is a malformed request.
func DecodePlaceOrderRequest(r io.Reader) (PlaceOrderInput, error) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(io.LimitReader(r, maxRequestBody)).Decode(&req); err != nil {
		return PlaceOrderInput{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return req.ToInput()
}

func (req PlaceOrderRequest) ToInput() (PlaceOrderInput, error) {
	in := PlaceOrderInput{
		Items:            make([]LineItemInput, 0, len(req.OrderItems)),
		ShippingAddress1: strings.TrimSpace(req.ShippingAddress1),
		ShippingAddress2: strings.TrimSpace(req.ShippingAddress2),
		City:             strings.TrimSpace(req.City),
		Zip:              strings.TrimSpace(req.Zip),
		Country:          strings.TrimSpace(req.Country),
		Phone:            strings.TrimSpace(req.Phone),
		Status:           ParseStatus(req.Status),
		UserID:           parseUUIDOrNil(req.User),
	}

	for _, item := range req.OrderItems {
		in.Items = append(in.Items, LineItemInput{
			ProductID: parseUUIDOrNil(item.Product),
			Quantity:  item.Quantity,
		})
	}

	if err := in.Validate(); err != nil {
		return PlaceOrderInput{}, err
	}
	return in, nil
}

// Validate reports every missing or invalid field at once.
func (in PlaceOrderInput) Validate() error {
	var fields []string

	if len(in.Items) == 0 {
		fields = append(fields, "orderItems")
	}
	for i, item := range in.Items {
		if item.ProductID == uuid.Nil {
			fields = append(fields, fmt.Sprintf("orderItems[%d].product", i))
		}
		if item.Quantity <= 0 || item.Quantity > MaxItemQuantity {
			fields = append(fields, fmt.Sprintf("orderItems[%d].quantity", i))
		}
	}

	required := []struct {
		name  string
		value string
	}{
		{"shippingAddress1", in.ShippingAddress1},
		{"city", in.City},
		{"zip", in.Zip},
		{"country", in.Country},
		{"phone", in.Phone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			fields = append(fields, f.name)
		}
	}

	if !in.Status.IsValid() {
		fields = append(fields, "status")
	}
	if in.UserID == uuid.Nil {
		fields = append(fields, "user")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func DecodeUpdateStatusRequest(r io.Reader) (OrderStatus, error) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(io.LimitReader(r, maxRequestBody)).Decode(&req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	status := ParseStatus(req.Status)
	if !status.IsValid() {
		return "", &ValidationError{Fields: []string{"status"}}
	}
	return status, nil
}

func ParseStatus(s string) OrderStatus {
	return OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
}

func parseUUIDOrNil(s string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil
	}
	return id
}
