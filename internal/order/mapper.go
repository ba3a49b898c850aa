package order

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type ProductResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Brand string `json:"brand,omitempty"`
}

type OrderItemResponse struct {
	ID        string          `json:"id"`
	Product   ProductResponse `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice json.Number     `json:"unitPrice"`
	Subtotal  json.Number     `json:"subtotal"`
}

type UserResponse struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type OrderResponse struct {
	ID               string              `json:"id"`
	OrderItems       []OrderItemResponse `json:"orderItems"`
	ShippingAddress1 string              `json:"shippingAddress1"`
	ShippingAddress2 string              `json:"shippingAddress2,omitempty"`
	City             string              `json:"city"`
	Zip              string              `json:"zip"`
	Country          string              `json:"country"`
	Phone            string              `json:"phone"`
	Status           OrderStatus         `json:"status"`
	TotalPrice       json.Number         `json:"totalPrice"`
	User             UserResponse        `json:"user"`
	DateOrdered      time.Time           `json:"dateOrdered"`
}

// Money renders an amount as a bare JSON number.
func Money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func ToOrderItemResponse(i OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID: i.ID.String(),
		Product: ProductResponse{
			ID:    i.ProductID.String(),
			Name:  i.ProductName,
			Brand: i.BrandName,
		},
		Quantity:  i.Quantity,
		UnitPrice: Money(i.UnitPrice),
		Subtotal:  Money(i.Subtotal()),
	}
}

func ToOrderResponse(o *Order) *OrderResponse {
	if o == nil {
		return nil
	}

	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ToOrderItemResponse(item))
	}

	return &OrderResponse{
		ID:               o.ID.String(),
		OrderItems:       items,
		ShippingAddress1: o.ShippingAddress1,
		ShippingAddress2: o.ShippingAddress2,
		City:             o.City,
		Zip:              o.Zip,
		Country:          o.Country,
		Phone:            o.Phone,
		Status:           o.Status,
		TotalPrice:       Money(o.TotalPrice),
		User:             UserResponse{ID: o.UserID.String(), Name: o.UserName},
		DateOrdered:      o.DateOrdered,
	}
}

func ToOrderResponses(orders []*Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, ToOrderResponse(o))
	}
	return out
}
