package order

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePlaceOrderRequest(t *testing.T) {
	p1, p2, userID := uuid.New(), uuid.New(), uuid.New()

	t.Run("Valid body keeps item order and trims fields", func(t *testing.T) {
		body := `{
			"orderItems": [
				{"product": "` + p1.String() + `", "quantity": 1},
				{"product": "` + p2.String() + `", "quantity": 3}
			],
			"shippingAddress1": "  Street 1 ",
			"shippingAddress2": "",
			"city": "Berlin",
			"zip": "10115",
			"country": "DE",
			"phone": "+49",
			"status": " processing",
			"user": "` + userID.String() + `"
		}`

		in, err := DecodePlaceOrderRequest(strings.NewReader(body))

		require.NoError(t, err)
		require.Len(t, in.Items, 2)
		assert.Equal(t, LineItemInput{ProductID: p1, Quantity: 1}, in.Items[0])
		assert.Equal(t, LineItemInput{ProductID: p2, Quantity: 3}, in.Items[1])
		assert.Equal(t, "Street 1", in.ShippingAddress1)
		assert.Equal(t, StatusProcessing, in.Status)
		assert.Equal(t, userID, in.UserID)
	})

	t.Run("Every invalid field is reported", func(t *testing.T) {
		body := `{
			"orderItems": [{"product": "nope", "quantity": 0}],
			"shippingAddress1": "Street 1",
			"zip": "10115",
			"country": "DE",
			"phone": " ",
			"status": "LOST",
			"user": "` + userID.String() + `"
		}`

		_, err := DecodePlaceOrderRequest(strings.NewReader(body))

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ErrorIs(t, err, ErrMalformedRequest)
		assert.Equal(t, []string{
			"orderItems[0].product",
			"orderItems[0].quantity",
			"city",
			"phone",
			"status",
		}, verr.Fields)
	})

	t.Run("Quantity beyond the stock column range", func(t *testing.T) {
		body := `{
			"orderItems": [{"product": "` + p1.String() + `", "quantity": 2147483648}],
			"shippingAddress1": "Street 1",
			"city": "Berlin",
			"zip": "10115",
			"country": "DE",
			"phone": "+49",
			"status": "PENDING",
			"user": "` + userID.String() + `"
		}`

		_, err := DecodePlaceOrderRequest(strings.NewReader(body))

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ErrorIs(t, err, ErrMalformedRequest)
		assert.Equal(t, []string{"orderItems[0].quantity"}, verr.Fields)
	})

	t.Run("Scalar where a list belongs", func(t *testing.T) {
		_, err := DecodePlaceOrderRequest(strings.NewReader(`{"orderItems": 5}`))

		assert.ErrorIs(t, err, ErrMalformedRequest)
	})

	t.Run("Missing items", func(t *testing.T) {
		_, err := PlaceOrderRequest{City: "Berlin"}.ToInput()

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "orderItems")
		assert.Contains(t, verr.Fields, "user")
	})
}

func TestDecodeUpdateStatusRequest(t *testing.T) {
	status, err := DecodeUpdateStatusRequest(strings.NewReader(`{"status":"delivered"}`))
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, status)

	_, err = DecodeUpdateStatusRequest(strings.NewReader(`{"status":""}`))
	assert.ErrorIs(t, err, ErrMalformedRequest)

	_, err = DecodeUpdateStatusRequest(strings.NewReader(`[]`))
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestOrderStatus_IsValid(t *testing.T) {
	for _, s := range []OrderStatus{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, OrderStatus("pending").IsValid())
	assert.False(t, OrderStatus("").IsValid())
}
