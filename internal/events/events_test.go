package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudarma/go-commerce-bus/internal/errs"
	"github.com/sudarma/go-commerce-bus/internal/events"
)

func TestDecodeOrderCreated(t *testing.T) {
	ev, err := events.DecodeOrderCreated([]byte(
		`{"orderId":"o1","userId":"u1","items":[{"productId":"p1","quantity":2}],"totalAmount":"39.98"}`))
	require.NoError(t, err)
	assert.Equal(t, "o1", ev.OrderID)
	assert.Equal(t, "39.98", ev.TotalAmount.StringFixed(2))
	require.Len(t, ev.Items, 1)
	assert.Equal(t, 2, ev.Items[0].Quantity)
}

func TestDecodeRejectsUnknownField(t *testing.T) {
	_, err := events.DecodeProductUpdated([]byte(`{"productId":"p1","surprise":1}`))
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestDecodeRejectsMissingRequiredField(t *testing.T) {
	cases := []struct {
		name   string
		decode func() error
	}{
		{"order-created no items", func() error {
			_, err := events.DecodeOrderCreated([]byte(`{"orderId":"o1","userId":"u1","items":[],"totalAmount":"0"}`))
			return err
		}},
		{"order-created zero quantity", func() error {
			_, err := events.DecodeOrderCreated([]byte(`{"orderId":"o1","userId":"u1","items":[{"productId":"p1","quantity":0}],"totalAmount":"0"}`))
			return err
		}},
		{"product-deleted empty", func() error {
			_, err := events.DecodeProductDeleted([]byte(`{}`))
			return err
		}},
		{"stock-adjustment no product", func() error {
			_, err := events.DecodeStockAdjustment([]byte(`{"adjustment":3}`))
			return err
		}},
		{"reconciliation negative count", func() error {
			_, err := events.DecodeInventoryReconciliation([]byte(`{"productId":"p1","actualStock":-1,"systemStock":0}`))
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.decode()
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err), "got %v", err)
		})
	}
}

func TestProductUpdatedOptionalFields(t *testing.T) {
	ev, err := events.DecodeProductUpdated([]byte(`{"productId":"p1","price":"12.00"}`))
	require.NoError(t, err)
	require.NotNil(t, ev.Price)
	assert.Nil(t, ev.Stock)
	assert.Nil(t, ev.Name)

	ev, err = events.DecodeProductUpdated([]byte(`{"productId":"p1","stock":0}`))
	require.NoError(t, err)
	require.NotNil(t, ev.Stock)
	assert.Equal(t, 0, *ev.Stock)
	assert.Nil(t, ev.Price)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := events.DecodeProductDeleted([]byte(`{"productId":`))
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}
