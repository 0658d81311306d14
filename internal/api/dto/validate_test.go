package dto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, 400, domainErr.HTTPStatus)
	return domainErr.Fields
}

func TestValidateRegisterRequest(t *testing.T) {
	fields := fieldErrors(t, Validate(&RegisterRequest{Username: "ab", Email: "nope", Password: "123"}))
	assert.Equal(t, "must be at least 3 characters", fields["username"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 6 characters", fields["password"])

	assert.NoError(t, Validate(&RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret"}))
}

func TestValidateLoginAcceptsEitherIdentifier(t *testing.T) {
	assert.NoError(t, Validate(&LoginRequest{Username: "alice", Password: "x"}))
	assert.NoError(t, Validate(&LoginRequest{Email: "alice@example.com", Password: "x"}))

	fields := fieldErrors(t, Validate(&LoginRequest{Password: "x"}))
	assert.Equal(t, "is required", fields["username"])
	assert.Equal(t, "alice@example.com", LoginRequest{Email: "alice@example.com"}.Identifier())
}

func TestValidateOrderUsesNestedPaths(t *testing.T) {
	req := CreateOrderRequest{
		DeliveryAddress: "221B Baker Street",
		ContactNumber:   "0123456789",
		Items: []OrderItemRequest{{
			Pizza:    PizzaConfigRequest{BaseID: "b", SauceID: "0b6c2a8e-3f5d-4c1a-9e7b-2d4f6a8c0e1f", Size: "huge"},
			Price:    0,
			Quantity: 0,
		}},
	}
	fields := fieldErrors(t, Validate(&req))
	assert.Equal(t, "must be a valid id", fields["items[0].pizza.base_id"])
	assert.NotContains(t, fields, "items[0].pizza.sauce_id")
	assert.Contains(t, fields, "items[0].pizza.cheese_id")
	assert.Contains(t, fields, "items[0].pizza.size")
	assert.Equal(t, "must be greater than 0", fields["items[0].price"])
	assert.Equal(t, "must be at least 1", fields["items[0].quantity"])

	fields = fieldErrors(t, Validate(&CreateOrderRequest{DeliveryAddress: "221B Baker Street", ContactNumber: "0123456789"}))
	assert.Equal(t, "is required", fields["items"])
}
