package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsContactData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/admin/students"),
		attribute.String("parent_phone", "+9607000000"),
		attribute.String("password", "secret"),
	)

	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorUnwrapsNothing(t *testing.T) {
	inner := errors.New("boom")
	err := SafeError(fmt.Errorf("settle: %w", inner))

	assert.EqualError(t, err, "settle: boom")
	assert.False(t, errors.Is(err, inner))
	assert.Nil(t, SafeError(nil))
}
