package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	c := AttachRequestIDToContext(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(c))
}

func TestRequestIDMissing(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
