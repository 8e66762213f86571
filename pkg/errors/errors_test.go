package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeForStatus(t *testing.T) {
	tests := []struct {
		status    int
		want      ErrorType
		retryable bool
	}{
		{0, ErrorTypeNetwork, true},
		{400, ErrorTypeRejected, false},
		{401, ErrorTypeAuth, false},
		{403, ErrorTypeAuth, false},
		{404, ErrorTypeNotFound, false},
		{429, ErrorTypeRateLimit, true},
		{502, ErrorTypeServerError, true},
		{200, ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		got := TypeForStatus(tt.status)
		assert.Equal(t, tt.want, got, "status %d", tt.status)
		assert.Equal(t, tt.retryable, IsRetryable(got), "status %d", tt.status)
		assert.Equal(t, tt.retryable, IsRetryableStatusCode(tt.status), "status %d", tt.status)
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeRejected, 400, "unfollow of %s refused", "42")
	assert.Equal(t, "instagram rejected error (code 400): unfollow of 42 refused", err.Error())
}
