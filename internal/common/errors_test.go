package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name            string
		originalError   error
		message         string
		expectedMessage string
	}{
		{
			name:            "wrap simple error",
			originalError:   errors.New("original error"),
			message:         "wrapper message",
			expectedMessage: "wrapper message: original error",
		},
		{
			name:            "empty wrapper message",
			originalError:   errors.New("original error"),
			message:         "",
			expectedMessage: ": original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrappedError := WrapError(tt.originalError, tt.message)
			require.Error(t, wrappedError)
			assert.Equal(t, tt.expectedMessage, wrappedError.Error())
			assert.ErrorIs(t, wrappedError, tt.originalError)
		})
	}
}

func TestWrapError_Nil(t *testing.T) {
	assert.NoError(t, WrapError(nil, "context"))
	assert.NoError(t, WrapErrorf(nil, "context %d", 1))
}

func TestWrapErrorf(t *testing.T) {
	err := WrapErrorf(ErrNotFound, "lookup %s", "patterns")
	assert.Equal(t, "lookup patterns: not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("debounce_ms", -1, "must be positive")
	assert.Equal(t, "validation failed for field 'debounce_ms': must be positive (value: -1)", err.Error())

	var target *ValidationError
	assert.True(t, errors.As(WrapError(err, "config"), &target))
	assert.Equal(t, "debounce_ms", target.Field)
}

func TestCombineErrors(t *testing.T) {
	assert.NoError(t, CombineErrors(nil))
	assert.NoError(t, CombineErrors([]error{nil, nil}))

	single := errors.New("one")
	assert.Same(t, single, CombineErrors([]error{nil, single}))

	combined := CombineErrors([]error{errors.New("one"), errors.New("two")})
	assert.Equal(t, "multiple errors occurred: [one; two]", combined.Error())
}

func TestErrorCollector(t *testing.T) {
	var ec ErrorCollector
	assert.False(t, ec.HasErrors())
	assert.NoError(t, ec.Error())

	ec.Add(nil)
	ec.Add(errors.New("log sink"))
	ec.AddWithContext(errors.New("disk full"), "parquet sink")

	assert.True(t, ec.HasErrors())
	assert.Equal(t, "multiple errors occurred: [log sink; parquet sink: disk full]", ec.Error().Error())
}

func TestNetworkAndHTTPErrors(t *testing.T) {
	cause := errors.New("connection refused")
	netErr := NewNetworkError("https://api.example/hosts/regex", "request failed", cause)
	assert.ErrorIs(t, netErr, cause)
	assert.Contains(t, netErr.Error(), "https://api.example/hosts/regex")

	httpErr := NewHTTPError(503, "busy", "https://api.example/unrestrict/link")
	var target *HTTPError
	require.ErrorAs(t, WrapError(httpErr, "unrestrict"), &target)
	assert.Equal(t, 503, target.StatusCode)
}
