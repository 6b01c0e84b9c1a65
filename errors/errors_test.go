package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		invalid   bool
		fatal     bool
	}{
		{"nil error", nil, false, false, false},
		{"connection lost", ErrConnectionLost, true, false, false},
		{"deadline exceeded", context.DeadlineExceeded, true, false, false},
		{"decode failure", ErrTxDecodeFailed, false, true, false},
		{"empty record", ErrInvalidRecord, false, true, false},
		{"missing config", ErrMissingConfig, false, false, true},
		{"reconnect exhausted", ErrReconnectExhausted, false, false, true},
		{"timeout by message", stderrors.New("dial tcp: i/o timeout"), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
			assert.Equal(t, tt.invalid, IsInvalid(tt.err))
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := WrapInvalid(ErrTxDecodeFailed, "chain", "Decode", "parse raw bytes")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrTxDecodeFailed))
	assert.Contains(t, err.Error(), "chain.Decode: parse raw bytes failed")

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "chain", ce.Component)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "m", "a"))
	assert.NoError(t, WrapTransient(nil, "c", "m", "a"))
	assert.NoError(t, WrapInvalid(nil, "c", "m", "a"))
	assert.NoError(t, WrapFatal(nil, "c", "m", "a"))
}

func TestClassifiedOverridesHeuristics(t *testing.T) {
	// A classified fatal error stays fatal even if its message looks transient.
	err := WrapFatal(fmt.Errorf("connection handler misconfigured"), "feed", "Start", "init")
	assert.True(t, IsFatal(err))
	assert.False(t, IsTransient(err))
	assert.Equal(t, ErrorFatal, Classify(err))
}

func TestClassifyDefaultsTransient(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(stderrors.New("some novel failure")))
}

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}
