package errors

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"unreachable", Unreachablef("dial 10.0.0.9"), IsUnreachable},
		{"timeout", Timeoutf("no response in 10s"), IsTimeout},
		{"protocol", Protocolf("bad body"), IsProtocol},
		{"device unavailable", DeviceUnavailablef("retries exhausted"), IsDeviceUnavailable},
		{"busy", Busyf("session active"), IsBusy},
		{"not found", NotFoundf("pattern %s", "p1"), IsNotFound},
		{"duplicate name", DuplicateNamef("name %q taken", "Sunset"), IsDuplicateName},
		{"invalid input", InvalidInputf("empty name"), IsInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			// Wrapping preserves classification
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(wrapped))
		})
	}
}

func TestClassifiersAreDistinct(t *testing.T) {
	err := Timeoutf("slow device")
	assert.True(t, IsTimeout(err))
	assert.False(t, IsUnreachable(err))
	assert.False(t, IsProtocol(err))
	assert.False(t, IsDeviceUnavailable(err))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Unreachablef("connect refused")))
	assert.True(t, IsRetryable(Timeoutf("deadline")))
	assert.False(t, IsRetryable(Protocolf("garbage response")))
	assert.False(t, IsRetryable(NotFoundf("gone")))
	assert.False(t, IsRetryable(nil))
}

func TestWrapErrorf(t *testing.T) {
	assert.Nil(t, WrapErrorf(nil, "ignored"))

	err := WrapErrorf(ErrNotFound, "loading pattern %s", "p1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "loading pattern p1")
}

func TestLogErrorAndReturn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	assert.Nil(t, LogErrorAndReturn(logger, nil, "should not log"))
	assert.Empty(t, buf.String())

	err := LogErrorAndReturn(logger, ErrBusy, "apply rejected", "controller", "c1")
	assert.Equal(t, ErrBusy, err)
	assert.Contains(t, buf.String(), "apply rejected")
	assert.Contains(t, buf.String(), "controller=c1")
}
