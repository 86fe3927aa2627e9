package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKnownKinds(t *testing.T) {
	tests := []struct {
		message string
		want    Kind
	}{
		{"device not found: /dev/hidraw3", KindDeviceNotFound},
		{"USB communication interrupted", KindDeviceDisconnected},
		{"transmit timed out after 5s", KindConnectionTimeout},
		{"reader busy: sharing violation", KindDeviceBusy},
		{"smart card service not available", KindBackendUnavailable},
		{"wrong PIN, 5 retries left", KindPinInvalid},
		{"PIN locked, device requires reset", KindPinLocked},
		{"credential not found on device", KindCredentialNotFound},
		{"operation not supported by firmware", KindNotSupported},
		{"security status not satisfied", KindAuthenticationFailed},
		{"SO-PIN verification failed", KindSoPinInvalid},
		{"SO-PIN locked", KindSoPinLocked},
		{"device not initialized", KindNotInitialized},
		{"key not found: id=5", KindKeyNotFound},
		{"certificate not found: id=2", KindCertificateNotFound},
		{"not enough memory on card", KindInsufficientMemory},
		{"DKEK not initialized", KindDkekNotInitialized},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.message), "message %q", tt.message)
	}
}

func TestClassifyOrderSoPinBeforePin(t *testing.T) {
	// "SO-PIN locked" contains "pin locked" as well; the SO-PIN entries come
	// first in the table and must win.
	assert.Equal(t, KindSoPinLocked, Classify("so-pin locked"))
	assert.Equal(t, KindSoPinLocked, Classify("so pin locked"))
	assert.Equal(t, KindSoPinLocked, Classify("so pin blocked after 15 tries"))
	assert.Equal(t, KindSoPinInvalid, Classify("so-pin rejected by card"))
	assert.Equal(t, KindPinLocked, Classify("pin locked"))
}

func TestClassifyOrderDkekBeforeNotInitialized(t *testing.T) {
	assert.Equal(t, KindDkekNotInitialized, Classify("wrap failed: dkek not initialized"))
	assert.Equal(t, KindNotInitialized, Classify("applet not initialized"))
}

func TestClassifyIsDeterministic(t *testing.T) {
	msg := "pin locked after timeout while device busy"
	first := Classify(msg)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify(msg))
	}
}

func TestClassifyUnknown(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify("0xDEADBEEF strange vendor message"))
}

func TestNormalizePreservesVerbatimMessage(t *testing.T) {
	raw := errors.New("0xDEADBEEF strange vendor message")
	f := Normalize(raw)
	require.NotNil(t, f)
	assert.Equal(t, KindUnknown, f.Kind)
	assert.Equal(t, raw.Error(), f.Message)
}

func TestNormalizeKeepsWrappedFaultKind(t *testing.T) {
	wrapped := fmt.Errorf("delete key 5: %w", ErrKeyNotFound)
	f := Normalize(wrapped)
	require.NotNil(t, f)
	assert.Equal(t, KindKeyNotFound, f.Kind)
	assert.Contains(t, f.Message, "delete key 5")
}

func TestNormalizeNil(t *testing.T) {
	assert.Nil(t, Normalize(nil))
}

func TestSentinelIsMatching(t *testing.T) {
	wrapped := fmt.Errorf("select device: %w", ErrDeviceBusy)
	assert.True(t, errors.Is(wrapped, ErrDeviceBusy))
	assert.False(t, errors.Is(wrapped, ErrDeviceNotFound))
}

func TestNewCarriesKind(t *testing.T) {
	f := New(KindPinInvalid, "pin verification failed, %d retries left", 3)
	assert.True(t, errors.Is(f, ErrPinInvalid))
	assert.Equal(t, "pin verification failed, 3 retries left", f.Message)
}
