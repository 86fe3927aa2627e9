package fido

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/picokeys/pico-bridge/internal/ctap"
	"github.com/picokeys/pico-bridge/internal/devices"
	"github.com/picokeys/pico-bridge/internal/faults"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetInfo(ctx context.Context, path string) (DeviceInfo, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(DeviceInfo), args.Error(1)
}

func (m *MockBackend) PinRetries(ctx context.Context, path string) (int, error) {
	args := m.Called(ctx, path)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) SetPin(ctx context.Context, path, newPin string) error {
	return m.Called(ctx, path, newPin).Error(0)
}

func (m *MockBackend) ChangePin(ctx context.Context, path, oldPin, newPin string) error {
	return m.Called(ctx, path, oldPin, newPin).Error(0)
}

func (m *MockBackend) ListCredentials(ctx context.Context, path, pin string) ([]Credential, error) {
	args := m.Called(ctx, path, pin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Credential), args.Error(1)
}

func (m *MockBackend) DeleteCredential(ctx context.Context, path, pin string, credentialID []byte) error {
	return m.Called(ctx, path, pin, credentialID).Error(0)
}

func (m *MockBackend) ListOath(ctx context.Context, path string) ([]OathCredential, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]OathCredential), args.Error(1)
}

func (m *MockBackend) AddOath(ctx context.Context, path string, params AddOathParams) error {
	return m.Called(ctx, path, params).Error(0)
}

func (m *MockBackend) CalculateOath(ctx context.Context, path, credentialID string) (string, error) {
	args := m.Called(ctx, path, credentialID)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) DeleteOath(ctx context.Context, path, credentialID string) error {
	return m.Called(ctx, path, credentialID).Error(0)
}

func (m *MockBackend) BackupWords(ctx context.Context, path, pin string) ([]string, error) {
	args := m.Called(ctx, path, pin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBackend) RestoreWords(ctx context.Context, path, pin string, words []string) error {
	return m.Called(ctx, path, pin, words).Error(0)
}

func (m *MockBackend) Reset(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockBackend) SetMinPinLength(ctx context.Context, path, pin string, length int) error {
	return m.Called(ctx, path, pin, length).Error(0)
}

func (m *MockBackend) SetEnterpriseAttestation(ctx context.Context, path, pin string, enable bool) error {
	return m.Called(ctx, path, pin, enable).Error(0)
}

func (m *MockBackend) SetLed(ctx context.Context, path string, cfg devices.LedConfig) error {
	return m.Called(ctx, path, cfg).Error(0)
}

type stubOpener struct{}

func (stubOpener) Open(ctx context.Context, rec devices.Record) error { return nil }
func (stubOpener) Close(ctx context.Context, path string) error       { return nil }

type stubEnumerator struct{ list []devices.Record }

func (s stubEnumerator) Scan(ctx context.Context) ([]devices.Record, error) {
	return s.list, nil
}

func newTestManager(t *testing.T) (*Manager, *MockBackend, *devices.Registry) {
	t.Helper()
	rec := devices.Record{Type: devices.TypeFido, Serial: "PF-1", Path: "hid:1"}
	registry := devices.NewRegistry(stubEnumerator{list: []devices.Record{rec}}, stubOpener{})
	require.NoError(t, registry.Select(context.Background(), rec))

	backend := new(MockBackend)
	return NewManager(backend, registry), backend, registry
}

func TestPinValidationBeforeBackend(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name string
		pin  string
		want error
	}{
		{"three bytes", "123", faults.ErrPinTooShort},
		{"sixty-four bytes", strings.Repeat("a", 64), faults.ErrPinTooLong},
		// 22 runes but 66 bytes, length is measured in bytes
		{"multibyte overlong", strings.Repeat("密", 22), faults.ErrPinTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ChangePin(ctx, tt.pin, "goodpin")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// no wire call was ever made
	backend.AssertNotCalled(t, "ChangePin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPinMultibyteWithinBounds(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	// 4 runes, 12 bytes: legal
	pin := strings.Repeat("密", 4)
	backend.On("ChangePin", mock.Anything, "hid:1", pin, pin).Return(nil)

	require.NoError(t, m.ChangePin(ctx, pin, pin))
	backend.AssertExpectations(t)
}

func TestNoDeviceSelected(t *testing.T) {
	registry := devices.NewRegistry(stubEnumerator{}, stubOpener{})
	m := NewManager(new(MockBackend), registry)

	_, err := m.GetInfo(context.Background())
	assert.ErrorIs(t, err, faults.ErrDeviceNotFound)
}

func TestSetPinRejectedWhenAlreadySet(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	backend.On("GetInfo", mock.Anything, "hid:1").Return(DeviceInfo{PinSet: true}, nil)

	err := m.SetPin(ctx, "123456")
	assert.ErrorIs(t, err, faults.ErrNotSupported)
	backend.AssertNotCalled(t, "SetPin", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePinFailureRefreshesRetries(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	backend.On("ChangePin", mock.Anything, "hid:1", "wrongpin", "newerpin").
		Return(faults.New(faults.KindPinInvalid, "CTAP error 0x31"))
	backend.On("PinRetries", mock.Anything, "hid:1").Return(5, nil)

	err := m.ChangePin(ctx, "wrongpin", "newerpin")
	assert.ErrorIs(t, err, faults.ErrPinInvalid)
	assert.Equal(t, 5, m.PinRetries())
}

func TestPinLockedLatchesUntilReset(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	backend.On("ChangePin", mock.Anything, "hid:1", "wrongpin", "newerpin").
		Return(faults.New(faults.KindPinLocked, "CTAP error 0x32")).Once()
	backend.On("PinRetries", mock.Anything, "hid:1").Return(0, nil)

	require.ErrorIs(t, m.ChangePin(ctx, "wrongpin", "newerpin"), faults.ErrPinLocked)

	// subsequent attempts fail locally, no further wire calls
	assert.ErrorIs(t, m.ChangePin(ctx, "rightpin", "newerpin"), faults.ErrPinLocked)
	_, err := m.BackupWords(ctx, "rightpin")
	assert.ErrorIs(t, err, faults.ErrPinLocked)
	backend.AssertNumberOfCalls(t, "ChangePin", 1)

	// reset clears the latch
	backend.On("Reset", mock.Anything, "hid:1").Return(nil)
	require.NoError(t, m.Reset(ctx))
	assert.Equal(t, -1, m.PinRetries())
}

func TestPinLockedLatchFromBackendText(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	// raw transport text, not a typed fault, and the retry refresh fails too
	backend.On("ChangePin", mock.Anything, "hid:1", "wrongpin", "newerpin").
		Return(errors.New("CTAP error: pin blocked")).Once()
	backend.On("PinRetries", mock.Anything, "hid:1").
		Return(0, errors.New("device disconnected"))

	err := m.ChangePin(ctx, "wrongpin", "newerpin")
	require.Error(t, err)
	assert.Equal(t, faults.KindPinLocked, faults.Normalize(err).Kind)

	// latched: the second attempt fails locally without a wire call
	assert.ErrorIs(t, m.ChangePin(ctx, "rightpin", "newerpin"), faults.ErrPinLocked)
	backend.AssertNumberOfCalls(t, "ChangePin", 1)
}

func TestRawCtapStatusTranslated(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	backend.On("ChangePin", mock.Anything, "hid:1", "wrongpin", "newerpin").
		Return(&ctap.StatusError{Code: ctap.StatusPINInvalid})
	backend.On("PinRetries", mock.Anything, "hid:1").Return(6, nil)

	err := m.ChangePin(ctx, "wrongpin", "newerpin")
	assert.ErrorIs(t, err, faults.ErrPinInvalid)
	assert.Equal(t, 6, m.PinRetries())
}

func TestCredentialManagementCapabilityGate(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	backend.On("GetInfo", mock.Anything, "hid:1").
		Return(DeviceInfo{PinSet: true, Options: map[string]bool{"clientPin": true}}, nil)

	_, err := m.ListCredentials(ctx, "123456")
	assert.ErrorIs(t, err, faults.ErrNotSupported)
	backend.AssertNotCalled(t, "ListCredentials", mock.Anything, mock.Anything, mock.Anything)
}

func TestListCredentialsWithCredMgmt(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	stored := []Credential{{ID: []byte{1}, RPID: "example.com", UserName: "alice"}}
	backend.On("GetInfo", mock.Anything, "hid:1").
		Return(DeviceInfo{PinSet: true, Options: map[string]bool{"credMgmt": true}}, nil)
	backend.On("ListCredentials", mock.Anything, "hid:1", "123456").Return(stored, nil)

	creds, err := m.ListCredentials(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, stored, creds)
}

func TestAddOathDecodesTolerantly(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	want := DecodeBase32("JBSWY3DPEHPK3PXP")
	backend.On("AddOath", mock.Anything, "hid:1", mock.MatchedBy(func(p AddOathParams) bool {
		return assert.ObjectsAreEqual(want, p.Secret)
	})).Return(nil)

	err := m.AddOath(ctx, "JBSW Y3DP-EHPK3PXP=", AddOathParams{
		Account: "alice@example.com",
		Type:    OathTOTP,
		Digits:  6,
		Period:  30,
	})
	require.NoError(t, err)
	backend.AssertExpectations(t)
}

func TestAddOathRejectsEmptyDecode(t *testing.T) {
	m, backend, _ := newTestManager(t)

	err := m.AddOath(context.Background(), "0189!!", AddOathParams{
		Account: "alice@example.com",
		Type:    OathTOTP,
		Digits:  6,
		Period:  30,
	})
	assert.Error(t, err)
	backend.AssertNotCalled(t, "AddOath", mock.Anything, mock.Anything, mock.Anything)
}

func TestRestoreWordsCountCheckedFirst(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	words := make([]string, 23)
	for i := range words {
		words[i] = "abandon"
	}
	err := m.RestoreWords(ctx, "123456", words)
	assert.Error(t, err)
	backend.AssertNotCalled(t, "RestoreWords", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBackupWordsMustBeTwentyFour(t *testing.T) {
	m, backend, _ := newTestManager(t)
	ctx := context.Background()

	backend.On("BackupWords", mock.Anything, "hid:1", "123456").
		Return(make([]string, 12), nil)

	_, err := m.BackupWords(ctx, "123456")
	assert.Error(t, err)
}

func TestDeselectionDiscardsSessionState(t *testing.T) {
	m, backend, registry := newTestManager(t)
	ctx := context.Background()

	backend.On("ChangePin", mock.Anything, "hid:1", "wrongpin", "newerpin").
		Return(faults.New(faults.KindPinInvalid, "CTAP error 0x31"))
	backend.On("PinRetries", mock.Anything, "hid:1").Return(2, nil)

	require.Error(t, m.ChangePin(ctx, "wrongpin", "newerpin"))
	require.Equal(t, 2, m.PinRetries())

	registry.Deselect(ctx)
	assert.Equal(t, -1, m.PinRetries())
}

func TestResetNeedsNoPin(t *testing.T) {
	m, backend, _ := newTestManager(t)

	backend.On("Reset", mock.Anything, "hid:1").Return(nil)
	assert.NoError(t, m.Reset(context.Background()))
	backend.AssertExpectations(t)
}
