package fido

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/picokeys/pico-bridge/internal/ctap"
	"github.com/picokeys/pico-bridge/internal/devices"
	"github.com/picokeys/pico-bridge/internal/faults"
)

// CTAP 2.1 PIN length bounds, measured in bytes, not characters. Overlong
// multi-byte input is rejected here so a doomed attempt never costs a retry.
const (
	minPinBytes = 4
	maxPinBytes = 63
)

// backupWordCount is the fixed mnemonic length for device backup/restore.
const backupWordCount = 24

// Backend is the device-protocol collaborator. One method per wire
// operation; each takes the device path of the active channel and returns
// either a typed result or an error whose text the faults package can
// classify.
type Backend interface {
	GetInfo(ctx context.Context, path string) (DeviceInfo, error)
	PinRetries(ctx context.Context, path string) (int, error)
	SetPin(ctx context.Context, path, newPin string) error
	ChangePin(ctx context.Context, path, oldPin, newPin string) error

	ListCredentials(ctx context.Context, path, pin string) ([]Credential, error)
	DeleteCredential(ctx context.Context, path, pin string, credentialID []byte) error

	ListOath(ctx context.Context, path string) ([]OathCredential, error)
	AddOath(ctx context.Context, path string, params AddOathParams) error
	CalculateOath(ctx context.Context, path, credentialID string) (string, error)
	DeleteOath(ctx context.Context, path, credentialID string) error

	BackupWords(ctx context.Context, path, pin string) ([]string, error)
	RestoreWords(ctx context.Context, path, pin string, words []string) error
	Reset(ctx context.Context, path string) error

	SetMinPinLength(ctx context.Context, path, pin string, length int) error
	SetEnterpriseAttestation(ctx context.Context, path, pin string, enable bool) error
	SetLed(ctx context.Context, path string, cfg devices.LedConfig) error
}

// Manager drives the FIDO session for whichever device the registry has
// selected. All operations serialize on a single in-flight slot: the
// hardware channel is exclusive and stateful, so a second request while one
// is outstanding fails with DeviceBusy instead of interleaving.
type Manager struct {
	backend  Backend
	registry *devices.Registry

	op sync.Mutex // in-flight gate, TryLock only

	mu          sync.Mutex
	locked      bool // latched once PinLocked is observed
	lastRetries int
}

func NewManager(backend Backend, registry *devices.Registry) *Manager {
	m := &Manager{backend: backend, registry: registry, lastRetries: -1}
	registry.OnDeselect(func(rec devices.Record) {
		if rec.Type == devices.TypeFido {
			m.resetSession()
		}
	})
	return m
}

// resetSession discards all per-device session state. Runs on deselection
// and after a factory reset.
func (m *Manager) resetSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = false
	m.lastRetries = -1
}

// begin acquires the in-flight slot and resolves the active device path.
func (m *Manager) begin() (string, error) {
	rec, ok := m.registry.SelectedOfType(devices.TypeFido)
	if !ok {
		return "", fmt.Errorf("no fido device selected: %w", faults.ErrDeviceNotFound)
	}
	if !m.op.TryLock() {
		return "", fmt.Errorf("operation already in flight: %w", faults.ErrDeviceBusy)
	}
	return rec.Path, nil
}

func (m *Manager) end() {
	m.op.Unlock()
}

// validatePin enforces the 4-63 byte bound before any wire call.
func validatePin(pin string) error {
	if len(pin) < minPinBytes {
		return faults.ErrPinTooShort
	}
	if len(pin) > maxPinBytes {
		return faults.ErrPinTooLong
	}
	return nil
}

func (m *Manager) pinGate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return fmt.Errorf("session is terminal until reset: %w", faults.ErrPinLocked)
	}
	return nil
}

// translateErr resolves raw CTAP status errors from the backend into the
// shared taxonomy before they propagate.
func translateErr(err error) error {
	var st *ctap.StatusError
	if errors.As(err, &st) {
		return st.Fault()
	}
	return err
}

// notePinFailure refreshes the retry counter after any failed PIN-bearing
// attempt, including transport failures, so the lockout display stays
// accurate. It also latches the terminal locked state; backend failures
// arrive as typed faults or as raw status text, so the latch keys on the
// normalized kind.
func (m *Manager) notePinFailure(ctx context.Context, path string, err error) {
	if faults.Normalize(err).Kind == faults.KindPinLocked {
		m.mu.Lock()
		m.locked = true
		m.mu.Unlock()
	}
	retries, rerr := m.backend.PinRetries(ctx, path)
	if rerr != nil {
		slog.Warn("Failed to refresh pin retry counter", "error", rerr)
		return
	}
	m.mu.Lock()
	m.lastRetries = retries
	if retries == 0 {
		m.locked = true
	}
	m.mu.Unlock()
}

// PinRetries reports the last observed retry count, or -1 when unknown.
func (m *Manager) PinRetries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRetries
}

// GetInfo fetches a fresh device snapshot. Idempotent and side-effect free.
func (m *Manager) GetInfo(ctx context.Context) (DeviceInfo, error) {
	path, err := m.begin()
	if err != nil {
		return DeviceInfo{}, err
	}
	defer m.end()

	info, err := m.backend.GetInfo(ctx, path)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("get info: %w", err)
	}
	m.mu.Lock()
	m.lastRetries = info.PinRetries
	m.mu.Unlock()
	return info, nil
}

// SetPin sets the first-time PIN. Valid only while the device reports no
// PIN; once set there is no unset, only ChangePin.
func (m *Manager) SetPin(ctx context.Context, newPin string) error {
	if err := validatePin(newPin); err != nil {
		return err
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	info, err := m.backend.GetInfo(ctx, path)
	if err != nil {
		return fmt.Errorf("get info: %w", err)
	}
	if info.PinSet {
		return fmt.Errorf("pin already set, use change pin: %w", faults.ErrNotSupported)
	}
	if err := m.backend.SetPin(ctx, path, newPin); err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	slog.Info("FIDO pin set", "path", path)
	return nil
}

// ChangePin replaces the PIN. A wrong old PIN costs a retry on-device, so
// the counter is re-fetched after every failure.
func (m *Manager) ChangePin(ctx context.Context, oldPin, newPin string) error {
	if err := validatePin(oldPin); err != nil {
		return err
	}
	if err := validatePin(newPin); err != nil {
		return err
	}
	if err := m.pinGate(); err != nil {
		return err
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.ChangePin(ctx, path, oldPin, newPin); err != nil {
		err = translateErr(err)
		m.notePinFailure(ctx, path, err)
		return fmt.Errorf("change pin: %w", err)
	}
	slog.Info("FIDO pin changed", "path", path)
	return nil
}

// ListCredentials enumerates discoverable credentials. The PIN is supplied
// per call; no session token is cached. Devices without the
// credential-management capability fail before any wire call.
func (m *Manager) ListCredentials(ctx context.Context, pin string) ([]Credential, error) {
	if err := validatePin(pin); err != nil {
		return nil, err
	}
	if err := m.pinGate(); err != nil {
		return nil, err
	}
	path, err := m.begin()
	if err != nil {
		return nil, err
	}
	defer m.end()

	if err := m.requireCredMgmt(ctx, path); err != nil {
		return nil, err
	}
	creds, err := m.backend.ListCredentials(ctx, path, pin)
	if err != nil {
		err = translateErr(err)
		m.notePinFailure(ctx, path, err)
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// DeleteCredential removes one discoverable credential by id.
func (m *Manager) DeleteCredential(ctx context.Context, pin string, credentialID []byte) error {
	if err := validatePin(pin); err != nil {
		return err
	}
	if len(credentialID) == 0 {
		return faults.New(faults.KindCredentialNotFound, "empty credential id")
	}
	if err := m.pinGate(); err != nil {
		return err
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.requireCredMgmt(ctx, path); err != nil {
		return err
	}
	if err := m.backend.DeleteCredential(ctx, path, pin, credentialID); err != nil {
		err = translateErr(err)
		m.notePinFailure(ctx, path, err)
		return fmt.Errorf("delete credential: %w", err)
	}
	slog.Info("FIDO credential deleted", "path", path)
	return nil
}

// requireCredMgmt checks the capability options from a fresh GetInfo before
// a credential-management call is attempted.
func (m *Manager) requireCredMgmt(ctx context.Context, path string) error {
	info, err := m.backend.GetInfo(ctx, path)
	if err != nil {
		return fmt.Errorf("get info: %w", err)
	}
	if info.Options["credMgmt"] || info.Options["credentialMgmtPreview"] {
		return nil
	}
	return fmt.Errorf("credential management not advertised: %w", faults.ErrNotSupported)
}

// ListOath lists OATH credentials. No PIN required.
func (m *Manager) ListOath(ctx context.Context) ([]OathCredential, error) {
	path, err := m.begin()
	if err != nil {
		return nil, err
	}
	defer m.end()

	creds, err := m.backend.ListOath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list oath credentials: %w", err)
	}
	return creds, nil
}

// AddOath provisions a new OATH credential. The secret arrives as an
// operator-supplied base32 string and is decoded tolerantly client-side.
func (m *Manager) AddOath(ctx context.Context, secret string, params AddOathParams) error {
	raw := DecodeBase32(secret)
	if len(raw) == 0 {
		return faults.New(faults.KindNotSupported, "oath secret contains no valid base32 symbols")
	}
	params.Secret = raw
	if err := validateOathParams(params); err != nil {
		return err
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.AddOath(ctx, path, params); err != nil {
		return fmt.Errorf("add oath credential: %w", err)
	}
	slog.Info("OATH credential added", "path", path, "type", params.Type)
	return nil
}

// CalculateOath computes the current OTP for one credential.
func (m *Manager) CalculateOath(ctx context.Context, credentialID string) (string, error) {
	if credentialID == "" {
		return "", faults.New(faults.KindCredentialNotFound, "empty oath credential id")
	}
	path, err := m.begin()
	if err != nil {
		return "", err
	}
	defer m.end()

	code, err := m.backend.CalculateOath(ctx, path, credentialID)
	if err != nil {
		return "", fmt.Errorf("calculate oath: %w", err)
	}
	return code, nil
}

// DeleteOath removes one OATH credential.
func (m *Manager) DeleteOath(ctx context.Context, credentialID string) error {
	if credentialID == "" {
		return faults.New(faults.KindCredentialNotFound, "empty oath credential id")
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.DeleteOath(ctx, path, credentialID); err != nil {
		return fmt.Errorf("delete oath credential: %w", err)
	}
	return nil
}

// BackupWords retrieves the 24-word backup mnemonic.
func (m *Manager) BackupWords(ctx context.Context, pin string) ([]string, error) {
	if err := validatePin(pin); err != nil {
		return nil, err
	}
	if err := m.pinGate(); err != nil {
		return nil, err
	}
	path, err := m.begin()
	if err != nil {
		return nil, err
	}
	defer m.end()

	words, err := m.backend.BackupWords(ctx, path, pin)
	if err != nil {
		err = translateErr(err)
		m.notePinFailure(ctx, path, err)
		return nil, fmt.Errorf("get backup words: %w", err)
	}
	if len(words) != backupWordCount {
		return nil, faults.New(faults.KindUnknown, "device returned %d backup words, expected %d", len(words), backupWordCount)
	}
	return words, nil
}

// RestoreWords restores device state from a 24-word mnemonic. Word count
// and emptiness are checked before any wire call.
func (m *Manager) RestoreWords(ctx context.Context, pin string, words []string) error {
	if err := validatePin(pin); err != nil {
		return err
	}
	if len(words) != backupWordCount {
		return faults.New(faults.KindNotSupported, "restore requires exactly %d words, got %d", backupWordCount, len(words))
	}
	for i, word := range words {
		if word == "" {
			return faults.New(faults.KindNotSupported, "backup word %d is empty", i+1)
		}
	}
	if err := m.pinGate(); err != nil {
		return err
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.RestoreWords(ctx, path, pin, words); err != nil {
		err = translateErr(err)
		m.notePinFailure(ctx, path, err)
		return fmt.Errorf("restore from words: %w", err)
	}
	slog.Info("FIDO device restored from backup words", "path", path)
	return nil
}

// Reset factory-resets the device. No PIN is required: devices allow an
// unauthenticated reset as the recovery path from a locked PIN. Callers
// gate this behind a separately confirmed destructive action.
func (m *Manager) Reset(ctx context.Context) error {
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.Reset(ctx, path); err != nil {
		return fmt.Errorf("reset device: %w", err)
	}
	m.resetSession()
	slog.Info("FIDO device factory reset", "path", path)
	return nil
}

// SetMinPinLength raises the device's minimum PIN length policy.
func (m *Manager) SetMinPinLength(ctx context.Context, pin string, length int) error {
	if err := validatePin(pin); err != nil {
		return err
	}
	if length < minPinBytes {
		return faults.ErrPinTooShort
	}
	if length > maxPinBytes {
		return faults.ErrPinTooLong
	}
	if err := m.pinGate(); err != nil {
		return err
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.SetMinPinLength(ctx, path, pin, length); err != nil {
		err = translateErr(err)
		m.notePinFailure(ctx, path, err)
		return fmt.Errorf("set min pin length: %w", err)
	}
	return nil
}

// SetEnterpriseAttestation toggles enterprise attestation.
func (m *Manager) SetEnterpriseAttestation(ctx context.Context, pin string, enable bool) error {
	if err := validatePin(pin); err != nil {
		return err
	}
	if err := m.pinGate(); err != nil {
		return err
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.SetEnterpriseAttestation(ctx, path, pin, enable); err != nil {
		err = translateErr(err)
		m.notePinFailure(ctx, path, err)
		return fmt.Errorf("set enterprise attestation: %w", err)
	}
	return nil
}

// SetLed pushes LED configuration. Fire-and-forget; nil fields keep the
// device's prior values.
func (m *Manager) SetLed(ctx context.Context, cfg devices.LedConfig) error {
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.SetLed(ctx, path, cfg); err != nil {
		return fmt.Errorf("set led config: %w", err)
	}
	return nil
}
