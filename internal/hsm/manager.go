package hsm

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/picokeys/pico-bridge/internal/devices"
	"github.com/picokeys/pico-bridge/internal/faults"
)

const (
	minPinChars = 6
	maxPinChars = 16
	soPinHexLen = 16
)

var (
	rsaBits = map[int]bool{1024: true, 2048: true, 3072: true, 4096: true}
	aesBits = map[int]bool{128: true, 192: true, 256: true}

	ecCurves = map[string]bool{
		"secp256r1":       true,
		"secp384r1":       true,
		"secp521r1":       true,
		"brainpoolP256r1": true,
		"brainpoolP384r1": true,
		"brainpoolP512r1": true,
	}
)

// Backend is the device-protocol collaborator for the HSM side. One method
// per wire operation, each addressed by device path.
type Backend interface {
	GetDeviceInfo(ctx context.Context, path string) (DeviceInfo, error)
	IsInitialized(ctx context.Context, path string) (bool, error)
	Initialize(ctx context.Context, path, pin, soPin string, dkekShares uint8) error

	VerifyPin(ctx context.Context, path, pin string) error
	ChangePin(ctx context.Context, path, oldPin, newPin string) error
	ChangeSoPin(ctx context.Context, path, oldSoPin, newSoPin string) error
	UnblockPin(ctx context.Context, path, soPin, newPin string) error

	GenerateRsaKey(ctx context.Context, path, pin string, bits int, id uint8, label string) error
	GenerateEcKey(ctx context.Context, path, pin, curve string, id uint8, label string) error
	GenerateAesKey(ctx context.Context, path, pin string, bits int, id uint8) error
	ListKeys(ctx context.Context, path, pin string) ([]KeyInfo, error)
	DeleteKey(ctx context.Context, path, pin string, id uint8, kind KeyKind) error

	ListCertificates(ctx context.Context, path, pin string) ([]CertInfo, error)
	ImportCertificate(ctx context.Context, path, pin string, id uint8, der []byte) error
	ExportCertificate(ctx context.Context, path string, id uint8) ([]byte, error)

	CreateDkekShare(ctx context.Context, path string) ([]byte, error)
	ImportDkekShare(ctx context.Context, path string, share []byte) (DkekStatus, error)
	DkekStatus(ctx context.Context, path string) (DkekStatus, error)
	WrapKey(ctx context.Context, path, pin string, keyRef uint8) ([]byte, error)
	UnwrapKey(ctx context.Context, path, pin string, keyRef uint8, wrapped []byte) error

	GetOptions(ctx context.Context, path string) (Options, error)
	SetOption(ctx context.Context, path string, name OptionName, value bool) error
	SetDatetime(ctx context.Context, path string, t time.Time) error
	EnableSecureLock(ctx context.Context, path string) error
	DisableSecureLock(ctx context.Context, path string) error
	SetLed(ctx context.Context, path string, cfg devices.LedConfig) error
}

// Manager drives the HSM session for whichever device the registry has
// selected. Same serialization discipline as the FIDO side: one in-flight
// operation, the rest fail with DeviceBusy.
type Manager struct {
	backend  Backend
	registry *devices.Registry
	now      func() time.Time

	op sync.Mutex

	mu          sync.Mutex
	pinLocked   bool
	soPinLocked bool
}

func NewManager(backend Backend, registry *devices.Registry) *Manager {
	m := &Manager{backend: backend, registry: registry, now: time.Now}
	registry.OnDeselect(func(rec devices.Record) {
		if rec.Type == devices.TypeHSM {
			m.resetSession()
		}
	})
	return m
}

func (m *Manager) resetSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinLocked = false
	m.soPinLocked = false
}

func (m *Manager) begin() (string, error) {
	rec, ok := m.registry.SelectedOfType(devices.TypeHSM)
	if !ok {
		return "", fmt.Errorf("no hsm device selected: %w", faults.ErrDeviceNotFound)
	}
	if !m.op.TryLock() {
		return "", fmt.Errorf("operation already in flight: %w", faults.ErrDeviceBusy)
	}
	return rec.Path, nil
}

func (m *Manager) end() {
	m.op.Unlock()
}

// validatePin enforces the 6-16 character user PIN bound.
func validatePin(pin string) error {
	if len(pin) < minPinChars {
		return faults.ErrPinTooShort
	}
	if len(pin) > maxPinChars {
		return faults.ErrPinTooLong
	}
	return nil
}

// validateSoPin enforces the fixed 16-hex-digit SO-PIN format.
func validateSoPin(soPin string) error {
	if len(soPin) != soPinHexLen {
		return fmt.Errorf("so-pin must be exactly %d hex digits: %w", soPinHexLen, faults.ErrSoPinInvalid)
	}
	for _, r := range soPin {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return fmt.Errorf("so-pin must be hex digits only: %w", faults.ErrSoPinInvalid)
		}
	}
	return nil
}

func (m *Manager) pinGate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pinLocked {
		return fmt.Errorf("pin is locked, unblock with so-pin: %w", faults.ErrPinLocked)
	}
	return nil
}

func (m *Manager) soPinGate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.soPinLocked {
		return fmt.Errorf("so-pin is locked, reinitialize the device: %w", faults.ErrSoPinLocked)
	}
	return nil
}

// noteAuthFailure latches the terminal locked states when the device
// reports them. Backend failures arrive as typed faults or as raw APDU
// text, so the latch keys on the normalized kind.
func (m *Manager) noteAuthFailure(err error) {
	kind := faults.Normalize(err).Kind

	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == faults.KindPinLocked {
		m.pinLocked = true
	}
	if kind == faults.KindSoPinLocked {
		m.soPinLocked = true
	}
}

// GetDeviceInfo reports firmware, serial and memory usage.
func (m *Manager) GetDeviceInfo(ctx context.Context) (DeviceInfo, error) {
	path, err := m.begin()
	if err != nil {
		return DeviceInfo{}, err
	}
	defer m.end()

	info, err := m.backend.GetDeviceInfo(ctx, path)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("get device info: %w", err)
	}
	return info, nil
}

// IsInitialized reports whether the device already carries a configuration.
func (m *Manager) IsInitialized(ctx context.Context) (bool, error) {
	path, err := m.begin()
	if err != nil {
		return false, err
	}
	defer m.end()

	ok, err := m.backend.IsInitialized(ctx, path)
	if err != nil {
		return false, fmt.Errorf("query initialization state: %w", err)
	}
	return ok, nil
}

// Initialize provisions the device with a fresh PIN, SO-PIN and DKEK share
// count. It destroys any existing state, so callers gate it behind a
// separately confirmed destructive action. It also clears any latched
// lockout from the previous configuration.
func (m *Manager) Initialize(ctx context.Context, pin, soPin string, dkekShares uint8) error {
	if err := validatePin(pin); err != nil {
		return err
	}
	if err := validateSoPin(soPin); err != nil {
		return err
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.Initialize(ctx, path, pin, soPin, dkekShares); err != nil {
		return fmt.Errorf("initialize device: %w", err)
	}
	m.resetSession()
	slog.Info("HSM initialized", "path", path, "dkek_shares", dkekShares)
	return nil
}

// VerifyPin checks the user PIN against the device, unlocking the session.
func (m *Manager) VerifyPin(ctx context.Context, pin string) error {
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

	if err := m.backend.VerifyPin(ctx, path, pin); err != nil {
		m.noteAuthFailure(err)
		return fmt.Errorf("verify pin: %w", err)
	}
	return nil
}

// ChangePin replaces the user PIN, both values validated client-side first.
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
		m.noteAuthFailure(err)
		return fmt.Errorf("change pin: %w", err)
	}
	slog.Info("HSM pin changed", "path", path)
	return nil
}

// ChangeSoPin replaces the SO-PIN.
func (m *Manager) ChangeSoPin(ctx context.Context, oldSoPin, newSoPin string) error {
	if err := validateSoPin(oldSoPin); err != nil {
		return err
	}
	if err := validateSoPin(newSoPin); err != nil {
		return err
	}
	if err := m.soPinGate(); err != nil {
		return err
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.ChangeSoPin(ctx, path, oldSoPin, newSoPin); err != nil {
		m.noteAuthFailure(err)
		return fmt.Errorf("change so-pin: %w", err)
	}
	slog.Info("HSM so-pin changed", "path", path)
	return nil
}

// UnblockPin recovers from a PIN lockout using the SO-PIN. SO-PIN attempts
// are retry-limited by the device itself; no client-side retry accounting.
func (m *Manager) UnblockPin(ctx context.Context, soPin, newPin string) error {
	if err := validateSoPin(soPin); err != nil {
		return err
	}
	if err := validatePin(newPin); err != nil {
		return err
	}
	if err := m.soPinGate(); err != nil {
		return err
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.UnblockPin(ctx, path, soPin, newPin); err != nil {
		m.noteAuthFailure(err)
		return fmt.Errorf("unblock pin: %w", err)
	}
	m.mu.Lock()
	m.pinLocked = false
	m.mu.Unlock()
	slog.Info("HSM pin unblocked", "path", path)
	return nil
}

// GenerateRsaKey creates an RSA key pair in slot id. Slot collisions are
// resolved by the device and surfaced as-is.
func (m *Manager) GenerateRsaKey(ctx context.Context, pin string, bits int, id uint8, label string) error {
	if !rsaBits[bits] {
		return faults.New(faults.KindNotSupported, "unsupported rsa key size %d", bits)
	}
	return m.keyOp(ctx, pin, func(path string) error {
		return m.backend.GenerateRsaKey(ctx, path, pin, bits, id, label)
	}, "generate rsa key")
}

// GenerateEcKey creates an EC key pair in slot id.
func (m *Manager) GenerateEcKey(ctx context.Context, pin, curve string, id uint8, label string) error {
	if !ecCurves[curve] {
		return faults.New(faults.KindNotSupported, "unsupported ec curve %q", curve)
	}
	return m.keyOp(ctx, pin, func(path string) error {
		return m.backend.GenerateEcKey(ctx, path, pin, curve, id, label)
	}, "generate ec key")
}

// GenerateAesKey creates an AES key in slot id.
func (m *Manager) GenerateAesKey(ctx context.Context, pin string, bits int, id uint8) error {
	if !aesBits[bits] {
		return faults.New(faults.KindNotSupported, "unsupported aes key size %d", bits)
	}
	return m.keyOp(ctx, pin, func(path string) error {
		return m.backend.GenerateAesKey(ctx, path, pin, bits, id)
	}, "generate aes key")
}

// ListKeys enumerates stored keys.
func (m *Manager) ListKeys(ctx context.Context, pin string) ([]KeyInfo, error) {
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

	keys, err := m.backend.ListKeys(ctx, path, pin)
	if err != nil {
		m.noteAuthFailure(err)
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// DeleteKey removes the key in slot id. The family discriminator is
// required because ids are only unique within a family.
func (m *Manager) DeleteKey(ctx context.Context, pin string, id uint8, kind KeyKind) error {
	if !kind.Valid() {
		return faults.New(faults.KindNotSupported, "unknown key kind %q", kind)
	}
	return m.keyOp(ctx, pin, func(path string) error {
		return m.backend.DeleteKey(ctx, path, pin, id, kind)
	}, "delete key")
}

// keyOp is the shared validate-gate-dispatch skeleton for PIN-bearing key
// operations.
func (m *Manager) keyOp(ctx context.Context, pin string, call func(path string) error, verb string) error {
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

	if err := call(path); err != nil {
		m.noteAuthFailure(err)
		return fmt.Errorf("%s: %w", verb, err)
	}
	return nil
}

// ListCertificates enumerates stored certificates.
func (m *Manager) ListCertificates(ctx context.Context, pin string) ([]CertInfo, error) {
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

	certs, err := m.backend.ListCertificates(ctx, path, pin)
	if err != nil {
		m.noteAuthFailure(err)
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// ImportCertificate stores a certificate in slot id. Input may be DER or
// PEM; PEM is normalized to DER client-side and the payload is parsed
// before any wire call so malformed input never reaches the device.
func (m *Manager) ImportCertificate(ctx context.Context, pin string, id uint8, data []byte) error {
	der, err := normalizeCertificate(data)
	if err != nil {
		return err
	}
	return m.keyOp(ctx, pin, func(path string) error {
		return m.backend.ImportCertificate(ctx, path, pin, id, der)
	}, "import certificate")
}

// ExportCertificate reads a certificate back. No PIN: only public material
// leaves the device.
func (m *Manager) ExportCertificate(ctx context.Context, id uint8) ([]byte, error) {
	path, err := m.begin()
	if err != nil {
		return nil, err
	}
	defer m.end()

	der, err := m.backend.ExportCertificate(ctx, path, id)
	if err != nil {
		return nil, fmt.Errorf("export certificate: %w", err)
	}
	return der, nil
}

// normalizeCertificate accepts DER or PEM bytes and returns verified DER.
func normalizeCertificate(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, faults.New(faults.KindCertificateNotFound, "empty certificate payload")
	}
	der := data
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, faults.New(faults.KindUnknown, "pem block is %q, expected CERTIFICATE", block.Type)
		}
		der = block.Bytes
	}
	if _, err := x509.ParseCertificate(der); err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return der, nil
}

// CreateDkekShare mints one new share on-device and seals it into a
// password-protected container for the caller to store offline.
func (m *Manager) CreateDkekShare(ctx context.Context, password string) ([]byte, error) {
	if password == "" {
		return nil, faults.New(faults.KindAuthenticationFailed, "share password must not be empty")
	}
	path, err := m.begin()
	if err != nil {
		return nil, err
	}
	defer m.end()

	share, err := m.backend.CreateDkekShare(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("create dkek share: %w", err)
	}
	sealed, err := SealShare(share, password)
	if err != nil {
		return nil, fmt.Errorf("seal dkek share: %w", err)
	}
	slog.Info("DKEK share created", "path", path)
	return sealed, nil
}

// ImportDkekShare opens a sealed share container and feeds the share to the
// device. The returned status always satisfies remaining == total-imported.
func (m *Manager) ImportDkekShare(ctx context.Context, sealed []byte, password string) (DkekStatus, error) {
	share, err := OpenShare(sealed, password)
	if err != nil {
		return DkekStatus{}, err
	}
	path, err := m.begin()
	if err != nil {
		return DkekStatus{}, err
	}
	defer m.end()

	status, err := m.backend.ImportDkekShare(ctx, path, share)
	if err != nil {
		return DkekStatus{}, fmt.Errorf("import dkek share: %w", err)
	}
	if status.RemainingShares != status.TotalShares-status.ImportedShares {
		return DkekStatus{}, faults.New(faults.KindUnknown,
			"inconsistent dkek status: total %d imported %d remaining %d",
			status.TotalShares, status.ImportedShares, status.RemainingShares)
	}
	slog.Info("DKEK share imported", "path", path,
		"imported", status.ImportedShares, "remaining", status.RemainingShares)
	return status, nil
}

// DkekStatus reports share-import progress.
func (m *Manager) DkekStatus(ctx context.Context) (DkekStatus, error) {
	path, err := m.begin()
	if err != nil {
		return DkekStatus{}, err
	}
	defer m.end()
	return m.dkekStatusLocked(ctx, path)
}

func (m *Manager) dkekStatusLocked(ctx context.Context, path string) (DkekStatus, error) {
	status, err := m.backend.DkekStatus(ctx, path)
	if err != nil {
		return DkekStatus{}, fmt.Errorf("get dkek status: %w", err)
	}
	return status, nil
}

// WrapKey exports key material under the reconstructed DKEK. Fails before
// any PIN use while shares are still outstanding.
func (m *Manager) WrapKey(ctx context.Context, pin string, keyRef uint8) ([]byte, error) {
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

	if err := m.requireDkekReady(ctx, path); err != nil {
		return nil, err
	}
	wrapped, err := m.backend.WrapKey(ctx, path, pin, keyRef)
	if err != nil {
		m.noteAuthFailure(err)
		return nil, fmt.Errorf("wrap key: %w", err)
	}
	return wrapped, nil
}

// UnwrapKey re-imports previously wrapped key material.
func (m *Manager) UnwrapKey(ctx context.Context, pin string, keyRef uint8, wrapped []byte) error {
	if err := validatePin(pin); err != nil {
		return err
	}
	if len(wrapped) == 0 {
		return faults.New(faults.KindKeyNotFound, "empty wrapped key payload")
	}
	if err := m.pinGate(); err != nil {
		return err
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.requireDkekReady(ctx, path); err != nil {
		return err
	}
	if err := m.backend.UnwrapKey(ctx, path, pin, keyRef, wrapped); err != nil {
		m.noteAuthFailure(err)
		return fmt.Errorf("unwrap key: %w", err)
	}
	return nil
}

func (m *Manager) requireDkekReady(ctx context.Context, path string) error {
	status, err := m.dkekStatusLocked(ctx, path)
	if err != nil {
		return err
	}
	if status.RemainingShares > 0 {
		return fmt.Errorf("%d dkek shares still outstanding: %w",
			status.RemainingShares, faults.ErrDkekNotInitialized)
	}
	return nil
}

// GetOptions reads the device flags.
func (m *Manager) GetOptions(ctx context.Context) (Options, error) {
	path, err := m.begin()
	if err != nil {
		return Options{}, err
	}
	defer m.end()

	opts, err := m.backend.GetOptions(ctx, path)
	if err != nil {
		return Options{}, fmt.Errorf("get options: %w", err)
	}
	return opts, nil
}

// SetOption toggles exactly one device flag.
func (m *Manager) SetOption(ctx context.Context, name OptionName, value bool) error {
	switch name {
	case OptionPressToConfirm, OptionKeyUsageCounter:
	default:
		return faults.New(faults.KindNotSupported, "unknown option %q", name)
	}
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.SetOption(ctx, path, name, value); err != nil {
		return fmt.Errorf("set option %s: %w", name, err)
	}
	return nil
}

// SetDatetime synchronizes the device clock to host time.
func (m *Manager) SetDatetime(ctx context.Context) error {
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.SetDatetime(ctx, path, m.now()); err != nil {
		return fmt.Errorf("set datetime: %w", err)
	}
	return nil
}

// EnableSecureLock turns on the device-wide secure-lock mode.
func (m *Manager) EnableSecureLock(ctx context.Context) error {
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.EnableSecureLock(ctx, path); err != nil {
		return fmt.Errorf("enable secure lock: %w", err)
	}
	slog.Info("HSM secure lock enabled", "path", path)
	return nil
}

// DisableSecureLock turns the mode back off.
func (m *Manager) DisableSecureLock(ctx context.Context) error {
	path, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.DisableSecureLock(ctx, path); err != nil {
		return fmt.Errorf("disable secure lock: %w", err)
	}
	slog.Info("HSM secure lock disabled", "path", path)
	return nil
}

// SetLed pushes LED configuration, nil fields untouched.
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
