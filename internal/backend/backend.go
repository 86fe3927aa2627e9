// Package backend hosts the device-protocol implementations behind the
// fido.Backend and hsm.Backend interfaces. The wire protocols (CTAPHID,
// PC-SC APDU) are not implemented yet; Unavailable stands in so the rest of
// the daemon runs, fails cleanly and can be exercised end to end.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/picokeys/pico-bridge/internal/devices"
	"github.com/picokeys/pico-bridge/internal/faults"
	"github.com/picokeys/pico-bridge/internal/fido"
	"github.com/picokeys/pico-bridge/internal/hsm"
)

// Unavailable fails every operation with BackendUnavailable. Channel
// open/close and enumeration on the HSM side report no devices rather than
// failing, so a FIDO-only setup still works.
type Unavailable struct{}

var (
	_ fido.Backend           = Unavailable{}
	_ hsm.Backend            = Unavailable{}
	_ devices.Opener         = Unavailable{}
	_ devices.Enumerator     = Unavailable{}
	_ devices.ReaderReporter = Unavailable{}
)

func (Unavailable) unavailable(op string) error {
	return fmt.Errorf("%s: protocol transport not implemented: %w", op, faults.ErrBackendUnavailable)
}

// Scan is the HSM-side enumerator: no PC-SC transport means no readers.
func (Unavailable) Scan(ctx context.Context) ([]devices.Record, error) {
	return nil, nil
}

// ReaderStatus is a diagnostic, so it reports the missing transport as an
// unavailable service instead of failing.
func (Unavailable) ReaderStatus(ctx context.Context) (devices.ReaderStatus, error) {
	return devices.ReaderStatus{ServiceAvailable: false}, nil
}

func (u Unavailable) Open(ctx context.Context, rec devices.Record) error {
	return u.unavailable("open channel")
}

func (Unavailable) Close(ctx context.Context, path string) error {
	return nil
}

func (u Unavailable) GetInfo(ctx context.Context, path string) (fido.DeviceInfo, error) {
	return fido.DeviceInfo{}, u.unavailable("get info")
}

func (u Unavailable) PinRetries(ctx context.Context, path string) (int, error) {
	return 0, u.unavailable("pin retries")
}

func (u Unavailable) SetPin(ctx context.Context, path, newPin string) error {
	return u.unavailable("set pin")
}

func (u Unavailable) ChangePin(ctx context.Context, path, oldPin, newPin string) error {
	return u.unavailable("change pin")
}

func (u Unavailable) ListCredentials(ctx context.Context, path, pin string) ([]fido.Credential, error) {
	return nil, u.unavailable("list credentials")
}

func (u Unavailable) DeleteCredential(ctx context.Context, path, pin string, credentialID []byte) error {
	return u.unavailable("delete credential")
}

func (u Unavailable) ListOath(ctx context.Context, path string) ([]fido.OathCredential, error) {
	return nil, u.unavailable("list oath credentials")
}

func (u Unavailable) AddOath(ctx context.Context, path string, params fido.AddOathParams) error {
	return u.unavailable("add oath credential")
}

func (u Unavailable) CalculateOath(ctx context.Context, path, credentialID string) (string, error) {
	return "", u.unavailable("calculate oath")
}

func (u Unavailable) DeleteOath(ctx context.Context, path, credentialID string) error {
	return u.unavailable("delete oath credential")
}

func (u Unavailable) BackupWords(ctx context.Context, path, pin string) ([]string, error) {
	return nil, u.unavailable("get backup words")
}

func (u Unavailable) RestoreWords(ctx context.Context, path, pin string, words []string) error {
	return u.unavailable("restore from words")
}

func (u Unavailable) Reset(ctx context.Context, path string) error {
	return u.unavailable("reset device")
}

func (u Unavailable) SetMinPinLength(ctx context.Context, path, pin string, length int) error {
	return u.unavailable("set min pin length")
}

func (u Unavailable) SetEnterpriseAttestation(ctx context.Context, path, pin string, enable bool) error {
	return u.unavailable("set enterprise attestation")
}

func (u Unavailable) SetLed(ctx context.Context, path string, cfg devices.LedConfig) error {
	return u.unavailable("set led config")
}

func (u Unavailable) GetDeviceInfo(ctx context.Context, path string) (hsm.DeviceInfo, error) {
	return hsm.DeviceInfo{}, u.unavailable("get device info")
}

func (u Unavailable) IsInitialized(ctx context.Context, path string) (bool, error) {
	return false, u.unavailable("query initialization state")
}

func (u Unavailable) Initialize(ctx context.Context, path, pin, soPin string, dkekShares uint8) error {
	return u.unavailable("initialize device")
}

func (u Unavailable) VerifyPin(ctx context.Context, path, pin string) error {
	return u.unavailable("verify pin")
}

func (u Unavailable) ChangeSoPin(ctx context.Context, path, oldSoPin, newSoPin string) error {
	return u.unavailable("change so-pin")
}

func (u Unavailable) UnblockPin(ctx context.Context, path, soPin, newPin string) error {
	return u.unavailable("unblock pin")
}

func (u Unavailable) GenerateRsaKey(ctx context.Context, path, pin string, bits int, id uint8, label string) error {
	return u.unavailable("generate rsa key")
}

func (u Unavailable) GenerateEcKey(ctx context.Context, path, pin, curve string, id uint8, label string) error {
	return u.unavailable("generate ec key")
}

func (u Unavailable) GenerateAesKey(ctx context.Context, path, pin string, bits int, id uint8) error {
	return u.unavailable("generate aes key")
}

func (u Unavailable) ListKeys(ctx context.Context, path, pin string) ([]hsm.KeyInfo, error) {
	return nil, u.unavailable("list keys")
}

func (u Unavailable) DeleteKey(ctx context.Context, path, pin string, id uint8, kind hsm.KeyKind) error {
	return u.unavailable("delete key")
}

func (u Unavailable) ListCertificates(ctx context.Context, path, pin string) ([]hsm.CertInfo, error) {
	return nil, u.unavailable("list certificates")
}

func (u Unavailable) ImportCertificate(ctx context.Context, path, pin string, id uint8, der []byte) error {
	return u.unavailable("import certificate")
}

func (u Unavailable) ExportCertificate(ctx context.Context, path string, id uint8) ([]byte, error) {
	return nil, u.unavailable("export certificate")
}

func (u Unavailable) CreateDkekShare(ctx context.Context, path string) ([]byte, error) {
	return nil, u.unavailable("create dkek share")
}

func (u Unavailable) ImportDkekShare(ctx context.Context, path string, share []byte) (hsm.DkekStatus, error) {
	return hsm.DkekStatus{}, u.unavailable("import dkek share")
}

func (u Unavailable) DkekStatus(ctx context.Context, path string) (hsm.DkekStatus, error) {
	return hsm.DkekStatus{}, u.unavailable("get dkek status")
}

func (u Unavailable) WrapKey(ctx context.Context, path, pin string, keyRef uint8) ([]byte, error) {
	return nil, u.unavailable("wrap key")
}

func (u Unavailable) UnwrapKey(ctx context.Context, path, pin string, keyRef uint8, wrapped []byte) error {
	return u.unavailable("unwrap key")
}

func (u Unavailable) GetOptions(ctx context.Context, path string) (hsm.Options, error) {
	return hsm.Options{}, u.unavailable("get options")
}

func (u Unavailable) SetOption(ctx context.Context, path string, name hsm.OptionName, value bool) error {
	return u.unavailable("set option")
}

func (u Unavailable) SetDatetime(ctx context.Context, path string, t time.Time) error {
	return u.unavailable("set datetime")
}

func (u Unavailable) EnableSecureLock(ctx context.Context, path string) error {
	return u.unavailable("enable secure lock")
}

func (u Unavailable) DisableSecureLock(ctx context.Context, path string) error {
	return u.unavailable("disable secure lock")
}
