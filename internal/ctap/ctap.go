// Package ctap holds the CTAP 2.1 status constants the FIDO session
// manager needs to interpret backend failures. The byte-level exchange
// itself lives in the device backend.
package ctap

import (
	"github.com/picokeys/pico-bridge/internal/faults"
)

// CTAP status bytes relevant to PIN handling.
const (
	StatusOK                 byte = 0x00
	StatusUnsupportedOption  byte = 0x2B
	StatusPINInvalid         byte = 0x31
	StatusPINBlocked         byte = 0x32
	StatusPINAuthInvalid     byte = 0x33
	StatusPINPolicyViolation byte = 0x36
	StatusPINAuthBlocked     byte = 0x34
)

// StatusError is a CTAP failure status surfaced by the backend.
type StatusError struct {
	Code byte
}

func (e *StatusError) Error() string {
	if f := statusFault(e.Code); f != nil {
		return f.Message
	}
	return faults.New(faults.KindUnknown, "ctap status 0x%02X", e.Code).Message
}

// Fault maps the status byte to the error taxonomy. Unmapped codes resolve
// to KindUnknown with the raw status in the message.
func (e *StatusError) Fault() *faults.Fault {
	if f := statusFault(e.Code); f != nil {
		return f
	}
	return faults.New(faults.KindUnknown, "ctap status 0x%02X", e.Code)
}

func statusFault(code byte) *faults.Fault {
	switch code {
	case StatusPINInvalid, StatusPINPolicyViolation:
		return faults.ErrPinInvalid
	case StatusPINBlocked, StatusPINAuthBlocked:
		return faults.ErrPinLocked
	case StatusPINAuthInvalid:
		return faults.ErrPinInvalid
	case StatusUnsupportedOption:
		return faults.ErrNotSupported
	default:
		return nil
	}
}
