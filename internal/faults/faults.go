// Package faults defines the closed error taxonomy shared by the device
// registry and the session managers, and normalizes unstructured backend
// failure text into it.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies one member of the error taxonomy.
type Kind string

const (
	// Connection errors.
	KindDeviceNotFound     Kind = "device_not_found"
	KindDeviceDisconnected Kind = "device_disconnected"
	KindConnectionTimeout  Kind = "connection_timeout"
	KindDeviceBusy         Kind = "device_busy"
	KindBackendUnavailable Kind = "backend_unavailable"

	// FIDO errors.
	KindPinInvalid         Kind = "pin_invalid"
	KindPinLocked          Kind = "pin_locked"
	KindPinTooShort        Kind = "pin_too_short"
	KindPinTooLong         Kind = "pin_too_long"
	KindCredentialNotFound Kind = "credential_not_found"
	KindNotSupported       Kind = "not_supported"

	// HSM errors.
	KindAuthenticationFailed Kind = "authentication_failed"
	KindSoPinInvalid         Kind = "so_pin_invalid"
	KindSoPinLocked          Kind = "so_pin_locked"
	KindNotInitialized       Kind = "not_initialized"
	KindKeyNotFound          Kind = "key_not_found"
	KindCertificateNotFound  Kind = "certificate_not_found"
	KindInsufficientMemory   Kind = "insufficient_memory"
	KindDkekNotInitialized   Kind = "dkek_not_initialized"

	// Fallback for backend text that matches nothing above.
	KindUnknown Kind = "unknown"
)

// Fault is an error carrying a resolved taxonomy kind and a human message.
type Fault struct {
	Kind    Kind
	Message string
}

func (f *Fault) Error() string {
	return f.Message
}

// Is reports kind equality so wrapped faults match the package sentinels
// through errors.Is.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	return ok && t.Kind == f.Kind
}

// New builds a fault of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is checks. Coordination code returns these (possibly
// wrapped) instead of raw strings wherever the failure is detected locally.
var (
	ErrDeviceNotFound     = &Fault{Kind: KindDeviceNotFound, Message: "device not found"}
	ErrDeviceDisconnected = &Fault{Kind: KindDeviceDisconnected, Message: "device disconnected"}
	ErrConnectionTimeout  = &Fault{Kind: KindConnectionTimeout, Message: "device operation timed out"}
	ErrDeviceBusy         = &Fault{Kind: KindDeviceBusy, Message: "device is busy"}
	ErrBackendUnavailable = &Fault{Kind: KindBackendUnavailable, Message: "device backend unavailable"}

	ErrPinInvalid         = &Fault{Kind: KindPinInvalid, Message: "pin verification failed"}
	ErrPinLocked          = &Fault{Kind: KindPinLocked, Message: "pin is locked"}
	ErrPinTooShort        = &Fault{Kind: KindPinTooShort, Message: "pin too short"}
	ErrPinTooLong         = &Fault{Kind: KindPinTooLong, Message: "pin too long"}
	ErrCredentialNotFound = &Fault{Kind: KindCredentialNotFound, Message: "credential not found"}
	ErrNotSupported       = &Fault{Kind: KindNotSupported, Message: "operation not supported by device"}

	ErrAuthenticationFailed = &Fault{Kind: KindAuthenticationFailed, Message: "authentication failed"}
	ErrSoPinInvalid         = &Fault{Kind: KindSoPinInvalid, Message: "so-pin verification failed"}
	ErrSoPinLocked          = &Fault{Kind: KindSoPinLocked, Message: "so-pin is locked"}
	ErrNotInitialized       = &Fault{Kind: KindNotInitialized, Message: "device not initialized"}
	ErrKeyNotFound          = &Fault{Kind: KindKeyNotFound, Message: "key not found"}
	ErrCertificateNotFound  = &Fault{Kind: KindCertificateNotFound, Message: "certificate not found"}
	ErrInsufficientMemory   = &Fault{Kind: KindInsufficientMemory, Message: "insufficient device memory"}
	ErrDkekNotInitialized   = &Fault{Kind: KindDkekNotInitialized, Message: "dkek not initialized"}
)

// matchTable maps backend failure text to kinds. Matching is ordered and the
// first hit wins, so more specific needles must precede more general ones
// (e.g. "so-pin" before "pin", "dkek not initialized" before
// "not initialized"). Keep the order stable: it is observable behavior.
var matchTable = []struct {
	needle string
	kind   Kind
}{
	{"dkek not initialized", KindDkekNotInitialized},
	{"key domain not set up", KindDkekNotInitialized},

	{"so-pin locked", KindSoPinLocked},
	{"so-pin blocked", KindSoPinLocked},
	{"so pin locked", KindSoPinLocked},
	{"so pin blocked", KindSoPinLocked},
	{"so-pin", KindSoPinInvalid},
	{"so pin", KindSoPinInvalid},

	{"pin locked", KindPinLocked},
	{"pin blocked", KindPinLocked},
	{"pin is locked", KindPinLocked},
	{"pin too short", KindPinTooShort},
	{"pin too long", KindPinTooLong},
	{"pin invalid", KindPinInvalid},
	{"wrong pin", KindPinInvalid},
	{"pin verification failed", KindPinInvalid},

	{"key not found", KindKeyNotFound},
	{"certificate not found", KindCertificateNotFound},
	{"credential not found", KindCredentialNotFound},
	{"no credentials", KindCredentialNotFound},

	{"not initialized", KindNotInitialized},
	{"insufficient memory", KindInsufficientMemory},
	{"not enough memory", KindInsufficientMemory},
	{"memory failure", KindInsufficientMemory},

	{"security status not satisfied", KindAuthenticationFailed},
	{"security condition", KindAuthenticationFailed},
	{"authentication failed", KindAuthenticationFailed},

	{"not supported", KindNotSupported},
	{"unsupported", KindNotSupported},

	{"device not found", KindDeviceNotFound},
	{"no such device", KindDeviceNotFound},
	{"unknown reader", KindDeviceNotFound},

	{"disconnected", KindDeviceDisconnected},
	{"device removed", KindDeviceDisconnected},
	{"communication interrupted", KindDeviceDisconnected},

	{"timed out", KindConnectionTimeout},
	{"timeout", KindConnectionTimeout},

	{"busy", KindDeviceBusy},
	{"sharing violation", KindDeviceBusy},

	{"backend unavailable", KindBackendUnavailable},
	{"service not available", KindBackendUnavailable},
	{"service stopped", KindBackendUnavailable},
	{"no service", KindBackendUnavailable},
}

// Classify resolves a bare backend failure message to a kind. Unmatched text
// falls through to KindUnknown.
func Classify(message string) Kind {
	lowered := strings.ToLower(message)
	for _, entry := range matchTable {
		if strings.Contains(lowered, entry.needle) {
			return entry.kind
		}
	}
	return KindUnknown
}

// Normalize resolves any error into a Fault. Errors already carrying a Fault
// keep their kind; everything else is classified by message text. The
// original message is always preserved verbatim.
func Normalize(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return &Fault{Kind: f.Kind, Message: err.Error()}
	}
	return &Fault{Kind: Classify(err.Error()), Message: err.Error()}
}
