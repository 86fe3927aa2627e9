// Package fido coordinates all operations against the currently selected
// FIDO authenticator: PIN lifecycle, discoverable-credential management,
// OATH credentials, mnemonic backup and factory reset.
package fido

import (
	"time"

	"github.com/google/uuid"
)

// DeviceInfo is the authenticatorGetInfo view of the selected device. It is
// fetched fresh for every screen and never cached across views.
type DeviceInfo struct {
	Versions   []string        `json:"versions"`
	Extensions []string        `json:"extensions"`
	AAGUID     uuid.UUID       `json:"aaguid"`
	Firmware   string          `json:"firmware_version"`
	Serial     string          `json:"serial_number,omitempty"`
	PinSet     bool            `json:"pin_set"`
	PinRetries int             `json:"pin_retries"`
	Options    map[string]bool `json:"options"`
}

// Credential is a discoverable credential stored on the device.
type Credential struct {
	ID              []byte     `json:"credential_id"`
	RPID            string     `json:"rp_id"`
	RPName          string     `json:"rp_name,omitempty"`
	UserName        string     `json:"user_name,omitempty"`
	UserDisplayName string     `json:"user_display_name,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

// OathType distinguishes time-based from counter-based credentials.
type OathType string

const (
	OathTOTP OathType = "totp"
	OathHOTP OathType = "hotp"
)

// OathCredential is one provisioned OATH entry. The shared secret is
// write-only: it is accepted at creation and never read back.
type OathCredential struct {
	ID      string   `json:"id"`
	Issuer  string   `json:"issuer,omitempty"`
	Account string   `json:"account"`
	Type    OathType `json:"oath_type"`
	Period  int      `json:"period,omitempty"`
}

// AddOathParams carries the parameters for provisioning a new OATH
// credential. Secret is the already-decoded raw key bytes.
type AddOathParams struct {
	Secret  []byte
	Issuer  string
	Account string
	Type    OathType
	Digits  int
	Period  int
	Counter uint64
}
