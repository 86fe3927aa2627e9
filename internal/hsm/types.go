// Package hsm coordinates all operations against the currently selected
// smartcard HSM: initialization, PIN and SO-PIN lifecycle, key and
// certificate stores, DKEK escrow and device maintenance.
package hsm

import "time"

// DeviceInfo is the maintenance view of the selected device.
type DeviceInfo struct {
	Firmware    string `json:"firmware_version"`
	Serial      string `json:"serial_number"`
	FreeMemory  uint64 `json:"free_memory"`
	UsedMemory  uint64 `json:"used_memory"`
	TotalMemory uint64 `json:"total_memory"`
	FileCount   uint32 `json:"file_count"`
}

// KeyKind is the closed set of on-device key families. Every switch over it
// handles all three cases; the discriminator travels with delete requests
// because key ids are only unique within a family.
type KeyKind string

const (
	KeyRSA KeyKind = "Rsa"
	KeyEC  KeyKind = "Ec"
	KeyAES KeyKind = "Aes"
)

// Valid reports whether k is one of the three known families.
func (k KeyKind) Valid() bool {
	switch k {
	case KeyRSA, KeyEC, KeyAES:
		return true
	}
	return false
}

// KeyInfo describes one stored key.
type KeyInfo struct {
	Ref   uint8    `json:"key_ref"`
	ID    uint8    `json:"key_id"`
	Label string   `json:"label,omitempty"`
	Kind  KeyKind  `json:"kind"`
	Curve string   `json:"curve,omitempty"`
	Size  int      `json:"size,omitempty"`
	Usage []string `json:"usage,omitempty"`
}

// CertInfo describes one stored certificate.
type CertInfo struct {
	ID        uint8     `json:"cert_id"`
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
	KeyID     *uint8    `json:"key_id,omitempty"`
}

// DkekStatus is the device-reported share-import progress. Remaining is
// always Total minus Imported; wrap and unwrap are possible only at zero.
type DkekStatus struct {
	TotalShares     uint8  `json:"total_shares"`
	ImportedShares  uint8  `json:"imported_shares"`
	RemainingShares uint8  `json:"remaining_shares"`
	KeyCheckValue   string `json:"key_check_value,omitempty"`
}

// OptionName names one togglable device flag. Flags are mutated one per
// call; there is no batch set on the wire.
type OptionName string

const (
	OptionPressToConfirm  OptionName = "press_to_confirm"
	OptionKeyUsageCounter OptionName = "key_usage_counter"
)

// Options is the read view of the device flags.
type Options struct {
	PressToConfirm  bool `json:"press_to_confirm"`
	KeyUsageCounter bool `json:"key_usage_counter"`
}
