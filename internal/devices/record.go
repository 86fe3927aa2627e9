// Package devices owns device enumeration and the single selected-device
// slot. All selection mutations go through the Registry so hot-plug
// reconciliation and user-initiated selection cannot interleave.
package devices

// DeviceType distinguishes the two supported token families.
type DeviceType string

const (
	TypeFido DeviceType = "fido"
	TypeHSM  DeviceType = "hsm"
)

// Record describes one connected device for the lifetime of its physical
// connection. Path is the unique handle; it is only valid until the device
// disappears from a subsequent enumeration.
type Record struct {
	Type     DeviceType `json:"device_type"`
	Serial   string     `json:"serial"`
	Firmware string     `json:"firmware_version"`
	Path     string     `json:"path"`
}

// LedConfig is the LED configuration shape shared by both device families.
// Nil fields leave the device's prior value unchanged.
type LedConfig struct {
	GPIO       *uint8  `json:"gpio,omitempty"`
	Brightness *uint8  `json:"brightness,omitempty"`
	Dimmable   *bool   `json:"dimmable,omitempty"`
	Color      *string `json:"color,omitempty"`
}
