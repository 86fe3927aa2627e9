package dto

import "github.com/picokeys/pico-bridge/internal/devices"

type ScanResponse struct {
	Devices  []devices.Record `json:"devices"`
	Selected *devices.Record  `json:"selected,omitempty"`
}

type SelectRequest struct {
	Path string `json:"path" binding:"required"`
}

type LedConfigRequest struct {
	GPIO       *uint8  `json:"gpio,omitempty"`
	Brightness *uint8  `json:"brightness,omitempty"`
	Dimmable   *bool   `json:"dimmable,omitempty"`
	Color      *string `json:"color,omitempty"`
}

func (r LedConfigRequest) ToLedConfig() devices.LedConfig {
	return devices.LedConfig{
		GPIO:       r.GPIO,
		Brightness: r.Brightness,
		Dimmable:   r.Dimmable,
		Color:      r.Color,
	}
}
