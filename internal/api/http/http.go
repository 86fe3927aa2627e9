package http

import (
	"github.com/picokeys/pico-bridge/internal/auth"
	"github.com/picokeys/pico-bridge/internal/devices"
	"github.com/picokeys/pico-bridge/internal/fido"
	"github.com/picokeys/pico-bridge/internal/hsm"
	"github.com/picokeys/pico-bridge/internal/prefs"
)

type Config struct {
	Port uint `mapstructure:"port"`
}

type Services struct {
	Registry *devices.Registry
	Fido     *fido.Manager
	Hsm      *hsm.Manager
	Prefs    *prefs.Store
	Confirm  auth.Config
	Events   *devices.EventHub
	Readers  devices.ReaderReporter
}
