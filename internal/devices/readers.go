package devices

import "context"

// ReaderStatus describes the smart-card subsystem: whether the PC-SC
// service answers at all and which reader names it reports. Readers with
// no card inserted are included, which is what makes this useful for
// support diagnostics when a plugged device is not showing up in a scan.
type ReaderStatus struct {
	ServiceAvailable bool
	Readers          []string
}

// ReaderReporter exposes smart-card reader diagnostics.
type ReaderReporter interface {
	ReaderStatus(ctx context.Context) (ReaderStatus, error)
}
