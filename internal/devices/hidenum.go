package devices

import (
	"context"
	"errors"
	"fmt"

	"github.com/karalabe/hid"
)

// USB identifiers for the supported FIDO authenticators. The default build
// enumerates as Raspberry Pi Foundation; NitroFIDO2 builds carry the
// Nitrokey identifiers.
const (
	picoFidoVendorID  uint16 = 0x2E8A
	picoFidoProductID uint16 = 0x10FE

	nitrokeyVendorID  uint16 = 0x20A0
	nitrokeyProductID uint16 = 0x42B2
)

// HIDEnumerator discovers FIDO authenticators over USB HID.
type HIDEnumerator struct{}

func (HIDEnumerator) Scan(_ context.Context) ([]Record, error) {
	if !hid.Supported() {
		return nil, errors.New("hid: unsupported platform")
	}

	infos, err := hid.Enumerate(0, 0)
	if err != nil {
		return nil, fmt.Errorf("hid enumerate: %w", err)
	}

	var records []Record
	for _, info := range infos {
		if !isKnownAuthenticator(info.VendorID, info.ProductID) {
			continue
		}
		records = append(records, Record{
			Type:     TypeFido,
			Serial:   info.Serial,
			Firmware: releaseVersion(info.Release),
			Path:     info.Path,
		})
	}
	return records, nil
}

func isKnownAuthenticator(vendor, product uint16) bool {
	return (vendor == picoFidoVendorID && product == picoFidoProductID) ||
		(vendor == nitrokeyVendorID && product == nitrokeyProductID)
}

// releaseVersion formats the BCD release number reported by the HID
// descriptor as major.minor, or "unknown" when the device reports zero.
func releaseVersion(release uint16) string {
	if release == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d.%d", (release>>8)&0xFF, release&0xFF)
}

// CompositeEnumerator merges the HID scan (FIDO family) with the backend's
// reader scan (HSM family). Either side failing contributes nothing; the
// scan as a whole fails only when both sides are unavailable.
type CompositeEnumerator struct {
	Fido Enumerator
	HSM  Enumerator
}

func (c CompositeEnumerator) Scan(ctx context.Context) ([]Record, error) {
	all := []Record{}
	var errs []error
	anyOK := false

	for _, enum := range []Enumerator{c.Fido, c.HSM} {
		if enum == nil {
			continue
		}
		recs, err := enum.Scan(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		anyOK = true
		all = append(all, recs...)
	}

	if !anyOK && len(errs) > 0 {
		return nil, fmt.Errorf("enumeration unavailable: %w", errors.Join(errs...))
	}
	return all, nil
}
