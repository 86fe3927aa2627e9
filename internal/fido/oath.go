package fido

import (
	"github.com/picokeys/pico-bridge/internal/faults"
)

// DecodeBase32 decodes operator-supplied OATH secrets leniently. Provisioning
// strings arrive with arbitrary case, whitespace, hyphen grouping and
// optional padding, and individual mistyped symbols are dropped rather than
// failing the whole secret. Only whole output bytes are emitted, trailing
// partial bits are discarded.
func DecodeBase32(s string) []byte {
	var (
		out  []byte
		buf  uint32
		bits uint
	)
	for _, r := range s {
		var v uint32
		switch {
		case r >= 'A' && r <= 'Z':
			v = uint32(r - 'A')
		case r >= 'a' && r <= 'z':
			v = uint32(r - 'a')
		case r >= '2' && r <= '7':
			v = uint32(r-'2') + 26
		default:
			// whitespace, hyphens, '=' padding and anything else
			continue
		}
		buf = buf<<5 | v
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buf>>bits))
		}
	}
	return out
}

// validateOathParams checks an already-decoded provisioning request. TOTP
// accepts the two standard periods; HOTP carries a starting counter instead.
func validateOathParams(p AddOathParams) error {
	if len(p.Secret) == 0 {
		return faults.New(faults.KindNotSupported, "oath secret is empty")
	}
	if p.Account == "" {
		return faults.New(faults.KindNotSupported, "oath account name is required")
	}
	if p.Digits != 6 && p.Digits != 8 {
		return faults.New(faults.KindNotSupported, "oath digits must be 6 or 8, got %d", p.Digits)
	}
	switch p.Type {
	case OathTOTP:
		if p.Period != 30 && p.Period != 60 {
			return faults.New(faults.KindNotSupported, "totp period must be 30 or 60 seconds, got %d", p.Period)
		}
	case OathHOTP:
		// counter starts wherever the operator says, zero included
	default:
		return faults.New(faults.KindNotSupported, "unknown oath type %q", p.Type)
	}
	return nil
}
