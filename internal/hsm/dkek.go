package hsm

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/picokeys/pico-bridge/internal/faults"
)

// Sealed-share container layout: magic || version || salt || nonce || AES-GCM
// ciphertext. The password-derived key never touches the device; the container
// only protects the share at rest on the host side.
var shareMagic = []byte("PBDKEK")

const (
	shareVersion    = 1
	shareSaltLen    = 16
	sharePBKDF2Iter = 600_000
	shareKeyLen     = 32
)

// SealShare encrypts raw share bytes under a password.
func SealShare(share []byte, password string) ([]byte, error) {
	if len(share) == 0 {
		return nil, fmt.Errorf("empty share material")
	}
	salt := make([]byte, shareSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	gcm, err := shareCipher(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, len(shareMagic)+1+len(salt)+len(nonce)+len(share)+gcm.Overhead())
	out = append(out, shareMagic...)
	out = append(out, shareVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, share, nil), nil
}

// OpenShare decrypts a sealed container. A wrong password is
// indistinguishable from a corrupted container, both fail authentication.
func OpenShare(sealed []byte, password string) ([]byte, error) {
	header := len(shareMagic) + 1 + shareSaltLen
	if len(sealed) < header || !bytes.HasPrefix(sealed, shareMagic) {
		return nil, faults.New(faults.KindUnknown, "not a dkek share container")
	}
	if v := sealed[len(shareMagic)]; v != shareVersion {
		return nil, faults.New(faults.KindNotSupported, "unsupported share container version %d", v)
	}
	salt := sealed[len(shareMagic)+1 : header]

	gcm, err := shareCipher(password, salt)
	if err != nil {
		return nil, err
	}
	rest := sealed[header:]
	if len(rest) < gcm.NonceSize() {
		return nil, faults.New(faults.KindUnknown, "truncated dkek share container")
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	share, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("wrong password or corrupted share: %w", faults.ErrAuthenticationFailed)
	}
	return share, nil
}

func shareCipher(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, sharePBKDF2Iter, shareKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
