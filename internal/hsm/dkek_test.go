package hsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picokeys/pico-bridge/internal/faults"
)

func TestSealOpenShareRoundTrip(t *testing.T) {
	share := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}

	sealed, err := SealShare(share, "correct horse")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), string(share), "share must not appear in plaintext")

	got, err := OpenShare(sealed, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, share, got)
}

func TestOpenShareWrongPassword(t *testing.T) {
	sealed, err := SealShare([]byte{1, 2, 3}, "right")
	require.NoError(t, err)

	_, err = OpenShare(sealed, "wrong")
	assert.ErrorIs(t, err, faults.ErrAuthenticationFailed)
}

func TestOpenShareRejectsGarbage(t *testing.T) {
	_, err := OpenShare([]byte("not a container"), "pw")
	assert.Error(t, err)

	_, err = OpenShare(nil, "pw")
	assert.Error(t, err)
}

func TestOpenShareRejectsTampering(t *testing.T) {
	sealed, err := SealShare([]byte{1, 2, 3, 4}, "pw")
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = OpenShare(sealed, "pw")
	assert.ErrorIs(t, err, faults.ErrAuthenticationFailed)
}

func TestSealShareEmptyInput(t *testing.T) {
	_, err := SealShare(nil, "pw")
	assert.Error(t, err)
}

func TestSealShareFreshSaltPerCall(t *testing.T) {
	a, err := SealShare([]byte{9, 9, 9}, "pw")
	require.NoError(t, err)
	b, err := SealShare([]byte{9, 9, 9}, "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
