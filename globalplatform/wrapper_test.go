package globalplatform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lomocoin/nextouch-sdk-go/apdu"
)

func helperSessionKeys(t *testing.T) *SCP02Keys {
	t.Helper()

	seq := []byte{0x00, 0x2A}
	enc, err := deriveKey(CardTestKey, seq, derivationPurposeEnc)
	require.NoError(t, err)
	mac, err := deriveKey(CardTestKey, seq, derivationPurposeMac)
	require.NoError(t, err)
	dek, err := deriveKey(CardTestKey, seq, derivationPurposeDek)
	require.NoError(t, err)

	return NewSCP02Keys(enc, mac, dek)
}

func TestWrapAppendsMacAndMarksClass(t *testing.T) {
	w := NewAPDUWrapper(helperSessionKeys(t), false)

	data := []byte{0x4F, 0x00}
	cmd := apdu.NewCommand(0x80, 0xE4, 0x00, 0x80, data)

	wrapped, err := w.Wrap(cmd)
	require.NoError(t, err)

	assert.Equal(t, uint8(0x84), wrapped.Cla)
	assert.Equal(t, cmd.Ins, wrapped.Ins)
	require.Equal(t, len(data)+8, len(wrapped.Data))
	assert.Equal(t, data, wrapped.Data[:len(data)])
}

func TestWrapAdvancesChainingValue(t *testing.T) {
	w := NewAPDUWrapper(helperSessionKeys(t), false)

	cmd := apdu.NewCommand(0x80, 0xE6, 0x02, 0x00, []byte{0x01, 0x02, 0x03})

	first, err := w.Wrap(cmd)
	require.NoError(t, err)
	second, err := w.Wrap(cmd)
	require.NoError(t, err)

	// identical commands must never produce the same MAC
	assert.NotEqual(t, first.Data[3:], second.Data[3:])
}

func TestWrapPreservesLe(t *testing.T) {
	w := NewAPDUWrapper(helperSessionKeys(t), false)

	cmd := apdu.NewCommand(0x80, 0xCA, 0x9F, 0x7F, nil)
	cmd.SetLe(0x00)

	wrapped, err := w.Wrap(cmd)
	require.NoError(t, err)

	hasLe, le := wrapped.Le()
	assert.True(t, hasLe)
	assert.Equal(t, uint8(0x00), le)
}

func TestWrapEncryptsDataWhenRequested(t *testing.T) {
	keys := helperSessionKeys(t)
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	w := NewAPDUWrapper(keys, true)
	wrapped, err := w.Wrap(apdu.NewCommand(0x80, 0xE6, 0x0C, 0x00, data))
	require.NoError(t, err)

	// padded to one block plus the 8-byte MAC
	require.Equal(t, 16, len(wrapped.Data))

	decrypted, err := decrypt3DESCBC(keys.Enc(), nullBytes8, wrapped.Data[:8])
	require.NoError(t, err)
	assert.Equal(t, data, decrypted[:len(data)])
	assert.Equal(t, byte(0x80), decrypted[len(data)])
}
