package globalplatform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendDESPaddingAlignedInput(t *testing.T) {
	for _, length := range []int{0, 8, 16, 1024} {
		padded := appendDESPadding(make([]byte, length))
		assert.Equal(t, length+8, len(padded), "input length %d", length)
		assert.Equal(t, byte(0x80), padded[length])
		for _, b := range padded[length+1:] {
			assert.Equal(t, byte(0x00), b)
		}
	}
}

func TestAppendDESPaddingUnalignedInput(t *testing.T) {
	for length := 1; length < 8; length++ {
		padded := appendDESPadding(make([]byte, length))
		assert.Equal(t, 8, len(padded), "input length %d", length)
		assert.Equal(t, byte(0x80), padded[length])
	}

	padded := appendDESPadding(make([]byte, 13))
	assert.Equal(t, 16, len(padded))
}

func TestMac3DESDeterministic(t *testing.T) {
	data := appendDESPadding([]byte("host0000card0000"))

	mac1, err := mac3DES(CardTestKey, data, nullBytes8)
	require.NoError(t, err)
	mac2, err := mac3DES(CardTestKey, data, nullBytes8)
	require.NoError(t, err)

	assert.Equal(t, 8, len(mac1))
	assert.Equal(t, mac1, mac2)
}

func TestMac3DESAvalanche(t *testing.T) {
	data := appendDESPadding([]byte("host0000card0000"))
	flipped := append([]byte{}, data...)
	flipped[0] ^= 0x01

	mac1, err := mac3DES(CardTestKey, data, nullBytes8)
	require.NoError(t, err)
	mac2, err := mac3DES(CardTestKey, flipped, nullBytes8)
	require.NoError(t, err)

	assert.NotEqual(t, mac1, mac2)
}

func TestMac3DESRejectsUnalignedInput(t *testing.T) {
	_, err := mac3DES(CardTestKey, []byte{0x01, 0x02, 0x03}, nullBytes8)
	assert.Error(t, err)
}

func TestMac3DESRejectsShortKey(t *testing.T) {
	_, err := mac3DES([]byte{0x01, 0x02}, make([]byte, 8), nullBytes8)
	assert.Error(t, err)
}

func TestMacFull3DESChaining(t *testing.T) {
	data := []byte{0x84, 0x82, 0x01, 0x00, 0x10, 0xAA, 0xBB}

	mac1, err := macFull3DES(CardTestKey, data, nullBytes8)
	require.NoError(t, err)
	require.Equal(t, 8, len(mac1))

	// a different chaining value must change the MAC of identical data
	mac2, err := macFull3DES(CardTestKey, data, mac1)
	require.NoError(t, err)
	assert.NotEqual(t, mac1, mac2)
}

func TestDeriveKeyDistinctPurposes(t *testing.T) {
	seq := []byte{0x00, 0x2A}

	enc, err := deriveKey(CardTestKey, seq, derivationPurposeEnc)
	require.NoError(t, err)
	mac, err := deriveKey(CardTestKey, seq, derivationPurposeMac)
	require.NoError(t, err)
	dek, err := deriveKey(CardTestKey, seq, derivationPurposeDek)
	require.NoError(t, err)

	assert.Equal(t, 16, len(enc))
	assert.NotEqual(t, enc, mac)
	assert.NotEqual(t, enc, dek)
	assert.NotEqual(t, mac, dek)
}

func TestDeriveKeyDependsOnSequence(t *testing.T) {
	key1, err := deriveKey(CardTestKey, []byte{0x00, 0x01}, derivationPurposeEnc)
	require.NoError(t, err)
	key2, err := deriveKey(CardTestKey, []byte{0x00, 0x02}, derivationPurposeEnc)
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)
}

func TestDeriveKeyRejectsWrongKeyLength(t *testing.T) {
	_, err := deriveKey(make([]byte, 8), []byte{0x00, 0x01}, derivationPurposeEnc)
	assert.Error(t, err)
}

func TestVerifyCryptogram(t *testing.T) {
	hostChallenge := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	cardChallenge := []byte{8, 7, 6, 5, 4, 3, 2, 1}

	data := append(append([]byte{}, hostChallenge...), cardChallenge...)
	expected, err := mac3DES(CardTestKey, appendDESPadding(data), nullBytes8)
	require.NoError(t, err)

	ok, err := verifyCryptogram(CardTestKey, hostChallenge, cardChallenge, expected)
	require.NoError(t, err)
	assert.True(t, ok)

	expected[0] ^= 0xFF
	ok, err = verifyCryptogram(CardTestKey, hostChallenge, cardChallenge, expected)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncryptDecrypt3DESCBCRoundTrip(t *testing.T) {
	plaintext := appendDESPadding([]byte("applet parameters"))

	ciphertext, err := encrypt3DESCBC(CardTestKey, nullBytes8, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := decrypt3DESCBC(CardTestKey, nullBytes8, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncrypt3DESCBCRejectsUnalignedInput(t *testing.T) {
	_, err := encrypt3DESCBC(CardTestKey, nullBytes8, []byte{0x01})
	assert.Error(t, err)
}

func TestResizeKey24(t *testing.T) {
	key := resizeKey24(CardTestKey)
	assert.Equal(t, 24, len(key))
	assert.Equal(t, CardTestKey, key[:16])
	assert.Equal(t, CardTestKey[:8], key[16:])
}
