package globalplatform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helperCPLCData(t *testing.T) []byte {
	t.Helper()

	data := make([]byte, cplcLength)
	for i := range data {
		data[i] = byte(i)
	}

	return data
}

func TestParseCPLC(t *testing.T) {
	cplc, err := ParseCPLC(helperCPLCData(t))
	require.NoError(t, err)

	assert.Equal(t, []byte{0x00, 0x01}, cplc.ICFabricator)
	assert.Equal(t, []byte{0x02, 0x03}, cplc.ICType)
	assert.Equal(t, []byte{0x0C, 0x0D, 0x0E, 0x0F}, cplc.ICSerialNumber)
	assert.Equal(t, []byte{0x10, 0x11}, cplc.ICBatchIdentifier)
	assert.Equal(t, []byte{0x26, 0x27, 0x28, 0x29}, cplc.ICPersonalizationEquipmentID)
}

func TestParseCPLCWithTag(t *testing.T) {
	raw := append([]byte{0x9F, 0x7F, cplcLength}, helperCPLCData(t)...)

	cplc, err := ParseCPLC(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01}, cplc.ICFabricator)
}

func TestParseCPLCTooShort(t *testing.T) {
	_, err := ParseCPLC(make([]byte, 10))
	assert.Error(t, err)
}

func TestCardUniqueIdentifier(t *testing.T) {
	cplc, err := ParseCPLC(helperCPLCData(t))
	require.NoError(t, err)

	// fabricator | type | batch | serial
	assert.Equal(t, "0001020310110c0d0e0f", cplc.CardUniqueIdentifier())
}

func TestCPLCUUIDStable(t *testing.T) {
	cplc1, err := ParseCPLC(helperCPLCData(t))
	require.NoError(t, err)
	cplc2, err := ParseCPLC(helperCPLCData(t))
	require.NoError(t, err)

	assert.Equal(t, cplc1.UUID(), cplc2.UUID())

	other := helperCPLCData(t)
	other[0] = 0xFF
	cplc3, err := ParseCPLC(other)
	require.NoError(t, err)
	assert.NotEqual(t, cplc1.UUID(), cplc3.UUID())
}
