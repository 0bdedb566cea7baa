package globalplatform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lomocoin/nextouch-sdk-go/apdu"
)

// helperInitializeUpdateResponse builds the 28-byte INITIALIZE UPDATE
// response of a card holding cardKeys: key diversification data, key
// information, the card challenge starting with seq, and the card
// cryptogram computed from the derived session ENC key.
func helperInitializeUpdateResponse(t *testing.T, cardKeys *SCP02Keys, hostChallenge, seq []byte) *apdu.Response {
	t.Helper()

	cardChallenge := make([]byte, 8)
	copy(cardChallenge, seq)
	copy(cardChallenge[2:], []byte{0xC1, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6})

	sessionEncKey, err := deriveKey(cardKeys.Enc(), seq, derivationPurposeEnc)
	require.NoError(t, err)

	challenges := append(append([]byte{}, hostChallenge...), cardChallenge...)
	cryptogram, err := mac3DES(sessionEncKey, appendDESPadding(challenges), nullBytes8)
	require.NoError(t, err)

	data := make([]byte, 0, 28)
	data = append(data, []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}...) // diversification data
	data = append(data, 0x20, 0x02)                                                            // key version, SCP ID
	data = append(data, cardChallenge...)
	data = append(data, cryptogram...)

	return &apdu.Response{Data: data, Sw1: 0x90, Sw2: 0x00, Sw: apdu.SwOK}
}

func TestNewSession(t *testing.T) {
	cardKeys := NewSCP02Keys(CardTestKey, CardTestKey, CardTestKey)
	hostChallenge := []byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17}
	seq := []byte{0x00, 0x05}

	resp := helperInitializeUpdateResponse(t, cardKeys, hostChallenge, seq)

	session, err := NewSession(cardKeys, resp, hostChallenge)
	require.NoError(t, err)

	assert.Equal(t, hostChallenge, session.HostChallenge())
	assert.Equal(t, resp.Data[12:20], session.CardChallenge())
	assert.Equal(t, 16, len(session.Keys().Enc()))
	assert.Equal(t, 16, len(session.Keys().Mac()))
	assert.Equal(t, 16, len(session.Keys().Dek()))
	assert.NotEqual(t, session.Keys().Enc(), session.Keys().Mac())
}

func TestNewSessionBadCryptogram(t *testing.T) {
	cardKeys := NewSCP02Keys(CardTestKey, CardTestKey, CardTestKey)
	hostChallenge := []byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17}

	// the card computed its cryptogram with the wrong static key
	wrongKey := make([]byte, 16)
	copy(wrongKey, CardTestKey)
	wrongKey[0] ^= 0xFF
	resp := helperInitializeUpdateResponse(t, NewSCP02Keys(wrongKey, wrongKey, wrongKey), hostChallenge, []byte{0x00, 0x05})

	session, err := NewSession(cardKeys, resp, hostChallenge)
	assert.Nil(t, session)
	assert.Equal(t, ErrBadCryptogram, err)
}

func TestNewSessionBadLength(t *testing.T) {
	cardKeys := NewSCP02Keys(CardTestKey, CardTestKey, CardTestKey)
	resp := &apdu.Response{Data: make([]byte, 27), Sw: apdu.SwOK}

	_, err := NewSession(cardKeys, resp, make([]byte, 8))
	require.Error(t, err)

	var badResp *apdu.ErrBadResponse
	assert.ErrorAs(t, err, &badResp)
}

func TestNewSessionBlockedCard(t *testing.T) {
	cardKeys := NewSCP02Keys(CardTestKey, CardTestKey, CardTestKey)

	for _, sw := range []uint16{apdu.SwSecurityConditionNotSatisfied, apdu.SwAuthenticationMethodBlocked} {
		resp := &apdu.Response{Sw: sw}
		_, err := NewSession(cardKeys, resp, make([]byte, 8))
		require.Error(t, err)

		var badResp *apdu.ErrBadResponse
		require.ErrorAs(t, err, &badResp)
		assert.Equal(t, sw, badResp.Sw)
	}
}
