package globalplatform

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/lomocoin/nextouch-sdk-go/apdu"
)

// ErrBadCryptogram is returned when the cryptogram sent by the card does not
// match the one computed from the derived session keys. The card failed to
// prove possession of the static keys and no channel must be established.
var ErrBadCryptogram = errors.New("invalid card cryptogram")

// Session holds the keys and challenges of one SCP02 secure channel
// instance. A Session is only ever created after the card cryptogram
// verified; it lives until the channel is discarded.
type Session struct {
	keys          *SCP02Keys
	cardChallenge []byte
	hostChallenge []byte
}

// NewSession derives session keys from the static card keys and the
// INITIALIZE UPDATE response, verifies the card cryptogram and returns the
// authenticated session. The response layout is 10 bytes of key
// diversification data, 2 bytes of key information, the 2-byte sequence
// counter, the 6 remaining card challenge bytes and the 8-byte card
// cryptogram.
func NewSession(cardKeys *SCP02Keys, resp *apdu.Response, hostChallenge []byte) (*Session, error) {
	if resp.Sw == apdu.SwSecurityConditionNotSatisfied {
		return nil, apdu.NewErrBadResponse(resp.Sw, "security condition not satisfied")
	}

	if resp.Sw == apdu.SwAuthenticationMethodBlocked {
		return nil, apdu.NewErrBadResponse(resp.Sw, "authentication method blocked")
	}

	if len(resp.Data) != 28 {
		return nil, apdu.NewErrBadResponse(resp.Sw, fmt.Sprintf("bad data length, expected 28, got %d", len(resp.Data)))
	}

	cardChallenge := resp.Data[12:20]
	cardCryptogram := resp.Data[20:28]
	seq := resp.Data[12:14]

	sessionEncKey, err := deriveKey(cardKeys.Enc(), seq, derivationPurposeEnc)
	if err != nil {
		return nil, errors.Wrap(err, "deriving session ENC key")
	}

	sessionMacKey, err := deriveKey(cardKeys.Mac(), seq, derivationPurposeMac)
	if err != nil {
		return nil, errors.Wrap(err, "deriving session MAC key")
	}

	sessionDekKey, err := deriveKey(cardKeys.Dek(), seq, derivationPurposeDek)
	if err != nil {
		return nil, errors.Wrap(err, "deriving session DEK key")
	}

	sessionKeys := NewSCP02Keys(sessionEncKey, sessionMacKey, sessionDekKey)

	verified, err := verifyCryptogram(sessionKeys.Enc(), hostChallenge, cardChallenge, cardCryptogram)
	if err != nil {
		return nil, err
	}

	if !verified {
		return nil, ErrBadCryptogram
	}

	return &Session{
		keys:          sessionKeys,
		cardChallenge: cardChallenge,
		hostChallenge: hostChallenge,
	}, nil
}

// Keys returns the session key set.
func (s *Session) Keys() *SCP02Keys {
	return s.keys
}

// CardChallenge returns the 8-byte card challenge, sequence counter
// included.
func (s *Session) CardChallenge() []byte {
	return s.cardChallenge
}

// HostChallenge returns the host challenge this session was negotiated
// with.
func (s *Session) HostChallenge() []byte {
	return s.hostChallenge
}
