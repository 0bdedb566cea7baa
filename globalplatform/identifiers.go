package globalplatform

import "github.com/pkg/errors"

// Application identifiers of the NExTouch card family.
var (
	// CardManagerAID is the AID of the issuer security domain.
	CardManagerAID = []byte{0xA0, 0x00, 0x00, 0x01, 0x51, 0x00, 0x00, 0x00}

	// CardTestKey is the default SCP02 key of factory cards. It is a known
	// weak baseline and must be overridden on provisioned cards.
	CardTestKey = []byte{0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48, 0x49, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F}

	PackageAID = []byte{0xA0, 0x00, 0x00, 0x08, 0x04, 0x00, 0x01}

	KeycardAID = []byte{0xA0, 0x00, 0x00, 0x08, 0x04, 0x00, 0x01, 0x01}

	NdefAID         = []byte{0xA0, 0x00, 0x00, 0x08, 0x04, 0x00, 0x01, 0x02}
	NdefInstanceAID = []byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}

	U2FPackageAID  = []byte{0xA0, 0x00, 0x00, 0x06, 0x47, 0x2F, 0x00, 0x00}
	U2FAID         = []byte{0xA0, 0x00, 0x00, 0x06, 0x47, 0x2F, 0x00, 0x01}
	U2FInstanceAID = []byte{0xA0, 0x00, 0x00, 0x06, 0x47, 0x2F, 0x00, 0x01}
)

// KeycardDefaultInstanceIndex is the instance index of the default Keycard
// applet instance.
const KeycardDefaultInstanceIndex = 1

// KeycardInstanceAID returns the instance AID of the Keycard applet with the
// given index. Multiple instances can be installed in parallel; the index
// must be between 0x01 and 0xFF.
func KeycardInstanceAID(index int) ([]byte, error) {
	if index < 0x01 || index > 0xFF {
		return nil, errors.Errorf("instance index must be between 1 and 255, got %d", index)
	}

	aid := make([]byte, 0, len(KeycardAID)+1)
	aid = append(aid, KeycardAID...)
	aid = append(aid, byte(index))

	return aid, nil
}
