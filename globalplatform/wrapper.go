package globalplatform

import (
	"bytes"
	"encoding/binary"

	"github.com/lomocoin/nextouch-sdk-go/apdu"
)

// APDUWrapper applies SCP02 secure messaging to outgoing commands: a C-MAC
// chained from the previous one and, when confidentiality is requested,
// 3DES-CBC encryption of the data field. The chaining value only moves
// forward, it is never rewound, not even when the card rejects a command.
type APDUWrapper struct {
	keys        *SCP02Keys
	icv         []byte
	encryptData bool
}

// NewAPDUWrapper returns a wrapper using the given session keys. The ICV
// starts at zero for the first command after authentication. When encrypt is
// true the data field of every wrapped command is encrypted with the session
// ENC key before the MAC is computed.
func NewAPDUWrapper(keys *SCP02Keys, encrypt bool) *APDUWrapper {
	return &APDUWrapper{
		keys:        keys,
		icv:         nullBytes8,
		encryptData: encrypt,
	}
}

// Wrap returns a copy of cmd carrying the C-MAC appended to the data field,
// with the class byte marked for secure messaging and Lc grown accordingly.
func (w *APDUWrapper) Wrap(cmd *apdu.Command) (*apdu.Command, error) {
	cla := cmd.Cla | 0x04

	data := cmd.Data
	if w.encryptData && len(data) > 0 {
		var err error
		data, err = encrypt3DESCBC(w.keys.Enc(), nullBytes8, appendDESPadding(data))
		if err != nil {
			return nil, err
		}
	}

	macData := new(bytes.Buffer)
	for _, b := range []uint8{cla, cmd.Ins, cmd.P1, cmd.P2, uint8(len(data) + 8)} {
		if err := binary.Write(macData, binary.BigEndian, b); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(macData, binary.BigEndian, data); err != nil {
		return nil, err
	}

	icv := w.icv
	if !bytes.Equal(icv, nullBytes8) {
		var err error
		icv, err = encryptICV(w.keys.Mac(), icv)
		if err != nil {
			return nil, err
		}
	}

	mac, err := macFull3DES(w.keys.Mac(), macData.Bytes(), icv)
	if err != nil {
		return nil, err
	}

	w.icv = mac

	newData := make([]byte, 0, len(data)+len(mac))
	newData = append(newData, data...)
	newData = append(newData, mac...)

	wrapped := apdu.NewCommand(cla, cmd.Ins, cmd.P1, cmd.P2, newData)
	if ok, le := cmd.Le(); ok {
		wrapped.SetLe(le)
	}

	return wrapped, nil
}
