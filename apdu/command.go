// Package apdu implements serialization and deserialization of ISO 7816-4
// application protocol data units.
package apdu

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// maxCommandData is the maximum length of the data field of a short APDU.
const maxCommandData = 255

// Command is an ISO 7816-4 command APDU.
type Command struct {
	Cla  uint8
	Ins  uint8
	P1   uint8
	P2   uint8
	Data []byte

	requiresLe bool
	le         uint8
}

// NewCommand returns a new command APDU with the given header and data field.
func NewCommand(cla, ins, p1, p2 uint8, data []byte) *Command {
	return &Command{
		Cla:  cla,
		Ins:  ins,
		P1:   p1,
		P2:   p2,
		Data: data,
	}
}

// SetLe makes the command request a response of le bytes. Le 0x00 requests
// the full available response length.
func (c *Command) SetLe(le uint8) {
	c.requiresLe = true
	c.le = le
}

// Le returns the expected response length and whether it was set at all.
func (c *Command) Le() (bool, uint8) {
	return c.requiresLe, c.le
}

// Serialize encodes the command as CLA INS P1 P2 [Lc DATA] [Le].
// Lc and the data field are omitted when the data field is empty.
func (c *Command) Serialize() ([]byte, error) {
	if len(c.Data) > maxCommandData {
		return nil, errors.Errorf("apdu: command data length exceeds %d bytes, got %d", maxCommandData, len(c.Data))
	}

	buf := new(bytes.Buffer)
	for _, b := range []uint8{c.Cla, c.Ins, c.P1, c.P2} {
		if err := binary.Write(buf, binary.BigEndian, b); err != nil {
			return nil, err
		}
	}

	if len(c.Data) > 0 {
		if err := binary.Write(buf, binary.BigEndian, uint8(len(c.Data))); err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.BigEndian, c.Data); err != nil {
			return nil, err
		}
	}

	if c.requiresLe {
		if err := binary.Write(buf, binary.BigEndian, c.le); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
