package globalplatform

import (
	"encoding/hex"
	"log"

	"github.com/pkg/errors"

	"github.com/lomocoin/nextouch-sdk-go/apdu"
)

// Transmitter is a byte-oriented transceiver to the card, supplied by a
// platform transport binding. One command is outstanding at a time.
type Transmitter interface {
	Transceive(cmd []byte) ([]byte, error)
	IsConnected() bool
}

// Channel sends a command APDU and returns the fully assembled response.
// Plain transports, secure channels and applet command sets all share this
// one abstraction.
type Channel interface {
	Send(cmd *apdu.Command) (*apdu.Response, error)
}

// NormalChannel is an unsecured Channel over a Transmitter. It runs the
// GET RESPONSE loop transparently: 0x61XX status words trigger retrieval of
// the pending response data until a final status word arrives, and callers
// see one logical response regardless of how many exchanges happened.
type NormalChannel struct {
	t     Transmitter
	Debug bool
}

// NewNormalChannel returns a Channel over the given transmitter.
func NewNormalChannel(t Transmitter) *NormalChannel {
	return &NormalChannel{t: t}
}

// Send transmits cmd and assembles the response across as many GET RESPONSE
// exchanges as the card asks for. Error status words are not errors at this
// layer, the caller branches on the returned status word.
func (c *NormalChannel) Send(cmd *apdu.Command) (*apdu.Response, error) {
	raw, err := cmd.Serialize()
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0)

	for {
		if c.Debug {
			log.Printf(">> %s", hex.EncodeToString(raw))
		}

		rawResp, err := c.t.Transceive(raw)
		if err != nil {
			return nil, errors.Wrap(err, "transmit failed")
		}

		if c.Debug {
			log.Printf("<< %s", hex.EncodeToString(rawResp))
		}

		resp, err := apdu.ParseResponse(rawResp)
		if err != nil {
			return nil, err
		}

		data = append(data, resp.Data...)

		if !resp.HasMoreData() {
			return &apdu.Response{
				Data: data,
				Sw1:  resp.Sw1,
				Sw2:  resp.Sw2,
				Sw:   resp.Sw,
			}, nil
		}

		raw, err = NewCommandGetResponse(resp.Sw2).Serialize()
		if err != nil {
			return nil, err
		}
	}
}

// SecureChannel wraps an open channel and an authenticated session so that
// every command goes out under secure messaging.
type SecureChannel struct {
	session *Session
	c       Channel
	w       *APDUWrapper
}

// NewSecureChannel returns a Channel that wraps every command with the
// session keys before sending it over c.
func NewSecureChannel(session *Session, c Channel) *SecureChannel {
	return &SecureChannel{
		session: session,
		c:       c,
		w:       NewAPDUWrapper(session.Keys(), false),
	}
}

// Send wraps cmd and transmits it over the underlying channel.
func (c *SecureChannel) Send(cmd *apdu.Command) (*apdu.Response, error) {
	wrapped, err := c.w.Wrap(cmd)
	if err != nil {
		return nil, err
	}

	return c.c.Send(wrapped)
}
