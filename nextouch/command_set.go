// Package nextouch talks to the NExTouch U2F applet. The applet commands
// are sent over a plain channel; the applet enforces its own presence and
// enrollment checks.
package nextouch

import (
	"github.com/pkg/errors"

	"github.com/lomocoin/nextouch-sdk-go/apdu"
	"github.com/lomocoin/nextouch-sdk-go/globalplatform"
)

const (
	claISO7816 = uint8(0x00)
	claInit    = uint8(0x80)
	claCert    = uint8(0xF0)

	insEnroll  = uint8(0x01)
	insSign    = uint8(0x02)
	insInit    = uint8(0xFE)
	insSetCert = uint8(0x01)

	p1U2FMessage = uint8(0x03)

	// the applet accepts the attestation certificate in three windows
	certPartLen = 128
)

// CommandSet sends NExTouch applet commands over a channel.
type CommandSet struct {
	c globalplatform.Channel
}

// NewCommandSet returns a CommandSet over the given channel.
func NewCommandSet(c globalplatform.Channel) *CommandSet {
	return &CommandSet{c: c}
}

// Select selects the NExTouch applet instance.
func (cs *CommandSet) Select() error {
	cmd := globalplatform.NewCommandSelect(globalplatform.U2FAID)

	return cs.checkOK(cs.c.Send(cmd))
}

// Enroll sends a U2F registration message and returns the raw applet
// response.
func (cs *CommandSet) Enroll(param []byte) (*apdu.Response, error) {
	cmd := apdu.NewCommand(claISO7816, insEnroll, p1U2FMessage, uint8(0x00), param)

	return cs.c.Send(cmd)
}

// Sign sends a U2F authentication message and returns the raw applet
// response.
func (cs *CommandSet) Sign(param []byte) (*apdu.Response, error) {
	cmd := apdu.NewCommand(claISO7816, insSign, p1U2FMessage, uint8(0x00), param)

	return cs.c.Send(cmd)
}

// SetAttestationCert uploads the attestation certificate in three parts.
// The certificate must be longer than two certificate windows.
func (cs *CommandSet) SetAttestationCert(cert []byte) error {
	if len(cert) <= 2*certPartLen {
		return errors.Errorf("attestation certificate too short: %d bytes", len(cert))
	}

	parts := []struct {
		p1, p2 uint8
		data   []byte
	}{
		{0x00, 0x00, cert[:certPartLen]},
		{0x00, 0x80, cert[certPartLen : 2*certPartLen]},
		{0x01, 0x00, cert[2*certPartLen:]},
	}

	for _, part := range parts {
		cmd := apdu.NewCommand(claCert, insSetCert, part.p1, part.p2, part.data)
		if err := cs.checkOK(cs.c.Send(cmd)); err != nil {
			return err
		}
	}

	return nil
}

// Init personalizes the applet with the PIN, the PUK and the pairing
// secret. The applet accepts it only once, before any enrollment.
func (cs *CommandSet) Init(pin, puk string, sharedSecret []byte) error {
	data := make([]byte, 0, len(pin)+len(puk)+len(sharedSecret))
	data = append(data, pin...)
	data = append(data, puk...)
	data = append(data, sharedSecret...)

	cmd := apdu.NewCommand(claInit, insInit, uint8(0x00), uint8(0x00), data)

	return cs.checkOK(cs.c.Send(cmd))
}

func (cs *CommandSet) checkOK(resp *apdu.Response, err error) error {
	if err != nil {
		return err
	}

	if resp.Sw != apdu.SwOK {
		return apdu.NewErrBadResponse(resp.Sw, "unexpected response")
	}

	return nil
}
