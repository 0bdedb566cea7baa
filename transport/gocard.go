package transport

import (
	"encoding/hex"
	"log"

	"github.com/pkg/errors"
	"github.com/sf1/go-card/smartcard"
)

// GoCardReader is a transceiver over the go-card PC/SC wrapper. It waits
// for a card to appear, which makes it the better fit for interactive
// flows where the card is tapped after the tool started.
type GoCardReader struct {
	context *smartcard.Context
	card    *smartcard.Card
	Debug   bool
}

// ConnectGoCard establishes a context, waits for a card to be present and
// connects to it.
func ConnectGoCard() (*GoCardReader, error) {
	context, err := smartcard.EstablishContext()
	if err != nil {
		return nil, errors.Wrap(err, "establishing context")
	}

	reader, err := context.WaitForCardPresent()
	if err != nil {
		context.Release()
		return nil, errors.Wrap(err, "waiting for card")
	}

	card, err := reader.Connect()
	if err != nil {
		context.Release()
		return nil, errors.Wrap(err, "connecting to card")
	}

	return &GoCardReader{context: context, card: card}, nil
}

// Transceive sends a raw command APDU to the card and returns the raw
// response.
func (r *GoCardReader) Transceive(cmd []byte) ([]byte, error) {
	if r.Debug {
		log.Printf("+++ %s", hex.EncodeToString(cmd))
	}

	resp, err := r.card.TransmitAPDU(cmd)
	if err != nil {
		return nil, errors.Wrap(err, "transmitting command")
	}

	if r.Debug {
		log.Printf("--- %s", hex.EncodeToString(resp))
	}

	return resp, nil
}

// IsConnected reports whether a card connection is held.
func (r *GoCardReader) IsConnected() bool {
	return r.card != nil
}

// Close disconnects from the card and releases the context.
func (r *GoCardReader) Close() error {
	if r.card != nil {
		if err := r.card.Disconnect(); err != nil {
			return err
		}
		r.card = nil
	}

	return r.context.Release()
}
