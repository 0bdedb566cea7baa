// Package transport provides byte-level transceivers for reaching a card:
// PC/SC readers and AT modems with a SIM interface. Every transceiver
// exchanges raw APDU frames and reports connection state.
package transport

import (
	"encoding/hex"
	"log"

	"github.com/ebfe/scard"
	"github.com/pkg/errors"
)

// PCSCReader is a transceiver over a PC/SC smart card reader.
type PCSCReader struct {
	context *scard.Context
	card    *scard.Card
	Debug   bool
}

// ConnectPCSC establishes a PC/SC context and connects to the card in the
// given reader. An empty reader name picks the first reader with a card.
func ConnectPCSC(reader string) (*PCSCReader, error) {
	context, err := scard.EstablishContext()
	if err != nil {
		return nil, errors.Wrap(err, "establishing PC/SC context")
	}

	readers, err := context.ListReaders()
	if err != nil {
		context.Release()
		return nil, errors.Wrap(err, "listing readers")
	}

	if len(readers) == 0 {
		context.Release()
		return nil, errors.New("no smart card readers found")
	}

	if reader == "" {
		reader = readers[0]
	}

	card, err := context.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		context.Release()
		return nil, errors.Wrapf(err, "connecting to reader %s", reader)
	}

	return &PCSCReader{context: context, card: card}, nil
}

// Transceive sends a raw command APDU to the card and returns the raw
// response.
func (r *PCSCReader) Transceive(cmd []byte) ([]byte, error) {
	if r.Debug {
		log.Printf("+++ %s", hex.EncodeToString(cmd))
	}

	resp, err := r.card.Transmit(cmd)
	if err != nil {
		return nil, errors.Wrap(err, "transmitting command")
	}

	if r.Debug {
		log.Printf("--- %s", hex.EncodeToString(resp))
	}

	return resp, nil
}

// IsConnected reports whether the card is still reachable.
func (r *PCSCReader) IsConnected() bool {
	if r.card == nil {
		return false
	}

	_, err := r.card.Status()

	return err == nil
}

// Close disconnects from the card and releases the PC/SC context.
func (r *PCSCReader) Close() error {
	if r.card != nil {
		if err := r.card.Disconnect(scard.LeaveCard); err != nil {
			return err
		}
		r.card = nil
	}

	return r.context.Release()
}
