package apdu

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status words used across the GlobalPlatform command set.
const (
	SwOK                            = uint16(0x9000)
	SwReferencedDataNotFound        = uint16(0x6A88)
	SwSecurityConditionNotSatisfied = uint16(0x6982)
	SwAuthenticationMethodBlocked   = uint16(0x6983)

	// Sw1MoreDataAvailable is the high status byte signaling that the card
	// holds more response data, retrievable with GET RESPONSE.
	Sw1MoreDataAvailable = uint8(0x61)
)

// Response is an ISO 7816-4 response APDU. Data never contains the trailing
// status bytes.
type Response struct {
	Data []byte
	Sw1  uint8
	Sw2  uint8
	Sw   uint16
}

// ErrBadResponse is returned when the card answered with an unexpected
// status word. It carries the raw status word so that callers can tolerate
// specific codes.
type ErrBadResponse struct {
	Sw      uint16
	message string
}

// NewErrBadResponse returns a new ErrBadResponse with the given status word
// and description.
func NewErrBadResponse(sw uint16, message string) *ErrBadResponse {
	return &ErrBadResponse{
		Sw:      sw,
		message: message,
	}
}

func (e *ErrBadResponse) Error() string {
	return fmt.Sprintf("card response error: %x (%s)", e.Sw, e.message)
}

// ParseResponse parses a raw card response into data and status word. A
// response shorter than the 2 status bytes is a malformed frame.
func ParseResponse(raw []byte) (*Response, error) {
	if len(raw) < 2 {
		return nil, errors.Errorf("apdu: response must be at least 2 bytes, got %d", len(raw))
	}

	sw1 := raw[len(raw)-2]
	sw2 := raw[len(raw)-1]

	return &Response{
		Data: raw[:len(raw)-2],
		Sw1:  sw1,
		Sw2:  sw2,
		Sw:   uint16(sw1)<<8 | uint16(sw2),
	}, nil
}

// IsOK reports whether the status word is 0x9000.
func (r *Response) IsOK() bool {
	return r.Sw == SwOK
}

// HasMoreData reports whether the status word signals pending response data
// (0x61XX). Sw2 is the number of bytes still available.
func (r *Response) HasMoreData() bool {
	return r.Sw1 == Sw1MoreDataAvailable
}
