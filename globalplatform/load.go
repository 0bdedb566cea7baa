package globalplatform

import (
	"io"

	"github.com/pkg/errors"

	"github.com/lomocoin/nextouch-sdk-go/apdu"
)

// blockSize is the data length of a single LOAD command: 255 bytes minus
// the 8-byte C-MAC added by secure messaging.
const blockSize = 247

// LoadCommandStream splits a CAP file into LOAD commands. The stream is
// finite and forward-only; a failed load cannot be resumed because the card
// has already advanced, the caller must restart from INSTALL [for LOAD].
type LoadCommandStream struct {
	data        []byte
	index       uint8
	blocksCount int
	started     bool
}

// NewLoadCommandStream reads the whole package and returns a stream of its
// load blocks.
func NewLoadCommandStream(file io.Reader) (*LoadCommandStream, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrap(err, "reading package")
	}

	if len(data) == 0 {
		return nil, errors.New("package is empty")
	}

	return &LoadCommandStream{
		data:        data,
		blocksCount: (len(data) + blockSize - 1) / blockSize,
	}, nil
}

// BlocksCount returns the total number of blocks the package splits into.
func (lcs *LoadCommandStream) BlocksCount() int {
	return lcs.blocksCount
}

// Next advances to the next block. It returns false when the stream is
// exhausted.
func (lcs *LoadCommandStream) Next() bool {
	if !lcs.started {
		lcs.started = true
		return len(lcs.data) > 0
	}

	if len(lcs.data) <= blockSize {
		lcs.data = nil
		return false
	}

	lcs.data = lcs.data[blockSize:]
	lcs.index++

	return true
}

// Index returns the current block number, starting at 0.
func (lcs *LoadCommandStream) Index() uint8 {
	return lcs.index
}

// HasMore reports whether blocks remain after the current one.
func (lcs *LoadCommandStream) HasMore() bool {
	return len(lcs.data) > blockSize
}

// GetCommand returns the LOAD command for the current block.
func (lcs *LoadCommandStream) GetCommand() *apdu.Command {
	block := lcs.data
	if len(block) > blockSize {
		block = block[:blockSize]
	}

	return NewCommandLoad(block, lcs.index, lcs.HasMore())
}
