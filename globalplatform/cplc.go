package globalplatform

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// cplcLength is the size of the card production life cycle record.
const cplcLength = 42

// cplcUUIDNamespace is the namespace for card UUIDs derived from CPLC data.
var cplcUUIDNamespace = uuid.MustParse("8bbd7513-b351-4d1d-90bb-7f74a28c9dd7")

// CPLC is the card production life cycle record returned by GET DATA with
// tag 9F7F. All fields are raw big-endian byte groups as defined by the
// fixed layout.
type CPLC struct {
	ICFabricator                      []byte
	ICType                            []byte
	OperatingSystemID                 []byte
	OperatingSystemReleaseDate        []byte
	OperatingSystemReleaseLevel       []byte
	ICFabricationDate                 []byte
	ICSerialNumber                    []byte
	ICBatchIdentifier                 []byte
	ICModuleFabricator                []byte
	ICModulePackagingDate             []byte
	ICCManufacturer                   []byte
	ICEmbeddingDate                   []byte
	ICPrePersonalizer                 []byte
	ICPrePersonalizationEquipmentDate []byte
	ICPrePersonalizationEquipmentID   []byte
	ICPersonalizer                    []byte
	ICPersonalizationDate             []byte
	ICPersonalizationEquipmentID      []byte
}

// ParseCPLC parses a CPLC record. The record may carry the 9F7F tag and a
// length byte in front of the fixed-layout fields.
func ParseCPLC(data []byte) (*CPLC, error) {
	if len(data) >= 3 && data[0] == 0x9F && data[1] == 0x7F {
		data = data[3:]
	}

	if len(data) < cplcLength {
		return nil, errors.Errorf("CPLC record must be %d bytes, got %d", cplcLength, len(data))
	}

	cplc := &CPLC{}
	offset := 0

	next := func(n int) []byte {
		field := data[offset : offset+n]
		offset += n
		return field
	}

	cplc.ICFabricator = next(2)
	cplc.ICType = next(2)
	cplc.OperatingSystemID = next(2)
	cplc.OperatingSystemReleaseDate = next(2)
	cplc.OperatingSystemReleaseLevel = next(2)
	cplc.ICFabricationDate = next(2)
	cplc.ICSerialNumber = next(4)
	cplc.ICBatchIdentifier = next(2)
	cplc.ICModuleFabricator = next(2)
	cplc.ICModulePackagingDate = next(2)
	cplc.ICCManufacturer = next(2)
	cplc.ICEmbeddingDate = next(2)
	cplc.ICPrePersonalizer = next(2)
	cplc.ICPrePersonalizationEquipmentDate = next(2)
	cplc.ICPrePersonalizationEquipmentID = next(4)
	cplc.ICPersonalizer = next(2)
	cplc.ICPersonalizationDate = next(2)
	cplc.ICPersonalizationEquipmentID = next(4)

	return cplc, nil
}

// CardUniqueIdentifier returns a stable identifier derived from the IC
// fabricator, type, batch and serial fields.
func (c *CPLC) CardUniqueIdentifier() string {
	cuid := make([]byte, 0, 10)
	cuid = append(cuid, c.ICFabricator...)
	cuid = append(cuid, c.ICType...)
	cuid = append(cuid, c.ICBatchIdentifier...)
	cuid = append(cuid, c.ICSerialNumber...)

	return hex.EncodeToString(cuid)
}

// UUID derives a deterministic UUID for the card from its unique
// identifier.
func (c *CPLC) UUID() uuid.UUID {
	return uuid.NewSHA1(cplcUUIDNamespace, []byte(c.CardUniqueIdentifier()))
}
