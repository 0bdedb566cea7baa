package globalplatform

import (
	"bytes"

	"github.com/lomocoin/nextouch-sdk-go/apdu"
)

// Class and instruction bytes of the GlobalPlatform command set.
const (
	Cla    = uint8(0x00)
	ClaGp  = uint8(0x80)
	ClaMac = uint8(0x84)

	InsSelect               = uint8(0xA4)
	InsInitializeUpdate     = uint8(0x50)
	InsExternalAuthenticate = uint8(0x82)
	InsGetResponse          = uint8(0xC0)
	InsDelete               = uint8(0xE4)
	InsLoad                 = uint8(0xE8)
	InsInstall              = uint8(0xE6)
	InsGetData              = uint8(0xCA)

	P1SelectByName             = uint8(0x04)
	P1ExternalAuthenticateCMAC = uint8(0x01)
	P1InstallForLoad           = uint8(0x02)
	P1InstallForInstall        = uint8(0x0C)
	P1LoadMoreBlocks           = uint8(0x00)
	P1LoadLastBlock            = uint8(0x80)

	P2DeleteObjectAndRelated = uint8(0x80)

	tagDeleteAID     = uint8(0x4F)
	tagInstallParams = uint8(0xC9)
)

// NewCommandSelect returns a SELECT [by name] command. An empty aid selects
// the issuer security domain.
func NewCommandSelect(aid []byte) *apdu.Command {
	return apdu.NewCommand(Cla, InsSelect, P1SelectByName, uint8(0x00), aid)
}

// NewCommandInitializeUpdate returns an INITIALIZE UPDATE command carrying
// the host challenge.
func NewCommandInitializeUpdate(hostChallenge []byte) *apdu.Command {
	cmd := apdu.NewCommand(ClaGp, InsInitializeUpdate, uint8(0x00), uint8(0x00), hostChallenge)
	cmd.SetLe(0x00)

	return cmd
}

// NewCommandExternalAuthenticate returns an EXTERNAL AUTHENTICATE command
// carrying the host cryptogram computed from the session ENC key and the
// challenge pair.
func NewCommandExternalAuthenticate(encKey, cardChallenge, hostChallenge []byte) (*apdu.Command, error) {
	data := make([]byte, 0, len(cardChallenge)+len(hostChallenge))
	data = append(data, cardChallenge...)
	data = append(data, hostChallenge...)

	hostCryptogram, err := mac3DES(encKey, appendDESPadding(data), nullBytes8)
	if err != nil {
		return nil, err
	}

	return apdu.NewCommand(ClaMac, InsExternalAuthenticate, P1ExternalAuthenticateCMAC, uint8(0x00), hostCryptogram), nil
}

// NewCommandGetResponse returns the GET RESPONSE command requesting length
// pending bytes.
func NewCommandGetResponse(length uint8) *apdu.Command {
	cmd := apdu.NewCommand(Cla, InsGetResponse, uint8(0x00), uint8(0x00), nil)
	cmd.SetLe(length)

	return cmd
}

// NewCommandDelete returns a DELETE command for the given AID, cascading to
// related objects.
func NewCommandDelete(aid []byte) *apdu.Command {
	data := make([]byte, 0, len(aid)+2)
	data = append(data, tagDeleteAID, uint8(len(aid)))
	data = append(data, aid...)

	return apdu.NewCommand(ClaGp, InsDelete, uint8(0x00), P2DeleteObjectAndRelated, data)
}

// NewCommandInstallForLoad returns an INSTALL [for LOAD] command for the
// given package AID and security domain AID. The load file data block hash
// fields are left empty.
func NewCommandInstallForLoad(aid, sdaid []byte) *apdu.Command {
	data := new(bytes.Buffer)
	data.WriteByte(uint8(len(aid)))
	data.Write(aid)
	data.WriteByte(uint8(len(sdaid)))
	data.Write(sdaid)
	data.Write([]byte{0x00, 0x00, 0x00})

	return apdu.NewCommand(ClaGp, InsInstall, P1InstallForLoad, uint8(0x00), data.Bytes())
}

// NewCommandInstallForInstall returns an INSTALL [for install and make
// selectable] command for the given package, applet and instance AIDs with
// the applet installation parameters wrapped in tag C9.
func NewCommandInstallForInstall(pkgAID, appletAID, instanceAID, params []byte) *apdu.Command {
	data := new(bytes.Buffer)
	data.WriteByte(uint8(len(pkgAID)))
	data.Write(pkgAID)
	data.WriteByte(uint8(len(appletAID)))
	data.Write(appletAID)
	data.WriteByte(uint8(len(instanceAID)))
	data.Write(instanceAID)

	// privileges
	data.Write([]byte{0x01, 0x00})

	fullParams := make([]byte, 0, len(params)+2)
	fullParams = append(fullParams, tagInstallParams, uint8(len(params)))
	fullParams = append(fullParams, params...)

	data.WriteByte(uint8(len(fullParams)))
	data.Write(fullParams)

	// empty perform token
	data.WriteByte(0x00)

	return apdu.NewCommand(ClaGp, InsInstall, P1InstallForInstall, uint8(0x00), data.Bytes())
}

// NewCommandLoad returns a LOAD command for one block. P1 signals whether
// more blocks follow, P2 is the block number.
func NewCommandLoad(block []byte, index uint8, hasMoreBlocks bool) *apdu.Command {
	p1 := P1LoadLastBlock
	if hasMoreBlocks {
		p1 = P1LoadMoreBlocks
	}

	return apdu.NewCommand(ClaGp, InsLoad, p1, index, block)
}

// NewCommandGetCPLC returns a GET DATA command for the card production life
// cycle record (tag 9F7F).
func NewCommandGetCPLC() *apdu.Command {
	cmd := apdu.NewCommand(ClaGp, InsGetData, uint8(0x9F), uint8(0x7F), nil)
	cmd.SetLe(0x00)

	return cmd
}
