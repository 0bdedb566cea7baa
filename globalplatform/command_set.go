package globalplatform

import (
	"crypto/rand"
	"io"
	"log"

	"github.com/pkg/errors"

	"github.com/lomocoin/nextouch-sdk-go/apdu"
)

// ErrSecureChannelNotOpen is returned when a secured operation is invoked
// before OpenSecureChannel succeeded.
var ErrSecureChannelNotOpen = errors.New("secure channel not open")

// LoadingCallback is called after every successfully loaded block with the
// number of loaded blocks and the total block count.
type LoadingCallback func(loadedBlock, totalBlocks int)

// CommandSet is the card content management protocol: selecting the card
// manager, opening an SCP02 secure channel and deleting, loading and
// installing packages and applets. One CommandSet owns one channel; calls
// must not be issued concurrently.
type CommandSet struct {
	c        Channel
	base     Channel
	cardKeys *SCP02Keys
	session  *Session
	Debug    bool
}

// NewCommandSet returns a CommandSet over the given channel, configured
// with the default test keys.
func NewCommandSet(c Channel) *CommandSet {
	return &CommandSet{
		c:        c,
		base:     c,
		cardKeys: NewSCP02Keys(CardTestKey, CardTestKey, CardTestKey),
	}
}

// SetSCP02Keys overrides the static card keys used for the next secure
// channel negotiation.
func (cs *CommandSet) SetSCP02Keys(keys *SCP02Keys) {
	cs.cardKeys = keys
}

// Select selects the issuer security domain with an empty AID. It is the
// only operation sent in the clear, before any channel exists.
func (cs *CommandSet) Select() error {
	cmd := NewCommandSelect(nil)
	_, err := cs.send("select", cmd)

	return err
}

// OpenSecureChannel runs the complete SCP02 negotiation with a fresh random
// host challenge. On any failure the channel stays unusable and a new
// negotiation with a new challenge is required.
func (cs *CommandSet) OpenSecureChannel() error {
	hostChallenge, err := generateHostChallenge()
	if err != nil {
		return err
	}

	session, err := cs.InitializeUpdate(hostChallenge)
	if err != nil {
		return err
	}

	cs.c = NewSecureChannel(session, cs.base)
	cs.session = session

	if err := cs.ExternalAuthenticate(); err != nil {
		cs.c = cs.base
		cs.session = nil
		return err
	}

	return nil
}

// InitializeUpdate sends INITIALIZE UPDATE with the given host challenge,
// derives the session keys and verifies the card cryptogram. Use
// OpenSecureChannel unless a specific host challenge is needed.
func (cs *CommandSet) InitializeUpdate(hostChallenge []byte) (*Session, error) {
	cmd := NewCommandInitializeUpdate(hostChallenge)
	resp, err := cs.send("initialize update", cmd)
	if err != nil {
		return nil, err
	}

	return NewSession(cs.cardKeys, resp, hostChallenge)
}

// ExternalAuthenticate authenticates the host to the card with the host
// cryptogram. The command itself carries the first C-MAC of the session.
func (cs *CommandSet) ExternalAuthenticate() error {
	if cs.session == nil {
		return ErrSecureChannelNotOpen
	}

	cmd, err := NewCommandExternalAuthenticate(cs.session.Keys().Enc(), cs.session.CardChallenge(), cs.session.HostChallenge())
	if err != nil {
		return err
	}

	_, err = cs.send("external authenticate", cmd)

	return err
}

// Delete removes the object with the given AID and everything depending on
// it. The card answering "referenced data not found" is an error here; use
// the delete sequences for idempotent cleanup.
func (cs *CommandSet) Delete(aid []byte) error {
	if err := cs.requireSecureChannel(); err != nil {
		return err
	}

	_, err := cs.send("delete", NewCommandDelete(aid))

	return err
}

// DeleteKeycardInstancesAndPackage removes a Keycard installation: the NDEF
// instance, the Keycard instance and the package. Each step tolerates
// already-absent objects, so the sequence is safe on a clean card.
func (cs *CommandSet) DeleteKeycardInstancesAndPackage() error {
	instanceAID, err := KeycardInstanceAID(KeycardDefaultInstanceIndex)
	if err != nil {
		return err
	}

	return cs.deleteTolerant(NdefInstanceAID, instanceAID, PackageAID)
}

// DeleteU2FAppletAndPackage removes a U2F installation. Only the package is
// deleted: DELETE with P2 0x80 cascades to the applet instances installed
// from it.
func (cs *CommandSet) DeleteU2FAppletAndPackage() error {
	return cs.deleteTolerant(U2FPackageAID)
}

func (cs *CommandSet) deleteTolerant(aids ...[]byte) error {
	if err := cs.requireSecureChannel(); err != nil {
		return err
	}

	for _, aid := range aids {
		_, err := cs.send("delete", NewCommandDelete(aid), apdu.SwOK, apdu.SwReferencedDataNotFound)
		if err != nil {
			return err
		}
	}

	return nil
}

// InstallForLoad announces the upcoming LOAD sequence for a package.
func (cs *CommandSet) InstallForLoad(aid, sdaid []byte) error {
	if err := cs.requireSecureChannel(); err != nil {
		return err
	}

	_, err := cs.send("install for load", NewCommandInstallForLoad(aid, sdaid))

	return err
}

// Load sends a single package block. Index is the block number, hasMore
// signals whether further blocks follow.
func (cs *CommandSet) Load(block []byte, index uint8, hasMore bool) error {
	if err := cs.requireSecureChannel(); err != nil {
		return err
	}

	_, err := cs.send("load", NewCommandLoad(block, index, hasMore))

	return err
}

// LoadKeycardPackage streams the Keycard CAP file to the card, reporting
// progress through cb after each block.
func (cs *CommandSet) LoadKeycardPackage(capFile io.Reader, cb LoadingCallback) error {
	return cs.LoadPackage(capFile, PackageAID, cb)
}

// LoadU2FPackage streams the U2F CAP file to the card, reporting progress
// through cb after each block.
func (cs *CommandSet) LoadU2FPackage(capFile io.Reader, cb LoadingCallback) error {
	return cs.LoadPackage(capFile, U2FPackageAID, cb)
}

// LoadPackage runs INSTALL [for LOAD] followed by the full LOAD sequence
// for the package read from capFile. Any failed block aborts the load; the
// card cannot resume a partial load, so the caller must start over.
func (cs *CommandSet) LoadPackage(capFile io.Reader, pkgAID []byte, cb LoadingCallback) error {
	if err := cs.InstallForLoad(pkgAID, nil); err != nil {
		return err
	}

	load, err := NewLoadCommandStream(capFile)
	if err != nil {
		return err
	}

	for load.Next() {
		if _, err := cs.send("load", load.GetCommand()); err != nil {
			return err
		}

		if cb != nil {
			cb(int(load.Index())+1, load.BlocksCount())
		}
	}

	return nil
}

// InstallForInstall installs and makes selectable an applet instance from a
// loaded package.
func (cs *CommandSet) InstallForInstall(pkgAID, appletAID, instanceAID, params []byte) error {
	if err := cs.requireSecureChannel(); err != nil {
		return err
	}

	_, err := cs.send("install for install", NewCommandInstallForInstall(pkgAID, appletAID, instanceAID, params))

	return err
}

// InstallKeycardApplet installs the default Keycard applet instance.
func (cs *CommandSet) InstallKeycardApplet() error {
	instanceAID, err := KeycardInstanceAID(KeycardDefaultInstanceIndex)
	if err != nil {
		return err
	}

	return cs.InstallForInstall(PackageAID, KeycardAID, instanceAID, nil)
}

// InstallNDEFApplet installs the NDEF applet with the given initial record.
// The record may be empty but not nil on the card side; an empty slice is
// fine here.
func (cs *CommandSet) InstallNDEFApplet(ndefRecord []byte) error {
	return cs.InstallForInstall(PackageAID, NdefAID, NdefInstanceAID, ndefRecord)
}

// InstallU2FApplet installs the U2F applet with its attestation parameters.
func (cs *CommandSet) InstallU2FApplet(params []byte) error {
	return cs.InstallForInstall(U2FPackageAID, U2FAID, U2FInstanceAID, params)
}

// GetCPLC retrieves and parses the card production life cycle record.
func (cs *CommandSet) GetCPLC() (*CPLC, error) {
	if err := cs.requireSecureChannel(); err != nil {
		return nil, err
	}

	resp, err := cs.send("get cplc", NewCommandGetCPLC())
	if err != nil {
		return nil, err
	}

	return ParseCPLC(resp.Data)
}

// GetCardUniqueIdentifier returns the identifier derived from the CPLC
// fabricator, type, batch and serial fields.
func (cs *CommandSet) GetCardUniqueIdentifier() (string, error) {
	cplc, err := cs.GetCPLC()
	if err != nil {
		return "", err
	}

	return cplc.CardUniqueIdentifier(), nil
}

func (cs *CommandSet) requireSecureChannel() error {
	if cs.session == nil {
		return ErrSecureChannelNotOpen
	}

	return nil
}

func (cs *CommandSet) send(description string, cmd *apdu.Command, allowedResponses ...uint16) (*apdu.Response, error) {
	if cs.Debug {
		log.Printf(">> send %s", description)
	}

	resp, err := cs.c.Send(cmd)
	if err != nil {
		return nil, err
	}

	if len(allowedResponses) == 0 {
		allowedResponses = []uint16{apdu.SwOK}
	}

	for _, code := range allowedResponses {
		if code == resp.Sw {
			return resp, nil
		}
	}

	return nil, apdu.NewErrBadResponse(resp.Sw, description)
}

func generateHostChallenge() ([]byte, error) {
	c := make([]byte, 8)
	_, err := rand.Read(c)

	return c, err
}
