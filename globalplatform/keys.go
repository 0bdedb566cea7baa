package globalplatform

// SCP02Keys holds a static or session SCP02 key set: encryption key, MAC key
// and data encryption key.
type SCP02Keys struct {
	enc []byte
	mac []byte
	dek []byte
}

// NewSCP02Keys returns a key set with the given ENC, MAC and DEK keys.
func NewSCP02Keys(enc, mac, dek []byte) *SCP02Keys {
	return &SCP02Keys{
		enc: enc,
		mac: mac,
		dek: dek,
	}
}

// Enc returns the encryption key.
func (k *SCP02Keys) Enc() []byte {
	return k.enc
}

// Mac returns the MAC key.
func (k *SCP02Keys) Mac() []byte {
	return k.mac
}

// Dek returns the data encryption key.
func (k *SCP02Keys) Dek() []byte {
	return k.dek
}
