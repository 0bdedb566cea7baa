package globalplatform

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"

	"github.com/pkg/errors"
)

// SCP02 session key derivation constants.
var (
	derivationPurposeEnc = []byte{0x01, 0x82}
	derivationPurposeMac = []byte{0x01, 0x01}
	derivationPurposeDek = []byte{0x01, 0x81}

	nullBytes8 = make([]byte, 8)
)

// deriveKey derives a 16-byte session key from a static card key, the card
// sequence counter and a derivation purpose constant, using 3DES-CBC with a
// zero IV over the 16-byte derivation block purpose|seq|00..00.
func deriveKey(cardKey []byte, seq []byte, purpose []byte) ([]byte, error) {
	if len(cardKey) != 16 {
		return nil, errors.Errorf("derivation key must be 16 bytes, got %d", len(cardKey))
	}
	if len(seq) < 2 {
		return nil, errors.Errorf("sequence counter must be 2 bytes, got %d", len(seq))
	}

	derivation := make([]byte, 16)
	copy(derivation, purpose[:2])
	copy(derivation[2:], seq[:2])

	block, err := des.NewTripleDESCipher(resizeKey24(cardKey))
	if err != nil {
		return nil, err
	}

	key := make([]byte, 16)
	cipher.NewCBCEncrypter(block, nullBytes8).CryptBlocks(key, derivation)

	return key, nil
}

// verifyCryptogram recomputes the card cryptogram from the session ENC key
// and the challenge pair and compares it with the card supplied value.
func verifyCryptogram(encKey, hostChallenge, cardChallenge, cardCryptogram []byte) (bool, error) {
	data := make([]byte, 0, len(hostChallenge)+len(cardChallenge))
	data = append(data, hostChallenge...)
	data = append(data, cardChallenge...)

	calculated, err := mac3DES(encKey, appendDESPadding(data), nullBytes8)
	if err != nil {
		return false, err
	}

	return bytes.Equal(calculated, cardCryptogram), nil
}

// mac3DES computes a CBC-MAC over data with a full 3DES cipher seeded by iv.
// The data must already be padded to the block size. The MAC is the last
// encrypted block.
func mac3DES(key, data, iv []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, errors.Errorf("MAC key must be 16 bytes, got %d", len(key))
	}
	if len(data) == 0 || len(data)%8 != 0 {
		return nil, errors.Errorf("MAC input must be a non-empty multiple of 8 bytes, got %d", len(data))
	}

	block, err := des.NewTripleDESCipher(resizeKey24(key))
	if err != nil {
		return nil, err
	}

	ciphertext := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, data)

	return ciphertext[len(ciphertext)-8:], nil
}

// macFull3DES computes the SCP02 retail MAC: single DES in CBC mode over all
// blocks but the last, 3DES on the final block. Padding is applied
// internally.
func macFull3DES(key, data, iv []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, errors.Errorf("MAC key must be 16 bytes, got %d", len(key))
	}

	data = appendDESPadding(data)

	desBlock, err := des.NewCipher(key[:8])
	if err != nil {
		return nil, err
	}

	tdesBlock, err := des.NewTripleDESCipher(resizeKey24(key))
	if err != nil {
		return nil, err
	}

	if len(data) > 8 {
		intermediate := make([]byte, len(data)-8)
		cipher.NewCBCEncrypter(desBlock, iv).CryptBlocks(intermediate, data[:len(data)-8])
		iv = intermediate[len(intermediate)-8:]
	}

	mac := make([]byte, 8)
	cipher.NewCBCEncrypter(tdesBlock, iv).CryptBlocks(mac, data[len(data)-8:])

	return mac, nil
}

// encryptICV encrypts the current MAC chaining value with single DES before
// it seeds the next C-MAC computation.
func encryptICV(macKey, icv []byte) ([]byte, error) {
	if len(macKey) < 8 {
		return nil, errors.Errorf("MAC key must be at least 8 bytes, got %d", len(macKey))
	}
	if len(icv) != 8 {
		return nil, errors.Errorf("ICV must be 8 bytes, got %d", len(icv))
	}

	block, err := des.NewCipher(macKey[:8])
	if err != nil {
		return nil, err
	}

	ciphertext := make([]byte, 8)
	cipher.NewCBCEncrypter(block, nullBytes8).CryptBlocks(ciphertext, icv)

	return ciphertext, nil
}

// encrypt3DESCBC encrypts data with 3DES-CBC. The input must be padded to
// the block size.
func encrypt3DESCBC(key, iv, data []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, errors.Errorf("encryption key must be 16 bytes, got %d", len(key))
	}
	if len(data)%8 != 0 {
		return nil, errors.Errorf("plaintext must be a multiple of 8 bytes, got %d", len(data))
	}

	block, err := des.NewTripleDESCipher(resizeKey24(key))
	if err != nil {
		return nil, err
	}

	ciphertext := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, data)

	return ciphertext, nil
}

// decrypt3DESCBC is the inverse of encrypt3DESCBC. Padding is not removed.
func decrypt3DESCBC(key, iv, data []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, errors.Errorf("encryption key must be 16 bytes, got %d", len(key))
	}
	if len(data)%8 != 0 {
		return nil, errors.Errorf("ciphertext must be a multiple of 8 bytes, got %d", len(data))
	}

	block, err := des.NewTripleDESCipher(resizeKey24(key))
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, data)

	return plaintext, nil
}

// appendDESPadding applies ISO/IEC 7816-4 padding: a single 0x80 byte
// followed by zeros up to the next 8-byte boundary. At least one byte is
// always appended.
func appendDESPadding(data []byte) []byte {
	length := len(data) + 1
	for ; length%8 != 0; length++ {
	}

	padded := make([]byte, length)
	copy(padded, data)
	padded[len(data)] = 0x80

	return padded
}

// resizeKey24 expands a 16-byte 2-key 3DES key to the 24-byte K1|K2|K1 form
// expected by crypto/des.
func resizeKey24(key []byte) []byte {
	data := make([]byte, 24)
	copy(data, key[0:16])
	copy(data[16:], key[0:8])

	return data
}
