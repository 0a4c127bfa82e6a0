/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package aescbc implements the AES_CBC_HMAC_SHA2 composite authenticated
// cipher of RFC 7518 §5.2 as well as the raw CBC primitives needed by the
// pre-RFC draft content encryption suite.
package aescbc

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"hash"

	"github.com/pkg/errors"
)

// IVSize is the AES-CBC initialization vector size in bytes.
const IVSize = 16

// ErrAuthentication is returned for any integrity or padding failure on Open.
// Callers must not expose anything more specific to the outside.
var ErrAuthentication = errors.New("aescbc: message authentication failed")

// CBCHMAC is an AES_CBC_HMAC_SHA2 instance. The composite key is the MAC key
// followed by the encryption key, each half the total length, per RFC 7518.
type CBCHMAC struct {
	block   cipher.Block
	hash    func() hash.Hash
	macKey  []byte
	tagSize int
}

// New creates a CBCHMAC for a 32, 48 or 64 byte composite key, selecting
// AES-128+HMAC-SHA-256, AES-192+HMAC-SHA-384 or AES-256+HMAC-SHA-512.
func New(key []byte) (*CBCHMAC, error) {
	half := len(key) / 2

	var hfunc func() hash.Hash

	switch len(key) {
	case 32:
		hfunc = sha256.New
	case 48:
		hfunc = sha512.New384
	case 64:
		hfunc = sha512.New
	default:
		return nil, errors.Errorf("aescbc: invalid composite key size %d", len(key))
	}

	block, err := aes.NewCipher(key[half:])
	if err != nil {
		return nil, errors.Wrap(err, "aescbc: create block cipher")
	}

	return &CBCHMAC{
		block:   block,
		hash:    hfunc,
		macKey:  key[:half],
		tagSize: half,
	}, nil
}

// TagSize returns the truncated authentication tag length in bytes.
func (c *CBCHMAC) TagSize() int {
	return c.tagSize
}

// Seal CBC-encrypts plaintext under iv and returns the ciphertext with the
// truncated HMAC tag over aad || iv || ciphertext || bitlen64(aad).
func (c *CBCHMAC) Seal(iv, plaintext, aad []byte) (ciphertext, tag []byte, err error) {
	if len(iv) != IVSize {
		return nil, nil, errors.Errorf("aescbc: invalid IV size %d", len(iv))
	}

	buf := pad(plaintext, c.block.BlockSize())

	cbc := cipher.NewCBCEncrypter(c.block, iv)
	cbc.CryptBlocks(buf, buf)

	return buf, c.computeTag(aad, iv, buf), nil
}

// Open authenticates and decrypts ciphertext. The CBC decryption is always
// performed before the tag comparison result is acted on, so a MAC failure
// and a padding failure are indistinguishable to the caller, in error value
// and in timing.
func (c *CBCHMAC) Open(iv, ciphertext, tag, aad []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, ErrAuthentication
	}

	if len(ciphertext) == 0 || len(ciphertext)%c.block.BlockSize() != 0 {
		return nil, ErrAuthentication
	}

	expectedTag := c.computeTag(aad, iv, ciphertext)

	buf := make([]byte, len(ciphertext))

	cbc := cipher.NewCBCDecrypter(c.block, iv)
	cbc.CryptBlocks(buf, ciphertext)

	toRemove, good := extractPadding(buf)

	if subtle.ConstantTimeCompare(expectedTag, tag)&int(good) != 1 {
		return nil, ErrAuthentication
	}

	return buf[:len(buf)-toRemove], nil
}

func (c *CBCHMAC) computeTag(aad, iv, ciphertext []byte) []byte {
	var al [8]byte
	binary.BigEndian.PutUint64(al[:], uint64(len(aad))*8)

	h := hmac.New(c.hash, c.macKey)
	h.Write(aad)
	h.Write(iv)
	h.Write(ciphertext)
	h.Write(al[:])

	return h.Sum(nil)[:c.tagSize]
}

// EncryptCBC PKCS#7-pads plaintext and encrypts it with plain AES-CBC. Used
// by the legacy draft suite, which authenticates serialized segments instead
// of raw bytes.
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "aescbc: create block cipher")
	}

	if len(iv) != IVSize {
		return nil, errors.Errorf("aescbc: invalid IV size %d", len(iv))
	}

	buf := pad(plaintext, block.BlockSize())

	cbc := cipher.NewCBCEncrypter(block, iv)
	cbc.CryptBlocks(buf, buf)

	return buf, nil
}

// DecryptCBC decrypts plain AES-CBC ciphertext and strips PKCS#7 padding.
// Callers must verify integrity before trusting the result; a bad padding is
// still reported as ErrAuthentication to keep failure modes uniform.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "aescbc: create block cipher")
	}

	if len(iv) != IVSize || len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, ErrAuthentication
	}

	buf := make([]byte, len(ciphertext))

	cbc := cipher.NewCBCDecrypter(block, iv)
	cbc.CryptBlocks(buf, ciphertext)

	toRemove, good := extractPadding(buf)
	if good != 255 {
		return nil, ErrAuthentication
	}

	return buf[:len(buf)-toRemove], nil
}

func pad(buf []byte, n int) []byte {
	rem := n - len(buf)%n

	out := make([]byte, len(buf)+rem)
	copy(out, buf)

	for i := len(buf); i < len(out); i++ {
		out[i] = byte(rem)
	}

	return out
}

// extractPadding returns, in constant time, the length of the PKCS#7 padding
// to remove from the end of payload, and a byte equal to 255 if the padding
// was valid and 0 otherwise. Lifted from the TLS CBC record handling (see
// RFC 2246 §6.2.3.2).
func extractPadding(payload []byte) (toRemove int, good byte) {
	if len(payload) < 1 {
		return 0, 0
	}

	paddingLen := payload[len(payload)-1]
	t := uint(len(payload)) - uint(paddingLen)
	// if len(payload) > paddingLen then the MSB of t is zero
	good = byte(int32(^t) >> 31)

	toCheck := 256
	if toCheck > len(payload) {
		toCheck = len(payload)
	}

	for i := 1; i <= toCheck; i++ {
		t := uint(paddingLen) - uint(i)
		mask := byte(int32(^t) >> 31)
		b := payload[len(payload)-i]
		good &^= mask&paddingLen ^ mask&b
	}

	good &= good << 4
	good &= good << 2
	good &= good << 1
	good = uint8(int8(good) >> 7)

	// zero the padding length on error so unchecked bytes stay in the MAC
	paddingLen &= good

	return int(paddingLen), good
}
