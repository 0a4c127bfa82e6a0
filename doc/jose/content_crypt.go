/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/securekey/jose/crypto/primitive/aescbc"
	"github.com/securekey/jose/util/cryptoutil"
)

// jweCryptoParts holds the three content encryption outputs of a JWE.
type jweCryptoParts struct {
	iv         []byte
	ciphertext []byte
	tag        []byte
}

// encryptContent is the content encryption dispatch: it compresses the
// plaintext when the header asks for it, generates a method-appropriate IV
// from rng (nil means the process-wide generator) and runs the primitive
// sequence of the selected method. It holds no state; headers must be the
// final (post key-wrapping) protected header whose serialization produced
// aad. legacyPrefix is the "b64(header).b64(encKey)" string consumed only by
// the deprecated draft suite.
func encryptContent(headers Headers, enc EncAlg, cek, plaintext, aad []byte,
	legacyPrefix string, rng io.Reader) (*jweCryptoParts, error) {
	params, err := encParams(enc)
	if err != nil {
		return nil, err
	}

	if len(cek) != params.cekSize {
		return nil, fmt.Errorf("cek size %d invalid for '%s', must be %d bytes", len(cek), enc, params.cekSize)
	}

	plaintext, err = compressIfNeeded(headers, plaintext)
	if err != nil {
		return nil, err
	}

	iv, err := cryptoutil.ReadRandomBytes(rng, params.ivSize)
	if err != nil {
		return nil, err
	}

	switch params.family {
	case familyGCM, familyXC20P:
		aead, err := newAEAD(params.family, cek)
		if err != nil {
			return nil, err
		}

		sealed := aead.Seal(nil, iv, plaintext, aad)
		tagOffset := len(sealed) - aead.Overhead()

		return &jweCryptoParts{iv: iv, ciphertext: sealed[:tagOffset], tag: sealed[tagOffset:]}, nil
	case familyCBCHMAC:
		cbcHMAC, err := aescbc.New(cek)
		if err != nil {
			return nil, err
		}

		ciphertext, tag, err := cbcHMAC.Seal(iv, plaintext, aad)
		if err != nil {
			return nil, err
		}

		return &jweCryptoParts{iv: iv, ciphertext: ciphertext, tag: tag}, nil
	case familyLegacyCBC:
		return legacyEncryptContent(params, cek, iv, plaintext, legacyPrefix)
	default:
		return nil, fmt.Errorf("content encryption algorithm '%s' not supported", enc)
	}
}

// decryptContent reverses encryptContent. Every integrity, padding or
// decompression failure must be reported by the caller as the single
// undifferentiated decryption failure kind; the CBC-HMAC primitive performs
// the block decryption even when the tag is already known bad so the two
// failures stay indistinguishable in timing as well.
func decryptContent(headers Headers, enc EncAlg, cek, iv, ciphertext, tag, aad []byte,
	legacyPrefix string) ([]byte, error) {
	params, err := encParams(enc)
	if err != nil {
		return nil, err
	}

	if len(cek) != params.cekSize {
		return nil, fmt.Errorf("cek size %d invalid for '%s', must be %d bytes", len(cek), enc, params.cekSize)
	}

	if len(iv) == 0 || len(tag) == 0 {
		return nil, fmt.Errorf("jwe is missing iv or tag")
	}

	var plaintext []byte

	switch params.family {
	case familyGCM, familyXC20P:
		aead, err := newAEAD(params.family, cek)
		if err != nil {
			return nil, err
		}

		if len(iv) != aead.NonceSize() {
			return nil, fmt.Errorf("invalid iv size %d", len(iv))
		}

		sealed := make([]byte, 0, len(ciphertext)+len(tag))
		sealed = append(sealed, ciphertext...)
		sealed = append(sealed, tag...)

		plaintext, err = aead.Open(nil, iv, sealed, aad)
		if err != nil {
			return nil, err
		}
	case familyCBCHMAC:
		cbcHMAC, err := aescbc.New(cek)
		if err != nil {
			return nil, err
		}

		plaintext, err = cbcHMAC.Open(iv, ciphertext, tag, aad)
		if err != nil {
			return nil, err
		}
	case familyLegacyCBC:
		plaintext, err = legacyDecryptContent(params, cek, iv, ciphertext, tag, legacyPrefix)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("content encryption algorithm '%s' not supported", enc)
	}

	return decompressIfNeeded(headers, plaintext)
}

func newAEAD(family encFamily, cek []byte) (cipher.AEAD, error) {
	if family == familyXC20P {
		return chacha20poly1305.NewX(cek)
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}
