/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/hmac"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"

	josecipher "github.com/go-jose/go-jose/v3/cipher"

	"github.com/securekey/jose/crypto/primitive/aescbc"
)

// Deprecated draft-stage CBC+HMAC suite (A128CBC+HS256, A256CBC+HS512).
//
// The CEK here is a Content Master Key: the actual encryption key and the
// integrity key are derived from it with a Concat-KDF run labeled
// "Encryption" and "Integrity" respectively, and the MAC is computed over the
// string concatenation of the dot-joined compact segments
// (header.encryptedKey.iv.ciphertext) instead of the modern byte-oriented
// AAD || IV || ciphertext || AL input. The two MAC conventions are not
// interchangeable; keeping them separate is what keeps legacy tokens
// verifiable.

const (
	legacyLabelEncryption = "Encryption"
	legacyLabelIntegrity  = "Integrity"
)

func legacyDeriveKeys(params encAlgParams, cmk []byte) (cek, cik []byte, err error) {
	cek, err = legacyConcatKDF(params, cmk, legacyLabelEncryption, params.cekSize)
	if err != nil {
		return nil, nil, err
	}

	cik, err = legacyConcatKDF(params, cmk, legacyLabelIntegrity, params.hash.Size())
	if err != nil {
		return nil, nil, err
	}

	return cek, cik, nil
}

func legacyConcatKDF(params encAlgParams, cmk []byte, label string, size int) ([]byte, error) {
	supPubInfo := make([]byte, 4)
	binary.BigEndian.PutUint32(supPubInfo, uint32(size)*8)

	kdf := josecipher.NewConcatKDF(params.hash, cmk, []byte(label), nil, nil, supPubInfo, nil)

	key := make([]byte, size)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("legacy concat kdf: %w", err)
	}

	return key, nil
}

func legacyMACInput(prefix string, iv, ciphertext []byte) []byte {
	input := prefix + "." + base64.RawURLEncoding.EncodeToString(iv) +
		"." + base64.RawURLEncoding.EncodeToString(ciphertext)

	return []byte(input)
}

func legacyEncryptContent(params encAlgParams, cmk, iv, plaintext []byte,
	prefix string) (*jweCryptoParts, error) {
	cek, cik, err := legacyDeriveKeys(params, cmk)
	if err != nil {
		return nil, err
	}

	ciphertext, err := aescbc.EncryptCBC(cek, iv, plaintext)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(params.hash.New, cik)
	mac.Write(legacyMACInput(prefix, iv, ciphertext))

	return &jweCryptoParts{iv: iv, ciphertext: ciphertext, tag: mac.Sum(nil)}, nil
}

func legacyDecryptContent(params encAlgParams, cmk, iv, ciphertext, tag []byte,
	prefix string) ([]byte, error) {
	cek, cik, err := legacyDeriveKeys(params, cmk)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(params.hash.New, cik)
	mac.Write(legacyMACInput(prefix, iv, ciphertext))
	expectedTag := mac.Sum(nil)

	// decrypt before acting on the tag comparison so an integrity failure and
	// a padding failure cost the same
	plaintext, decErr := aescbc.DecryptCBC(cek, iv, ciphertext)

	if subtle.ConstantTimeCompare(expectedTag, tag) != 1 || decErr != nil {
		return nil, aescbc.ErrAuthentication
	}

	return plaintext, nil
}
