/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"github.com/securekey/jose/util/cryptoutil"
)

// aesGCMKeyWrapper implements A128GCMKW/A192GCMKW/A256GCMKW. The CEK is
// AEAD-wrapped under the kek with a fresh 96-bit IV and empty associated data
// (RFC 7518 §4.7 defines none), and the resulting iv and tag become header
// parameters. That header rebuild happens here, before the content layer
// computes its AAD: authenticate a header without the wrap iv/tag and the
// token is forgeable.
type aesGCMKeyWrapper struct {
	kek []byte
	cfg wrapperConfig
}

//nolint:gochecknoglobals
var aesGCMKWKeySizes = map[KeyAlg]int{
	A128GCMKW: 16,
	A192GCMKW: 24,
	A256GCMKW: 32,
}

func newAESGCMKeyWrapper(alg KeyAlg, kek []byte, cfg wrapperConfig) (*aesGCMKeyWrapper, error) {
	if len(kek) != aesGCMKWKeySizes[alg] {
		return nil, fmt.Errorf("'%s' requires a %d byte kek, got %d bytes", alg, aesGCMKWKeySizes[alg], len(kek))
	}

	return &aesGCMKeyWrapper{kek: kek, cfg: cfg}, nil
}

func (a *aesGCMKeyWrapper) produceCEK(headers Headers, cekSize int) ([]byte, []byte, Headers, error) {
	cek, err := randomCEK(a.cfg, cekSize)
	if err != nil {
		return nil, nil, nil, err
	}

	aead, err := a.newGCM()
	if err != nil {
		return nil, nil, nil, err
	}

	iv, err := cryptoutil.ReadRandomBytes(a.cfg.rand, aead.NonceSize())
	if err != nil {
		return nil, nil, nil, err
	}

	sealed := aead.Seal(nil, iv, cek, nil)
	tagOffset := len(sealed) - aead.Overhead()

	updated := headers.
		With(HeaderIV, base64.RawURLEncoding.EncodeToString(iv)).
		With(HeaderTag, base64.RawURLEncoding.EncodeToString(sealed[tagOffset:]))

	return cek, sealed[:tagOffset], updated, nil
}

func (a *aesGCMKeyWrapper) recoverCEK(headers Headers, encryptedKey []byte, cekSize int) ([]byte, error) {
	iv, err := headerBytesValue(headers, HeaderIV)
	if err != nil {
		return nil, err
	}

	tag, err := headerBytesValue(headers, HeaderTag)
	if err != nil {
		return nil, err
	}

	aead, err := a.newGCM()
	if err != nil {
		return nil, err
	}

	if len(iv) != aead.NonceSize() {
		return nil, fmt.Errorf("gcm key unwrap: invalid iv size %d", len(iv))
	}

	sealed := make([]byte, 0, len(encryptedKey)+len(tag))
	sealed = append(sealed, encryptedKey...)
	sealed = append(sealed, tag...)

	cek, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm key unwrap: %w", err)
	}

	if len(cek) != cekSize {
		return nil, fmt.Errorf("gcm key unwrap: unwrapped cek size %d, expected %d", len(cek), cekSize)
	}

	return cek, nil
}

func (a *aesGCMKeyWrapper) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(a.kek)
	if err != nil {
		return nil, fmt.Errorf("gcm key wrap: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm key wrap: %w", err)
	}

	return aead, nil
}

// headerBytesValue reads a required base64url string header parameter.
// Absence is a malformed-input error: the algorithm mandates the parameter.
func headerBytesValue(headers Headers, name string) ([]byte, error) {
	raw, ok := headers.stringValue(name)
	if !ok {
		return nil, fmt.Errorf("jwe is missing '%s' header", name)
	}

	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode base64 '%s' header: %w", name, err)
	}

	return b, nil
}
