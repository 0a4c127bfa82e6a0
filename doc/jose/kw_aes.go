/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/aes"
	"fmt"

	josecipher "github.com/go-jose/go-jose/v3/cipher"
)

// aesKeyWrapper implements A128KW/A192KW/A256KW key management with the
// RFC 3394 AES key wrap construction.
type aesKeyWrapper struct {
	kek []byte
	cfg wrapperConfig
}

//nolint:gochecknoglobals
var aesKWKeySizes = map[KeyAlg]int{
	A128KW: 16,
	A192KW: 24,
	A256KW: 32,
}

func newAESKeyWrapper(alg KeyAlg, kek []byte, cfg wrapperConfig) (*aesKeyWrapper, error) {
	if len(kek) != aesKWKeySizes[alg] {
		return nil, fmt.Errorf("'%s' requires a %d byte kek, got %d bytes", alg, aesKWKeySizes[alg], len(kek))
	}

	return &aesKeyWrapper{kek: kek, cfg: cfg}, nil
}

func (a *aesKeyWrapper) produceCEK(headers Headers, cekSize int) ([]byte, []byte, Headers, error) {
	cek, err := randomCEK(a.cfg, cekSize)
	if err != nil {
		return nil, nil, nil, err
	}

	encryptedKey, err := wrapWithAESKW(a.kek, cek)
	if err != nil {
		return nil, nil, nil, err
	}

	return cek, encryptedKey, headers, nil
}

func (a *aesKeyWrapper) recoverCEK(_ Headers, encryptedKey []byte, cekSize int) ([]byte, error) {
	cek, err := unwrapWithAESKW(a.kek, encryptedKey)
	if err != nil {
		return nil, err
	}

	if len(cek) != cekSize {
		return nil, fmt.Errorf("aes key unwrap: unwrapped cek size %d, expected %d", len(cek), cekSize)
	}

	return cek, nil
}

// wrapWithAESKW and unwrapWithAESKW are the RFC 3394 primitives shared with
// the ECDH-ES+KW and PBES2 strategies, which wrap their CEK under a derived
// kek.
func wrapWithAESKW(kek, cek []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("aes key wrap: %w", err)
	}

	encryptedKey, err := josecipher.KeyWrap(block, cek)
	if err != nil {
		return nil, fmt.Errorf("aes key wrap: %w", err)
	}

	return encryptedKey, nil
}

func unwrapWithAESKW(kek, encryptedKey []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("aes key unwrap: %w", err)
	}

	cek, err := josecipher.KeyUnwrap(block, encryptedKey)
	if err != nil {
		// the KW integrity check failed; surfaced as a plain decryption failure
		return nil, fmt.Errorf("aes key unwrap: %w", err)
	}

	return cek, nil
}
