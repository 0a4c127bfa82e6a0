/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // SHA-1 is the RFC 7518 mandated OAEP digest for RSA-OAEP
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
)

// rsaKeyWrapper implements RSA1_5, RSA-OAEP and RSA-OAEP-256 key management.
type rsaKeyWrapper struct {
	alg  KeyAlg
	pub  *rsa.PublicKey
	priv *rsa.PrivateKey
	cfg  wrapperConfig
}

func newRSAKeyWrapper(alg KeyAlg, key interface{}, cfg wrapperConfig) (*rsaKeyWrapper, error) {
	pub, priv, err := rsaKeys(alg, key)
	if err != nil {
		return nil, err
	}

	return &rsaKeyWrapper{alg: alg, pub: pub, priv: priv, cfg: cfg}, nil
}

func (r *rsaKeyWrapper) rng() io.Reader {
	if r.cfg.rand != nil {
		return r.cfg.rand
	}

	return rand.Reader
}

func (r *rsaKeyWrapper) oaepHash() hash.Hash {
	if r.alg == RSAOAEP256 {
		return sha256.New()
	}

	return sha1.New() //nolint:gosec
}

func (r *rsaKeyWrapper) produceCEK(headers Headers, cekSize int) ([]byte, []byte, Headers, error) {
	cek, err := randomCEK(r.cfg, cekSize)
	if err != nil {
		return nil, nil, nil, err
	}

	var encryptedKey []byte

	switch r.alg {
	case RSA15:
		encryptedKey, err = rsa.EncryptPKCS1v15(r.rng(), r.pub, cek)
	default:
		encryptedKey, err = rsa.EncryptOAEP(r.oaepHash(), r.rng(), r.pub, cek, nil)
	}

	if err != nil {
		return nil, nil, nil, fmt.Errorf("rsa key wrap: %w", err)
	}

	return cek, encryptedKey, headers, nil
}

func (r *rsaKeyWrapper) recoverCEK(_ Headers, encryptedKey []byte, cekSize int) ([]byte, error) {
	if r.priv == nil {
		return nil, fmt.Errorf("'%s' decryption requires a private key", r.alg)
	}

	if r.alg == RSA15 {
		return r.recoverCEKPKCS1v15(encryptedKey, cekSize)
	}

	cek, err := rsa.DecryptOAEP(r.oaepHash(), r.rng(), r.priv, encryptedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("rsa key unwrap: %w", err)
	}

	if len(cek) != cekSize {
		return nil, fmt.Errorf("rsa key unwrap: unwrapped cek size %d, expected %d", len(cek), cekSize)
	}

	return cek, nil
}

// recoverCEKPKCS1v15 never reports a padding failure. Per RFC 3218 a
// distinguishable error (or a measurably different code path) would hand an
// attacker the Bleichenbacher million-message oracle, so a freshly generated
// random CEK is prepared first and DecryptPKCS1v15SessionKey overwrites it
// only when the padding is valid. Either way a CEK of the right length is
// returned and the message fails, if it fails, at the downstream tag check.
func (r *rsaKeyWrapper) recoverCEKPKCS1v15(encryptedKey []byte, cekSize int) ([]byte, error) {
	expectedLen := r.priv.PublicKey.N.BitLen() / 8
	if len(encryptedKey) != expectedLen {
		// the encrypted key length is public information, rejecting a wrong
		// size leaks nothing
		return nil, fmt.Errorf("rsa key unwrap: encrypted key size %d, expected %d", len(encryptedKey), expectedLen)
	}

	cek, err := randomCEK(r.cfg, cekSize)
	if err != nil {
		return nil, err
	}

	func() {
		defer func() {
			// DecryptPKCS1v15SessionKey has panicked on malformed payloads in
			// old Go releases; a panic must not become a distinguishable signal
			_ = recover()
		}()

		_ = rsa.DecryptPKCS1v15SessionKey(r.rng(), r.priv, encryptedKey, cek)
	}()

	return cek, nil
}
