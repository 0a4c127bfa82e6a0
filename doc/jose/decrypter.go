/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrDecryptionFailed is the single error reported for every
// authentication-adjacent decryption failure: a bad tag, a corrupted
// encrypted key, invalid padding, a failed key unwrap integrity check, a
// critical header the consumer did not defer, or malformed decompression
// output. Collapsing them is deliberate: distinguishable failures are
// padding-oracle material.
var ErrDecryptionFailed = errors.New("decryption failed")

// Decrypter interface to Decrypt JWE tokens.
type Decrypter interface {
	// Decrypt a deserialized JWE, recovering the plaintext.
	Decrypt(jwe *JSONWebEncryption) ([]byte, error)
}

// JWEDecrypt is the compact serialization JWE decrypter. The recipient key is
// bound at construction; the token's alg and enc headers select the
// algorithms at Decrypt time, so one decrypter serves tokens produced under
// any algorithm pair its key material supports.
type JWEDecrypt struct {
	key      interface{}
	deferred []string
}

// DecryptOption configures a JWEDecrypt.
type DecryptOption func(*JWEDecrypt)

// WithDeferredCritical declares the crit header names this consumer
// understands and handles itself. A token whose crit set is not a subset of
// the deferred set fails decryption.
func WithDeferredCritical(names ...string) DecryptOption {
	return func(d *JWEDecrypt) {
		d.deferred = append(d.deferred, names...)
	}
}

// NewJWEDecrypt creates a decrypter with the given recipient key material:
// []byte or string for the symmetric and PBES2 families, *rsa.PrivateKey for
// RSA, *ecdsa.PrivateKey for ECDH-ES.
func NewJWEDecrypt(key interface{}, opts ...DecryptOption) *JWEDecrypt {
	d := &JWEDecrypt{key: key}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Decrypt decrypts jwe and returns the plaintext.
//
// Unsupported algorithms and key configuration problems are reported with
// full diagnostics; they depend only on the public header and the local key,
// never on secret material. Everything downstream of key recovery collapses
// to ErrDecryptionFailed.
func (d *JWEDecrypt) Decrypt(jwe *JSONWebEncryption) ([]byte, error) {
	if jwe == nil || len(jwe.ProtectedHeaders) == 0 {
		return nil, fmt.Errorf("jwedecrypt: jwe is missing protected headers")
	}

	// structural presence of the parts is public information, reporting it
	// precisely reveals nothing an attacker does not already hold
	if len(jwe.IV) == 0 || len(jwe.Tag) == 0 {
		return nil, fmt.Errorf("jwedecrypt: jwe is missing iv or tag")
	}

	headers := jwe.ProtectedHeaders

	alg, ok := headers.Algorithm()
	if !ok {
		return nil, fmt.Errorf("jwedecrypt: jwe is missing key algorithm 'alg' header")
	}

	if err := validKeyAlg(KeyAlg(alg)); err != nil {
		return nil, fmt.Errorf("jwedecrypt: %w", err)
	}

	enc, ok := headers.Encryption()
	if !ok {
		return nil, fmt.Errorf("jwedecrypt: jwe is missing encryption algorithm 'enc' header")
	}

	params, err := encParams(EncAlg(enc))
	if err != nil {
		return nil, fmt.Errorf("jwedecrypt: %w", err)
	}

	wrapper, err := newKeyWrapper(KeyAlg(alg), d.key, wrapperConfig{})
	if err != nil {
		return nil, fmt.Errorf("jwedecrypt: %w", err)
	}

	// an unhandled critical extension means the token cannot be correctly
	// processed, which is indistinguishable from not authenticating it
	if !headers.PassCritical(d.deferred) {
		return nil, fmt.Errorf("jwedecrypt: %w", ErrDecryptionFailed)
	}

	cek, err := wrapper.recoverCEK(headers, jwe.EncryptedCEK, params.cekSize)
	if err != nil {
		return nil, fmt.Errorf("jwedecrypt: %w", ErrDecryptionFailed)
	}

	aad := computeAuthData(jwe.OrigProtectedHeaders)
	legacyPrefix := jwe.OrigProtectedHeaders + "." + base64.RawURLEncoding.EncodeToString(jwe.EncryptedCEK)

	plaintext, err := decryptContent(headers, EncAlg(enc), cek, jwe.IV, jwe.Ciphertext, jwe.Tag, aad, legacyPrefix)
	if err != nil {
		return nil, fmt.Errorf("jwedecrypt: %w", ErrDecryptionFailed)
	}

	return plaintext, nil
}
