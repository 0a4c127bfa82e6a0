/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rsa"
	"errors"
	"fmt"
	"math/big"
)

var errVerification = errors.New("signature verification failed")

// HMACSignatureVerifier verifies HS256/HS384/HS512 signatures.
type HMACSignatureVerifier struct {
	key []byte
}

// NewHMACSignatureVerifier creates a verifier over the given shared secret.
func NewHMACSignatureVerifier(key []byte) *HMACSignatureVerifier {
	return &HMACSignatureVerifier{key: key}
}

// Verify verifies JWS signature.
func (v *HMACSignatureVerifier) Verify(joseHeaders Headers, _, signingInput, signature []byte) error {
	h, err := headerHMACAlg(joseHeaders)
	if err != nil {
		return err
	}

	mac := hmac.New(h.New, v.key)
	mac.Write(signingInput)

	if !hmac.Equal(mac.Sum(nil), signature) {
		return errVerification
	}

	return nil
}

// RSASignatureVerifier verifies RS256/RS384/RS512 and PS256/PS384/PS512
// signatures.
type RSASignatureVerifier struct {
	pubKey *rsa.PublicKey
}

// NewRSASignatureVerifier creates a verifier over the given RSA public key.
func NewRSASignatureVerifier(pubKey *rsa.PublicKey) *RSASignatureVerifier {
	return &RSASignatureVerifier{pubKey: pubKey}
}

// Verify verifies JWS signature.
func (v *RSASignatureVerifier) Verify(joseHeaders Headers, _, signingInput, signature []byte) error {
	alg, ok := joseHeaders.Algorithm()
	if !ok {
		return errors.New("'alg' JOSE header is not present")
	}

	params, ok := rsaAlgs[SigAlg(alg)]
	if !ok {
		return fmt.Errorf("'%s' is not an RSA signature algorithm", alg)
	}

	hasher := params.hash.New()
	hasher.Write(signingInput)
	digest := hasher.Sum(nil)

	var err error

	if params.pss {
		err = rsa.VerifyPSS(v.pubKey, params.hash, digest, signature,
			&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	} else {
		err = rsa.VerifyPKCS1v15(v.pubKey, params.hash, digest, signature)
	}

	if err != nil {
		return errVerification
	}

	return nil
}

// ECDSASignatureVerifier verifies ES256/ES384/ES512 signatures in the
// fixed-width R || S form.
type ECDSASignatureVerifier struct {
	pubKey *ecdsa.PublicKey
}

// NewECDSASignatureVerifier creates a verifier over the given EC public key.
func NewECDSASignatureVerifier(pubKey *ecdsa.PublicKey) *ECDSASignatureVerifier {
	return &ECDSASignatureVerifier{pubKey: pubKey}
}

// Verify verifies JWS signature.
func (v *ECDSASignatureVerifier) Verify(joseHeaders Headers, _, signingInput, signature []byte) error {
	alg, ok := joseHeaders.Algorithm()
	if !ok {
		return errors.New("'alg' JOSE header is not present")
	}

	params, ok := ecdsaAlgs[SigAlg(alg)]
	if !ok {
		return fmt.Errorf("'%s' is not an ECDSA signature algorithm", alg)
	}

	if v.pubKey.Curve != params.curve {
		return fmt.Errorf("'%s' requires a key on curve %s, got %s",
			alg, params.curve.Params().Name, v.pubKey.Curve.Params().Name)
	}

	// reject before touching any of the math, a truncated or padded
	// signature must not reach big.Int parsing
	if len(signature) != 2*params.keySize {
		return errVerification
	}

	hasher := params.hash.New()
	hasher.Write(signingInput)
	digest := hasher.Sum(nil)

	r := new(big.Int).SetBytes(signature[:params.keySize])
	s := new(big.Int).SetBytes(signature[params.keySize:])

	if !ecdsa.Verify(v.pubKey, digest, r, s) {
		return errVerification
	}

	return nil
}

func headerHMACAlg(joseHeaders Headers) (crypto.Hash, error) {
	alg, ok := joseHeaders.Algorithm()
	if !ok {
		return 0, errors.New("'alg' JOSE header is not present")
	}

	h, ok := hmacAlgs[SigAlg(alg)]
	if !ok {
		return 0, fmt.Errorf("'%s' is not an HMAC signature algorithm", alg)
	}

	return h, nil
}
