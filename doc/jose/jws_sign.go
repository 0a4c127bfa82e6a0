/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
)

// SigAlg represents a JWS signature algorithm
// (https://tools.ietf.org/html/rfc7518#section-3.1).
type SigAlg string

const (
	// HS256 for HMAC with SHA-256.
	HS256 = SigAlg("HS256")
	// HS384 for HMAC with SHA-384.
	HS384 = SigAlg("HS384")
	// HS512 for HMAC with SHA-512.
	HS512 = SigAlg("HS512")
	// RS256 for RSASSA-PKCS1-v1_5 with SHA-256.
	RS256 = SigAlg("RS256")
	// RS384 for RSASSA-PKCS1-v1_5 with SHA-384.
	RS384 = SigAlg("RS384")
	// RS512 for RSASSA-PKCS1-v1_5 with SHA-512.
	RS512 = SigAlg("RS512")
	// PS256 for RSASSA-PSS with SHA-256.
	PS256 = SigAlg("PS256")
	// PS384 for RSASSA-PSS with SHA-384.
	PS384 = SigAlg("PS384")
	// PS512 for RSASSA-PSS with SHA-512.
	PS512 = SigAlg("PS512")
	// ES256 for ECDSA over P-256 with SHA-256.
	ES256 = SigAlg("ES256")
	// ES384 for ECDSA over P-384 with SHA-384.
	ES384 = SigAlg("ES384")
	// ES512 for ECDSA over P-521 with SHA-512.
	ES512 = SigAlg("ES512")
)

//nolint:gochecknoglobals
var hmacAlgs = map[SigAlg]crypto.Hash{
	HS256: crypto.SHA256,
	HS384: crypto.SHA384,
	HS512: crypto.SHA512,
}

//nolint:gochecknoglobals
var rsaAlgs = map[SigAlg]struct {
	hash crypto.Hash
	pss  bool
}{
	RS256: {hash: crypto.SHA256},
	RS384: {hash: crypto.SHA384},
	RS512: {hash: crypto.SHA512},
	PS256: {hash: crypto.SHA256, pss: true},
	PS384: {hash: crypto.SHA384, pss: true},
	PS512: {hash: crypto.SHA512, pss: true},
}

// ecdsaAlgs binds each ES algorithm to its curve and the exact byte width of
// each signature half. ES512 runs on P-521, whose 521-bit scalars need 66
// bytes, not 64.
//
//nolint:gochecknoglobals
var ecdsaAlgs = map[SigAlg]struct {
	hash    crypto.Hash
	curve   elliptic.Curve
	keySize int
}{
	ES256: {hash: crypto.SHA256, curve: elliptic.P256(), keySize: 32},
	ES384: {hash: crypto.SHA384, curve: elliptic.P384(), keySize: 48},
	ES512: {hash: crypto.SHA512, curve: elliptic.P521(), keySize: 66},
}

// HMACSigner is a JWS Signer for the HS256/HS384/HS512 algorithms.
type HMACSigner struct {
	alg  SigAlg
	hash crypto.Hash
	key  []byte
}

// NewHMACSigner creates a signer for the given HMAC algorithm and secret.
func NewHMACSigner(alg SigAlg, key []byte) (*HMACSigner, error) {
	h, ok := hmacAlgs[alg]
	if !ok {
		return nil, fmt.Errorf("'%s' is not an HMAC signature algorithm", alg)
	}

	if len(key) == 0 {
		return nil, fmt.Errorf("'%s' requires a non-empty secret", alg)
	}

	return &HMACSigner{alg: alg, hash: h, key: key}, nil
}

// Sign signs.
func (s *HMACSigner) Sign(data []byte) ([]byte, error) {
	mac := hmac.New(s.hash.New, s.key)
	mac.Write(data)

	return mac.Sum(nil), nil
}

// Headers provides JWS headers.
func (s *HMACSigner) Headers() Headers {
	return Headers{HeaderAlgorithm: string(s.alg)}
}

// RSASigner is a JWS Signer for the RS256/RS384/RS512 (PKCS#1 v1.5) and
// PS256/PS384/PS512 (PSS) algorithms.
type RSASigner struct {
	alg  SigAlg
	key  *rsa.PrivateKey
	hash crypto.Hash
	pss  bool
}

// NewRSASigner creates a signer for the given RSA algorithm and private key.
func NewRSASigner(alg SigAlg, key *rsa.PrivateKey) (*RSASigner, error) {
	params, ok := rsaAlgs[alg]
	if !ok {
		return nil, fmt.Errorf("'%s' is not an RSA signature algorithm", alg)
	}

	if key == nil {
		return nil, fmt.Errorf("'%s' requires an RSA private key", alg)
	}

	return &RSASigner{alg: alg, key: key, hash: params.hash, pss: params.pss}, nil
}

// Sign signs.
func (s *RSASigner) Sign(data []byte) ([]byte, error) {
	hasher := s.hash.New()
	hasher.Write(data)
	digest := hasher.Sum(nil)

	if s.pss {
		// RFC 7518 §3.5 fixes the PSS salt length to the digest length
		return rsa.SignPSS(rand.Reader, s.key, s.hash, digest,
			&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	}

	return rsa.SignPKCS1v15(rand.Reader, s.key, s.hash, digest)
}

// Headers provides JWS headers.
func (s *RSASigner) Headers() Headers {
	return Headers{HeaderAlgorithm: string(s.alg)}
}

// ECDSASigner is a JWS Signer for the ES256/ES384/ES512 algorithms. The
// signature is the fixed-width R || S concatenation mandated by RFC 7518
// §3.4, not the ASN.1 DER form.
type ECDSASigner struct {
	alg     SigAlg
	key     *ecdsa.PrivateKey
	hash    crypto.Hash
	keySize int
}

// NewECDSASigner creates a signer for the given ECDSA algorithm and private
// key. The key's curve must be the one the algorithm names.
func NewECDSASigner(alg SigAlg, key *ecdsa.PrivateKey) (*ECDSASigner, error) {
	params, ok := ecdsaAlgs[alg]
	if !ok {
		return nil, fmt.Errorf("'%s' is not an ECDSA signature algorithm", alg)
	}

	if key == nil {
		return nil, fmt.Errorf("'%s' requires an EC private key", alg)
	}

	if key.Curve != params.curve {
		return nil, fmt.Errorf("'%s' requires a key on curve %s, got %s",
			alg, params.curve.Params().Name, key.Curve.Params().Name)
	}

	return &ECDSASigner{alg: alg, key: key, hash: params.hash, keySize: params.keySize}, nil
}

// Sign signs.
func (s *ECDSASigner) Sign(data []byte) ([]byte, error) {
	hasher := s.hash.New()
	hasher.Write(data)
	digest := hasher.Sum(nil)

	r, sv, err := ecdsa.Sign(rand.Reader, s.key, digest)
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}

	signature := make([]byte, 2*s.keySize)
	r.FillBytes(signature[:s.keySize])
	sv.FillBytes(signature[s.keySize:])

	return signature, nil
}

// Headers provides JWS headers.
func (s *ECDSASigner) Headers() Headers {
	return Headers{HeaderAlgorithm: string(s.alg)}
}
