/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"encoding/base64"
	"fmt"
	"io"
)

// Encrypter interface to Encrypt payloads into JWE tokens.
type Encrypter interface {
	// Encrypt plaintext and return a JSONWebEncryption.
	Encrypt(plaintext []byte) (*JSONWebEncryption, error)
}

// JWEEncrypt is the compact serialization JWE encrypter. It binds one key
// management algorithm, one content encryption method and one recipient key
// at construction; a configured encrypter is immutable and safe for
// concurrent use.
type JWEEncrypt struct {
	alg     KeyAlg
	enc     EncAlg
	wrapper keyWrapper
	headers Headers
	cfg     wrapperConfig
}

// EncryptOption configures a JWEEncrypt.
type EncryptOption func(*encrypterOpts)

type encrypterOpts struct {
	typ         string
	contentType string
	keyID       string
	compression string
	apu         []byte
	apv         []byte
	critical    []string
	extra       Headers
	cfg         wrapperConfig
}

// WithType sets the typ protected header of produced tokens.
func WithType(typ string) EncryptOption {
	return func(o *encrypterOpts) {
		o.typ = typ
	}
}

// WithContentType sets the cty protected header of produced tokens.
func WithContentType(cty string) EncryptOption {
	return func(o *encrypterOpts) {
		o.contentType = cty
	}
}

// WithKeyID sets the kid protected header of produced tokens.
func WithKeyID(kid string) EncryptOption {
	return func(o *encrypterOpts) {
		o.keyID = kid
	}
}

// WithCompression enables plaintext compression with the given zip algorithm.
// Only CompressionAlgDEF is supported.
func WithCompression(zip string) EncryptOption {
	return func(o *encrypterOpts) {
		o.compression = zip
	}
}

// WithAgreementPartyInfo sets the apu and apv protected headers consumed by
// the ECDH-ES key derivation.
func WithAgreementPartyInfo(apu, apv []byte) EncryptOption {
	return func(o *encrypterOpts) {
		o.apu = apu
		o.apv = apv
	}
}

// WithCritical declares extension header names that consumers must understand
// to process produced tokens. The extension values themselves are set with
// WithHeader.
func WithCritical(names ...string) EncryptOption {
	return func(o *encrypterOpts) {
		o.critical = append(o.critical, names...)
	}
}

// WithHeader sets an additional protected header of produced tokens.
func WithHeader(name string, value interface{}) EncryptOption {
	return func(o *encrypterOpts) {
		if o.extra == nil {
			o.extra = Headers{}
		}

		o.extra[name] = value
	}
}

// WithRandSource overrides the random source used for CEKs, IVs, ephemeral
// keys and salts. Meant for tests; nil keeps the process-wide secure
// generator.
func WithRandSource(r io.Reader) EncryptOption {
	return func(o *encrypterOpts) {
		o.cfg.rand = r
	}
}

// WithPBES2Params sets the PBES2 salt size and iteration count. Values below
// the RFC 7518 floors (8 byte salt, 1000 iterations) fail construction.
func WithPBES2Params(saltSize, count int) EncryptOption {
	return func(o *encrypterOpts) {
		o.cfg.p2sSize = saltSize
		o.cfg.p2cCount = count
	}
}

// NewJWEEncrypt creates an encrypter for the given key management and content
// encryption algorithm pair. The key must be the family-appropriate material:
// []byte or string for the symmetric and PBES2 families, *rsa.PublicKey (or
// *rsa.PrivateKey) for RSA, *ecdsa.PublicKey (or *ecdsa.PrivateKey) for
// ECDH-ES. All configuration problems are reported here, never at Encrypt
// time.
func NewJWEEncrypt(alg KeyAlg, enc EncAlg, key interface{}, opts ...EncryptOption) (*JWEEncrypt, error) {
	o := &encrypterOpts{}

	for _, opt := range opts {
		opt(o)
	}

	if _, err := encParams(enc); err != nil {
		return nil, fmt.Errorf("jweencrypt: %w", err)
	}

	wrapper, err := newKeyWrapper(alg, key, o.cfg)
	if err != nil {
		return nil, fmt.Errorf("jweencrypt: %w", err)
	}

	if o.compression != "" && o.compression != CompressionAlgDEF {
		return nil, fmt.Errorf("jweencrypt: compression algorithm '%s' not supported, supported algorithms: %s",
			o.compression, CompressionAlgDEF)
	}

	headers := Headers{
		HeaderAlgorithm:  string(alg),
		HeaderEncryption: string(enc),
	}

	if o.typ != "" {
		headers[HeaderType] = o.typ
	}

	if o.contentType != "" {
		headers[HeaderContentType] = o.contentType
	}

	if o.keyID != "" {
		headers[HeaderKeyID] = o.keyID
	}

	if o.compression != "" {
		headers[HeaderCompression] = o.compression
	}

	if len(o.apu) > 0 {
		headers[HeaderAPU] = encodePartyInfo(o.apu)
	}

	if len(o.apv) > 0 {
		headers[HeaderAPV] = encodePartyInfo(o.apv)
	}

	for k, v := range o.extra {
		headers[k] = v
	}

	if len(o.critical) > 0 {
		headers[HeaderCritical] = o.critical
	}

	return &JWEEncrypt{alg: alg, enc: enc, wrapper: wrapper, headers: headers, cfg: o.cfg}, nil
}

// Encrypt encrypts plaintext and returns the resulting JSONWebEncryption.
//
// The ordering here carries the token's integrity: the CEK is produced first
// so key-wrapping header side effects (GCM key wrap iv/tag, PBES2 p2s/p2c,
// ECDH-ES epk) land in the header, then that final header is serialized once
// and its serialization becomes both the AAD and the first compact segment.
func (e *JWEEncrypt) Encrypt(plaintext []byte) (*JSONWebEncryption, error) {
	params, err := encParams(e.enc)
	if err != nil {
		return nil, fmt.Errorf("jweencrypt: %w", err)
	}

	cek, encryptedKey, headers, err := e.wrapper.produceCEK(e.headers, params.cekSize)
	if err != nil {
		return nil, fmt.Errorf("jweencrypt: %w", err)
	}

	serialized, err := serializeProtectedHeaders(headers)
	if err != nil {
		return nil, fmt.Errorf("jweencrypt: serialize JWE headers: %w", err)
	}

	aad := computeAuthData(serialized)
	legacyPrefix := serialized + "." + base64.RawURLEncoding.EncodeToString(encryptedKey)

	parts, err := encryptContent(headers, e.enc, cek, plaintext, aad, legacyPrefix, e.cfg.rand)
	if err != nil {
		return nil, fmt.Errorf("jweencrypt: %w", err)
	}

	return &JSONWebEncryption{
		ProtectedHeaders:     headers,
		OrigProtectedHeaders: serialized,
		EncryptedCEK:         encryptedKey,
		IV:                   parts.iv,
		Ciphertext:           parts.ciphertext,
		Tag:                  parts.tag,
	}, nil
}
