/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-jose/go-jose/v3"
	josecipher "github.com/go-jose/go-jose/v3/cipher"
	hybrid "github.com/google/tink/go/hybrid/subtle"

	"github.com/securekey/jose/util/cryptoutil"
)

// ecdhESKeyWrapper implements ECDH-ES direct key agreement and the
// ECDH-ES+A128KW/A192KW/A256KW key wrap variants.
//
// The sender generates an ephemeral key pair on the recipient's curve and
// derives the shared key with the RFC 7518 §4.6 Concat-KDF run: AlgorithmID
// is the content encryption method name in direct mode or the key management
// algorithm name in key wrap mode, PartyUInfo/PartyVInfo come from the apu
// and apv headers, SuppPubInfo is the 32-bit big-endian derived key bit
// length. In direct mode the derived key is the CEK; in wrap mode it is the
// kek for an AES key wrap of a fresh CEK.
type ecdhESKeyWrapper struct {
	alg  KeyAlg
	pub  *ecdsa.PublicKey
	priv *ecdsa.PrivateKey
	cfg  wrapperConfig
}

//nolint:gochecknoglobals
var ecdhKWKeySizes = map[KeyAlg]int{
	ECDHESA128KW: 16,
	ECDHESA192KW: 24,
	ECDHESA256KW: 32,
}

func newECDHESKeyWrapper(alg KeyAlg, key interface{}, cfg wrapperConfig) (*ecdhESKeyWrapper, error) {
	pub, priv, err := ecdsaKeys(alg, key)
	if err != nil {
		return nil, err
	}

	if _, err = hybrid.GetCurve(pub.Curve.Params().Name); err != nil {
		return nil, fmt.Errorf("'%s': unsupported curve: %w", alg, err)
	}

	return &ecdhESKeyWrapper{alg: alg, pub: pub, priv: priv, cfg: cfg}, nil
}

func (e *ecdhESKeyWrapper) rng() io.Reader {
	if e.cfg.rand != nil {
		return e.cfg.rand
	}

	return rand.Reader
}

// deriveParams resolves the Concat-KDF AlgorithmID and derived key size for
// this algorithm. Direct mode binds the derivation to the content encryption
// method declared in the header.
func (e *ecdhESKeyWrapper) deriveParams(headers Headers, cekSize int) (string, int, error) {
	if e.alg == ECDHES {
		enc, ok := headers.Encryption()
		if !ok {
			return "", 0, fmt.Errorf("jwe is missing encryption algorithm 'enc' header")
		}

		return enc, cekSize, nil
	}

	return string(e.alg), ecdhKWKeySizes[e.alg], nil
}

func (e *ecdhESKeyWrapper) produceCEK(headers Headers, cekSize int) ([]byte, []byte, Headers, error) {
	algID, size, err := e.deriveParams(headers, cekSize)
	if err != nil {
		return nil, nil, nil, err
	}

	apu, apv, err := agreementPartyInfo(headers)
	if err != nil {
		return nil, nil, nil, err
	}

	epk, err := ecdsa.GenerateKey(e.pub.Curve, e.rng())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generate ephemeral key: %w", err)
	}

	derived := josecipher.DeriveECDHES(algID, apu, apv, epk, e.pub, size)

	mEPK, err := (&jose.JSONWebKey{Key: &epk.PublicKey}).MarshalJSON()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal epk: %w", err)
	}

	updated := headers.With(HeaderEPK, json.RawMessage(mEPK))

	if e.alg == ECDHES {
		return derived, nil, updated, nil
	}

	cek, err := randomCEK(e.cfg, cekSize)
	if err != nil {
		return nil, nil, nil, err
	}

	encryptedKey, err := wrapWithAESKW(derived, cek)
	if err != nil {
		return nil, nil, nil, err
	}

	return cek, encryptedKey, updated, nil
}

func (e *ecdhESKeyWrapper) recoverCEK(headers Headers, encryptedKey []byte, cekSize int) ([]byte, error) {
	if e.priv == nil {
		return nil, fmt.Errorf("'%s' decryption requires a private key", e.alg)
	}

	epk, err := e.ephemeralPublicKey(headers)
	if err != nil {
		return nil, err
	}

	algID, size, err := e.deriveParams(headers, cekSize)
	if err != nil {
		return nil, err
	}

	apu, apv, err := agreementPartyInfo(headers)
	if err != nil {
		return nil, err
	}

	derived := josecipher.DeriveECDHES(algID, apu, apv, e.priv, epk, size)

	if e.alg == ECDHES {
		return derived, nil
	}

	cek, err := unwrapWithAESKW(derived, encryptedKey)
	if err != nil {
		return nil, err
	}

	if len(cek) != cekSize {
		return nil, fmt.Errorf("ecdh key unwrap: unwrapped cek size %d, expected %d", len(cek), cekSize)
	}

	return cek, nil
}

// ephemeralPublicKey extracts the sender's epk header and validates it: the
// key must be on the recipient's own curve, checked with explicit modular
// arithmetic before any ECDH computation. Skipping the check and trusting the
// provider opens the invalid-curve attack that leaks recipient private key
// bits one small-subgroup query at a time.
func (e *ecdhESKeyWrapper) ephemeralPublicKey(headers Headers) (*ecdsa.PublicKey, error) {
	raw, ok := headers[HeaderEPK]
	if !ok {
		return nil, fmt.Errorf("jwe is missing 'epk' header")
	}

	var jwkKey jose.JSONWebKey

	if err := convertMapToValue(raw, &jwkKey); err != nil {
		return nil, fmt.Errorf("unmarshal 'epk' header: %w", err)
	}

	epk, ok := jwkKey.Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("'epk' header is not an EC public key")
	}

	if epk.Curve != e.priv.Curve {
		return nil, fmt.Errorf("'epk' header curve does not match recipient key curve")
	}

	if !cryptoutil.OnCurve(epk.Curve, epk.X, epk.Y) {
		return nil, fmt.Errorf("'epk' header point is not on recipient key curve")
	}

	return epk, nil
}

func agreementPartyInfo(headers Headers) (apu, apv []byte, err error) {
	if _, ok := headers[HeaderAPU]; ok {
		apu, err = headerBytesValue(headers, HeaderAPU)
		if err != nil {
			return nil, nil, err
		}
	}

	if _, ok := headers[HeaderAPV]; ok {
		apv, err = headerBytesValue(headers, HeaderAPV)
		if err != nil {
			return nil, nil, err
		}
	}

	return apu, apv, nil
}

// base64url helpers for apu/apv producers.
func encodePartyInfo(info []byte) string {
	return base64.RawURLEncoding.EncodeToString(info)
}
