/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"

	"github.com/securekey/jose/util/cryptoutil"
)

// PBES2 derivation parameter floors, ceiling and defaults. RFC 7518 §4.8.1
// sets the floors; the defaults follow current OWASP guidance for PBKDF2. The
// iteration ceiling bounds the work an unauthenticated token can demand.
const (
	pbes2MinSaltSize  = 8
	pbes2MinCount     = 1000
	pbes2MaxCount     = 1000000
	pbes2DefaultSalt  = 16
	pbes2DefaultCount = 100000
)

type pbes2Params struct {
	prf     func() hash.Hash
	keySize int
}

//nolint:gochecknoglobals
var pbes2Algs = map[KeyAlg]pbes2Params{
	PBES2HS256A128KW: {prf: sha256.New, keySize: 16},
	PBES2HS384A192KW: {prf: sha512.New384, keySize: 24},
	PBES2HS512A256KW: {prf: sha512.New, keySize: 32},
}

// pbes2KeyWrapper implements PBES2-HS256+A128KW, PBES2-HS384+A192KW and
// PBES2-HS512+A256KW. The wrapping kek is derived from the passphrase with
// PBKDF2 over a salt of ASCII(alg) || 0x00 || p2s, and the p2s/p2c inputs
// become header parameters covered by the content layer AAD.
type pbes2KeyWrapper struct {
	alg        KeyAlg
	passphrase []byte
	saltSize   int
	count      int
	cfg        wrapperConfig
}

func newPBES2KeyWrapper(alg KeyAlg, passphrase []byte, cfg wrapperConfig) (*pbes2KeyWrapper, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("'%s' requires a non-empty passphrase", alg)
	}

	saltSize := cfg.p2sSize
	if saltSize == 0 {
		saltSize = pbes2DefaultSalt
	}

	count := cfg.p2cCount
	if count == 0 {
		count = pbes2DefaultCount
	}

	if saltSize < pbes2MinSaltSize {
		return nil, fmt.Errorf("'%s' salt size %d below minimum %d", alg, saltSize, pbes2MinSaltSize)
	}

	if count < pbes2MinCount {
		return nil, fmt.Errorf("'%s' iteration count %d below minimum %d", alg, count, pbes2MinCount)
	}

	if count > pbes2MaxCount {
		return nil, fmt.Errorf("'%s' iteration count %d above maximum %d", alg, count, pbes2MaxCount)
	}

	return &pbes2KeyWrapper{alg: alg, passphrase: passphrase, saltSize: saltSize, count: count, cfg: cfg}, nil
}

// deriveKEK runs the RFC 7518 §4.8.1.1 salt expansion: the algorithm name
// joins the salt input so a kek derived for one PBES2 variant can never be
// replayed under another.
func (p *pbes2KeyWrapper) deriveKEK(p2s []byte, p2c int) []byte {
	params := pbes2Algs[p.alg]

	salt := make([]byte, 0, len(p.alg)+1+len(p2s))
	salt = append(salt, []byte(p.alg)...)
	salt = append(salt, 0x00)
	salt = append(salt, p2s...)

	return pbkdf2.Key(p.passphrase, salt, p2c, params.keySize, params.prf)
}

func (p *pbes2KeyWrapper) produceCEK(headers Headers, cekSize int) ([]byte, []byte, Headers, error) {
	p2s, err := cryptoutil.ReadRandomBytes(p.cfg.rand, p.saltSize)
	if err != nil {
		return nil, nil, nil, err
	}

	cek, err := randomCEK(p.cfg, cekSize)
	if err != nil {
		return nil, nil, nil, err
	}

	encryptedKey, err := wrapWithAESKW(p.deriveKEK(p2s, p.count), cek)
	if err != nil {
		return nil, nil, nil, err
	}

	updated := headers.
		With(HeaderP2S, base64.RawURLEncoding.EncodeToString(p2s)).
		With(HeaderP2C, p.count)

	return cek, encryptedKey, updated, nil
}

func (p *pbes2KeyWrapper) recoverCEK(headers Headers, encryptedKey []byte, cekSize int) ([]byte, error) {
	p2s, err := headerBytesValue(headers, HeaderP2S)
	if err != nil {
		return nil, err
	}

	if len(p2s) < pbes2MinSaltSize {
		return nil, fmt.Errorf("'%s' salt size %d below minimum %d", p.alg, len(p2s), pbes2MinSaltSize)
	}

	p2c, err := headerIntValue(headers, HeaderP2C)
	if err != nil {
		return nil, err
	}

	// an attacker-chosen low count would reduce the derivation to a cheap
	// dictionary run against the passphrase
	if p2c < pbes2MinCount {
		return nil, fmt.Errorf("'%s' iteration count %d below minimum %d", p.alg, p2c, pbes2MinCount)
	}

	// the header is unauthenticated when the derivation runs, so an
	// attacker-chosen huge count would burn minutes of CPU per token
	if p2c > pbes2MaxCount {
		return nil, fmt.Errorf("'%s' iteration count %d above maximum %d", p.alg, p2c, pbes2MaxCount)
	}

	cek, err := unwrapWithAESKW(p.deriveKEK(p2s, p2c), encryptedKey)
	if err != nil {
		return nil, err
	}

	if len(cek) != cekSize {
		return nil, fmt.Errorf("pbes2 key unwrap: unwrapped cek size %d, expected %d", len(cek), cekSize)
	}

	return cek, nil
}

// headerIntValue reads a required integer header parameter. JSON decoding
// yields float64, a locally built header may carry int.
func headerIntValue(headers Headers, name string) (int, error) {
	raw, ok := headers[name]
	if !ok {
		return 0, fmt.Errorf("jwe is missing '%s' header", name)
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("'%s' header is not an integer", name)
		}

		return int(v), nil
	default:
		return 0, fmt.Errorf("'%s' header is not an integer", name)
	}
}
