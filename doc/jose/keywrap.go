/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
	"io"

	"github.com/securekey/jose/util/cryptoutil"
)

// keyWrapper is the key management strategy contract. One implementation
// exists per algorithm family; all of them are stateless after construction
// and safe for concurrent reuse.
//
// produceCEK returns the content encryption key for a new message, the
// encrypted key part (nil when the algorithm carries no encrypted key) and
// the final header: strategies with header side effects (GCM key wrap,
// PBES2, ECDH-ES) return a rebuilt header which is the one that must be
// serialized and authenticated.
//
// recoverCEK recovers the content encryption key of a received message. It
// must not leak, through error values or control flow, anything beyond
// "could not decrypt".
type keyWrapper interface {
	produceCEK(headers Headers, cekSize int) (cek, encryptedKey []byte, updated Headers, err error)
	recoverCEK(headers Headers, encryptedKey []byte, cekSize int) ([]byte, error)
}

// wrapperConfig carries the injectable services of the key management
// strategies: the random source and the PBES2 derivation parameters.
type wrapperConfig struct {
	rand     io.Reader // nil means the process-wide secure generator
	p2sSize  int
	p2cCount int
}

// newKeyWrapper is the closed dispatch over key management algorithms. The
// key argument must be the family-appropriate material; a wrong type or a
// wrong bit length is a configuration error reported here, at construction,
// never at use.
func newKeyWrapper(alg KeyAlg, key interface{}, cfg wrapperConfig) (keyWrapper, error) {
	switch alg {
	case Direct:
		k, err := symmetricKey(alg, key)
		if err != nil {
			return nil, err
		}

		return &directKeyWrapper{key: k}, nil
	case A128KW, A192KW, A256KW:
		k, err := symmetricKey(alg, key)
		if err != nil {
			return nil, err
		}

		return newAESKeyWrapper(alg, k, cfg)
	case A128GCMKW, A192GCMKW, A256GCMKW:
		k, err := symmetricKey(alg, key)
		if err != nil {
			return nil, err
		}

		return newAESGCMKeyWrapper(alg, k, cfg)
	case RSA15, RSAOAEP, RSAOAEP256:
		return newRSAKeyWrapper(alg, key, cfg)
	case ECDHES, ECDHESA128KW, ECDHESA192KW, ECDHESA256KW:
		return newECDHESKeyWrapper(alg, key, cfg)
	case PBES2HS256A128KW, PBES2HS384A192KW, PBES2HS512A256KW:
		k, err := symmetricKey(alg, key)
		if err != nil {
			return nil, err
		}

		return newPBES2KeyWrapper(alg, k, cfg)
	default:
		return nil, validKeyAlg(alg)
	}
}

func symmetricKey(alg KeyAlg, key interface{}) ([]byte, error) {
	switch k := key.(type) {
	case []byte:
		return k, nil
	case string:
		return []byte(k), nil
	default:
		return nil, fmt.Errorf("'%s' requires a symmetric key, got %T", alg, key)
	}
}

func rsaKeys(alg KeyAlg, key interface{}) (*rsa.PublicKey, *rsa.PrivateKey, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		return k, nil, nil
	case *rsa.PrivateKey:
		return &k.PublicKey, k, nil
	default:
		return nil, nil, fmt.Errorf("'%s' requires an RSA key, got %T", alg, key)
	}
}

func ecdsaKeys(alg KeyAlg, key interface{}) (*ecdsa.PublicKey, *ecdsa.PrivateKey, error) {
	switch k := key.(type) {
	case *ecdsa.PublicKey:
		return k, nil, nil
	case *ecdsa.PrivateKey:
		return &k.PublicKey, k, nil
	default:
		return nil, nil, fmt.Errorf("'%s' requires an EC key, got %T", alg, key)
	}
}

func randomCEK(cfg wrapperConfig, cekSize int) ([]byte, error) {
	return cryptoutil.ReadRandomBytes(cfg.rand, cekSize)
}

// directKeyWrapper uses the provided shared symmetric key as the CEK with no
// encrypted key part. The key bit length must exactly match the content
// encryption method's requirement; a mismatch is a configuration error, not
// something to pad or truncate around.
type directKeyWrapper struct {
	key []byte
}

func (d *directKeyWrapper) produceCEK(headers Headers, cekSize int) ([]byte, []byte, Headers, error) {
	if len(d.key) != cekSize {
		return nil, nil, nil, fmt.Errorf("direct key size %d invalid, content encryption requires %d bytes",
			len(d.key), cekSize)
	}

	cek := make([]byte, cekSize)
	copy(cek, d.key)

	return cek, nil, headers, nil
}

func (d *directKeyWrapper) recoverCEK(_ Headers, encryptedKey []byte, cekSize int) ([]byte, error) {
	if len(encryptedKey) != 0 {
		return nil, fmt.Errorf("'dir' must have an empty encrypted key part")
	}

	if len(d.key) != cekSize {
		return nil, fmt.Errorf("direct key size %d invalid, content encryption requires %d bytes",
			len(d.key), cekSize)
	}

	cek := make([]byte, cekSize)
	copy(cek, d.key)

	return cek, nil
}
