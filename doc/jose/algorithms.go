/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto"
	_ "crypto/sha256" // linked for the CBC-HMAC and PBES2 digests
	_ "crypto/sha512"
	"fmt"
	"sort"
	"strings"
)

// KeyAlg represents a JWE key management algorithm
// (https://tools.ietf.org/html/rfc7518#section-4.1).
type KeyAlg string

const (
	// RSA15 for RSAES-PKCS1-v1_5 CEK encryption.
	RSA15 = KeyAlg("RSA1_5")
	// RSAOAEP for RSAES OAEP CEK encryption with SHA-1.
	RSAOAEP = KeyAlg("RSA-OAEP")
	// RSAOAEP256 for RSAES OAEP CEK encryption with SHA-256.
	RSAOAEP256 = KeyAlg("RSA-OAEP-256")
	// A128KW for AES-128 key wrap.
	A128KW = KeyAlg("A128KW")
	// A192KW for AES-192 key wrap.
	A192KW = KeyAlg("A192KW")
	// A256KW for AES-256 key wrap.
	A256KW = KeyAlg("A256KW")
	// Direct for direct use of a shared symmetric key as the CEK.
	Direct = KeyAlg("dir")
	// ECDHES for Ephemeral-Static ECDH with the derived key used directly as the CEK.
	ECDHES = KeyAlg("ECDH-ES")
	// ECDHESA128KW for Ephemeral-Static ECDH with AES-128 key wrap.
	ECDHESA128KW = KeyAlg("ECDH-ES+A128KW")
	// ECDHESA192KW for Ephemeral-Static ECDH with AES-192 key wrap.
	ECDHESA192KW = KeyAlg("ECDH-ES+A192KW")
	// ECDHESA256KW for Ephemeral-Static ECDH with AES-256 key wrap.
	ECDHESA256KW = KeyAlg("ECDH-ES+A256KW")
	// A128GCMKW for AES-128 GCM key wrap.
	A128GCMKW = KeyAlg("A128GCMKW")
	// A192GCMKW for AES-192 GCM key wrap.
	A192GCMKW = KeyAlg("A192GCMKW")
	// A256GCMKW for AES-256 GCM key wrap.
	A256GCMKW = KeyAlg("A256GCMKW")
	// PBES2HS256A128KW for PBES2 with HMAC-SHA-256 PRF and AES-128 key wrap.
	PBES2HS256A128KW = KeyAlg("PBES2-HS256+A128KW")
	// PBES2HS384A192KW for PBES2 with HMAC-SHA-384 PRF and AES-192 key wrap.
	PBES2HS384A192KW = KeyAlg("PBES2-HS384+A192KW")
	// PBES2HS512A256KW for PBES2 with HMAC-SHA-512 PRF and AES-256 key wrap.
	PBES2HS512A256KW = KeyAlg("PBES2-HS512+A256KW")
)

// EncAlg represents a JWE content encryption algorithm
// (https://tools.ietf.org/html/rfc7518#section-5.1).
type EncAlg string

const (
	// A128GCM for AES-128 GCM content encryption.
	A128GCM = EncAlg("A128GCM")
	// A192GCM for AES-192 GCM content encryption.
	A192GCM = EncAlg("A192GCM")
	// A256GCM for AES-256 GCM content encryption.
	A256GCM = EncAlg("A256GCM")
	// XC20P for XChaCha20-Poly1305 content encryption (draft extension).
	XC20P = EncAlg("XC20P")
	// A128CBCHS256 for A128CBC-HS256 (AES128-CBC+HMAC-SHA256) content encryption.
	A128CBCHS256 = EncAlg("A128CBC-HS256")
	// A192CBCHS384 for A192CBC-HS384 (AES192-CBC+HMAC-SHA384) content encryption.
	A192CBCHS384 = EncAlg("A192CBC-HS384")
	// A256CBCHS512 for A256CBC-HS512 (AES256-CBC+HMAC-SHA512) content encryption.
	A256CBCHS512 = EncAlg("A256CBC-HS512")

	// A128CBCHS256Draft is the pre-RFC draft AES128-CBC suite with ConcatKDF
	// key derivation and segment-based integrity. Deprecated, retained for
	// interoperability with legacy tokens only.
	A128CBCHS256Draft = EncAlg("A128CBC+HS256")
	// A256CBCHS512Draft is the pre-RFC draft AES256-CBC suite. Deprecated,
	// retained for interoperability with legacy tokens only.
	A256CBCHS512Draft = EncAlg("A256CBC+HS512")
)

type encFamily int

const (
	familyGCM encFamily = iota
	familyCBCHMAC
	familyXC20P
	familyLegacyCBC
)

// encAlgParams is the static metadata of a content encryption method: the
// exact CEK byte length it requires, its IV size and its family dispatch tag.
// For the legacy draft suite cekSize is the Content Master Key length and
// hash is the digest used both for the KDF and the segment HMAC.
type encAlgParams struct {
	cekSize int
	ivSize  int
	family  encFamily
	hash    crypto.Hash
}

//nolint:gochecknoglobals
var encAlgs = map[EncAlg]encAlgParams{
	A128GCM:      {cekSize: 16, ivSize: 12, family: familyGCM},
	A192GCM:      {cekSize: 24, ivSize: 12, family: familyGCM},
	A256GCM:      {cekSize: 32, ivSize: 12, family: familyGCM},
	XC20P:        {cekSize: 32, ivSize: 24, family: familyXC20P},
	A128CBCHS256: {cekSize: 32, ivSize: 16, family: familyCBCHMAC},
	A192CBCHS384: {cekSize: 48, ivSize: 16, family: familyCBCHMAC},
	A256CBCHS512: {cekSize: 64, ivSize: 16, family: familyCBCHMAC},

	A128CBCHS256Draft: {cekSize: 16, ivSize: 16, family: familyLegacyCBC, hash: crypto.SHA256},
	A256CBCHS512Draft: {cekSize: 32, ivSize: 16, family: familyLegacyCBC, hash: crypto.SHA512},
}

func encParams(enc EncAlg) (encAlgParams, error) {
	p, ok := encAlgs[enc]
	if !ok {
		return encAlgParams{}, fmt.Errorf("content encryption algorithm '%s' not supported, supported algorithms: %s",
			enc, supportedEncAlgs())
	}

	return p, nil
}

func supportedEncAlgs() string {
	names := make([]string, 0, len(encAlgs))

	for alg := range encAlgs {
		names = append(names, string(alg))
	}

	sort.Strings(names)

	return strings.Join(names, ", ")
}

//nolint:gochecknoglobals
var keyAlgs = map[KeyAlg]struct{}{
	RSA15: {}, RSAOAEP: {}, RSAOAEP256: {},
	A128KW: {}, A192KW: {}, A256KW: {},
	Direct: {},
	ECDHES: {}, ECDHESA128KW: {}, ECDHESA192KW: {}, ECDHESA256KW: {},
	A128GCMKW: {}, A192GCMKW: {}, A256GCMKW: {},
	PBES2HS256A128KW: {}, PBES2HS384A192KW: {}, PBES2HS512A256KW: {},
}

func validKeyAlg(alg KeyAlg) error {
	if _, ok := keyAlgs[alg]; !ok {
		return fmt.Errorf("key management algorithm '%s' not supported, supported algorithms: %s",
			alg, supportedKeyAlgs())
	}

	return nil
}

func supportedKeyAlgs() string {
	names := make([]string, 0, len(keyAlgs))

	for alg := range keyAlgs {
		names = append(names, string(alg))
	}

	sort.Strings(names)

	return strings.Join(names, ", ")
}
