/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"encoding/json"

	"golang.org/x/exp/slices"
)

// IANA registered JOSE headers (https://tools.ietf.org/html/rfc7515#section-4.1)
const (
	// HeaderAlgorithm identifies:
	// For JWS: the cryptographic algorithm used to secure the JWS.
	// For JWE: the cryptographic algorithm used to encrypt or determine the value of the CEK.
	HeaderAlgorithm = "alg" // string

	// HeaderEncryption identifies the JWE content encryption algorithm.
	HeaderEncryption = "enc" // string

	// HeaderCompression identifies the JWE plaintext compression algorithm.
	HeaderCompression = "zip" // string

	// HeaderKeyID is a hint:
	// For JWS: indicating which key was used to secure the JWS.
	// For JWE: which references the public key to which the JWE was encrypted.
	HeaderKeyID = "kid" // string

	// HeaderType is:
	// For JWS: used by JWS applications to declare the media type of this complete JWS.
	// For JWE: used by JWE applications to declare the media type of this complete JWE.
	HeaderType = "typ" // string

	// HeaderContentType is used by JWS applications to declare the media type of:
	// For JWS: the secured content (the payload).
	// For JWE: the secured content (the plaintext).
	HeaderContentType = "cty" // string

	// HeaderCritical indicates that extensions to:
	// For JWS: this JWS header specification and/or JWA are being used that MUST be understood and processed.
	// For JWE: this JWE header specification and/or JWA are being used that MUST be understood and processed.
	HeaderCritical = "crit" // array
)

// JWE key management headers produced as key-wrapping side effects
// (https://tools.ietf.org/html/rfc7518).
const (
	// HeaderIV is the initialization vector of an AES GCM key wrap.
	HeaderIV = "iv" // string, base64url

	// HeaderTag is the authentication tag of an AES GCM key wrap.
	HeaderTag = "tag" // string, base64url

	// HeaderEPK is the sender's ephemeral public key for ECDH-ES key agreement.
	HeaderEPK = "epk" // JSON

	// HeaderAPU is the agreement PartyUInfo for ECDH-ES key agreement.
	HeaderAPU = "apu" // string, base64url

	// HeaderAPV is the agreement PartyVInfo for ECDH-ES key agreement.
	HeaderAPV = "apv" // string, base64url

	// HeaderP2S is the PBES2 salt input.
	HeaderP2S = "p2s" // string, base64url

	// HeaderP2C is the PBES2 iteration count.
	HeaderP2C = "p2c" // number
)

// Header defined in https://tools.ietf.org/html/rfc7797
const (
	// HeaderB64Payload determines whether the payload is represented in the JWS and the JWS Signing
	// Input as ASCII(BASE64URL(JWS Payload)) or as the JWS Payload value itself with no encoding performed.
	HeaderB64Payload = "b64" // bool
)

// CompressionAlgDEF is the only registered JWE compression algorithm, raw
// DEFLATE (https://tools.ietf.org/html/rfc7516#section-4.1.3).
const CompressionAlgDEF = "DEF"

// Headers represents JOSE headers.
type Headers map[string]interface{}

// KeyID gets Key ID from JOSE headers.
func (h Headers) KeyID() (string, bool) {
	return h.stringValue(HeaderKeyID)
}

// Algorithm gets Algorithm from JOSE headers.
func (h Headers) Algorithm() (string, bool) {
	return h.stringValue(HeaderAlgorithm)
}

// Encryption gets content encryption algorithm from JOSE headers.
func (h Headers) Encryption() (string, bool) {
	return h.stringValue(HeaderEncryption)
}

// Compression gets the plaintext compression algorithm from JOSE headers.
func (h Headers) Compression() (string, bool) {
	return h.stringValue(HeaderCompression)
}

// Type gets content encryption type from JOSE headers.
func (h Headers) Type() (string, bool) {
	return h.stringValue(HeaderType)
}

// ContentType gets the payload content type from JOSE headers.
func (h Headers) ContentType() (string, bool) {
	return h.stringValue(HeaderContentType)
}

// Critical gets the critical header parameter names from JOSE headers.
func (h Headers) Critical() ([]string, bool) {
	raw, ok := h[HeaderCritical]
	if !ok {
		return nil, false
	}

	var names []string

	switch crit := raw.(type) {
	case []string:
		names = crit
	case []interface{}:
		for _, v := range crit {
			name, isStr := v.(string)
			if !isStr {
				return nil, false
			}

			names = append(names, name)
		}
	default:
		return nil, false
	}

	return names, true
}

func (h Headers) stringValue(key string) (string, bool) {
	raw, ok := h[key]
	if !ok {
		return "", false
	}

	str, ok := raw.(string)

	return str, ok
}

// With derives a new Headers value carrying the given extra parameter. The
// receiver is never modified: key-wrapping side effects (GCM key wrap iv/tag,
// PBES2 p2s/p2c, ECDH-ES epk) must rebuild the header that gets authenticated,
// not mutate the one the caller supplied.
func (h Headers) With(key string, value interface{}) Headers {
	updated := make(Headers, len(h)+1)

	for k, v := range h {
		updated[k] = v
	}

	updated[key] = value

	return updated
}

// PassCritical returns true iff every name in the header's crit set is
// contained in the consumer-declared deferred set. A malformed crit value
// never passes.
func (h Headers) PassCritical(deferred []string) bool {
	if _, present := h[HeaderCritical]; !present {
		return true
	}

	names, ok := h.Critical()
	if !ok || len(names) == 0 {
		return false
	}

	for _, name := range names {
		if !slices.Contains(deferred, name) {
			return false
		}
	}

	return true
}

func convertMapToValue(mapValue, value interface{}) error {
	b, err := json.Marshal(mapValue)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, value)
}
