/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v3"
)

// serializeProtectedHeaders marshals the final protected header to its
// Base64URL compact form. The ASCII bytes of that string are the Additional
// Authenticated Data of the content encryption, so this must run on the
// header that will actually be transmitted, after every key-wrapping side
// effect (GCM key wrap iv/tag, PBES2 p2s/p2c, ECDH-ES epk) has been applied.
func serializeProtectedHeaders(protectedHeaders Headers) (string, error) {
	protectedHeadersJSON := map[string]json.RawMessage{}

	for k, v := range protectedHeaders {
		mV, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("serialize headers: %w", err)
		}

		protectedHeadersJSON[k] = json.RawMessage(mV)
	}

	err := jwkMarshalEPK(protectedHeadersJSON)
	if err != nil {
		return "", fmt.Errorf("serialize headers: %w", err)
	}

	mProtected, err := json.Marshal(protectedHeadersJSON)
	if err != nil {
		return "", fmt.Errorf("serialize headers: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(mProtected), nil
}

// computeAuthData returns the AAD for content encryption as the ASCII bytes
// of the serialized protected header.
func computeAuthData(serializedProtectedHeaders string) []byte {
	return []byte(serializedProtectedHeaders)
}

// jwkMarshalEPK re-marshals an epk entry through the JWK model so its JSON
// member order is stable regardless of how the generic header map was built.
func jwkMarshalEPK(protectedHeadersJSON map[string]json.RawMessage) error {
	if protectedHeadersJSON[HeaderEPK] == nil {
		return nil
	}

	epk := &jose.JSONWebKey{}

	err := epk.UnmarshalJSON(protectedHeadersJSON[HeaderEPK])
	if err != nil {
		return err
	}

	mEPK, err := epk.MarshalJSON()
	if err != nil {
		return fmt.Errorf("jwkMarshalEPK: %w", err)
	}

	protectedHeadersJSON[HeaderEPK] = mEPK

	return nil
}
