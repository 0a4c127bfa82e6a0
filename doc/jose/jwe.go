/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const compactJWEPartsCount = 5

var (
	errEmptyCiphertext  = errors.New("ciphertext cannot be empty")
	errWrongPartsCount  = errors.New("invalid JWE compact format")
	errMissingProtected = errors.New("jwe is missing protected headers")
)

// JSONWebEncryption represents a single-recipient JWE as defined in
// https://tools.ietf.org/html/rfc7516.
type JSONWebEncryption struct {
	// ProtectedHeaders is the decoded form of the protected header.
	ProtectedHeaders Headers
	// OrigProtectedHeaders is the exact Base64URL serialization of the
	// protected header. It is what gets transmitted and what the content
	// encryption authenticated, so serialization and AAD computation always
	// use it rather than re-marshalling ProtectedHeaders.
	OrigProtectedHeaders string
	// EncryptedCEK is the encrypted content encryption key. Nil for direct
	// key agreement and direct encryption algorithms.
	EncryptedCEK []byte
	IV           []byte
	Ciphertext   []byte
	Tag          []byte
}

// CompactSerialize serializes the JWE to its five-part dot-separated
// Base64URL compact form (https://tools.ietf.org/html/rfc7516#section-7.1).
func (e *JSONWebEncryption) CompactSerialize() (string, error) {
	if e.OrigProtectedHeaders == "" {
		return "", errMissingProtected
	}

	if len(e.Ciphertext) == 0 {
		return "", errEmptyCiphertext
	}

	b64CEK := base64.RawURLEncoding.EncodeToString(e.EncryptedCEK)
	b64IV := base64.RawURLEncoding.EncodeToString(e.IV)
	b64Ciphertext := base64.RawURLEncoding.EncodeToString(e.Ciphertext)
	b64Tag := base64.RawURLEncoding.EncodeToString(e.Tag)

	return strings.Join([]string{e.OrigProtectedHeaders, b64CEK, b64IV, b64Ciphertext, b64Tag}, "."), nil
}

// Deserialize parses a compact JWE serialization.
func Deserialize(serialized string) (*JSONWebEncryption, error) {
	parts := strings.Split(strings.TrimSpace(serialized), ".")
	if len(parts) != compactJWEPartsCount {
		return nil, errWrongPartsCount
	}

	protectedBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode base64 header: %w", err)
	}

	protectedHeaders := Headers{}

	err = json.Unmarshal(protectedBytes, &protectedHeaders)
	if err != nil {
		return nil, fmt.Errorf("unmarshal JSON headers: %w", err)
	}

	if len(protectedHeaders) == 0 {
		return nil, errMissingProtected
	}

	encryptedCEK, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode base64 encrypted key: %w", err)
	}

	iv, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("decode base64 iv: %w", err)
	}

	ciphertext, err := base64.RawURLEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("decode base64 ciphertext: %w", err)
	}

	if len(ciphertext) == 0 {
		return nil, errEmptyCiphertext
	}

	tag, err := base64.RawURLEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("decode base64 tag: %w", err)
	}

	return &JSONWebEncryption{
		ProtectedHeaders:     protectedHeaders,
		OrigProtectedHeaders: parts[0],
		EncryptedCEK:         encryptedCEK,
		IV:                   iv,
		Ciphertext:           ciphertext,
		Tag:                  tag,
	}, nil
}
