/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jose provides JSON Object Signing and Encryption primitives for
// compact serializations.
//
// Packages for end developer usage
//
// doc/jose: JWE encryption and decryption (RFC 7516) over the registered key
// management and content encryption algorithms of RFC 7518, plus JWS signing
// and verification (RFC 7515).
// Reference: https://pkg.go.dev/github.com/securekey/jose/doc/jose
//
// crypto/primitive/aescbc: the AES_CBC_HMAC_SHA2 composite authenticated
// cipher backing the A128CBC-HS256 content encryption family.
// Reference: https://pkg.go.dev/github.com/securekey/jose/crypto/primitive/aescbc
//
// Basic workflow
//
//	1) Create a JWEEncrypt with the algorithm pair and the recipient key.
//	2) Encrypt the payload and CompactSerialize the result.
//	3) On the receiving side, Deserialize the token.
//	4) Create a JWEDecrypt with the recipient key and Decrypt.
package jose
