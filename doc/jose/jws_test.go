/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCompositeAlgSignatureVerifier(t *testing.T) {
	verifier := NewCompositeAlgSigVerifier(AlgSignatureVerifier{
		Alg: "EdDSA",
		Verifier: SignatureVerifierFunc(
			func(joseHeaders Headers, payload, signingInput, signature []byte) error {
				return errors.New("signature is invalid")
			},
		),
	})

	err := verifier.Verify(Headers{"alg": "EdDSA"}, nil, nil, nil)
	require.Error(t, err)
	require.EqualError(t, err, "signature is invalid")

	// alg is not defined
	err = verifier.Verify(Headers{}, nil, nil, nil)
	require.Error(t, err)
	require.EqualError(t, err, "'alg' JOSE header is not present")

	// not supported alg
	err = verifier.Verify(Headers{"alg": "RS256"}, nil, nil, nil)
	require.Error(t, err)
	require.EqualError(t, err, "no verifier found for RS256 algorithm")
}

func TestDefaultSigningInputVerifier_Verify(t *testing.T) {
	verifier := DefaultSigningInputVerifier(func(joseHeaders Headers, payload, signingInput, signature []byte) error {
		return errors.New("signature is invalid")
	})

	err := verifier.Verify(Headers{"alg": "EdDSA"}, nil, nil, nil)
	require.Error(t, err)
	require.EqualError(t, err, "signature is invalid")

	// fail in signingInput()
	err = verifier.Verify(Headers{HeaderB64Payload: "invalid value"}, nil, nil, nil)
	require.Error(t, err)
	require.EqualError(t, err, "invalid b64 header")
}

func TestJSONWebSignature_SerializeCompact(t *testing.T) {
	headers := Headers{"alg": "EdSDA", "typ": "JWT"}
	payload := []byte("payload")

	jws, err := NewJWS(headers, nil, payload,
		&testSigner{
			headers:   Headers{"alg": "dummy"},
			signature: []byte("signature"),
		})
	require.NoError(t, err)

	jwsCompact, err := jws.SerializeCompact(false)
	require.NoError(t, err)
	require.NotEmpty(t, jwsCompact)

	// b64=false
	jws, err = NewJWS(headers, nil, payload,
		&testSigner{
			headers:   Headers{"alg": "dummy", "b64": false},
			signature: []byte("signature"),
		})
	require.NoError(t, err)

	jwsCompact, err = jws.SerializeCompact(false)
	require.NoError(t, err)
	require.NotEmpty(t, jwsCompact)

	// signer error
	jws, err = NewJWS(headers, nil, payload,
		&testSigner{
			headers: Headers{"alg": "dummy"},
			err:     errors.New("signer error"),
		})
	require.Error(t, err)
	require.Contains(t, err.Error(), "sign JWS verification data")
	require.Nil(t, jws)

	// no alg defined
	jws, err = NewJWS(Headers{}, nil, payload,
		&testSigner{
			headers: Headers{},
		})
	require.Error(t, err)
	require.Contains(t, err.Error(), "alg JWS header is not defined")
	require.Nil(t, jws)

	// jose headers marshalling error
	jws, err = NewJWS(Headers{}, nil, payload,
		&testSigner{
			headers: getUnmarshallableMap(),
		})
	require.Error(t, err)
	require.Contains(t, err.Error(), "serialize JWS headers")
	require.Nil(t, jws)

	// invalid b64
	jws, err = NewJWS(Headers{}, nil, payload,
		&testSigner{
			headers:   Headers{"alg": "dummy", "b64": "invalid"},
			signature: []byte("signature"),
		})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid b64 header")
	require.Nil(t, jws)
}

func TestJSONWebSignature_Signature(t *testing.T) {
	jws := &JSONWebSignature{
		signature: []byte("signature"),
	}
	require.NotEmpty(t, jws.Signature())

	jws.signature = nil
	require.Empty(t, jws.Signature())
}

func TestParseJWS(t *testing.T) {
	corruptedBased64 := "XXXXXaGVsbG8="

	jws, err := NewJWS(Headers{"alg": "EdSDA", "typ": "JWT"}, nil, []byte("payload"),
		&testSigner{
			headers:   Headers{"alg": "dummy"},
			signature: []byte("signature"),
		})
	require.NoError(t, err)

	jwsCompact, err := jws.SerializeCompact(false)
	require.NoError(t, err)
	require.NotEmpty(t, jwsCompact)

	validJWSParts := strings.Split(jwsCompact, ".")

	parsedJWS, err := ParseJWS(jwsCompact, &testVerifier{})
	require.NoError(t, err)
	require.NotNil(t, parsedJWS)
	require.Equal(t, jws, parsedJWS)

	jwsDetached := fmt.Sprintf("%s.%s.%s", validJWSParts[0], "", validJWSParts[2])

	detachedPayload, err := base64.RawURLEncoding.DecodeString(validJWSParts[1])
	require.NoError(t, err)

	parsedJWS, err = ParseJWS(jwsDetached, &testVerifier{}, WithJWSDetachedPayload(detachedPayload))
	require.NoError(t, err)
	require.NotNil(t, parsedJWS)
	require.Equal(t, jws, parsedJWS)

	// Parse not compact JWS format
	parsedJWS, err = ParseJWS(`{"some": "JSON"}`, &testVerifier{})
	require.Error(t, err)
	require.EqualError(t, err, "JWS JSON serialization is not supported")
	require.Nil(t, parsedJWS)

	// Parse invalid compact JWS format
	parsedJWS, err = ParseJWS("two_parts.only", &testVerifier{})
	require.Error(t, err)
	require.EqualError(t, err, "invalid JWS compact format")
	require.Nil(t, parsedJWS)

	// invalid headers
	jwsWithInvalidHeaders := fmt.Sprintf("%s.%s.%s", "invalid", validJWSParts[1], validJWSParts[2])
	parsedJWS, err = ParseJWS(jwsWithInvalidHeaders, &testVerifier{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmarshal JSON headers")
	require.Nil(t, parsedJWS)

	jwsWithInvalidHeaders = fmt.Sprintf("%s.%s.%s", corruptedBased64, validJWSParts[1], validJWSParts[2])
	parsedJWS, err = ParseJWS(jwsWithInvalidHeaders, &testVerifier{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode base64 header")
	require.Nil(t, parsedJWS)

	emptyHeaders := base64.RawURLEncoding.EncodeToString([]byte("{}"))

	jwsWithInvalidHeaders = fmt.Sprintf("%s.%s.%s", emptyHeaders, validJWSParts[1], validJWSParts[2])
	parsedJWS, err = ParseJWS(jwsWithInvalidHeaders, &testVerifier{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "alg JWS header is not defined")
	require.Nil(t, parsedJWS)

	// invalid payload
	jwsWithInvalidPayload := fmt.Sprintf("%s.%s.%s", validJWSParts[0], corruptedBased64, validJWSParts[2])
	parsedJWS, err = ParseJWS(jwsWithInvalidPayload, &testVerifier{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode base64 payload")
	require.Nil(t, parsedJWS)

	// invalid signature
	jwsWithInvalidSignature := fmt.Sprintf("%s.%s.%s", validJWSParts[0], validJWSParts[1], corruptedBased64)
	parsedJWS, err = ParseJWS(jwsWithInvalidSignature, &testVerifier{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode base64 signature")
	require.Nil(t, parsedJWS)

	// verifier error
	parsedJWS, err = ParseJWS(jwsCompact, &testVerifier{err: errors.New("bad signature")})
	require.Error(t, err)
	require.EqualError(t, err, "bad signature")
	require.Nil(t, parsedJWS)
}

func TestIsCompactJWS(t *testing.T) {
	require.True(t, IsCompactJWS("a.b.c"))
	require.False(t, IsCompactJWS("a.b"))
	require.False(t, IsCompactJWS(`{"some": "JSON"}`))
	require.False(t, IsCompactJWS(""))
}

func TestParseJWS_RFC7515HS256(t *testing.T) {
	// example from https://tools.ietf.org/html/rfc7515#appendix-A.1, the
	// header JSON carries line breaks so verification must run on the
	// received header segment, never a re-marshalled one
	serialized := "eyJ0eXAiOiJKV1QiLA0KICJhbGciOiJIUzI1NiJ9" +
		".eyJpc3MiOiJqb2UiLA0KICJleHAiOjEzMDA4MTkzODAsDQogImh0dHA6Ly9leGFt" +
		"cGxlLmNvbS9pc19yb290Ijp0cnVlfQ" +
		".dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	key, err := base64.RawURLEncoding.DecodeString(
		"AyM1SysPpbyDfgZld3umj1qzKObwVMkoqQ-EstJQLr_T-1qS0gZH75aKtMN3Yj0iPS4hcgUuTwjAzZr1Z9CAow")
	require.NoError(t, err)

	jws, err := ParseJWS(serialized, NewHMACSignatureVerifier(key))
	require.NoError(t, err)
	require.Contains(t, string(jws.Payload), `"iss":"joe"`)

	alg, ok := jws.ProtectedHeaders.Algorithm()
	require.True(t, ok)
	require.Equal(t, "HS256", alg)

	// flip one signature bit
	tampered := serialized[:len(serialized)-1] + "l"

	jws, err = ParseJWS(tampered, NewHMACSignatureVerifier(key))
	require.Error(t, err)
	require.EqualError(t, err, "signature verification failed")
	require.Nil(t, jws)

	// signing the vector's exact input reproduces the vector's signature
	parts := strings.Split(serialized, ".")

	signer, err := NewHMACSigner(HS256, key)
	require.NoError(t, err)

	signature, err := signer.Sign([]byte(parts[0] + "." + parts[1]))
	require.NoError(t, err)
	require.Equal(t, "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
		base64.RawURLEncoding.EncodeToString(signature))
}

func TestJWSSignVerifyRoundTrip(t *testing.T) {
	payload := []byte(`{"sub":"alice","admin":false}`)

	hmacKey := []byte("0123456789abcdef0123456789abcdef")

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p256Key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	p384Key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	p521Key, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	require.NoError(t, err)

	newSigner := func(t *testing.T, alg SigAlg) Signer {
		t.Helper()

		var (
			signer Signer
			err    error
		)

		switch alg {
		case HS256, HS384, HS512:
			signer, err = NewHMACSigner(alg, hmacKey)
		case RS256, RS384, RS512, PS256, PS384, PS512:
			signer, err = NewRSASigner(alg, rsaKey)
		case ES256:
			signer, err = NewECDSASigner(alg, p256Key)
		case ES384:
			signer, err = NewECDSASigner(alg, p384Key)
		case ES512:
			signer, err = NewECDSASigner(alg, p521Key)
		}

		require.NoError(t, err)

		return signer
	}

	newVerifier := func(alg SigAlg) SignatureVerifier {
		switch alg {
		case HS256, HS384, HS512:
			return NewHMACSignatureVerifier(hmacKey)
		case RS256, RS384, RS512, PS256, PS384, PS512:
			return NewRSASignatureVerifier(&rsaKey.PublicKey)
		case ES256:
			return NewECDSASignatureVerifier(&p256Key.PublicKey)
		case ES384:
			return NewECDSASignatureVerifier(&p384Key.PublicKey)
		default:
			return NewECDSASignatureVerifier(&p521Key.PublicKey)
		}
	}

	sigSizes := map[SigAlg]int{ES256: 64, ES384: 96, ES512: 132}

	algs := []SigAlg{HS256, HS384, HS512, RS256, RS384, RS512, PS256, PS384, PS512, ES256, ES384, ES512}

	for _, alg := range algs {
		alg := alg

		t.Run(string(alg), func(t *testing.T) {
			jws, err := NewJWS(Headers{HeaderType: "JWT"}, nil, payload, newSigner(t, alg))
			require.NoError(t, err)

			if size, fixed := sigSizes[alg]; fixed {
				require.Len(t, jws.Signature(), size)
			}

			serialized, err := jws.SerializeCompact(false)
			require.NoError(t, err)

			parsed, err := ParseJWS(serialized, newVerifier(alg))
			require.NoError(t, err)
			require.Equal(t, payload, parsed.Payload)

			// tamper with the payload
			parts := strings.Split(serialized, ".")
			badPayload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"mallory","admin":true}`))
			tampered := fmt.Sprintf("%s.%s.%s", parts[0], badPayload, parts[2])

			_, err = ParseJWS(tampered, newVerifier(alg))
			require.Error(t, err)
			require.EqualError(t, err, "signature verification failed")

			// detached payload round trip
			detached, err := jws.SerializeCompact(true)
			require.NoError(t, err)

			parsed, err = ParseJWS(detached, newVerifier(alg), WithJWSDetachedPayload(payload))
			require.NoError(t, err)
			require.Equal(t, payload, parsed.Payload)
		})
	}
}

func TestJWSSignerConfiguration(t *testing.T) {
	_, err := NewHMACSigner(RS256, []byte("secret"))
	require.EqualError(t, err, "'RS256' is not an HMAC signature algorithm")

	_, err = NewHMACSigner(HS256, nil)
	require.EqualError(t, err, "'HS256' requires a non-empty secret")

	_, err = NewRSASigner(HS256, nil)
	require.EqualError(t, err, "'HS256' is not an RSA signature algorithm")

	_, err = NewRSASigner(RS256, nil)
	require.EqualError(t, err, "'RS256' requires an RSA private key")

	_, err = NewECDSASigner(RS256, nil)
	require.EqualError(t, err, "'RS256' is not an ECDSA signature algorithm")

	_, err = NewECDSASigner(ES256, nil)
	require.EqualError(t, err, "'ES256' requires an EC private key")

	p384Key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	// curve must match the algorithm
	_, err = NewECDSASigner(ES256, p384Key)
	require.EqualError(t, err, "'ES256' requires a key on curve P-256, got P-384")
}

func TestECDSAVerifier_SignatureWidth(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	signer, err := NewECDSASigner(ES256, key)
	require.NoError(t, err)

	jws, err := NewJWS(nil, nil, []byte("payload"), signer)
	require.NoError(t, err)

	serialized, err := jws.SerializeCompact(false)
	require.NoError(t, err)

	parts := strings.Split(serialized, ".")

	// a truncated signature must be rejected by the width gate
	truncated := base64.RawURLEncoding.EncodeToString(jws.Signature()[:63])

	_, err = ParseJWS(fmt.Sprintf("%s.%s.%s", parts[0], parts[1], truncated),
		NewECDSASignatureVerifier(&key.PublicKey))
	require.Error(t, err)
	require.EqualError(t, err, "signature verification failed")
}

func TestParseJWS_CriticalHeaders(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	signer, err := NewHMACSigner(HS256, key)
	require.NoError(t, err)

	jws, err := NewJWS(Headers{HeaderCritical: []string{"exp"}, "exp": 1363284000}, nil, []byte("payload"), signer)
	require.NoError(t, err)

	serialized, err := jws.SerializeCompact(false)
	require.NoError(t, err)

	// crit not deferred by the consumer, reported the same as a bad signature
	_, err = ParseJWS(serialized, NewHMACSignatureVerifier(key))
	require.Error(t, err)
	require.EqualError(t, err, "signature verification failed")

	// consumer defers the extension
	parsed, err := ParseJWS(serialized, NewHMACSignatureVerifier(key), WithJWSDeferredCritical("exp"))
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), parsed.Payload)
}

type testSigner struct {
	headers   Headers
	signature []byte
	err       error
}

func (s testSigner) Sign(_ []byte) ([]byte, error) {
	return s.signature, s.err
}

func (s testSigner) Headers() Headers {
	return s.headers
}

type testVerifier struct {
	err error
}

func (v testVerifier) Verify(_ Headers, _, _, _ []byte) error {
	return v.err
}

func getUnmarshallableMap() map[string]interface{} {
	return map[string]interface{}{"alg": "JWS", "error": map[chan int]interface{}{make(chan int): 6}}
}
