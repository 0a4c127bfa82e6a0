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

const (
	jwsPartsCount    = 3
	jwsHeaderPart    = 0
	jwsPayloadPart   = 1
	jwsSignaturePart = 2
)

// JSONWebSignature defines JSON Web Signature (https://tools.ietf.org/html/rfc7515)
type JSONWebSignature struct {
	ProtectedHeaders   Headers
	UnprotectedHeaders Headers
	Payload            []byte

	signature   []byte
	joseHeaders Headers
}

// Signer defines JWS Signer interface. It makes signing of data and provides custom JWS headers relevant to the signer.
type Signer interface {
	// Sign signs.
	Sign(data []byte) ([]byte, error)

	// Headers provides JWS headers. "alg" header must be provided (see https://tools.ietf.org/html/rfc7515#section-4.1)
	Headers() Headers
}

// SignatureVerifier makes verification of JSON Web Signature.
type SignatureVerifier interface {
	// Verify verifies JWS based on the signing input.
	Verify(joseHeaders Headers, payload, signingInput, signature []byte) error
}

// SignatureVerifierFunc is a function wrapper for SignatureVerifier.
type SignatureVerifierFunc func(joseHeaders Headers, payload, signingInput, signature []byte) error

// Verify verifies JWS signature.
func (s SignatureVerifierFunc) Verify(joseHeaders Headers, payload, signingInput, signature []byte) error {
	return s(joseHeaders, payload, signingInput, signature)
}

// DefaultSigningInputVerifier is a SignatureVerifier that generates the signing input
// from the given headers and payload, instead of relying on the signing input parameter.
type DefaultSigningInputVerifier func(joseHeaders Headers, payload, signingInput, signature []byte) error

// Verify verifies JWS signature.
func (s DefaultSigningInputVerifier) Verify(joseHeaders Headers, payload, _, signature []byte) error {
	signingInputData, err := signingInput(joseHeaders, payload)
	if err != nil {
		return err
	}

	return s(joseHeaders, payload, signingInputData, signature)
}

// CompositeAlgSigVerifier defines composite signature verifier based on the algorithm
// taken from JOSE header alg.
type CompositeAlgSigVerifier struct {
	verifierForAlg map[string]SignatureVerifier
}

// AlgSignatureVerifier defines signature verifier for a certain algorithm.
type AlgSignatureVerifier struct {
	Alg      string
	Verifier SignatureVerifier
}

// NewCompositeAlgSigVerifier creates a new CompositeAlgSigVerifier.
func NewCompositeAlgSigVerifier(v AlgSignatureVerifier, vOther ...AlgSignatureVerifier) *CompositeAlgSigVerifier {
	verifierForAlg := make(map[string]SignatureVerifier, 1+len(vOther))
	verifierForAlg[v.Alg] = v.Verifier

	for _, v := range vOther {
		verifierForAlg[v.Alg] = v.Verifier
	}

	return &CompositeAlgSigVerifier{
		verifierForAlg: verifierForAlg,
	}
}

// Verify verifies JWS signature.
func (v *CompositeAlgSigVerifier) Verify(joseHeaders Headers, payload, signingInput, signature []byte) error {
	alg, ok := joseHeaders.Algorithm()
	if !ok {
		return errors.New("'alg' JOSE header is not present")
	}

	verifier, ok := v.verifierForAlg[alg]
	if !ok {
		return fmt.Errorf("no verifier found for %s algorithm", alg)
	}

	return verifier.Verify(joseHeaders, payload, signingInput, signature)
}

// NewJWS creates JSON Web Signature.
func NewJWS(protectedHeaders, unprotectedHeaders Headers, payload []byte, signer Signer) (*JSONWebSignature, error) {
	headers := mergeHeaders(protectedHeaders, signer.Headers())
	jws := &JSONWebSignature{
		ProtectedHeaders:   headers,
		UnprotectedHeaders: unprotectedHeaders,
		Payload:            payload,
		joseHeaders:        headers,
	}

	signature, err := sign(jws, signer)
	if err != nil {
		return nil, err
	}

	jws.signature = signature

	return jws, nil
}

// SerializeCompact makes JWS compact serialization (https://tools.ietf.org/html/rfc7515#section-7.1).
func (s JSONWebSignature) SerializeCompact(detached bool) (string, error) {
	byteHeaders, err := json.Marshal(s.joseHeaders)
	if err != nil {
		return "", fmt.Errorf("serialize JWS headers: %w", err)
	}

	b64Headers := base64.RawURLEncoding.EncodeToString(byteHeaders)

	b64Payload := ""

	if !detached {
		b64Payload, err = payloadSegment(s.joseHeaders, s.Payload)
		if err != nil {
			return "", err
		}
	}

	b64Signature := base64.RawURLEncoding.EncodeToString(s.signature)

	return fmt.Sprintf("%s.%s.%s", b64Headers, b64Payload, b64Signature), nil
}

// Signature returns a copy of JWS signature.
func (s JSONWebSignature) Signature() []byte {
	if s.signature == nil {
		return nil
	}

	sCopy := make([]byte, len(s.signature))
	copy(sCopy, s.signature)

	return sCopy
}

func mergeHeaders(h1, h2 Headers) Headers {
	h := make(Headers, len(h1)+len(h2))

	for k, v := range h1 {
		h[k] = v
	}

	// the signer's headers win, it knows the alg it actually signs with
	for k, v := range h2 {
		h[k] = v
	}

	return h
}

func sign(jws *JSONWebSignature, signer Signer) ([]byte, error) {
	err := checkJWSHeaders(jws.joseHeaders)
	if err != nil {
		return nil, err
	}

	sigInput, err := signingInput(jws.joseHeaders, jws.Payload)
	if err != nil {
		return nil, err
	}

	signature, err := signer.Sign(sigInput)
	if err != nil {
		return nil, fmt.Errorf("sign JWS verification data: %w", err)
	}

	return signature, nil
}

// jwsParseOpts holds options for the JWS Parsing.
type jwsParseOpts struct {
	detachedPayload []byte
	deferredCrit    []string
}

// ParseOpt is the JWS Parser option.
type ParseOpt func(opts *jwsParseOpts)

// WithJWSDetachedPayload option is for definition of JWS detached payload.
func WithJWSDetachedPayload(payload []byte) ParseOpt {
	return func(opts *jwsParseOpts) {
		opts.detachedPayload = payload
	}
}

// WithJWSDeferredCritical option declares the crit header names the caller
// understands and handles itself. A JWS whose crit set is not a subset of the
// deferred set fails verification.
func WithJWSDeferredCritical(names ...string) ParseOpt {
	return func(opts *jwsParseOpts) {
		opts.deferredCrit = append(opts.deferredCrit, names...)
	}
}

// ParseJWS parses serialized JWS. Currently only JWS Compact Serialization parsing is supported.
func ParseJWS(jws string, verifier SignatureVerifier, opts ...ParseOpt) (*JSONWebSignature, error) {
	pOpts := &jwsParseOpts{}

	for _, opt := range opts {
		opt(pOpts)
	}

	if strings.HasPrefix(jws, "{") {
		// TODO support JWS JSON serialization format
		return nil, errors.New("JWS JSON serialization is not supported")
	}

	return parseCompactJWS(jws, verifier, pOpts)
}

// IsCompactJWS checks weather input is a compact JWS (based on https://tools.ietf.org/html/rfc7516#section-9)
func IsCompactJWS(s string) bool {
	parts := strings.Split(s, ".")

	return len(parts) == jwsPartsCount
}

func parseCompactJWS(jws string, verifier SignatureVerifier, opts *jwsParseOpts) (*JSONWebSignature, error) {
	parts := strings.Split(jws, ".")
	if len(parts) != jwsPartsCount {
		return nil, errors.New("invalid JWS compact format")
	}

	joseHeaders, err := parseCompactJWSHeaders(parts[jwsHeaderPart])
	if err != nil {
		return nil, err
	}

	if !joseHeaders.PassCritical(opts.deferredCrit) {
		return nil, errVerification
	}

	payload := opts.detachedPayload
	if len(payload) == 0 {
		payload, err = decodePayload(joseHeaders, parts[jwsPayloadPart])
		if err != nil {
			return nil, err
		}
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[jwsSignaturePart])
	if err != nil {
		return nil, fmt.Errorf("decode base64 signature: %w", err)
	}

	sInput, err := receivedSigningInput(joseHeaders, parts, payload)
	if err != nil {
		return nil, err
	}

	err = verifier.Verify(joseHeaders, payload, sInput, signature)
	if err != nil {
		return nil, err
	}

	return &JSONWebSignature{
		ProtectedHeaders: joseHeaders,
		Payload:          payload,
		signature:        signature,
		joseHeaders:      joseHeaders,
	}, nil
}

func parseCompactJWSHeaders(b64Header string) (Headers, error) {
	headerBytes, err := base64.RawURLEncoding.DecodeString(b64Header)
	if err != nil {
		return nil, fmt.Errorf("decode base64 header: %w", err)
	}

	var joseHeaders Headers

	err = json.Unmarshal(headerBytes, &joseHeaders)
	if err != nil {
		return nil, fmt.Errorf("unmarshal JSON headers: %w", err)
	}

	err = checkJWSHeaders(joseHeaders)
	if err != nil {
		return nil, err
	}

	return joseHeaders, nil
}

func checkJWSHeaders(headers Headers) error {
	if _, ok := headers[HeaderAlgorithm]; !ok {
		return errors.New("alg JWS header is not defined")
	}

	return nil
}

func decodePayload(headers Headers, payloadPart string) ([]byte, error) {
	b64, err := isB64Payload(headers)
	if err != nil {
		return nil, err
	}

	if !b64 {
		return []byte(payloadPart), nil
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}

	return payload, nil
}

// receivedSigningInput builds the verification data from the header segment
// exactly as received. Re-marshalling the parsed header map could reorder the
// JSON members and verify bytes the signer never signed.
func receivedSigningInput(headers Headers, parts []string, payload []byte) ([]byte, error) {
	pSegment := parts[jwsPayloadPart]

	if pSegment == "" {
		var err error

		pSegment, err = payloadSegment(headers, payload)
		if err != nil {
			return nil, err
		}
	}

	return []byte(fmt.Sprintf("%s.%s", parts[jwsHeaderPart], pSegment)), nil
}

// signingInput builds the signing data of a new JWS as defined in
// https://tools.ietf.org/html/rfc7515#section-5.1, honoring the RFC 7797 b64
// header.
func signingInput(headers Headers, payload []byte) ([]byte, error) {
	headersBytes, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("serialize JWS headers: %w", err)
	}

	pSegment, err := payloadSegment(headers, payload)
	if err != nil {
		return nil, err
	}

	return []byte(fmt.Sprintf("%s.%s", base64.RawURLEncoding.EncodeToString(headersBytes), pSegment)), nil
}

func payloadSegment(headers Headers, payload []byte) (string, error) {
	b64, err := isB64Payload(headers)
	if err != nil {
		return "", err
	}

	if b64 {
		return base64.RawURLEncoding.EncodeToString(payload), nil
	}

	return string(payload), nil
}

func isB64Payload(headers Headers) (bool, error) {
	b64Raw, ok := headers[HeaderB64Payload]
	if !ok {
		return true, nil
	}

	b64, ok := b64Raw.(bool)
	if !ok {
		return false, errors.New("invalid b64 header")
	}

	return b64, nil
}
