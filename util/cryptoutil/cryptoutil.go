/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptoutil

import (
	"crypto/elliptic"
	"fmt"
	"io"
	"math/big"

	"github.com/google/tink/go/subtle/random"
)

// RandomBytes returns n cryptographically secure random bytes from the
// process-wide generator.
func RandomBytes(n uint32) []byte {
	return random.GetRandomBytes(n)
}

// ReadRandomBytes fills a fresh n-byte slice from r, falling back to the
// process-wide generator when r is nil.
func ReadRandomBytes(r io.Reader, n int) ([]byte, error) {
	if r == nil {
		return RandomBytes(uint32(n)), nil
	}

	b := make([]byte, n)

	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}

	return b, nil
}

// OnCurve reports whether (x, y) is an affine point on the given short
// Weierstrass curve, ie whether y² ≡ x³ - 3x + b (mod p). The check is done
// with direct modular arithmetic, independent of whatever validation the
// crypto provider performs, so a received ephemeral key forged for an
// invalid-curve attack is rejected before any scalar multiplication.
func OnCurve(curve elliptic.Curve, x, y *big.Int) bool {
	if curve == nil || x == nil || y == nil {
		return false
	}

	params := curve.Params()
	p := params.P

	if x.Sign() < 0 || x.Cmp(p) >= 0 || y.Sign() < 0 || y.Cmp(p) >= 0 {
		return false
	}

	// y² mod p
	y2 := new(big.Int).Mul(y, y)
	y2.Mod(y2, p)

	// x³ - 3x + b mod p
	x3 := new(big.Int).Mul(x, x)
	x3.Mul(x3, x)

	threeX := new(big.Int).Lsh(x, 1)
	threeX.Add(threeX, x)

	x3.Sub(x3, threeX)
	x3.Add(x3, params.B)
	x3.Mod(x3, p)

	return y2.Cmp(x3) == 0
}
