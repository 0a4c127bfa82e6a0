/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
)

// decompression output is capped to keep a hostile token from inflating into
// an arbitrarily large buffer.
const maxDecompressedSize = 256 * 1024 * 1024

func compressIfNeeded(headers Headers, plaintext []byte) ([]byte, error) {
	zip, ok := headers.Compression()
	if !ok {
		return plaintext, nil
	}

	if zip != CompressionAlgDEF {
		return nil, fmt.Errorf("compression algorithm '%s' not supported, supported algorithms: %s",
			zip, CompressionAlgDEF)
	}

	var buf bytes.Buffer

	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	if _, err = w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	return buf.Bytes(), nil
}

func decompressIfNeeded(headers Headers, plaintext []byte) ([]byte, error) {
	zip, ok := headers.Compression()
	if !ok {
		return plaintext, nil
	}

	if zip != CompressionAlgDEF {
		return nil, fmt.Errorf("compression algorithm '%s' not supported, supported algorithms: %s",
			zip, CompressionAlgDEF)
	}

	r := flate.NewReader(bytes.NewReader(plaintext))
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxDecompressedSize))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	return out, nil
}
