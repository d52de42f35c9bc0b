// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import "bytes"

// binarySniffLen bounds how much of a file is examined when deciding
// whether it is binary. Matches the window git uses for the same
// decision.
const binarySniffLen = 8192

// isBinary reports whether content looks like a binary file: a NUL
// byte within the sniff window. Line-oriented injection into such a
// file would corrupt it.
func isBinary(content []byte) bool {
	window := content
	if len(window) > binarySniffLen {
		window = window[:binarySniffLen]
	}
	return bytes.IndexByte(window, 0) >= 0
}
