// Package screenclear detects CSI erase-display sequences in a terminal
// output stream so callers can reset downstream display state.
package screenclear

import "bytes"

// clearSeq is the CSI "erase entire screen" sequence. CSI "erase + home"
// (ESC [ 2 J ESC [ H) contains this as a prefix, so a single contiguous
// substring check covers both forms described in spec.md §4.C.
var clearSeq = []byte("\x1b[2J")

// ContainsScreenClear reports whether data contains ESC[2J as a
// contiguous subsequence anywhere within it. ESC[1J and other erase
// variants do not match.
func ContainsScreenClear(data []byte) bool {
	return bytes.Contains(data, clearSeq)
}
