// Package daemonclient implements the framed local-socket protocol
// between the core and the out-of-process PTY-owning helper (daemon)
// for shell and ssh-jump sessions (spec.md §4.K).
package daemonclient

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FrameKind tags the payload of a frame.
type FrameKind byte

const (
	FrameInput  FrameKind = 1
	FrameResize FrameKind = 2
	FrameOutput FrameKind = 3
	FrameExit   FrameKind = 4
	FrameClose  FrameKind = 5
)

// Frame is a single message on the wire: a kind byte, a u32 big-endian
// length, then that many payload bytes.
type Frame struct {
	Kind    FrameKind
	Payload []byte
}

// WriteFrame writes one frame to w.
func WriteFrame(w io.Writer, f Frame) error {
	header := make([]byte, 5)
	header[0] = byte(f.Kind)
	binary.BigEndian.PutUint32(header[1:], uint32(len(f.Payload)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrame reads one frame from r. Unknown kinds are returned as-is;
// callers skip frames they don't recognize rather than erroring, per
// spec.md §4.K ("unknown kinds are skipped").
func ReadFrame(r io.Reader) (Frame, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}
	kind := FrameKind(header[0])
	length := binary.BigEndian.Uint32(header[1:])
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, fmt.Errorf("read payload: %w", err)
		}
	}
	return Frame{Kind: kind, Payload: payload}, nil
}

// ResizePayload encodes/decodes the payload of a resize frame: two
// big-endian uint32s, cols then rows.
func ResizePayload(cols, rows int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:4], uint32(cols))
	binary.BigEndian.PutUint32(b[4:8], uint32(rows))
	return b
}

func DecodeResizePayload(b []byte) (cols, rows int, err error) {
	if len(b) < 8 {
		return 0, 0, fmt.Errorf("resize payload too short: %d bytes", len(b))
	}
	return int(binary.BigEndian.Uint32(b[0:4])), int(binary.BigEndian.Uint32(b[4:8])), nil
}

// ExitPayload encodes an optional exit code: 1 byte present-flag
// followed by 4 bytes big-endian code when present.
func ExitPayload(code *int) []byte {
	if code == nil {
		return []byte{0}
	}
	b := make([]byte, 5)
	b[0] = 1
	binary.BigEndian.PutUint32(b[1:], uint32(int32(*code)))
	return b
}

func DecodeExitPayload(b []byte) *int {
	if len(b) < 1 || b[0] == 0 {
		return nil
	}
	if len(b) < 5 {
		return nil
	}
	v := int(int32(binary.BigEndian.Uint32(b[1:])))
	return &v
}
