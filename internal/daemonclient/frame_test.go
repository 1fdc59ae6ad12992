package daemonclient

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Frame{Kind: FrameOutput, Payload: []byte("hello world")}
	if err := WriteFrame(&buf, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Kind != in.Kind || !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestResizePayloadRoundTrip(t *testing.T) {
	b := ResizePayload(120, 40)
	cols, rows, err := DecodeResizePayload(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cols != 120 || rows != 40 {
		t.Fatalf("got cols=%d rows=%d", cols, rows)
	}
}

func TestExitPayloadRoundTrip(t *testing.T) {
	if got := DecodeExitPayload(ExitPayload(nil)); got != nil {
		t.Fatalf("expected nil exit code, got %v", *got)
	}
	code := 7
	got := DecodeExitPayload(ExitPayload(&code))
	if got == nil || *got != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
}

func TestUnknownFrameKindIsSkippedByCaller(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteFrame(&buf, Frame{Kind: FrameKind(99), Payload: []byte("x")})
	_ = WriteFrame(&buf, Frame{Kind: FrameOutput, Payload: []byte("y")})

	f1, err := ReadFrame(&buf)
	if err != nil || f1.Kind != FrameKind(99) {
		t.Fatalf("first frame = %+v, err=%v", f1, err)
	}
	f2, err := ReadFrame(&buf)
	if err != nil || f2.Kind != FrameOutput {
		t.Fatalf("second frame = %+v, err=%v", f2, err)
	}
}
