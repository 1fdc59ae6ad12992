package rpc

import (
	"encoding/json"
	"testing"
)

func TestDecodeLineRequestVsNotification(t *testing.T) {
	req, _, isReq, err := DecodeLine([]byte(`{"jsonrpc":"2.0","method":"session.list","params":{},"id":1}`))
	if err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if !isReq {
		t.Fatal("expected request shape")
	}
	if req.Method != "session.list" {
		t.Fatalf("method = %q", req.Method)
	}

	_, notif, isReq, err := DecodeLine([]byte(`{"jsonrpc":"2.0","method":"session.output","params":{}}`))
	if err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if isReq {
		t.Fatal("expected notification shape")
	}
	if notif.Method != "session.output" {
		t.Fatalf("method = %q", notif.Method)
	}
}

func TestIDRoundTrip(t *testing.T) {
	cases := []ID{NewStringID("abc"), NewIntID(42), NullID()}
	for _, id := range cases {
		b, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var out ID
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		b2, _ := json.Marshal(out)
		if string(b) != string(b2) {
			t.Fatalf("round trip mismatch: %s != %s", b, b2)
		}
	}
}

func TestEncodeLineEndsWithNewline(t *testing.T) {
	resp := NewErrorResponse(NullID(), ErrParseError("bad line"))
	line, err := EncodeLine(resp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if line[len(line)-1] != '\n' {
		t.Fatal("encoded line must end with newline")
	}
}
