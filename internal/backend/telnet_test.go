package backend

import (
	"bytes"
	"io"
	"net"
	"testing"
)

// newTestTelnetBackend returns a TelnetBackend wired to one end of an
// in-memory net.Pipe, with the other end drained in the background so
// respondIAC's writes (IAC negotiation replies) never block.
func newTestTelnetBackend(t *testing.T) *TelnetBackend {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	go io.Copy(io.Discard, server)
	return &TelnetBackend{conn: client}
}

func TestFilterIACStripsNegotiationAndKeepsData(t *testing.T) {
	b := newTestTelnetBackend(t)
	// IAC DO ECHO(1), then plain text, then IAC WILL SGA(3).
	input := []byte{iac, iacDO, 1, 'h', 'i', iac, iacWILL, 3}
	out := b.filterIAC(input)
	if !bytes.Equal(out, []byte("hi")) {
		t.Fatalf("filterIAC = %q, want %q", out, "hi")
	}
}

func TestFilterIACEscapedIAC(t *testing.T) {
	b := newTestTelnetBackend(t)
	input := []byte{'a', iac, iac, 'b'}
	out := b.filterIAC(input)
	if !bytes.Equal(out, []byte{'a', iac, 'b'}) {
		t.Fatalf("filterIAC = %v, want literal IAC preserved", out)
	}
}

func TestFilterIACSubnegotiation(t *testing.T) {
	b := newTestTelnetBackend(t)
	input := []byte{'x', iac, iacSB, 1, 2, 3, iac, iacSE, 'y'}
	out := b.filterIAC(input)
	if !bytes.Equal(out, []byte("xy")) {
		t.Fatalf("filterIAC = %q, want %q", out, "xy")
	}
}
