package ringbuf

import (
	"bytes"
	"testing"
)

func TestWrapAround(t *testing.T) {
	b := New(4)
	b.Write([]byte("AAAA"))
	b.Write([]byte("BBBB"))
	b.Write([]byte("CC"))

	got := b.ReadAll()
	if !bytes.Equal(got, []byte("BBCC")) {
		t.Fatalf("ReadAll() = %q, want %q", got, "BBCC")
	}
	if b.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", b.Len())
	}
}

func TestUnderCapacity(t *testing.T) {
	b := New(16)
	b.Write([]byte("hello"))
	if got := b.ReadAll(); !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("ReadAll() = %q, want %q", got, "hello")
	}
	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}
}

func TestIsEmptyAndClear(t *testing.T) {
	b := New(8)
	if !b.IsEmpty() {
		t.Fatal("new buffer should be empty")
	}
	b.Write([]byte("x"))
	if b.IsEmpty() {
		t.Fatal("buffer with data should not be empty")
	}
	b.Clear()
	if !b.IsEmpty() {
		t.Fatal("cleared buffer should be empty")
	}
	if len(b.ReadAll()) != 0 {
		t.Fatal("cleared buffer should read empty")
	}
}

func TestExactCapacityBoundary(t *testing.T) {
	b := New(4)
	b.Write([]byte("ABCD"))
	if got := b.ReadAll(); !bytes.Equal(got, []byte("ABCD")) {
		t.Fatalf("ReadAll() = %q, want %q", got, "ABCD")
	}
	b.Write([]byte("E"))
	if got := b.ReadAll(); !bytes.Equal(got, []byte("BCDE")) {
		t.Fatalf("ReadAll() = %q, want %q", got, "BCDE")
	}
}
