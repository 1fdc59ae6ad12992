package screenclear

import "testing"

func TestContainsScreenClear(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want bool
	}{
		{"embedded with home", []byte("hello\x1b[2J\x1b[Hworld"), true},
		{"bare clear", []byte("\x1b[2J"), true},
		{"at start", []byte("\x1b[2Jrest"), true},
		{"at end", []byte("rest\x1b[2J"), true},
		{"erase-to-end variant does not match", []byte("\x1b[1J"), false},
		{"partial escape does not match", []byte("\x1b[2"), false},
		{"empty does not match", []byte{}, false},
		{"unrelated text", []byte("no escapes here"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ContainsScreenClear(c.in); got != c.want {
				t.Errorf("ContainsScreenClear(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}
