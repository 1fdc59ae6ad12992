package dispatch

import "testing"

func TestCheckVersionCompatible(t *testing.T) {
	cases := []struct {
		agent, expected string
		want            bool
	}{
		{"0.1.0", "0.1.0", true},
		{"0.2.0", "0.1.0", true},
		{"0.1.5", "0.1.0", true},
		{"0.0.9", "0.1.0", false},
		{"1.0.0", "0.1.0", false},
	}
	for _, c := range cases {
		got, err := CheckVersion(c.agent, c.expected)
		if err != nil {
			t.Fatalf("CheckVersion(%q,%q): %v", c.agent, c.expected, err)
		}
		if got != c.want {
			t.Errorf("CheckVersion(%q,%q) = %v, want %v", c.agent, c.expected, got, c.want)
		}
	}
}
