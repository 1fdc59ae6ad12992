package dispatch

import (
	"fmt"
	"strconv"
	"strings"
)

// semver is a parsed "major.minor.patch" protocol version string.
type semver struct {
	major, minor, patch int
}

func parseSemver(s string) (semver, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return semver{}, fmt.Errorf("invalid protocol version %q", s)
	}
	var v semver
	var err error
	if v.major, err = strconv.Atoi(parts[0]); err != nil {
		return semver{}, fmt.Errorf("invalid protocol version %q", s)
	}
	if v.minor, err = strconv.Atoi(parts[1]); err != nil {
		return semver{}, fmt.Errorf("invalid protocol version %q", s)
	}
	if v.patch, err = strconv.Atoi(parts[2]); err != nil {
		return semver{}, fmt.Errorf("invalid protocol version %q", s)
	}
	return v, nil
}

// CheckVersion implements spec.md §4.I's compatibility rule: same
// major, agent minor >= expected minor, patch ignored.
func CheckVersion(agentVersion, expectedVersion string) (bool, error) {
	a, err := parseSemver(agentVersion)
	if err != nil {
		return false, err
	}
	e, err := parseSemver(expectedVersion)
	if err != nil {
		return false, err
	}
	return a.major == e.major && a.minor >= e.minor, nil
}
