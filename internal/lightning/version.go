package lightning

import (
	"fmt"
	"strconv"
	"strings"
)

// AtOrAboveVersion compares node versions such as "v24.11.1-modded"
// against a minimum like "24.11".
func AtOrAboveVersion(version, minimum string) (bool, error) {
	have, err := parseVersion(version)
	if err != nil {
		return false, err
	}
	want, err := parseVersion(minimum)
	if err != nil {
		return false, err
	}
	for i := range have {
		if have[i] != want[i] {
			return have[i] > want[i], nil
		}
	}
	return true, nil
}

func parseVersion(v string) ([3]int, error) {
	var out [3]int
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if end := strings.IndexFunc(v, func(r rune) bool { return r != '.' && (r < '0' || r > '9') }); end >= 0 {
		v = v[:end]
	}
	parts := strings.Split(v, ".")
	if v == "" || len(parts) > 3 {
		return out, fmt.Errorf("unparseable version %q", v)
	}
	for i, p := range parts {
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, fmt.Errorf("unparseable version %q: %w", v, err)
		}
		out[i] = n
	}
	return out, nil
}
