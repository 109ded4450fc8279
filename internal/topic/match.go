package topic

import "strings"

// matchPattern reports whether an MQTT topic name satisfies a subscription
// pattern using the standard single-level ("+") and multi-level terminal
// ("#") wildcard rules (spec §4.5: "normalizes topic patterns"). $-prefixed
// topics are only matched by a pattern that itself starts with "$".
func matchPattern(pattern, name string) bool {
	if strings.HasPrefix(name, "$") != strings.HasPrefix(pattern, "$") {
		return false
	}
	pSegs := strings.Split(pattern, "/")
	nSegs := strings.Split(name, "/")

	for i, ps := range pSegs {
		if ps == "#" {
			return true // terminal multi-level wildcard matches any remaining segments, including zero
		}
		if i >= len(nSegs) {
			return false
		}
		if ps != "+" && ps != nSegs[i] {
			return false
		}
	}
	return len(pSegs) == len(nSegs)
}

// normalizePattern trims surrounding whitespace; MQTT pattern segments are
// otherwise used verbatim.
func normalizePattern(pattern string) string {
	return strings.TrimSpace(pattern)
}
