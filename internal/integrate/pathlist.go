package integrate

import "strings"

// SplitPath splits a search path value into segments. Empty segments are
// kept so that JoinPath(SplitPath(v)) == v.
func SplitPath(value, sep string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, sep)
}

// JoinPath is the inverse of SplitPath.
func JoinPath(segments []string, sep string) string {
	return strings.Join(segments, sep)
}

// ContainsSegment reports whether segment appears as an exact segment of value.
func ContainsSegment(value, segment, sep string) bool {
	for _, s := range SplitPath(value, sep) {
		if s == segment {
			return true
		}
	}
	return false
}

// AppendSegment appends segment unless it is already present. It returns the
// new value and whether anything changed. Existing segments are untouched.
func AppendSegment(value, segment, sep string) (string, bool) {
	if segment == "" || ContainsSegment(value, segment, sep) {
		return value, false
	}
	if value == "" || strings.HasSuffix(value, sep) {
		return value + segment, true
	}
	return value + sep + segment, true
}

// RemoveSegment drops every exact occurrence of segment. Other segments,
// including empty ones, keep their order and spelling.
func RemoveSegment(value, segment, sep string) (string, bool) {
	parts := SplitPath(value, sep)
	kept := parts[:0:0]
	removed := false
	for _, s := range parts {
		if s == segment {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	if !removed {
		return value, false
	}
	return JoinPath(kept, sep), true
}
