// Package ids implements the compiler's scoped identifier type: a
// "::"-separated path with an optional source location, used for
// everything from unit names to generated IL label prefixes.
package ids

import "strings"

// Location pins an ID (or any other diagnosable node) back to the
// surface syntax that produced it. The surface parser that fills these
// in is out of scope for this module; Location is just the carrier.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) IsSet() bool { return l.File != "" || l.Line != 0 }

func (l Location) String() string {
	if !l.IsSet() {
		return "<no location>"
	}
	if l.Column > 0 {
		return l.File + ":" + itoa(l.Line) + ":" + itoa(l.Column)
	}
	return l.File + ":" + itoa(l.Line)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ID is a scoped name: a non-empty list of path segments joined by
// "::" when rendered. Equality is path-equality, case-sensitive.
type ID struct {
	Segments []string
	Location Location
}

// New builds an ID from a "::"-joined string.
func New(path string) ID {
	if path == "" {
		return ID{}
	}
	return ID{Segments: strings.Split(path, "::")}
}

// NewAt is New with an attached source location.
func NewAt(path string, loc Location) ID {
	id := New(path)
	id.Location = loc
	return id
}

// String renders the fully qualified "::"-joined path.
func (id ID) String() string {
	return strings.Join(id.Segments, "::")
}

// Name returns the last path segment (the "local" name).
func (id ID) Name() string {
	if len(id.Segments) == 0 {
		return ""
	}
	return id.Segments[len(id.Segments)-1]
}

// Namespace returns all but the last path segment, joined by "::".
func (id ID) Namespace() string {
	if len(id.Segments) <= 1 {
		return ""
	}
	return strings.Join(id.Segments[:len(id.Segments)-1], "::")
}

// Qualify renders the ID relative to a module root: segments that
// share the root prefix are rendered without it, so references within
// the same module print unqualified.
func (id ID) Qualify(moduleRoot string) string {
	full := id.String()
	if moduleRoot == "" {
		return full
	}
	prefix := moduleRoot + "::"
	if strings.HasPrefix(full, prefix) {
		return full[len(prefix):]
	}
	return full
}

// Equal is path-equality, case-sensitive, ignoring Location.
func (id ID) Equal(other ID) bool {
	if len(id.Segments) != len(other.Segments) {
		return false
	}
	for i := range id.Segments {
		if id.Segments[i] != other.Segments[i] {
			return false
		}
	}
	return true
}

// EqualModule compares two module-name IDs case-insensitively, per
// the import-module identity rule (§4.2 ImportModule idempotence).
func EqualModule(a, b ID) bool {
	return strings.EqualFold(a.String(), b.String())
}

// IsZero reports whether the ID has no segments at all.
func (id ID) IsZero() bool { return len(id.Segments) == 0 }
