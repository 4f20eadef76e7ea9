package jsonpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step from a JSON value into a child: either an object key
// or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns an object-key segment.
func Key(name string) Segment {
	return Segment{Key: name}
}

// Index returns an array-index segment.
func Index(i int) Segment {
	return Segment{Index: i, IsIndex: true}
}

// String renders the segment the way it appears inside a formatted path.
func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return `["` + s.Key + `"]`
}

// Path locates a value from the document root.
type Path []Segment

// Append returns a new path with seg added; p is never modified.
func (p Path) Append(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// Parent returns the path without its last segment and that last segment.
// ok is false for the root path.
func (p Path) Parent() (parent Path, last Segment, ok bool) {
	if len(p) == 0 {
		return nil, Segment{}, false
	}
	return p[:len(p)-1], p[len(p)-1], true
}

// Equal reports whether both paths address the same value.
func (p Path) Equal(other Path) bool {
	return Format(p) == Format(other)
}

// NumericKeysAsIndexes returns p with every all-digit key turned into an
// array index, so `a.0` can address the first element of `a`.
func (p Path) NumericKeysAsIndexes() Path {
	out := make(Path, len(p))
	for i, seg := range p {
		out[i] = seg
		if seg.IsIndex || seg.Key == "" {
			continue
		}
		if n, err := strconv.Atoi(seg.Key); err == nil && n >= 0 && strconv.Itoa(n) == seg.Key {
			out[i] = Index(n)
		}
	}
	return out
}

func (p Path) String() string {
	return Format(p)
}

// Format renders a path as `$["customer"][0]`. The root path is "$".
func Format(p Path) string {
	if len(p) == 0 {
		return "$"
	}
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range p {
		b.WriteString(seg.String())
	}
	return b.String()
}

// Parse reads a path produced by Format. The leading '$' is optional, and
// bare dotted keys (`$.a.b`) are accepted for convenience on the command line.
func Parse(input string) (Path, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "$")
	path := Path{}
	i := 0
	for i < len(s) {
		switch s[i] {
		case '.':
			j := i + 1
			for j < len(s) && s[j] != '.' && s[j] != '[' {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("empty key at offset %d in %q", i, input)
			}
			path = append(path, Key(s[i+1:j]))
			i = j
		case '[':
			if i+1 < len(s) && s[i+1] == '"' {
				end := strings.Index(s[i+2:], `"]`)
				if end < 0 {
					return nil, fmt.Errorf("unterminated key at offset %d in %q", i, input)
				}
				path = append(path, Key(s[i+2:i+2+end]))
				i = i + 2 + end + 2
				continue
			}
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated index at offset %d in %q", i, input)
			}
			n, err := strconv.Atoi(s[i+1 : i+end])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid index %q in %q", s[i+1:i+end], input)
			}
			path = append(path, Index(n))
			i += end + 1
		default:
			if i == 0 {
				j := 0
				for j < len(s) && s[j] != '.' && s[j] != '[' {
					j++
				}
				path = append(path, Key(s[:j]))
				i = j
				continue
			}
			return nil, fmt.Errorf("unexpected %q at offset %d in %q", s[i], i, input)
		}
	}
	return path, nil
}

// Selector renders the path in gjson/sjson syntax with every component escaped.
// The root path yields the empty string.
func Selector(p Path) string {
	parts := make([]string, len(p))
	for i, seg := range p {
		if seg.IsIndex {
			parts[i] = strconv.Itoa(seg.Index)
			continue
		}
		parts[i] = escapeComponent(seg.Key)
	}
	return strings.Join(parts, ".")
}

// escapeComponent backslash-escapes every byte gjson or sjson may read as
// syntax, including the multipath (`[`, `{`) and literal (`!`) prefixes.
func escapeComponent(key string) string {
	safe := true
	for i := 0; i < len(key); i++ {
		if !isSafeKeyByte(key[i]) {
			safe = false
			break
		}
	}
	if safe {
		return key
	}
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		if !isSafeKeyByte(key[i]) {
			b.WriteByte('\\')
		}
		b.WriteByte(key[i])
	}
	return b.String()
}

func isSafeKeyByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '-' || c >= 0x80
}
