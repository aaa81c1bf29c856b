package beans

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

type SegmentKind int

const (
	SegmentProperty SegmentKind = iota
	SegmentIndex
	SegmentKey
)

// Segment is one step of a property path: a property name, an integer
// index or a map key.
type Segment struct {
	Kind  SegmentKind
	Name  string
	Index int
}

func Property(name string) Segment {
	return Segment{Kind: SegmentProperty, Name: name}
}

func Index(i int) Segment {
	return Segment{Kind: SegmentIndex, Index: i}
}

func Key(key string) Segment {
	return Segment{Kind: SegmentKey, Name: key}
}

func (s Segment) String() string {
	switch s.Kind {
	case SegmentIndex:
		return "[" + strconv.Itoa(s.Index) + "]"
	case SegmentKey:
		return "[" + s.Name + "]"
	}
	return s.Name
}

// Path is a parsed property path such as addresses[1].city.
type Path []Segment

func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if i > 0 && s.Kind == SegmentProperty {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Head returns the first property name, or "" for an empty path.
func (p Path) Head() string {
	if len(p) == 0 || p[0].Kind != SegmentProperty {
		return ""
	}
	return p[0].Name
}

// ParsePath parses dotted paths with bracketed indexes and keys:
// a.b[0].c, m[key], m['some key'], m["k"].
func ParsePath(s string) (Path, error) {
	var path Path
	i := 0
	expectName := true
	for i < len(s) {
		switch c := s[i]; {
		case c == '.':
			if expectName {
				return nil, pathError(s, i, "unexpected '.'")
			}
			expectName = true
			i++
		case c == '[':
			if expectName && len(path) == 0 {
				return nil, pathError(s, i, "path must start with a property name")
			}
			end, seg, err := parseBracket(s, i)
			if err != nil {
				return nil, err
			}
			path = append(path, seg)
			expectName = false
			i = end
		default:
			if !expectName {
				return nil, pathError(s, i, "expected '.' or '['")
			}
			start := i
			for i < len(s) && s[i] != '.' && s[i] != '[' {
				if s[i] == ']' || s[i] == ' ' {
					return nil, pathError(s, i, fmt.Sprintf("unexpected %q", s[i]))
				}
				i++
			}
			path = append(path, Property(s[start:i]))
			expectName = false
		}
	}
	if expectName {
		return nil, pathError(s, len(s), "incomplete path")
	}
	return path, nil
}

func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseBracket(s string, open int) (int, Segment, error) {
	i := open + 1
	if i < len(s) && (s[i] == '\'' || s[i] == '"') {
		quote := s[i]
		end := strings.IndexByte(s[i+1:], quote)
		if end < 0 {
			return 0, Segment{}, pathError(s, i, "unterminated quoted key")
		}
		key := s[i+1 : i+1+end]
		i = i + 1 + end + 1
		if i >= len(s) || s[i] != ']' {
			return 0, Segment{}, pathError(s, i, "expected ']'")
		}
		return i + 1, Key(key), nil
	}
	end := strings.IndexByte(s[i:], ']')
	if end < 0 {
		return 0, Segment{}, pathError(s, i, "expected ']'")
	}
	raw := strings.TrimSpace(s[i : i+end])
	if raw == "" {
		return 0, Segment{}, pathError(s, i, "empty brackets")
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return i + end + 1, Index(n), nil
	}
	return i + end + 1, Key(raw), nil
}

func pathError(s string, pos int, msg string) error {
	return &faults.ParseError{Message: msg, Line: 1, Column: pos + 1, Near: s}
}
