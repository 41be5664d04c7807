package routepath

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind classifies one segment of a route pattern.
type Kind int

const (
	// Static matches a literal segment.
	Static Kind = iota
	// Index matches only when no URL segments remain (a trailing "/").
	Index
	// Param matches exactly one segment ($id or prefix{$id}suffix).
	Param
	// Optional matches zero or one segment ({-$id}).
	Optional
	// Splat matches all remaining segments ($ or prefix{$}suffix).
	Splat
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Index:
		return "index"
	case Param:
		return "param"
	case Optional:
		return "optional"
	case Splat:
		return "splat"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// SplatKey is the params key a splat segment is captured under.
const SplatKey = "*"

// Segment is one parsed segment of a route pattern.
type Segment struct {
	Kind Kind

	// Value is the literal for Static segments, or the param name (without
	// the "$") for Param and Optional segments.
	Value string

	// Prefix and Suffix are static text around a braced param, e.g.
	// "post-" and ".html" in "post-{$id}.html".
	Prefix string
	Suffix string
}

// Name returns the params key the segment writes to, or "" for static and
// index segments.
func (s Segment) Name() string {
	switch s.Kind {
	case Param, Optional:
		return s.Value
	case Splat:
		return SplatKey
	default:
		return ""
	}
}

// String renders the segment back into pattern syntax.
func (s Segment) String() string {
	switch s.Kind {
	case Index:
		return "/"
	case Param:
		if s.Prefix != "" || s.Suffix != "" {
			return s.Prefix + "{$" + s.Value + "}" + s.Suffix
		}
		return "$" + s.Value
	case Optional:
		return s.Prefix + "{-$" + s.Value + "}" + s.Suffix
	case Splat:
		if s.Prefix != "" || s.Suffix != "" {
			return s.Prefix + "{$}" + s.Suffix
		}
		return "$"
	default:
		return s.Value
	}
}

// Pattern errors.
var (
	ErrSplatNotLast   = errors.New("splat segment must be the last segment of a pattern")
	ErrDuplicateParam = errors.New("param name used twice in one pattern")
)

var (
	splatBracesRE    = regexp.MustCompile(`^(.*?)\{\$\}(.*)$`)
	optionalBracesRE = regexp.MustCompile(`^(.*?)\{-\$([a-zA-Z_$][a-zA-Z0-9_$]*)\}(.*)$`)
	paramBracesRE    = regexp.MustCompile(`^(.*?)\{\$([a-zA-Z_$][a-zA-Z0-9_$]*)\}(.*)$`)
)

// ParsePattern parses a route path pattern into segments.
//
//	""                → nil (pathless)
//	"/"               → [Index]
//	"posts/$postId"   → [Static posts, Param postId]
//	"posts/"          → [Static posts, Index]
//	"{-$lang}/about"  → [Optional lang, Static about]
//	"files/$"         → [Static files, Splat]
//
// Leading slashes are ignored. Static values are percent-decoded.
func ParsePattern(pattern string) ([]Segment, error) {
	if pattern == "" {
		return nil, nil
	}
	if strings.Trim(pattern, "/") == "" {
		return []Segment{{Kind: Index}}, nil
	}

	trailing := strings.HasSuffix(pattern, "/")
	parts := strings.Split(strings.Trim(pattern, "/"), "/")

	segs := make([]Segment, 0, len(parts)+1)
	seen := make(map[string]bool)
	for i, part := range parts {
		if part == "" {
			continue
		}
		seg, err := parsePart(part)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if seg.Kind == Splat && (i != len(parts)-1 || trailing) {
			return nil, fmt.Errorf("pattern %q: %w", pattern, ErrSplatNotLast)
		}
		if name := seg.Name(); name != "" {
			if seen[name] {
				return nil, fmt.Errorf("pattern %q: %w: %s", pattern, ErrDuplicateParam, name)
			}
			seen[name] = true
		}
		segs = append(segs, seg)
	}
	if trailing {
		segs = append(segs, Segment{Kind: Index})
	}
	return segs, nil
}

func parsePart(part string) (Segment, error) {
	if m := splatBracesRE.FindStringSubmatch(part); m != nil {
		return Segment{Kind: Splat, Prefix: m[1], Suffix: m[2]}, nil
	}
	if m := optionalBracesRE.FindStringSubmatch(part); m != nil {
		return Segment{Kind: Optional, Value: m[2], Prefix: m[1], Suffix: m[3]}, nil
	}
	if m := paramBracesRE.FindStringSubmatch(part); m != nil {
		return Segment{Kind: Param, Value: m[2], Prefix: m[1], Suffix: m[3]}, nil
	}
	if part == "$" {
		return Segment{Kind: Splat}, nil
	}
	if strings.HasPrefix(part, "$") {
		return Segment{Kind: Param, Value: part[1:]}, nil
	}
	decoded, err := DecodeSegment(part)
	if err != nil {
		return Segment{}, err
	}
	return Segment{Kind: Static, Value: decoded}, nil
}

// FormatPattern renders segments back into a pattern with a leading slash.
func FormatPattern(segs []Segment) string {
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segs {
		if s.Kind == Index {
			b.WriteString("/")
			continue
		}
		b.WriteString("/")
		b.WriteString(s.String())
	}
	return CleanPath(b.String())
}

// MatchSegment tests one URL segment against a single-segment pattern
// (Static, Param or Optional) and returns the captured value.
func MatchSegment(s Segment, urlSeg string, caseSensitive bool) (string, bool) {
	switch s.Kind {
	case Static:
		if caseSensitive {
			return "", s.Value == urlSeg
		}
		return "", strings.EqualFold(s.Value, urlSeg)
	case Param, Optional:
		if len(urlSeg) < len(s.Prefix)+len(s.Suffix) {
			return "", false
		}
		if !strings.HasPrefix(urlSeg, s.Prefix) || !strings.HasSuffix(urlSeg, s.Suffix) {
			return "", false
		}
		v := urlSeg[len(s.Prefix) : len(urlSeg)-len(s.Suffix)]
		if v == "" {
			return "", false
		}
		return v, true
	default:
		return "", false
	}
}

// MatchSplat captures the remaining URL segments for a splat pattern. The
// prefix is checked on the first segment and the suffix on the last.
func MatchSplat(s Segment, rest []string) (string, bool) {
	if len(rest) == 0 {
		return "", s.Prefix == "" && s.Suffix == ""
	}
	joined := strings.Join(rest, "/")
	if !strings.HasPrefix(rest[0], s.Prefix) || !strings.HasSuffix(rest[len(rest)-1], s.Suffix) {
		return "", false
	}
	if len(joined) < len(s.Prefix)+len(s.Suffix) {
		return "", false
	}
	return joined[len(s.Prefix) : len(joined)-len(s.Suffix)], true
}
