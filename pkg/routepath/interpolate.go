package routepath

import (
	"net/url"
	"regexp"
	"strings"
)

var multiSlash = regexp.MustCompile(`/{2,}`)

// CleanPath collapses repeated slashes.
func CleanPath(path string) string {
	return multiSlash.ReplaceAllString(path, "/")
}

// JoinPaths joins parts with "/" and collapses repeated slashes.
func JoinPaths(parts ...string) string {
	return CleanPath(strings.Join(parts, "/"))
}

// TrimLeft trims leading slashes, keeping a bare "/".
func TrimLeft(path string) string {
	if path == "/" {
		return path
	}
	return strings.TrimLeft(path, "/")
}

// TrimRight trims trailing slashes, keeping a bare "/".
func TrimRight(path string) string {
	if path == "/" {
		return path
	}
	return strings.TrimRight(path, "/")
}

// Interpolated is the result of Interpolate.
type Interpolated struct {
	// Path is the concrete pathname.
	Path string

	// Used lists the params that were substituted.
	Used map[string]string

	// Missing is true if a required param or splat had no value.
	Missing bool
}

// Interpolate substitutes params into a parsed pattern. Param values are
// path-escaped; splat values keep their slashes. Optional params with no
// value drop their segment (keeping prefix/suffix text if any). Index
// segments produce no output.
func Interpolate(segs []Segment, params map[string]string) Interpolated {
	out := Interpolated{Used: make(map[string]string)}
	parts := make([]string, 0, len(segs))

	for _, s := range segs {
		switch s.Kind {
		case Static:
			parts = append(parts, escapeSegment(s.Value))
		case Index:
		case Param:
			v, ok := params[s.Value]
			if !ok || v == "" {
				out.Missing = true
			}
			out.Used[s.Value] = v
			parts = append(parts, s.Prefix+escapeSegment(v)+s.Suffix)
		case Optional:
			v, ok := params[s.Value]
			if !ok || v == "" {
				if s.Prefix != "" || s.Suffix != "" {
					parts = append(parts, s.Prefix+s.Suffix)
				}
				continue
			}
			out.Used[s.Value] = v
			parts = append(parts, s.Prefix+escapeSegment(v)+s.Suffix)
		case Splat:
			v, ok := params[SplatKey]
			if !ok || v == "" {
				out.Missing = true
				if s.Prefix != "" || s.Suffix != "" {
					parts = append(parts, s.Prefix+s.Suffix)
				}
				continue
			}
			out.Used[SplatKey] = v
			parts = append(parts, s.Prefix+escapeSplat(v)+s.Suffix)
		}
	}

	out.Path = "/" + strings.Join(parts, "/")
	out.Path = TrimRight(CleanPath(out.Path))
	return out
}

// escapeSegment escapes a single segment value. "%" is always escaped so a
// literal percent survives DecodeSegment.
func escapeSegment(v string) string {
	return url.PathEscape(v)
}

func escapeSplat(v string) string {
	parts := strings.Split(v, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// Resolve resolves to against base the way a relative link is resolved
// from a trailing-slash document: "/a/b" + "./c" = "/a/b/c",
// "/a/b" + "../c" = "/a/c", and an absolute to ("/x") replaces base.
// Bare names ("c") are treated like "./c". The result has no trailing
// slash unless it is "/".
func Resolve(base, to string) string {
	if strings.HasPrefix(to, "/") {
		return TrimRight(CleanPath(to))
	}

	stack := strings.Split(strings.Trim(base, "/"), "/")
	if len(stack) == 1 && stack[0] == "" {
		stack = stack[:0]
	}
	for _, part := range strings.Split(to, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	return "/" + strings.Join(stack, "/")
}
