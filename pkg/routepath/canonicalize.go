// Package routepath holds the pure string work behind route matching: the
// route pattern grammar, pathname canonicalization, segment decoding and
// interpolation of params back into hrefs.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// MaxDecodePasses caps repeated percent-decoding of a single segment.
const MaxDecodePasses = 4

// Canonical holds a canonicalized href split into its parts.
type Canonical struct {
	// Path is the canonical pathname: leading slash, no trailing slash
	// (except "/"), no empty or dot segments.
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Hash is the fragment without the leading "#".
	Hash string

	// Changed reports whether Path differs from the input pathname.
	Changed bool
}

// Path errors. ErrInvalidPercentEscape and friends mean the input is
// malformed (a bad request), which callers must keep apart from "no route".
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
)

// IsMalformed reports whether err is one of the malformed-input errors.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrBackslashInPath) ||
		errors.Is(err, ErrNullByteInPath) ||
		errors.Is(err, ErrInvalidPercentEscape) ||
		errors.Is(err, ErrPathEscapesRoot) ||
		errors.Is(err, ErrInvalidPath)
}

// Canonicalize normalizes an href (path, optional "?query", optional
// "#hash").
//
// The following transformations are applied to the path:
//   - Ensure a leading slash
//   - Collapse multiple slashes (/blog//post → /blog/post)
//   - Remove "." segments and resolve ".." segments
//   - Remove the trailing slash (except for root "/")
//
// Backslashes, NUL bytes (literal or %00), invalid percent-escapes and ".."
// that would escape the root are rejected.
func Canonicalize(href string) (Canonical, error) {
	if href == "" {
		return Canonical{Path: "/", Changed: true}, nil
	}

	rest, hash, _ := strings.Cut(href, "#")
	path, query, _ := strings.Cut(rest, "?")

	if strings.Contains(path, "\\") {
		return Canonical{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Canonical{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return Canonical{}, err
		}
	}

	original := path

	segments := strings.Split(path, "/")
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(kept) == 0 {
				return Canonical{}, ErrPathEscapesRoot
			}
			kept = kept[:len(kept)-1]
		default:
			kept = append(kept, seg)
		}
	}

	path = "/" + strings.Join(kept, "/")

	return Canonical{
		Path:    path,
		Query:   query,
		Hash:    hash,
		Changed: path != original,
	}, nil
}

// validatePercentEscapes checks that all percent-escapes are %XX with two
// hex digits.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// pctMarker stands in for a literal "%25" while decoding. NUL can never
// survive Canonicalize, so it cannot collide with input.
const pctMarker = "\x00"

// DecodeSegment percent-decodes one path segment.
//
// A literal "%25" is protected before decoding and restored as "%" at the
// end, so "%2541" decodes to "%41" rather than "A". Other escapes are
// decoded until the value stops changing, at most MaxDecodePasses times.
func DecodeSegment(segment string) (string, error) {
	if !strings.Contains(segment, "%") {
		return segment, nil
	}
	if strings.Contains(segment, pctMarker) {
		return "", ErrNullByteInPath
	}
	if err := validatePercentEscapes(segment); err != nil {
		return "", err
	}

	cur := strings.ReplaceAll(segment, "%25", pctMarker)
	for pass := 0; pass < MaxDecodePasses; pass++ {
		next, err := url.PathUnescape(cur)
		if err != nil {
			return "", ErrInvalidPercentEscape
		}
		if next == cur {
			break
		}
		cur = next
	}

	return strings.ReplaceAll(cur, pctMarker, "%"), nil
}

// SplitSegments splits a canonical path into decoded segments. The root
// path yields no segments.
func SplitSegments(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}

	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		decoded, err := DecodeSegment(seg)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}

// SplitHref splits an href into path, query and hash, without the "?" and
// "#" separators.
func SplitHref(href string) (path, query, hash string) {
	rest, hash, _ := strings.Cut(href, "#")
	path, query, _ = strings.Cut(rest, "?")
	return path, query, hash
}

// IsAbsoluteURL reports whether href carries a scheme or is
// protocol-relative. The router only navigates to relative hrefs.
func IsAbsoluteURL(href string) bool {
	if strings.HasPrefix(href, "//") {
		return true
	}
	u, err := url.Parse(href)
	return err == nil && u.Scheme != ""
}
