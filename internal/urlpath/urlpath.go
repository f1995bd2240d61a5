// Package urlpath implements the slash-separated path arithmetic used by the
// static builder: lexical normalization, absolute-path detection and
// href-style relative path computation. All operations are pure string
// manipulation; nothing here touches the filesystem or resolves symlinks.
package urlpath

import (
	"regexp"
	"strings"
)

var (
	driveLetter = regexp.MustCompile(`^[a-zA-Z]:`)
	slashRun    = regexp.MustCompile(`[/\\]+`)
)

// IsAbs reports whether path is absolute: rooted at a path separator or
// starting with a Windows drive letter.
func IsAbs(path string) bool {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`) {
		return true
	}
	return driveLetter.MatchString(path)
}

// NormalizeSlashes collapses every run of forward or backward slashes into a
// single forward slash.
func NormalizeSlashes(path string) string {
	return slashRun.ReplaceAllString(path, "/")
}

// Normalize resolves a path lexically: slash runs collapse, empty and "."
// segments are dropped, ".." segments consume the preceding segment when one
// exists and are kept literally otherwise, and a run of three or more dots
// counts as a parent reference. A leading separator is preserved.
func Normalize(path string) string {
	path = NormalizeSlashes(path)
	rooted := strings.HasPrefix(path, "/")

	kept := make([]string, 0, 8)
	for _, seg := range strings.Split(path, "/") {
		switch {
		case seg == "" || seg == ".":
			// skip
		case isDotRun(seg):
			if n := len(kept); n > 0 && kept[n-1] != ".." {
				kept = kept[:n-1]
			} else {
				kept = append(kept, "..")
			}
		default:
			kept = append(kept, seg)
		}
	}

	out := strings.Join(kept, "/")
	if rooted {
		return "/" + out
	}
	return out
}

// isDotRun reports whether seg consists of two or more dots and nothing else.
func isDotRun(seg string) bool {
	if len(seg) < 2 {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] != '.' {
			return false
		}
	}
	return true
}

// Relative computes an href usable from the document at from to reach to.
// Both arguments are slash-separated absolute paths. The result always
// starts with "./" and ascends one level per remaining directory segment of
// from. When the shared prefix consumes every segment of from, the last
// common segment is handed back to to's side so that sibling files link to
// each other without re-ascending; for identical paths this yields a link to
// the file itself ("./name").
func Relative(from, to string) string {
	fromSegs := splitSegments(from)
	toSegs := splitSegments(to)

	common := 0
	for common < len(fromSegs) && common < len(toSegs) && fromSegs[common] == toSegs[common] {
		common++
	}
	if common == len(fromSegs) && common > 0 {
		common--
	}

	fromRem := fromSegs[common:]
	toRem := toSegs[common:]

	var b strings.Builder
	b.WriteString("./")
	// The final segment of from is the document itself, not a directory.
	for i := 0; i < len(fromRem)-1; i++ {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(toRem, "/"))
	return b.String()
}

func splitSegments(path string) []string {
	segs := strings.Split(path, "/")
	out := segs[:0]
	for _, s := range segs {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
