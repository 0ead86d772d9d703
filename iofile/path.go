package iofile

import (
	"fmt"
	"path/filepath"
	"strings"
)

const urlSeparator = '/'

// getURLScheme returns the length of the "foo" part of "foo://bar/baz",
// or (0, nil) if path names a local file.
func getURLScheme(path string) (int, error) {
	for i := 0; i < len(path); i++ {
		ch := path[i]
		if ch == ':' {
			if len(path) <= i+2 || path[i+1] != '/' || path[i+2] != '/' {
				return -1, fmt.Errorf("iofile: parsepath %s: a URL must start with scheme://", path)
			}
			return i, nil
		}
		if !((ch >= '0' && ch <= '9') || (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || ch == '.' || ch == '+' || ch == '=') {
			break
		}
	}
	return 0, nil
}

// ParsePath splits path into a scheme and suffix. A local-filesystem
// path (no "scheme://" prefix) returns ("", path, nil).
func ParsePath(path string) (scheme, suffix string, err error) {
	n, err := getURLScheme(path)
	if err != nil {
		return "", "", err
	}
	if n == 0 {
		return "", path, nil
	}
	return path[:n], path[n+3:], nil
}

// Base returns the last element of path: filepath.Base for a local
// path, or the last "/"-separated component of the URL suffix
// otherwise.
func Base(path string) string {
	scheme, suffix, err := ParsePath(path)
	if scheme == "" || err != nil {
		return filepath.Base(path)
	}
	if suffix == "" {
		return path
	}
	return filepath.Base(suffix)
}

// Dir returns all but the last element of path.
func Dir(path string) string {
	scheme, suffix, err := ParsePath(path)
	if scheme == "" || err != nil {
		return filepath.Dir(path)
	}
	for i := len(suffix) - 1; i >= 0; i-- {
		if suffix[i] == urlSeparator {
			for i > 0 && suffix[i] == urlSeparator {
				i--
			}
			return path[:len(scheme)+3+i+1]
		}
	}
	return path[:len(scheme)+3]
}

// Join joins path elements with "/", the same way for both local and
// URL-style paths.
func Join(elems ...string) string {
	if len(elems) == 0 {
		return ""
	}
	var prefix string
	if n, err := getURLScheme(elems[0]); err == nil && n > 0 {
		prefix = elems[0][:n+3]
		elems[0] = elems[0][n+3:]
	} else if len(elems[0]) > 0 && elems[0][0] == '/' {
		prefix = "/"
		elems[0] = elems[0][1:]
	}

	clean := func(p string) string {
		s, e := 0, len(p)-1
		for s < len(p) && p[s] == urlSeparator {
			s++
		}
		for e >= 0 && p[e] == urlSeparator {
			e--
		}
		if e < s {
			return ""
		}
		return p[s : e+1]
	}

	newElems := make([]string, 0, len(elems))
	for _, e := range elems {
		if c := clean(e); c != "" {
			newElems = append(newElems, c)
		}
	}
	return prefix + strings.Join(newElems, "/")
}
