package fs

import (
	"path"
	"strings"
)

// RootPath is the reserved key of the namespace root.
const RootPath = "/"

// Crumb is one element of a breadcrumb trail.
type Crumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ExtensionOf returns the lower-cased text after the final dot in name,
// or "" when there is none.
func ExtensionOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// segments splits p into its non-empty components.
func segments(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParentOf strips the last segment of p. Paths at or directly below the
// root return the root.
func ParentOf(p string) string {
	parts := segments(p)
	if len(parts) <= 1 {
		return RootPath
	}
	return "/" + strings.Join(parts[:len(parts)-1], "/")
}

// Breadcrumbs decomposes p into a trail starting at Home.
func Breadcrumbs(p string) []Crumb {
	parts := segments(p)
	crumbs := make([]Crumb, 0, len(parts)+1)
	crumbs = append(crumbs, Crumb{Name: "Home", Path: RootPath})

	cumulative := ""
	for _, part := range parts {
		cumulative += "/" + part
		crumbs = append(crumbs, Crumb{Name: cumulative[1:], Path: cumulative})
	}
	return crumbs
}

// JoinPath appends name to parent without doubling the separator at the root.
func JoinPath(parent, name string) string {
	if strings.HasSuffix(parent, "/") {
		return parent + name
	}
	return parent + "/" + name
}

// CleanPath normalizes user supplied paths: empty input is the root, the
// result is always absolute and free of "." and ".." elements.
func CleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return RootPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
