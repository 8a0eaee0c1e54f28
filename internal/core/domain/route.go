package domain

import (
	"sort"
	"strings"
)

// RouteClass tags a navigable path with the session it requires.
type RouteClass string

const (
	RoutePublic    RouteClass = "public"
	RouteAuthOnly  RouteClass = "auth_only" // must be unauthenticated
	RouteProtected RouteClass = "protected"
	RouteAdmin     RouteClass = "admin"
)

// RouteTable is the static path classification. Paths match on whole
// segments ("/payment" does not cover "/payments"), the longest prefix wins,
// and unlisted paths are public.
type RouteTable struct {
	prefixes []string
	classes  map[string]RouteClass
}

// NewRouteTable builds a table from prefix → class.
func NewRouteTable(entries map[string]RouteClass) *RouteTable {
	t := &RouteTable{classes: make(map[string]RouteClass, len(entries))}
	for p, c := range entries {
		p = normalizePath(p)
		t.classes[p] = c
		t.prefixes = append(t.prefixes, p)
	}
	sort.Slice(t.prefixes, func(i, j int) bool { return len(t.prefixes[i]) > len(t.prefixes[j]) })
	return t
}

// DefaultRouteTable is the application's route map.
func DefaultRouteTable() *RouteTable {
	return NewRouteTable(map[string]RouteClass{
		"/":               RoutePublic,
		"/about":          RoutePublic,
		"/contact":        RoutePublic,
		"/login":          RouteAuthOnly,
		"/register":       RouteAuthOnly,
		"/dashboard":      RouteProtected,
		"/profile":        RouteProtected,
		"/booking":        RouteProtected,
		"/payment":        RouteProtected,
		"/payment-status": RouteProtected,
		"/admin":          RouteAdmin,
	})
}

// Classify returns the class of path.
func (t *RouteTable) Classify(path string) RouteClass {
	path = normalizePath(path)
	for _, p := range t.prefixes {
		if matchesSegment(path, p) {
			return t.classes[p]
		}
	}
	return RoutePublic
}

func matchesSegment(path, prefix string) bool {
	if prefix == "/" {
		return path == "/"
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
