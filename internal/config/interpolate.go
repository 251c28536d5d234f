package config

import (
	"regexp"
)

// refPattern matches `${namespace:key}` references the bundle
// controller resolves against its local_address/node_address/net_address
// namespaces (spec.md §4.9).
var refPattern = regexp.MustCompile(`\$\{([a-zA-Z_]+):([a-zA-Z0-9_.]+)\}`)

// Interpolate replaces every `${namespace:key}` reference in s with the
// string value of namespace.key in t, leaving unresolved references
// untouched.
func Interpolate(s string, t *Tree) string {
	return refPattern.ReplaceAllStringFunc(s, func(ref string) string {
		m := refPattern.FindStringSubmatch(ref)
		namespace, key := m[1], m[2]
		if !t.Exists(namespace + "." + key) {
			return ref
		}
		return t.String(namespace + "." + key)
	})
}

// ResolveAgainst rewrites every string leaf in t in place, replacing
// `${namespace:key}` references with values looked up in source -
// used by the bundle controller so a later-declared instance's config
// can reference an earlier instance's bound endpoints (spec.md §4.9
// step 2).
func (t *Tree) ResolveAgainst(source *Tree) {
	for key, value := range t.k.All() {
		s, ok := value.(string)
		if !ok || !refPattern.MatchString(s) {
			continue
		}
		resolved := Interpolate(s, source)
		if resolved != s {
			_ = t.k.Set(key, resolved)
		}
	}
}

// AddressNamespace picks local_address/node_address/net_address for addr
// based on its ZMQ transport domain (spec.md §4.9).
func AddressNamespace(addr string) string {
	switch {
	case len(addr) >= len("inproc://") && addr[:len("inproc://")] == "inproc://":
		return "local_address"
	case len(addr) >= len("ipc://") && addr[:len("ipc://")] == "ipc://":
		return "node_address"
	default:
		return "net_address"
	}
}
