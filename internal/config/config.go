// Package config loads component and bundle configuration through
// koanf, replacing the teacher's bespoke nutrition+yaml.v1 reader with
// koanf's unified file/env provider and yaml.v3 parser stack.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
)

// EnvPrefix is the prefix environment variables must carry to override
// configuration keys, e.g. SATURNIN_LOG_LEVEL overrides log.level.
const EnvPrefix = "SATURNIN_"

// Tree wraps a loaded koanf instance plus the namespace interpolation
// the bundle controller feeds with bound endpoint addresses.
type Tree struct {
	k *koanf.Koanf
}

// Load reads path (YAML) and overlays any SATURNIN_-prefixed
// environment variables, dot-separating nested keys.
func Load(path string) (*Tree, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errs.NewService("load config file", err)
		}
	}
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}), nil)
	if err != nil {
		return nil, errs.NewService("load config env overlay", err)
	}
	return &Tree{k: k}, nil
}

// NewEmpty returns a Tree with nothing loaded, for programmatic setup
// (tests, or a bundle synthesizing a sub-config for one component).
func NewEmpty() *Tree {
	return &Tree{k: koanf.New(".")}
}

// Sub returns the subtree rooted at path, or an empty Tree if path does
// not exist.
func (t *Tree) Sub(path string) *Tree {
	return &Tree{k: t.k.Cut(path)}
}

// Set stores value at path, used by the bundle controller to publish
// bound endpoint addresses for later interpolation.
func (t *Tree) Set(path string, value interface{}) error {
	return t.k.Set(path, value)
}

// String reads a string key, "" if absent.
func (t *Tree) String(path string) string { return t.k.String(path) }

// Strings reads a string-slice key.
func (t *Tree) Strings(path string) []string { return t.k.Strings(path) }

// Int reads an int key.
func (t *Tree) Int(path string) int { return t.k.Int(path) }

// Exists reports whether path is set.
func (t *Tree) Exists(path string) bool { return t.k.Exists(path) }

// MapKeys returns the immediate child keys at path, for iterating a
// bundle's per-service sections in declaration order is not guaranteed
// by koanf's map; callers needing order should keep their own list.
func (t *Tree) MapKeys(path string) []string {
	m := t.k.MapKeys(path)
	return m
}

// Unmarshal decodes path (or the whole tree if path is "") into out.
// Unknown keys are not rejected: keys with no matching field are ignored.
func (t *Tree) Unmarshal(path string, out interface{}) error {
	conf := koanf.UnmarshalConf{Tag: "koanf", FlatPaths: false}
	if err := t.k.UnmarshalWithConf(path, out, conf); err != nil {
		return errs.NewInvalidMessage("config: "+path, err)
	}
	return nil
}

// Raw exposes the underlying koanf instance for callers that need
// direct access to it.
func (t *Tree) Raw() *koanf.Koanf { return t.k }

// Marshal serializes the whole tree back to YAML, for handing a
// sub-tree to a Thread controller as a component's raw configuration
// blob.
func (t *Tree) Marshal() ([]byte, error) {
	b, err := t.k.Marshal(yaml.Parser())
	if err != nil {
		return nil, errs.NewService("marshal config", err)
	}
	return b, nil
}
