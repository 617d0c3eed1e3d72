package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AGENTCORE_"

// FileSystem is the read access Load needs. OSFS is the real one.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFS reads from the operating system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader merges defaults, a TOML file and environment overrides.
type Loader struct {
	fs       FileSystem
	env      *EnvLoader
	noEnv    bool
	defaults Config
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFS reads the config file through fsys.
func WithFS(fsys FileSystem) LoaderOption {
	return func(l *Loader) {
		l.fs = fsys
	}
}

// WithEnv overrides the environment loader.
func WithEnv(env *EnvLoader) LoaderOption {
	return func(l *Loader) {
		l.env = env
	}
}

// WithoutEnv ignores the environment.
func WithoutEnv() LoaderOption {
	return func(l *Loader) {
		l.noEnv = true
	}
}

// WithDefaults replaces the built-in defaults.
func WithDefaults(c Config) LoaderOption {
	return func(l *Loader) {
		l.defaults = c
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		fs:       OSFS{},
		env:      NewEnvLoader(EnvPrefix),
		defaults: Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the configuration at path with the default Loader.
func Load(path string) (Config, error) {
	return NewLoader().Load(path)
}

// Load reads path (a missing file, or an empty path, leaves the defaults in
// place), applies environment overrides and validates the result.
func (l *Loader) Load(path string) (Config, error) {
	values, err := l.readFile(path)
	if err != nil {
		return Config{}, err
	}
	if !l.noEnv {
		env, err := l.typedEnv()
		if err != nil {
			return Config{}, err
		}
		values = DeepMerge(values, env)
	}

	cfg := l.defaults
	if len(values) > 0 {
		if err := decodeInto(&cfg, values); err != nil {
			source := path
			if source == "" {
				source = "<env>"
			}
			return Config{}, &ParseError{Path: source, Message: err.Error(), Err: err}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l *Loader) readFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var values map[string]any
	if err := toml.Unmarshal(data, &values); err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return values, nil
}

// typedEnv converts the raw environment overrides to the types of the
// matching default settings. Unknown settings are dropped.
func (l *Loader) typedEnv() (map[string]any, error) {
	raw := l.env.Load()
	if len(raw) == 0 {
		return nil, nil
	}
	data, err := toml.Marshal(l.defaults)
	if err != nil {
		return nil, err
	}
	var schema map[string]any
	if err := toml.Unmarshal(data, &schema); err != nil {
		return nil, err
	}
	return coerceTree(schema, raw, "")
}

func coerceTree(schema, raw map[string]any, prefix string) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for key, val := range raw {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		want, known := schema[key]
		if !known {
			continue
		}
		switch v := val.(type) {
		case map[string]any:
			sub, ok := want.(map[string]any)
			if !ok {
				continue
			}
			typed, err := coerceTree(sub, v, path)
			if err != nil {
				return nil, err
			}
			out[key] = typed
		case string:
			if _, section := want.(map[string]any); section {
				continue
			}
			typed, err := coerce(want, v)
			if err != nil {
				return nil, &ParseError{Path: "<env>", Message: fmt.Sprintf("%s: %v", path, err), Err: err}
			}
			out[key] = typed
		}
	}
	return out, nil
}

func coerce(want any, s string) (any, error) {
	switch want.(type) {
	case int64:
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	case bool:
		return strconv.ParseBool(strings.TrimSpace(s))
	case float64:
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	default:
		return s, nil
	}
}

// decodeInto re-encodes the merged tree and decodes it over cfg, so keys that
// are absent keep their current values.
func decodeInto(cfg *Config, values map[string]any) error {
	data, err := toml.Marshal(values)
	if err != nil {
		return err
	}
	return toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
}

// DeepMerge recursively merges src into dst. Values in src win; nested maps
// merge key by key.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = srcVal
	}
	return dst
}
