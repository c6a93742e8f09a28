package runconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/configured/internal/ir"
)

// Format is a run configuration file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// ParseError reports a file that could not be decoded.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported run config extension %q (want .yaml, .yml, .toml or .json)", filepath.Ext(path))
	}
}

// Load reads and decodes a run configuration file.
func Load(path string) (ir.Object, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run config: %w", err)
	}
	return parse(path, data, format)
}

// LoadAll loads every path and merges them in order.
func LoadAll(paths ...string) (ir.Object, error) {
	merged := ir.Object{}
	for _, p := range paths {
		cfg, err := Load(p)
		if err != nil {
			return nil, err
		}
		merged = Merge(merged, cfg)
	}
	return merged, nil
}

// Parse decodes data in the given format. An empty document is an empty
// object.
func Parse(data []byte, format Format) (ir.Object, error) {
	return parse("<input>", data, format)
}

func parse(source string, data []byte, format Format) (ir.Object, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ir.Object{}, nil
	}

	var (
		native any
		err    error
	)
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &native)
	case FormatTOML:
		var m map[string]any
		err = toml.Unmarshal(data, &m)
		native = m
	case FormatJSON:
		var v ir.Value
		v, err = ir.ParseJSON(data)
		if err == nil {
			native = v
		}
	default:
		return nil, fmt.Errorf("unknown run config format %q", format)
	}
	if err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}

	v, err := ir.FromNative(normalize(native))
	if err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	if ir.IsNull(v) {
		return ir.Object{}, nil
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, &ParseError{Path: source, Message: fmt.Sprintf("top level must be an object, got %s", ir.KindOf(v))}
	}
	return obj, nil
}

// normalize rewrites decoder output that ir.FromNative does not accept:
// YAML maps with non-string keys and TOML date-times.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[k] = normalize(elem)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[fmt.Sprint(k)] = normalize(elem)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = normalize(elem)
		}
		return out
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case toml.LocalDate, toml.LocalTime, toml.LocalDateTime:
		return fmt.Sprint(t)
	default:
		return v
	}
}
