package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a config file syntax.
type Format uint8

const (
	// FormatTOML is the default format.
	FormatTOML Format = iota
	// FormatYAML is selected by .yaml and .yml extensions.
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// FormatFor picks the format from the file extension. A path without an
// extension is TOML.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", "":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// decode parses a config document into nested maps.
func decode(path string, format Format, data []byte) (map[string]any, error) {
	var doc map[string]any

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			perr := &ParseError{Path: path, Message: err.Error(), Err: err}
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				perr.Line, perr.Column = derr.Position()
			}
			return nil, perr
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return doc, nil
}

// encode renders nested maps as a config document.
func encode(format Format, doc map[string]any) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(doc)
	case FormatYAML:
		return yaml.Marshal(doc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// flatten turns nested tables into dot-separated paths.
func flatten(doc map[string]any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, "", doc)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenInto(out, path, sub)
			continue
		}
		out[path] = v
	}
}

// setPath stores v in doc under section.key, creating the section table.
func setPath(doc map[string]any, section, key string, v any) {
	if section == "" {
		doc[key] = v
		return
	}
	table, ok := doc[section].(map[string]any)
	if !ok {
		table = make(map[string]any)
		doc[section] = table
	}
	table[key] = v
}
