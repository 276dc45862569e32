// Package document reads the JSON and YAML documents the engine works on:
// state records, registries, method registries, and schemas.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TypeName returns the JSON type name of a decoded value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, uint64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsYAML reports whether path names a YAML document by extension.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Decode parses data as YAML when yamlDoc is set, JSON otherwise.
// JSON input must hold exactly one value.
func Decode(data []byte, yamlDoc bool) (any, error) {
	var v any
	if yamlDoc {
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

// Load reads and decodes the document at path.
func Load(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Decode(data, IsYAML(path))
	if err != nil {
		return nil, fmt.Errorf("invalid document %s: %w", path, err)
	}
	return v, nil
}

// LoadObject is like Load but requires the top-level value to be an object.
func LoadObject(path string) (map[string]any, error) {
	v, err := Load(path)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document %s: top-level value must be an object, got %s", path, TypeName(v))
	}
	return obj, nil
}
