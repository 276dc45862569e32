package recorder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trizel-project/epistemic-engine/internal/document"
)

// Method describes one registered analysis method.
type Method struct {
	MethodID      string   `json:"method_id" yaml:"method_id"`
	MethodVersion string   `json:"method_version" yaml:"method_version"`
	Level         int      `json:"level" yaml:"level"`
	Active        *bool    `json:"active,omitempty" yaml:"active,omitempty"`
	Outputs       []string `json:"outputs" yaml:"outputs"`
}

// IsActive reports whether the method may run. An absent flag means active.
func (m Method) IsActive() bool {
	return m.Active == nil || *m.Active
}

// MethodRegistry is the set of methods a run may name.
type MethodRegistry struct {
	Methods []Method `json:"methods" yaml:"methods"`
}

// LoadMethods reads a JSON or YAML method registry. Unknown fields,
// empty ids and duplicate ids are rejected.
func LoadMethods(path string) (*MethodRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading method registry: %w", err)
	}
	return ParseMethods(data, document.IsYAML(path))
}

// ParseMethods decodes a method registry document.
func ParseMethods(data []byte, yamlDoc bool) (*MethodRegistry, error) {
	var reg MethodRegistry
	if yamlDoc {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&reg); err != nil {
			return nil, fmt.Errorf("invalid method registry: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&reg); err != nil {
			return nil, fmt.Errorf("invalid method registry: %w", err)
		}
	}

	seen := make(map[string]bool, len(reg.Methods))
	for i, m := range reg.Methods {
		if m.MethodID == "" {
			return nil, fmt.Errorf("invalid method registry: methods[%d] missing method_id", i)
		}
		if seen[m.MethodID] {
			return nil, fmt.Errorf("invalid method registry: duplicate method_id %s", m.MethodID)
		}
		seen[m.MethodID] = true
	}
	return &reg, nil
}

// Lookup returns the active method with the given id.
func (r *MethodRegistry) Lookup(id string) (Method, error) {
	for _, m := range r.Methods {
		if m.MethodID != id {
			continue
		}
		if !m.IsActive() {
			return Method{}, contractErrorf(ErrCodeInactiveMethod, "Method is not active: %s", id)
		}
		return m, nil
	}
	return Method{}, contractErrorf(ErrCodeUnknownMethod, "Unknown method_id: %s", id)
}
