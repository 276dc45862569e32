package validate

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/trizel-project/epistemic-engine/internal/document"
	"github.com/trizel-project/epistemic-engine/internal/pathguard"
	"github.com/trizel-project/epistemic-engine/internal/rules"
)

// Shape identifies which registry layout a document uses.
type Shape string

const (
	// ShapeFiles lists state files under "state_files", sorted.
	ShapeFiles Shape = "files"
	// ShapeEntries lists inline entries under "states".
	ShapeEntries Shape = "entries"
	// ShapeUnknown has neither list.
	ShapeUnknown Shape = "unknown"
)

// DetectShape picks the registry layout from the list key present.
// "state_files" wins when both appear.
func DetectShape(reg map[string]any) Shape {
	if _, ok := reg["state_files"]; ok {
		return ShapeFiles
	}
	if _, ok := reg["states"]; ok {
		return ShapeEntries
	}
	return ShapeUnknown
}

// RegistryReport is the outcome of structural registry validation.
type RegistryReport struct {
	Shape  Shape             `json:"shape"`
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Messages returns the error messages in check order.
func (r RegistryReport) Messages() []string {
	return Result{Errors: r.Errors}.Messages()
}

// ValidateRegistry checks a decoded registry document. baseDir is the
// directory holding the registry; every referenced file must resolve
// below it and exist.
//
// Independent problems are collected. A list field that is not a list
// stops checking, since nothing after it can be evaluated.
func ValidateRegistry(reg map[string]any, baseDir string, rr rules.RegistryRules) RegistryReport {
	c := &collector{}
	shape := DetectShape(reg)

	switch shape {
	case ShapeFiles:
		requireFields(c, reg, rr.FilesRequired)
		validateStateFiles(c, reg["state_files"], baseDir)
	case ShapeEntries:
		requireFields(c, reg, rr.EntriesRequired)
		validateEntries(c, reg["states"], baseDir)
	default:
		c.add("state_files", CodeStructural, "registry must define either 'state_files' or 'states'")
	}

	return RegistryReport{Shape: shape, Valid: len(c.errs) == 0, Errors: c.errs}
}

func requireFields(c *collector, reg map[string]any, required []string) {
	for _, field := range required {
		if _, ok := reg[field]; !ok {
			c.add(field, CodeStructural, "Missing required registry field: %s", field)
		}
	}
}

func validateStateFiles(c *collector, value any, baseDir string) {
	list, ok := value.([]any)
	if !ok {
		c.add("state_files", CodeStructural, "state_files must be an array, got %s", document.TypeName(value))
		return
	}

	paths := make([]string, 0, len(list))
	allStrings := true
	for i, item := range list {
		s, isString := item.(string)
		if !isString {
			c.add(fmt.Sprintf("state_files[%d]", i), CodeStructural, "state_files[%d] must be a string, got %s", i, document.TypeName(item))
			allStrings = false
			continue
		}
		paths = append(paths, s)
	}

	if allStrings {
		expected := append([]string(nil), paths...)
		sort.Strings(expected)
		if !equalStrings(paths, expected) {
			order, _ := json.Marshal(expected)
			c.add("state_files", CodeStructural, "state_files must be sorted lexicographically; expected order: %s", order)
		}
	}

	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			c.add("state_files", CodeReferential, "Duplicate state file: %s", p)
			continue
		}
		seen[p] = true
		checkReference(c, "state_files", baseDir, p)
	}
}

func validateEntries(c *collector, value any, baseDir string) {
	list, ok := value.([]any)
	if !ok {
		c.add("states", CodeStructural, "Field 'states' must be an array, got %s", document.TypeName(value))
		return
	}

	seen := make(map[string]bool, len(list))
	for i, item := range list {
		field := fmt.Sprintf("states[%d]", i)
		entry, isObject := item.(map[string]any)
		if !isObject {
			c.add(field, CodeStructural, "State entry %d is not an object", i)
			continue
		}

		if raw, ok := entry["state_id"]; !ok {
			c.add(field+".state_id", CodeStructural, "State entry %d missing 'state_id'", i)
		} else if id, isString := raw.(string); !isString {
			c.add(field+".state_id", CodeStructural, "State entry %d 'state_id' must be a string, got %s", i, document.TypeName(raw))
		} else {
			if v := rules.StateID(id); !v.OK {
				c.add(field+".state_id", CodeFormat, "State entry %d: %s", i, v.Message)
			}
			if seen[id] {
				c.add(field+".state_id", CodeReferential, "Duplicate state_id: %s", id)
			}
			seen[id] = true
		}

		rawPath, hasPath := entry["file_path"]
		if !hasPath {
			c.add(field+".file_path", CodeStructural, "State entry %d missing 'file_path'", i)
		}

		if raw, ok := entry["active"]; !ok {
			c.add(field+".active", CodeStructural, "State entry %d missing 'active' field", i)
		} else if _, isBool := raw.(bool); !isBool {
			c.add(field+".active", CodeStructural, "State entry %d 'active' must be boolean", i)
		}

		if hasPath {
			p, isString := rawPath.(string)
			if !isString {
				c.add(field+".file_path", CodeStructural, "State entry %d 'file_path' must be a string, got %s", i, document.TypeName(rawPath))
				continue
			}
			checkReference(c, field+".file_path", baseDir, p)
		}
	}
}

// checkReference confines rel to baseDir before looking at the disk.
func checkReference(c *collector, field, baseDir, rel string) {
	abs, err := pathguard.Resolve(baseDir, rel)
	if err != nil {
		if pathguard.IsEscape(err) {
			c.add(field, CodeReferential, "State file path escapes registry directory: %s", rel)
		} else {
			c.add(field, CodeReferential, "State file path cannot be resolved: %s: %v", rel, err)
		}
		return
	}
	if !pathguard.Exists(abs) {
		c.add(field, CodeReferential, "State file not found: %s", rel)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Entry is one state reference in a registry.
type Entry struct {
	StateID  string `json:"state_id,omitempty"`
	FilePath string `json:"file_path"`
	Active   bool   `json:"active"`

	// Field locates the entry in the registry document, e.g. states[2].
	Field string `json:"-"`
}

// Registry is a loaded registry document.
type Registry struct {
	Path    string
	BaseDir string
	Doc     map[string]any
}

// LoadRegistry reads a JSON or YAML registry document.
func LoadRegistry(path string) (*Registry, error) {
	doc, err := document.LoadObject(path)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}
	return &Registry{Path: path, BaseDir: filepath.Dir(path), Doc: doc}, nil
}

// Shape returns the registry layout.
func (r *Registry) Shape() Shape {
	return DetectShape(r.Doc)
}

// Validate runs structural validation relative to the registry directory.
func (r *Registry) Validate(rr rules.RegistryRules) RegistryReport {
	return ValidateRegistry(r.Doc, r.BaseDir, rr)
}

// Entries returns the state references in listed order. Files-shape
// registries yield one active entry per string path; entries-shape
// registries yield every object entry, with zero values for malformed
// fields.
func (r *Registry) Entries() []Entry {
	var out []Entry
	switch r.Shape() {
	case ShapeFiles:
		list, _ := r.Doc["state_files"].([]any)
		for i, item := range list {
			if p, ok := item.(string); ok {
				out = append(out, Entry{FilePath: p, Active: true, Field: fmt.Sprintf("state_files[%d]", i)})
			}
		}
	case ShapeEntries:
		list, _ := r.Doc["states"].([]any)
		for i, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			e := Entry{Field: fmt.Sprintf("states[%d].file_path", i)}
			e.StateID, _ = obj["state_id"].(string)
			e.FilePath, _ = obj["file_path"].(string)
			e.Active, _ = obj["active"].(bool)
			out = append(out, e)
		}
	}
	return out
}

// ActiveStates returns the entries marked active.
func (r *Registry) ActiveStates() []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Active {
			out = append(out, e)
		}
	}
	return out
}

// StatePaths returns every referenced file path in listed order.
func (r *Registry) StatePaths() []string {
	var out []string
	for _, e := range r.Entries() {
		if e.FilePath != "" {
			out = append(out, e.FilePath)
		}
	}
	return out
}

// Entry returns the entry with the given state id. Files-shape
// registries carry no ids and never match.
func (r *Registry) Entry(stateID string) (Entry, bool) {
	for _, e := range r.Entries() {
		if e.StateID != "" && e.StateID == stateID {
			return e, true
		}
	}
	return Entry{}, false
}

// LoadState resolves rel against the registry directory and loads the
// state record there. Escaping paths are rejected before any read.
func (r *Registry) LoadState(rel string) (map[string]any, error) {
	abs, err := pathguard.Resolve(r.BaseDir, rel)
	if err != nil {
		return nil, err
	}
	return document.LoadObject(abs)
}

// FindState returns the state record with the given id. Entries-shape
// registries are looked up by entry; files-shape registries are scanned
// in listed order. The bool is false when no record matches.
func (r *Registry) FindState(stateID string) (map[string]any, bool, error) {
	for _, e := range r.Entries() {
		if r.Shape() == ShapeEntries && e.StateID != stateID {
			continue
		}
		if e.FilePath == "" {
			continue
		}
		state, err := r.LoadState(e.FilePath)
		if err != nil {
			return nil, false, fmt.Errorf("loading %s: %w", e.FilePath, err)
		}
		if id, _ := state["state_id"].(string); id == stateID {
			return state, true, nil
		}
	}
	return nil, false, nil
}
