// Package schemadiff reports every JSON Schema violation of an instance
// in a stable order.
//
// Issues are sorted by (path, message) so that two runs over the same
// instance and schema render byte-identical reports. Paths are slash
// pointers into the instance; the root is "/".
package schemadiff

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/trizel-project/epistemic-engine/internal/document"
)

// schemaURL is the location the compiled document is registered under.
// Relative $ref values resolve against it.
const schemaURL = "schema.json"

// Issue is one schema violation.
type Issue struct {
	Path    string `json:"path"`
	Keyword string `json:"keyword"`
	Message string `json:"message"`
}

// String renders "path: message".
func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// Schema is a compiled JSON Schema.
type Schema struct {
	compiled *jsonschema.Schema
}

// Compile parses and checks a JSON schema document. A schema that is not
// itself well formed is rejected here.
func Compile(schema []byte) (*Schema, error) {
	doc, err := document.Decode(schema, false)
	if err != nil {
		return nil, fmt.Errorf("invalid schema document: %w", err)
	}
	return CompileDocument(doc)
}

// CompileDocument compiles an already decoded schema. Documents without a
// $schema keyword are read as draft 2020-12. Metaschemas for drafts 4
// through 2020-12 are bundled; any other $schema fails to compile and is
// never fetched.
func CompileDocument(doc any) (*Schema, error) {
	normalized, err := normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid schema document: %w", err)
	}

	c := newCompiler()
	if err := c.AddResource(schemaURL, normalized); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

func newCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	c.AssertFormat()
	for _, f := range Formats() {
		c.RegisterFormat(f)
	}
	return c
}

// normalize re-reads a decoded document the way the validator expects
// JSON values: json.Number numbers, map[string]any objects.
func normalize(doc any) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// LoadSchema reads and compiles a JSON or YAML schema file.
func LoadSchema(path string) (*Schema, error) {
	doc, err := document.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	return CompileDocument(doc)
}

var printer = message.NewPrinter(language.English)

// Issues returns every violation of instance, sorted by (path, message).
// A nil slice means the instance is valid.
func (s *Schema) Issues(instance any) ([]Issue, error) {
	normalized, err := normalize(instance)
	if err != nil {
		return nil, fmt.Errorf("validating instance: %w", err)
	}

	err = s.compiled.Validate(normalized)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("validating instance: %w", err)
	}

	var issues []Issue
	collect(ve, &issues)
	sortIssues(issues)
	return issues, nil
}

// collect flattens the error tree into its leaves. anyOf and oneOf failures
// are reported as one issue; their branch errors are not violations on
// their own.
func collect(ve *jsonschema.ValidationError, issues *[]Issue) {
	kw := keyword(ve)
	if len(ve.Causes) > 0 && kw != "anyOf" && kw != "oneOf" {
		for _, cause := range ve.Causes {
			collect(cause, issues)
		}
		return
	}

	if ap, ok := ve.ErrorKind.(*kind.AdditionalProperties); ok {
		sort.Strings(ap.Properties)
	}
	*issues = append(*issues, Issue{
		Path:    pointer(ve.InstanceLocation),
		Keyword: kw,
		Message: ve.ErrorKind.LocalizedString(printer),
	})
}

// keyword names the keyword that failed. A false subschema has no keyword
// of its own; it is named after the keyword holding it, e.g.
// unevaluatedProperties or prefixItems.
func keyword(ve *jsonschema.ValidationError) string {
	if path := ve.ErrorKind.KeywordPath(); len(path) > 0 {
		return path[0]
	}
	_, frag, ok := strings.Cut(ve.SchemaURL, "#")
	if !ok {
		return ""
	}
	segs := strings.Split(strings.Trim(frag, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] == "" || isIndex(segs[i]) {
			continue
		}
		if i > 0 && namesSubschemas(segs[i-1]) {
			return segs[i-1]
		}
		return segs[i]
	}
	return ""
}

func isIndex(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// namesSubschemas reports keywords whose value maps names to subschemas.
func namesSubschemas(kw string) bool {
	switch kw {
	case "properties", "patternProperties", "dependentSchemas", "$defs", "definitions":
		return true
	}
	return false
}

func sortIssues(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Path != issues[j].Path {
			return issues[i].Path < issues[j].Path
		}
		return issues[i].Message < issues[j].Message
	})
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// pointer turns an instance location into a slash pointer; the root is "/".
func pointer(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, tok := range loc {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(tok))
	}
	return b.String()
}

// AggregateError carries every issue of a failed validation.
type AggregateError struct {
	Issues []Issue
}

// Error renders a header followed by one numbered line per issue.
func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Validation failed (%d issues):", len(e.Issues))
	for i, is := range e.Issues {
		fmt.Fprintf(&b, "\n%02d. %s", i+1, is)
	}
	return b.String()
}

// IsAggregate reports whether err wraps an *AggregateError.
func IsAggregate(err error) bool {
	var ae *AggregateError
	return errors.As(err, &ae)
}

// ValidateOrError returns nil when instance satisfies schema, an
// *AggregateError listing every issue otherwise.
func ValidateOrError(instance any, schema *Schema) error {
	issues, err := schema.Issues(instance)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return &AggregateError{Issues: issues}
	}
	return nil
}

// ValidateFiles loads an instance and a schema from disk and validates one
// against the other.
func ValidateFiles(instancePath, schemaPath string) error {
	schema, err := LoadSchema(schemaPath)
	if err != nil {
		return err
	}
	instance, err := document.Load(instancePath)
	if err != nil {
		return fmt.Errorf("loading instance: %w", err)
	}
	return ValidateOrError(instance, schema)
}
