package validate

import (
	"log/slog"

	"github.com/trizel-project/epistemic-engine/internal/rules"
	"github.com/trizel-project/epistemic-engine/internal/schemadiff"
)

// Options configures ValidateAll.
type Options struct {
	Profile rules.Profile

	// Schema, when set, is applied to every state after the business rules.
	Schema *schemadiff.Schema

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Progress is called once per state, in registry order.
	Progress func(StateResult)
}

// StateResult is the outcome for one referenced state file.
type StateResult struct {
	FilePath     string             `json:"file_path"`
	StateID      string             `json:"state_id,omitempty"`
	Valid        bool               `json:"valid"`
	Errors       []ValidationError  `json:"errors,omitempty"`
	SchemaIssues []schemadiff.Issue `json:"schema_issues,omitempty"`
}

// Messages returns business-rule messages followed by schema issues
// rendered as "path: message".
func (s StateResult) Messages() []string {
	out := Result{Errors: s.Errors}.Messages()
	for _, is := range s.SchemaIssues {
		out = append(out, is.String())
	}
	return out
}

// Report aggregates a whole registry run.
type Report struct {
	Registry  string         `json:"registry"`
	Profile   string         `json:"profile"`
	Structure RegistryReport `json:"structure"`
	States    []StateResult  `json:"states"`
	Total     int            `json:"total"`
	Valid     int            `json:"valid"`
	Invalid   int            `json:"invalid"`
}

// OK reports whether the registry and every state passed.
func (r *Report) OK() bool {
	return r.Structure.Valid && r.Invalid == 0
}

// ValidateAll loads the registry at registryPath, checks its structure and
// validates every referenced state. Only a registry that cannot be read
// returns an error; unreadable state files are recorded on their result.
func ValidateAll(registryPath string, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg, err := LoadRegistry(registryPath)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Registry:  registryPath,
		Profile:   opts.Profile.Name,
		Structure: reg.Validate(opts.Profile.Registry),
	}
	logger.Debug("registry checked",
		"path", registryPath,
		"shape", report.Structure.Shape,
		"errors", len(report.Structure.Errors))

	v := New(opts.Profile)
	for _, entry := range reg.Entries() {
		res := validateEntry(reg, v, opts.Schema, entry)
		logger.Debug("state checked", "file", res.FilePath, "valid", res.Valid)

		report.States = append(report.States, res)
		report.Total++
		if res.Valid {
			report.Valid++
		} else {
			report.Invalid++
		}
		if opts.Progress != nil {
			opts.Progress(res)
		}
	}

	return report, nil
}

func validateEntry(reg *Registry, v *Validator, schema *schemadiff.Schema, entry Entry) StateResult {
	res := StateResult{FilePath: entry.FilePath, StateID: entry.StateID}
	c := &collector{}

	if entry.FilePath == "" {
		c.add(entry.Field, CodeStructural, "Missing file_path in registry")
		res.Errors = c.errs
		return res
	}

	state, err := reg.LoadState(entry.FilePath)
	if err != nil {
		c.add("", CodeReferential, "Cannot load state file: %v", err)
		res.Errors = c.errs
		return res
	}
	if id, ok := state["state_id"].(string); ok {
		res.StateID = id
	}

	res.Errors = v.ValidateState(state).Errors
	if schema != nil {
		issues, err := schema.Issues(state)
		if err != nil {
			c.add("", CodeStructural, "schema validation failed: %v", err)
			res.Errors = append(res.Errors, c.errs...)
		}
		res.SchemaIssues = issues
	}

	res.Valid = len(res.Errors) == 0 && len(res.SchemaIssues) == 0
	return res
}
