package rules

import (
	_ "embed"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed profiles.cue
var profilesCUE string

// Profile is one versioned rule set for epistemic state records.
type Profile struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	// Required lists the fields every record must carry. Field checks run
	// in this order, so error order follows it too.
	Required []string `json:"required" yaml:"required"`

	StatusField  string   `json:"status_field" yaml:"status_field"`
	StatusValues []string `json:"status_values" yaml:"status_values"`

	NonEmptyLists []string `json:"non_empty_lists" yaml:"non_empty_lists"`
	StateIDLists  []string `json:"state_id_lists" yaml:"state_id_lists"`
	ObjectFields  []string `json:"object_fields" yaml:"object_fields"`

	// ProvenanceField is empty for generations without a provenance block.
	ProvenanceField string `json:"provenance_field" yaml:"provenance_field"`
	IngestDOI       string `json:"ingest_doi" yaml:"ingest_doi"`

	// ForbiddenFields are legacy top-level keys that must never appear.
	ForbiddenFields []string `json:"forbidden_fields" yaml:"forbidden_fields"`
	DescriptionMax  int      `json:"description_max" yaml:"description_max"`

	Registry RegistryRules `json:"registry" yaml:"registry"`
}

// RegistryRules lists the required top-level fields for each registry shape.
type RegistryRules struct {
	FilesRequired   []string `json:"files_required" yaml:"files_required"`
	EntriesRequired []string `json:"entries_required" yaml:"entries_required"`
}

// Has reports whether field appears in list.
func Has(list []string, field string) bool {
	for _, f := range list {
		if f == field {
			return true
		}
	}
	return false
}

// ProfileError reports a profile that failed to load or does not exist.
type ProfileError struct {
	Name    string
	Message string
}

func (e *ProfileError) Error() string {
	if e.Name == "" {
		return "profile: " + e.Message
	}
	return fmt.Sprintf("profile %q: %s", e.Name, e.Message)
}

// Set holds the profiles available to a run.
type Set struct {
	Default  string
	profiles map[string]Profile
	ctx      *cue.Context
	schema   cue.Value
}

// Builtin compiles the embedded profile document and returns its profiles.
func Builtin() (*Set, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(profilesCUE, cue.Filename("profiles.cue"))
	if err := root.Err(); err != nil {
		return nil, &ProfileError{Message: fmt.Sprintf("compiling built-in profiles: %v", err)}
	}
	if err := root.Validate(cue.Concrete(true)); err != nil {
		return nil, &ProfileError{Message: fmt.Sprintf("validating built-in profiles: %v", err)}
	}

	var profiles map[string]Profile
	if err := root.LookupPath(cue.ParsePath("profiles")).Decode(&profiles); err != nil {
		return nil, &ProfileError{Message: fmt.Sprintf("decoding built-in profiles: %v", err)}
	}
	def, err := root.LookupPath(cue.ParsePath("default_profile")).String()
	if err != nil {
		return nil, &ProfileError{Message: fmt.Sprintf("reading default_profile: %v", err)}
	}

	return &Set{
		Default:  def,
		profiles: profiles,
		ctx:      ctx,
		schema:   root.LookupPath(cue.ParsePath("#Profile")),
	}, nil
}

// MustBuiltin is like Builtin but panics on error.
// Use only in tests; the embedded document is fixed at build time.
func MustBuiltin() *Set {
	s, err := Builtin()
	if err != nil {
		panic(err)
	}
	return s
}

// LoadYAML adds the profiles declared in a YAML document:
//
//	default_profile: v3   # optional
//	profiles:
//	  v3:
//	    required: [state_id, timestamp]
//	    ...
//
// Every profile is unified with the #Profile schema, so defaults are
// filled in and malformed profiles are rejected before any record is
// checked. A profile with the name of an existing one replaces it.
func (s *Set) LoadYAML(data []byte) error {
	var doc struct {
		DefaultProfile string                    `yaml:"default_profile"`
		Profiles       map[string]map[string]any `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &ProfileError{Message: fmt.Sprintf("parsing profile document: %v", err)}
	}

	names := make([]string, 0, len(doc.Profiles))
	for name := range doc.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	loaded := make(map[string]Profile, len(names))
	for _, name := range names {
		fields := doc.Profiles[name]
		if fields == nil {
			fields = map[string]any{}
		}
		fields["name"] = name

		v := s.schema.Unify(s.ctx.Encode(fields))
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return &ProfileError{Name: name, Message: err.Error()}
		}
		var p Profile
		if err := v.Decode(&p); err != nil {
			return &ProfileError{Name: name, Message: fmt.Sprintf("decoding: %v", err)}
		}
		loaded[name] = p
	}

	// The set is only touched once the whole document checks out.
	if doc.DefaultProfile != "" {
		_, isLoaded := loaded[doc.DefaultProfile]
		_, isKnown := s.profiles[doc.DefaultProfile]
		if !isLoaded && !isKnown {
			return &ProfileError{Name: doc.DefaultProfile, Message: "default_profile names an unknown profile"}
		}
	}

	for name, p := range loaded {
		s.profiles[name] = p
	}
	if doc.DefaultProfile != "" {
		s.Default = doc.DefaultProfile
	}
	return nil
}

// Get returns the named profile. An empty name selects the default.
func (s *Set) Get(name string) (Profile, error) {
	if name == "" {
		name = s.Default
	}
	p, ok := s.profiles[name]
	if !ok {
		return Profile{}, &ProfileError{Name: name, Message: fmt.Sprintf("unknown profile (available: %v)", s.Names())}
	}
	return p, nil
}

// Names returns the profile names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
