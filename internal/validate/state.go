package validate

import (
	"unicode/utf8"

	"github.com/trizel-project/epistemic-engine/internal/document"
	"github.com/trizel-project/epistemic-engine/internal/rules"
)

// Validator checks epistemic state records against one rule-set profile.
type Validator struct {
	Profile rules.Profile
}

// New returns a Validator for the given profile.
func New(p rules.Profile) *Validator {
	return &Validator{Profile: p}
}

// ValidateState checks a decoded state record.
//
// Forbidden legacy keys are always reported. If any required field is
// absent the result holds only those errors; the remaining checks would
// run against missing keys. Otherwise every required field and every
// present optional field is checked and all failures are returned in
// check order.
func (v *Validator) ValidateState(state map[string]any) Result {
	c := &collector{}
	p := v.Profile

	for _, key := range p.ForbiddenFields {
		if _, ok := state[key]; ok {
			c.add(key, CodeStructural, "forbidden legacy field present: %s", key)
		}
	}

	missing := false
	for _, field := range p.Required {
		if _, ok := state[field]; !ok {
			c.add(field, CodeStructural, "Missing required field: %s", field)
			missing = true
		}
	}
	if missing {
		return c.result()
	}

	for _, field := range p.Required {
		v.checkRequired(c, field, state[field])
	}
	v.checkOptional(c, state)

	return c.result()
}

func (v *Validator) checkRequired(c *collector, field string, value any) {
	p := v.Profile

	switch {
	case field == "state_id":
		if s, ok := stringField(c, field, value); ok {
			verdict(c, field, CodeFormat, rules.StateID(s))
		}
	case field == "timestamp":
		if s, ok := stringField(c, field, value); ok {
			verdict(c, field, CodeFormat, rules.Timestamp(s))
		}
	case field == "source_doi":
		if s, ok := stringField(c, field, value); ok {
			verdict(c, field, CodeFormat, rules.DOI(field, s))
		}
	case field == p.StatusField:
		if s, ok := stringField(c, field, value); ok {
			verdict(c, field, CodeVocabulary, rules.Vocabulary(field, s, p.StatusValues))
		}
	case rules.Has(p.NonEmptyLists, field):
		checkNonEmptyStrings(c, field, value)
	case rules.Has(p.ObjectFields, field):
		if _, ok := value.(map[string]any); !ok {
			c.add(field, CodeStructural, "%s must be an object, got %s", field, document.TypeName(value))
		}
	case field == p.ProvenanceField:
		c.merge(validateProvenance(field, value, p.IngestDOI))
	case rules.Has(p.StateIDLists, field):
		checkStateIDList(c, field, value)
	}
}

func (v *Validator) checkOptional(c *collector, state map[string]any) {
	p := v.Profile

	if value, ok := state["description"]; ok && !rules.Has(p.Required, "description") {
		if s, isString := stringField(c, "description", value); isString && utf8.RuneCountInString(s) > p.DescriptionMax {
			c.add("description", CodeFormat, "description exceeds maximum length of %d characters", p.DescriptionMax)
		}
	}

	if value, ok := state["tags"]; ok && !rules.Has(p.Required, "tags") {
		list, isList := value.([]any)
		switch {
		case !isList:
			c.add("tags", CodeStructural, "tags must be an array, got %s", document.TypeName(value))
		case !isStringList(list):
			c.add("tags", CodeStructural, "All tags must be strings")
		}
	}

	if value, ok := state["related_states"]; ok && !rules.Has(p.Required, "related_states") {
		checkStateIDList(c, "related_states", value)
	}

	if value, ok := state["version"]; ok && !rules.Has(p.Required, "version") {
		if s, isString := stringField(c, "version", value); isString {
			verdict(c, "version", CodeFormat, rules.Version(s))
		}
	}
}

// stringField reports a type error when value is not a string.
func stringField(c *collector, field string, value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		c.add(field, CodeStructural, "%s must be a string, got %s", field, document.TypeName(value))
	}
	return s, ok
}

func verdict(c *collector, field string, code Code, v rules.Verdict) {
	if !v.OK {
		c.addMessage(field, code, v.Message)
	}
}

// checkNonEmptyStrings requires a non-empty list of non-empty strings.
func checkNonEmptyStrings(c *collector, field string, value any) {
	list, ok := value.([]any)
	if !ok {
		c.add(field, CodeStructural, "%s must be an array, got %s", field, document.TypeName(value))
		return
	}
	if len(list) == 0 {
		c.add(field, CodeStructural, "%s must be non-empty", field)
		return
	}
	for i, item := range list {
		if s, isString := item.(string); !isString || s == "" {
			c.add(field, CodeFormat, "%s[%d] must be a non-empty string", field, i)
		}
	}
}

// checkStateIDList requires a (possibly empty) list of valid state ids.
func checkStateIDList(c *collector, field string, value any) {
	list, ok := value.([]any)
	if !ok {
		c.add(field, CodeStructural, "%s must be an array, got %s", field, document.TypeName(value))
		return
	}
	for _, item := range list {
		id, isString := item.(string)
		if !isString {
			c.add(field, CodeStructural, "%s must contain strings, got %s", field, document.TypeName(item))
			continue
		}
		if v := rules.StateID(id); !v.OK {
			c.add(field, CodeFormat, "Invalid %s entry: %s", field, v.Message)
		}
	}
}
