package schemadiff

import (
	"errors"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/trizel-project/epistemic-engine/internal/rules"
)

// Formats returns the custom formats every compiled schema asserts:
// "state-id" and "doi". Non-strings pass; type checks belong to "type".
func Formats() []*jsonschema.Format {
	return []*jsonschema.Format{
		{Name: "state-id", Validate: stateIDFormat},
		{Name: "doi", Validate: doiFormat},
	}
}

func stateIDFormat(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if verdict := rules.StateID(s); !verdict.OK {
		return errors.New("want {system}_{sequence}")
	}
	return nil
}

func doiFormat(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if verdict := rules.DOI("doi", s); !verdict.OK {
		return errors.New("want 10.NNNN/suffix")
	}
	return nil
}
