package validate

import (
	"github.com/trizel-project/epistemic-engine/internal/document"
)

// ValidateProvenance checks a provenance block: ingest_doi must equal the
// locked DOI and record_ids must be a (possibly empty) list of strings.
// Every problem is reported.
func ValidateProvenance(v any, lockedDOI string) []ValidationError {
	return validateProvenance("provenance", v, lockedDOI)
}

func validateProvenance(field string, v any, lockedDOI string) []ValidationError {
	c := &collector{}

	obj, ok := v.(map[string]any)
	if !ok {
		c.add(field, CodeStructural, "%s must be an object, got %s", field, document.TypeName(v))
		return c.errs
	}

	doiField := field + ".ingest_doi"
	idsField := field + ".record_ids"

	doi, hasDOI := obj["ingest_doi"]
	if !hasDOI {
		c.add(doiField, CodeStructural, "%s missing required field: ingest_doi", field)
	}
	ids, hasIDs := obj["record_ids"]
	if !hasIDs {
		c.add(idsField, CodeStructural, "%s missing required field: record_ids", field)
	}

	if hasDOI {
		s, isString := doi.(string)
		switch {
		case !isString:
			c.add(doiField, CodeStructural, "%s must be a string, got %s", doiField, document.TypeName(doi))
		case s != lockedDOI:
			c.add(doiField, CodeVocabulary, "%s must be '%s', got '%s'", doiField, lockedDOI, s)
		}
	}

	if hasIDs && !isStringList(ids) {
		c.add(idsField, CodeStructural, "%s must be an array of strings", idsField)
	}

	return c.errs
}

func isStringList(v any) bool {
	list, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}
