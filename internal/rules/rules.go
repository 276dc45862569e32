package rules

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Patterns for single-field checks. All are anchored on both ends; a
// value must match in full.
const (
	StateIDPattern   = `^[a-z0-9_]+_[0-9]{3,}$`
	TimestampPattern = `^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}Z$`
	DOIPattern       = `^10\.[0-9]{4,}(\.[0-9]+)*/\S+$`
	VersionPattern   = `^[0-9]+\.[0-9]+\.[0-9]+$`

	// TimestampLayout is the only accepted timestamp layout (UTC, second precision).
	TimestampLayout = "2006-01-02T15:04:05Z"
)

var (
	stateIDRe   = regexp.MustCompile(StateIDPattern)
	timestampRe = regexp.MustCompile(TimestampPattern)
	doiRe       = regexp.MustCompile(DOIPattern)
	versionRe   = regexp.MustCompile(VersionPattern)
)

// Verdict is the outcome of a single-field check. Checks never panic and
// never return an error; a failing check carries a human-readable Message.
type Verdict struct {
	OK      bool
	Message string
}

func pass() Verdict {
	return Verdict{OK: true}
}

func fail(format string, args ...any) Verdict {
	return Verdict{Message: fmt.Sprintf(format, args...)}
}

// StateID checks the {system}_{sequence} identifier form, e.g. 3i_atlas_001.
func StateID(id string) Verdict {
	if !stateIDRe.MatchString(id) {
		return fail("state_id '%s' does not match pattern: %s", id, StateIDPattern)
	}
	return pass()
}

// Timestamp checks YYYY-MM-DDTHH:MM:SSZ and that the value names a real
// calendar instant. The shape regex alone accepts 2025-13-40T25:61:61Z.
func Timestamp(ts string) Verdict {
	if !timestampRe.MatchString(ts) {
		return fail("timestamp '%s' does not match ISO 8601 UTC format", ts)
	}
	if _, err := time.Parse(TimestampLayout, ts); err != nil {
		return fail("Invalid datetime: timestamp '%s': %s", ts, parseReason(err))
	}
	return pass()
}

// parseReason trims time.ParseError down to its range complaint.
func parseReason(err error) string {
	var pe *time.ParseError
	if errors.As(err, &pe) && pe.Message != "" {
		return strings.TrimPrefix(pe.Message, ": ")
	}
	return err.Error()
}

// DOI checks the 10.NNNN/suffix form. field names the record field being
// checked so the message points at it (source_doi, provenance.ingest_doi).
// The suffix may not contain any Unicode whitespace; RE2's \S only covers
// ASCII spaces.
func DOI(field, doi string) Verdict {
	if !doiRe.MatchString(doi) || strings.IndexFunc(doi, isDOISpace) >= 0 {
		return fail("%s '%s' does not match DOI format pattern", field, doi)
	}
	return pass()
}

// isDOISpace reports Unicode whitespace plus the ASCII information
// separators, which Unicode-aware \s also treats as space.
func isDOISpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// Vocabulary checks exact membership in a closed value set.
func Vocabulary(field, value string, allowed []string) Verdict {
	for _, a := range allowed {
		if a == value {
			return pass()
		}
	}
	sorted := append([]string(nil), allowed...)
	sort.Strings(sorted)
	return fail("%s '%s' not in allowed values: [%s]", field, value, strings.Join(sorted, ", "))
}

// Version checks a plain X.Y.Z semantic version. Prerelease and build
// suffixes are rejected.
func Version(v string) Verdict {
	if !versionRe.MatchString(v) {
		return fail("version '%s' does not match semantic version format (X.Y.Z)", v)
	}
	return pass()
}
