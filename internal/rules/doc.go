// Package rules holds the single-field checks for epistemic state records
// and the versioned rule-set profiles that select which fields are
// required and which status vocabulary applies.
//
// Field checks take one value and return a Verdict. They never fail with an
// error; callers collect failing verdicts and report them together.
//
// Profiles are declared in an embedded CUE document. The same #Profile
// schema validates profiles loaded from YAML at runtime.
package rules
