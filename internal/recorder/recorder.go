// Package recorder performs contract-only runs: it checks a run request
// against the method registry and the output contract, then writes a fixed
// set of byte-reproducible artifacts into a fresh run directory.
//
// Given the same run id, method id, input scope, commit and clock, two runs
// in separate output roots produce identical bytes.
package recorder

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/trizel-project/epistemic-engine/internal/canonical"
	"github.com/trizel-project/epistemic-engine/internal/pathguard"
)

// Layout selects the artifact set a run writes.
type Layout string

const (
	// LayoutContract writes manifest.json and summary.json with the
	// phase-3 contract key sets.
	LayoutContract Layout = "contract"
	// LayoutHashed writes summary.json and summary.md and a manifest
	// mapping each output to its SHA-256 digest.
	LayoutHashed Layout = "hashed"
)

// ParseLayout accepts "" as the default contract layout.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case "", LayoutContract:
		return LayoutContract, nil
	case LayoutHashed:
		return LayoutHashed, nil
	}
	return "", fmt.Errorf("unknown layout %q (want %s or %s)", s, LayoutContract, LayoutHashed)
}

// Artifact file names.
const (
	ManifestFile    = "manifest.json"
	SummaryFile     = "summary.json"
	SummaryMarkdown = "summary.md"
)

// Notes is the fixed summary note of a contract-only run.
const Notes = "Contract-only run. No interpretation performed."

// TimestampLayout formats creation stamps and generated run ids.
const (
	TimestampLayout = "2006-01-02T15:04:05Z"
	runIDTimeLayout = "20060102T150405Z"
)

// AllowedRoots are the only top-level directories runs may write under.
var AllowedRoots = []string{"analysis_artifacts", "releases"}

// Recorder writes run artifacts. Relative paths resolve against WorkDir.
type Recorder struct {
	WorkDir    string
	OutputRoot string
	Repository string
	Phase      string
	Layout     Layout
	Methods    *MethodRegistry
	Clock      Clock
	Commit     CommitSource
	Logger     *slog.Logger
}

// Request names one run.
type Request struct {
	// RunID is used as given unless GenerateRunID is set.
	RunID string
	// GenerateRunID derives the id from the clock and commit.
	GenerateRunID bool
	MethodID      string
	InputScope    string
}

// Output is one written artifact.
type Output struct {
	Path   string `json:"path"`
	Digest string `json:"digest"`
	Size   int    `json:"size"`
}

// Result describes a completed run.
type Result struct {
	RunID           string   `json:"run_id"`
	RunDir          string   `json:"run_dir"`
	MethodID        string   `json:"method_id"`
	Layout          Layout   `json:"layout"`
	Commit          Commit   `json:"commit"`
	InputFilesCount int      `json:"input_files_count"`
	Outputs         []Output `json:"outputs"`
}

type artifact struct {
	path string
	data []byte
}

// Run checks the request, creates the run directory and writes the
// artifacts, manifest last. Every contract check happens before the
// filesystem is touched; an existing run directory is never reused.
func (r *Recorder) Run(ctx context.Context, req Request) (*Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := r.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	layout, err := ParseLayout(string(r.Layout))
	if err != nil {
		return nil, err
	}

	commit := r.resolveCommit()
	logger.Debug("commit resolved", "sha", commit.SHA, "source", commit.Source)

	now := clock.Now()
	runID := req.RunID
	if req.GenerateRunID {
		runID = now.Format(runIDTimeLayout) + "_" + commit.Short()
	}
	if err := checkRunID(runID); err != nil {
		return nil, err
	}

	if r.Methods == nil {
		return nil, fmt.Errorf("method registry not loaded")
	}
	method, err := r.Methods.Lookup(req.MethodID)
	if err != nil {
		return nil, err
	}
	if err := checkMethodOutputs(method, layout); err != nil {
		return nil, err
	}

	scope := filepath.ToSlash(filepath.Clean(req.InputScope))
	count, err := countInputs(r.abs(req.InputScope), scope)
	if err != nil {
		return nil, err
	}

	rootAbs, err := r.outputRoot()
	if err != nil {
		return nil, err
	}
	runDir, err := pathguard.Resolve(rootAbs, runID)
	if err != nil {
		return nil, contractErrorf(ErrCodeOutputPath, "Run directory escapes output root: %s", runID)
	}

	res := &Result{
		RunID:           runID,
		RunDir:          runDir,
		MethodID:        method.MethodID,
		Layout:          layout,
		Commit:          commit,
		InputFilesCount: count,
	}

	var artifacts []artifact
	switch layout {
	case LayoutHashed:
		artifacts, err = r.hashedArtifacts(res, now)
	default:
		artifacts, err = r.contractArtifacts(res, scope)
	}
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(rootAbs, 0o755); err != nil {
		return nil, fmt.Errorf("creating output root: %w", err)
	}
	if err := os.Mkdir(runDir, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, contractErrorf(ErrCodeRunExists, "Output directory already exists: %s", filepath.ToSlash(filepath.Join(r.OutputRoot, runID)))
		}
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s interrupted: %w", runID, err)
		}
		if err := os.WriteFile(filepath.Join(runDir, a.path), a.data, 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", a.path, err)
		}
		digest := canonical.Digest(a.data)
		logger.Debug("artifact written", "run_id", runID, "path", a.path, "digest", digest)
		res.Outputs = append(res.Outputs, Output{Path: a.path, Digest: digest, Size: len(a.data)})
	}

	logger.Info("run recorded",
		"run_id", runID,
		"method_id", method.MethodID,
		"layout", layout,
		"input_files", count)
	return res, nil
}

func (r *Recorder) resolveCommit() Commit {
	src := r.Commit
	if src.RepoDir == "" {
		src.RepoDir = r.WorkDir
	}
	return src.Resolve()
}

func (r *Recorder) abs(p string) string {
	if filepath.IsAbs(p) || r.WorkDir == "" {
		return p
	}
	return filepath.Join(r.WorkDir, p)
}

// outputRoot checks that OutputRoot sits under an allowed top-level
// directory of WorkDir and returns its absolute form.
func (r *Recorder) outputRoot() (string, error) {
	root := filepath.Clean(r.OutputRoot)
	if r.OutputRoot == "" || filepath.IsAbs(root) {
		return "", contractErrorf(ErrCodeOutputPath, "Outputs must be written only under %v. Got: %s", AllowedRoots, r.OutputRoot)
	}
	first, _, _ := strings.Cut(filepath.ToSlash(root), "/")
	allowed := false
	for _, a := range AllowedRoots {
		if first == a {
			allowed = true
		}
	}
	if !allowed {
		return "", contractErrorf(ErrCodeOutputPath, "Outputs must be written only under %v. Got: %s", AllowedRoots, r.OutputRoot)
	}

	workDir := r.WorkDir
	if workDir == "" {
		workDir = "."
	}
	abs, err := pathguard.Resolve(workDir, root)
	if err != nil {
		return "", contractErrorf(ErrCodeOutputPath, "Output root escapes working directory: %s", r.OutputRoot)
	}
	return abs, nil
}

func checkRunID(id string) error {
	if id == "" {
		return contractErrorf(ErrCodeInvalidRunID, "run_id must be non-empty")
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return contractErrorf(ErrCodeInvalidRunID, "run_id must not contain whitespace: %q", id)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return contractErrorf(ErrCodeInvalidRunID, "run_id must be a single path component: %q", id)
	}
	return nil
}

func layoutFiles(layout Layout) []string {
	if layout == LayoutHashed {
		return []string{ManifestFile, SummaryFile, SummaryMarkdown}
	}
	return []string{ManifestFile, SummaryFile}
}

func checkMethodOutputs(m Method, layout Layout) error {
	produced := layoutFiles(layout)
	for _, out := range m.Outputs {
		found := false
		for _, p := range produced {
			if out == p {
				found = true
			}
		}
		if !found {
			return contractErrorf(ErrCodeMethodOutputs, "Method %s declares output %s which the %s layout does not produce", m.MethodID, out, layout)
		}
	}
	return nil
}

// countInputs counts .json files below dir in lexical walk order.
func countInputs(dir, display string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, contractErrorf(ErrCodeInputScope, "Input scope does not exist: %s", display)
	}
	if !info.IsDir() {
		return 0, contractErrorf(ErrCodeInputScope, "Input scope is not a directory: %s", display)
	}

	count := 0
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning input scope: %w", err)
	}
	return count, nil
}

func summaryDoc(res *Result) map[string]any {
	return map[string]any{
		"run_id":                res.RunID,
		"method_id":             res.MethodID,
		"analyzed_states_count": 0,
		"notes":                 Notes,
	}
}

func (r *Recorder) contractArtifacts(res *Result, scope string) ([]artifact, error) {
	summary, err := canonical.Marshal(summaryDoc(res))
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}

	outputs := layoutFiles(LayoutContract)
	sort.Strings(outputs)

	manifest, err := canonical.Marshal(map[string]any{
		"repository":        r.Repository,
		"git_commit":        res.Commit.SHA,
		"phase":             r.Phase,
		"run_id":            res.RunID,
		"method_id":         res.MethodID,
		"input_scope":       scope,
		"input_files_count": res.InputFilesCount,
		"determinism": map[string]any{
			"network":   "disabled",
			"ordering":  "lexicographic",
			"json_keys": "sorted",
		},
		"outputs": outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}

	return []artifact{
		{path: SummaryFile, data: summary},
		{path: ManifestFile, data: manifest},
	}, nil
}

func (r *Recorder) hashedArtifacts(res *Result, now time.Time) ([]artifact, error) {
	summary, err := canonical.Marshal(summaryDoc(res))
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}

	var md strings.Builder
	fmt.Fprintf(&md, "# Run %s\n\n", res.RunID)
	fmt.Fprintf(&md, "- Method: %s\n", res.MethodID)
	fmt.Fprintf(&md, "- Commit: %s\n", res.Commit.Short())
	fmt.Fprintf(&md, "- Input files: %d\n", res.InputFilesCount)
	fmt.Fprintf(&md, "- Analyzed states: 0\n\n")
	fmt.Fprintf(&md, "%s\n", Notes)

	written := []artifact{
		{path: SummaryFile, data: summary},
		{path: SummaryMarkdown, data: []byte(md.String())},
	}

	digests := make(map[string]any, len(written))
	for _, a := range written {
		digests[a.path] = canonical.Digest(a.data)
	}

	manifest, err := canonical.Marshal(map[string]any{
		"run_id":      res.RunID,
		"commit":      res.Commit.Short(),
		"created_utc": now.Format(TimestampLayout),
		"outputs":     digests,
		"determinism": map[string]any{
			"network":      "disabled",
			"ordering":     "lexicographic",
			"json_keys":    "sorted",
			"line_endings": "LF",
			"encoding":     "UTF-8",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}

	return append(written, artifact{path: ManifestFile, data: manifest}), nil
}
