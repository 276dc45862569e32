package recorder

import (
	"os"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
)

// UnknownCommit is recorded when no commit can be determined.
const UnknownCommit = "unknown"

// Commit source labels, in resolution order.
const (
	SourceOverride = "override"
	SourceCI       = "ci"
	SourceGit      = "git"
	SourceNone     = "none"
)

var shaPattern = regexp.MustCompile(`^[0-9a-f]{40}([0-9a-f]{24})?$`)

// CommitSource resolves the commit recorded in run artifacts.
//
// Resolution order: the override variable, the CI variable, the
// repository's HEAD, then UnknownCommit.
type CommitSource struct {
	// OverrideEnv names the explicit override variable. Default GIT_COMMIT.
	OverrideEnv string
	// SHAEnv names the CI-provided variable. Default GITHUB_SHA.
	SHAEnv string
	// RepoDir is any directory inside the repository. Default is the
	// working directory.
	RepoDir string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Commit is a resolved commit and where it came from.
type Commit struct {
	SHA    string `json:"sha"`
	Source string `json:"source"`
}

// Short returns the abbreviated commit.
func (c Commit) Short() string {
	return ShortCommit(c.SHA)
}

// Resolve walks the sources in order and never fails.
func (s CommitSource) Resolve() Commit {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	overrideEnv := s.OverrideEnv
	if overrideEnv == "" {
		overrideEnv = "GIT_COMMIT"
	}
	shaEnv := s.SHAEnv
	if shaEnv == "" {
		shaEnv = "GITHUB_SHA"
	}

	if v := strings.TrimSpace(getenv(overrideEnv)); v != "" {
		return Commit{SHA: v, Source: SourceOverride}
	}
	if v := strings.TrimSpace(getenv(shaEnv)); v != "" {
		return Commit{SHA: v, Source: SourceCI}
	}
	if sha, err := readGitHead(s.RepoDir); err == nil {
		return Commit{SHA: sha, Source: SourceGit}
	}
	return Commit{SHA: UnknownCommit, Source: SourceNone}
}

// ShortCommit abbreviates a full hash to seven characters. Anything that
// is not a full hash is returned unchanged.
func ShortCommit(sha string) string {
	if shaPattern.MatchString(sha) {
		return sha[:7]
	}
	return sha
}

// readGitHead resolves HEAD of the repository containing repoDir. Linked
// worktrees read their branch refs from the common git directory.
func readGitHead(repoDir string) (string, error) {
	if repoDir == "" {
		repoDir = "."
	}
	repo, err := git.PlainOpenWithOptions(repoDir, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	return head.Hash().String(), nil
}
