// Package vcs defines the narrow, stable surface the core depends on for
// version control. The core never talks to a Git-compatible backend
// directly; every call site goes through this interface, and a caller
// always names the working directory explicitly, so the save repo and the
// core repo can never be confused with one another.
package vcs

// Status is the narrow working-tree status the adapter exposes. Paths
// are forward-slash, relative to the working directory passed to Status.
type Status struct {
	Modified  []string
	Untracked []string
	Deleted   []string
	Staged    []string
	Branch    string
	Ahead     int
	Behind    int
}

// Dirty reports whether the working tree has anything staged.
func (s Status) Dirty() bool {
	return len(s.Staged) > 0
}

// Changed reports whether the working tree has any modification at all,
// staged or not.
func (s Status) Changed() bool {
	return len(s.Modified)+len(s.Untracked)+len(s.Deleted)+len(s.Staged) > 0
}

// Adapter is the version-control surface the core drives. Every method takes an
// explicit working-directory path; implementations must not cache state
// across directories.
type Adapter interface {
	// Init creates a fresh repository at dir.
	Init(dir string) error
	// Identity reports whether a commit author identity is configured,
	// consulting the same resolution order `git commit` itself would
	// (local repo config overriding global config) so "identity missing"
	// reflects what a real commit would do.
	Identity(dir string) (name, email string, ok bool, err error)
	// Status reports the working tree's status.
	Status(dir string) (Status, error)
	// Stage stages a single path. Idempotent.
	Stage(dir, path string) error
	// StageAll stages every pending change and returns the set of newly
	// staged paths.
	StageAll(dir string) ([]string, error)
	// Unstage unstages path. Fails if path is not currently staged.
	Unstage(dir, path string) error
	// Commit commits the staged index, returning the new commit hash.
	// Fails with a "nothing to commit" contract error if the index is
	// clean.
	Commit(dir, message string) (string, error)
	// Amend rewrites HEAD with the currently staged index, reusing
	// message and parent authorship from the amended commit if message
	// is empty.
	Amend(dir, message string) (string, error)
	// CurrentHash returns HEAD's commit hash, or "" for an unborn branch.
	CurrentHash(dir string) (string, error)
	// ShowAt returns path's content as of hash, or nil if path did not
	// exist at that commit.
	ShowAt(dir, path, hash string) ([]byte, error)
	// IsAncestor reports whether ancestor is an ancestor of (or equal to)
	// descendant.
	IsAncestor(dir, ancestor, descendant string) (bool, error)
}
