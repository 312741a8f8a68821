// Package manifest implements the insertion-ordered path→commit map
// persisted as manifest.json under a core directory. It records, for every
// translated SNBT path, the commit that last wrote it, plus deletion
// tombstones and a "pending" sentinel for not-yet-committed files.
package manifest

import (
	"fmt"
	"regexp"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
)

// PendingCommit is the sentinel commit value for an entry that has been
// written but not yet committed.
const PendingCommit = "pending"

var commitHashRE = regexp.MustCompile(`^[0-9a-f]{40}$`)

// ValidCommit reports whether s is a legal manifest commit value: either
// PendingCommit or a 40-character lowercase hex string.
func ValidCommit(s string) bool {
	return s == PendingCommit || commitHashRE.MatchString(s)
}

// Entry is one record in the manifest.
type Entry struct {
	Path    string `json:"path"`
	Commit  string `json:"commit"`
	Deleted bool   `json:"deleted"`
}

// Manifest is the in-memory, insertion-ordered manifest.
// Exactly one Entry exists per Path (enforced by Put).
type Manifest struct {
	entries []Entry
	index   map[string]int // path -> index into entries
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{index: make(map[string]int)}
}

// Get returns the entry for path, if any.
func (m *Manifest) Get(path string) (Entry, bool) {
	i, ok := m.index[path]
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// Put inserts or updates the entry for path, preserving its original
// insertion position on update. commit must be PendingCommit or a
// 40-character lowercase hex string.
func (m *Manifest) Put(path, commit string, deleted bool) error {
	if !ValidCommit(commit) {
		return coreerr.New(coreerr.Contract, path, fmt.Sprintf("invalid manifest commit %q", commit), nil)
	}
	if i, ok := m.index[path]; ok {
		m.entries[i].Commit = commit
		m.entries[i].Deleted = deleted
		return nil
	}
	m.index[path] = len(m.entries)
	m.entries = append(m.entries, Entry{Path: path, Commit: commit, Deleted: deleted})
	return nil
}

// ResolvePending rewrites every PendingCommit entry to newHash, returning
// the number of entries resolved.
func (m *Manifest) ResolvePending(newHash string) (int, error) {
	if !commitHashRE.MatchString(newHash) {
		return 0, coreerr.New(coreerr.Contract, "", fmt.Sprintf("invalid resolved commit hash %q", newHash), nil)
	}
	count := 0
	for i := range m.entries {
		if m.entries[i].Commit == PendingCommit {
			m.entries[i].Commit = newHash
			count++
		}
	}
	return count, nil
}

// Entries returns a copy of the manifest's entries in insertion order.
func (m *Manifest) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// AncestryChecker delegates commit-ancestry queries to the VCS backend,
// kept as a narrow local interface so this package doesn't import
// internal/vcs.
type AncestryChecker interface {
	IsAncestor(candidate, of string) (bool, error)
	CurrentHash() (string, error)
}

// ActivePaths returns every non-tombstone path with a concrete commit.
// When the manifest itself was fetched at a commit, these are exactly the
// paths active at that commit: an amend rewrites HEAD, so a recorded hash
// is a sibling of the commit that carries the manifest, never its
// ancestor, and an ancestry walk would wrongly exclude everything.
func (m *Manifest) ActivePaths() map[string]bool {
	active := make(map[string]bool)
	for _, e := range m.entries {
		if e.Deleted || e.Commit == PendingCommit {
			continue
		}
		active[e.Path] = true
	}
	return active
}

// ActivePathsAt returns the set of paths that exist (non-tombstone) as of
// commit: those whose entry's commit is an ancestor of, or equal to, the
// requested commit, skipping tombstones. Each path has exactly one
// manifest entry (Put's invariant), so no grouping pass is needed: a path
// is active iff its entry isn't a tombstone and its commit is commit
// itself or an ancestor of it.
func (m *Manifest) ActivePathsAt(commit string, checker AncestryChecker) (map[string]bool, error) {
	active := make(map[string]bool)
	for _, e := range m.entries {
		if e.Deleted {
			continue
		}
		if e.Commit == PendingCommit {
			continue
		}
		if e.Commit == commit {
			active[e.Path] = true
			continue
		}
		ok, err := checker.IsAncestor(e.Commit, commit)
		if err != nil {
			return nil, coreerr.Wrapf(coreerr.External, err, "cannot determine ancestry for %s", e.Path)
		}
		if ok {
			active[e.Path] = true
		}
	}
	return active, nil
}
