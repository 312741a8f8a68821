// Package orchestrator composes every other internal package into the four
// user-facing workflows: Initialize, Translate, Commit, Reconstruct. Each
// workflow is an imperative, early-return step sequence; per-file format
// and integrity errors are collected as warnings while contract and
// external errors abort the run.
package orchestrator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/NaughtyChas/GitMC/internal/atomicio"
	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/envcfg"
	"github.com/NaughtyChas/GitMC/internal/logx"
	"github.com/NaughtyChas/GitMC/internal/opmanager"
	"github.com/NaughtyChas/GitMC/internal/vcs"
)

// regionLikeDirs lists the three top-level save directories that hold
// Anvil region files.
var regionLikeDirs = []string{"region", "entities", "poi"}

// Orchestrator wires the VCS backend and operation registry together. A
// single VCS value is used for both the save repository and the core
// repository: vcs.Adapter implementations are stateless, every call naming
// its working directory, so sharing one never lets either repository's
// state leak into the other.
type Orchestrator struct {
	VCS vcs.Adapter
	Ops *opmanager.Manager
	Log logx.Logger
}

// New returns a ready-to-use Orchestrator.
func New(backend vcs.Adapter, ops *opmanager.Manager) *Orchestrator {
	return &Orchestrator{VCS: backend, Ops: ops, Log: logx.Default()}
}

// corePath returns the core directory for a save (GITMC_CORE_DIR, default
// "GitMC").
func corePath(savePath string) string {
	return filepath.Join(savePath, envcfg.CoreDirName())
}

// ensureInitialized fails with a Contract error if savePath has no core
// directory yet, the precondition every workflow but Initialize shares.
func ensureInitialized(savePath, core string) error {
	if _, err := os.Stat(filepath.Join(savePath, "level.dat")); err != nil {
		return coreerr.New(coreerr.Contract, savePath, "not a Minecraft save (missing level.dat)", nil)
	}
	if _, err := os.Stat(core); err != nil {
		return coreerr.New(coreerr.Contract, savePath, "save is not initialized", nil)
	}
	return nil
}

// writeGitignore atomically (re)writes dir/.gitignore from lines.
func writeGitignore(dir string, lines []string) error {
	content := strings.Join(lines, "\n") + "\n"
	return atomicio.WriteFile(filepath.Join(dir, ".gitignore"), []byte(content), 0o644)
}

// saveGitignore is the save repository's .gitignore: it must never track
// the core directory or the game's own session lock.
func saveGitignore(coreDirName string) []string {
	return []string{
		"/" + coreDirName + "/",
		"session.lock",
		"logs/",
		"playerdata/",
		"stats/",
		"*.tmp",
		"*.bak",
	}
}

// coreGitignore is the core repository's .gitignore: temp files, backups,
// and chunk-mode markers stay untracked. Marker files are a local
// filesystem hint that a region folder exists; the manifest and the folder
// itself already carry the information a reader needs, so the marker is
// deliberately not versioned.
var coreGitignore = []string{"*.tmp", "*.bak", "*.chunk_mode"}

// splitTop splits a forward-slash save-relative path into its top-level
// directory and the remainder.
func splitTop(relPath string) (top, rest string) {
	parts := strings.SplitN(relPath, "/", 2)
	if len(parts) != 2 {
		return "", relPath
	}
	return parts[0], parts[1]
}

// isRegionLikeTop reports whether top is one of region/entities/poi.
func isRegionLikeTop(top string) bool {
	for _, d := range regionLikeDirs {
		if d == top {
			return true
		}
	}
	return false
}

// vcsChecker adapts vcs.Adapter to manifest.AncestryChecker, bound to a
// single working directory.
type vcsChecker struct {
	backend vcs.Adapter
	dir     string
}

func (c vcsChecker) IsAncestor(candidate, of string) (bool, error) {
	return c.backend.IsAncestor(c.dir, candidate, of)
}

func (c vcsChecker) CurrentHash() (string, error) {
	return c.backend.CurrentHash(c.dir)
}

// isNothingToCommit reports whether err is the "nothing to commit" contract
// error vcs.Adapter.Commit returns for a clean index.
func isNothingToCommit(err error) bool {
	var ce *coreerr.Error
	if e, ok := err.(*coreerr.Error); ok {
		ce = e
	}
	return ce != nil && ce.Kind == coreerr.Contract && ce.Message == "nothing to commit"
}
