package orchestrator

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/NaughtyChas/GitMC/internal/atomicio"
	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/manifest"
	"github.com/NaughtyChas/GitMC/internal/opmanager"
	"github.com/NaughtyChas/GitMC/internal/vcs"
)

// Reconstruct materializes every path active as of commit hash into
// outDir, preserving relative paths.
// A path whose content is missing at hash is reported in the returned
// error slice rather than aborting the rest of the reconstruction.
func (o *Orchestrator) Reconstruct(savePath, hash, outDir string) (*opmanager.Operation, []error, error) {
	core := corePath(savePath)
	if err := ensureInitialized(savePath, core); err != nil {
		return nil, nil, err
	}

	log := o.Log.With("save", savePath)
	op, err := o.Ops.Start(savePath, opmanager.Reconstruct, 2)
	if err != nil {
		return nil, nil, err
	}
	fail := func(stepErr error) (*opmanager.Operation, []error, error) {
		o.Ops.Complete(op, false, stepErr.Error())
		return op, nil, stepErr
	}

	o.Ops.Update(op, 1, "loading manifest at commit", "")
	m, atCommit, err := loadManifestAt(o.VCS, core, hash)
	if err != nil {
		return fail(err)
	}

	// A manifest fetched at hash already describes exactly the paths active
	// there; only the on-disk fallback can contain entries newer than hash
	// and needs the ancestry filter.
	var active map[string]bool
	if atCommit {
		active = m.ActivePaths()
	} else {
		checker := vcsChecker{backend: o.VCS, dir: core}
		active, err = m.ActivePathsAt(hash, checker)
		if err != nil {
			return fail(err)
		}
	}

	paths := make([]string, 0, len(active))
	for p := range active {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	o.Ops.Update(op, 2, "writing reconstructed files", "")
	var warnings []error
	for _, relPath := range paths {
		entry, _ := m.Get(relPath)
		data, showErr := o.VCS.ShowAt(core, relPath, entry.Commit)
		if showErr != nil {
			warnings = append(warnings, coreerr.Wrapf(coreerr.External, showErr, "cannot read %s at %s", relPath, entry.Commit))
			continue
		}
		if data == nil {
			warnings = append(warnings, coreerr.New(coreerr.Integrity, relPath, "missing at commit "+entry.Commit, nil))
			continue
		}
		outPath := filepath.Join(outDir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			warnings = append(warnings, coreerr.New(coreerr.External, outPath, "cannot create output directory", err))
			continue
		}
		if err := atomicio.WriteFile(outPath, data, 0o644); err != nil {
			warnings = append(warnings, err)
			continue
		}
	}

	msg := "reconstructed"
	if len(warnings) > 0 {
		log.Warnf("%d paths could not be reconstructed at %s", len(warnings), hash)
		msg = "reconstructed with missing paths"
	}
	log.Infof("reconstructed %d paths at %s into %s", len(paths)-len(warnings), hash, outDir)
	o.Ops.Complete(op, true, msg)
	return op, warnings, nil
}

// loadManifestAt fetches manifest.json as of hash via the VCS backend,
// falling back to the current on-disk manifest if it wasn't tracked at
// that commit. atCommit reports which of the two was loaded.
func loadManifestAt(backend vcs.Adapter, core, hash string) (m *manifest.Manifest, atCommit bool, err error) {
	data, err := backend.ShowAt(core, manifest.FileName, hash)
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		m, err = manifest.Load(core)
		return m, false, err
	}
	m, err = manifest.Decode(data)
	return m, true, err
}
