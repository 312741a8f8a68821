package orchestrator

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NaughtyChas/GitMC/internal/anvil"
	"github.com/NaughtyChas/GitMC/internal/atomicio"
	"github.com/NaughtyChas/GitMC/internal/changedetect"
	"github.com/NaughtyChas/GitMC/internal/chunkfolder"
	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/manifest"
	"github.com/NaughtyChas/GitMC/internal/opmanager"
	"github.com/NaughtyChas/GitMC/internal/snbt"
	"github.com/NaughtyChas/GitMC/internal/vcs"
)

// Commit runs the same detection as Translate, but lets any chunk the user
// has hand-edited directly in the core working tree win over a save-side
// re-export, commits the result to the core repository, rebuilds any
// region the user touched, and commits the save repository if staging it
// picks up any change.
func (o *Orchestrator) Commit(savePath, message string) (*opmanager.Operation, []error, error) {
	core := corePath(savePath)
	if err := ensureInitialized(savePath, core); err != nil {
		return nil, nil, err
	}
	log := o.Log.With("save", savePath)

	op, err := o.Ops.Start(savePath, opmanager.Commit, 9)
	if err != nil {
		return nil, nil, err
	}
	fail := func(stepErr error) (*opmanager.Operation, []error, error) {
		o.Ops.Complete(op, false, stepErr.Error())
		return op, nil, stepErr
	}

	o.Ops.Update(op, 1, "loading manifest", "")
	m, err := manifest.Load(core)
	if err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 2, "detecting changes", "")
	result, warnings, err := changedetect.Detect(changedetect.Config{
		SaveDir:  savePath,
		CoreDir:  core,
		SaveVCS:  o.VCS,
		CoreVCS:  o.VCS,
		Manifest: m,
	})
	if err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 3, "finding hand-edited SNBT", "")
	coreStatus, err := o.VCS.Status(core)
	if err != nil {
		return fail(err)
	}
	edited := userEditedSNBT(coreStatus)
	skip, editedRegions := groupEditedChunks(edited)
	if len(edited) > 0 {
		log.Infof("%d hand-edited SNBT files take precedence over re-export", len(edited))
	}

	o.Ops.Update(op, 4, "exporting changed chunks", "")
	touched, err := runExport(exportInput{
		SaveDir:  savePath,
		CoreDir:  core,
		Manifest: m,
		Result:   result,
		Skip:     skip,
	})
	if err != nil {
		return fail(err)
	}
	for _, relPath := range edited {
		if err := m.Put(relPath, manifest.PendingCommit, false); err != nil {
			return fail(err)
		}
	}
	allTouched := append(append([]string{}, touched...), edited...)

	if err := m.Save(core); err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 5, "committing core repository", "")
	if _, err := o.VCS.StageAll(core); err != nil {
		return fail(err)
	}
	hash, err := o.VCS.Commit(core, message)
	if err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 6, "resolving manifest commit", "")
	if _, err := m.ResolvePending(hash); err != nil {
		return fail(err)
	}
	if err := m.Save(core); err != nil {
		return fail(err)
	}
	if err := o.VCS.Stage(core, manifest.FileName); err != nil {
		return fail(err)
	}
	if _, err := o.VCS.Amend(core, ""); err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 7, "rebuilding edited regions", "")
	if err := o.rebuildEditedRegions(savePath, core, skip, editedRegions); err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 8, "committing save repository", "")
	staged, err := o.VCS.StageAll(savePath)
	if err != nil {
		return fail(err)
	}
	if len(staged) > 0 {
		if _, err := o.VCS.Commit(savePath, message); err != nil && !isNothingToCommit(err) {
			return fail(err)
		}
	}

	o.Ops.Update(op, 9, "cleaning working tree", "")
	if err := deleteFiles(core, allTouched); err != nil {
		return fail(err)
	}

	if len(warnings) > 0 {
		log.Warnf("commit finished with %d per-file warnings", len(warnings))
	}
	log.Infof("committed %s", hash)
	o.Ops.Complete(op, true, "committed "+hash)
	return op, warnings, nil
}

// userEditedSNBT returns every modified or untracked .snbt path in the
// core working tree. A hand edit always wins over a save-side re-export.
func userEditedSNBT(status vcs.Status) []string {
	var out []string
	add := func(paths []string) {
		for _, p := range paths {
			if strings.HasSuffix(p, ".snbt") {
				out = append(out, p)
			}
		}
	}
	add(status.Modified)
	add(status.Untracked)
	sort.Strings(out)
	return out
}

// groupEditedChunks classifies edited SNBT paths into per-region chunk
// coordinates (for the export Skip map) and the set of region-relative
// paths whose .mca must be rebuilt from the edited text.
func groupEditedChunks(edited []string) (skip map[string]map[changedetect.ChunkCoord]bool, regions []string) {
	skip = make(map[string]map[changedetect.ChunkCoord]bool)
	seen := make(map[string]bool)
	for _, relPath := range edited {
		top, rest := splitTop(relPath)
		if !isRegionLikeTop(top) {
			continue
		}
		folderName, fileName := splitTop(rest)
		if fileName == "" {
			continue
		}
		rx, rz, err := anvil.ParseRegionFilename(folderName)
		if err != nil {
			continue
		}
		cx, cz, ok := chunkfolder.ParseChunkFileName(fileName)
		if !ok {
			continue
		}
		regionRel := top + "/" + anvil.RegionFilename(rx, rz)
		if skip[regionRel] == nil {
			skip[regionRel] = make(map[changedetect.ChunkCoord]bool)
		}
		skip[regionRel][changedetect.ChunkCoord{CX: cx, CZ: cz}] = true
		if !seen[regionRel] {
			seen[regionRel] = true
			regions = append(regions, regionRel)
		}
	}
	sort.Strings(regions)
	return skip, regions
}

// rebuildEditedRegions writes every hand-edited chunk back into its
// region `.mca` under the save's matching top-level directory, via an
// atomic rename. When the region file still exists, the edited chunks are
// patched into a scratch copy of it (the region folder in the lean
// working tree holds only the edited chunks, so chunks the user never
// touched survive). When the file is gone, the folder is the only source
// left and is recombined wholesale.
func (o *Orchestrator) rebuildEditedRegions(savePath, core string, skip map[string]map[changedetect.ChunkCoord]bool, regions []string) error {
	for _, regionRel := range regions {
		top, fileName := splitTop(regionRel)
		folderPath := filepath.Join(core, top, fileName)
		outPath := filepath.Join(savePath, top, fileName)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return coreerr.New(coreerr.External, outPath, "cannot create destination directory", err)
		}
		tmpPath := outPath + ".rebuild.tmp"

		if _, statErr := os.Stat(outPath); os.IsNotExist(statErr) {
			combineWarnings, cerr := chunkfolder.Combine(folderPath, tmpPath)
			for _, w := range combineWarnings {
				o.Log.Warnf("rebuilding %s: %v", regionRel, w)
			}
			if cerr != nil {
				os.Remove(tmpPath)
				return cerr
			}
			if err := atomicio.Rename(tmpPath, outPath); err != nil {
				return err
			}
			continue
		}

		region, err := openRegionScratch(outPath, tmpPath)
		if err != nil {
			return err
		}

		coords := make([]changedetect.ChunkCoord, 0, len(skip[regionRel]))
		for c := range skip[regionRel] {
			coords = append(coords, c)
		}
		sort.Slice(coords, func(i, j int) bool {
			if coords[i].CZ != coords[j].CZ {
				return coords[i].CZ < coords[j].CZ
			}
			return coords[i].CX < coords[j].CX
		})
		for _, c := range coords {
			text, rerr := os.ReadFile(filepath.Join(folderPath, chunkfolder.ChunkFileName(c.CX, c.CZ)))
			if rerr != nil {
				region.Close()
				os.Remove(tmpPath)
				return coreerr.New(coreerr.External, folderPath, "cannot read edited chunk SNBT", rerr)
			}
			v, perr := snbt.Parse(string(text))
			if perr != nil {
				region.Close()
				os.Remove(tmpPath)
				return coreerr.Wrapf(coreerr.Format, perr, "cannot parse edited chunk (%d, %d) of %s", c.CX, c.CZ, regionRel)
			}
			if werr := region.WriteChunk(c.CX, c.CZ, v, 0); werr != nil {
				region.Close()
				os.Remove(tmpPath)
				return werr
			}
		}
		if err := region.Close(); err != nil {
			os.Remove(tmpPath)
			return coreerr.New(coreerr.External, tmpPath, "cannot finish rebuilt region", err)
		}
		if err := atomicio.Rename(tmpPath, outPath); err != nil {
			return err
		}
	}
	return nil
}

// openRegionScratch copies the current region file to tmpPath and opens
// the copy for patching.
func openRegionScratch(outPath, tmpPath string) (*anvil.Region, error) {
	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, coreerr.New(coreerr.External, outPath, "cannot read region file", err)
	}
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return nil, coreerr.New(coreerr.External, tmpPath, "cannot stage region rebuild", err)
	}
	return anvil.Open(tmpPath)
}

// deleteFiles removes each core-relative path from disk, ignoring missing
// files. The manifest and the repository retain the committed content, so
// dropping the working copies keeps the tree lean.
func deleteFiles(core string, relPaths []string) error {
	for _, relPath := range relPaths {
		_ = os.Remove(filepath.Join(core, filepath.FromSlash(relPath)))
	}
	return nil
}
