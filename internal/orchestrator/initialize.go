package orchestrator

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NaughtyChas/GitMC/internal/atomicio"
	"github.com/NaughtyChas/GitMC/internal/chunkfolder"
	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/envcfg"
	"github.com/NaughtyChas/GitMC/internal/gnbt"
	"github.com/NaughtyChas/GitMC/internal/manifest"
	"github.com/NaughtyChas/GitMC/internal/opmanager"
	"github.com/NaughtyChas/GitMC/internal/snbt"
)

// Initialize turns an un-versioned save into a GitMC save: it mirrors the
// save tree into a core directory, explodes
// every region file and translates every standalone data file to SNBT, then
// stands up both repositories and records the initial manifest.
func (o *Orchestrator) Initialize(savePath string) (*opmanager.Operation, error) {
	core := corePath(savePath)
	log := o.Log.With("save", savePath)
	op, err := o.Ops.Start(savePath, opmanager.Initialize, 8)
	if err != nil {
		return nil, err
	}
	log.Infof("initializing save")
	fail := func(stepErr error) (*opmanager.Operation, error) {
		o.Ops.Complete(op, false, stepErr.Error())
		return op, stepErr
	}

	if _, err := os.Stat(filepath.Join(savePath, "level.dat")); err != nil {
		return fail(coreerr.New(coreerr.Contract, savePath, "not a Minecraft save (missing level.dat)", nil))
	}
	if _, err := os.Stat(core); err == nil {
		return fail(coreerr.New(coreerr.Contract, core, "already initialized", nil))
	}
	if _, _, ok, err := o.VCS.Identity(savePath); err != nil {
		return fail(err)
	} else if !ok {
		return fail(coreerr.New(coreerr.Contract, savePath, "identity missing", nil))
	}

	o.Ops.Update(op, 1, "copying save tree", "")
	if err := copyTree(savePath, core); err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 2, "exploding region files", "")
	if err := explodeAllRegions(core); err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 3, "translating data files", "")
	if err := translateAllData(core); err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 4, "initializing repositories", "")
	if err := o.VCS.Init(savePath); err != nil {
		return fail(err)
	}
	if err := o.VCS.Init(core); err != nil {
		return fail(err)
	}
	if err := writeGitignore(savePath, saveGitignore(envcfg.CoreDirName())); err != nil {
		return fail(err)
	}
	if err := writeGitignore(core, coreGitignore); err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 5, "building manifest", "")
	m := manifest.New()
	if err := buildInitialManifest(core, m); err != nil {
		return fail(err)
	}
	if err := m.Save(core); err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 6, "committing core repository", "")
	if _, err := o.VCS.StageAll(core); err != nil {
		return fail(err)
	}
	hash, err := o.VCS.Commit(core, "Initial import")
	if err != nil {
		return fail(err)
	}
	if _, err := m.ResolvePending(hash); err != nil {
		return fail(err)
	}
	if err := m.Save(core); err != nil {
		return fail(err)
	}
	if err := o.VCS.Stage(core, manifest.FileName); err != nil {
		return fail(err)
	}
	finalHash, err := o.VCS.Amend(core, "")
	if err != nil {
		return fail(err)
	}
	log.Infof("committed initial import as %s", finalHash)

	o.Ops.Update(op, 7, "cleaning working tree", "")
	if err := deleteManifestedFiles(core, m); err != nil {
		return fail(err)
	}

	o.Ops.Update(op, 8, "committing save repository", "")
	staged, err := o.VCS.StageAll(savePath)
	if err != nil {
		return fail(err)
	}
	if len(staged) > 0 {
		if _, err := o.VCS.Commit(savePath, "Initial import"); err != nil && !isNothingToCommit(err) {
			return fail(err)
		}
	}

	o.Ops.Complete(op, true, "initialized")
	return op, nil
}

// copyTree mirrors every file under src into dst, preserving relative
// structure, writing each file atomically.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if path == dst {
			return filepath.SkipDir
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return coreerr.New(coreerr.External, target, "cannot create directory", err)
		}
		f, err := os.Open(path)
		if err != nil {
			return coreerr.New(coreerr.External, path, "cannot open source file", err)
		}
		defer f.Close()
		return atomicio.Copy(target, f, 0o644)
	})
}

// explodeAllRegions converts every r.<rx>.<rz>.mca under core's
// region/entities/poi directories into a chunk folder, deleting the
// original binary file and any external .mcc spillover once its contents
// have been folded into the exploded SNBT.
func explodeAllRegions(core string) error {
	for _, top := range regionLikeDirs {
		dir := filepath.Join(core, top)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return coreerr.New(coreerr.External, dir, "cannot read directory", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if !strings.HasSuffix(e.Name(), ".mca") {
				continue
			}
			// The chunk folder takes the region file's own name, so it is
			// exploded into a scratch directory and moved into place once
			// the binary file is gone.
			regionPath := filepath.Join(dir, e.Name())
			scratch := filepath.Join(dir, ".explode.tmp")
			if _, err := chunkfolder.Explode(regionPath, scratch); err != nil {
				return err
			}
			if err := os.Remove(regionPath); err != nil {
				return coreerr.New(coreerr.External, regionPath, "cannot remove exploded region file", err)
			}
			exploded, _ := os.ReadDir(scratch)
			for _, x := range exploded {
				if err := os.Rename(filepath.Join(scratch, x.Name()), filepath.Join(dir, x.Name())); err != nil {
					return coreerr.New(coreerr.External, dir, "cannot move chunk folder into place", err)
				}
			}
			_ = os.Remove(scratch)
		}
		// Every .mcc in this directory was either read inline by Explode's
		// ReadChunk calls or never referenced by a still-present region;
		// either way its content now lives in the exploded SNBT.
		mccs, _ := filepath.Glob(filepath.Join(dir, "c.*.mcc"))
		for _, mcc := range mccs {
			_ = os.Remove(mcc)
		}
	}
	return nil
}

// translateAllData walks core for standalone .dat/.nbt files outside the
// region-like directories and translates each to data/<name>.snbt in
// Expanded form, deleting the original. The data/ destination matches the
// path Translate and Commit use for the same source file, so the manifest
// keeps a single entry per logical file across the save's whole history.
func translateAllData(core string) error {
	var targets []string
	err := filepath.WalkDir(core, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			rel, _ := filepath.Rel(core, path)
			if top, _ := splitTop(filepath.ToSlash(rel)); isRegionLikeTop(top) {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(d.Name()) {
		case ".dat", ".nbt":
			targets = append(targets, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(targets)

	for _, path := range targets {
		data, err := os.ReadFile(path)
		if err != nil {
			return coreerr.New(coreerr.External, path, "cannot read data file", err)
		}
		root, err := gnbt.DecodeReader(bytes.NewReader(data))
		if err != nil {
			return coreerr.Wrapf(coreerr.Format, err, "cannot decode %s", path)
		}
		text := snbt.Serialize(root.Value, snbt.Expanded)
		outPath := filepath.Join(core, "data", filepath.Base(path)+".snbt")
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return coreerr.New(coreerr.External, outPath, "cannot create data directory", err)
		}
		if err := atomicio.WriteFile(outPath, []byte(text), 0o644); err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			return coreerr.New(coreerr.External, path, "cannot remove translated data file", err)
		}
	}
	return nil
}

// buildInitialManifest enumerates every SNBT file under core and records it
// as a PendingCommit entry.
func buildInitialManifest(core string, m *manifest.Manifest) error {
	var paths []string
	err := filepath.WalkDir(core, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ".snbt" {
			return nil
		}
		rel, err := filepath.Rel(core, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return coreerr.New(coreerr.External, core, "cannot walk core directory", err)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := m.Put(p, manifest.PendingCommit, false); err != nil {
			return err
		}
	}
	return nil
}

// deleteManifestedFiles removes every non-tombstone manifest entry's file
// from disk, keeping directories. The manifest and the VCS history retain
// the content; the working tree stays lean.
func deleteManifestedFiles(core string, m *manifest.Manifest) error {
	for _, e := range m.Entries() {
		if e.Deleted {
			continue
		}
		_ = os.Remove(filepath.Join(core, filepath.FromSlash(e.Path)))
	}
	return nil
}
