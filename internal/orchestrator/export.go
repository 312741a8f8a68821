package orchestrator

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/NaughtyChas/GitMC/internal/anvil"
	"github.com/NaughtyChas/GitMC/internal/atomicio"
	"github.com/NaughtyChas/GitMC/internal/changedetect"
	"github.com/NaughtyChas/GitMC/internal/chunkfolder"
	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/gnbt"
	"github.com/NaughtyChas/GitMC/internal/manifest"
	"github.com/NaughtyChas/GitMC/internal/snbt"
)

// exportInput bundles what runExport needs to materialize a changedetect
// result as SNBT under a core directory and upsert the manifest. Shared
// between Translate and Commit.
type exportInput struct {
	SaveDir  string
	CoreDir  string
	Manifest *manifest.Manifest
	Result   changedetect.Result
	// Skip excludes chunks a hand-edit already claimed: a chunk that appears
	// in both the save-side diff and the core-side SNBT edit set is treated
	// as core-edited and must not be re-exported. Keyed by region-like
	// save-relative path, then by chunk coordinate.
	Skip map[string]map[changedetect.ChunkCoord]bool
}

// runExport writes every changed chunk and non-region file the detector
// found to the core directory in Expanded SNBT, upserts the manifest to
// PendingCommit for each SNBT path (misc copies are not tracked), and returns the core-relative SNBT paths it
// touched (used by Commit's post-commit working-tree cleanup).
func runExport(in exportInput) (touched []string, err error) {
	for _, rc := range in.Result.RegionChunks {
		t, err := exportRegionChunks(in, rc)
		if err != nil {
			return touched, err
		}
		touched = append(touched, t...)
	}
	for _, dc := range in.Result.DeletedChunks {
		t, err := tombstoneRegionChunks(in, dc)
		if err != nil {
			return touched, err
		}
		touched = append(touched, t...)
	}
	for _, relPath := range in.Result.NonRegionTranslate {
		t, err := exportNonRegionData(in, relPath)
		if err != nil {
			return touched, err
		}
		touched = append(touched, t)
	}
	for _, relPath := range in.Result.NonRegionCopy {
		if err := copyMisc(in, relPath); err != nil {
			return touched, err
		}
	}
	return touched, nil
}

func exportRegionChunks(in exportInput, rc changedetect.RegionChange) (touched []string, err error) {
	top, fileName := splitTop(rc.RelPath)
	rx, rz, err := anvil.ParseRegionFilename(filepath.Base(fileName))
	if err != nil {
		return nil, err
	}
	skip := in.Skip[rc.RelPath]

	region, err := anvil.Open(filepath.Join(in.SaveDir, filepath.FromSlash(rc.RelPath)))
	if err != nil {
		return nil, err
	}
	defer region.Close()

	folderRel := top + "/" + chunkfolder.FolderName(rx, rz)
	folderAbs := filepath.Join(in.CoreDir, filepath.FromSlash(folderRel))
	if err := os.MkdirAll(folderAbs, 0o755); err != nil {
		return nil, coreerr.New(coreerr.External, folderAbs, "cannot create region folder", err)
	}

	for _, c := range rc.Chunks {
		if skip[c] {
			continue
		}
		v, ok, rerr := region.ReadChunk(c.CX, c.CZ)
		if rerr != nil {
			return touched, rerr
		}
		if !ok {
			continue
		}
		text := snbt.Serialize(v, snbt.Expanded)
		relPath := folderRel + "/" + chunkfolder.ChunkFileName(c.CX, c.CZ)
		if err := atomicio.WriteFile(filepath.Join(in.CoreDir, filepath.FromSlash(relPath)), []byte(text), 0o644); err != nil {
			return touched, err
		}
		if err := in.Manifest.Put(relPath, manifest.PendingCommit, false); err != nil {
			return touched, err
		}
		touched = append(touched, relPath)
	}
	return touched, nil
}

func tombstoneRegionChunks(in exportInput, dc changedetect.RegionChange) (touched []string, err error) {
	top, fileName := splitTop(dc.RelPath)
	rx, rz, err := anvil.ParseRegionFilename(filepath.Base(fileName))
	if err != nil {
		return nil, err
	}
	folderRel := top + "/" + chunkfolder.FolderName(rx, rz)
	for _, c := range dc.Chunks {
		relPath := folderRel + "/" + chunkfolder.ChunkFileName(c.CX, c.CZ)
		_ = os.Remove(filepath.Join(in.CoreDir, filepath.FromSlash(relPath)))
		if err := in.Manifest.Put(relPath, manifest.PendingCommit, true); err != nil {
			return touched, err
		}
		touched = append(touched, relPath)
	}
	return touched, nil
}

func exportNonRegionData(in exportInput, relPath string) (touched string, err error) {
	data, err := os.ReadFile(filepath.Join(in.SaveDir, filepath.FromSlash(relPath)))
	if err != nil {
		return "", coreerr.New(coreerr.External, relPath, "cannot read data file", err)
	}
	root, err := gnbt.DecodeReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	text := snbt.Serialize(root.Value, snbt.Expanded)
	outRel := "data/" + filepath.Base(relPath) + ".snbt"
	outAbs := filepath.Join(in.CoreDir, filepath.FromSlash(outRel))
	if err := os.MkdirAll(filepath.Dir(outAbs), 0o755); err != nil {
		return "", coreerr.New(coreerr.External, outAbs, "cannot create data directory", err)
	}
	if err := atomicio.WriteFile(outAbs, []byte(text), 0o644); err != nil {
		return "", err
	}
	if err := in.Manifest.Put(outRel, manifest.PendingCommit, false); err != nil {
		return "", err
	}
	return outRel, nil
}

// copyMisc copies a .json/.txt file verbatim into core/misc. These copies
// are not manifest-tracked: the manifest indexes SNBT
// projections only, and a verbatim copy is already byte-for-
// byte identical to its save-side source, so there is nothing to diff.
func copyMisc(in exportInput, relPath string) error {
	src, err := os.Open(filepath.Join(in.SaveDir, filepath.FromSlash(relPath)))
	if err != nil {
		return coreerr.New(coreerr.External, relPath, "cannot open data file", err)
	}
	defer src.Close()
	outRel := "misc/" + filepath.Base(relPath)
	outAbs := filepath.Join(in.CoreDir, filepath.FromSlash(outRel))
	if err := os.MkdirAll(filepath.Dir(outAbs), 0o755); err != nil {
		return coreerr.New(coreerr.External, outAbs, "cannot create misc directory", err)
	}
	return atomicio.Copy(outAbs, src, 0o644)
}
