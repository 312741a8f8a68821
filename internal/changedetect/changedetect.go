// Package changedetect classifies save-directory and core-directory
// changes into the set of actually-modified chunks, filtering out files
// the game merely re-stamped and chunks whose only difference is a
// volatile field.
package changedetect

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/NaughtyChas/GitMC/internal/anvil"
	"github.com/NaughtyChas/GitMC/internal/chunkfolder"
	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/gnbt"
	"github.com/NaughtyChas/GitMC/internal/manifest"
	"github.com/NaughtyChas/GitMC/internal/snbt"
	"github.com/NaughtyChas/GitMC/internal/vcs"
)

// ChunkCoord is a chunk's world coordinates.
type ChunkCoord struct {
	CX, CZ int
}

// RegionChange groups the chunks that changed within a single region-like
// file (region/, entities/ or poi/; all three share the Anvil shape).
type RegionChange struct {
	RelPath string // save-relative, forward-slash, e.g. "region/r.0.-1.mca"
	Chunks  []ChunkCoord
}

// Result is the change detector's output.
type Result struct {
	RegionChunks       []RegionChange
	DeletedChunks      []RegionChange
	NonRegionTranslate []string // .dat/.nbt: re-translate to SNBT
	NonRegionCopy      []string // .json/.txt: copy verbatim
}

// Empty reports whether nothing changed, letting Translate and Commit
// short-circuit as no-ops.
func (r Result) Empty() bool {
	return len(r.RegionChunks) == 0 && len(r.DeletedChunks) == 0 &&
		len(r.NonRegionTranslate) == 0 && len(r.NonRegionCopy) == 0
}

var regionLikeDirs = []string{"region", "entities", "poi"}
var nonRegionExts = map[string]bool{".dat": true, ".nbt": true, ".json": true, ".txt": true}

func isRegionLike(relPath string) bool {
	top := strings.SplitN(relPath, "/", 2)[0]
	for _, d := range regionLikeDirs {
		if top == d {
			return true
		}
	}
	return false
}

// Config bundles the collaborators the detector needs: the save path plus
// the VCS view of both the save working tree and the core working tree.
type Config struct {
	SaveDir  string
	CoreDir  string
	SaveVCS  vcs.Adapter
	CoreVCS  vcs.Adapter
	Manifest *manifest.Manifest
	// SinceMtime, if non-nil, prefilters candidate region-like files by
	// on-disk mtime (the translate-since variant).
	SinceMtime *time.Time
}

// Detect runs the change detection algorithm. A region whose chunk
// listing fails is a fatal error for that region, collected into the
// returned slice; the detector continues with the remaining regions.
func Detect(cfg Config) (Result, []error, error) {
	var result Result
	var errs []error

	status, err := cfg.SaveVCS.Status(cfg.SaveDir)
	if err != nil {
		return Result{}, nil, err
	}
	head, err := cfg.SaveVCS.CurrentHash(cfg.SaveDir)
	if err != nil {
		return Result{}, nil, err
	}

	var candidates []string
	seen := make(map[string]bool)
	addCandidate := func(p string) {
		if !seen[p] {
			seen[p] = true
			candidates = append(candidates, p)
		}
	}
	for _, p := range status.Modified {
		addCandidate(p)
	}
	for _, p := range status.Untracked {
		addCandidate(p)
	}
	for _, p := range status.Deleted {
		addCandidate(p)
	}
	sort.Strings(candidates)

	for _, relPath := range candidates {
		if !strings.HasSuffix(relPath, ".mca") {
			if isRegionLike(relPath) {
				continue // entities/poi companion files that aren't .mca are ignored
			}
			if ext := filepath.Ext(relPath); nonRegionExts[ext] {
				switch ext {
				case ".dat", ".nbt":
					result.NonRegionTranslate = append(result.NonRegionTranslate, relPath)
				case ".json", ".txt":
					result.NonRegionCopy = append(result.NonRegionCopy, relPath)
				}
			}
			continue
		}
		if !isRegionLike(relPath) {
			continue
		}

		absPath := filepath.Join(cfg.SaveDir, filepath.FromSlash(relPath))
		info, statErr := os.Stat(absPath)
		deletedOnDisk := statErr != nil && os.IsNotExist(statErr)

		if !deletedOnDisk && cfg.SinceMtime != nil && info.ModTime().Before(*cfg.SinceMtime) {
			continue
		}

		if deletedOnDisk {
			deletion, derr := allTombstones(cfg, relPath)
			if derr != nil {
				errs = append(errs, derr)
				continue
			}
			if len(deletion.Chunks) > 0 {
				result.DeletedChunks = append(result.DeletedChunks, deletion)
			}
			continue
		}

		if head != "" {
			same, cerr := unchangedSinceHead(cfg, relPath, absPath, head)
			if cerr != nil {
				errs = append(errs, cerr)
				continue
			}
			if same {
				continue // mere re-stamp, not a real content change
			}
		}

		change, deletion, rerr := diffRegion(cfg, relPath, absPath)
		if rerr != nil {
			errs = append(errs, rerr)
			continue
		}
		if len(change.Chunks) > 0 {
			result.RegionChunks = append(result.RegionChunks, change)
		}
		if len(deletion.Chunks) > 0 {
			result.DeletedChunks = append(result.DeletedChunks, deletion)
		}
	}

	return result, errs, nil
}

func unchangedSinceHead(cfg Config, relPath, absPath, head string) (bool, error) {
	current, err := os.ReadFile(absPath)
	if err != nil {
		return false, coreerr.Wrapf(coreerr.External, err, "cannot read %s", relPath)
	}
	stored, err := cfg.SaveVCS.ShowAt(cfg.SaveDir, relPath, head)
	if err != nil {
		return false, coreerr.Wrapf(coreerr.External, err, "cannot read %s at HEAD", relPath)
	}
	if stored == nil {
		return false, nil // new file, definitely not unchanged
	}
	return sha256.Sum256(current) == sha256.Sum256(stored), nil
}

// diffRegion opens the region file and classifies its present chunks
// against the manifest's recorded last-written text, plus any chunk the
// manifest remembers that is no longer present.
func diffRegion(cfg Config, relPath, absPath string) (change RegionChange, deletion RegionChange, err error) {
	change.RelPath = relPath
	deletion.RelPath = relPath

	topDir, fileName := splitTop(relPath)
	rx, rz, err := anvil.ParseRegionFilename(fileName)
	if err != nil {
		return change, deletion, err
	}
	region, err := anvil.Open(absPath)
	if err != nil {
		return change, deletion, err
	}
	defer region.Close()

	folderPrefix := topDir + "/" + chunkfolder.FolderName(rx, rz) + "/"
	present := make(map[ChunkCoord]bool)

	for _, c := range region.ListChunks() {
		present[ChunkCoord{c.CX, c.CZ}] = true
		v, ok, rerr := region.ReadChunk(c.CX, c.CZ)
		if rerr != nil {
			return change, deletion, rerr
		}
		if !ok {
			continue
		}
		newText := snbt.Serialize(stripVolatile(v), snbt.Compact)

		manifestPath := folderPrefix + chunkfolder.ChunkFileName(c.CX, c.CZ)
		oldText, found, cerr := lastCommittedText(cfg, manifestPath)
		if cerr != nil {
			return change, deletion, cerr
		}
		if found && oldText == newText {
			continue
		}
		change.Chunks = append(change.Chunks, ChunkCoord{c.CX, c.CZ})
	}

	for _, e := range cfg.Manifest.Entries() {
		if e.Deleted || !strings.HasPrefix(e.Path, folderPrefix) {
			continue
		}
		name := strings.TrimPrefix(e.Path, folderPrefix)
		cx, cz, ok := chunkfolder.ParseChunkFileName(name)
		if !ok {
			continue
		}
		if !present[ChunkCoord{cx, cz}] {
			deletion.Chunks = append(deletion.Chunks, ChunkCoord{cx, cz})
		}
	}

	return change, deletion, nil
}

// allTombstones is used when the whole region-like file was deleted on
// disk: every manifest-tracked chunk for that region becomes a tombstone.
func allTombstones(cfg Config, relPath string) (RegionChange, error) {
	deletion := RegionChange{RelPath: relPath}
	topDir, fileName := splitTop(relPath)
	rx, rz, err := anvil.ParseRegionFilename(fileName)
	if err != nil {
		return deletion, err
	}
	folderPrefix := topDir + "/" + chunkfolder.FolderName(rx, rz) + "/"
	for _, e := range cfg.Manifest.Entries() {
		if e.Deleted || !strings.HasPrefix(e.Path, folderPrefix) {
			continue
		}
		name := strings.TrimPrefix(e.Path, folderPrefix)
		cx, cz, ok := chunkfolder.ParseChunkFileName(name)
		if !ok {
			continue
		}
		deletion.Chunks = append(deletion.Chunks, ChunkCoord{cx, cz})
	}
	return deletion, nil
}

// lastCommittedText returns the Compact, volatile-stripped text of
// manifestPath as of its last write, for comparison against a freshly
// decoded chunk. A "pending" entry reads the file
// directly off the core working tree, since there is no commit yet to
// show-at. No manifest entry at all means there is nothing to compare
// against (found=false): the chunk is unconditionally a change.
func lastCommittedText(cfg Config, manifestPath string) (text string, found bool, err error) {
	entry, ok := cfg.Manifest.Get(manifestPath)
	if !ok {
		return "", false, nil
	}

	var raw []byte
	if entry.Commit == manifest.PendingCommit {
		raw, err = os.ReadFile(filepath.Join(cfg.CoreDir, filepath.FromSlash(manifestPath)))
		if err != nil {
			if os.IsNotExist(err) {
				return "", false, nil
			}
			return "", false, coreerr.Wrapf(coreerr.External, err, "cannot read pending SNBT %s", manifestPath)
		}
	} else {
		raw, err = cfg.CoreVCS.ShowAt(cfg.CoreDir, manifestPath, entry.Commit)
		if err != nil {
			return "", false, coreerr.Wrapf(coreerr.External, err, "cannot read %s at %s", manifestPath, entry.Commit)
		}
		if raw == nil {
			return "", false, nil
		}
	}

	v, perr := snbt.Parse(string(raw))
	if perr != nil {
		return "", false, coreerr.Wrapf(coreerr.Format, perr, "cannot parse last-committed SNBT %s", manifestPath)
	}
	return snbt.Serialize(stripVolatile(v), snbt.Compact), true, nil
}

// stripVolatile recursively removes any Compound member named
// "LastUpdate". The volatile set is intentionally small and closed; no
// other fields are stripped.
func stripVolatile(v gnbt.Value) gnbt.Value {
	switch v.Kind {
	case gnbt.KindCompound:
		entries := make([]gnbt.Entry, 0, len(v.Compound.Entries))
		for _, e := range v.Compound.Entries {
			if e.Name == "LastUpdate" {
				continue
			}
			entries = append(entries, gnbt.Entry{Name: e.Name, Value: stripVolatile(e.Value)})
		}
		v.Compound.Entries = entries
		return v
	case gnbt.KindList:
		elems := make([]gnbt.Value, len(v.List.Elems))
		for i, e := range v.List.Elems {
			elems[i] = stripVolatile(e)
		}
		v.List.Elems = elems
		return v
	default:
		return v
	}
}

func splitTop(relPath string) (topDir, fileName string) {
	parts := strings.SplitN(relPath, "/", 2)
	if len(parts) != 2 {
		return "", relPath
	}
	return parts[0], filepath.Base(parts[1])
}
