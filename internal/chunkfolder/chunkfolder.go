// Package chunkfolder implements the explode/recombine layer between a
// binary `.mca` region file and its per-chunk SNBT projection: one
// chunk_<cx>_<cz>.snbt per present chunk under a folder named after the
// region, recombinable back into a region file holding the same chunks.
// A recombined file gets fresh timestamps and its own sector layout, so it
// is not byte-identical to the source region.
package chunkfolder

import (
	"fmt"
	"regexp"

	"github.com/NaughtyChas/GitMC/internal/anvil"
)

// FolderName is the on-disk directory name for a region's chunk folder.
// The ".mca" suffix is part of the name and carries no
// semantic meaning beyond pairing the folder with its source region file.
func FolderName(rx, rz int) string {
	return anvil.RegionFilename(rx, rz)
}

// MarkerName is the sibling marker file recording where a region's chunk
// folder lives.
func MarkerName(rx, rz int) string {
	return FolderName(rx, rz) + ".snbt.chunk_mode"
}

// ChunkFileName is the per-chunk SNBT file name within a region folder.
func ChunkFileName(cx, cz int) string {
	return fmt.Sprintf("chunk_%d_%d.snbt", cx, cz)
}

// RegionInfoFileName is the marker written for an empty region.
const RegionInfoFileName = "region_info.snbt"

var chunkFileRE = regexp.MustCompile(`^chunk_(-?\d+)_(-?\d+)\.snbt$`)

// parseChunkFileName extracts (cx, cz) from a chunk_<cx>_<cz>.snbt file
// name, returning ok=false for anything else (non-chunk file in the
// folder, e.g. region_info.snbt).
func parseChunkFileName(name string) (cx, cz int, ok bool) {
	m := chunkFileRE.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	fmt.Sscanf(m[1], "%d", &cx)
	fmt.Sscanf(m[2], "%d", &cz)
	return cx, cz, true
}

// ParseChunkFileName is the exported form of parseChunkFileName, used by
// internal/changedetect to map a manifest path back to chunk coordinates.
func ParseChunkFileName(name string) (cx, cz int, ok bool) {
	return parseChunkFileName(name)
}
