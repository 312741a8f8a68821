package chunkfolder

import (
	"os"
	"path/filepath"

	"github.com/NaughtyChas/GitMC/internal/anvil"
	"github.com/NaughtyChas/GitMC/internal/atomicio"
	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/snbt"
)

// Explode reads regionPath and writes one chunk_<cx>_<cz>.snbt
// (Expanded form) per present chunk under destDir/<region-folder>, plus a
// sibling chunk-mode marker file in destDir.  An
// empty region writes only region_info.snbt.  Returns the folder path
// created.
func Explode(regionPath, destDir string) (string, error) {
	rx, rz, err := anvil.ParseRegionFilename(filepath.Base(regionPath))
	if err != nil {
		return "", err
	}
	region, err := anvil.Open(regionPath)
	if err != nil {
		return "", err
	}
	defer region.Close()

	folderPath := filepath.Join(destDir, FolderName(rx, rz))
	if err := os.MkdirAll(folderPath, 0o755); err != nil {
		return "", coreerr.New(coreerr.External, folderPath, "cannot create region folder", err)
	}

	chunks := region.ListChunks()
	if len(chunks) == 0 {
		text := snbt.Serialize(regionInfo(rx, rz), snbt.Expanded)
		if err := atomicio.WriteFile(filepath.Join(folderPath, RegionInfoFileName), []byte(text), 0o644); err != nil {
			return "", err
		}
	} else {
		for _, c := range chunks {
			v, present, err := region.ReadChunk(c.CX, c.CZ)
			if err != nil {
				return "", err
			}
			if !present {
				continue
			}
			text := snbt.Serialize(v, snbt.Expanded)
			name := ChunkFileName(c.CX, c.CZ)
			if err := atomicio.WriteFile(filepath.Join(folderPath, name), []byte(text), 0o644); err != nil {
				return "", err
			}
		}
	}

	markerPath := filepath.Join(destDir, MarkerName(rx, rz))
	if err := atomicio.WriteFile(markerPath, []byte(FolderName(rx, rz)), 0o644); err != nil {
		return "", err
	}
	return folderPath, nil
}
