package chunkfolder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/NaughtyChas/GitMC/internal/anvil"
	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/gnbt"
	"github.com/NaughtyChas/GitMC/internal/snbt"
)

// Combine scans a single region folder (named r.<rx>.<rz>.mca, coordinates
// derived from its own name) and writes the corresponding .mca at
// outRegionPath. A chunk whose NBT xPos/zPos
// disagrees with its filename-derived coordinates produces a warning, not
// a fatal error — the filename wins.
func Combine(folderPath, outRegionPath string) (warnings []error, err error) {
	rx, rz, err := anvil.ParseRegionFilename(filepath.Base(folderPath))
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return nil, coreerr.New(coreerr.External, folderPath, "cannot read region folder", err)
	}

	type chunkEntry struct {
		cx, cz int
		value  gnbt.Value
	}
	var chunkEntries []chunkEntry

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if e.Name() == RegionInfoFileName {
			continue
		}
		cx, cz, ok := parseChunkFileName(e.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(folderPath, e.Name()))
		if err != nil {
			return warnings, coreerr.New(coreerr.External, e.Name(), "cannot read chunk SNBT", err)
		}
		v, err := snbt.Parse(string(data))
		if err != nil {
			return warnings, coreerr.Wrapf(coreerr.Format, err, "chunk file %s: malformed SNBT", e.Name())
		}
		if v.Kind != gnbt.KindCompound {
			return warnings, coreerr.New(coreerr.Format, e.Name(), "chunk SNBT root is not a Compound", nil)
		}
		if xPos, ok := v.Compound.Get("xPos"); ok && xPos.Kind == gnbt.KindInt && int(xPos.Int) != cx {
			warnings = append(warnings, coreerr.New(coreerr.Integrity, e.Name(), fmt.Sprintf("xPos %d in NBT disagrees with filename-derived cx %d; filename wins", xPos.Int, cx), nil))
		}
		if zPos, ok := v.Compound.Get("zPos"); ok && zPos.Kind == gnbt.KindInt && int(zPos.Int) != cz {
			warnings = append(warnings, coreerr.New(coreerr.Integrity, e.Name(), fmt.Sprintf("zPos %d in NBT disagrees with filename-derived cz %d; filename wins", zPos.Int, cz), nil))
		}
		chunkEntries = append(chunkEntries, chunkEntry{cx, cz, v})
	}

	sort.Slice(chunkEntries, func(i, j int) bool {
		if chunkEntries[i].cz != chunkEntries[j].cz {
			return chunkEntries[i].cz < chunkEntries[j].cz
		}
		return chunkEntries[i].cx < chunkEntries[j].cx
	})

	if len(chunkEntries) == 0 {
		if data, rerr := os.ReadFile(filepath.Join(folderPath, RegionInfoFileName)); rerr == nil {
			if v, perr := snbt.Parse(string(data)); perr == nil {
				if infoRX, infoRZ := regionCoordinatesOf(v, rx, rz); infoRX != rx || infoRZ != rz {
					warnings = append(warnings, coreerr.New(coreerr.Integrity, RegionInfoFileName, fmt.Sprintf(
						"RegionCoordinates (%d,%d) disagrees with folder-derived (%d,%d); folder name wins", infoRX, infoRZ, rx, rz), nil))
				}
			}
		}
	}

	region, err := anvil.Create(outRegionPath, rx, rz)
	if err != nil {
		return warnings, err
	}
	defer region.Close()

	for _, c := range chunkEntries {
		if err := region.WriteChunk(c.cx, c.cz, c.value, 0); err != nil {
			return warnings, coreerr.Wrapf(coreerr.Format, err, "chunk (%d,%d): cannot write to region", c.cx, c.cz)
		}
	}
	return warnings, nil
}
