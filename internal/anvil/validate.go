package anvil

import (
	"fmt"
	"sort"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
)

// ValidationResult collects the errors and warnings found by Validate,
// which never aborts on the first problem.
type ValidationResult struct {
	Errors   []error
	Warnings []error
}

// Validate checks every non-empty location entry for sector-range
// soundness (bounds, no overlap) and that every chunk's NBT parses.
// External chunks are read from their sibling .mcc file and decoded the
// same way, so a missing .mcc file is reported as an error.
func (r *Region) Validate() ValidationResult {
	var res ValidationResult

	info, err := r.f.Stat()
	if err != nil {
		res.Errors = append(res.Errors, coreerr.New(coreerr.External, r.path, "cannot stat region file", err))
		return res
	}
	fileSectors := uint32(info.Size() / sectorSize)
	if info.Size()%sectorSize != 0 {
		res.Errors = append(res.Errors, coreerr.New(coreerr.Format, r.path, "file length is not a multiple of 4 KiB", nil))
	}

	type span struct {
		cx, cz     int
		start, end uint32
	}
	var spans []span
	for i, loc := range r.locs {
		if loc == 0 {
			continue
		}
		dx, dz := i%32, i/32
		cx, cz := r.rx*32+dx, r.rz*32+dz
		offset, count := splitLocation(loc)
		if count == 0 {
			res.Errors = append(res.Errors, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("chunk (%d,%d): zero sector count with non-zero offset", cx, cz), nil))
			continue
		}
		end := offset + uint32(count)
		if end > fileSectors {
			res.Errors = append(res.Errors, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("chunk (%d,%d): sector range [%d,%d) exceeds file length (%d sectors)", cx, cz, offset, end, fileSectors), nil))
			continue
		}
		if offset < headerSectors {
			res.Errors = append(res.Errors, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("chunk (%d,%d): sector range overlaps the header tables", cx, cz), nil))
			continue
		}
		spans = append(spans, span{cx, cz, offset, end})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			res.Errors = append(res.Errors, coreerr.New(coreerr.Format, r.path, fmt.Sprintf(
				"overlapping sectors: chunk (%d,%d) [%d,%d) overlaps chunk (%d,%d) [%d,%d)",
				spans[i-1].cx, spans[i-1].cz, spans[i-1].start, spans[i-1].end,
				spans[i].cx, spans[i].cz, spans[i].start, spans[i].end), nil))
		}
	}

	for _, sp := range spans {
		_, present, err := r.ReadChunk(sp.cx, sp.cz)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		if !present {
			res.Warnings = append(res.Warnings, coreerr.New(coreerr.Integrity, r.path, fmt.Sprintf("chunk (%d,%d): location entry present but chunk reads as absent", sp.cx, sp.cz), nil))
		}
	}

	return res
}
