package anvil

import (
	"fmt"
	"io"
	"sort"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
)

// Compact drops every sector no location entry references and rewrites the
// region so the remaining chunks occupy one dense run immediately after
// the header, preserving their relative on-disk order. Repeated chunk
// rewrites leave orphaned sectors behind (a grown chunk is reallocated,
// its old run abandoned), and those stale sectors can hold old world data.
// Returns the number of bytes trimmed from the file.
func (r *Region) Compact() (bytesRemoved int64, err error) {
	info, err := r.f.Stat()
	if err != nil {
		return 0, coreerr.New(coreerr.External, r.path, "cannot stat region file", err)
	}
	oldSize := info.Size()

	type slot struct {
		idx    int
		offset uint32
		count  uint8
	}
	var slots []slot
	for i, loc := range r.locs {
		if loc == 0 {
			continue
		}
		offset, count := splitLocation(loc)
		slots = append(slots, slot{idx: i, offset: offset, count: count})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].offset < slots[j].offset })

	packed := make([]byte, 0, oldSize-headerSectors*sectorSize)
	next := uint32(headerSectors)
	for i, s := range slots {
		if s.offset < headerSectors || int64(s.offset+uint32(s.count))*sectorSize > oldSize {
			return 0, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("chunk slot %d references sectors outside the file", s.idx), nil)
		}
		if i > 0 {
			prev := slots[i-1]
			if prev.offset+uint32(prev.count) > s.offset {
				return 0, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("chunk slots %d and %d claim overlapping sectors", prev.idx, s.idx), nil)
			}
		}
		buf := make([]byte, int(s.count)*sectorSize)
		n, rerr := r.f.ReadAt(buf, int64(s.offset)*sectorSize)
		if rerr != nil && !(rerr == io.EOF && n == len(buf)) {
			return 0, coreerr.New(coreerr.External, r.path, fmt.Sprintf("cannot read sectors for chunk slot %d", s.idx), rerr)
		}
		packed = append(packed, buf...)
		r.locs[s.idx] = joinLocation(next, s.count)
		next += uint32(s.count)
	}

	if len(packed) > 0 {
		if _, err := r.f.WriteAt(packed, headerSectors*sectorSize); err != nil {
			return 0, coreerr.New(coreerr.External, r.path, "cannot write packed sectors", err)
		}
	}
	if err := r.writeTables(); err != nil {
		return 0, err
	}
	newSize := int64(next) * sectorSize
	if newSize >= oldSize {
		return 0, nil
	}
	if err := r.f.Truncate(newSize); err != nil {
		return 0, coreerr.New(coreerr.External, r.path, "cannot trim region file", err)
	}
	return oldSize - newSize, nil
}
