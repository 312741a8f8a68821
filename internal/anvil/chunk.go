package anvil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/gnbt"
)

// ChunkInfo describes one non-empty entry in a region's location table.
type ChunkInfo struct {
	CX, CZ       int
	SectorOffset uint32
	SectorCount  uint8
	Timestamp    uint32
	External     bool
}

// Present reports whether chunk (cx, cz) has a non-empty location entry.
func (r *Region) Present(cx, cz int) bool {
	return r.locs[LocalIndex(cx, cz)] != 0
}

// ListChunks enumerates every non-empty entry in the region.
func (r *Region) ListChunks() []ChunkInfo {
	var out []ChunkInfo
	for i, loc := range r.locs {
		if loc == 0 {
			continue
		}
		dx, dz := i%32, i/32
		cx := r.rx*32 + dx
		cz := r.rz*32 + dz
		offset, count := splitLocation(loc)
		out = append(out, ChunkInfo{
			CX: cx, CZ: cz,
			SectorOffset: offset,
			SectorCount:  count,
			Timestamp:    r.times[i],
		})
	}
	return out
}

// ListChunksDetailed is ListChunks plus each chunk's External flag, read
// from its 5-byte payload header; the compression mode is not reported.
// A chunk whose header
// can't be read is reported via errs rather than aborting the listing.
func (r *Region) ListChunksDetailed() (infos []ChunkInfo, errs []error) {
	for _, info := range r.ListChunks() {
		if _, err := r.f.Seek(int64(info.SectorOffset)*sectorSize, 0); err != nil {
			errs = append(errs, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("chunk (%d,%d): cannot seek to header", info.CX, info.CZ), err))
			infos = append(infos, info)
			continue
		}
		var length int32
		var tag byte
		if err := binary.Read(r.f, binary.BigEndian, &length); err != nil {
			errs = append(errs, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("chunk (%d,%d): cannot read header", info.CX, info.CZ), err))
			infos = append(infos, info)
			continue
		}
		if err := binary.Read(r.f, binary.BigEndian, &tag); err != nil {
			errs = append(errs, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("chunk (%d,%d): cannot read header", info.CX, info.CZ), err))
			infos = append(infos, info)
			continue
		}
		info.External = tag&0x80 != 0
		infos = append(infos, info)
	}
	return infos, errs
}

func splitLocation(loc uint32) (offset uint32, count uint8) {
	return (loc & 0xffffff00) >> 8, uint8(loc & 0xff)
}

func joinLocation(offset uint32, count uint8) uint32 {
	return (offset << 8) | uint32(count)
}

// ReadChunk decodes the NBT tree for chunk (cx, cz), resolving external
// (.mcc) spillover as needed.  It returns
// (zero Value, false, nil) if the chunk is absent.
func (r *Region) ReadChunk(cx, cz int) (gnbt.Value, bool, error) {
	idx := LocalIndex(cx, cz)
	loc := r.locs[idx]
	if loc == 0 {
		return gnbt.Value{}, false, nil
	}
	offset, count := splitLocation(loc)
	if count == 0 {
		return gnbt.Value{}, false, nil
	}

	if _, err := r.f.Seek(int64(offset)*sectorSize, 0); err != nil {
		return gnbt.Value{}, false, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("cannot seek to chunk (%d,%d)", cx, cz), err)
	}
	var length int32
	if err := binary.Read(r.f, binary.BigEndian, &length); err != nil {
		return gnbt.Value{}, false, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("cannot read length for chunk (%d,%d)", cx, cz), err)
	}
	var tag byte
	if err := binary.Read(r.f, binary.BigEndian, &tag); err != nil {
		return gnbt.Value{}, false, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("cannot read compression tag for chunk (%d,%d)", cx, cz), err)
	}

	external := tag&0x80 != 0
	mode := gnbt.CompressionMode(tag &^ 0x80)

	var compressed []byte
	if external {
		data, err := os.ReadFile(r.externalPath(cx, cz))
		if err != nil {
			return gnbt.Value{}, false, coreerr.New(coreerr.Integrity, r.externalPath(cx, cz), fmt.Sprintf("missing external chunk data for (%d,%d)", cx, cz), err)
		}
		compressed = data
	} else {
		if length < 1 {
			return gnbt.Value{}, false, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("invalid chunk length for (%d,%d)", cx, cz), nil)
		}
		buf := make([]byte, length-1)
		if _, err := io.ReadFull(r.f, buf); err != nil {
			return gnbt.Value{}, false, coreerr.New(coreerr.Format, r.path, fmt.Sprintf("truncated sector data for chunk (%d,%d)", cx, cz), err)
		}
		compressed = buf
	}

	rc, err := gnbt.DecompressReader(bytes.NewReader(compressed), mode)
	if err != nil {
		return gnbt.Value{}, false, coreerr.Wrapf(coreerr.Integrity, err, "chunk (%d,%d): decompression failed", cx, cz)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return gnbt.Value{}, false, coreerr.Wrapf(coreerr.Integrity, err, "chunk (%d,%d): decompression failed", cx, cz)
	}
	v, err := gnbt.DecodeRawCompound(raw)
	if err != nil {
		return gnbt.Value{}, false, coreerr.Wrapf(coreerr.Format, err, "chunk (%d,%d): malformed NBT", cx, cz)
	}
	return v, true, nil
}

// externalSizeLimit is the largest chunk record (compressed payload plus
// its 5-byte length/tag header) that may be packed inline: 255 sectors.
const externalSizeLimit = maxSectorCount * sectorSize

// WriteChunk encodes v and writes it into chunk slot (cx, cz), allocating
// sectors via a first-fit freelist and spilling to an external .mcc file
// if the compressed payload doesn't fit inline.
// A zero mode defaults to zlib, the usual choice for chunk payloads.
func (r *Region) WriteChunk(cx, cz int, v gnbt.Value, mode gnbt.CompressionMode) error {
	if mode == 0 {
		mode = gnbt.CompressionZlib
	}
	raw, err := gnbt.EncodeRawCompound(v)
	if err != nil {
		return coreerr.Wrapf(coreerr.Format, err, "chunk (%d,%d): cannot encode NBT", cx, cz)
	}
	var compBuf bytes.Buffer
	cw, err := gnbt.CompressWriter(&compBuf, mode)
	if err != nil {
		return err
	}
	if _, err := cw.Write(raw); err != nil {
		return coreerr.New(coreerr.Integrity, r.path, fmt.Sprintf("chunk (%d,%d): compression failed", cx, cz), err)
	}
	if err := cw.Close(); err != nil {
		return coreerr.New(coreerr.Integrity, r.path, fmt.Sprintf("chunk (%d,%d): compression failed", cx, cz), err)
	}
	compressed := compBuf.Bytes()

	idx := LocalIndex(cx, cz)
	var header [5]byte
	var payload []byte
	var tag byte

	if len(compressed)+5 <= externalSizeLimit {
		tag = byte(mode)
		payload = compressed
	} else {
		tag = byte(mode) | 0x80
		if err := os.WriteFile(r.externalPath(cx, cz), compressed, 0o644); err != nil {
			return coreerr.New(coreerr.External, r.externalPath(cx, cz), fmt.Sprintf("chunk (%d,%d): cannot write external chunk file", cx, cz), err)
		}
		payload = nil
	}
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)+1))
	header[4] = tag

	needSectors := ceilSectors(len(payload) + 5)
	if needSectors > maxSectorCount {
		return coreerr.New(coreerr.Contract, r.path, fmt.Sprintf("chunk (%d,%d): %d sectors exceeds the 255-sector limit", cx, cz, needSectors), nil)
	}

	start, fileSectors, err := r.allocate(idx, needSectors)
	if err != nil {
		return err
	}

	if _, err := r.f.Seek(int64(start)*sectorSize, 0); err != nil {
		return coreerr.New(coreerr.External, r.path, "cannot seek to allocated sector", err)
	}
	if _, err := r.f.Write(header[:]); err != nil {
		return coreerr.New(coreerr.External, r.path, "cannot write chunk header", err)
	}
	if len(payload) > 0 {
		if _, err := r.f.Write(payload); err != nil {
			return coreerr.New(coreerr.External, r.path, "cannot write chunk payload", err)
		}
	}
	written := len(payload) + 5
	if pad := needSectors*sectorSize - written; pad > 0 {
		if _, err := r.f.Write(make([]byte, pad)); err != nil {
			return coreerr.New(coreerr.External, r.path, "cannot write sector padding", err)
		}
	}

	r.locs[idx] = joinLocation(start, uint8(needSectors))
	r.times[idx] = nowTimestamp()
	if err := r.writeTables(); err != nil {
		return err
	}

	requiredLen := int64(fileSectors) * sectorSize
	info, err := r.f.Stat()
	if err != nil {
		return coreerr.New(coreerr.External, r.path, "cannot stat region file", err)
	}
	if info.Size() != requiredLen {
		if err := r.f.Truncate(requiredLen); err != nil {
			return coreerr.New(coreerr.External, r.path, "cannot pad region file to sector boundary", err)
		}
	}
	return nil
}

func ceilSectors(n int) int {
	return (n + sectorSize - 1) / sectorSize
}

// allocate finds a first-fit run of need free sectors, excluding the
// sectors currently held by localIdx itself (they are being replaced), and
// returns the chosen start sector plus the resulting minimum file size in
// sectors.
func (r *Region) allocate(localIdx, need int) (start uint32, fileSectors uint32, err error) {
	type run struct{ start, end uint32 } // [start, end)
	var occupied []run
	maxEnd := uint32(headerSectors)
	for i, loc := range r.locs {
		if loc == 0 || i == localIdx {
			continue
		}
		offset, count := splitLocation(loc)
		end := offset + uint32(count)
		occupied = append(occupied, run{offset, end})
		if end > maxEnd {
			maxEnd = end
		}
	}
	sort.Slice(occupied, func(i, j int) bool { return occupied[i].start < occupied[j].start })

	cursor := uint32(headerSectors)
	for _, o := range occupied {
		if o.start > cursor && o.start-cursor >= uint32(need) {
			return cursor, maxOf(maxEnd, cursor+uint32(need)), nil
		}
		if o.end > cursor {
			cursor = o.end
		}
	}
	return cursor, maxOf(maxEnd, cursor+uint32(need)), nil
}

func maxOf(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
