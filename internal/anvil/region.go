// Package anvil implements the Anvil region/chunk codec: byte-exact
// reading and writing of Minecraft Java Edition `.mca` region files,
// including external ".mcc" spillover for oversize chunks.
package anvil

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
)

const (
	sectorSize     = 4096
	headerSectors  = 2 // location table + timestamp table
	maxSectorCount = 255
)

// Region is an open `.mca` file: its two 4 KiB header tables plus a handle
// to the underlying file for lazy chunk I/O.
type Region struct {
	path   string
	rx, rz int
	f      *os.File

	locs  [1024]uint32 // (24-bit sector offset << 8) | 8-bit sector count
	times [1024]uint32
}

// RX returns the region's x coordinate (parsed from its filename).
func (r *Region) RX() int { return r.rx }

// RZ returns the region's z coordinate.
func (r *Region) RZ() int { return r.rz }

// Path returns the region file's path on disk.
func (r *Region) Path() string { return r.path }

// ParseRegionFilename extracts (rx, rz) from a region file's base name, of
// the form "r.<rx>.<rz>.mca".
func ParseRegionFilename(name string) (rx, rz int, err error) {
	if _, err := fmt.Sscanf(name, "r.%d.%d.mca", &rx, &rz); err != nil {
		return 0, 0, coreerr.New(coreerr.Format, name, "invalid region file name", err)
	}
	return rx, rz, nil
}

// RegionFilename formats the canonical "r.<rx>.<rz>.mca" region file name.
func RegionFilename(rx, rz int) string {
	return fmt.Sprintf("r.%d.%d.mca", rx, rz)
}

// LocalIndex returns the 0..1023 index of chunk (cx, cz) within its
// enclosing region's 32x32 grid: (cz mod 32)*32 + (cx mod 32).
func LocalIndex(cx, cz int) int {
	return mod32(cz)*32 + mod32(cx)
}

// RegionForChunk returns the region coordinates enclosing chunk (cx, cz):
// (cx>>5, cz>>5).
func RegionForChunk(cx, cz int) (rx, rz int) {
	return floorDiv32(cx), floorDiv32(cz)
}

func mod32(n int) int {
	m := n % 32
	if m < 0 {
		m += 32
	}
	return m
}

func floorDiv32(n int) int {
	if n >= 0 {
		return n / 32
	}
	return -((-n + 31) / 32)
}

// Open reads an existing region file's header tables.
// The file is kept open for subsequent ReadChunk/WriteChunk calls; callers
// must Close it when done.
func Open(path string) (*Region, error) {
	rx, rz, err := ParseRegionFilename(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, coreerr.New(coreerr.External, path, "cannot open region file", err)
	}
	r := &Region{path: path, rx: rx, rz: rz, f: f}
	if err := r.readTables(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Create initializes a brand-new, empty region file at path (two 4 KiB
// header sectors, all entries zero).
func Create(path string, rx, rz int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, coreerr.New(coreerr.External, path, "cannot create region file", err)
	}
	if err := f.Truncate(headerSectors * sectorSize); err != nil {
		f.Close()
		return nil, coreerr.New(coreerr.External, path, "cannot allocate header sectors", err)
	}
	r := &Region{path: path, rx: rx, rz: rz, f: f}
	if err := r.writeTables(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Close flushes nothing extra (every write already rewrites its own header
// tables) and releases the file handle.
func (r *Region) Close() error {
	return r.f.Close()
}

func (r *Region) readTables() error {
	if _, err := r.f.Seek(0, 0); err != nil {
		return coreerr.New(coreerr.Format, r.path, "cannot seek to location table", err)
	}
	if err := binary.Read(r.f, binary.BigEndian, &r.locs); err != nil {
		return coreerr.New(coreerr.Format, r.path, "cannot read location table", err)
	}
	if err := binary.Read(r.f, binary.BigEndian, &r.times); err != nil {
		return coreerr.New(coreerr.Format, r.path, "cannot read timestamp table", err)
	}
	return nil
}

func (r *Region) writeTables() error {
	if _, err := r.f.Seek(0, 0); err != nil {
		return coreerr.New(coreerr.External, r.path, "cannot seek to location table", err)
	}
	if err := binary.Write(r.f, binary.BigEndian, &r.locs); err != nil {
		return coreerr.New(coreerr.External, r.path, "cannot write location table", err)
	}
	if err := binary.Write(r.f, binary.BigEndian, &r.times); err != nil {
		return coreerr.New(coreerr.External, r.path, "cannot write timestamp table", err)
	}
	return nil
}

// externalPath returns the sibling .mcc file path for chunk (cx, cz),
// adjacent to the region file.
func (r *Region) externalPath(cx, cz int) string {
	return filepath.Join(filepath.Dir(r.path), fmt.Sprintf("c.%d.%d.mcc", cx, cz))
}

func nowTimestamp() uint32 {
	return uint32(time.Now().UTC().Unix())
}
