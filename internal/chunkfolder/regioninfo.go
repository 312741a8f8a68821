package chunkfolder

import "github.com/NaughtyChas/GitMC/internal/gnbt"

// regionInfo builds the NBT tree written to region_info.snbt for an empty
// region. RegionCoordinates is projected as a two-element IntArray
// [rx, rz], matching the flat-tuple shape coordinates take everywhere else.
func regionInfo(rx, rz int) gnbt.Value {
	return gnbt.NewCompound(
		gnbt.Entry{Name: "RegionCoordinates", Value: gnbt.NewIntArray([]int32{int32(rx), int32(rz)})},
		gnbt.Entry{Name: "IsEmpty", Value: gnbt.Bool(true)},
		gnbt.Entry{Name: "ChunkCount", Value: gnbt.NewInt(0)},
	)
}

// regionCoordinatesOf extracts (rx, rz) from a parsed region_info value,
// falling back to the folder-name-derived coordinates if the field is
// missing or malformed (filenames are always authoritative).
func regionCoordinatesOf(v gnbt.Value, fallbackRX, fallbackRZ int) (rx, rz int) {
	coords, ok := v.Compound.Get("RegionCoordinates")
	if !ok || coords.Kind != gnbt.KindIntArray || len(coords.IntArray) != 2 {
		return fallbackRX, fallbackRZ
	}
	return int(coords.IntArray[0]), int(coords.IntArray[1])
}
