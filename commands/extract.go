package commands

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/NaughtyChas/GitMC/internal/anvil"
	"github.com/NaughtyChas/GitMC/internal/gnbt"
	"github.com/NaughtyChas/GitMC/internal/logx"
	"github.com/google/subcommands"
)

var (
	// outputFilters defines the predicates used for filtering NBT data from the
	// emitted results.
	outputFilters = map[string]func(k, v string) bool{
		"all":       func(_, _ string) bool { return true },
		"user_text": containsUserText,
	}

	pagesRE = regexp.MustCompile(`.*/pages\[\d+\]$`)
	signRE  = regexp.MustCompile(`.*/text\d+$`)
)

// Extract implements the extract-strings command.
type Extract struct {
	world  string
	filter string
	invert bool
	header bool
	output string
	csv    *csv.Writer
	keep   func(k, v string) bool
}

// validOutputFilters returns a comma-separated list of valid output filter
// names for usage documentation.
func validOutputFilters() string {
	var names []string
	for k := range outputFilters {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// clean canonicalizes a string for comparisons by trimming whitespace and
// converting it to lowercase.
func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// containsUserText determines if a NBT entry likely contains user-generated
// text. This includes sign text, book contents & titles, renamed items, etc.,
// but excludes entries with empty values (empty strings, null JSON objects,
// signs with empty text).
func containsUserText(k, v string) bool {
	v = clean(v)
	if v == "" {
		return false
	}
	if v == "null" {
		return false
	}
	if v == `{"text":""}` {
		return false
	}

	k = clean(k)
	if strings.HasSuffix(k, "/display/name") {
		return true
	}
	if strings.HasSuffix(k, "/customname") {
		return true
	}
	if strings.HasSuffix(k, "/title") {
		return true
	}
	if pagesRE.MatchString(k) {
		return true
	}
	if signRE.MatchString(k) {
		return true
	}
	return false
}

// join combines two segments of an NBT path.
func join(a, b string) string {
	if len(b) == 0 {
		return a
	}
	if b[0] == '[' {
		return a + b
	}
	return a + "/" + b
}

// findStrings walks a decoded NBT tree, calling cb with the path and value of
// every String tag it finds. See https://minecraft.gamepedia.com/NBT_format.
func findStrings(v gnbt.Value, cb func(path, value string)) {
	switch v.Kind {
	case gnbt.KindString:
		cb("", v.Str)
	case gnbt.KindCompound:
		for _, e := range v.Compound.Entries {
			findStrings(e.Value, func(path, value string) {
				cb(join(e.Name, path), value)
			})
		}
	case gnbt.KindList:
		for i, elem := range v.List.Elems {
			findStrings(elem, func(path, value string) {
				cb(join(fmt.Sprintf("[%d]", i), path), value)
			})
		}
	}
}

// readWorld walks every region-like directory under a save, reading every
// chunk's NBT tree via the anvil codec.
func (e *Extract) readWorld(path string) error {
	if err := e.readDimension(0, filepath.Join(path, "region")); err != nil {
		return err
	}
	if err := e.readDimension(-1, filepath.Join(path, "DIM-1", "region")); err != nil {
		return err
	}
	if err := e.readDimension(1, filepath.Join(path, "DIM1", "region")); err != nil {
		return err
	}
	return nil
}

// readDimension processes every *.mca in a single dimension's region
// directory. dim identifies which dimension is being processed (0 for the
// overworld, -1 for the nether, 1 for the end).
func (e *Extract) readDimension(dim int, path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot read contents of directory %q: %v", path, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mca") {
			continue
		}
		regionPath := filepath.Join(path, entry.Name())
		rx, rz, err := anvil.ParseRegionFilename(entry.Name())
		if err != nil {
			return err
		}
		if err := e.readRegion(dim, rx, rz, regionPath); err != nil {
			return err
		}
	}
	return nil
}

// readRegion opens a single region file and extracts strings from every
// present chunk.
func (e *Extract) readRegion(dim, rx, rz int, path string) error {
	r, err := anvil.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open region file %q: %v", path, err)
	}
	defer r.Close()

	for cz := 0; cz < 32; cz++ {
		for cx := 0; cx < 32; cx++ {
			if !r.Present(cx, cz) {
				continue
			}
			root, ok, err := r.ReadChunk(cx, cz)
			if err != nil {
				return fmt.Errorf("cannot read chunk (%d,%d) in region file %q: %v", cx, cz, path, err)
			}
			if !ok {
				continue
			}
			findStrings(root, func(nbtPath, value string) {
				if !e.keep(nbtPath, value) {
					return
				}
				e.csv.Write([]string{
					strconv.Itoa(dim),
					strconv.Itoa(rx*32 + cx),
					strconv.Itoa(rz*32 + cz),
					nbtPath,
					value,
				})
			})
			e.csv.Flush()
			if err := e.csv.Error(); err != nil {
				return fmt.Errorf("cannot write output: %v", err)
			}
		}
	}
	return nil
}

func (*Extract) Name() string {
	return "extract-strings"
}

func (*Extract) Synopsis() string {
	return "Extract strings from a Minecraft world."
}

func (*Extract) Usage() string {
	return `extract-strings [<flags>...] <world>
Extract strings from a Minecraft world.

Extract strings from the Minecraft world located in the directory <world>.
This should be the directory containing level.dat. The strings will be output
in CSV format with the following columns:

  dimension - The dimension in which the string is located (0=overworld,
              -1=nether, 1=the end).
  chunk_x   - The x-coordinate of the chunk containing the string.
  chunk_z   - The z-coordinate of the chunk containing the string.
  nbt_path  - The path within the NBT data tree where the string is located.
  value     - The string.

`
}

func (e *Extract) SetFlags(f *flag.FlagSet) {
	f.StringVar(&e.filter, "filter", "all", fmt.Sprintf("Only include entries matching a filter (one of: %s)", validOutputFilters()))
	f.BoolVar(&e.invert, "invert", false, "Output entries *not* matching the filter")
	f.BoolVar(&e.header, "header", true, "Include header row in the output")
	f.StringVar(&e.output, "output", "", "File to write results to (if empty, results are written to stdout)")
}

func (e *Extract) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		logx.Errorf("<world> is required.")
		return subcommands.ExitUsageError
	}
	if f.NArg() > 1 {
		logx.Error("Extra positional arguments found.")
		return subcommands.ExitUsageError
	}
	e.world = f.Arg(0)
	of, ok := outputFilters[e.filter]
	if !ok {
		logx.Errorf("Invalid filter (%q), must be one of %s.", e.filter, validOutputFilters())
		return subcommands.ExitUsageError
	}
	if e.invert {
		orig := of
		of = func(k, v string) bool {
			return !orig(k, v)
		}
	}
	w := os.Stdout
	if e.output != "" {
		out, err := os.Create(e.output)
		if err != nil {
			logx.Errorf("Cannot open file %q for writing: %v", e.output, err)
			return subcommands.ExitFailure
		}
		defer out.Close()
		w = out
	}
	e.csv = csv.NewWriter(w)
	e.keep = of
	if e.header {
		e.csv.Write([]string{"dimension", "chunk_x", "chunk_z", "nbt_path", "value"})
	}
	if err := e.readWorld(e.world); err != nil {
		logx.Errorf("Cannot read world: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
