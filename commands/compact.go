package commands

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/NaughtyChas/GitMC/internal/anvil"
	"github.com/NaughtyChas/GitMC/internal/logx"
	"github.com/google/subcommands"
)

// Compact implements the compact command.
type Compact struct {
	skipConfirm bool
}

func (*Compact) Name() string {
	return "compact"
}

func (*Compact) Synopsis() string {
	return "Compact removes unused sectors from a Minecraft world."
}

func (*Compact) Usage() string {
	return `compact <world>
Compact removes unused sectors from a Minecraft world.

WARNING: This command will modify your world in-place. You should make a backup
of your world before proceeding.

Compact removes unused 4kB sectors from a Minecraft world. The region files for
a world contain 4kB sectors. The first 4kB of the file contains a lookup table
indicating in which sectors to find the data for each chunk. It is therefore
possible for there to be sectors that are not referenced in the lookup table.
These orphaned sectors could contain stale data. The compact command removes
this data and shrinks the region files accordingly. See
https://minecraft.gamepedia.com/wiki/Region_file_format.

`
}

func (c *Compact) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.skipConfirm, "skip_confirmation", false, "Do not ask for confirmation before proceeding.")
}

func (c *Compact) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		logx.Errorf("<world> is required.")
		return subcommands.ExitUsageError
	}
	if f.NArg() > 1 {
		logx.Error("Extra positional arguments found.")
		return subcommands.ExitUsageError
	}
	if !c.skipConfirm {
		confirm()
	}
	if err := compactWorld(f.Arg(0)); err != nil {
		logx.Errorf("Compact: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// compactWorld compacts every region file in a world, across the overworld
// and both nether/end dimension folders.
func compactWorld(path string) error {
	if err := compactDimension(filepath.Join(path, "region")); err != nil {
		return err
	}
	if err := compactDimension(filepath.Join(path, "DIM-1", "region")); err != nil {
		return err
	}
	if err := compactDimension(filepath.Join(path, "DIM1", "region")); err != nil {
		return err
	}
	return nil
}

// compactDimension compacts every *.mca in a single region directory using
// the shared anvil codec rather than re-parsing the sector tables by hand.
func compactDimension(path string) error {
	dir, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range dir {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mca") {
			continue
		}
		regionPath := filepath.Join(path, entry.Name())
		if _, _, err := anvil.ParseRegionFilename(entry.Name()); err != nil {
			return err
		}
		if err := compactRegion(regionPath); err != nil {
			return err
		}
	}
	return nil
}

// compactRegion opens a single region file and defragments it in place.
func compactRegion(path string) error {
	r, err := anvil.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	removed, err := r.Compact()
	if err != nil {
		return err
	}
	if removed > 0 {
		logx.Infof("Removed %d bytes from region file %q.", removed, path)
	} else {
		logx.Debugf("Region file %q already compact.", path)
	}
	return nil
}
